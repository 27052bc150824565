package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/config"
	"github.com/iliyamo/vault-access/internal/database"
	"github.com/iliyamo/vault-access/internal/handler"
	"github.com/iliyamo/vault-access/internal/mfa"
	"github.com/iliyamo/vault-access/internal/middleware"
	"github.com/iliyamo/vault-access/internal/queue"
	"github.com/iliyamo/vault-access/internal/router"
	"github.com/iliyamo/vault-access/internal/service"
)

// redisPinger adapts a redis client to handler.Pinger.
type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func serve(cmd *cobra.Command, cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var pingers []handler.Pinger
	if st.db != nil {
		pingers = append(pingers, st.db)
	}

	rdb := config.NewRedisClient()
	var guard mfa.ReplayGuard
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting, caching and TOTP replay protection are off")
	} else {
		defer func() { _ = rdb.Close() }()
		guard = mfa.NewRedisReplayGuard(rdb)
		pingers = append(pingers, redisPinger{rdb})
	}
	totp := mfa.NewTOTPProvider(st.users, guard, cfg.MFAIssuer, log)

	if cfg.StoreDriver == config.DriverMemory {
		if err := st.seeder(cfg, totp, log).Run(ctx); err != nil {
			return fmt.Errorf("seed memory stores: %w", err)
		}
	}

	sinks := service.FanoutSink{st.audit}
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer func() { _ = pub.Close() }()
		sinks = append(sinks, pub)
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, cfg.AuditLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}
	auditor := service.NewAuditor(sinks, log, cfg.AuditTimeout)

	policy, err := service.ParseUniquenessPolicy(cfg.RequestUniqueness)
	if err != nil {
		return err
	}
	registry := service.NewAccessRequestRegistry(st.users, st.items, st.requests, auditor, policy)
	authority := service.NewSessionAuthority(st.users, st.items, st.requests, st.sessions, st.records, totp, auditor, log, service.AuthorityConfig{
		SessionTTL:   cfg.SessionTTL,
		MFATimeout:   cfg.MFATimeout,
		StoreTimeout: cfg.StoreTimeout,
	})

	if cfg.SweepSchedule != "" {
		sweeper := service.NewSessionSweeper(st.sessions, cfg.SessionRetention, log)
		if err := sweeper.Start(cfg.SweepSchedule); err != nil {
			return fmt.Errorf("start session sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	g := router.Guard{JWTSecret: cfg.JWTSecret, Users: st.users}
	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb, log)

	router.RegisterRoutes(e, handler.Health(pingers...))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.users, st.tokens, totp, auditor, log), g, limiter)
	router.RegisterAccessRequests(e, handler.NewAccessRequestHandler(registry, st.users, log), g)
	router.RegisterVault(e, handler.NewVaultHandler(authority, st.items, log), g, limiter, cache)
	router.RegisterAudit(e, handler.NewAuditHandler(st.audit, log), g)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func migrate(_ *cobra.Command, cfg config.Config, log *zap.Logger) error {
	if cfg.StoreDriver != config.DriverMySQL {
		return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.DriverMySQL)
	}
	db, err := openMySQL(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func seed(cmd *cobra.Command, cfg config.Config, log *zap.Logger) error {
	if cfg.StoreDriver != config.DriverMySQL {
		return fmt.Errorf("seed requires STORE_DRIVER=%s; memory stores are seeded by serve", config.DriverMySQL)
	}
	st, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	totp := mfa.NewTOTPProvider(st.users, nil, cfg.MFAIssuer, log)
	return st.seeder(cfg, totp, log).Run(cmd.Context())
}
