package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/config"
	"github.com/iliyamo/vault-access/internal/database"
	"github.com/iliyamo/vault-access/internal/handler"
	"github.com/iliyamo/vault-access/internal/mfa"
	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
	"github.com/iliyamo/vault-access/internal/repository/memory"
	"github.com/iliyamo/vault-access/internal/service"
)

type userStore interface {
	handler.UserAccounts
	mfa.SecretStore
	Create(ctx context.Context, u model.User) error
}

type itemStore interface {
	service.VaultItemStore
	Create(ctx context.Context, item model.VaultItem) error
}

type auditStore interface {
	service.AuditSink
	handler.AuditReader
}

// stores is one backend's full set of persistence collaborators.  db is nil
// for the memory driver.
type stores struct {
	db       *sql.DB
	users    userStore
	items    itemStore
	requests service.AccessRequestStore
	sessions service.SessionStore
	records  service.VaultRecordStore
	tokens   handler.RefreshTokens
	audit    auditStore
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// openStores connects the configured backend.  MySQL is migrated to the
// latest schema; memory stores start empty.
func openStores(cfg config.Config, log *zap.Logger) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("using in-memory stores; all data is lost on restart")
		return &stores{
			users:    memory.NewUsers(),
			items:    memory.NewVaultItems(),
			requests: memory.NewAccessRequests(),
			sessions: memory.NewSessions(),
			records:  memory.NewVaultRecords(),
			tokens:   memory.NewRefreshTokens(),
			audit:    memory.NewAuditLog(),
		}, nil
	}

	db, err := openMySQL(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		db:       db,
		users:    repository.NewUserRepo(db),
		items:    repository.NewVaultItemRepo(db),
		requests: repository.NewAccessRequestRepo(db),
		sessions: repository.NewSessionRepo(db),
		records:  repository.NewVaultRecordRepo(db),
		tokens:   repository.NewTokenRepo(db),
		audit:    repository.NewAuditRepo(db),
	}, nil
}

func openMySQL(cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}

func (s *stores) seeder(cfg config.Config, enroller database.SeedEnroller, log *zap.Logger) database.Seeder {
	return database.Seeder{
		Users:      s.users,
		Items:      s.items,
		Records:    s.records,
		MFA:        enroller,
		BcryptCost: cfg.BcryptCost,
		Log:        log,
	}
}
