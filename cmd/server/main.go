package main // Entry point package

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "vault-access",
		Short:         "Step-up access control for the financial vault",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE:  withRuntime(serve),
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE:  withRuntime(migrate),
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert development users and vault items",
			RunE:  withRuntime(seed),
		},
	)
	return root
}

// withRuntime loads configuration and a production logger before running fn.
func withRuntime(fn func(cmd *cobra.Command, cfg config.Config, log *zap.Logger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg.Env)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()
		return fn(cmd, cfg, log)
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
