package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"medibook-server/internal/config"
	"medibook-server/internal/logger"
	"medibook-server/internal/models"
)

func main() {
	// A missing .env is fine: the environment may already be configured.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "medibook-server",
		Short:        "Doctor appointment booking API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN, Verbose: cfg.IsDevelopment()})
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

// bootstrap loads the configuration and builds the root logger.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.New(cfg.LogLevel, cfg.IsDevelopment()), nil
}
