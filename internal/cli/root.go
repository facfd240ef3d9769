// Package cli is the hoststand command line: the API server and the
// maintenance commands that share its configuration.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/config"
	"github.com/tbourn/hoststand/internal/repo"
	"github.com/tbourn/hoststand/internal/services"
	"github.com/tbourn/hoststand/internal/sysutil"
)

// Build info, set with -ldflags.
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "hoststand",
		Short:         "Restaurant host stand: floor state, table assignment, reservations and waitlist",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotenv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotenv loads path into the environment without overriding variables
// already set. A missing file is fine.
func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig reads the environment and installs the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, nil)
	return cfg, nil
}

// openStore connects to the configured database, migrating when asked.
func openStore(cfg config.Config, migrate bool) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}
	if migrate {
		if err := repo.AutoMigrate(db); err != nil {
			closeStore(db)
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return db, nil
}

func closeStore(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}
}

// newFloor builds the services with the configured floor rules.
func newFloor(cfg config.Config, d services.Deps) (*services.Floor, error) {
	settings, err := services.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	d.Settings = settings
	return services.NewFloor(d), nil
}
