package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	internal "github.com/ZanzyTHEbar/siteops/siteops"
	"github.com/ZanzyTHEbar/siteops/siteops/assistant"
	"github.com/ZanzyTHEbar/siteops/siteops/assistant/tools"
	"github.com/ZanzyTHEbar/siteops/siteops/business"
	"github.com/ZanzyTHEbar/siteops/siteops/config"
	sitedb "github.com/ZanzyTHEbar/siteops/siteops/db"
	"github.com/ZanzyTHEbar/siteops/siteops/inference"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string
	userID     string
)

var rootCmd = &cobra.Command{
	Use:           internal.DefaultAppName,
	Short:         "Site operations assistant for construction and concrete production",
	Long:          "siteops answers questions about, and suggests changes to, live project, inventory, delivery, quality and timesheet data through a local language model.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default searches ./config.yaml and "+internal.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "cli", "Caller identity used for conversations and tool runs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(migrateCmd)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().
		Timestamp().
		Str("app", internal.DefaultAppName).
		Logger()
}

// loadConfig reads configuration and builds the logger it describes.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, newLogger(cfg.Log.Level), nil
}

// app is the fully wired application.
type app struct {
	cfg          *config.Config
	logger       zerolog.Logger
	db           *sql.DB
	gateway      *inference.Client
	orchestrator *assistant.Orchestrator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := assistant.NewRegistry(tools.Catalogue(business.NewSQLStore(db), nil)...)
	factory := assistant.NewFactory(&cfg.Harness, &cfg.Inference, db, logger)
	gateway := factory.CreateGateway()

	logger.Debug().
		Int("tools", registry.Len()).
		Str("inference", gateway.BaseURL).
		Str("database", cfg.Database.DSN).
		Msg("Runtime wired")

	return &app{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		gateway:      gateway,
		orchestrator: factory.CreateOrchestrator(gateway, registry),
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	if cfg.Database.Type != "" && cfg.Database.Type != internal.DefaultDatabaseType {
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}
	return sitedb.Open(ctx, &sitedb.LibSQLConfig{
		DSN:          cfg.Database.DSN,
		AuthToken:    cfg.Database.AuthToken,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, logger.With().Str("component", "db").Logger())
}
