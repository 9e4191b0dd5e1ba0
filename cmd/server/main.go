package main

import (
	"log/slog"
	"os"

	"github.com/JayJamieson/csv-warehouse/pkg/api"
	"github.com/JayJamieson/csv-warehouse/pkg/config"
	"github.com/JayJamieson/csv-warehouse/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	config.RegisterFlags(flags)
	flags.Parse(os.Args[1:])

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Path,
		"inference_backend", cfg.Inference.Backend,
		"batch_size", cfg.Import.BatchSize,
	)

	server, err := api.New(api.Config{
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DatabasePath:    cfg.Database.Path,
		DownloadTimeout: cfg.Import.DownloadTimeout,
		LogLevel:        cfg.Logging.Level,
		Warehouse:       cfg.SessionConfig(),
	})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
