package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Calum-Kerr/revisepdf-front/config"
	"github.com/Calum-Kerr/revisepdf-front/internal/database"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/logger"
	"github.com/Calum-Kerr/revisepdf-front/internal/repository"
	"github.com/Calum-Kerr/revisepdf-front/internal/service"
)

var (
	dryRun  = flag.Bool("dry-run", true, "Dry run mode, only report what would be migrated")
	timeout = flag.Duration("timeout", 30*time.Minute, "Abort the migration after this long")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg := logger.New(cfg.Log)
	lg.Info().Bool("dry_run", *dryRun).Msg("starting legacy profile migration")

	// 连接数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal().Err(err).Msg("failed to migrate database")
	}

	legacyRepo := repository.NewLegacyProfileRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	total, err := legacyRepo.Count(ctx)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to read legacy profiles")
	}
	lg.Info().Int64("profiles", total).Msg("legacy profiles found")

	report, err := service.NewMigrationService(legacyRepo, accountRepo).Run(ctx, *dryRun)
	if err != nil {
		lg.Fatal().Err(err).Interface("report", report).Msg("migration failed")
	}

	lg.Info().
		Int("scanned", report.Scanned).
		Int("created", report.Created).
		Int("skipped", report.Skipped).
		Int("invalid", report.Invalid).
		Int("tier_fallback", report.TierFallback).
		Bool("dry_run", *dryRun).
		Msg("migration complete")

	if *dryRun {
		lg.Info().Msg("this was a dry run, re-run with -dry-run=false to write accounts")
	}
}
