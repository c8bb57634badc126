package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/TheMarco/sora-renderer/internal/adapter/repo"
	"github.com/TheMarco/sora-renderer/internal/db"
	"github.com/TheMarco/sora-renderer/internal/gateway"
	"github.com/TheMarco/sora-renderer/internal/http/handlers"
	"github.com/TheMarco/sora-renderer/internal/http/httpapi"
	"github.com/TheMarco/sora-renderer/internal/infra"
	"github.com/TheMarco/sora-renderer/internal/infra/geoip"
	"github.com/TheMarco/sora-renderer/internal/notify"
	"github.com/TheMarco/sora-renderer/internal/orchestrator"
	"github.com/TheMarco/sora-renderer/internal/pipeline"
	"github.com/TheMarco/sora-renderer/internal/registry"
	"github.com/TheMarco/sora-renderer/internal/scheduler"
	"github.com/TheMarco/sora-renderer/internal/storage"
	"github.com/TheMarco/sora-renderer/internal/vault"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := db.EnsureSchema(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
		countries = nil
	}

	jobRepo := repo.NewJobRepository(dbpool)
	assetRepo := repo.NewAssetRepository(dbpool)
	credRepo := repo.NewCredentialRepository(dbpool)
	settingsRepo := repo.NewSettingsRepository(dbpool)

	events := notify.NewService(infra.ComponentLogger(logger, "notify"))
	defer events.Close()

	reg := registry.New(events)
	if err := reg.Rebuild(ctx, jobRepo, assetRepo); err != nil {
		logger.Fatal().Err(err).Msg("failed to rebuild registry")
	}

	secrets := vault.New(vault.NewFileKeystore(store), infra.ComponentLogger(logger, "vault"))

	gw := gateway.NewClient(gateway.Options{
		BaseURL: cfg.GatewayBaseURL,
		Logger:  infra.ComponentLogger(logger, "gateway"),
	})

	// Stored preferences override the env default for the initial interval.
	if s, err := settingsRepo.Get(ctx); err == nil && s.PollingMs > 0 {
		cfg.PollInterval = time.Duration(s.PollingMs) * time.Millisecond
	}

	sched := scheduler.New(scheduler.Config{
		InitialInterval: cfg.PollInterval,
		MaxInterval:     cfg.PollMaxInterval,
		BackoffFactor:   cfg.PollBackoff,
	}, infra.ComponentLogger(logger, "scheduler"))

	extractor := pipeline.NewFFmpegExtractor(cfg.FFmpegPath, infra.ComponentLogger(logger, "pipeline"))
	completion := pipeline.New(gw, assetRepo, settingsRepo, reg, store, extractor,
		infra.ComponentLogger(logger, "pipeline"))

	orch := orchestrator.New(orchestrator.Deps{
		Jobs:      jobRepo,
		Assets:    assetRepo,
		Creds:     credRepo,
		Settings:  settingsRepo,
		Registry:  reg,
		Vault:     secrets,
		Gateway:   gw,
		Scheduler: sched,
		Pipeline:  completion,
		Logger:    infra.ComponentLogger(logger, "orchestrator"),
	})

	go sched.Run(ctx)
	go orch.Run(ctx)

	// Pick interrupted jobs back up before accepting traffic.
	if err := orch.Resume(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to resume polling")
	}

	app := &handlers.App{
		Orch:     orch,
		Registry: reg,
		Assets:   assetRepo,
		Settings: settingsRepo,
		Events:   events,
		Logger:   infra.ComponentLogger(logger, "http"),
	}
	router := httpapi.NewRouter(app, infra.ComponentLogger(logger, "http"), countries)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	cancel()
	logger.Info().Msg("server stopped")
}
