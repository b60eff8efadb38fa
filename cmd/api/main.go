package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"promoforge/internal/compositor"
	"promoforge/internal/history"
	"promoforge/internal/http/handlers"
	httpapi "promoforge/internal/http/httpapi"
	"promoforge/internal/infra"
	"promoforge/internal/pipeline"
	"promoforge/internal/providers/dashscope"
	"promoforge/internal/providers/kling"
	"promoforge/internal/providers/veo"
	"promoforge/internal/providers/video"
	"promoforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize artifact store")
	}

	engine := compositor.NewEngine(
		compositor.WithBinary(cfg.FFmpegBin),
		compositor.WithTimeout(cfg.ComposeTimeout),
		compositor.WithEngineLogger(&logger),
	)
	comp := compositor.New(engine)

	adapters := []video.Adapter{
		veo.New(veo.Options{
			APIKey:  cfg.VeoAPIKey,
			BaseURL: cfg.VeoBaseURL,
			Model:   cfg.VeoModel,
			Logger:  &logger,
		}),
		kling.New(kling.Options{
			APIKey:  cfg.KlingAPIKey,
			BaseURL: cfg.KlingBaseURL,
			Logger:  &logger,
		}),
		dashscope.New(dashscope.Options{
			APIKey:   cfg.DashScopeAPIKey,
			BaseURL:  cfg.DashScopeBaseURL,
			Model:    cfg.DashScopeModel,
			Logger:   &logger,
			Composer: comp,
		}),
	}

	ctx := context.Background()

	var recorder history.Recorder = history.NewNoop()
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		pg, err := history.NewPGRecorder(ctx, dbpool)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare history schema")
		}
		recorder = pg
	}

	orchestrator, err := pipeline.New(pipeline.Options{
		Adapters:        adapters,
		Local:           pipeline.NewLocalRenderer(comp),
		Store:           store,
		Recorder:        recorder,
		Logger:          logger,
		PollInterval:    cfg.VideoPollInterval,
		PollAttempts:    cfg.VideoPollAttempts,
		DefaultDuration: cfg.VideoDuration,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build video pipeline")
	}

	app := handlers.NewApp(orchestrator, cfg.StorageBaseURL, logger)
	router := httpapi.NewRouter(app, logger, store.BasePath())

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
