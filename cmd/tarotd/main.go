package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maimai/spacetarot"
	"github.com/maimai/spacetarot/config"
	"github.com/maimai/spacetarot/metrics"
	"github.com/maimai/spacetarot/store"
	"github.com/maimai/spacetarot/web"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML/TOML/JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logger, err := cfg.Logger()
	if err != nil {
		logrus.WithError(err).Fatal("failed to build logger")
	}

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()
	db.WithLogger(logger)
	if err := db.Initialize(ctx); err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}

	httpClient := &http.Client{}
	pipeline, err := cfg.Pipeline(ctx, httpClient,
		tarot.WithLogger(logger),
		tarot.WithObserver(metrics.ObservePipeline),
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to build generation pipeline")
	}

	srv, err := web.NewServer(web.Deps{
		Store:      db,
		Generator:  pipeline,
		Downloader: tarot.NewDownloader(httpClient, cfg.Download.Path),
		Logger:     logger,
		CacheTTL:   cfg.Download.CacheTTL,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to build server")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":           cfg.Server.Addr,
			"llm_provider":   cfg.LLM.Provider,
			"image_provider": cfg.Image.Provider,
		}).Info("starting server")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
}
