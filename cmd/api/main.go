package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"call-insights-go/internal/audiostore"
	"call-insights-go/internal/config"
	"call-insights-go/internal/extractor"
	"call-insights-go/internal/httpapi"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/metrics"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/store"
	"call-insights-go/internal/transcription"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	log.WithField("service", "call-insights-go").
		WithField("environment", cfg.Environment).
		WithField("mock_mode", cfg.MockMode()).
		Info("starting service")
	if cfg.MockMode() {
		log.Warn("OPENAI_API_KEY not set, transcription and analysis return mock results")
	}
	if cfg.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabasePath, log, store.Options{})
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	audio, err := audiostore.New(cfg.UploadDir)
	if err != nil {
		log.WithError(err).Fatal("failed to prepare upload dir")
	}

	m := metrics.New()
	proc := processor.New(audio, db,
		transcription.New(transcription.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.TranscriptionModel,
			Timeout: cfg.TranscriptionTimeout,
		}, log),
		extractor.New(extractor.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.AnalysisModel,
			Timeout: cfg.AnalysisTimeout,
		}, log),
		m, log)

	handler := httpapi.NewRouter(proc, db, m, log, httpapi.Options{
		MaxUploadBytes:   cfg.MaxUploadBytes,
		UploadRatePerSec: cfg.UploadRatePerSec,
		UploadBurst:      cfg.UploadBurst,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		// Uploads wait on transcription and analysis before responding.
		WriteTimeout: cfg.TranscriptionTimeout + cfg.AnalysisTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).
			WithField("upload_dir", audio.Dir()).
			WithField("database", cfg.DatabasePath).
			Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
		return
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
