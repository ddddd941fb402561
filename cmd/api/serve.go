package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/aura/backend/internal/config"
	"github.com/zhouzirui/aura/backend/internal/handler"
	"github.com/zhouzirui/aura/backend/internal/logger"
	"github.com/zhouzirui/aura/backend/internal/middleware"
	"github.com/zhouzirui/aura/backend/internal/service/ai"
	"github.com/zhouzirui/aura/backend/internal/service/chat"
	"github.com/zhouzirui/aura/backend/internal/service/upload"
	"github.com/zhouzirui/aura/backend/internal/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	repo, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer repo.Close()
	log.Info("storage ready", "driver", cfg.Storage.Driver)

	generator, err := ai.NewGenerator(ctx, cfg.AI)
	if err != nil {
		log.Warn("failed to initialize AI provider, serving fallback replies only", "provider", cfg.AI.Provider, "error", err)
		generator = nil
	} else if generator == nil {
		log.Warn("AI provider disabled, serving fallback replies only")
	} else {
		log.Info("AI provider initialized", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	}

	responder := ai.NewResponder(generator, ai.NewFallbacks(cfg.AI.Fallbacks, nil), ai.ResponderConfig{
		SystemPrompt: cfg.AI.SystemPrompt,
		HistoryLimit: cfg.AI.HistoryLimit,
		Timeout:      cfg.AI.Timeout,
	}, log)

	if !cfg.Upload.Enabled() {
		log.Warn("ImageKit keys not configured, image upload auth disabled")
	}

	router := handler.NewRouter(handler.Dependencies{
		Chat:           chat.NewService(repo, responder, log, chat.Options{}),
		Uploads:        upload.NewSigner(cfg.Upload),
		Auth:           middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.CookieName, log),
		Log:            log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("Aura backend listening", "addr", cfg.Server.Addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
