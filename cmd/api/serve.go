package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leandro-lugaresi/hub"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/config"
	"github.com/harentsoaR/armline-api/internal/handlers"
	"github.com/harentsoaR/armline-api/internal/ratelimit"
	"github.com/harentsoaR/armline-api/internal/server"
	"github.com/harentsoaR/armline-api/internal/services"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ARMLine API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := cfg.Validate(); err != nil {
				logger.Error("invalid configuration", zap.Error(err))
				return err
			}
			if !cfg.DevMode {
				gin.SetMode(gin.ReleaseMode)
			}
			logger.Info(fmt.Sprintf("ARMLine API %s", version))
			if codes := cfg.UnreachableAgencies(); len(codes) > 0 {
				logger.Warn("escalation agencies without an email address are disabled", zap.Strings("agencies", codes))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			repo, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to open store", zap.Error(err))
				return err
			}
			defer closeStore()

			// Message Hub
			h := hub.New()

			notifier := services.NewNotificationService(cfg.Email(), nil, logger)
			notifier.Start(h, repo)

			host, err := imageHost(ctx, cfg)
			if err != nil {
				logger.Error("failed to set up image host", zap.Error(err))
				return err
			}
			logger.Info("evidence images go to " + cfg.ImageHost)

			var counter ratelimit.Counter
			if cfg.RedisURL != "" {
				rc, err := ratelimit.NewRedisCounter(ctx, cfg.RedisURL)
				if err != nil {
					logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
				} else {
					defer rc.Close()
					counter = rc
				}
			}

			handler := handlers.NewHandler(repo, notifier, services.NewEvidenceService(host, logger), h, logger, handlers.Options{
				JWTSecret:     []byte(cfg.JWTSecret),
				TokenTTL:      cfg.TokenTTL,
				PublicBaseURL: cfg.PublicBaseURL,
				Agencies:      cfg.Agencies,
			})
			engine := server.New(handler, ratelimit.NewLimiter(counter, nil, logger), logger, server.Options{
				DevMode:        cfg.DevMode,
				AllowedOrigins: cfg.AllowedOrigins,
				TrustedProxies: cfg.TrustedProxies,
				JWTSecret:      []byte(cfg.JWTSecret),
			})

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           engine,
				ReadHeaderTimeout: 10 * time.Second,
			}
			serveErr := make(chan error, 1)
			go func() {
				logger.Info("starting server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			select {
			case err := <-serveErr:
				logger.Error("server stopped", zap.Error(err))
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				// open event streams keep the server busy until the deadline
				logger.Warn("graceful shutdown timed out, closing remaining connections", zap.Error(err))
				return srv.Close()
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

func imageHost(ctx context.Context, cfg *config.Config) (services.ImageHost, error) {
	if cfg.ImageHost == config.ImageHostS3 {
		return services.NewS3Host(ctx, cfg.S3())
	}
	return services.NewImgBBHost(cfg.ImgBBEndpoint, cfg.ImgBBAPIKey, nil), nil
}
