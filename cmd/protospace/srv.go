package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	internalauth "protospace/internal/auth"
	"protospace/internal/config"
	"protospace/internal/server"
	"protospace/internal/store"
)

const sessionSweepInterval = time.Hour

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the protospace web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, slog.Default())
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	addr, err := server.ListenAddr(cfg.ListenURL)
	if err != nil {
		return err
	}

	rt, err := openLocalRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	tokens, err := tokenIssuer(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(addr, server.Options{
		Service:         rt.service,
		Users:           rt.store,
		Tokens:          tokens,
		SessionTTL:      cfg.SessionTTL.Duration,
		UploadMaxBytes:  cfg.Uploads.MaxBytes,
		MultipartMemory: cfg.Uploads.MultipartMemory,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sweepSessions(sweepCtx, rt.store, logger)
	return srv.ListenAndServe(ctx)
}

// tokenIssuer returns nil when no token secret is configured, which disables
// bearer authentication on the JSON API.
func tokenIssuer(cfg *config.Config, logger *slog.Logger) (*internalauth.TokenIssuer, error) {
	if cfg.TokenSecret == "" {
		logger.Warn("token_secret not set; API bearer tokens are disabled")
		return nil, nil
	}
	issuer, err := internalauth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL.Duration)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	return issuer, nil
}

func sweepSessions(ctx context.Context, users store.UserStore, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := users.DeleteExpiredSessions(ctx, now.UTC())
			if err != nil {
				logger.Error("sweep sessions", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("swept sessions", "removed", removed)
			}
		}
	}
}
