package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hayato040404/Watch/internal/config"
	"github.com/Hayato040404/Watch/internal/logging"
	"github.com/Hayato040404/Watch/internal/relay"
	"github.com/Hayato040404/Watch/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logging.Init(slog.LevelInfo)

	cfg, err := config.Load(config.Options{})
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	hub := relay.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewMux(hub),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("signaling relay listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
