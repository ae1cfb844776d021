package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/aiotter/discord-amazon-url-shortener/internal/config"
	"github.com/aiotter/discord-amazon-url-shortener/internal/gateway"
	"github.com/aiotter/discord-amazon-url-shortener/internal/inflight"
	"github.com/aiotter/discord-amazon-url-shortener/internal/metrics"
	"github.com/aiotter/discord-amazon-url-shortener/internal/processor"
	"github.com/aiotter/discord-amazon-url-shortener/internal/relay"
	"github.com/aiotter/discord-amazon-url-shortener/internal/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := run(cfg); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}

func run(cfg *config.Config) error {
	slog.Info("Starting Amazon URL shortener bot...", "fetch_backend", cfg.FetchBackend)
	metrics.Register()

	s := scraper.New(cfg, scraper.LoadConfig(cfg.SelectorsPath))
	defer s.Close()

	bot, err := gateway.New(cfg.DiscordToken)
	if err != nil {
		return err
	}
	r := relay.New(bot.Session(), cfg.RelayName)
	coord := processor.New(r, s, inflight.New())

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newMux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := bot.Start(coord); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening on port", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down gracefully...")
		return shutdown(bot, httpServer, cfg.ShutdownGrace)
	})

	return g.Wait()
}

// shutdown stops event intake first, drains in-flight handlers for up to
// grace, then stops the HTTP listener.
func shutdown(bot *gateway.Bot, httpServer *http.Server, grace time.Duration) error {
	graceCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := bot.Stop(graceCtx); err != nil {
		slog.Warn("Gateway did not drain cleanly", "error", err)
	}

	httpCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(httpCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
