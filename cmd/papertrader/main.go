package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pedroca011/finflow-dashboard/internal/config"
	"github.com/Pedroca011/finflow-dashboard/internal/engine"
	"github.com/Pedroca011/finflow-dashboard/internal/handler"
	"github.com/Pedroca011/finflow-dashboard/internal/quote"
	"github.com/Pedroca011/finflow-dashboard/internal/service"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	quotes := newQuoteProvider(cfg)
	if cfg.QuoteCacheTTL > 0 {
		quotes = quote.NewCache(quotes, cfg.QuoteCacheSize, cfg.QuoteCacheTTL)
	}

	eng := engine.New(st, cfg.DefaultBalance)

	// Webhook service first: the order service dispatches through it.
	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), cfg.WebhookTimeout, logger)
	svcs := handler.Services{
		Accounts:  service.NewAccountService(eng, logger),
		Orders:    service.NewOrderService(eng, webhookSvc, logger),
		Portfolio: service.NewPortfolioService(st, quotes, cfg.QuoteTimeout, cfg.QuoteConcurrency, logger),
		Webhooks:  webhookSvc,
	}
	router := handler.NewRouter(svcs, cfg.CORSAllowedOrigins, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("store", cfg.StoreDriver),
			slog.String("quotes", cfg.QuoteProvider),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	// In-flight webhook deliveries are bounded by WEBHOOK_TIMEOUT.
	webhookSvc.Wait()
	if err := st.Close(); err != nil {
		logger.Error("store close error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return store.OpenSQLite(cfg.StorePath)
	case config.StoreBolt:
		return store.OpenBolt(cfg.StorePath)
	case config.StorePebble:
		return store.OpenPebble(cfg.StorePath)
	default:
		return store.NewMemory(), nil
	}
}

func newQuoteProvider(cfg *config.Config) quote.Provider {
	switch cfg.QuoteProvider {
	case config.QuotesBrapi:
		return quote.NewBrapi(cfg.BrapiBaseURL, cfg.BrapiToken, cfg.QuoteTimeout)
	case config.QuotesAlpaca:
		return quote.NewAlpaca(cfg.AlpacaAPIKey, cfg.AlpacaAPISecret, cfg.AlpacaDataURL)
	default:
		return quote.NewStatic(cfg.StaticQuotes, time.Now().UTC())
	}
}
