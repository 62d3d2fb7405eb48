package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/Pedroca011/finflow-dashboard/internal/service"
)

// Services bundles what the router dispatches to.
type Services struct {
	Accounts  *service.AccountService
	Orders    *service.OrderService
	Portfolio *service.PortfolioService
	Webhooks  *service.WebhookService
}

// NewRouter creates a chi router with all routes registered, request logging,
// CORS for the given origins, and Content-Type validation middleware. Every
// route except /healthz requires the X-User-ID header.
func NewRouter(svcs Services, allowedOrigins []string, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", UserIDHeader},
		}).Handler)
	}
	r.Use(contentTypeJSON)

	accountH := NewAccountHandler(svcs.Accounts)
	orderH := NewOrderHandler(svcs.Orders)
	portfolioH := NewPortfolioHandler(svcs.Portfolio)
	webhookH := NewWebhookHandler(svcs.Webhooks)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Post("/account", accountH.Open)
		r.Get("/account", accountH.Get)

		r.Route("/simulator", func(r chi.Router) {
			r.Post("/orders", orderH.Create)
			r.Get("/orders", orderH.List)
			r.Put("/orders/{order_id}/execute", orderH.Execute)
			r.Put("/orders/{order_id}/cancel", orderH.Cancel)
			r.Delete("/orders/{order_id}", orderH.Delete)

			r.Get("/portfolio", portfolioH.Get)
			r.Get("/portfolio/summary", portfolioH.Summary)
			r.Get("/portfolio/history", portfolioH.History)
		})

		r.Post("/webhooks", webhookH.Upsert)
		r.Get("/webhooks", webhookH.List)
		r.Delete("/webhooks/{webhook_id}", webhookH.Delete)
	})

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT and PATCH requests whose body is not
// declared as application/json. Bodyless requests such as POST /account
// and the execute/cancel PUTs pass through.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if r.ContentLength != 0 && (ct == "" || !strings.HasPrefix(ct, "application/json")) {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
