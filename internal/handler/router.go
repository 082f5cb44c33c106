package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/cardpay-ledger-go/internal/infra/observability"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/service"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps bundles everything the router needs.
type Deps struct {
	Auth    *service.AuthService
	Ledger  *service.LedgerService
	Cards   *service.CardService
	Store   port.SnapshotStore
	Metrics *observability.Metrics
	Logger  *zap.Logger

	CORSAllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract the CardPay frontend consumes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(d.Store, d.Logger))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API ---
	r.Route("/api", func(r chi.Router) {

		// Public routes
		r.Post("/auth/register", authRegisterHandler(d.Auth, d.Logger))
		r.Post("/auth/login", authLoginHandler(d.Auth, d.Logger))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, d.Logger))

			r.Get("/user/{userId}", getUserHandler(d.Auth, d.Logger))
			r.Get("/transactions/{userId}", listTransactionsHandler(d.Ledger, d.Logger))

			r.Post("/send-money", sendMoneyHandler(d.Ledger, d.Logger))
			r.Post("/withdraw", withdrawHandler(d.Ledger, d.Logger))

			r.Get("/cards/{userId}", listCardsHandler(d.Cards, d.Logger))
			r.Post("/cards", addCardHandler(d.Cards, d.Logger))
			r.Delete("/cards/{cardId}", removeCardHandler(d.Cards, d.Logger))

			r.Get("/stats", statsHandler(d.Metrics))
		})
	})

	return r
}

// ============================================================
// Health & stats
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readyzHandler verifies the store answers reads before reporting ready.
func readyzHandler(store port.SnapshotStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := store.View(r.Context(), func(*storage.Snapshot) error { return nil })
		if err != nil {
			logger.Error("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "store not ready")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetLedgerStats())
	}
}
