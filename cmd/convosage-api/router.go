package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/cmd/convosage-api/handlers"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/cmd/convosage-api/middleware"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/api/rpc"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/chat"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/config"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/monitoring"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

// Dependencies carries the wired services the router exposes. Building them
// in main keeps the router a pure routing concern and lets tests hand in
// lightweight stand-ins.
type Dependencies struct {
	Logger     *observability.Logger
	Config     *config.Config
	DB         *sql.DB
	Dispatcher *chat.Dispatcher
	Usage      *monitoring.Usage
	Outlets    *text2sql.Service
	OutletRepo *storage.OutletRepository
	Products   *retrieval.Index
	Limiter    cache.Client
	ChatRPC    *rpc.ChatService
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(chimiddleware.Timeout(requestTimeout(cfg)))
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:   cfg.RateLimit.Enabled,
		PerMinute: cfg.RateLimit.PerMinute,
		PerHour:   cfg.RateLimit.PerHour,
		SkipPaths: []string{"/health", "/ready"},
	}, deps.Limiter, deps.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"convo-sage"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.DB != nil {
			if err := deps.DB.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	chatHandler := handlers.NewChatHandler(deps.Dispatcher, deps.Usage, deps.Logger)
	outletsHandler := handlers.NewOutletsHandler(deps.Outlets, deps.OutletRepo, deps.Logger)
	productsHandler := handlers.NewProductsHandler(deps.Products, cfg.Chat.DefaultTopK, cfg.Chat.MaxTopK, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/", chatHandler.Chat)
			r.Get("/history/{sessionID}", chatHandler.History)
			r.Delete("/sessions/{sessionID}", chatHandler.DeleteSession)
			r.Get("/stats", chatHandler.Stats)
		})

		r.Route("/outlets", func(r chi.Router) {
			r.Post("/search", outletsHandler.Search)
			r.Get("/", outletsHandler.List)
			r.Get("/{outletID}", outletsHandler.GetByID)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/search", productsHandler.Search)
			r.Get("/", productsHandler.List)
			r.Get("/{productID}", productsHandler.GetByID)
		})
	})

	// Connect clients call the full procedure path under /rpc.
	if deps.ChatRPC != nil {
		path, handler := deps.ChatRPC.Handler()
		rpcMux := http.NewServeMux()
		rpcMux.Handle(path, handler)
		r.Mount("/rpc", http.StripPrefix("/rpc", rpcMux))
	}

	return r
}

func requestTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ReadTimeout > 0 {
		return cfg.Server.ReadTimeout
	}
	return 30 * time.Second
}
