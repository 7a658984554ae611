package api

import (
	"encoding/json"
	"net/http"

	"shopify-catalog-mirror/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterDeps is what the HTTP surface needs from the rest of the service
type RouterDeps struct {
	Webhooks       WebhookReceiver
	Syncer         TenantSyncer
	Tenants        ports.TenantRepository
	Events         EventSubscriber
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	SwaggerFile    string
}

// NewRouter builds the chi router for every public endpoint
func NewRouter(deps RouterDeps, logger zerolog.Logger) http.Handler {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	swaggerFile := deps.SwaggerFile
	if swaggerFile == "" {
		swaggerFile = "./docs/swagger.json"
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, swaggerFile)
	})

	r.Post("/webhooks/shopify", WebhookHandler(deps.Webhooks, logger))

	r.Route("/api/tenants/{tenantId}", func(r chi.Router) {
		r.Post("/sync", SyncHandler(deps.Syncer, logger))
		if deps.Events != nil {
			r.Get("/events", EventsHandler(deps.Tenants, deps.Events, origins, logger))
		}
	})

	return r
}
