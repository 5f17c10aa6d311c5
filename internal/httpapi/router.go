package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/mkochhar/jobops/internal/metrics"
)

const maxRequestBodyBytes = 1 * 1024 * 1024

// NewRouter assembles the chi router, middleware chain, and huma route
// groups (public / ui / admin / either) per spec.md §6. Grounded on the
// teacher's cmd/refyne-api/main.go middleware chain, adapted from Clerk JWT
// + tier gating to the two shared-secret-header capabilities this spec uses.
func NewRouter(deps *Deps) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(deps.Cfg.RequestTimeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "x-ui-key", "x-api-key", "x-request-id"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestSize(maxRequestBodyBytes))
	router.Use(httprate.LimitByIP(100, time.Minute))

	humaConfig := huma.DefaultConfig("JobOps API", "1.0.0")
	humaConfig.Info.Description = "Personal job-application ingestion, scoring, and lifecycle pipeline."
	humaConfig.Servers = []*huma.Server{{URL: deps.Cfg.BaseURL, Description: "JobOps server"}}

	publicAPI := humachi.New(router, humaConfig)
	registerHealthRoutes(publicAPI, deps)

	router.Group(func(r chi.Router) {
		r.Use(requireUI(deps.Cfg))
		uiAPI := humachi.New(r, humaConfig)
		registerJobRoutes(uiAPI, deps)
		registerIngestRoutes(uiAPI, deps)
		registerTargetRoutes(uiAPI, deps)
		registerEventsRoute(uiAPI, deps)
	})

	router.Group(func(r chi.Router) {
		r.Use(requireEither(deps.Cfg))
		eitherAPI := humachi.New(r, humaConfig)
		registerScorePendingRoute(eitherAPI, deps)
	})

	router.Group(func(r chi.Router) {
		r.Use(requireAdmin(deps.Cfg))
		adminAPI := humachi.New(r, humaConfig)
		registerAdminRoutes(adminAPI, deps)
	})

	if deps.ChatVerifier != nil {
		router.Post("/webhooks/chat", newChatWebhookHandler(deps))
	}

	router.Handle("/metrics", metrics.Handler())

	return router
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
