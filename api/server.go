/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. zap logger: One structured line per request
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /health               Liveness probe
  /metrics              Prometheus metrics
  /api/catalog/*        Master parts, products, options, import
  /api/profiles/*       Markup profiles
  /api/projects/*       Project graph, pricing, exports
  /api/openings/*       Opening detail, panels, breakdown
  /api/panels/*         Component placement
  /api/components/*     Component removal
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured. An empty
// origin list allows the local dev frontends.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Operational endpoints
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Route("/catalog", func(r chi.Router) {
			r.Route("/parts", func(r chi.Router) {
				r.Get("/", h.ListParts)
				r.Post("/", h.CreatePart)
				r.Get("/{partNumber}", h.GetPart)
				r.Put("/{partNumber}", h.UpdatePart)
				r.Delete("/{partNumber}", h.DeletePart)
				r.Post("/{partNumber}/stock-rules", h.AddStockRule)
				r.Post("/{partNumber}/pricing-rules", h.AddPricingRule)
			})
			r.Post("/import", h.ImportCatalog)
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListProducts)
				r.Post("/", h.CreateProduct)
				r.Get("/{id}", h.GetProduct)
			})
			r.Route("/options", func(r chi.Router) {
				r.Get("/", h.ListOptions)
				r.Post("/", h.CreateOption)
			})
		})

		// Markup profile routes
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Post("/", h.CreateProfile)
			r.Get("/{id}", h.GetProfile)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Delete("/{id}", h.DeleteProject)
			r.Post("/{id}/openings", h.CreateOpening)
			r.Post("/{id}/price", h.PriceProject)
			r.Get("/{id}/price", h.GetLatestPrice)
			r.Get("/{id}/price/history", h.PriceHistory)
			r.Get("/{id}/drawings.pdf", h.ExportDrawings)
			r.Get("/{id}/labels.pdf", h.ExportLabels)
			r.Get("/{id}/quote.xlsx", h.ExportWorkbook)
		})

		// Opening routes
		r.Route("/openings", func(r chi.Router) {
			r.Get("/{id}", h.GetOpening)
			r.Post("/{id}/panels", h.CreatePanel)
			r.Get("/{id}/breakdown", h.OpeningBreakdown)
		})

		// Panel and component routes
		r.Post("/panels/{id}/component", h.AttachComponent)
		r.Delete("/components/{id}", h.DetachComponent)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/{id}/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Landing page with endpoint index
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Quote Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Quote Engine API</h1>
<p>Pricing and quoting for door and window packages.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/catalog/parts">/api/catalog/parts</a> - Master parts</li>
<li><a href="/api/catalog/products">/api/catalog/products</a> - Products</li>
<li><a href="/api/profiles">/api/profiles</a> - Markup profiles</li>
<li><a href="/api/projects">/api/projects</a> - Projects</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
