/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through zap
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the scheduling board

ROUTE GROUPS:
  /api/patients/*   Patient records and compliance
  /api/staff/*      Clinicians
  /api/visits/*     Visits and their lifecycle
  /api/schedule/*   Week regeneration and run history
  /api/workload     Staff utilization
  /api/alerts       Compliance alerts
  /api/clock        Simulated clock (when enabled)
  /api/demo/*       Demo rosters
  /metrics          Prometheus scrape endpoint
  /*                API index page

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterOptions carries the bits of configuration the router needs.
type RouterOptions struct {
	CORSOrigins []string

	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/patients", func(r chi.Router) {
			r.Get("/", h.ListPatients)
			r.Post("/", h.CreatePatient)
			r.Get("/{id}", h.GetPatient)
			r.Put("/{id}", h.UpdatePatient)
			r.Delete("/{id}", h.DeletePatient)
			r.Get("/{id}/compliance", h.GetPatientCompliance)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.CreateStaff)
			r.Delete("/{id}", h.DeleteStaff)
		})

		r.Route("/visits", func(r chi.Router) {
			r.Get("/", h.ListVisits)
			r.Post("/", h.CreateVisit)
			r.Get("/{id}", h.GetVisit)
			r.Put("/{id}", h.UpdateVisit)
			r.Delete("/{id}", h.DeleteVisit)
			r.Post("/{id}/confirm", h.ConfirmVisit)
			r.Post("/{id}/complete", h.CompleteVisit)
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Post("/week", h.RegenerateWeek)
			r.Get("/runs", h.ListRuns)
		})

		r.Get("/workload", h.GetWorkload)
		r.Get("/alerts", h.ListAlerts)

		r.Get("/clock", h.GetClock)
		r.Post("/clock", h.UpdateClock)

		r.Route("/demo", func(r chi.Router) {
			r.Get("/scenarios", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Visit Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Visit Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/patients">/api/patients</a> - List patients</li>
<li><a href="/api/staff">/api/staff</a> - List staff</li>
<li><a href="/api/visits">/api/visits</a> - List visits</li>
<li><a href="/api/alerts">/api/alerts</a> - Compliance alerts</li>
<li><a href="/api/workload">/api/workload</a> - Staff workload this week</li>
<li><a href="/api/schedule/runs">/api/schedule/runs</a> - Regeneration history</li>
<li><a href="/api/demo/scenarios">/api/demo/scenarios</a> - Demo rosters</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requestLogger logs one line per request after it completes.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
