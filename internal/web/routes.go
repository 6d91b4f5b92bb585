package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/chronoface/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	runsHandler := handlers.NewRunsHandler(s.config, s.manager)
	browseHandler := handlers.NewBrowseHandler(s.config, s.manager)
	reviewHandler := handlers.NewReviewHandler(s.config, s.manager, s.provider)
	collageHandler := handlers.NewCollageHandler(s.config, s.manager)

	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/scan", runsHandler.Start)
		r.Get("/runs", runsHandler.List)

		r.Route("/runs/{runId}", func(r chi.Router) {
			r.Get("/", runsHandler.Status)
			r.Get("/events", runsHandler.Events)
			r.Get("/skipped", runsHandler.Skipped)

			r.Get("/buckets", browseHandler.Buckets)
			r.Get("/clusters", browseHandler.Clusters)
			r.Get("/clusters/{clusterId}/faces", browseHandler.ClusterFaces)
			r.Get("/faces", browseHandler.Faces)
			r.Get("/faces/{faceId}/similar", browseHandler.Similar)

			r.Post("/review", reviewHandler.Apply)
			r.Post("/clusters/{clusterId}/name", reviewHandler.Rename)
			r.Post("/clusters/{clusterId}/suggest-name", reviewHandler.SuggestName)

			r.Post("/collage", collageHandler.Render)
		})
	})

	// thumbnails and rendered collages
	fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.StaticDir)))
	s.router.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		fileServer.ServeHTTP(w, r)
	})
}
