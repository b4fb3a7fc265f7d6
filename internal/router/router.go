package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-trip-planner/internal/api/explore"
	"github.com/FACorreiaa/go-trip-planner/internal/api/generation"
	"github.com/FACorreiaa/go-trip-planner/internal/api/planner"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/api/trip"
)

// Config contains dependencies needed for the router setup
type Config struct {
	POIHandler             *poi.POIHandler
	TripHandler            *trip.TripHandler
	ExploreHandler         *explore.ExploreHandler
	GenerationHandler      *generation.GenerationHandler
	PlannerHandler         *planner.PlannerHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
	// RequestsPerMinute is the per-IP limit on /api/v1; zero disables it.
	RequestsPerMinute int
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (request id, logging, recoverer) is applied by the
// caller before mounting it.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
		}

		// Stateless helpers need no user.
		r.Route("/planner", func(r chi.Router) {
			r.Post("/slot", cfg.PlannerHandler.FindSlot)
			r.Post("/diff", cfg.PlannerHandler.Diff)
			r.Post("/categories", cfg.PlannerHandler.CategoryMappings)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/points/create-or-get", cfg.POIHandler.CreateOrGetPOI)
			r.Post("/points/saved/details", cfg.POIHandler.GetPOIDetails)

			r.Route("/user/history/saved-pois", func(r chi.Router) {
				r.Get("/", cfg.POIHandler.GetSavedPOIs)
				r.Post("/", cfg.POIHandler.SavePOI)
				r.Get("/details", cfg.POIHandler.GetSavedPOIDetails)
				r.Put("/unsave", cfg.POIHandler.UnsavePOIs)
			})

			r.Get("/explore/places", cfg.ExploreHandler.GetPlaces)

			r.Route("/trips", func(r chi.Router) {
				r.Get("/", cfg.TripHandler.ListUserTrips)
				r.Post("/", cfg.TripHandler.CreateTrip)
				r.Post("/generate", cfg.GenerationHandler.GenerateTrip)
				r.Get("/{tripID}", cfg.TripHandler.GetTrip)
				r.Put("/{tripID}", cfg.TripHandler.UpdateTrip)
				r.Delete("/{tripID}", cfg.TripHandler.DeleteTrip)
				r.Get("/{tripID}/exists", cfg.TripHandler.TripExists)
			})
		})
	})

	return r
}
