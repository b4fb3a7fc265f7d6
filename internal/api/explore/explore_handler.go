package explore

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type ExploreHandler struct {
	exploreService ExploreService
	logger         *slog.Logger
}

func NewExploreHandler(exploreService ExploreService, logger *slog.Logger) *ExploreHandler {
	return &ExploreHandler{
		exploreService: exploreService,
		logger:         logger,
	}
}

// GetPlaces godoc
// @Summary      Places around a point
// @Description  Searches the place provider around latitude/longitude. Categories: accommodation, catering, tourism, entertainment.
// @Tags         Explore
// @Produce      json
// @Param        city      query string  true  "City name"
// @Param        latitude  query number  true  "Latitude"
// @Param        longitude query number  true  "Longitude"
// @Param        category  query string  false "Category" default(accommodation)
// @Param        radius    query int     false "Radius in metres (max 50000)" default(5000)
// @Param        limit     query int     false "Maximum results (max 50)" default(30)
// @Param        offset    query int     false "Results to skip" default(0)
// @Success      200 {array} types.POI
// @Failure      400 {object} types.Response
// @Failure      502 {object} types.Response
// @Router       /explore/places [get]
func (h *ExploreHandler) GetPlaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ExploreHandler").Start(r.Context(), "GetPlaces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/explore/places"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetPlaces"))

	q := types.ExploreQuery{
		City:     r.URL.Query().Get("city"),
		Category: r.URL.Query().Get("category"),
	}
	lat, okLat, err := api.QueryFloat(r, "latitude")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	lng, okLng, err := api.QueryFloat(r, "longitude")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !okLat || !okLng {
		api.ErrorResponse(w, r, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	q.Center = types.Coordinates{Lat: lat, Lng: lng}

	if q.Radius, err = api.QueryInt(r, "radius", types.DefaultExploreRadius); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if q.Limit, err = api.QueryInt(r, "limit", types.DefaultExploreLimit); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if q.Offset, err = api.QueryInt(r, "offset", 0); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	places, err := h.exploreService.SearchPlaces(ctx, q)
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to search places", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadGateway, "Error fetching places")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, places)
}
