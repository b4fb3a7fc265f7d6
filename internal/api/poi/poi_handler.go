package poi

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type POIHandler struct {
	poiService POIService
	logger     *slog.Logger
}

func NewPOIHandler(poiService POIService, logger *slog.Logger) *POIHandler {
	return &POIHandler{
		poiService: poiService,
		logger:     logger,
	}
}

// CreateOrGetPOI godoc
// @Summary      Create or get a point of interest
// @Description  Returns the id of a matching stored point, creating it when none matches.
// @Tags         POI
// @Accept       json
// @Produce      json
// @Param        request body types.CreateOrGetPOIRequest true "POI"
// @Success      200 {object} types.PointIDResponse
// @Failure      400 {object} types.Response
// @Failure      500 {object} types.Response
// @Security     BearerAuth
// @Router       /points/create-or-get [post]
func (h *POIHandler) CreateOrGetPOI(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("POIHandler").Start(r.Context(), "CreateOrGetPOI", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/points/create-or-get"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateOrGetPOI"))

	var req types.CreateOrGetPOIRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.poiService.CreateOrGetPOI(ctx, req.POIData)
	if err != nil {
		if errors.Is(err, ErrInvalidPOI) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to create or get POI", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create or get POI")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.PointIDResponse{PointID: id})
}

// GetPOIDetails godoc
// @Summary      Details of points of interest
// @Tags         POI
// @Accept       json
// @Produce      json
// @Param        request body types.PointIDsRequest true "Point ids"
// @Success      200 {array} types.POI
// @Failure      400 {object} types.Response
// @Failure      500 {object} types.Response
// @Security     BearerAuth
// @Router       /points/saved/details [post]
func (h *POIHandler) GetPOIDetails(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("POIHandler").Start(r.Context(), "GetPOIDetails", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/points/saved/details"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetPOIDetails"))

	var req types.PointIDsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pois, err := h.poiService.GetPOIDetails(ctx, req.PointIDs)
	if err != nil {
		if status, ok := clientError(err); ok {
			api.ErrorResponse(w, r, status, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to fetch POI details", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch POI details")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, pois)
}

// GetSavedPOIs godoc
// @Summary      Saved points of interest of the user in a city
// @Tags         User History
// @Produce      json
// @Param        city query string true "City"
// @Success      200 {array} types.SavedPOI
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /user/history/saved-pois [get]
func (h *POIHandler) GetSavedPOIs(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("POIHandler").Start(r.Context(), "GetSavedPOIs", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/user/history/saved-pois"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetSavedPOIs"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID))

	city := r.URL.Query().Get("city")
	if NormalizeCity(city) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "city is required")
		return
	}

	saved, err := h.poiService.GetSavedPOIs(ctx, userID, city)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch saved POIs", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch saved POIs")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, saved)
}

// GetSavedPOIDetails godoc
// @Summary      Details of the user's saved points in a city
// @Tags         User History
// @Produce      json
// @Param        city query string true "City"
// @Success      200 {array} types.POI
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /user/history/saved-pois/details [get]
func (h *POIHandler) GetSavedPOIDetails(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("POIHandler").Start(r.Context(), "GetSavedPOIDetails", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/user/history/saved-pois/details"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetSavedPOIDetails"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID))

	city := r.URL.Query().Get("city")
	if NormalizeCity(city) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "city is required")
		return
	}

	pois, err := h.poiService.GetSavedPOIDetails(ctx, userID, city)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch saved POI details", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch saved POI details")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, pois)
}

// SavePOI godoc
// @Summary      Save a point of interest to the user's history
// @Tags         User History
// @Accept       json
// @Produce      json
// @Param        request body types.SavePOIRequest true "Point"
// @Success      201 {object} map[string]string
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /user/history/saved-pois [post]
func (h *POIHandler) SavePOI(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("POIHandler").Start(r.Context(), "SavePOI", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/user/history/saved-pois"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "SavePOI"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID))

	var req types.SavePOIRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.poiService.SavePOI(ctx, userID, req)
	if err != nil {
		if status, ok := clientError(err); ok {
			api.ErrorResponse(w, r, status, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to save POI", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to save POI")
		return
	}

	l.InfoContext(ctx, "POI saved", slog.String("id", id))
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]string{"id": id})
}

// UnsavePOIs godoc
// @Summary      Remove points of interest from the user's history
// @Tags         User History
// @Accept       json
// @Produce      json
// @Param        request body types.PointIDsRequest true "Point ids"
// @Success      200 {object} map[string]int64
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /user/history/saved-pois/unsave [put]
func (h *POIHandler) UnsavePOIs(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("POIHandler").Start(r.Context(), "UnsavePOIs", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/user/history/saved-pois/unsave"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "UnsavePOIs"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID))

	var req types.PointIDsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.poiService.UnsavePOIs(ctx, userID, req.PointIDs)
	if err != nil {
		if status, ok := clientError(err); ok {
			api.ErrorResponse(w, r, status, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to unsave POIs", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to unsave POIs")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]int64{"updated": n})
}

func clientError(err error) (int, bool) {
	switch {
	case errors.Is(err, ErrNoPointIDs), errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidPOI), errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest, true
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, true
	}
	return 0, false
}
