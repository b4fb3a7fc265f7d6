package trip

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type TripHandler struct {
	tripService TripService
	logger      *slog.Logger
}

func NewTripHandler(tripService TripService, logger *slog.Logger) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		logger:      logger,
	}
}

// VersionResponse is returned after a trip update.
type VersionResponse struct {
	TripID  string `json:"tripId"`
	Version int    `json:"version"`
}

func (h *TripHandler) start(w http.ResponseWriter, r *http.Request, op, route string) (*http.Request, trace.Span, *slog.Logger, string, bool) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), op, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	l := h.logger.With(slog.String("handler", op))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		l.WarnContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return r, span, l, "", false
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID))
	return r.WithContext(ctx), span, l.With(slog.String("userID", userID)), userID, true
}

// CreateTrip godoc
// @Summary      Create a trip
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        request body types.SaveTripRequest true "Trip"
// @Success      201 {object} map[string]string
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /trips [post]
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	r, span, l, userID, ok := h.start(w, r, "CreateTrip", "/api/v1/trips")
	defer span.End()
	if !ok {
		return
	}

	var req types.SaveTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.tripService.CreateTrip(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, l, "Failed to create trip", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]string{"tripId": id})
}

// GetTrip godoc
// @Summary      Trip details
// @Tags         Trips
// @Produce      json
// @Param        tripID path string true "Trip id"
// @Success      200 {object} types.TripDetails
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /trips/{tripID} [get]
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	r, span, l, userID, ok := h.start(w, r, "GetTrip", "/api/v1/trips/{tripID}")
	defer span.End()
	if !ok {
		return
	}

	details, err := h.tripService.GetTrip(r.Context(), userID, chi.URLParam(r, "tripID"))
	if err != nil {
		h.fail(w, r, l, "Failed to load trip", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, details)
}

// UpdateTrip godoc
// @Summary      Apply an itinerary changeset to a trip
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        tripID  path string                  true "Trip id"
// @Param        request body types.TripUpdateRequest true "Changeset"
// @Success      200 {object} VersionResponse
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /trips/{tripID} [put]
func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	r, span, l, userID, ok := h.start(w, r, "UpdateTrip", "/api/v1/trips/{tripID}")
	defer span.End()
	if !ok {
		return
	}

	var req types.TripUpdateRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tripID := chi.URLParam(r, "tripID")
	version, err := h.tripService.UpdateTrip(r.Context(), userID, tripID, req)
	if err != nil {
		h.fail(w, r, l, "Failed to update trip", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, VersionResponse{TripID: tripID, Version: version})
}

// ListUserTrips godoc
// @Summary      Trips saved by the user
// @Tags         Trips
// @Produce      json
// @Success      200 {array} types.UserTrip
// @Security     BearerAuth
// @Router       /trips [get]
func (h *TripHandler) ListUserTrips(w http.ResponseWriter, r *http.Request) {
	r, span, l, userID, ok := h.start(w, r, "ListUserTrips", "/api/v1/trips")
	defer span.End()
	if !ok {
		return
	}

	trips, err := h.tripService.ListUserTrips(r.Context(), userID)
	if err != nil {
		h.fail(w, r, l, "Failed to list trips", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, trips)
}

// TripExists godoc
// @Summary      Whether the trip is in the user's saved trips
// @Tags         Trips
// @Produce      json
// @Param        tripID path string true "Trip id"
// @Success      200 {object} map[string]bool
// @Security     BearerAuth
// @Router       /trips/{tripID}/exists [get]
func (h *TripHandler) TripExists(w http.ResponseWriter, r *http.Request) {
	r, span, l, userID, ok := h.start(w, r, "TripExists", "/api/v1/trips/{tripID}/exists")
	defer span.End()
	if !ok {
		return
	}

	exists, err := h.tripService.TripExists(r.Context(), userID, chi.URLParam(r, "tripID"))
	if err != nil {
		h.fail(w, r, l, "Failed to check trip", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"exists": exists})
}

// DeleteTrip godoc
// @Summary      Remove a trip from the user's saved trips
// @Tags         Trips
// @Param        tripID path string true "Trip id"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /trips/{tripID} [delete]
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	r, span, l, userID, ok := h.start(w, r, "DeleteTrip", "/api/v1/trips/{tripID}")
	defer span.End()
	if !ok {
		return
	}

	if err := h.tripService.DeleteTrip(r.Context(), userID, chi.URLParam(r, "tripID")); err != nil {
		h.fail(w, r, l, "Failed to delete trip", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *TripHandler) fail(w http.ResponseWriter, r *http.Request, l *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Trip not found")
	case errors.Is(err, ErrInvalidTripID), errors.Is(err, ErrInvalidTrip),
		errors.Is(err, ErrEmptyUpdate), errors.Is(err, itinerary.ErrInvalidSchedule):
		l.WarnContext(r.Context(), msg, slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		l.ErrorContext(r.Context(), msg, slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, msg)
	}
}
