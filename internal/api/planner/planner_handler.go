package planner

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/categories"
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// SlotRequest asks for the earliest free slot on Day among Items.
type SlotRequest struct {
	Day   int                      `json:"day"`
	Items []itinerary.ItineraryPOI `json:"items"`
}

// DiffRequest carries the two snapshots to compare.
type DiffRequest struct {
	Local  itinerary.Snapshot `json:"local"`
	Remote itinerary.Snapshot `json:"remote"`
}

// PlannerHandler serves the stateless itinerary helpers.
type PlannerHandler struct {
	mapper  *categories.Mapper
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewPlannerHandler(mapper *categories.Mapper, logger *slog.Logger) *PlannerHandler {
	return &PlannerHandler{
		mapper:  mapper,
		logger:  logger,
		metrics: metrics.Get(),
	}
}

func (h *PlannerHandler) span(r *http.Request, op, route string) (*http.Request, trace.Span) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), op, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	return r.WithContext(ctx), span
}

// FindSlot godoc
// @Summary      Earliest free slot on a day
// @Description  Returns the first 30 minute gap between 08:00 and 23:00 not covered by the day's scheduled items.
// @Tags         Planner
// @Accept       json
// @Produce      json
// @Param        request body SlotRequest true "Day and current items"
// @Success      200 {object} itinerary.Slot
// @Failure      400 {object} types.Response
// @Failure      409 {object} types.Response
// @Router       /planner/slot [post]
func (h *PlannerHandler) FindSlot(w http.ResponseWriter, r *http.Request) {
	r, span := h.span(r, "FindSlot", "/api/v1/planner/slot")
	defer span.End()

	var req SlotRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Day < 1 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "day must be at least 1")
		return
	}

	slot, err := itinerary.FindFreeSlot(req.Day, req.Items)
	h.metrics.RecordSlotLookup(r.Context(), err == nil)
	if err != nil {
		if errors.Is(err, itinerary.ErrNoFreeSlot) {
			api.ErrorResponse(w, r, http.StatusConflict, "no free slot")
			return
		}
		h.logger.ErrorContext(r.Context(), "Slot lookup failed", slog.String("handler", "FindSlot"), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Slot lookup failed")
		return
	}
	span.SetAttributes(attribute.Int("slot.start", slot.StartTime))
	api.WriteJSONResponse(w, r, http.StatusOK, slot)
}

// Diff godoc
// @Summary      Changeset between two itinerary snapshots
// @Tags         Planner
// @Accept       json
// @Produce      json
// @Param        request body DiffRequest true "Local and remote snapshots"
// @Success      200 {object} types.Changeset
// @Failure      400 {object} types.Response
// @Router       /planner/diff [post]
func (h *PlannerHandler) Diff(w http.ResponseWriter, r *http.Request) {
	r, span := h.span(r, "Diff", "/api/v1/planner/diff")
	defer span.End()

	var req DiffRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	cs := itinerary.Diff(req.Local, req.Remote)
	span.SetAttributes(attribute.Bool("changeset.empty", cs.IsEmpty()))
	api.WriteJSONResponse(w, r, http.StatusOK, cs)
}

// CategoryMappings godoc
// @Summary      Map trip preferences to place categories
// @Tags         Planner
// @Accept       json
// @Produce      json
// @Param        request body types.TripData true "Trip data"
// @Success      200 {object} categories.Mappings
// @Failure      400 {object} types.Response
// @Router       /planner/categories [post]
func (h *PlannerHandler) CategoryMappings(w http.ResponseWriter, r *http.Request) {
	r, span := h.span(r, "CategoryMappings", "/api/v1/planner/categories")
	defer span.End()

	var trip types.TripData
	if err := api.DecodeJSONBody(w, r, &trip); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, h.mapper.GetCategoryMappings(trip))
}
