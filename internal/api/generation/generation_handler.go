package generation

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

type GenerationHandler struct {
	generationService GenerationService
	logger            *slog.Logger
}

func NewGenerationHandler(generationService GenerationService, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		logger:            logger,
	}
}

// GenerateTrip godoc
// @Summary      Generate an itinerary
// @Description  Generates a day-by-day itinerary over the selected POIs. An unusable generated document returns every POI as unused with the reason in "malformed".
// @Tags         Trips
// @Accept       json
// @Produce      json
// @Param        request body types.GenerateTripRequest true "Trip data and selected POIs"
// @Success      200 {object} GeneratedTrip
// @Failure      400 {object} types.Response
// @Failure      502 {object} types.Response
// @Security     BearerAuth
// @Router       /trips/generate [post]
func (h *GenerationHandler) GenerateTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GenerationHandler").Start(r.Context(), "GenerateTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/trips/generate"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GenerateTrip"))

	if userID, ok := auth.GetUserIDFromContext(ctx); ok {
		span.SetAttributes(semconv.EnduserIDKey.String(userID))
	}

	var req types.GenerateTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	generated, err := h.generationService.GenerateTrip(ctx, req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to generate trip", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to generate trip")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, generated)
}
