package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/categories"
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var ErrInvalidRequest = errors.New("invalid generation request")

// GeneratedTrip is a generated itinerary. Itinerary is the compacted JSON
// document; the snapshot lists are its parsed form. When the document could
// not be used, Malformed carries the reason and every selected POI is unused.
type GeneratedTrip struct {
	Itinerary string `json:"itinerary"`
	itinerary.Snapshot
	Demoted   []string            `json:"demoted,omitempty"`
	Malformed string              `json:"malformed,omitempty"`
	Unmapped  categories.Unmapped `json:"unmapped"`
}

var _ GenerationService = (*ServiceImpl)(nil)

type GenerationService interface {
	GenerateTrip(ctx context.Context, req types.GenerateTripRequest) (*GeneratedTrip, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	generator Generator
	mapper    *categories.Mapper
}

func NewServiceImpl(generator Generator, mapper *categories.Mapper, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		generator: generator,
		mapper:    mapper,
	}
}

// GenerateTrip asks the generator for an itinerary and validates it against
// the selected POIs. Only generator failures are errors; an unusable
// document still yields a result with every POI unused.
func (s *ServiceImpl) GenerateTrip(ctx context.Context, req types.GenerateTripRequest) (*GeneratedTrip, error) {
	ctx, span := otel.Tracer("GenerationService").Start(ctx, "GenerateTrip", trace.WithAttributes(
		attribute.String("trip.city", req.TripData.City),
		attribute.Int("trip.attractions", len(req.AttractionPOIs)),
		attribute.Int("trip.food", len(req.FoodPOIs)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "GenerateTrip"), slog.String("city", req.TripData.City))

	req.TripData.City = strings.TrimSpace(req.TripData.City)
	if req.TripData.City == "" {
		return nil, fmt.Errorf("%w: city is required", ErrInvalidRequest)
	}
	if req.TripData.FromDT != nil && req.TripData.ToDT != nil && req.TripData.ToDT.Before(*req.TripData.FromDT) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidRequest)
	}
	req.TripData.Normalize()
	days := max(req.TripData.MonthlyDays, 1)

	mappings := s.mapper.GetCategoryMappings(req.TripData)
	prompt := buildPrompt(req, days, mappings)

	text, err := s.generator.Generate(ctx, systemInstruction, prompt)
	if err != nil {
		l.ErrorContext(ctx, "Generator failed", slog.Any("error", err))
		return nil, err
	}

	out := &GeneratedTrip{Unmapped: mappings.Unmapped}
	raw, err := ExtractJSON(text)
	if err != nil {
		l.WarnContext(ctx, "Generated text holds no itinerary", slog.Any("error", err))
	}
	out.Itinerary = raw

	result := itinerary.Parser{Days: days}.Parse(raw, req.FoodPOIs, req.AttractionPOIs)
	out.ItineraryPOIs, out.UnusedPOIs = itinerary.Lists(result)
	switch v := result.(type) {
	case itinerary.ValidItinerary:
		out.Demoted = v.Demoted
	case itinerary.MalformedItinerary:
		out.Malformed = v.Err.Error()
		l.WarnContext(ctx, "Generated itinerary rejected", slog.Any("error", v.Err))
	}
	if out.ItineraryPOIs == nil {
		out.ItineraryPOIs = []itinerary.ItineraryPOI{}
	}

	span.SetAttributes(
		attribute.Int("itinerary.placed", len(out.ItineraryPOIs)),
		attribute.Int("itinerary.unused", len(out.UnusedPOIs)),
	)
	l.InfoContext(ctx, "Itinerary generated",
		slog.Int("placed", len(out.ItineraryPOIs)),
		slog.Int("unused", len(out.UnusedPOIs)),
		slog.Int("demoted", len(out.Demoted)))
	return out, nil
}
