package explore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const placesPath = "/v2/places"

// PlaceSource returns places around a point.
type PlaceSource interface {
	Places(ctx context.Context, q types.ExploreQuery) ([]types.POI, error)
}

var _ PlaceSource = (*GeoapifyClient)(nil)

// GeoapifyClient calls the Geoapify Places API. Outbound requests share one
// token bucket.
type GeoapifyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.AppMetrics
}

func NewGeoapifyClient(cfg config.GeoapifyConfig, logger *slog.Logger) *GeoapifyClient {
	rps := rate.Limit(cfg.RequestsPerSec)
	if cfg.RequestsPerSec <= 0 {
		rps = rate.Inf
	}
	burst := max(cfg.Burst, 1)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GeoapifyClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rps, burst),
		logger:     logger,
		metrics:    metrics.Get(),
	}
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			PlaceID    string   `json:"place_id"`
			Name       string   `json:"name"`
			Formatted  string   `json:"formatted"`
			City       string   `json:"city"`
			Country    string   `json:"country"`
			Website    string   `json:"website"`
			Categories []string `json:"categories"`
			Contact    struct {
				Phone string `json:"phone"`
			} `json:"contact"`
			WikiAndMedia struct {
				Wikidata string `json:"wikidata"`
			} `json:"wiki_and_media"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Places fetches places and de-duplicates them by case-insensitive name.
func (c *GeoapifyClient) Places(ctx context.Context, q types.ExploreQuery) ([]types.POI, error) {
	ctx, span := otel.Tracer("GeoapifyClient").Start(ctx, "Places", trace.WithAttributes(
		attribute.String("explore.category", q.Category),
		attribute.String("explore.city", q.City),
		attribute.Int("explore.radius", q.Radius),
	))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geoapify rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("categories", q.Category)
	params.Set("filter", fmt.Sprintf("circle:%s,%s,%d",
		strconv.FormatFloat(q.Center.Lng, 'f', -1, 64),
		strconv.FormatFloat(q.Center.Lat, 'f', -1, 64),
		q.Radius))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+placesPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geoapify request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordExternalCall(ctx, "geoapify", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("geoapify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err = fmt.Errorf("geoapify returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		c.metrics.RecordExternalCall(ctx, "geoapify", start, err)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, err
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		c.metrics.RecordExternalCall(ctx, "geoapify", start, err)
		return nil, fmt.Errorf("failed to decode geoapify response: %w", err)
	}
	c.metrics.RecordExternalCall(ctx, "geoapify", start, nil)

	poiType := types.POITypeForCategory(q.Category)
	seen := make(map[string]struct{}, len(fc.Features))
	places := make([]types.POI, 0, len(fc.Features))
	for _, f := range fc.Features {
		p := f.Properties
		name := strings.ToLower(p.Name)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if len(f.Geometry.Coordinates) < 2 {
			c.logger.DebugContext(ctx, "Skipping place without coordinates", slog.String("place_id", p.PlaceID))
			continue
		}

		city := p.City
		if city == "" {
			city = q.City
		}
		places = append(places, types.POI{
			ID:          p.PlaceID,
			PlaceID:     p.PlaceID,
			Name:        p.Name,
			Coordinates: types.Coordinates{Lat: f.Geometry.Coordinates[1], Lng: f.Geometry.Coordinates[0]},
			Address:     p.Formatted,
			City:        city,
			Country:     p.Country,
			Type:        poiType,
			Categories:  p.Categories,
			WikidataID:  p.WikiAndMedia.Wikidata,
			Website:     p.Website,
			Phone:       p.Contact.Phone,
		})
	}

	if len(places) > q.Limit {
		places = places[:q.Limit]
	}
	span.SetAttributes(attribute.Int("explore.results", len(places)))
	return places, nil
}
