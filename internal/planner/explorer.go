package planner

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/FACorreiaa/go-trip-planner/internal/cache"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// ErrSuperseded is returned to a fetch whose result was discarded because a
// newer fetch started after it.
var ErrSuperseded = errors.New("superseded by a newer request")

// PlacesAPI is the part of the API client the explorer needs.
type PlacesAPI interface {
	ExplorePlaces(ctx context.Context, q types.ExploreQuery) ([]types.POI, error)
	GetSavedPOIDetails(ctx context.Context, city string) ([]types.POI, error)
}

const savedTab = "saved"

// Explorer loads POI lists for the tabs of a city: the user's saved POIs and
// one list per explore category. Lists come from the POI cache when valid.
type Explorer struct {
	api    PlacesAPI
	cache  *cache.POICache
	logger *slog.Logger
	guard  LatestOnly

	mu      sync.Mutex
	city    string
	results map[string][]types.POI
}

func NewExplorer(api PlacesAPI, poiCache *cache.POICache, logger *slog.Logger) *Explorer {
	return &Explorer{
		api:     api,
		cache:   poiCache,
		logger:  logger,
		results: make(map[string][]types.POI),
	}
}

// SetCity switches the explorer to city. Cached lists of the previous city
// are dropped.
func (e *Explorer) SetCity(ctx context.Context, city string) {
	city = strings.ToLower(strings.TrimSpace(city))
	e.mu.Lock()
	prev := e.city
	if prev == city {
		e.mu.Unlock()
		return
	}
	e.city = city
	e.results = make(map[string][]types.POI)
	e.mu.Unlock()

	e.guard.Begin()
	if prev != "" {
		e.cache.ClearCity(ctx, prev)
	}
}

func (e *Explorer) City() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.city
}

// Results returns the last published list of a tab. Use "saved" for the
// saved POIs tab.
func (e *Explorer) Results(tab string) []types.POI {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results[tab]
}

// Explore loads a category around center. When another Explore or Saved call
// starts before this one finishes, its result is not published and
// ErrSuperseded is returned.
func (e *Explorer) Explore(ctx context.Context, category string, center types.Coordinates) ([]types.POI, error) {
	if category == "" {
		category = types.DefaultExploreCategory
	}
	city := e.City()
	q := types.ExploreQuery{City: city, Center: center, Category: category}
	return e.load(ctx, category, cache.AreaKey(category, city, center, q.Radius), city, func(ctx context.Context) ([]types.POI, error) {
		return e.api.ExplorePlaces(ctx, q)
	})
}

// Saved loads the user's saved POIs for the current city.
func (e *Explorer) Saved(ctx context.Context) ([]types.POI, error) {
	city := e.City()
	return e.load(ctx, savedTab, cache.SavedKey(city), city, func(ctx context.Context) ([]types.POI, error) {
		return e.api.GetSavedPOIDetails(ctx, city)
	})
}

// InvalidateSaved drops the cached saved list, e.g. after saving a POI.
func (e *Explorer) InvalidateSaved(ctx context.Context) {
	e.cache.Delete(ctx, cache.SavedKey(e.City()))
}

func (e *Explorer) load(ctx context.Context, tab, key, city string, fetch func(context.Context) ([]types.POI, error)) ([]types.POI, error) {
	ticket := e.guard.Begin()

	pois, ok := e.cache.GetValid(ctx, key, city)
	if !ok {
		var err error
		pois, err = fetch(ctx)
		if err != nil {
			if !ticket.Current() {
				return nil, ErrSuperseded
			}
			return nil, err
		}
		if e.City() == city {
			e.cache.Set(ctx, key, pois, city)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !ticket.Current() || e.city != city {
		e.logger.DebugContext(ctx, "Discarded stale result", slog.String("tab", tab), slog.String("city", city))
		return nil, ErrSuperseded
	}
	e.results[tab] = pois
	return pois, nil
}
