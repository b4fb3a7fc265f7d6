package cache

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupPOICache(t *testing.T) (*POICache, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	clock := &fakeClock{t: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
	return NewPOICache(store, testLogger(), WithClock(clock.Now)), store, clock
}

func hotels() []types.POI {
	return []types.POI{
		{ID: "h1", Name: "Hotel Lutetia", City: "paris", Type: types.POITypeHotel},
		{ID: "h2", Name: "Le Meurice", City: "paris", Type: types.POITypeHotel},
	}
}

func TestTTLCache_GetValid(t *testing.T) {
	ctx := context.Background()

	t.Run("hit within ttl", func(t *testing.T) {
		c, _, clock := setupPOICache(t)
		c.Set(ctx, ExploreKey("hotel", "paris"), hotels(), "paris")
		clock.Advance(9 * time.Minute)

		got, ok := c.GetValid(ctx, ExploreKey("hotel", "paris"), "paris")
		require.True(t, ok)
		assert.Equal(t, hotels(), got)
	})

	t.Run("expired entry is evicted", func(t *testing.T) {
		c, store, clock := setupPOICache(t)
		c.Set(ctx, "explore_hotel_paris", hotels(), "paris")
		clock.Advance(11 * time.Minute)

		_, ok := c.GetValid(ctx, "explore_hotel_paris", "paris")
		assert.False(t, ok)

		raw, err := store.Get(ctx, "poi_cache_explore_hotel_paris")
		require.NoError(t, err)
		assert.Nil(t, raw, "entry should be removed from storage")
	})

	t.Run("city mismatch is evicted", func(t *testing.T) {
		c, store, _ := setupPOICache(t)
		c.Set(ctx, SavedKey("paris"), hotels(), "paris")

		_, ok := c.GetValid(ctx, SavedKey("paris"), "lyon")
		assert.False(t, ok)

		raw, _ := store.Get(ctx, "poi_cache_saved_paris")
		assert.Nil(t, raw)
	})

	t.Run("absent key", func(t *testing.T) {
		c, _, _ := setupPOICache(t)
		_, ok := c.GetValid(ctx, "nothing", "paris")
		assert.False(t, ok)
	})

	t.Run("corrupt entry is a miss", func(t *testing.T) {
		c, store, _ := setupPOICache(t)
		require.NoError(t, store.Set(ctx, "poi_cache_saved_rome", []byte("{not json"), 0))

		_, ok := c.GetValid(ctx, SavedKey("rome"), "rome")
		assert.False(t, ok)
		raw, _ := store.Get(ctx, "poi_cache_saved_rome")
		assert.Nil(t, raw)
	})

	t.Run("set overwrites and refreshes", func(t *testing.T) {
		c, _, clock := setupPOICache(t)
		c.Set(ctx, SavedKey("paris"), hotels()[:1], "paris")
		clock.Advance(8 * time.Minute)
		c.Set(ctx, SavedKey("paris"), hotels(), "paris")
		clock.Advance(8 * time.Minute)

		got, ok := c.GetValid(ctx, SavedKey("paris"), "paris")
		require.True(t, ok)
		assert.Len(t, got, 2)
	})
}

func TestTTLCache_ClearCity(t *testing.T) {
	ctx := context.Background()
	c, _, _ := setupPOICache(t)

	c.Set(ctx, SavedKey("paris"), hotels(), "paris")
	c.Set(ctx, ExploreKey("catering", "paris"), hotels(), "paris")
	c.Set(ctx, ExploreKey("catering", "lisbon"), hotels(), "lisbon")
	area := AreaKey("catering", "paris", types.Coordinates{Lat: 48.8566, Lng: 2.3522}, 5000)
	c.Set(ctx, area, hotels(), "paris")

	c.ClearCity(ctx, "paris")

	_, ok := c.GetValid(ctx, area, "paris")
	assert.False(t, ok)
	_, ok = c.GetValid(ctx, SavedKey("paris"), "paris")
	assert.False(t, ok)
	_, ok = c.GetValid(ctx, ExploreKey("catering", "paris"), "paris")
	assert.False(t, ok)
	_, ok = c.GetValid(ctx, ExploreKey("catering", "lisbon"), "lisbon")
	assert.True(t, ok)
}

func TestTTLCache_ClearCityIgnoresPrefix(t *testing.T) {
	ctx := context.Background()
	c, _, _ := setupPOICache(t)

	c.Set(ctx, SavedKey("porto"), hotels(), "porto")
	c.Set(ctx, ExploreKey("catering", "lisbon"), hotels(), "lisbon")

	// "poi" and "cache" only occur in the storage prefix.
	c.ClearCity(ctx, "poi")
	c.ClearCity(ctx, "cache")

	_, ok := c.GetValid(ctx, SavedKey("porto"), "porto")
	assert.True(t, ok)
	_, ok = c.GetValid(ctx, ExploreKey("catering", "lisbon"), "lisbon")
	assert.True(t, ok)

	c.ClearCity(ctx, "lisbon")
	_, ok = c.GetValid(ctx, ExploreKey("catering", "lisbon"), "lisbon")
	assert.False(t, ok)
}

func TestTTLCache_OtherPrefixesUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	pois := NewPOICache(store, testLogger())
	trips := NewTTLCache[string](store, "trip_data", 30*time.Minute, testLogger())

	pois.Set(ctx, SavedKey("porto"), hotels(), "porto")
	trips.Set(ctx, "porto", "draft", "porto")

	pois.ClearCity(ctx, "porto")

	got, ok := trips.GetValid(ctx, "porto", "porto")
	require.True(t, ok)
	assert.Equal(t, "draft", got)

	trips.Clear(ctx)
	_, ok = trips.GetValid(ctx, "porto", "porto")
	assert.False(t, ok)
}

type brokenStore struct{}

var errBroken = errors.New("quota exceeded")

func (brokenStore) Get(context.Context, string) ([]byte, error)              { return nil, errBroken }
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error { return errBroken }
func (brokenStore) Delete(context.Context, ...string) error                  { return errBroken }
func (brokenStore) Keys(context.Context, string) ([]string, error)           { return nil, errBroken }

func TestTTLCache_StoreErrorsAreMisses(t *testing.T) {
	ctx := context.Background()
	c := NewPOICache(brokenStore{}, testLogger())

	assert.NotPanics(t, func() {
		c.Set(ctx, SavedKey("paris"), hotels(), "paris")
		c.ClearCity(ctx, "paris")
		c.Delete(ctx, SavedKey("paris"))
	})
	_, ok := c.GetValid(ctx, SavedKey("paris"), "paris")
	assert.False(t, ok)
}

// Property: GetValid returns data iff Set ran within the TTL for the same city.
func TestTTLCache_TTLProperty(t *testing.T) {
	ctx := context.Background()
	steps := []time.Duration{0, time.Minute, 5 * time.Minute, 10 * time.Minute, 10*time.Minute + time.Millisecond, time.Hour}
	for _, age := range steps {
		for _, city := range []string{"paris", "lyon"} {
			c, _, clock := setupPOICache(t)
			c.Set(ctx, "k", hotels(), "paris")
			clock.Advance(age)

			_, ok := c.GetValid(ctx, "k", city)
			want := age <= POICacheTTL && city == "paris"
			assert.Equal(t, want, ok, "age=%s city=%s", age, city)
		}
	}
}
