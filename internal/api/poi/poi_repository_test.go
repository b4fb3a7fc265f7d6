package poi

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func newMockRepo(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock, slog.Default()), mock
}

var poiRowColumns = []string{
	"id", "place_id", "name", "latitude", "longitude", "address", "city", "country", "poi_type",
	"categories", "cuisine", "description", "wikidata_id", "image_url", "website", "phone", "email", "opening_hours",
	"rating", "user_ratings_total", "price_level", "created_at", "updated_at",
}

func addPOIRow(rows *pgxmock.Rows, id uuid.UUID, placeID, name string) *pgxmock.Rows {
	rating := 4.5
	total := 120
	price := 2
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(id, placeID, name, 48.8606, 2.3376, "Rue de Rivoli", "paris", "France", "attraction",
		[]string{"tourism.sights.museum"}, []string{}, "", "Q19675", "", "", "", "", "",
		&rating, &total, &price, now, now)
}

func TestRepository_FindByPlace(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("SELECT id FROM points_of_interest")

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()
		mock.ExpectQuery(query).
			WithArgs("geo-1", "paris", "France").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

		got, err := repo.FindByPlace(ctx, "geo-1", "paris", "France")
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows is ErrNotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(query).
			WithArgs("geo-1", "paris", "France").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByPlace(ctx, "geo-1", "paris", "France")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery(query).
			WithArgs("geo-1", "paris", "France").
			WillReturnError(boom)

		_, err := repo.FindByPlace(ctx, "geo-1", "paris", "France")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRepository_FindByCoordinates_UsesTolerance(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	c := types.Coordinates{Lat: 41.1579, Lng: -8.6291}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE latitude BETWEEN $1 AND $2")).
		WithArgs(c.Lat-CoordinateTolerance, c.Lat+CoordinateTolerance, c.Lng-CoordinateTolerance, c.Lng+CoordinateTolerance, c.Lat, c.Lng).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	got, err := repo.FindByCoordinates(context.Background(), c, CoordinateTolerance)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Insert(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO points_of_interest")).
		WithArgs(pgxmock.AnyArg(), "Livraria Lello", 41.1469, -8.6148, "", "porto", "Portugal", "attraction",
			[]string{}, []string{}, "", "", "", "", "", "", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	got, err := repo.Insert(context.Background(), types.POI{
		PlaceID:     "geo-lello",
		Name:        "Livraria Lello",
		Coordinates: types.Coordinates{Lat: 41.1469, Lng: -8.6148},
		City:        "porto",
		Country:     "Portugal",
		Type:        types.POITypeAttraction,
	})
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	a, b := uuid.New(), uuid.New()

	rows := pgxmock.NewRows(poiRowColumns)
	addPOIRow(rows, a, "geo-louvre", "Louvre")
	addPOIRow(rows, b, "", "Sainte-Chapelle")
	mock.ExpectQuery(regexp.QuoteMeta("FROM points_of_interest WHERE id = ANY($1)")).
		WithArgs([]uuid.UUID{a, b}).
		WillReturnRows(rows)

	pois, err := repo.GetByIDs(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	require.Len(t, pois, 2)
	assert.Equal(t, a.String(), pois[0].ID)
	assert.Equal(t, "geo-louvre", pois[0].PlaceID)
	assert.Equal(t, types.POITypeAttraction, pois[0].Type)
	require.NotNil(t, pois[0].Rating)
	assert.InDelta(t, 4.5, *pois[0].Rating, 0.001)
	assert.Equal(t, "Sainte-Chapelle", pois[1].Name)
	assert.Equal(t, b.String(), pois[1].Key(), "without a place id the key falls back to the backend id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SavedPOIs(t *testing.T) {
	ctx := context.Background()

	t.Run("list active", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id, point := uuid.New(), uuid.New()
		created := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta("FROM saved_pois")).
			WithArgs("user-1", "paris").
			WillReturnRows(pgxmock.NewRows([]string{"id", "point_id", "status", "created_dt", "city"}).
				AddRow(id, point, true, created, "paris"))

		saved, err := repo.GetSavedPOIs(ctx, "user-1", "paris")
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.Equal(t, point.String(), saved[0].PointID)
		assert.True(t, saved[0].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("save upserts and returns the id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id, point := uuid.New(), uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, point_id)")).
			WithArgs("user-1", point, "paris").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

		got, err := repo.SavePOI(ctx, "user-1", point, "paris")
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsave reports affected rows", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		mock.ExpectExec(regexp.QuoteMeta("UPDATE saved_pois SET status = FALSE")).
			WithArgs("user-1", ids).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		n, err := repo.UnsavePOIs(ctx, "user-1", ids)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
