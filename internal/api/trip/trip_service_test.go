package trip

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type MockTripRepository struct {
	mock.Mock
}

func (m *MockTripRepository) CreateTrip(ctx context.Context, userID string, req types.SaveTripRequest) (uuid.UUID, error) {
	args := m.Called(ctx, userID, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTripRepository) GetTrip(ctx context.Context, userID string, tripID uuid.UUID) (*types.TripDetails, error) {
	args := m.Called(ctx, userID, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TripDetails), args.Error(1)
}

func (m *MockTripRepository) ApplyUpdate(ctx context.Context, userID string, tripID uuid.UUID, req types.TripUpdateRequest) (int, error) {
	args := m.Called(ctx, userID, tripID, req)
	return args.Int(0), args.Error(1)
}

func (m *MockTripRepository) ListUserTrips(ctx context.Context, userID string) ([]types.UserTrip, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.UserTrip), args.Error(1)
}

func (m *MockTripRepository) TripExists(ctx context.Context, userID string, tripID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, tripID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTripRepository) DeleteUserTrip(ctx context.Context, userID string, tripID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, tripID)
	return args.Bool(0), args.Error(1)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCreateTrip(t *testing.T) {
	ctx := context.Background()
	p1, p2 := uuid.NewString(), uuid.NewString()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockTripRepository)
		s := NewServiceImpl(repo, slog.Default())
		id := uuid.New()

		repo.On("CreateTrip", mock.Anything, "user-1", mock.MatchedBy(func(r types.SaveTripRequest) bool {
			return r.TripData.City == "porto" &&
				r.TripData.MonthlyDays == 3 &&
				r.TripData.UserID == "user-1" &&
				assert.ObjectsAreEqual([]string{"food", "museums"}, r.TripData.Interests) &&
				r.ItineraryPOIs[0].Duration == 60
		})).Return(id, nil).Once()

		got, err := s.CreateTrip(ctx, "user-1", types.SaveTripRequest{
			TripData: types.TripData{
				City:      " Porto ",
				FromDT:    date(2025, 6, 1),
				ToDT:      date(2025, 6, 3),
				Interests: []string{"museums", "food", "museums", " "},
			},
			ItineraryPOIs: []types.ItineraryPOIUpdate{{PointID: p1, Day: 3, StartTime: 600, EndTime: 660}},
			UnusedPOIs:    []types.UnusedPOIUpdate{{PointID: p2}},
		})
		require.NoError(t, err)
		assert.Equal(t, id.String(), got)
		repo.AssertExpectations(t)
	})

	tests := []struct {
		name string
		req  types.SaveTripRequest
		want error
	}{
		{
			name: "MissingCity",
			req:  types.SaveTripRequest{},
			want: ErrInvalidTrip,
		},
		{
			name: "EndBeforeStart",
			req:  types.SaveTripRequest{TripData: types.TripData{City: "porto", FromDT: date(2025, 6, 3), ToDT: date(2025, 6, 1)}},
			want: ErrInvalidTrip,
		},
		{
			name: "DayOutsideTrip",
			req: types.SaveTripRequest{
				TripData:      types.TripData{City: "porto", MonthlyDays: 1},
				ItineraryPOIs: []types.ItineraryPOIUpdate{{PointID: p1, Day: 2, StartTime: 600, EndTime: 660}},
			},
			want: itinerary.ErrInvalidSchedule,
		},
		{
			name: "OutsideWindow",
			req: types.SaveTripRequest{
				TripData:      types.TripData{City: "porto", MonthlyDays: 1},
				ItineraryPOIs: []types.ItineraryPOIUpdate{{PointID: p1, Day: 1, StartTime: 420, EndTime: 500}},
			},
			want: itinerary.ErrInvalidSchedule,
		},
		{
			name: "PlacedAndUnused",
			req: types.SaveTripRequest{
				TripData:      types.TripData{City: "porto", MonthlyDays: 1},
				ItineraryPOIs: []types.ItineraryPOIUpdate{{PointID: p1, Day: 1, StartTime: 600, EndTime: 660}},
				UnusedPOIs:    []types.UnusedPOIUpdate{{PointID: p1}},
			},
			want: ErrInvalidTrip,
		},
		{
			name: "BadPointID",
			req: types.SaveTripRequest{
				TripData:   types.TripData{City: "porto"},
				UnusedPOIs: []types.UnusedPOIUpdate{{PointID: "nope"}},
			},
			want: ErrInvalidTrip,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockTripRepository)
			_, err := NewServiceImpl(repo, slog.Default()).CreateTrip(ctx, "user-1", tt.req)
			assert.ErrorIs(t, err, tt.want)
			repo.AssertNotCalled(t, "CreateTrip", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateTrip(t *testing.T) {
	ctx := context.Background()
	tripID := uuid.New()
	point := uuid.NewString()

	t.Run("Applied", func(t *testing.T) {
		repo := new(MockTripRepository)
		req := types.TripUpdateRequest{Changeset: types.Changeset{
			MovedToUnused: []types.UnusedPOIUpdate{{PointID: point}},
		}}
		repo.On("ApplyUpdate", mock.Anything, "user-1", tripID, req).Return(7, nil).Once()

		v, err := NewServiceImpl(repo, slog.Default()).UpdateTrip(ctx, "user-1", tripID.String(), req)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
		repo.AssertExpectations(t)
	})

	t.Run("DatesDeriveDayCount", func(t *testing.T) {
		repo := new(MockTripRepository)
		repo.On("ApplyUpdate", mock.Anything, "user-1", tripID, mock.MatchedBy(func(r types.TripUpdateRequest) bool {
			return r.TripDataChanged.MonthlyDays != nil && *r.TripDataChanged.MonthlyDays == types.MaxTripDays
		})).Return(2, nil).Once()

		_, err := NewServiceImpl(repo, slog.Default()).UpdateTrip(ctx, "user-1", tripID.String(), types.TripUpdateRequest{
			TripDataChanged: &types.TripDataUpdate{FromDT: date(2025, 6, 1), ToDT: date(2025, 6, 20)},
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Empty", func(t *testing.T) {
		repo := new(MockTripRepository)
		_, err := NewServiceImpl(repo, slog.Default()).UpdateTrip(ctx, "user-1", tripID.String(), types.TripUpdateRequest{
			TripDataChanged: &types.TripDataUpdate{},
		})
		assert.ErrorIs(t, err, ErrEmptyUpdate)
		repo.AssertNotCalled(t, "ApplyUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ClearingUnusedPoolIsNotEmpty", func(t *testing.T) {
		repo := new(MockTripRepository)
		req := types.TripUpdateRequest{Changeset: types.Changeset{UnusedPOIsState: []types.UnusedPOIUpdate{}}}
		repo.On("ApplyUpdate", mock.Anything, "user-1", tripID, req).Return(3, nil).Once()

		_, err := NewServiceImpl(repo, slog.Default()).UpdateTrip(ctx, "user-1", tripID.String(), req)
		require.NoError(t, err)
	})

	t.Run("Rejections", func(t *testing.T) {
		s := NewServiceImpl(new(MockTripRepository), slog.Default())
		zero := 0

		_, err := s.UpdateTrip(ctx, "user-1", "not-a-trip", types.TripUpdateRequest{})
		assert.ErrorIs(t, err, ErrInvalidTripID)

		_, err = s.UpdateTrip(ctx, "user-1", tripID.String(), types.TripUpdateRequest{
			TripDataChanged: &types.TripDataUpdate{MonthlyDays: &zero},
		})
		assert.ErrorIs(t, err, ErrInvalidTrip)

		_, err = s.UpdateTrip(ctx, "user-1", tripID.String(), types.TripUpdateRequest{Changeset: types.Changeset{
			SchedulingUpdates: []types.ItineraryPOIUpdate{{PointID: "x", Day: 1, StartTime: 600, EndTime: 630}},
		}})
		assert.ErrorIs(t, err, ErrInvalidTrip)

		_, err = s.UpdateTrip(ctx, "user-1", tripID.String(), types.TripUpdateRequest{Changeset: types.Changeset{
			NewlyAddedPOIs: []types.ItineraryPOIUpdate{{PointID: "ChIJnew", Day: 1, StartTime: 600, EndTime: 630}},
		}})
		assert.ErrorIs(t, err, ErrInvalidTrip)
	})

	t.Run("NewlyAddedOnlyIsApplied", func(t *testing.T) {
		repo := new(MockTripRepository)
		req := types.TripUpdateRequest{Changeset: types.Changeset{
			NewlyAddedPOIs: []types.ItineraryPOIUpdate{{PointID: point, Day: 1, StartTime: 600, EndTime: 630}},
		}}
		repo.On("ApplyUpdate", mock.Anything, "user-1", tripID, req).Return(4, nil).Once()

		v, err := NewServiceImpl(repo, slog.Default()).UpdateTrip(ctx, "user-1", tripID.String(), req)
		require.NoError(t, err)
		assert.Equal(t, 4, v)
		repo.AssertExpectations(t)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		repo := new(MockTripRepository)
		req := types.TripUpdateRequest{Changeset: types.Changeset{MovedToUnused: []types.UnusedPOIUpdate{{PointID: point}}}}
		repo.On("ApplyUpdate", mock.Anything, "user-1", tripID, req).Return(0, types.ErrNotFound).Once()

		_, err := NewServiceImpl(repo, slog.Default()).UpdateTrip(ctx, "user-1", tripID.String(), req)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestDeleteTrip(t *testing.T) {
	ctx := context.Background()
	tripID := uuid.New()

	repo := new(MockTripRepository)
	repo.On("DeleteUserTrip", mock.Anything, "user-1", tripID).Return(true, nil).Once()
	repo.On("DeleteUserTrip", mock.Anything, "user-2", tripID).Return(false, nil).Once()
	s := NewServiceImpl(repo, slog.Default())

	require.NoError(t, s.DeleteTrip(ctx, "user-1", tripID.String()))
	assert.ErrorIs(t, s.DeleteTrip(ctx, "user-2", tripID.String()), types.ErrNotFound)

	boom := errors.New("db")
	repo.On("TripExists", mock.Anything, "user-1", tripID).Return(false, boom).Once()
	_, err := s.TripExists(ctx, "user-1", tripID.String())
	assert.ErrorIs(t, err, boom)
}
