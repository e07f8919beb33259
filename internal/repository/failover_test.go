package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"tripcart/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetSession(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionSnapshot), args.Error(1)
}

func (m *mockStore) SaveSession(ctx context.Context, snap *models.SessionSnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *mockStore) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverSessionStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSessionStore(primary, fallback, &logger)
	ctx := context.Background()

	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	t.Run("PrimarySuccess", func(t *testing.T) {
		snap := testSnapshot("a")
		primary.On("GetSession", ctx, "a").Return(snap, nil).Once()
		fallback.On("GetSession", ctx, "a").Return(nil, nil).Once()

		got, err := repo.GetSession(ctx, "a")
		assert.NoError(t, err)
		assert.Equal(t, snap, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryMissFallsThrough", func(t *testing.T) {
		snap := testSnapshot("b")
		primary.On("GetSession", ctx, "b").Return(nil, nil).Once()
		fallback.On("GetSession", ctx, "b").Return(snap, nil).Once()
		primary.On("SaveSession", ctx, snap).Return(nil).Once()
		fallback.On("DeleteSession", ctx, "b").Return(nil).Once()

		got, err := repo.GetSession(ctx, "b")
		assert.NoError(t, err)
		assert.Equal(t, snap, got)
		assert.False(t, repo.Degraded())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		snap := testSnapshot("c")
		primary.On("GetSession", ctx, "c").Return(nil, errors.New("fail")).Once()
		fallback.On("GetSession", ctx, "c").Return(snap, nil).Once()

		got, err := repo.GetSession(ctx, "c")
		assert.NoError(t, err)
		assert.Equal(t, snap, got)
		assert.True(t, repo.Degraded())
	})

	t.Run("StaysOnFallbackWithinInterval", func(t *testing.T) {
		snap := testSnapshot("d")
		fallback.On("SaveSession", ctx, snap).Return(nil).Once()

		assert.NoError(t, repo.SaveSession(ctx, snap))
		primary.AssertNotCalled(t, "SaveSession", ctx, snap)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		primary.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(false, errors.New("still down")).Once()
		fallback.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.Degraded())
	})

	t.Run("Recovery", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		snap := testSnapshot("e")
		primary.On("SaveSession", ctx, snap).Return(nil).Once()

		assert.NoError(t, repo.SaveSession(ctx, snap))
		assert.False(t, repo.Degraded())
		primary.AssertExpectations(t)
	})

	t.Run("DeleteClearsBoth", func(t *testing.T) {
		fallback.On("DeleteSession", ctx, "f").Return(nil).Once()
		primary.On("DeleteSession", ctx, "f").Return(nil).Once()

		assert.NoError(t, repo.DeleteSession(ctx, "f"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteFailover", func(t *testing.T) {
		fallback.On("DeleteSession", ctx, "g").Return(nil).Once()
		primary.On("DeleteSession", ctx, "g").Return(errors.New("fail")).Once()

		assert.NoError(t, repo.DeleteSession(ctx, "g"))
		assert.True(t, repo.Degraded())
	})
}

// flakyStore is a memory store whose availability can be switched off.
type flakyStore struct {
	*MemorySessionStore
	down bool
}

var errStoreDown = errors.New("connection refused")

func (f *flakyStore) GetSession(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	if f.down {
		return nil, errStoreDown
	}
	return f.MemorySessionStore.GetSession(ctx, id)
}

func (f *flakyStore) SaveSession(ctx context.Context, snap *models.SessionSnapshot) error {
	if f.down {
		return errStoreDown
	}
	return f.MemorySessionStore.SaveSession(ctx, snap)
}

func TestFailoverSessionStore_OutageWritesSurviveRecovery(t *testing.T) {
	primary := &flakyStore{MemorySessionStore: NewMemorySessionStore(time.Hour)}
	fallback := NewMemorySessionStore(time.Hour)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSessionStore(primary, fallback, &logger)
	ctx := context.Background()

	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	before := testSnapshot("s1")
	before.Flow.Stage = models.StageReviewingSummary
	before.UpdatedAt = now
	require.NoError(t, repo.SaveSession(ctx, before))

	primary.down = true
	confirmed := testSnapshot("s1")
	confirmed.Flow.Stage = models.StageConfirmed
	confirmed.Flow.TransactionID = "TXN123456789"
	confirmed.UpdatedAt = now.Add(30 * time.Second)
	require.NoError(t, repo.SaveSession(ctx, confirmed))
	assert.True(t, repo.Degraded())

	primary.down = false
	now = now.Add(2 * time.Minute)

	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StageConfirmed, got.Flow.Stage)
	assert.False(t, repo.Degraded())

	// снимок вернулся в основное хранилище, копия в памяти удалена
	inPrimary, err := primary.MemorySessionStore.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, inPrimary)
	assert.Equal(t, models.StageConfirmed, inPrimary.Flow.Stage)
	leftover, err := fallback.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, leftover)

	got, err = repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StageConfirmed, got.Flow.Stage)
}

func TestFailoverSessionStore_StaleFallbackCopyDropped(t *testing.T) {
	primary := &flakyStore{MemorySessionStore: NewMemorySessionStore(time.Hour)}
	fallback := NewMemorySessionStore(time.Hour)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSessionStore(primary, fallback, &logger)
	ctx := context.Background()

	old := testSnapshot("s2")
	old.Flow.Stage = models.StageSelectingFlight
	require.NoError(t, fallback.SaveSession(ctx, old))

	newer := testSnapshot("s2")
	newer.Flow.Stage = models.StageReviewingSummary
	newer.UpdatedAt = old.UpdatedAt.Add(time.Minute)
	require.NoError(t, primary.SaveSession(ctx, newer))

	got, err := repo.GetSession(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, models.StageReviewingSummary, got.Flow.Stage)

	leftover, err := fallback.GetSession(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, leftover)
}
