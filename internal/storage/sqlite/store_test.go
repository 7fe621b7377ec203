package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"luckydraw/internal/models"
	"luckydraw/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "lottery.db"), "")
	require.NoError(t, err, "failed to open store")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleState() models.AppState {
	s := models.DefaultState()
	s.Participants = []models.Participant{
		{ID: "p1", Name: "Alice", Code: "001", Department: "Eng", IsWinner: true},
		{ID: "p2", Name: "Bob", Code: "002", Department: models.DefaultDepartment},
	}
	s.Prizes[0].DrawnCount = 1
	s.Winners = []models.Winner{{ID: "w1", ParticipantID: "p1", PrizeID: "1", Timestamp: 1735689600000}}
	s.SiteConfig = models.SiteConfig{BrandName: "ACME", EventName: "Gala", LogoURL: "data:image/png;base64,AAAA"}
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, storage.ErrNotFound)

	want := sampleState()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_Patch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleState()))

	winners := []models.Winner{}
	participants := []models.Participant{{ID: "p3", Name: "Carol", Code: "003", Department: "Ops"}}
	require.NoError(t, s.Patch(ctx, models.StatePatch{Winners: &winners, Participants: &participants}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Winners)
	assert.Equal(t, participants, got.Participants)
	assert.Equal(t, "ACME", got.SiteConfig.BrandName, "untouched slices must survive a patch")
}

func TestStore_PatchWithoutRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfg := models.SiteConfig{BrandName: "ACME", EventName: "Gala"}
	require.NoError(t, s.Patch(ctx, models.StatePatch{SiteConfig: &cfg}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got.SiteConfig)
	assert.Len(t, got.Prizes, 3, "patch on a missing record starts from defaults")
}

func TestLoadOrDefault(t *testing.T) {
	ctx := context.Background()

	t.Run("missing record is initialized", func(t *testing.T) {
		s := openTestStore(t)
		state, err := storage.LoadOrDefault(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultState(), state)

		_, err = s.Load(ctx)
		assert.NoError(t, err, "defaults should have been written back")
	})

	t.Run("corrupt record falls back", func(t *testing.T) {
		s := openTestStore(t)
		_, err := s.sqlDB.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, 0)`, DefaultKey, "{not json")
		require.NoError(t, err)

		_, err = s.Load(ctx)
		require.ErrorIs(t, err, storage.ErrCorrupt)

		state, err := storage.LoadOrDefault(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultState(), state)
	})

	t.Run("stored record is returned as is", func(t *testing.T) {
		s := openTestStore(t)
		want := sampleState()
		require.NoError(t, s.Save(ctx, want))

		state, err := storage.LoadOrDefault(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, want, state)
	})
}

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lottery.db")
	s, err := Open(path, "custom")
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleState()))
	require.NoError(t, s.Close())

	s, err = Open(path, "custom")
	require.NoError(t, err)
	defer s.Close()

	var applied int
	require.NoError(t, s.sqlDB.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)

	_, err = s.Load(context.Background())
	assert.NoError(t, err)
}
