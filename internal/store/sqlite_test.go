package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"OptionsSentinel/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "options.db"), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	st := newTestSQLite(t)

	_, err := st.Get(context.Background(), "2024-03-04")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SetGetLatest(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	older := &model.DailyRecord{Date: "2024-03-01", Options: []model.OptionCandidate{
		{ID: "AMD $180.0 Call 2024-03-08", Time: "2024-03-01 06:00:00"},
	}}
	newer := &model.DailyRecord{Date: "2024-03-04", Options: []model.OptionCandidate{
		{ID: "NVDA $880.0 Call 2024-03-08", Percentage: 21.43, OpenPrice: 2.8, HighPrice: 3.4, Time: "2024-03-04 06:00:00"},
	}}
	require.NoError(t, st.Set(ctx, newer))
	require.NoError(t, st.Set(ctx, older))

	got, err := st.Get(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, older.Options, got.Options)

	latest, err := st.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", latest.Date)
	assert.Equal(t, newer.Options, latest.Options)
}

func TestSQLiteStore_SetReplacesDocument(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	_, err := Upsert(ctx, st, "2024-03-04", []model.OptionCandidate{{ID: "A", Time: "t0"}})
	require.NoError(t, err)
	_, err = Upsert(ctx, st, "2024-03-04", []model.OptionCandidate{{ID: "A", Percentage: 4, Time: "t1"}, {ID: "B"}})
	require.NoError(t, err)

	got, err := st.Get(ctx, "2024-03-04")
	require.NoError(t, err)
	require.Len(t, got.Options, 2)
	assert.Equal(t, "t0", got.Options[0].Time)
	assert.Equal(t, 4.0, got.Options[0].Percentage)
}

func TestSQLiteStore_EmptyOptionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	require.NoError(t, st.Set(ctx, &model.DailyRecord{Date: "2024-03-04"}))
	got, err := st.Get(ctx, "2024-03-04")
	require.NoError(t, err)
	assert.NotNil(t, got.Options)
	assert.Empty(t, got.Options)
}
