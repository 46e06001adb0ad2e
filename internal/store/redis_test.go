package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OptionsSentinel/internal/model"
)

func TestRedisStore_SetLatest(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis integration test")
	}
	ctx := context.Background()
	st, err := NewRedisStore(ctx, addr, os.Getenv("REDIS_PASSWORD"), 15)
	require.NoError(t, err)
	t.Cleanup(func() {
		st.rdb.FlushDB(context.Background())
		st.Close()
	})

	require.NoError(t, st.Set(ctx, &model.DailyRecord{Date: "2024-03-01"}))
	require.NoError(t, st.Set(ctx, &model.DailyRecord{Date: "2024-03-04", Options: []model.OptionCandidate{{ID: "A"}}}))

	latest, err := st.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", latest.Date)
	assert.Len(t, latest.Options, 1)

	_, err = st.Get(ctx, "2023-01-01")
	assert.ErrorIs(t, err, ErrNotFound)
}
