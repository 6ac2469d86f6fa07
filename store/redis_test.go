package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/tagkit/core"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TAGKIT_REDIS_ADDR")
	if addr == "" {
		t.Skip("TAGKIT_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr, 0)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "redis", s.Name())

	rs := NewRankingStore(s, "tagkit:test:"+t.Name())
	defer s.Delete(ctx, rs.key(GlobalScope))

	require.NoError(t, rs.Save(ctx, GlobalScope, []int{1, 2, 3}, []float64{0.1, 0.3, 0.2}))
	top, err := rs.Top(ctx, GlobalScope, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, top)

	_, err = rs.Value(ctx, GlobalScope, 9)
	assert.True(t, core.IsStoreNotFound(err))
}
