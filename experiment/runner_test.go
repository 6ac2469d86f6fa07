package experiment

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/estimator"
	"github.com/rushteam/tagkit/internal/fixture"
	"github.com/rushteam/tagkit/rankdist"
	"github.com/rushteam/tagkit/smoothing"
	"github.com/rushteam/tagkit/store"
	"github.com/rushteam/tagkit/value"
)

func newCalculator(t *testing.T, records []core.Annotation, cache bool) *value.Calculator {
	t.Helper()
	est, err := estimator.Build(context.Background(), core.NewSliceStream(records), estimator.WithCache(cache))
	require.NoError(t, err)
	return value.New(est)
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(&bytes.Buffer{}, log.Options{})
}

func TestRankUsers(t *testing.T) {
	ctx := context.Background()
	calc := newCalculator(t, fixture.Annotations(), true)
	rs := store.NewRankingStore(store.NewMemoryStore(), "")
	r := &Runner{Calculator: calc, Store: rs, Logger: quietLogger()}

	results, err := r.RankUsers(ctx, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	global, err := r.GlobalRanking(ctx, nil, nil)
	require.NoError(t, err)
	for i, res := range results {
		assert.Equal(t, i, res.User)
		assert.False(t, res.Skipped)
		require.Len(t, res.Ranking.Values, 6)

		want, err := rankdist.KendallTau(res.Ranking.Tags, global.Tags, rankdist.DefaultTopK, 0)
		require.NoError(t, err)
		assert.InDelta(t, want, res.Distance, 1e-15)
		assert.GreaterOrEqual(t, res.Distance, 0.0)
		assert.LessOrEqual(t, res.Distance, 1.0)

		for _, tv := range res.Ranking.Values {
			v, err := rs.Value(ctx, store.UserScope(res.User), tv.Tag)
			require.NoError(t, err)
			assert.Equal(t, tv.Value, v)
		}
	}

	// 价值相同的标签在存储中的次序可能不同，比较价值
	top, err := rs.Top(ctx, store.GlobalScope, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	got, err := rs.Value(ctx, store.GlobalScope, top[0])
	require.NoError(t, err)
	want, err := rs.Value(ctx, store.GlobalScope, global.Tags[0])
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRankUsers_ParallelMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	records := fixture.Random(rng, 120, 12, 15, 8)
	ctx := context.Background()

	serial := &Runner{Calculator: newCalculator(t, records, true), Logger: quietLogger()}
	want, err := serial.RankUsers(ctx, nil, nil, nil)
	require.NoError(t, err)

	parallel := &Runner{Calculator: newCalculator(t, records, false), Parallelism: 4, Logger: quietLogger()}
	got, err := parallel.RankUsers(ctx, nil, nil, nil)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].User, got[i].User)
		assert.Equal(t, want[i].Skipped, got[i].Skipped)
		assert.Equal(t, want[i].Ranking.Tags, got[i].Ranking.Tags)
		if !want[i].Skipped {
			assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-12)
		}
	}
}

func TestRankUsers_ParallelRequiresUncachedEstimator(t *testing.T) {
	r := &Runner{Calculator: newCalculator(t, fixture.Annotations(), true), Parallelism: 2, Logger: quietLogger()}
	_, err := r.RankUsers(context.Background(), nil, nil, nil)
	assert.True(t, core.IsInvalidInput(err))

	_, err = (&Runner{}).RankUsers(context.Background(), nil, nil, nil)
	assert.True(t, core.IsInvalidInput(err))
}

func TestRankUsers_SkipsUndefinedUsers(t *testing.T) {
	records := []core.Annotation{
		{User: 1, Item: 0, Tag: 0},
		{User: 1, Item: 1, Tag: 1},
		{User: 2, Item: 1, Tag: 0},
	}
	var buf bytes.Buffer
	r := &Runner{
		Calculator: newCalculator(t, records, true),
		Logger:     log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}),
	}
	results, err := r.RankUsers(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Skipped)
	assert.True(t, math.IsNaN(results[0].Distance))
	assert.False(t, results[1].Skipped)
	assert.False(t, results[2].Skipped)

	assert.Contains(t, buf.String(), "skipping user")
	assert.Contains(t, buf.String(), "ranked users")
	assert.Contains(t, buf.String(), "skipped=1")
}

func TestRankUsers_SkipsZeroMassUsers(t *testing.T) {
	// 不平滑时用户 1 的画像标签从未出现在物品 0 上，P(u|0) == 0
	records := []core.Annotation{
		{User: 0, Item: 0, Tag: 0},
		{User: 1, Item: 1, Tag: 1},
	}
	est, err := estimator.Build(context.Background(), core.NewSliceStream(records),
		estimator.WithSmoothing(smoothing.KindNone))
	require.NoError(t, err)
	r := &Runner{Calculator: value.New(est), Logger: quietLogger()}

	results, err := r.RankUsers(context.Background(), nil, []int{0}, []int{0})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Skipped)
	assert.True(t, results[1].Skipped)
}

func TestRankUsers_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Calculator: newCalculator(t, fixture.Annotations(), true), Logger: quietLogger()}
	_, err := r.RankUsers(ctx, []int{0, 1}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeanDistance(t *testing.T) {
	assert.True(t, math.IsNaN(MeanDistance(nil)))
	results := []UserResult{
		{Distance: 0.2},
		{Distance: math.NaN(), Skipped: true},
		{Distance: 0.4},
	}
	assert.InDelta(t, 0.3, MeanDistance(results), 1e-15)
}
