package estimator

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/freq"
	"github.com/rushteam/tagkit/internal/fixture"
	"github.com/rushteam/tagkit/pkg/conv"
	"github.com/rushteam/tagkit/smoothing"
)

func newFixture(t *testing.T, opts ...Option) *Smoothed {
	t.Helper()
	est, err := Build(context.Background(), fixture.Stream(), opts...)
	require.NoError(t, err)
	return est
}

func TestSmoothed_Accessors(t *testing.T) {
	est := newFixture(t)
	assert.Equal(t, 5, est.NumItems())
	assert.Equal(t, 6, est.NumTags())
	assert.Equal(t, 3, est.NumUsers())
	assert.Equal(t, int64(10), est.NumAnnotations())
	assert.Equal(t, DefaultLambda, est.Lambda())
	assert.Equal(t, smoothing.KindJM, est.Smoothing())
	assert.True(t, est.CacheEnabled())
}

func TestSmoothed_ProbItem(t *testing.T) {
	est := newFixture(t)

	p, err := est.ProbItem(0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)

	probs, err := conv.MapErr(conv.Range(est.NumItems()), est.ProbItem)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.2, 0.1, 0.1, 0.1}, probs)

	_, err = est.ProbItem(5)
	assert.True(t, core.IsIndexOutOfRange(err))
	_, err = est.ProbItem(-1)
	assert.True(t, core.IsIndexOutOfRange(err))
}

func TestSmoothed_EmptyItemHasZeroPrior(t *testing.T) {
	records := []core.Annotation{
		{User: 0, Item: 0, Tag: 0},
		{User: 0, Item: 2, Tag: 1},
	}
	est, err := Build(context.Background(), core.NewSliceStream(records))
	require.NoError(t, err)

	p, err := est.ProbItem(1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
	assert.NotContains(t, est.Index().ValidItems(), 1)
}

func TestSmoothed_ProbTagGivenItem(t *testing.T) {
	est := newFixture(t, WithLambda(0.5))

	// 共现：(1-λ)·2/5 + λ·3/10
	p, err := est.ProbTagGivenItem(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.35, p, 1e-12)

	// 未共现：λ·1/10
	p, err = est.ProbTagGivenItem(0, 4)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, p, 1e-12)

	_, err = est.ProbTagGivenItem(0, 6)
	assert.True(t, core.IsIndexOutOfRange(err))
	_, err = est.ProbTagGivenItem(9, 0)
	assert.True(t, core.IsIndexOutOfRange(err))
}

func TestSmoothed_ConditionalSumsToOne(t *testing.T) {
	kinds := []struct {
		name string
		opts []Option
	}{
		{"JM", []Option{WithSmoothing(smoothing.KindJM), WithLambda(0.3)}},
		{"Bayes", []Option{WithSmoothing(smoothing.KindBayes), WithLambda(0.7)}},
		{"None", []Option{WithSmoothing(smoothing.KindNone)}},
	}
	for _, k := range kinds {
		t.Run(k.name, func(t *testing.T) {
			est := newFixture(t, k.opts...)
			for _, item := range est.Index().ValidItems() {
				var total float64
				for tag := 0; tag < est.NumTags(); tag++ {
					p, err := est.ProbTagGivenItem(item, tag)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, p, 0.0)
					total += p
				}
				assert.InDelta(t, 1.0, total, 1e-10, "item %d", item)
			}
		})
	}
}

func TestSmoothed_SmoothingNeverZeroForSeenItems(t *testing.T) {
	est := newFixture(t, WithLambda(0.2))
	for _, item := range est.Index().ValidItems() {
		for _, tag := range est.Index().ValidTags() {
			p, err := est.ProbTagGivenItem(item, tag)
			require.NoError(t, err)
			assert.Greater(t, p, 0.0)
		}
	}

	mle := newFixture(t, WithSmoothing(smoothing.KindNone))
	p, err := mle.ProbTagGivenItem(0, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestSmoothed_ProbTagMarginalizes(t *testing.T) {
	est := newFixture(t)

	got, err := est.ProbTag(0)
	require.NoError(t, err)

	var want float64
	for item := 0; item < 5; item++ {
		pti, err := est.ProbTagGivenItem(item, 0)
		require.NoError(t, err)
		pi, err := est.ProbItem(item)
		require.NoError(t, err)
		want += pti * pi
	}
	assert.InDelta(t, want, got, 1e-15)

	var total float64
	for tag := 0; tag < est.NumTags(); tag++ {
		p, err := est.ProbTag(tag)
		require.NoError(t, err)
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-12)
}

func TestSmoothed_ProbUser(t *testing.T) {
	est := newFixture(t)
	profile := est.Index().UserTagProfile[0]
	require.Equal(t, []int{0, 1}, profile)

	p0, err := est.ProbTag(0)
	require.NoError(t, err)
	p1, err := est.ProbTag(1)
	require.NoError(t, err)

	pu, err := est.ProbUser(0)
	require.NoError(t, err)
	assert.InDelta(t, p0*p1, pu, 1e-15)

	lpu, err := est.LogProbUser(0)
	require.NoError(t, err)
	assert.InDelta(t, math.Log2(p0)+math.Log2(p1), lpu, 1e-12)

	pt0, err := est.ProbTagGivenItem(2, 0)
	require.NoError(t, err)
	pt1, err := est.ProbTagGivenItem(2, 1)
	require.NoError(t, err)
	pui, err := est.ProbUserGivenItem(2, 0)
	require.NoError(t, err)
	assert.InDelta(t, pt0*pt1, pui, 1e-15)

	lpui, err := est.LogProbUserGivenItem(2, 0)
	require.NoError(t, err)
	assert.InDelta(t, math.Log2(pui), lpui, 1e-12)

	_, err = est.ProbUser(3)
	assert.True(t, core.IsIndexOutOfRange(err))
	_, err = est.LogProbUserGivenItem(7, 0)
	assert.True(t, core.IsIndexOutOfRange(err))
}

func TestSmoothed_EmptyProfile(t *testing.T) {
	records := []core.Annotation{
		{User: 1, Item: 0, Tag: 0},
	}
	est, err := Build(context.Background(), core.NewSliceStream(records))
	require.NoError(t, err)

	p, err := est.ProbUser(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	p, err = est.ProbUserGivenItem(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	lp, err := est.LogProbUser(0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(lp, -1))
}

func TestSmoothed_ProfileCap(t *testing.T) {
	est := newFixture(t, WithBuilderOptions(freq.WithProfileCap(freq.ProfileCap{MaxTags: 1})))
	assert.Equal(t, []int{0}, est.Index().UserTagProfile[0])

	p0, err := est.ProbTag(0)
	require.NoError(t, err)
	pu, err := est.ProbUser(0)
	require.NoError(t, err)
	assert.InDelta(t, p0, pu, 1e-15)
}

func TestSmoothed_CacheDoesNotChangeResults(t *testing.T) {
	cached := newFixture(t)
	uncached := newFixture(t, WithCache(false))
	assert.False(t, uncached.CacheEnabled())

	for round := 0; round < 2; round++ {
		for item := 0; item < cached.NumItems(); item++ {
			for tag := 0; tag < cached.NumTags(); tag++ {
				a, err := cached.ProbTagGivenItem(item, tag)
				require.NoError(t, err)
				b, err := uncached.ProbTagGivenItem(item, tag)
				require.NoError(t, err)
				assert.Equal(t, b, a)
			}
		}
	}
	assert.Len(t, cached.cache, cached.NumItems()*cached.NumTags())
	assert.Nil(t, uncached.cache)
}

func TestSmoothed_InvalidProbability(t *testing.T) {
	broken := func(_, _, _, _, _ float64) (float64, float64) { return 1.5, 0.5 }
	est := newFixture(t, WithSmoothingFunc(broken))

	_, err := est.ProbTagGivenItem(0, 0)
	require.Error(t, err)
	assert.True(t, core.IsInvalidProbability(err))

	_, err = est.ProbTag(0)
	assert.True(t, core.IsInvalidProbability(err))

	// 误差容限内的值不报错
	nearOne := func(_, _, _, _, _ float64) (float64, float64) { return 1 + 1e-14, 0 }
	est = newFixture(t, WithSmoothingFunc(nearOne))
	_, err = est.ProbTagGivenItem(0, 0)
	assert.NoError(t, err)
}

func TestSmoothed_Build_MalformedRecord(t *testing.T) {
	records := fixture.Annotations()
	records[0].User = -1
	est, err := Build(context.Background(), core.NewSliceStream(records))
	assert.Nil(t, est)
	assert.True(t, core.IsMalformedRecord(err))
}

func TestSmoothed_RandomCorporaStayBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		records := fixture.Random(rng, 20+rng.Intn(80), 4, 8, 6)
		est, err := Build(context.Background(), core.NewSliceStream(records), WithSmoothing(smoothing.KindBayes), WithLambda(0.4))
		require.NoError(t, err)
		for tag := 0; tag < est.NumTags(); tag++ {
			p, err := est.ProbTag(tag)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1+1e-10)
		}
	}
}
