package playlist

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *catalog.Repository {
	t.Helper()
	repo := catalog.NewRepository(testsupport.OpenStore(t))
	require.NoError(t, repo.AutoMigrate())
	return repo
}

// addVideo stores a video named name with the given starting pick_count and
// returns its id.
func addVideo(t *testing.T, repo *catalog.Repository, name string, picks int) string {
	t.Helper()
	ctx := context.Background()
	p := "/clips/" + name
	_, err := repo.Upsert(ctx, catalog.Video{SourcePath: p, Title: name, URL: "http://files" + p})
	require.NoError(t, err)
	id := catalog.DeriveID(p)
	for i := 0; i < picks; i++ {
		_, err := repo.IncrementPickCounts(ctx, []string{id}, time.Now())
		require.NoError(t, err)
	}
	return id
}

func pickCounts(t *testing.T, repo *catalog.Repository) map[string]int64 {
	t.Helper()
	all, err := repo.ListByExposure(context.Background(), nil, 1000)
	require.NoError(t, err)
	out := make(map[string]int64, len(all))
	for _, v := range all {
		out[v.ID] = v.PickCount
	}
	return out
}

func seeded(seed uint64) SelectorOption {
	return WithRand(rand.New(rand.NewPCG(seed, seed+1)))
}

func TestSelectPrefersLeastServed(t *testing.T) {
	repo := newCatalog(t)
	a := addVideo(t, repo, "a.mp4", 0)
	b := addVideo(t, repo, "b.mp4", 2)
	c := addVideo(t, repo, "c.mp4", 0)

	got, err := NewSelector(repo, seeded(1)).Select(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	ids := []string{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []string{a, c}, ids)
	assert.EqualValues(t, 1, got[0].PickCount)
	assert.EqualValues(t, 1, got[1].PickCount)

	counts := pickCounts(t, repo)
	assert.EqualValues(t, 1, counts[a])
	assert.EqualValues(t, 2, counts[b])
	assert.EqualValues(t, 1, counts[c])
}

func TestSelectEmptyStoreReturnsEmptyList(t *testing.T) {
	repo := newCatalog(t)

	got, err := NewSelector(repo).Select(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSelectLimitBeyondStoreReturnsAll(t *testing.T) {
	repo := newCatalog(t)
	for i := 0; i < 3; i++ {
		addVideo(t, repo, fmt.Sprintf("%d.mp4", i), i)
	}

	got, err := NewSelector(repo).Select(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].PickCount, got[i].PickCount)
	}
}

func TestSelectExposureAccountingIsExact(t *testing.T) {
	repo := newCatalog(t)
	for i := 0; i < 7; i++ {
		addVideo(t, repo, fmt.Sprintf("%d.mp4", i), 0)
	}
	sel := NewSelector(repo, seeded(7))
	ctx := context.Background()

	appearances := map[string]int64{}
	for call := 0; call < 12; call++ {
		before := pickCounts(t, repo)

		got, err := sel.Select(ctx, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)

		picked := map[string]bool{}
		maxPicked := int64(-1)
		for _, v := range got {
			appearances[v.ID]++
			picked[v.ID] = true
			if before[v.ID] > maxPicked {
				maxPicked = before[v.ID]
			}
		}
		// No video left behind had strictly fewer picks than one that was served.
		for id, count := range before {
			if !picked[id] {
				assert.GreaterOrEqual(t, count, maxPicked, "call %d skipped %s", call, id)
			}
		}
	}

	for id, count := range pickCounts(t, repo) {
		assert.Equal(t, appearances[id], count, "video %s", id)
	}
}

func TestSelectRotatesThroughEveryVideo(t *testing.T) {
	repo := newCatalog(t)
	for i := 0; i < 4; i++ {
		addVideo(t, repo, fmt.Sprintf("%d.mp4", i), 0)
	}
	sel := NewSelector(repo)

	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		got, err := sel.Select(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		seen[got[0].ID]++
	}
	assert.Len(t, seen, 4)
}

func TestSelectConcurrentCallsNeverUndercount(t *testing.T) {
	repo := newCatalog(t)
	for i := 0; i < 5; i++ {
		addVideo(t, repo, fmt.Sprintf("%d.mp4", i), 0)
	}
	sel := NewSelector(repo)

	const workers, calls, limit = 6, 4, 2
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
		errs  []error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := 0; c < calls; c++ {
				got, err := sel.Select(context.Background(), limit)
				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				}
				total += int64(len(got))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	var sum int64
	for _, c := range pickCounts(t, repo) {
		sum += c
	}
	assert.EqualValues(t, workers*calls*limit, total)
	assert.Equal(t, total, sum)
}

func TestSelectPassServesEachVideoOnce(t *testing.T) {
	repo := newCatalog(t)
	want := []string{
		addVideo(t, repo, "a.mp4", 0),
		addVideo(t, repo, "b.mp4", 1),
		addVideo(t, repo, "c.mp4", 1),
		addVideo(t, repo, "d.mp4", 2),
	}
	sel := NewSelector(repo, seeded(5))
	ctx := context.Background()

	first, err := sel.SelectPass(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, first.Videos, 2)
	assert.EqualValues(t, 2, first.Remaining)
	assert.Equal(t, want[0], first.Videos[0].ID)

	started := first.Started
	served := []string{first.Videos[0].ID, first.Videos[1].ID}
	for first.Remaining > 0 {
		next, err := sel.SelectPass(ctx, &started, 2)
		require.NoError(t, err)
		require.NotEmpty(t, next.Videos)
		assert.True(t, started.Equal(next.Started))
		for _, v := range next.Videos {
			served = append(served, v.ID)
		}
		first = next
	}

	assert.ElementsMatch(t, want, served)
	counts := pickCounts(t, repo)
	assert.EqualValues(t, 1, counts[want[0]])
	assert.EqualValues(t, 2, counts[want[1]])
	assert.EqualValues(t, 2, counts[want[2]])
	assert.EqualValues(t, 3, counts[want[3]])

	done, err := sel.SelectPass(ctx, &started, 2)
	require.NoError(t, err)
	assert.Empty(t, done.Videos)
	assert.Zero(t, done.Remaining)
}

func TestArrangeSortsUnorderedCandidates(t *testing.T) {
	sel := NewSelector(nil, seeded(9))
	out := sel.arrange([]catalog.Video{
		{ID: "c", PickCount: 2}, {ID: "a", PickCount: 0}, {ID: "b", PickCount: 1},
	})
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "c", out[2].ID)
}

func TestArrangeShufflesOnlyWithinEqualCounts(t *testing.T) {
	sel := NewSelector(nil, seeded(42))
	firsts := map[string]bool{}
	for i := 0; i < 50; i++ {
		candidates := []catalog.Video{
			{ID: "a", PickCount: 0}, {ID: "b", PickCount: 0}, {ID: "c", PickCount: 0},
			{ID: "d", PickCount: 0}, {ID: "e", PickCount: 0},
			{ID: "x", PickCount: 3}, {ID: "y", PickCount: 3},
		}
		out := sel.arrange(candidates)
		firsts[out[0].ID] = true
		for j := 0; j < 5; j++ {
			assert.Zero(t, out[j].PickCount)
		}
		assert.ElementsMatch(t, []string{"x", "y"}, []string{out[5].ID, out[6].ID})
	}
	assert.Greater(t, len(firsts), 1, "ties should not always resolve the same way")
}
