package playlist

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
)

// Selector hands out the least-exposed videos and charges each returned video
// one exposure in the same transaction as the read.
type Selector struct {
	repo *catalog.Repository

	mu  sync.Mutex
	rng *rand.Rand
}

type SelectorOption func(*Selector)

// WithRand fixes the tie-break source, mainly for tests.
func WithRand(rng *rand.Rand) SelectorOption {
	return func(s *Selector) {
		s.rng = rng
	}
}

func NewSelector(repo *catalog.Repository, opts ...SelectorOption) *Selector {
	seed := uint64(time.Now().UnixNano())
	s := &Selector{
		repo: repo,
		rng:  rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pass is one fair-order page together with the pass it belongs to.
type Pass struct {
	Videos []catalog.Video
	// Started is when the pass served its first page.
	Started time.Time
	// Remaining counts the videos the pass has not served yet.
	Remaining int64
}

// Select returns at most limit videos ordered by ascending pick_count with
// equal counts in a fresh random order, after incrementing their pick_count.
// Returned records carry the incremented value.
func (s *Selector) Select(ctx context.Context, limit int) ([]catalog.Video, error) {
	pass, err := s.SelectPass(ctx, nil, limit)
	if err != nil {
		return nil, err
	}
	return pass.Videos, nil
}

// SelectPass selects like Select but only among the videos not served since
// started. A nil started opens a new pass that covers the whole catalog.
func (s *Selector) SelectPass(ctx context.Context, started *time.Time, limit int) (Pass, error) {
	pass := Pass{Videos: []catalog.Video{}}
	if limit <= 0 {
		return pass, nil
	}

	err := s.repo.Transaction(ctx, func(tx *catalog.Repository) error {
		now := tx.Now()
		pass.Started = now
		if started != nil {
			pass.Started = *started
		}

		ceiling, ok, err := tx.PickCountAt(ctx, limit-1, started)
		if err != nil {
			return err
		}

		var candidates []catalog.Video
		if ok {
			candidates, err = tx.LockCandidates(ctx, &ceiling, started)
			if err == nil && len(candidates) < limit {
				// Counts moved between the boundary read and the lock.
				candidates, err = tx.LockCandidates(ctx, nil, started)
			}
		} else {
			candidates, err = tx.LockCandidates(ctx, nil, started)
		}
		if err != nil {
			return err
		}

		if len(candidates) > 0 {
			ordered := s.arrange(candidates)
			if len(ordered) > limit {
				ordered = ordered[:limit]
			}

			ids := make([]string, len(ordered))
			for i, v := range ordered {
				ids[i] = v.ID
			}
			n, err := tx.IncrementPickCounts(ctx, ids, now)
			if err != nil {
				return err
			}
			if n != int64(len(ids)) {
				return fmt.Errorf("incremented %d of %d selected videos", n, len(ids))
			}

			for i := range ordered {
				ordered[i].PickCount++
				ordered[i].PickedAt = &now
			}
			pass.Videos = ordered
		}

		pass.Remaining, err = tx.CountNotPickedSince(ctx, pass.Started)
		return err
	})
	if err != nil {
		return Pass{}, fmt.Errorf("select videos: %w", err)
	}
	return pass, nil
}

// arrange sorts candidates by (pick_count, id) and shuffles each run of equal
// pick_count in place. Locked reads can come back out of order on Postgres.
func (s *Selector) arrange(candidates []catalog.Video) []catalog.Video {
	slices.SortFunc(candidates, func(a, b catalog.Video) int {
		if c := cmp.Compare(a.PickCount, b.PickCount); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	for start < len(candidates) {
		end := start + 1
		for end < len(candidates) && candidates[end].PickCount == candidates[start].PickCount {
			end++
		}
		group := candidates[start:end]
		s.rng.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		start = end
	}
	return candidates
}
