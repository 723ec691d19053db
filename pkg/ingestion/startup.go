package ingestion

import (
	"context"
	"errors"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
)

// SyncOrSeed runs one reconciliation and, when the listing is unavailable,
// falls back to storing seed as long as the catalogue is still empty. The
// ErrUnavailable from the failed run is still returned so callers can log it.
func SyncOrSeed(ctx context.Context, repo *catalog.Repository, rec *Reconciler, dir string, seed Seed) (Result, int, error) {
	res, err := rec.Reconcile(ctx, dir)
	if err == nil {
		return res, 0, nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return res, 0, err
	}

	seeded, seedErr := SeedIfEmpty(ctx, repo, seed)
	if seedErr != nil {
		logger.Log.WithError(seedErr).Error("failed to seed fallback catalogue")
		return res, seeded, errors.Join(err, seedErr)
	}
	return res, seeded, err
}
