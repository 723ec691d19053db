package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/kafka"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/common/models"
	"github.com/coachpo/swiperflix-gateway/pkg/observability/metrics"
	"github.com/coachpo/swiperflix-gateway/pkg/openlist"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable means the external listing could not be fetched. The store
// is left exactly as it was and the run may be retried later.
var ErrUnavailable = errors.New("ingestion unavailable")

const eventSource = "ingestion"

// Lister is the part of the OpenList client the reconciler needs.
type Lister interface {
	List(ctx context.Context, dir string) ([]openlist.Entry, error)
	FileURL(path string) string
}

type Result struct {
	Dir     string `json:"dir"`
	Fetched int    `json:"fetched"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

type Reconciler struct {
	repo       *catalog.Repository
	lister     Lister
	defaultDir string
	publisher  kafka.Publisher

	group singleflight.Group
}

func NewReconciler(repo *catalog.Repository, lister Lister, defaultDir string, publisher kafka.Publisher) *Reconciler {
	return &Reconciler{
		repo:       repo,
		lister:     lister,
		defaultDir: defaultDir,
		publisher:  publisher,
	}
}

func (r *Reconciler) resolveDir(dir string) string {
	if dir == "" {
		dir = r.defaultDir
	}
	return catalog.NormalizePath(dir)
}

// Reconcile brings the store in line with the listing under dir. Records are
// created or updated, never deleted. Running it twice against an unchanged
// listing reports zero created and zero updated the second time.
func (r *Reconciler) Reconcile(ctx context.Context, dir string) (Result, error) {
	dir = r.resolveDir(dir)
	res := Result{Dir: dir}

	entries, err := r.lister.List(ctx, dir)
	if err != nil {
		metrics.ObserveSync(0, 0, err)
		logger.Log.WithError(err).WithField("dir", dir).Warn("openlist listing unavailable, store left unchanged")
		return res, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	res.Fetched = len(entries)

	for _, entry := range entries {
		outcome, err := r.repo.Upsert(ctx, r.toVideo(entry))
		if err != nil {
			metrics.ObserveSync(res.Created, res.Updated, err)
			return res, fmt.Errorf("upsert %s: %w", entry.Path, err)
		}
		switch outcome {
		case catalog.UpsertCreated:
			res.Created++
		case catalog.UpsertUpdated:
			res.Updated++
		}
	}
	metrics.ObserveSync(res.Created, res.Updated, nil)

	logger.Log.WithFields(map[string]interface{}{
		"dir":     res.Dir,
		"fetched": res.Fetched,
		"created": res.Created,
		"updated": res.Updated,
	}).Info("sync complete")

	if res.Created > 0 || res.Updated > 0 {
		kafka.Publish(ctx, r.publisher, models.EventCatalogSynced, eventSource, map[string]interface{}{
			"dir":     res.Dir,
			"fetched": res.Fetched,
			"created": res.Created,
			"updated": res.Updated,
		})
	}
	return res, nil
}

// ReconcileShared collapses concurrent runs for the same directory into one.
// shared reports whether the result came from a run started by another caller.
func (r *Reconciler) ReconcileShared(ctx context.Context, dir string) (res Result, shared bool, err error) {
	dir = r.resolveDir(dir)
	v, err, shared := r.group.Do(dir, func() (interface{}, error) {
		return r.Reconcile(context.WithoutCancel(ctx), dir)
	})
	res, _ = v.(Result)
	return res, shared, err
}

func (r *Reconciler) toVideo(entry openlist.Entry) catalog.Video {
	v := catalog.Video{
		SourcePath: catalog.NormalizePath(entry.Path),
		Title:      entry.Name,
		URL:        r.lister.FileURL(entry.Path),
		ModifiedAt: entry.Modified,
	}
	if entry.Thumb != "" {
		thumb := entry.Thumb
		v.Cover = &thumb
	}
	// created_at is only used on insert; the upsert never rewrites it.
	if entry.Modified != nil {
		v.CreatedAt = *entry.Modified
	}
	return v
}

// SeedIfEmpty stores seed when the catalogue has no records at all. It
// reports how many records were created.
func SeedIfEmpty(ctx context.Context, repo *catalog.Repository, seed Seed) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	now := time.Now().UTC()
	for i, sv := range seed.Videos {
		v := sv.toVideo()
		// Keep the file order as the recent order.
		v.CreatedAt = now.Add(-time.Duration(i) * time.Second)
		outcome, err := repo.Upsert(ctx, v)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", sv.Path, err)
		}
		if outcome == catalog.UpsertCreated {
			created++
		}
	}
	logger.Log.WithField("created", created).Info("seeded fallback catalogue")
	return created, nil
}
