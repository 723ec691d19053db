package streaming

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/observability/metrics"
)

var ErrLinkUnavailable = errors.New("stream link unavailable")

// LinkSource asks the listing service for a playable link.
type LinkSource interface {
	RawURL(ctx context.Context, path string) (string, error)
}

type Resolver struct {
	repo  *catalog.Repository
	live  LinkSource
	cache URLCache
	ttl   time.Duration
}

// NewResolver returns a resolver that redirects to stored URLs. Passing a
// LinkSource switches to live resolution; cache may be nil.
func NewResolver(repo *catalog.Repository, live LinkSource, cache URLCache, ttl time.Duration) *Resolver {
	return &Resolver{repo: repo, live: live, cache: cache, ttl: ttl}
}

// Resolve returns the URL to redirect a client to for video id. Unknown ids
// fail with catalog.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	video, err := r.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if r.live == nil {
		metrics.ObserveStreamRedirect()
		return video.URL, nil
	}

	if r.cache != nil {
		url, ok, err := r.cache.Get(ctx, id)
		if err != nil {
			logger.Log.WithError(err).WithField("video_id", id).Warn("stream cache read failed")
		} else if ok {
			metrics.ObserveStreamRedirect()
			return url, nil
		}
	}

	url, err := r.live.RawURL(ctx, video.SourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLinkUnavailable, err)
	}
	if r.cache != nil && r.ttl > 0 {
		if err := r.cache.Set(ctx, id, url, r.ttl); err != nil {
			logger.Log.WithError(err).WithField("video_id", id).Warn("stream cache write failed")
		}
	}
	metrics.ObserveStreamRedirect()
	return url, nil
}
