package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
	"github.com/coachpo/swiperflix-gateway/pkg/observability/metrics"
)

// Request is a playlist page request. Limit 0 means the default.
type Request struct {
	Limit  int
	Cursor string
	Order  Order
}

type Page struct {
	Videos     []catalog.Video
	NextCursor string
}

type Service struct {
	repo         *catalog.Repository
	selector     *Selector
	codec        *Codec
	defaultLimit int
	maxLimit     int
}

func NewService(repo *catalog.Repository, selector *Selector, codec *Codec, defaultLimit, maxLimit int) *Service {
	if maxLimit <= 0 {
		maxLimit = 50
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		repo:         repo,
		selector:     selector,
		codec:        codec,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (s *Service) resolveLimit(limit int) (int, error) {
	if limit == 0 {
		return s.defaultLimit, nil
	}
	if limit < 1 || limit > s.maxLimit {
		return 0, apierror.NewValidationError("limit must be between 1 and %d", s.maxLimit)
	}
	return limit, nil
}

// decodeFor decodes token and checks it was issued for order. An empty token
// yields a nil cursor.
func (s *Service) decodeFor(token string, order Order) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	cur, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	if cur.Order != order {
		return nil, fmt.Errorf("%w: issued for %s order", ErrInvalidCursor, cur.Order)
	}
	return &cur, nil
}

// Fetch serves one playlist page.
//
// In fair order a request without a cursor opens a pass over the catalog and
// serves the least-exposed videos, charging each one exposure. Continuation
// pages select only among videos the pass has not served yet, and the cursor
// is omitted once every video has been served. Recent order is a plain keyset
// scan and never touches pick_count.
func (s *Service) Fetch(ctx context.Context, req Request) (Page, error) {
	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		return Page{}, err
	}
	order := req.Order
	if order == "" {
		order = OrderFair
	}

	var page Page
	switch order {
	case OrderFair:
		page, err = s.fetchFair(ctx, req.Cursor, limit)
	case OrderRecent:
		page, err = s.fetchRecent(ctx, req.Cursor, limit)
	default:
		return Page{}, apierror.NewValidationError("unsupported order %q", order)
	}
	if err != nil {
		return Page{}, err
	}
	metrics.ObservePlaylistServed(len(page.Videos))
	return page, nil
}

func (s *Service) fetchFair(ctx context.Context, token string, limit int) (Page, error) {
	cur, err := s.decodeFor(token, OrderFair)
	if err != nil {
		return Page{}, err
	}
	var started *time.Time
	if cur != nil {
		started = &cur.Timestamp
	}

	pass, err := s.selector.SelectPass(ctx, started, limit)
	if err != nil {
		return Page{}, err
	}
	page := Page{Videos: pass.Videos}
	if len(pass.Videos) > 0 && pass.Remaining > 0 {
		last := pass.Videos[len(pass.Videos)-1]
		page.NextCursor, err = s.codec.EncodePass(pass.Started, last.PickCount, last.ID)
		if err != nil {
			return Page{}, err
		}
	}
	return page, nil
}

func (s *Service) fetchRecent(ctx context.Context, token string, limit int) (Page, error) {
	cur, err := s.decodeFor(token, OrderRecent)
	if err != nil {
		return Page{}, err
	}
	var after *catalog.RecentKey
	if cur != nil {
		after = &catalog.RecentKey{CreatedAt: cur.Timestamp, ID: cur.ID}
	}

	videos, err := s.repo.ListRecent(ctx, after, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("list recent videos: %w", err)
	}
	page := Page{Videos: videos}
	if len(videos) > limit {
		page.Videos = videos[:limit]
		last := page.Videos[limit-1]
		page.NextCursor, err = s.codec.EncodeTimestamp(last.CreatedAt, last.ID)
		if err != nil {
			return Page{}, err
		}
	}
	if page.Videos == nil {
		page.Videos = []catalog.Video{}
	}
	return page, nil
}

// Exposure pages through the catalog by ascending pick_count without
// charging any exposure.
func (s *Service) Exposure(ctx context.Context, token string, limit int) (Page, error) {
	limit, err := s.resolveLimit(limit)
	if err != nil {
		return Page{}, err
	}
	cur, err := s.decodeFor(token, OrderExposure)
	if err != nil {
		return Page{}, err
	}
	var after *catalog.ExposureKey
	if cur != nil {
		after = &catalog.ExposureKey{PickCount: cur.PickCount, ID: cur.ID}
	}

	videos, err := s.repo.ListByExposure(ctx, after, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("list videos by exposure: %w", err)
	}
	page := Page{Videos: videos}
	if len(videos) > limit {
		page.Videos = videos[:limit]
		last := page.Videos[limit-1]
		page.NextCursor, err = s.codec.EncodePickCount(OrderExposure, last.PickCount, last.ID)
		if err != nil {
			return Page{}, err
		}
	}
	if page.Videos == nil {
		page.Videos = []catalog.Video{}
	}
	return page, nil
}
