package reactions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coachpo/swiperflix-gateway/pkg/common/kafka"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/common/models"
	"github.com/coachpo/swiperflix-gateway/pkg/observability/metrics"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const eventSource = "reactions"

type Service struct {
	repo      *Repository
	publisher kafka.Publisher
}

func NewService(repo *Repository, publisher kafka.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Record appends a reaction to the ledger. created is false when an
// identical like, dislike or not-playable report already exists for the
// session. Unknown videos fail with catalog.ErrNotFound.
func (s *Service) Record(ctx context.Context, sub Submission) (bool, error) {
	sub.Type = normalizeType(sub.Type)
	sub.SessionID = strings.TrimSpace(sub.SessionID)
	sub.Source = strings.ToLower(strings.TrimSpace(sub.Source))
	if err := Validate(sub); err != nil {
		return false, err
	}

	payload := sub.Payload
	if sub.Source != "" {
		if payload == nil {
			payload = map[string]interface{}{}
		}
		payload["source"] = sub.Source
	}
	var raw datatypes.JSON
	if len(payload) > 0 {
		b, err := json.Marshal(payload)
		if err != nil {
			return false, fmt.Errorf("encode payload: %w", err)
		}
		raw = datatypes.JSON(b)
	}

	ev := &Event{
		ID:        uuid.New().String(),
		VideoID:   sub.VideoID,
		SessionID: sub.SessionID,
		Type:      sub.Type,
		DedupKey:  dedupKey(sub.Type, sub.SessionID),
		Payload:   raw,
	}
	created, err := s.repo.Insert(ctx, ev)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", describe(sub), err)
	}
	metrics.ObserveReaction(created)

	logger.Log.WithFields(map[string]interface{}{
		"video_id": sub.VideoID,
		"type":     sub.Type,
		"created":  created,
	}).Debug("reaction recorded")

	if created {
		kafka.Publish(ctx, s.publisher, models.EventReactionRecorded, eventSource, map[string]interface{}{
			"event_id":   ev.ID,
			"video_id":   ev.VideoID,
			"session_id": ev.SessionID,
			"type":       ev.Type,
			"payload":    payload,
		})
	}
	return created, nil
}
