package reactions

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
)

const (
	maxSessionIDLength = 128
	maxReasonLength    = 512
)

var (
	errUnknownType   = errors.New("unknown reaction type")
	errInvalidSource = errors.New("invalid source")
)

// Submission is a validated-or-not reaction before it reaches the ledger.
type Submission struct {
	VideoID   string
	SessionID string
	Type      string
	Source    string
	Payload   map[string]interface{}
}

func Validate(s Submission) error {
	if strings.TrimSpace(s.VideoID) == "" {
		return apierror.NewValidationError("video id required")
	}
	if len(s.SessionID) > maxSessionIDLength {
		return apierror.NewValidationError("sessionId longer than %d characters", maxSessionIDLength)
	}

	switch s.Type {
	case TypeLike, TypeDislike, TypeNotPlayable:
	case TypeImpression:
		return validateImpression(s.Payload)
	default:
		return apierror.NewValidationError("%w: %q", errUnknownType, s.Type)
	}

	if s.Source != "" {
		switch s.Source {
		case SourceScroll, SourceButton, SourceSwipe:
		default:
			return apierror.NewValidationError("%w: %q", errInvalidSource, s.Source)
		}
	}
	if s.Type == TypeNotPlayable {
		reason, _ := s.Payload["reason"].(string)
		if strings.TrimSpace(reason) == "" {
			return apierror.NewValidationError("reason required")
		}
		if len(reason) > maxReasonLength {
			return apierror.NewValidationError("reason longer than %d characters", maxReasonLength)
		}
	}
	return nil
}

func validateImpression(payload map[string]interface{}) error {
	watched, ok := payload["watchedSeconds"].(float64)
	if !ok {
		return apierror.NewValidationError("watchedSeconds required")
	}
	if watched < 0 || math.IsNaN(watched) || math.IsInf(watched, 0) {
		return apierror.NewValidationError("watchedSeconds must be a non-negative number")
	}
	if _, ok := payload["completed"].(bool); !ok {
		return apierror.NewValidationError("completed required")
	}
	return nil
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func describe(s Submission) string {
	return fmt.Sprintf("%s on %s", s.Type, s.VideoID)
}
