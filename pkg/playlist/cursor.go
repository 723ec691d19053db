package playlist

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

const cursorVersion = 1

// Order names the scan a cursor belongs to. Tokens are only valid for the
// ordering that issued them.
type Order string

const (
	// OrderFair serves least-exposed videos first (pass start plus pick_count key).
	OrderFair Order = "fair"
	// OrderRecent scans newest first (created_at key).
	OrderRecent Order = "recent"
	// OrderExposure is the read-only report scan (pick_count key).
	OrderExposure Order = "exposure"
)

func ParseOrder(s string) (Order, bool) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderFair:
		return OrderFair, true
	case OrderRecent:
		return OrderRecent, true
	default:
		return "", false
	}
}

func (o Order) carriesTimestamp() bool {
	return o == OrderRecent || o == OrderFair
}

func (o Order) carriesPickCount() bool {
	return o == OrderFair || o == OrderExposure
}

func (o Order) valid() bool {
	return o == OrderFair || o == OrderRecent || o == OrderExposure
}

// Cursor is the resume position carried by a token: the sort key of the last
// item on the previous page plus its id as tie-break. In fair order Timestamp
// holds the start of the pass being paged.
type Cursor struct {
	Order     Order
	Timestamp time.Time
	PickCount int64
	ID        string
}

type envelope struct {
	Version   int    `json:"v"`
	Order     Order  `json:"o"`
	Timestamp string `json:"t,omitempty"`
	PickCount *int64 `json:"p,omitempty"`
	ID        string `json:"id"`
}

// Codec turns cursors into opaque signed tokens. Any instance sharing the
// secret can decode any token; no server-side state is kept.
type Codec struct {
	key []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{key: []byte(secret)}
}

func (c *Codec) Encode(cur Cursor) (string, error) {
	if !cur.Order.valid() {
		return "", fmt.Errorf("encode cursor: unknown order %q", cur.Order)
	}
	if cur.ID == "" {
		return "", errors.New("encode cursor: id required")
	}

	env := envelope{Version: cursorVersion, Order: cur.Order, ID: cur.ID}
	if cur.Order.carriesTimestamp() {
		if cur.Timestamp.IsZero() {
			return "", errors.New("encode cursor: timestamp required")
		}
		env.Timestamp = cur.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if cur.Order.carriesPickCount() {
		if cur.PickCount < 0 {
			return "", errors.New("encode cursor: negative pick count")
		}
		pc := cur.PickCount
		env.PickCount = &pc
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + c.sign(payload), nil
}

func (c *Codec) EncodeTimestamp(t time.Time, id string) (string, error) {
	return c.Encode(Cursor{Order: OrderRecent, Timestamp: t, ID: id})
}

func (c *Codec) EncodePickCount(order Order, pickCount int64, id string) (string, error) {
	return c.Encode(Cursor{Order: order, PickCount: pickCount, ID: id})
}

// EncodePass encodes a fair-order continuation for the pass that started at
// started.
func (c *Codec) EncodePass(started time.Time, pickCount int64, id string) (string, error) {
	return c.Encode(Cursor{Order: OrderFair, Timestamp: started, PickCount: pickCount, ID: id})
}

// Decode verifies and unpacks a token. Every failure wraps ErrInvalidCursor.
func (c *Codec) Decode(token string) (Cursor, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return Cursor{}, invalid("malformed token")
	}
	if !hmac.Equal([]byte(sig), []byte(c.sign(payload))) {
		return Cursor{}, invalid("signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Cursor{}, invalid("payload encoding")
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Cursor{}, invalid("payload json")
	}
	if env.Version != cursorVersion {
		return Cursor{}, invalid(fmt.Sprintf("unsupported version %d", env.Version))
	}
	if !env.Order.valid() {
		return Cursor{}, invalid("unknown order")
	}
	if env.ID == "" {
		return Cursor{}, invalid("missing id")
	}

	cur := Cursor{Order: env.Order, ID: env.ID}
	if env.Order.carriesTimestamp() {
		t, err := time.Parse(time.RFC3339Nano, env.Timestamp)
		if err != nil {
			return Cursor{}, invalid("timestamp")
		}
		cur.Timestamp = t.UTC()
	}
	if env.Order.carriesPickCount() {
		if env.PickCount == nil || *env.PickCount < 0 {
			return Cursor{}, invalid("pick count")
		}
		cur.PickCount = *env.PickCount
	}
	return cur, nil
}

func (c *Codec) sign(payload string) string {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidCursor, reason)
}
