package reactions

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
	"github.com/coachpo/swiperflix-gateway/pkg/common/models"
	"github.com/coachpo/swiperflix-gateway/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []map[string]interface{}
	types  []string
}

func (f *fakePublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, eventType)
	f.events = append(f.events, data)
	return nil
}

type fixture struct {
	videos  *catalog.Repository
	ledger  *Repository
	service *Service
	pub     *fakePublisher
	videoID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testsupport.OpenStore(t)
	videos := catalog.NewRepository(db)
	require.NoError(t, videos.AutoMigrate())
	ledger := NewRepository(db)
	require.NoError(t, ledger.AutoMigrate())

	_, err := videos.Upsert(context.Background(), catalog.Video{
		SourcePath: "/clips/a.mp4",
		Title:      "a.mp4",
		URL:        "http://files/clips/a.mp4",
	})
	require.NoError(t, err)

	pub := &fakePublisher{}
	return &fixture{
		videos:  videos,
		ledger:  ledger,
		service: NewService(ledger, pub),
		pub:     pub,
		videoID: catalog.DeriveID("/clips/a.mp4"),
	}
}

func TestRecordLikeIsDeduplicatedPerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := Submission{VideoID: f.videoID, SessionID: "s1", Type: TypeLike, Source: SourceButton}

	created, err := f.service.Record(ctx, sub)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.service.Record(ctx, sub)
	require.NoError(t, err)
	assert.False(t, created)

	sub.SessionID = "s2"
	created, err = f.service.Record(ctx, sub)
	require.NoError(t, err)
	assert.True(t, created)

	n, err := f.ledger.Count(ctx, f.videoID, TypeLike)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Len(t, f.pub.events, 2)
	assert.Equal(t, models.EventReactionRecorded, f.pub.types[0])
}

func TestRecordLikeAndDislikeAreDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, typ := range []string{TypeLike, TypeDislike, TypeLike} {
		_, err := f.service.Record(ctx, Submission{VideoID: f.videoID, SessionID: "s1", Type: typ})
		require.NoError(t, err)
	}

	events, err := f.ledger.ListByVideo(ctx, f.videoID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRecordAnonymousReactionsShareEmptySession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Record(ctx, Submission{VideoID: f.videoID, Type: TypeDislike})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.service.Record(ctx, Submission{VideoID: f.videoID, SessionID: "  ", Type: TypeDislike})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRecordImpressionsAlwaysCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := Submission{
		VideoID:   f.videoID,
		SessionID: "s1",
		Type:      TypeImpression,
		Payload:   map[string]interface{}{"watchedSeconds": 3.5, "completed": false},
	}

	for i := 0; i < 2; i++ {
		created, err := f.service.Record(ctx, sub)
		require.NoError(t, err)
		assert.True(t, created)
	}

	events, err := f.ledger.ListByVideo(ctx, f.videoID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, 3.5, payload["watchedSeconds"])
	assert.Equal(t, false, payload["completed"])
	assert.Nil(t, events[0].DedupKey)
}

func TestRecordNotPlayableDeduplicated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := func(reason string) Submission {
		return Submission{
			VideoID:   f.videoID,
			SessionID: "s1",
			Type:      TypeNotPlayable,
			Payload:   map[string]interface{}{"reason": reason},
		}
	}

	created, err := f.service.Record(ctx, sub("codec"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.service.Record(ctx, sub("network"))
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRecordUnknownVideo(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Record(context.Background(), Submission{VideoID: "missing", Type: TypeLike})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Empty(t, f.pub.events)
}

func TestRecordValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := map[string]Submission{
		"unknown type":        {VideoID: f.videoID, Type: "share"},
		"bad source":          {VideoID: f.videoID, Type: TypeLike, Source: "shake"},
		"negative watch time": {VideoID: f.videoID, Type: TypeImpression, Payload: map[string]interface{}{"watchedSeconds": -1.0, "completed": true}},
		"missing completed":   {VideoID: f.videoID, Type: TypeImpression, Payload: map[string]interface{}{"watchedSeconds": 1.0}},
		"empty reason":        {VideoID: f.videoID, Type: TypeNotPlayable, Payload: map[string]interface{}{"reason": " "}},
	}
	for name, sub := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Record(ctx, sub)
			assert.True(t, apierror.IsValidationError(err), "got %v", err)
		})
	}
}

func TestRecordConcurrentIdenticalLikesInsertOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.service.Record(ctx, Submission{VideoID: f.videoID, SessionID: "race", Type: TypeLike})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	n, err := f.ledger.Count(ctx, f.videoID, TypeLike)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRecordLeavesPickCountAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Record(ctx, Submission{VideoID: f.videoID, SessionID: "s", Type: TypeLike})
	require.NoError(t, err)
	_, err = f.service.Record(ctx, Submission{
		VideoID: f.videoID, SessionID: "s", Type: TypeNotPlayable,
		Payload: map[string]interface{}{"reason": "broken"},
	})
	require.NoError(t, err)

	v, err := f.videos.Get(ctx, f.videoID)
	require.NoError(t, err)
	assert.Zero(t, v.PickCount)
}
