package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWritePrometheusReportsCounters(t *testing.T) {
	Reset()
	ObservePlaylistServed(3)
	ObservePlaylistServed(2)
	ObserveReaction(true)
	ObserveReaction(false)
	ObserveSync(4, 1, nil)
	ObserveSync(0, 0, errors.New("down"))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	assert.Equal(t, "text/plain; version=0.0.4", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "swiperflix_playlist_requests_total 2\n")
	assert.Contains(t, body, "swiperflix_playlist_items_total 5\n")
	assert.Contains(t, body, "swiperflix_reactions_created_total 1\n")
	assert.Contains(t, body, "swiperflix_reactions_duplicate_total 1\n")
	assert.Contains(t, body, "swiperflix_sync_runs_total 2\n")
	assert.Contains(t, body, "swiperflix_sync_failures_total 1\n")
	assert.Contains(t, body, "swiperflix_sync_created_total 4\n")
	assert.Contains(t, body, "# TYPE swiperflix_sync_updated_total counter\n")
}
