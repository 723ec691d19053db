package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/models"
	"github.com/coachpo/swiperflix-gateway/pkg/ingestion"
	"github.com/coachpo/swiperflix-gateway/pkg/openlist"
	"github.com/coachpo/swiperflix-gateway/pkg/playlist"
	"github.com/coachpo/swiperflix-gateway/pkg/reactions"
	"github.com/coachpo/swiperflix-gateway/pkg/streaming"
	"github.com/coachpo/swiperflix-gateway/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	entries []openlist.Entry
}

func (s staticLister) List(context.Context, string) ([]openlist.Entry, error) {
	return s.entries, nil
}

func (s staticLister) FileURL(p string) string {
	return "http://files" + p
}

const token = "test-token"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := testsupport.OpenStore(t)
	videos := catalog.NewRepository(db)
	require.NoError(t, videos.AutoMigrate())
	ledger := reactions.NewRepository(db)
	require.NoError(t, ledger.AutoMigrate())

	lister := staticLister{entries: []openlist.Entry{
		{Path: "/videos/a.mp4", Name: "a.mp4"},
		{Path: "/videos/b.mp4", Name: "b.mp4"},
		{Path: "/videos/c.mp4", Name: "c.mp4"},
	}}
	reconciler := ingestion.NewReconciler(videos, lister, "/videos", nil)
	codec := playlist.NewCodec("secret")
	playlists := playlist.NewService(videos, playlist.NewSelector(videos), codec, 20, 50)

	router := NewRouter(Deps{
		DB:             db,
		APIToken:       token,
		MaxRequestBody: 1 << 20,
		Playlist:       playlist.NewHTTPHandler(playlists),
		Reactions:      reactions.NewHTTPHandler(reactions.NewService(ledger, nil), 1<<16),
		Streaming:      streaming.NewHTTPHandler(streaming.NewResolver(videos, nil, nil, 0)),
		Sync:           ingestion.NewHTTPHandler(reconciler, 1<<16),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, authorized bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if authorized {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthReadyAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/health", "", false).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/ready", "", false).StatusCode)

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+APIPrefix+"/admin/sync", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+APIPrefix+"/videos/x/like", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+APIPrefix+"/admin/videos", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+APIPrefix+"/playlist", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSyncPlaylistReactStream(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+APIPrefix+"/admin/sync", `{}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var synced models.SyncResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&synced))
	assert.Equal(t, 3, synced.Created)

	resp = do(t, http.MethodGet, srv.URL+APIPrefix+"/playlist?limit=2", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page models.PlaylistResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)

	item := page.Items[0]
	resp = do(t, http.MethodPost, srv.URL+APIPrefix+"/videos/"+item.ID+"/like", `{"sessionId":"s1"}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reacted models.ReactionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reacted))
	assert.True(t, reacted.Created)

	resp = do(t, http.MethodGet, srv.URL+item.URL, "", false)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "http://files/videos/"))

	resp = do(t, http.MethodGet, srv.URL+APIPrefix+"/admin/videos?limit=5", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report models.ExposureResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.Items, 3)
	assert.Zero(t, report.Items[0].PickCount)
	assert.EqualValues(t, 1, report.Items[2].PickCount)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/nope", "", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
