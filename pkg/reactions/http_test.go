package reactions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
	"github.com/coachpo/swiperflix-gateway/pkg/common/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, router http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(t *testing.T) (*mux.Router, *fixture) {
	t.Helper()
	f := newFixture(t)
	router := mux.NewRouter()
	NewHTTPHandler(f.service, 1024).Register(router)
	return router, f
}

func decodeReaction(t *testing.T, rec *httptest.ResponseRecorder) models.ReactionResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.ReactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	return resp
}

func TestHandleLike(t *testing.T) {
	router, f := newTestRouter(t)
	target := "/videos/" + f.videoID + "/like"
	body := `{"source":"swipe","timestamp":"2024-05-01T10:00:00Z","sessionId":"abc"}`

	assert.True(t, decodeReaction(t, post(t, router, target, body)).Created)
	assert.False(t, decodeReaction(t, post(t, router, target, body)).Created)
}

func TestHandleDislikeAcceptsEmptyBody(t *testing.T) {
	router, f := newTestRouter(t)

	resp := decodeReaction(t, post(t, router, "/videos/"+f.videoID+"/dislike", ""))
	assert.True(t, resp.Created)
}

func TestHandleImpression(t *testing.T) {
	router, f := newTestRouter(t)
	target := "/videos/" + f.videoID + "/impression"
	body := `{"watchedSeconds":12.5,"completed":true}`

	assert.True(t, decodeReaction(t, post(t, router, target, body)).Created)
	assert.True(t, decodeReaction(t, post(t, router, target, body)).Created)

	rec := post(t, router, target, `{"watchedSeconds":-2,"completed":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNotPlayable(t *testing.T) {
	router, f := newTestRouter(t)
	target := "/videos/" + f.videoID + "/not-playable"

	assert.True(t, decodeReaction(t, post(t, router, target, `{"reason":"404 from origin","sessionId":"s"}`)).Created)
	assert.False(t, decodeReaction(t, post(t, router, target, `{"reason":"again","sessionId":"s"}`)).Created)
}

func TestHandleReactionErrors(t *testing.T) {
	router, f := newTestRouter(t)

	rec := post(t, router, "/videos/unknown/like", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body apierror.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierror.CodeVideoNotFound, body.Error.Code)

	rec = post(t, router, "/videos/"+f.videoID+"/like", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, router, "/videos/"+f.videoID+"/like", `{"sessionId":"`+strings.Repeat("x", 2048)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
