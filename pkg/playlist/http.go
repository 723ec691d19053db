package playlist

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/common/models"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/playlist", h.handlePlaylist).Methods(http.MethodGet)
}

// RegisterAdmin mounts the read-only exposure report.
func (h *HTTPHandler) RegisterAdmin(router *mux.Router) {
	router.HandleFunc("/admin/videos", h.handleExposure).Methods(http.MethodGet)
}

// StreamPath is the playback path handed to clients for a video.
func StreamPath(id string) string {
	return "/api/v1/videos/" + id + "/stream"
}

func (h *HTTPHandler) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}
	order, ok := ParseOrder(q.Get("order"))
	if !ok {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeValidation, "order must be fair or recent")
		return
	}

	page, err := h.service.Fetch(r.Context(), Request{Limit: limit, Cursor: q.Get("cursor"), Order: order})
	if err != nil {
		writeError(w, err, "failed to fetch playlist")
		return
	}

	resp := models.PlaylistResponse{Items: make([]models.VideoItem, 0, len(page.Videos))}
	for _, v := range page.Videos {
		resp.Items = append(resp.Items, toItem(v))
	}
	if page.NextCursor != "" {
		resp.NextCursor = &page.NextCursor
	}
	apierror.WriteJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleExposure(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}

	page, err := h.service.Exposure(r.Context(), q.Get("cursor"), limit)
	if err != nil {
		writeError(w, err, "failed to list exposure")
		return
	}

	resp := models.ExposureResponse{Items: make([]models.ExposureItem, 0, len(page.Videos))}
	for _, v := range page.Videos {
		resp.Items = append(resp.Items, models.ExposureItem{
			ID:         v.ID,
			Title:      v.Title,
			SourcePath: v.SourcePath,
			PickCount:  v.PickCount,
			CreatedAt:  v.CreatedAt,
		})
	}
	if page.NextCursor != "" {
		resp.NextCursor = &page.NextCursor
	}
	apierror.WriteJSON(w, http.StatusOK, resp)
}

func parseLimit(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeValidation, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

func writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrInvalidCursor):
		apierror.Write(w, http.StatusBadRequest, apierror.CodeBadCursor, "invalid cursor")
	case apierror.IsValidationError(err):
		apierror.Write(w, http.StatusBadRequest, apierror.CodeValidation, err.Error())
	default:
		logger.Log.WithError(err).Error(msg)
		apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "internal error")
	}
}

func toItem(v catalog.Video) models.VideoItem {
	return models.VideoItem{
		ID:          v.ID,
		URL:         StreamPath(v.ID),
		Cover:       v.Cover,
		Title:       v.Title,
		Duration:    v.Duration,
		Orientation: v.Orientation,
	}
}
