package reactions

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/common/models"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/videos/{id}/like", h.handleReaction(TypeLike)).Methods(http.MethodPost)
	router.HandleFunc("/videos/{id}/dislike", h.handleReaction(TypeDislike)).Methods(http.MethodPost)
	router.HandleFunc("/videos/{id}/impression", h.handleImpression).Methods(http.MethodPost)
	router.HandleFunc("/videos/{id}/not-playable", h.handleNotPlayable).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleReaction(eventType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ReactionRequest
		if !h.decode(w, r, &req, true) {
			return
		}
		payload := map[string]interface{}{}
		addTimestamp(payload, req.Timestamp)
		h.record(w, r, Submission{
			VideoID:   mux.Vars(r)["id"],
			SessionID: req.SessionID,
			Type:      eventType,
			Source:    req.Source,
			Payload:   payload,
		})
	}
}

func (h *HTTPHandler) handleImpression(w http.ResponseWriter, r *http.Request) {
	var req models.ImpressionRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	payload := map[string]interface{}{}
	if req.WatchedSeconds != nil {
		payload["watchedSeconds"] = *req.WatchedSeconds
	}
	if req.Completed != nil {
		payload["completed"] = *req.Completed
	}
	h.record(w, r, Submission{
		VideoID:   mux.Vars(r)["id"],
		SessionID: req.SessionID,
		Type:      TypeImpression,
		Payload:   payload,
	})
}

func (h *HTTPHandler) handleNotPlayable(w http.ResponseWriter, r *http.Request) {
	var req models.NotPlayableRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	payload := map[string]interface{}{"reason": req.Reason}
	addTimestamp(payload, req.Timestamp)
	h.record(w, r, Submission{
		VideoID:   mux.Vars(r)["id"],
		SessionID: req.SessionID,
		Type:      TypeNotPlayable,
		Payload:   payload,
	})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	logger.Log.WithError(err).Warn("invalid reaction payload")
	apierror.Write(w, http.StatusBadRequest, apierror.CodeValidation, "invalid request body")
	return false
}

func (h *HTTPHandler) record(w http.ResponseWriter, r *http.Request, sub Submission) {
	created, err := h.service.Record(r.Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			apierror.Write(w, http.StatusNotFound, apierror.CodeVideoNotFound, "video not found")
		case apierror.IsValidationError(err):
			apierror.Write(w, http.StatusBadRequest, apierror.CodeValidation, err.Error())
		default:
			logger.Log.WithError(err).Error("failed to record reaction")
			apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "internal error")
		}
		return
	}
	apierror.WriteJSON(w, http.StatusOK, models.ReactionResponse{OK: true, Created: created})
}

func addTimestamp(payload map[string]interface{}, ts *time.Time) {
	if ts != nil {
		payload["timestamp"] = ts.UTC().Format(time.RFC3339Nano)
	}
}
