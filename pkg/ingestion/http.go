package ingestion

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/common/models"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	reconciler *Reconciler
	maxBody    int64
}

func NewHTTPHandler(reconciler *Reconciler, maxBody int64) *HTTPHandler {
	return &HTTPHandler{reconciler: reconciler, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/admin/sync", h.handleSync).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Log.WithError(err).Warn("invalid sync payload")
		apierror.Write(w, http.StatusBadRequest, apierror.CodeValidation, "invalid request body")
		return
	}

	res, shared, err := h.reconciler.ReconcileShared(r.Context(), req.Dir)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			apierror.WriteRetryable(w, http.StatusServiceUnavailable, apierror.CodeOpenListUnavailable, "openlist is unavailable")
			return
		}
		logger.Log.WithError(err).Error("sync failed")
		apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "internal error")
		return
	}
	if shared {
		logger.Log.WithField("dir", res.Dir).Debug("sync request joined a running sync")
	}

	apierror.WriteJSON(w, http.StatusOK, models.SyncResponse{
		Dir:     res.Dir,
		Fetched: res.Fetched,
		Created: res.Created,
		Updated: res.Updated,
	})
}
