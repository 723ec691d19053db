package streaming

import (
	"errors"
	"net/http"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	resolver *Resolver
}

func NewHTTPHandler(resolver *Resolver) *HTTPHandler {
	return &HTTPHandler{resolver: resolver}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/videos/{id}/stream", h.handleStream).Methods(http.MethodGet, http.MethodHead)
}

func (h *HTTPHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	url, err := h.resolver.Resolve(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			apierror.Write(w, http.StatusNotFound, apierror.CodeVideoNotFound, "video not found")
		case errors.Is(err, ErrLinkUnavailable):
			logger.Log.WithError(err).WithField("video_id", id).Warn("failed to resolve stream link")
			apierror.WriteRetryable(w, http.StatusBadGateway, apierror.CodeOpenListLink, "failed to resolve download url")
		default:
			logger.Log.WithError(err).Error("failed to resolve stream")
			apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "internal error")
		}
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
