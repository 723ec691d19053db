package gateway

import (
	"net/http"

	"github.com/coachpo/swiperflix-gateway/pkg/common/apierror"
	"github.com/coachpo/swiperflix-gateway/pkg/common/database"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/gateway/middleware"
	"github.com/coachpo/swiperflix-gateway/pkg/ingestion"
	"github.com/coachpo/swiperflix-gateway/pkg/observability/metrics"
	"github.com/coachpo/swiperflix-gateway/pkg/playlist"
	"github.com/coachpo/swiperflix-gateway/pkg/reactions"
	"github.com/coachpo/swiperflix-gateway/pkg/streaming"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const APIPrefix = "/api/v1"

// Deps holds everything the router mounts. Redis is optional.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client

	APIToken       string
	RateLimitRPS   int
	RateLimitBurst int
	MaxRequestBody int64

	Playlist  *playlist.HTTPHandler
	Reactions *reactions.HTTPHandler
	Streaming *streaming.HTTPHandler
	Sync      *ingestion.HTTPHandler
}

// NewRouter assembles the public API. Reads are open; reactions and admin
// routes sit behind the bearer check.
func NewRouter(deps Deps) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst))
	router.Use(middleware.BodyLimit(deps.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := database.Ping(r.Context(), deps.DB); err != nil {
			logger.Log.WithError(err).Warn("readiness check failed: database")
			apierror.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "component": "database"})
			return
		}
		if deps.Redis != nil {
			if err := deps.Redis.Ping(r.Context()).Err(); err != nil {
				logger.Log.WithError(err).Warn("readiness check failed: redis")
				apierror.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "component": "redis"})
				return
			}
		}
		apierror.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix(APIPrefix).Subrouter()
	if deps.Playlist != nil {
		deps.Playlist.Register(api)
	}
	if deps.Streaming != nil {
		deps.Streaming.Register(api)
	}

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.RequireBearer(deps.APIToken))
	if deps.Reactions != nil {
		deps.Reactions.Register(protected)
	}
	if deps.Sync != nil {
		deps.Sync.Register(protected)
	}
	if deps.Playlist != nil {
		deps.Playlist.RegisterAdmin(protected)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, http.StatusNotFound, apierror.CodeRouteNotFound, "no such route")
	})

	return router
}
