package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/config"
	"github.com/coachpo/swiperflix-gateway/pkg/common/database"
	"github.com/coachpo/swiperflix-gateway/pkg/common/kafka"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/gateway"
	"github.com/coachpo/swiperflix-gateway/pkg/ingestion"
	"github.com/coachpo/swiperflix-gateway/pkg/openlist"
	"github.com/coachpo/swiperflix-gateway/pkg/playlist"
	"github.com/coachpo/swiperflix-gateway/pkg/reactions"
	"github.com/coachpo/swiperflix-gateway/pkg/streaming"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger.Init()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to open record store")
	}
	defer database.Close(db)

	videos := catalog.NewRepository(db)
	if err := videos.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate video tables")
	}
	ledger := reactions.NewRepository(db)
	if err := ledger.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate reaction tables")
	}

	redisClient := database.OpenRedis(cfg)
	defer database.CloseRedis(redisClient)

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
	defer producer.Close()
	var publisher kafka.Publisher
	if producer != nil {
		publisher = producer
	}

	if cfg.APIToken == "" {
		logger.Log.Warn("API_TOKEN is empty, mutating routes are unauthenticated")
	}

	client := openlist.NewClient(ctx, cfg.OpenList)
	reconciler := ingestion.NewReconciler(videos, client, cfg.OpenList.DirPath, publisher)

	var (
		links streaming.LinkSource
		cache streaming.URLCache
	)
	if cfg.StreamResolveLive {
		links = client
		if redisClient != nil {
			cache = streaming.NewRedisCache(redisClient)
		}
	}

	codec := playlist.NewCodec(cfg.CursorSecret)
	playlists := playlist.NewService(videos, playlist.NewSelector(videos), codec, cfg.PlaylistDefaultLimit, cfg.PlaylistMaxLimit)

	router := gateway.NewRouter(gateway.Deps{
		DB:             db,
		Redis:          redisClient,
		APIToken:       cfg.APIToken,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxRequestBody: cfg.MaxRequestBody,
		Playlist:       playlist.NewHTTPHandler(playlists),
		Reactions:      reactions.NewHTTPHandler(reactions.NewService(ledger, publisher), cfg.MaxRequestBody),
		Streaming:      streaming.NewHTTPHandler(streaming.NewResolver(videos, links, cache, cfg.StreamCacheTTL)),
		Sync:           ingestion.NewHTTPHandler(reconciler, cfg.MaxRequestBody),
	})

	if cfg.SyncOnStartup {
		seed, err := ingestion.LoadSeed(cfg.SeedFile)
		if err != nil {
			logger.Log.WithError(err).Warn("failed to load seed file, using built-in catalogue")
			seed = ingestion.DefaultSeed()
		}
		_, seeded, err := ingestion.SyncOrSeed(ctx, videos, reconciler, "", seed)
		if err != nil {
			logger.Log.WithError(err).WithField("seeded", seeded).Warn("startup sync failed, serving existing catalogue")
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Swiperflix gateway started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	if cfg.SyncInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if _, _, err := reconciler.ReconcileShared(gctx, ""); err != nil {
						logger.Log.WithError(err).Warn("periodic sync failed")
					}
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down Swiperflix gateway...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("gateway exited with error")
	}
	logger.Log.Info("Swiperflix gateway stopped")
}
