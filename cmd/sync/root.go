package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"github.com/coachpo/swiperflix-gateway/pkg/common/config"
	"github.com/coachpo/swiperflix-gateway/pkg/common/database"
	"github.com/coachpo/swiperflix-gateway/pkg/common/kafka"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/ingestion"
	"github.com/coachpo/swiperflix-gateway/pkg/openlist"
	"github.com/spf13/cobra"
)

type syncOptions struct {
	dir         string
	seedIfEmpty bool
	seedFile    string
}

func newRootCommand() *cobra.Command {
	opts := &syncOptions{}
	cmd := &cobra.Command{
		Use:           "swiperflix-sync",
		Short:         "Reconcile the OpenList directory into the local video catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSync(ctx, cmd.OutOrStdout(), config.Load(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory to sync (defaults to OPENLIST_DIR_PATH)")
	cmd.Flags().BoolVar(&opts.seedIfEmpty, "seed-if-empty", false, "store the fallback catalogue when OpenList is unreachable and no videos exist")
	cmd.Flags().StringVar(&opts.seedFile, "seed-file", "", "YAML fallback catalogue (defaults to SEED_FILE)")
	return cmd
}

func runSync(ctx context.Context, out io.Writer, cfg *config.Config, opts *syncOptions) error {
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer database.Close(db)

	videos := catalog.NewRepository(db)
	if err := videos.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate video tables: %w", err)
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
	defer producer.Close()
	var publisher kafka.Publisher
	if producer != nil {
		publisher = producer
	}

	reconciler := ingestion.NewReconciler(videos, openlist.NewClient(ctx, cfg.OpenList), cfg.OpenList.DirPath, publisher)
	logger.Log.WithField("dir", opts.dir).Info("fetching entries from OpenList")

	var (
		res    ingestion.Result
		seeded int
	)
	if opts.seedIfEmpty {
		seedFile := opts.seedFile
		if seedFile == "" {
			seedFile = cfg.SeedFile
		}
		seed, loadErr := ingestion.LoadSeed(seedFile)
		if loadErr != nil {
			return fmt.Errorf("load seed: %w", loadErr)
		}
		res, seeded, err = ingestion.SyncOrSeed(ctx, videos, reconciler, opts.dir, seed)
	} else {
		res, err = reconciler.Reconcile(ctx, opts.dir)
	}

	fmt.Fprintln(out, renderSummary(res, seeded))

	if errors.Is(err, ingestion.ErrUnavailable) && seeded > 0 {
		logger.Log.WithError(err).Warn("OpenList unavailable, fallback catalogue stored")
		return nil
	}
	return err
}
