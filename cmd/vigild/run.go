package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vigilops/claude-vigil/internal/collector"
	"github.com/vigilops/claude-vigil/internal/config"
	"github.com/vigilops/claude-vigil/internal/daemon"
	"github.com/vigilops/claude-vigil/internal/hooklog"
	"github.com/vigilops/claude-vigil/internal/metrics"
	"github.com/vigilops/claude-vigil/internal/notify"
	"github.com/vigilops/claude-vigil/internal/server"
	"github.com/vigilops/claude-vigil/internal/snapshot"
	"github.com/vigilops/claude-vigil/internal/store"
	"github.com/vigilops/claude-vigil/internal/tracker"
	"github.com/vigilops/claude-vigil/internal/watcher"
)

// execPoolSize bounds concurrent subprocesses shared by the collector and
// the notifier.
const execPoolSize = 2

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring daemon in the foreground",
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := loadConfig()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}

	if err := config.EnsureDataDir(); err != nil {
		return err
	}

	metrics.Register()
	daemonID := uuid.NewString()

	pool := collector.NewExecPool(execPoolSize)
	col := collector.New(cfg, pool, version, daemonID)
	trk := tracker.New(hooklog.NewParser(), config.ActivityLogPath())
	notifier := notify.New(pool)
	writer := snapshot.NewWriter(config.SnapshotPath())

	st, err := store.NewStore(store.Config{Path: config.DBPath(), MaxConns: 4, WALMode: true})
	if err != nil {
		return err
	}
	defer st.Close()
	archive := store.NewSnapshotStore(st)

	d := daemon.New(cfg, col, trk, writer, notifier, archive, pool)

	// Refresh activity sessions as soon as a hook appends to the log instead
	// of waiting out the collection interval.
	logWatcher, err := watcher.New(config.ActivityLogPath(), func() {
		if err := trk.Refresh(false); err != nil {
			log.Warn().Err(err).Msg("Activity refresh after log change failed")
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create activity log watcher")
	} else {
		if err := logWatcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start activity log watcher")
		}
		defer logWatcher.Stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	srv := server.New(cfg.ServerAddr, d, trk)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	d.Start()
	log.Info().Str("daemonId", daemonID).Str("version", version).Msg("claude-vigil daemon started")

	<-gctx.Done()
	d.Stop()

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Status server error")
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}
