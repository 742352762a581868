// Package daemon implements the monitoring daemon: lifecycle of the single
// background worker and the periodic data collection cycle.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigilops/claude-vigil/internal/config"
	"github.com/vigilops/claude-vigil/internal/metrics"
	"github.com/vigilops/claude-vigil/pkg/models"
)

const (
	// tick is how often the worker polls the stop signal; it bounds
	// shutdown latency.
	tick = 100 * time.Millisecond

	// errorBackoff is slept after a cycle panic so a persistent failure
	// cannot hot-loop the worker.
	errorBackoff = time.Second

	// joinTimeout bounds how long Stop waits for the worker to exit.
	joinTimeout = 5 * time.Second

	// poolShutdownTimeout bounds the best-effort exec pool shutdown.
	poolShutdownTimeout = 5 * time.Second

	// failureThreshold is how many consecutive collection failures are
	// tolerated before an error notification goes out.
	failureThreshold = 5

	// longSessionMinutes is when the inactivity heuristic starts
	// considering a session potentially inactive.
	longSessionMinutes = 60
)

// UsageCollector fetches usage data and owns the failure counter.
type UsageCollector interface {
	Collect(ctx context.Context) (*models.MonitoringSnapshot, error)
	ErrorStatus() *models.ErrorStatus
	UpdateMaxTokensIfHigher(tokens int) bool
	ConsecutiveFailures() int
}

// ActivityTracker maintains consolidated activity sessions.
type ActivityTracker interface {
	Refresh(force bool) error
	CleanupOldSessions()
	CleanupCompletedBillingSessions()
	ActiveSessions() []models.ActivitySession
}

// SnapshotWriter persists snapshots for the display client.
type SnapshotWriter interface {
	Write(snap *models.MonitoringSnapshot) error
}

// Notifier delivers fire-and-forget alerts.
type Notifier interface {
	SendTimeWarning(minutesRemaining int)
	SendInactivityAlert(minutesInactive int)
	SendErrorNotification(message string)
}

// Archiver records snapshot history; optional.
type Archiver interface {
	Insert(ctx context.Context, snap *models.MonitoringSnapshot) error
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// PoolShutdowner releases the shared subprocess pool on stop.
type PoolShutdowner interface {
	Shutdown(timeout time.Duration) error
}

// Daemon runs the monitoring loop on exactly one background goroutine.
// Start and Stop are safe to call from any goroutine, including the signal
// handler.
type Daemon struct {
	cfg       *config.Config
	collector UsageCollector
	tracker   ActivityTracker
	writer    SnapshotWriter
	notifier  Notifier
	archive   Archiver
	pool      PoolShutdowner

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	snapMu   sync.RWMutex
	lastSnap *models.MonitoringSnapshot

	errorNotified bool

	now func() time.Time
}

// New creates a daemon and registers its signal handlers. SIGINT and SIGTERM
// trigger a graceful Stop; the handler itself only forwards the signal, all
// teardown happens on the goroutine that owns it.
func New(cfg *config.Config, collector UsageCollector, tracker ActivityTracker,
	writer SnapshotWriter, notifier Notifier, archive Archiver, pool PoolShutdowner) *Daemon {
	d := &Daemon{
		cfg:       cfg,
		collector: collector,
		tracker:   tracker,
		writer:    writer,
		notifier:  notifier,
		archive:   archive,
		pool:      pool,
		now:       time.Now,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigCh {
			log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down gracefully")
			d.Stop()
		}
	}()

	return d
}

// Start launches the background worker. Calling Start while running is a no-op.
func (d *Daemon) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		log.Warn().Msg("Daemon is already running")
		return
	}

	log.Info().Int("intervalSeconds", d.cfg.CollectionIntervalSeconds).Msg("Starting daemon")
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.loop(d.stopCh, d.doneCh)
}

// Stop signals the worker and waits up to joinTimeout for it to exit, then
// releases the shared exec pool. Calling Stop while stopped is a no-op.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	log.Info().Msg("Stopping daemon")
	d.running = false
	close(d.stopCh)
	done := d.doneCh
	d.mu.Unlock()

	// Join outside the mutex so a stuck worker cannot deadlock callers.
	select {
	case <-done:
		log.Info().Msg("Daemon stopped")
	case <-time.After(joinTimeout):
		log.Warn().Dur("timeout", joinTimeout).Msg("Daemon worker did not stop within timeout")
	}

	if d.pool != nil {
		if err := d.pool.Shutdown(poolShutdownTimeout); err != nil {
			log.Error().Err(err).Msg("Error shutting down exec pool")
		}
	}
}

// Running reports whether the worker is active.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// LatestSnapshot returns the most recent successfully collected snapshot.
func (d *Daemon) LatestSnapshot() *models.MonitoringSnapshot {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	return d.lastSnap
}

// loop is the worker body. It polls the stop signal every tick and runs one
// collection cycle whenever the configured interval has elapsed. A failing
// cycle never terminates the loop.
func (d *Daemon) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	log.Info().Msg("Daemon worker started")

	interval := d.cfg.CollectionInterval()
	var lastCycle time.Time

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			log.Info().Msg("Daemon worker stopped")
			return
		case <-ticker.C:
			if d.now().Sub(lastCycle) < interval {
				continue
			}
			lastCycle = d.now()
			if ok := d.safeCycle(); !ok {
				select {
				case <-stopCh:
					log.Info().Msg("Daemon worker stopped")
					return
				case <-time.After(errorBackoff):
				}
			}
		}
	}
}

// safeCycle runs one cycle with panic containment. It reports false when the
// cycle panicked and the loop should back off.
func (d *Daemon) safeCycle() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Panic in collection cycle")
			ok = false
		}
	}()
	d.runCycle()
	return true
}

// runCycle performs one collection cycle: collect, persist, archive, clean
// up, and evaluate notification conditions. Every step after collection is
// best-effort; failures are logged and the cycle continues.
func (d *Daemon) runCycle() {
	started := d.now()
	ctx := context.Background()

	snap, err := d.collector.Collect(ctx)
	if err != nil {
		metrics.CollectionFailuresTotal.Inc()
		d.handleCollectFailure(err)
		return
	}
	d.errorNotified = false

	// Fold the tracker's consolidated activity sessions into the snapshot
	// before it is handed to the persistence boundary.
	if err := d.tracker.Refresh(false); err != nil {
		log.Warn().Err(err).Msg("Activity refresh failed, continuing with last known sessions")
	}
	snap.ActivitySessions = d.tracker.ActiveSessions()

	d.snapMu.Lock()
	d.lastSnap = snap
	d.snapMu.Unlock()

	log.Info().
		Int("usageSessions", len(snap.CurrentSessions)).
		Int("activitySessions", len(snap.ActivitySessions)).
		Float64("totalCost", snap.TotalCostThisMonth).
		Msg("Collected monitoring data")

	if err := d.writer.Write(snap); err != nil {
		log.Error().Err(err).Msg("Failed to persist snapshot")
	}

	if d.archive != nil {
		if err := d.archive.Insert(ctx, snap); err != nil {
			log.Error().Err(err).Msg("Failed to archive snapshot")
		}
		cutoff := d.now().Add(-time.Duration(d.cfg.HistoryRetentionDays) * 24 * time.Hour)
		if _, err := d.archive.Prune(ctx, cutoff); err != nil {
			log.Error().Err(err).Msg("Failed to prune snapshot history")
		}
	}

	d.tracker.CleanupOldSessions()
	d.tracker.CleanupCompletedBillingSessions()

	d.checkNotifications(snap)

	active := 0
	for _, s := range snap.CurrentSessions {
		if s.IsActive {
			active++
		}
	}
	metrics.ActiveUsageSessions.Set(float64(active))
	metrics.ActivitySessions.Set(float64(len(snap.ActivitySessions)))
	metrics.CollectionCyclesTotal.Inc()
	metrics.CycleDuration.Observe(d.now().Sub(started).Seconds())
}

// handleCollectFailure escalates to a notification once the consecutive
// failure count crosses the threshold; a single notification per streak.
func (d *Daemon) handleCollectFailure(err error) {
	failures := d.collector.ConsecutiveFailures()
	if failures <= failureThreshold {
		log.Error().Err(err).Int("consecutiveFailures", failures).Msg("Data collection failed")
		return
	}

	log.Warn().Int("consecutiveFailures", failures).Msg("Data collection failing persistently")
	if d.errorNotified {
		return
	}
	d.errorNotified = true

	message := err.Error()
	if status := d.collector.ErrorStatus(); status != nil {
		message = status.ErrorMessage
	}
	d.notifier.SendErrorNotification(message)
}

// checkNotifications evaluates alert conditions over every active usage
// session in the snapshot.
func (d *Daemon) checkNotifications(snap *models.MonitoringSnapshot) {
	now := d.now().UTC()

	for i := range snap.CurrentSessions {
		session := &snap.CurrentSessions[i]
		if !session.IsActive || session.EndTime == nil {
			continue
		}

		if d.collector.UpdateMaxTokensIfHigher(session.TotalTokens) {
			log.Info().Int("tokens", session.TotalTokens).Msg("New maximum tokens observed during active session")
		}

		if remaining := session.MinutesUntilEnd(now); remaining > 0 && remaining <= d.cfg.TimeRemainingAlertMinutes {
			d.notifier.SendTimeWarning(remaining)
		}

		// Inactivity heuristic carried over from the original monitor: start
		// time stands in for last activity because the usage feed has no real
		// last-activity timestamp. Known approximation.
		sinceStart := session.MinutesSinceStart(now)
		if sinceStart >= longSessionMinutes && sinceStart%d.cfg.InactivityAlertMinutes == 0 {
			if sinceStart >= d.cfg.InactivityAlertMinutes*6 {
				d.notifier.SendInactivityAlert(sinceStart - longSessionMinutes)
			}
		}
	}
}
