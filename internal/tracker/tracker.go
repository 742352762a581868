// Package tracker maintains the in-memory view of Claude Code activity
// sessions derived from the hook activity log. It owns log discovery, the
// modification-time cache, the multi-event merge into one consolidated
// session per ID, and time-windowed retention.
package tracker

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigilops/claude-vigil/pkg/models"
)

const (
	// RetentionDays is the age-based cleanup horizon.
	RetentionDays = 30

	// BillingWindow is the sliding horizon used to decide whether a session
	// and its backing log evidence may be discarded.
	BillingWindow = 5 * time.Hour

	// StopRecency is the window within which a stop event still counts as
	// "just finished": the consolidated session is WAITING_FOR_USER instead
	// of INACTIVE.
	StopRecency = time.Minute
)

// ErrSessionNotFound is returned by lookups that match no session.
var ErrSessionNotFound = errors.New("session not found")

// Parser turns one log source into raw per-event activity sessions.
type Parser interface {
	ParseFile(path string) ([]models.ActivitySession, error)
}

// Stats holds tracker performance counters.
type Stats struct {
	FilesProcessed     int           `json:"files_processed"`
	SessionsParsed     int           `json:"sessions_parsed"`
	CacheHits          int           `json:"cache_hits"`
	CacheMisses        int           `json:"cache_misses"`
	LastUpdateDuration time.Duration `json:"last_update_duration"`
	SessionCount       int           `json:"session_count"`
}

// Tracker tracks activity sessions from hook log files.
//
// All mutation happens on the daemon's single worker goroutine; the RWMutex
// exists because the status server reads session state concurrently.
type Tracker struct {
	parser  Parser
	sources []string

	mu          sync.RWMutex
	sessions    []models.ActivitySession
	mtimes      map[string]time.Time
	refreshedAt time.Time
	stats       Stats

	now func() time.Time
}

// New creates a tracker over the given log sources.
func New(parser Parser, sources ...string) *Tracker {
	return &Tracker{
		parser:  parser,
		sources: sources,
		mtimes:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// Refresh re-reads the log sources if the cache is stale (or force is set)
// and rebuilds the consolidated session list.
func (t *Tracker) Refresh(force bool) error {
	started := t.now()
	discovered := t.discover()

	t.mu.Lock()
	defer t.mu.Unlock()

	if !force && t.cacheValidLocked(discovered) {
		t.stats.CacheHits++
		t.stats.LastUpdateDuration = t.now().Sub(started)
		return nil
	}
	t.stats.CacheMisses++

	var raw []models.ActivitySession
	mtimes := make(map[string]time.Time, len(discovered))
	var firstErr error

	for _, src := range discovered {
		sessions, err := t.parser.ParseFile(src)
		if err != nil {
			// A failing source contributes zero events; other sources are
			// unaffected.
			log.Warn().Err(err).Str("source", src).Msg("Failed to parse log source")
			if firstErr == nil {
				firstErr = err
			}
		}
		raw = append(raw, sessions...)
		if info, err := os.Stat(src); err == nil {
			mtimes[src] = info.ModTime()
		}
		t.stats.FilesProcessed++
	}

	t.sessions = t.merge(raw)
	t.mtimes = mtimes
	t.refreshedAt = t.now()
	t.stats.SessionsParsed += len(raw)
	t.stats.LastUpdateDuration = t.now().Sub(started)

	log.Debug().
		Int("raw", len(raw)).
		Int("merged", len(t.sessions)).
		Int("sources", len(discovered)).
		Msg("Refreshed activity sessions")
	return firstErr
}

// discover returns the configured sources that currently exist.
// Non-existent sources are silently skipped.
func (t *Tracker) discover() []string {
	var found []string
	for _, src := range t.sources {
		if _, err := os.Stat(src); err == nil {
			found = append(found, src)
		}
	}
	return found
}

// cacheValidLocked reports whether the parse cache is still fresh: it must
// have been refreshed at least once and every discovered source must still
// carry its cached modification time.
func (t *Tracker) cacheValidLocked(discovered []string) bool {
	if t.refreshedAt.IsZero() {
		return false
	}
	for _, src := range discovered {
		info, err := os.Stat(src)
		if err != nil {
			return false
		}
		cached, ok := t.mtimes[src]
		if !ok || !info.ModTime().Equal(cached) {
			return false
		}
	}
	return true
}

// merge consolidates raw per-event sessions into exactly one session per
// session ID. This is the single place raw parser output becomes
// authoritative session state.
func (t *Tracker) merge(raw []models.ActivitySession) []models.ActivitySession {
	if len(raw) == 0 {
		return nil
	}

	groups := make(map[string][]models.ActivitySession)
	var order []string
	for _, s := range raw {
		if _, seen := groups[s.SessionID]; !seen {
			order = append(order, s.SessionID)
		}
		groups[s.SessionID] = append(groups[s.SessionID], s)
	}

	merged := make([]models.ActivitySession, 0, len(groups))
	for _, id := range order {
		merged = append(merged, t.consolidate(groups[id]))
	}
	return merged
}

// consolidate applies the merge rule to one session's events.
func (t *Tracker) consolidate(events []models.ActivitySession) models.ActivitySession {
	// Representative is the most recent event; equal timestamps resolve
	// last-wins since event order within one source is monotonic.
	rep := events[0]
	earliest := events[0].StartTime
	var end *time.Time

	for _, ev := range events {
		if !ev.StartTime.Before(rep.StartTime) {
			rep = ev
		}
		if ev.StartTime.Before(earliest) {
			earliest = ev.StartTime
		}
		if ev.EndTime != nil && (end == nil || ev.EndTime.After(*end)) {
			e := *ev.EndTime
			end = &e
		}
	}

	out := models.ActivitySession{
		ProjectName: rep.ProjectName,
		SessionID:   rep.SessionID,
		StartTime:   earliest,
		EndTime:     end,
		EventType:   rep.EventType,
		Metadata:    rep.Metadata,
		Status:      rep.Status,
	}

	if rep.EndTime != nil {
		// Stop event: a session that just finished is waiting for the user;
		// one that finished a while ago is inactive.
		if t.now().Sub(rep.StartTime) <= StopRecency {
			out.Status = models.StatusWaitingForUser
		} else {
			out.Status = models.StatusInactive
		}
	}
	return out
}

// CleanupOldSessions removes sessions older than the retention window.
// It never touches the on-disk log sources.
func (t *Tracker) CleanupOldSessions() {
	cutoff := t.now().Add(-RetentionDays * 24 * time.Hour)

	t.mu.Lock()
	defer t.mu.Unlock()

	before := len(t.sessions)
	t.sessions = filterSessions(t.sessions, func(s models.ActivitySession) bool {
		return !s.StartTime.Before(cutoff)
	})
	if removed := before - len(t.sessions); removed > 0 {
		log.Info().Int("removed", removed).Int("retentionDays", RetentionDays).Msg("Cleaned up old sessions")
	}
}

// CleanupCompletedBillingSessions removes sessions whose start time fell out
// of the billing window. Only when no session at all survives are the backing
// logs truncated and the cache reset; while any session is still in the
// window the log keeps its raw events as evidence for the active billing
// period.
func (t *Tracker) CleanupCompletedBillingSessions() {
	cutoff := t.now().Add(-BillingWindow)

	t.mu.Lock()
	defer t.mu.Unlock()

	recent := filterSessions(t.sessions, func(s models.ActivitySession) bool {
		return !s.StartTime.Before(cutoff)
	})
	removed := len(t.sessions) - len(recent)
	if removed == 0 {
		return
	}

	t.sessions = recent
	log.Info().Int("removed", removed).Dur("window", BillingWindow).Msg("Removed sessions outside billing window")

	if len(recent) > 0 {
		return
	}

	for _, src := range t.discover() {
		if err := os.Truncate(src, 0); err != nil {
			log.Error().Err(err).Str("source", src).Msg("Failed to truncate activity log")
			continue
		}
		log.Info().Str("source", src).Msg("Truncated activity log, all sessions outside billing window")
	}
	t.mtimes = make(map[string]time.Time)
	t.refreshedAt = time.Time{}
}

// ActiveSessions returns the current consolidated session list verbatim.
func (t *Tracker) ActiveSessions() []models.ActivitySession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.ActivitySession, len(t.sessions))
	copy(out, t.sessions)
	return out
}

// SessionsForPeriod returns sessions whose lifetime intersects [start, end].
// A session without an end time is treated as still running.
func (t *Tracker) SessionsForPeriod(start, end time.Time) []models.ActivitySession {
	now := t.now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []models.ActivitySession
	for _, s := range t.sessions {
		sessionEnd := now
		if s.EndTime != nil {
			sessionEnd = *s.EndTime
		}
		if !s.StartTime.After(end) && !sessionEnd.Before(start) {
			out = append(out, s)
		}
	}
	return out
}

// SessionByID returns the first session with the given ID.
func (t *Tracker) SessionByID(id string) (models.ActivitySession, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.sessions {
		if s.SessionID == id {
			return s, nil
		}
	}
	return models.ActivitySession{}, ErrSessionNotFound
}

// SessionByProject returns the first session for the given project.
func (t *Tracker) SessionByProject(project string) (models.ActivitySession, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.sessions {
		if s.ProjectName == project {
			return s, nil
		}
	}
	return models.ActivitySession{}, ErrSessionNotFound
}

// SessionsByStatus returns sessions with the given consolidated status.
func (t *Tracker) SessionsByStatus(status models.ActivitySessionStatus) []models.ActivitySession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return filterSessions(t.sessions, func(s models.ActivitySession) bool {
		return s.Status == status
	})
}

// RecentSessions returns sessions started within the last given number of hours.
func (t *Tracker) RecentSessions(hours int) []models.ActivitySession {
	cutoff := t.now().Add(-time.Duration(hours) * time.Hour)

	t.mu.RLock()
	defer t.mu.RUnlock()
	return filterSessions(t.sessions, func(s models.ActivitySession) bool {
		return !s.StartTime.Before(cutoff)
	})
}

// Stats returns a copy of the tracker's counters.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats := t.stats
	stats.SessionCount = len(t.sessions)
	return stats
}

// ClearCache drops all cache state so the next refresh starts cold.
func (t *Tracker) ClearCache() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mtimes = make(map[string]time.Time)
	t.refreshedAt = time.Time{}
	log.Info().Msg("Cleared tracker cache")
}

// CacheValid reports whether a refresh would hit the cache right now.
func (t *Tracker) CacheValid() bool {
	discovered := t.discover()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cacheValidLocked(discovered)
}

func filterSessions(in []models.ActivitySession, keep func(models.ActivitySession) bool) []models.ActivitySession {
	var out []models.ActivitySession
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
