package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/vigilops/claude-vigil/internal/config"
	"github.com/vigilops/claude-vigil/pkg/models"
)

const (
	// CommandTimeout bounds one ccusage invocation so a stuck subprocess can
	// never stall the daemon's worker goroutine.
	CommandTimeout = 30 * time.Second

	// activeGrace is how long after its end time a usage session still
	// counts as active.
	activeGrace = 5 * time.Minute
)

// ErrCollect marks retryable collection failures; the next tick is the retry.
var ErrCollect = errors.New("usage collection failed")

// block mirrors one entry of `ccusage blocks -j` output.
type block struct {
	ID           string  `json:"id"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Collector produces monitoring snapshots from ccusage output. It owns the
// consecutive-failure counter and the observed max-tokens high-water mark.
type Collector struct {
	cfg      *config.Config
	pool     *ExecPool
	version  string
	daemonID string

	mu          sync.Mutex
	lastSuccess *time.Time
	failures    int
	maxTokens   int
}

// New creates a collector that runs ccusage through the given pool.
func New(cfg *config.Config, pool *ExecPool, version, daemonID string) *Collector {
	return &Collector{cfg: cfg, pool: pool, version: version, daemonID: daemonID}
}

// Collect runs one usage collection and builds an immutable snapshot.
// Failures are retryable; they increment the consecutive-failure counter,
// which any success resets to zero.
func (c *Collector) Collect(ctx context.Context) (*models.MonitoringSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	out, err := c.pool.Run(ctx, "ccusage", "blocks", "-j")
	if err != nil {
		return nil, c.fail(fmt.Errorf("%w: %v", ErrCollect, err))
	}

	var payload struct {
		Blocks []block `json:"blocks"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, c.fail(fmt.Errorf("%w: parse ccusage output: %v", ErrCollect, err))
	}

	now := time.Now().UTC()
	var sessions []models.UsageSession
	for _, b := range payload.Blocks {
		session, err := parseBlock(b, now)
		if err != nil {
			log.Warn().Err(err).Str("block", b.ID).Msg("Skipping unparseable usage block")
			continue
		}
		sessions = append(sessions, session)
	}

	var totalCost float64
	maxTokens := 0
	for _, s := range sessions {
		totalCost += s.CostUSD
		if s.TotalTokens > maxTokens {
			maxTokens = s.TotalTokens
		}
	}

	start, end := billingPeriod(now, c.cfg.BillingStartDay)

	c.mu.Lock()
	c.failures = 0
	t := now
	c.lastSuccess = &t
	if maxTokens > c.maxTokens {
		c.maxTokens = maxTokens
	}
	maxSeen := c.maxTokens
	c.mu.Unlock()

	log.Debug().Int("sessions", len(sessions)).Float64("totalCost", totalCost).Msg("Collected usage data")

	return &models.MonitoringSnapshot{
		CurrentSessions:        sessions,
		TotalSessionsThisMonth: len(sessions),
		TotalCostThisMonth:     totalCost,
		MaxTokensPerSession:    maxSeen,
		LastUpdate:             now,
		BillingPeriodStart:     start,
		BillingPeriodEnd:       end,
		DaemonVersion:          c.version,
		DaemonID:               c.daemonID,
	}, nil
}

// fail records a failure and returns the error.
func (c *Collector) fail(err error) error {
	c.mu.Lock()
	c.failures++
	n := c.failures
	c.mu.Unlock()
	log.Error().Err(err).Int("consecutiveFailures", n).Msg("Usage collection failed")
	return err
}

// ErrorStatus returns the collector's failure state. Nil when healthy.
func (c *Collector) ErrorStatus() *models.ErrorStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures == 0 {
		return nil
	}
	return &models.ErrorStatus{
		HasError:             true,
		ErrorMessage:         fmt.Sprintf("usage collection failed %d consecutive times", c.failures),
		LastSuccessfulUpdate: c.lastSuccess,
		ConsecutiveFailures:  c.failures,
	}
}

// UpdateMaxTokensIfHigher raises the observed max-tokens high-water mark.
// It reports whether the value was a new maximum.
func (c *Collector) UpdateMaxTokensIfHigher(tokens int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tokens <= c.maxTokens {
		return false
	}
	c.maxTokens = tokens
	return true
}

// ConsecutiveFailures returns the current failure streak.
func (c *Collector) ConsecutiveFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// parseBlock converts one ccusage block into a usage session.
func parseBlock(b block, now time.Time) (models.UsageSession, error) {
	start, err := time.Parse(time.RFC3339, b.StartTime)
	if err != nil {
		return models.UsageSession{}, fmt.Errorf("invalid start_time %q: %w", b.StartTime, err)
	}

	var end *time.Time
	active := true
	if b.EndTime != "" {
		e, err := time.Parse(time.RFC3339, b.EndTime)
		if err != nil {
			return models.UsageSession{}, fmt.Errorf("invalid end_time %q: %w", b.EndTime, err)
		}
		end = &e
		active = now.Sub(e) < activeGrace
	}

	return models.UsageSession{
		SessionID:    b.ID,
		StartTime:    start,
		EndTime:      end,
		InputTokens:  b.InputTokens,
		OutputTokens: b.OutputTokens,
		TotalTokens:  b.InputTokens + b.OutputTokens,
		CostUSD:      b.Cost,
		IsActive:     active,
	}, nil
}

// billingPeriod returns the bounds of the billing period containing now,
// anchored on the configured start day of month.
func billingPeriod(now time.Time, startDay int) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), startDay, 0, 0, 0, 0, now.Location())
	if now.Before(start) {
		start = start.AddDate(0, -1, 0)
	}
	return start, start.AddDate(0, 1, 0)
}
