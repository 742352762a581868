package models

import (
	"fmt"
	"strings"
	"time"
)

// UsageSession is one Claude API billing block reported by the usage collector.
type UsageSession struct {
	SessionID    string     `json:"session_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	TotalTokens  int        `json:"total_tokens"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	CostUSD      float64    `json:"cost_usd"`
	IsActive     bool       `json:"is_active"`
}

// Validate checks the session against the schema rules.
func (u *UsageSession) Validate() error {
	if strings.TrimSpace(u.SessionID) == "" {
		return fmt.Errorf("%w: session_id cannot be empty", ErrValidation)
	}
	if u.TotalTokens < 0 || u.InputTokens < 0 || u.OutputTokens < 0 {
		return fmt.Errorf("%w: token counts must be non-negative", ErrValidation)
	}
	if u.CostUSD < 0 {
		return fmt.Errorf("%w: cost_usd must be non-negative", ErrValidation)
	}
	if u.InputTokens+u.OutputTokens != u.TotalTokens {
		return fmt.Errorf("%w: input_tokens (%d) + output_tokens (%d) != total_tokens (%d)",
			ErrValidation, u.InputTokens, u.OutputTokens, u.TotalTokens)
	}
	if u.EndTime != nil && !u.StartTime.Before(*u.EndTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrValidation)
	}
	return nil
}

// MinutesUntilEnd returns the whole minutes remaining until the session's
// end time, or 0 if the session has no end time.
func (u *UsageSession) MinutesUntilEnd(now time.Time) int {
	if u.EndTime == nil {
		return 0
	}
	return int(u.EndTime.Sub(now).Minutes())
}

// MinutesSinceStart returns the whole minutes elapsed since the session started.
func (u *UsageSession) MinutesSinceStart(now time.Time) int {
	return int(now.Sub(u.StartTime).Minutes())
}
