package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// MonitoringSnapshot is the aggregate produced by one collection cycle.
// It is immutable once constructed; the cycle that built it owns it until
// it is handed to the snapshot writer.
type MonitoringSnapshot struct {
	CurrentSessions        []UsageSession    `json:"current_sessions"`
	TotalSessionsThisMonth int               `json:"total_sessions_this_month"`
	TotalCostThisMonth     float64           `json:"total_cost_this_month"`
	MaxTokensPerSession    int               `json:"max_tokens_per_session"`
	LastUpdate             time.Time         `json:"last_update"`
	BillingPeriodStart     time.Time         `json:"billing_period_start"`
	BillingPeriodEnd       time.Time         `json:"billing_period_end"`
	DaemonVersion          string            `json:"daemon_version,omitempty"`
	DaemonID               string            `json:"daemon_id,omitempty"`
	ActivitySessions       []ActivitySession `json:"activity_sessions"`
}

// Validate checks the snapshot and all contained sessions.
func (m *MonitoringSnapshot) Validate() error {
	if m.TotalSessionsThisMonth < 0 {
		return fmt.Errorf("%w: total_sessions_this_month must be non-negative", ErrValidation)
	}
	if m.TotalCostThisMonth < 0 {
		return fmt.Errorf("%w: total_cost_this_month must be non-negative", ErrValidation)
	}
	if m.MaxTokensPerSession < 0 {
		return fmt.Errorf("%w: max_tokens_per_session must be non-negative", ErrValidation)
	}
	if !m.BillingPeriodStart.Before(m.BillingPeriodEnd) {
		return fmt.Errorf("%w: billing_period_end must be after billing_period_start", ErrValidation)
	}
	for i := range m.CurrentSessions {
		if err := m.CurrentSessions[i].Validate(); err != nil {
			return err
		}
	}
	for i := range m.ActivitySessions {
		if err := m.ActivitySessions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON guarantees activity_sessions encodes as an empty array rather
// than null so readers never have to probe for a missing field.
func (m *MonitoringSnapshot) MarshalJSON() ([]byte, error) {
	type alias MonitoringSnapshot
	out := *(*alias)(m)
	if out.ActivitySessions == nil {
		out.ActivitySessions = []ActivitySession{}
	}
	if out.CurrentSessions == nil {
		out.CurrentSessions = []UsageSession{}
	}
	return json.Marshal(&out)
}

// ErrorStatus describes the usage collector's failure state. It is owned by
// the collector; the daemon only reads it. ConsecutiveFailures resets to 0
// on any successful collection.
type ErrorStatus struct {
	HasError             bool       `json:"has_error"`
	ErrorMessage         string     `json:"error_message,omitempty"`
	LastSuccessfulUpdate *time.Time `json:"last_successful_update,omitempty"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
}
