// Package models contains domain models shared by the claude-vigil daemon,
// the hook binaries, and the display client.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ActivitySessionStatus is the consolidated state of an activity session.
type ActivitySessionStatus string

const (
	StatusActive         ActivitySessionStatus = "ACTIVE"
	StatusWaitingForUser ActivitySessionStatus = "WAITING_FOR_USER"
	StatusIdle           ActivitySessionStatus = "IDLE"
	StatusInactive       ActivitySessionStatus = "INACTIVE"
	StatusStopped        ActivitySessionStatus = "STOPPED"
)

// Valid reports whether s is one of the known statuses.
func (s ActivitySessionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusWaitingForUser, StatusIdle, StatusInactive, StatusStopped:
		return true
	}
	return false
}

// ErrValidation is wrapped by all model validation failures.
var ErrValidation = errors.New("validation failed")

// ActivitySession is a logical unit of user activity inferred from one or
// more raw hook log events sharing a session ID. Raw per-event sessions are
// produced by the hook log parser; consolidated sessions are produced by the
// tracker's merge and are never mutated in place.
type ActivitySession struct {
	ProjectName string                `json:"project_name"`
	SessionID   string                `json:"session_id"`
	StartTime   time.Time             `json:"start_time"`
	EndTime     *time.Time            `json:"end_time,omitempty"`
	Status      ActivitySessionStatus `json:"status"`
	EventType   string                `json:"event_type,omitempty"`
	Metadata    map[string]string     `json:"metadata,omitempty"`
}

// Validate checks the session against the schema rules.
func (a *ActivitySession) Validate() error {
	if strings.TrimSpace(a.SessionID) == "" {
		return fmt.Errorf("%w: session_id cannot be empty", ErrValidation)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, a.Status)
	}
	if a.EndTime != nil && !a.StartTime.Before(*a.EndTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrValidation)
	}
	return nil
}

// Active reports whether the consolidated status is ACTIVE.
func (a *ActivitySession) Active() bool {
	return a.Status == StatusActive
}
