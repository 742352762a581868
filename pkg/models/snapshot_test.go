package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
)

// SnapshotSuite is a test suite for MonitoringSnapshot.
type SnapshotSuite struct {
	suite.Suite
}

func TestSnapshotSuite(t *testing.T) {
	suite.Run(t, new(SnapshotSuite))
}

func (s *SnapshotSuite) valid() MonitoringSnapshot {
	return MonitoringSnapshot{
		TotalSessionsThisMonth: 3,
		TotalCostThisMonth:     12.5,
		MaxTokensPerSession:    5000,
		LastUpdate:             time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		BillingPeriodStart:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		BillingPeriodEnd:       time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestValidate tests that a well-formed snapshot passes.
func (s *SnapshotSuite) TestValidate() {
	snap := s.valid()
	s.NoError(snap.Validate())
}

// TestValidateBillingPeriodOrdering tests period bounds.
func (s *SnapshotSuite) TestValidateBillingPeriodOrdering() {
	snap := s.valid()
	snap.BillingPeriodEnd = snap.BillingPeriodStart
	s.ErrorIs(snap.Validate(), ErrValidation)
}

// TestValidateNegativeAggregates tests the non-negativity rules.
func (s *SnapshotSuite) TestValidateNegativeAggregates() {
	snap := s.valid()
	snap.TotalCostThisMonth = -1
	s.ErrorIs(snap.Validate(), ErrValidation)

	snap = s.valid()
	snap.MaxTokensPerSession = -1
	s.ErrorIs(snap.Validate(), ErrValidation)
}

// TestValidateContainedSessions tests that invalid contained sessions fail
// the snapshot.
func (s *SnapshotSuite) TestValidateContainedSessions() {
	snap := s.valid()
	snap.ActivitySessions = []ActivitySession{{SessionID: ""}}
	s.ErrorIs(snap.Validate(), ErrValidation)
}

// TestMarshalNilSlicesAsEmptyArrays tests that readers always see arrays,
// never null, for the session lists.
func (s *SnapshotSuite) TestMarshalNilSlicesAsEmptyArrays() {
	snap := s.valid()
	data, err := json.Marshal(&snap)
	s.Require().NoError(err)
	s.Contains(string(data), `"activity_sessions":[]`)
	s.Contains(string(data), `"current_sessions":[]`)

	// Marshalling must not mutate the snapshot itself.
	s.Nil(snap.ActivitySessions)
	s.Nil(snap.CurrentSessions)
}

// TestMarshalRoundTrip tests that a populated snapshot decodes back intact.
func (s *SnapshotSuite) TestMarshalRoundTrip() {
	snap := s.valid()
	snap.ActivitySessions = []ActivitySession{{
		ProjectName: "vigil",
		SessionID:   "sess-1",
		StartTime:   snap.LastUpdate,
		Status:      StatusActive,
	}}

	data, err := json.Marshal(&snap)
	s.Require().NoError(err)

	var decoded MonitoringSnapshot
	s.Require().NoError(json.Unmarshal(data, &decoded))
	s.Equal(snap.TotalCostThisMonth, decoded.TotalCostThisMonth)
	s.Require().Len(decoded.ActivitySessions, 1)
	s.Equal("sess-1", decoded.ActivitySessions[0].SessionID)
}
