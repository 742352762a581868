package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// UsageSessionSuite is a test suite for UsageSession validation and time math.
type UsageSessionSuite struct {
	suite.Suite
	now time.Time
}

func (s *UsageSessionSuite) SetupTest() {
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestUsageSessionSuite(t *testing.T) {
	suite.Run(t, new(UsageSessionSuite))
}

func (s *UsageSessionSuite) valid() UsageSession {
	end := s.now.Add(2 * time.Hour)
	return UsageSession{
		SessionID:    "block-1",
		StartTime:    s.now.Add(-time.Hour),
		EndTime:      &end,
		InputTokens:  700,
		OutputTokens: 300,
		TotalTokens:  1000,
		CostUSD:      1.25,
		IsActive:     true,
	}
}

// TestValidate tests that a well-formed session passes.
func (s *UsageSessionSuite) TestValidate() {
	session := s.valid()
	s.NoError(session.Validate())
}

// TestValidateTokenConsistency tests the input+output==total rule.
func (s *UsageSessionSuite) TestValidateTokenConsistency() {
	session := s.valid()
	session.TotalTokens = 999
	s.ErrorIs(session.Validate(), ErrValidation)
}

// TestValidateNegativeValues tests the non-negativity rules.
func (s *UsageSessionSuite) TestValidateNegativeValues() {
	session := s.valid()
	session.InputTokens = -1
	s.ErrorIs(session.Validate(), ErrValidation)

	session = s.valid()
	session.CostUSD = -0.01
	s.ErrorIs(session.Validate(), ErrValidation)
}

// TestMinutesUntilEnd tests remaining-time math, including the no-end case.
func (s *UsageSessionSuite) TestMinutesUntilEnd() {
	session := s.valid()
	s.Equal(120, session.MinutesUntilEnd(s.now))

	session.EndTime = nil
	s.Equal(0, session.MinutesUntilEnd(s.now))
}

// TestMinutesSinceStart tests elapsed-time math.
func (s *UsageSessionSuite) TestMinutesSinceStart() {
	session := s.valid()
	s.Equal(60, session.MinutesSinceStart(s.now))
}
