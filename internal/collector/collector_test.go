// Package collector gathers usage data from the ccusage CLI.
package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vigilops/claude-vigil/internal/config"
)

// CollectorSuite is a test suite for snapshot building and failure tracking.
type CollectorSuite struct {
	suite.Suite
	collector *Collector
	now       time.Time
}

func (s *CollectorSuite) SetupTest() {
	s.collector = New(config.Default(), NewExecPool(1), "test", "daemon-1")
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestCollectorSuite(t *testing.T) {
	suite.Run(t, new(CollectorSuite))
}

// TestParseBlockActive tests that a block without an end time is active.
func (s *CollectorSuite) TestParseBlockActive() {
	got, err := parseBlock(block{
		ID:           "block-1",
		StartTime:    "2025-06-15T11:00:00Z",
		InputTokens:  700,
		OutputTokens: 300,
		Cost:         1.5,
	}, s.now)
	s.Require().NoError(err)

	s.Equal("block-1", got.SessionID)
	s.True(got.IsActive)
	s.Nil(got.EndTime)
	s.Equal(1000, got.TotalTokens)
	s.Equal(1.5, got.CostUSD)
}

// TestParseBlockRecentlyEnded tests the grace window after a block's end.
func (s *CollectorSuite) TestParseBlockRecentlyEnded() {
	got, err := parseBlock(block{
		ID:        "block-1",
		StartTime: "2025-06-15T07:00:00Z",
		EndTime:   s.now.Add(-time.Minute).Format(time.RFC3339),
	}, s.now)
	s.Require().NoError(err)
	s.True(got.IsActive)

	got, err = parseBlock(block{
		ID:        "block-2",
		StartTime: "2025-06-15T01:00:00Z",
		EndTime:   s.now.Add(-time.Hour).Format(time.RFC3339),
	}, s.now)
	s.Require().NoError(err)
	s.False(got.IsActive)
}

// TestParseBlockInvalidTimes tests rejection of malformed timestamps.
func (s *CollectorSuite) TestParseBlockInvalidTimes() {
	_, err := parseBlock(block{ID: "b", StartTime: "not-a-time"}, s.now)
	s.Error(err)

	_, err = parseBlock(block{ID: "b", StartTime: "2025-06-15T11:00:00Z", EndTime: "soon"}, s.now)
	s.Error(err)
}

// TestBillingPeriod tests month anchoring on the configured start day.
func (s *CollectorSuite) TestBillingPeriod() {
	start, end := billingPeriod(s.now, 1)
	s.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), start)
	s.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), end)
}

// TestBillingPeriodBeforeStartDay tests rollover to the previous month when
// today precedes the anchor day.
func (s *CollectorSuite) TestBillingPeriodBeforeStartDay() {
	start, end := billingPeriod(s.now, 20)
	s.Equal(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), start)
	s.Equal(time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), end)
}

// TestErrorStatusHealthy tests that a healthy collector reports no error.
func (s *CollectorSuite) TestErrorStatusHealthy() {
	s.Nil(s.collector.ErrorStatus())
	s.Equal(0, s.collector.ConsecutiveFailures())
}

// TestFailureCounting tests the consecutive-failure counter and its
// reflection in ErrorStatus.
func (s *CollectorSuite) TestFailureCounting() {
	s.collector.fail(ErrCollect)
	s.collector.fail(ErrCollect)
	s.Equal(2, s.collector.ConsecutiveFailures())

	status := s.collector.ErrorStatus()
	s.Require().NotNil(status)
	s.True(status.HasError)
	s.Equal(2, status.ConsecutiveFailures)
	s.Nil(status.LastSuccessfulUpdate)
}

// TestUpdateMaxTokensIfHigher tests the high-water mark semantics.
func (s *CollectorSuite) TestUpdateMaxTokensIfHigher() {
	s.True(s.collector.UpdateMaxTokensIfHigher(1000))
	s.False(s.collector.UpdateMaxTokensIfHigher(1000))
	s.False(s.collector.UpdateMaxTokensIfHigher(500))
	s.True(s.collector.UpdateMaxTokensIfHigher(2000))
}
