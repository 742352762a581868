package collector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// PoolSuite is a test suite for the bounded exec pool.
type PoolSuite struct {
	suite.Suite
	pool *ExecPool
}

func (s *PoolSuite) SetupTest() {
	s.pool = NewExecPool(2)
}

func TestPoolSuite(t *testing.T) {
	suite.Run(t, new(PoolSuite))
}

// TestRun tests a successful subprocess execution.
func (s *PoolSuite) TestRun() {
	out, err := s.pool.Run(context.Background(), "echo", "hello")
	s.Require().NoError(err)
	s.Equal("hello", strings.TrimSpace(string(out)))
}

// TestRunFailureIncludesStderr tests that command failures carry context.
func (s *PoolSuite) TestRunFailureIncludesStderr() {
	_, err := s.pool.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	s.Require().Error(err)
	s.Contains(err.Error(), "broken")
}

// TestRunCancelledContext tests that a cancelled context aborts the run.
func (s *PoolSuite) TestRunCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.pool.Run(ctx, "sleep", "5")
	s.Error(err)
}

// TestRunAfterShutdown tests that a closed pool rejects new jobs.
func (s *PoolSuite) TestRunAfterShutdown() {
	s.Require().NoError(s.pool.Shutdown(time.Second))

	_, err := s.pool.Run(context.Background(), "echo", "hi")
	s.ErrorIs(err, ErrPoolClosed)
}

// TestShutdownIdempotent tests that repeated shutdowns are no-ops.
func (s *PoolSuite) TestShutdownIdempotent() {
	s.NoError(s.pool.Shutdown(time.Second))
	s.NoError(s.pool.Shutdown(time.Second))
}

// TestShutdownWaitsForInFlight tests that shutdown joins running jobs.
func (s *PoolSuite) TestShutdownWaitsForInFlight() {
	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		close(started)
		_, _ = s.pool.Run(context.Background(), "sleep", "0.2")
		close(done)
	}()

	<-started
	time.Sleep(50 * time.Millisecond)
	s.Require().NoError(s.pool.Shutdown(5 * time.Second))

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("job still running after shutdown returned")
	}
}
