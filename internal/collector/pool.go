// Package collector gathers usage data by running the ccusage CLI through a
// bounded subprocess pool and converting its output into monitoring snapshots.
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrPoolClosed is returned when a job is submitted after shutdown.
var ErrPoolClosed = errors.New("exec pool closed")

// ExecPool bounds the number of concurrently running subprocesses. The
// daemon shares one pool across all exec work and shuts it down on stop.
type ExecPool struct {
	sem    chan struct{}
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewExecPool creates a pool allowing size concurrent subprocesses.
func NewExecPool(size int) *ExecPool {
	if size < 1 {
		size = 1
	}
	return &ExecPool{sem: make(chan struct{}, size)}
}

// Run executes a command under the pool's concurrency limit and returns its
// stdout. The context bounds both the wait for a slot and the subprocess
// itself.
func (p *ExecPool) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// Shutdown stops accepting new jobs and waits up to timeout for in-flight
// subprocesses to finish.
func (p *ExecPool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		log.Warn().Dur("timeout", timeout).Msg("Exec pool shutdown timed out with jobs in flight")
		return fmt.Errorf("exec pool shutdown timed out after %s", timeout)
	}
}
