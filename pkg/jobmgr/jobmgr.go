// Package jobmgr tracks named background jobs. Each job runs in its
// own goroutine under a context derived from the parent passed at
// start, so cancelling the parent winds down every job. Jobs remove
// themselves on completion.
package jobmgr

import (
	"context"
	"fmt"
	"sync"
)

// StatusReporter receives one lifecycle message per job transition,
// e.g. "running:snapshot", "error:snapshot:disk full", "done:snapshot".
type StatusReporter func(string)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager starts, stops and tracks jobs. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*job
	reporter StatusReporter
}

// NewManager creates a Manager. The reporter may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*job),
		reporter: reporter,
	}
}

// StartAsync launches runner in its own goroutine under a context
// derived from parent. Starting a name that is already running is an
// error.
func (m *Manager) StartAsync(parent context.Context, name string, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("job %q is already running", name)
	}
	j := &job{cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j
	m.mu.Unlock()

	go func() {
		defer close(j.done)
		m.report("running:" + name)

		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}

		m.mu.Lock()
		delete(m.jobs, name)
		m.mu.Unlock()
	}()

	return nil
}

// Stop cancels the named job and waits for it to finish.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not running", name)
	}

	j.cancel()
	<-j.done
	return nil
}

// StopAll cancels every running job and waits for all of them.
func (m *Manager) StopAll() {
	m.mu.Lock()
	running := make([]*job, 0, len(m.jobs))
	for _, j := range m.jobs {
		running = append(running, j)
	}
	m.mu.Unlock()

	for _, j := range running {
		j.cancel()
		<-j.done
	}
}

// List returns the names of the currently running jobs.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		out = append(out, name)
	}
	return out
}

func (m *Manager) report(s string) {
	if m.reporter != nil {
		m.reporter(s)
	}
}
