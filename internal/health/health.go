// ABOUTME: Background health aggregator for the tool upstream.
// ABOUTME: Probes on a fixed interval and serves the last snapshot lock-free to readers.

package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultProbeInterval is how often the upstream is probed.
	DefaultProbeInterval = 5 * time.Second

	// DefaultProbeTimeout bounds a single probe.
	DefaultProbeTimeout = 3 * time.Second
)

// Prober reports how many tools the upstream currently serves.
// The catalog bridge satisfies it.
type Prober interface {
	Probe(ctx context.Context) (int, error)
}

// Status is the last observed upstream state. Before the first probe
// completes it is the zero value: offline with a zero CheckedAt.
type Status struct {
	Online    bool      `json:"online"`
	ToolCount int       `json:"tool_count"`
	CheckedAt time.Time `json:"checked_at"`
}

// Options configures the aggregator. Zero values fall back to defaults.
type Options struct {
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

// Aggregator probes the tool upstream in the background so request handlers
// can answer health checks without touching the network.
type Aggregator struct {
	prober   Prober
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.RWMutex
	status  Status
	done    chan struct{}
	started bool
	closed  bool
}

// New creates an aggregator. Call Start to begin probing.
func New(prober Prober, opts Options, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = DefaultProbeInterval
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	return &Aggregator{
		prober:   prober,
		logger:   logger.With("component", "health"),
		interval: opts.ProbeInterval,
		timeout:  opts.ProbeTimeout,
		done:     make(chan struct{}),
	}
}

// Start launches the probe loop. The first probe runs immediately rather
// than one interval in. Calling Start again, or after Close, is a no-op.
func (a *Aggregator) Start() {
	a.mu.Lock()
	if a.started || a.closed {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()

	go a.loop()
}

func (a *Aggregator) loop() {
	a.probe()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe()
		case <-a.done:
			return
		}
	}
}

// probe runs one bounded check and replaces the snapshot. The probe context
// is detached from any caller since the loop owns its own lifecycle.
func (a *Aggregator) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	count, err := a.prober.Probe(ctx)
	checked := time.Now().UTC()

	next := Status{Online: err == nil, CheckedAt: checked}
	if err == nil {
		next.ToolCount = count
	}

	a.mu.Lock()
	a.status = next
	a.mu.Unlock()

	if err != nil {
		a.logger.Warn("tool upstream probe failed", "error", err)
		return
	}
	a.logger.Debug("tool upstream probe succeeded", "tool_count", count)
}

// Status returns the most recent snapshot.
func (a *Aggregator) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Close stops the probe loop. It is safe to call multiple times.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.closed {
		close(a.done)
		a.closed = true
	}
}
