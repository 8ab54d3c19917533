// Package tracer holds the process-wide tracer state: whether recording is
// enabled, whether the backend is reachable, and who must be told when
// either changes. It is built once at start-up and injected everywhere.
package tracer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/noop"
	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/cenkalti/backoff/v4"
)

// ErrNotConnected is returned by Connect when the probe never succeeds in time.
var ErrNotConnected = errors.New("tracer: backend not reachable")

// Probe checks that the telemetry backend accepts data.
type Probe func(ctx context.Context) error

type Tracer struct {
	cfg       Config
	client    observability.Observability
	enabled   atomic.Bool
	connected atomic.Bool
	stateMu   sync.Mutex

	mu        sync.RWMutex
	observers []point.StateObserver
}

// New validates cfg and builds a disconnected tracer. A nil client means
// a no-op transport.
func New(cfg Config, client observability.Observability) (*Tracer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = noop.NewProvider()
	}

	t := &Tracer{cfg: cfg, client: client}
	t.enabled.Store(cfg.Enabled)
	return t, nil
}

func (t *Tracer) Config() Config {
	return t.cfg
}

func (t *Tracer) Debug() bool {
	return t.cfg.Debug
}

func (t *Tracer) CollectTrace() bool {
	return t.cfg.CollectTrace
}

func (t *Tracer) Client() observability.Observability {
	return t.client
}

// Active reports whether points should record.
func (t *Tracer) Active() bool {
	return t.enabled.Load() && t.connected.Load()
}

// IsTracerDisabled is the per-call fast-path check.
func (t *Tracer) IsTracerDisabled() bool {
	return !t.Active()
}

// RegisterStateObserver adds o and immediately tells it the current state.
// Registration and state changes are serialized, so the first notification
// can never arrive after a newer one. o must not change the tracer state
// from OnTracerState.
func (t *Tracer) RegisterStateObserver(o point.StateObserver) {
	if o == nil {
		return
	}
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	t.mu.Lock()
	t.observers = append(t.observers, o)
	t.mu.Unlock()

	o.OnTracerState(t.Active())
}

func (t *Tracer) Enable() {
	t.set(&t.enabled, true)
}

func (t *Tracer) Disable() {
	t.set(&t.enabled, false)
}

// Connect retries probe with exponential backoff until it succeeds, ctx is
// done, or Config.ConnectTimeout elapses. A nil probe connects at once.
func (t *Tracer) Connect(ctx context.Context, probe Probe) error {
	if probe != nil {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 100 * time.Millisecond
		b.MaxElapsedTime = t.cfg.ConnectTimeout

		err := backoff.Retry(func() error {
			return probe(ctx)
		}, backoff.WithContext(b, ctx))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
	}

	t.set(&t.connected, true)
	return nil
}

func (t *Tracer) Disconnect() {
	t.set(&t.connected, false)
}

func (t *Tracer) set(flag *atomic.Bool, value bool) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	before := t.Active()
	flag.Store(value)
	if after := t.Active(); after != before {
		t.notify(after)
	}
}

func (t *Tracer) notify(active bool) {
	t.mu.RLock()
	observers := make([]point.StateObserver, len(t.observers))
	copy(observers, t.observers)
	t.mu.RUnlock()

	for _, o := range observers {
		o.OnTracerState(active)
	}
}
