// Package circuitbreaker stops repeated writes to a failing backend. After a
// run of consecutive failures the breaker opens and rejects calls until a
// cooldown passes, then lets a single probe call through.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Call while the breaker rejects calls
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	// StateClosed lets every call through
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown passes
	StateOpen
	// StateHalfOpen lets one probe call through
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds configuration for the circuit breaker
type Config struct {
	Threshold     int                         // Consecutive failures before opening (default: 5)
	Cooldown      time.Duration               // Time spent open before probing (default: 30s)
	HealthCheck   func(context.Context) error // Optional probe used by TryHealthCheck
	OnStateChange func(from, to State)        // Called outside the lock
	Now           func() time.Time
}

// Breaker guards calls to a backend that may fail for a while
type Breaker struct {
	mu sync.Mutex

	threshold     int
	cooldown      time.Duration
	healthCheck   func(context.Context) error
	onStateChange func(from, to State)
	now           func() time.Time

	state               State
	consecutiveFailures int
	rejected            int64
	openedAt            time.Time
	probing             bool
}

// New creates a closed breaker
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{
		threshold:     cfg.Threshold,
		cooldown:      cfg.Cooldown,
		healthCheck:   cfg.HealthCheck,
		onStateChange: cfg.OnStateChange,
		now:           cfg.Now,
	}
}

// Call runs fn unless the breaker is open, and records its outcome
func (b *Breaker) Call(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	var from State
	changed := false

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.rejected++
			b.mu.Unlock()
			return ErrOpen
		}
		from, changed = b.state, true
		b.state = StateHalfOpen
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			b.rejected++
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	if changed {
		b.notify(from, StateHalfOpen)
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	from := b.state
	b.probing = false

	if err != nil {
		b.consecutiveFailures++
		if b.state == StateHalfOpen || b.consecutiveFailures >= b.threshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	} else {
		b.consecutiveFailures = 0
		b.state = StateClosed
	}
	to := b.state
	b.mu.Unlock()

	if from != to {
		b.notify(from, to)
	}
}

func (b *Breaker) notify(from, to State) {
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}

// TryHealthCheck probes the backend once the cooldown has passed and closes
// the breaker when the probe succeeds
func (b *Breaker) TryHealthCheck(ctx context.Context) error {
	if b.healthCheck == nil {
		return errors.New("no health check configured")
	}
	if b.State() != StateOpen {
		return nil
	}
	return b.Call(func() error { return b.healthCheck(ctx) })
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Rejected returns how many calls were refused while open
func (b *Breaker) Rejected() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}

// Reset closes the breaker and clears its failure count
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.consecutiveFailures = 0
	b.probing = false
	b.mu.Unlock()

	if from != StateClosed {
		b.notify(from, StateClosed)
	}
}
