package ratelimit

import (
	"math"
	"time"

	"github.com/serroba/speedbump/internal/clock"
)

const maxDuration = time.Duration(math.MaxInt64)

// FixedWindowState is the per-key counter of the fixed window strategy.
type FixedWindowState struct {
	Count       uint32    `cbor:"count"        json:"count"        msgpack:"count"`
	WindowStart time.Time `cbor:"window_start" json:"window_start" msgpack:"window_start"`
}

// FixedWindowMetadata accompanies every fixed window decision.
type FixedWindowMetadata struct {
	// TillNextWindow is the time left until the current window closes.
	TillNextWindow time.Duration
}

// FixedWindowLimiter is a Limiter running the fixed window strategy.
type FixedWindowLimiter = Limiter[FixedWindowState, FixedWindowMetadata]

// FixedWindow allows up to limit requests per key in consecutive windows of a fixed duration.
// The request that observes an expired window always opens the next one and is allowed.
type FixedWindow struct {
	window time.Duration
	limit  uint32
	clock  clock.Clock
}

// FixedWindowOption configures a FixedWindow.
type FixedWindowOption func(*FixedWindow)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) FixedWindowOption {
	return func(f *FixedWindow) {
		if c != nil {
			f.clock = c
		}
	}
}

// NewFixedWindow creates a fixed window strategy. It panics if window is not positive.
func NewFixedWindow(window time.Duration, limit uint32, opts ...FixedWindowOption) *FixedWindow {
	if window <= 0 {
		panic("ratelimit: fixed window duration must be positive")
	}

	f := &FixedWindow{
		window: window,
		limit:  limit,
		clock:  clock.System{},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *FixedWindow) Window() time.Duration {
	return f.window
}

func (f *FixedWindow) Limit() uint32 {
	return f.limit
}

// InitializeState returns a state whose window has already expired, so the first
// check of a new key opens a fresh window.
func (f *FixedWindow) InitializeState() FixedWindowState {
	return FixedWindowState{}
}

func (f *FixedWindow) CheckLimit(state *FixedWindowState) (Result[FixedWindowMetadata], error) {
	now := f.clock.Now()

	// A window start in the future means the clock went backward: force a rollover.
	elapsed := now.Sub(state.WindowStart)
	if elapsed < 0 {
		elapsed = maxDuration
	}

	var result Result[FixedWindowMetadata]

	switch {
	case elapsed >= f.window:
		state.Count = 1
		state.WindowStart = now
		result = Allow[FixedWindowMetadata]()
	case state.Count < f.limit:
		state.Count++
		result = Allow[FixedWindowMetadata]()
	default:
		result = Deny[FixedWindowMetadata]()
	}

	return result.WithMetadata(FixedWindowMetadata{
		TillNextWindow: f.tillNextWindow(state.WindowStart, now),
	}), nil
}

func (f *FixedWindow) tillNextWindow(start, now time.Time) time.Duration {
	end := start.Add(f.window)
	if end.Before(start) {
		return maxDuration
	}

	remaining := end.Sub(now)
	if remaining < 0 {
		return maxDuration
	}

	return remaining
}

var _ Strategy[FixedWindowState, FixedWindowMetadata] = (*FixedWindow)(nil)
