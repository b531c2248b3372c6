package ratelimit

import (
	"errors"
	"fmt"
)

var (
	// ErrStore matches any *StoreError via errors.Is.
	ErrStore = errors.New("ratelimit: store failure")
	// ErrStrategy matches any *StrategyError via errors.Is.
	ErrStrategy = errors.New("ratelimit: strategy failure")
)

// StoreError reports a failure of the state store.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ratelimit: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// StrategyError reports a policy-internal failure of the limiting strategy.
type StrategyError struct {
	Key string
	Err error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("ratelimit: strategy check %q: %v", e.Key, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

func (e *StrategyError) Is(target error) bool {
	return target == ErrStrategy
}
