package store

import "errors"

var (
	// ErrConflict is returned when an atomic update keeps losing to concurrent writers.
	ErrConflict = errors.New("store: too many concurrent updates")
	// ErrUnknownCodec is returned by CodecByName for unsupported names.
	ErrUnknownCodec = errors.New("store: unknown codec")
)
