package ratelimit

// Result is the outcome of one limit check. Metadata is auxiliary and never changes the decision.
type Result[M any] struct {
	allowed  bool
	metadata *M
}

// Allow returns an allowed result without metadata.
func Allow[M any]() Result[M] {
	return Result[M]{allowed: true}
}

// Deny returns a denied result without metadata.
func Deny[M any]() Result[M] {
	return Result[M]{allowed: false}
}

// WithMetadata returns a copy of the result carrying metadata.
func (r Result[M]) WithMetadata(metadata M) Result[M] {
	r.metadata = &metadata

	return r
}

// Allowed reports whether the request may proceed.
func (r Result[M]) Allowed() bool {
	return r.allowed
}

// Metadata returns the strategy metadata, if any was attached.
func (r Result[M]) Metadata() (M, bool) {
	if r.metadata == nil {
		var zero M

		return zero, false
	}

	return *r.metadata, true
}
