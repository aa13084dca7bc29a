package ai

import "errors"

var (
	// ErrUnavailable means the provider is unreachable, timed out or has no
	// usable configuration. Callers treat it as "no AI, degrade gracefully".
	ErrUnavailable = errors.New("ai provider unavailable")
	// ErrEmbedFailed means the provider answered with a non-success status.
	ErrEmbedFailed = errors.New("embedding generation failed")
)
