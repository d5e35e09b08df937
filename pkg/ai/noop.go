package ai

import "context"

// NoopResponder is the always-scripted mode: every call reports
// ErrUnavailable so the conversation engine uses its scripted lines and
// keyword intent detector. Selected at construction time when no API key is
// configured.
type NoopResponder struct{}

// NewNoopResponder builds the fallback responder.
func NewNoopResponder() NoopResponder {
	return NoopResponder{}
}

// GenerateReply always reports unavailability.
func (NoopResponder) GenerateReply(context.Context, ReplyInput) (string, error) {
	return "", ErrUnavailable
}

// ClassifyIntent always reports unavailability.
func (NoopResponder) ClassifyIntent(context.Context, IntentInput) (string, error) {
	return "", ErrUnavailable
}
