package ai

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the responder cannot produce output: missing API
// key, request failure, or an empty completion. Callers must fall back to
// scripted behaviour and never propagate this as a failure of their own.
var ErrUnavailable = errors.New("ai responder unavailable")

// HistoryTurn is a transcript entry passed to the responder for context.
type HistoryTurn struct {
	Speaker   string
	Text      string
	Timestamp time.Time
}

// ReplyInput carries everything the responder needs to speak as the
// prospect at the current conversation stage.
type ReplyInput struct {
	NodeLabel            string
	NodeCategory         string
	ClarificationPrompt  string
	ExampleResponses     []string
	ExpectedIntentLabels []string
	PersonaPrompt        string
	UserMessage          string
	History              []HistoryTurn
}

// IntentOption is one candidate classification for the agent's utterance.
type IntentOption struct {
	ID       string
	Label    string
	Examples []string
}

// IntentInput carries the context for AI-assisted intent classification.
type IntentInput struct {
	UserMessage string
	Options     []IntentOption
	History     []HistoryTurn
}

// Responder generates prospect persona replies and optionally classifies
// agent intent. Graph traversal never depends on it: when it fails the
// caller uses the scripted response and the keyword intent detector, and
// traversal decisions are identical either way.
type Responder interface {
	GenerateReply(ctx context.Context, input ReplyInput) (string, error)
	ClassifyIntent(ctx context.Context, input IntentInput) (string, error)
}
