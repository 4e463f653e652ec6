package mock

import (
	"context"
	"strings"
)

// MockCompleter is a test double for ai.Completer.
// Structured responses are served from a scripted queue; streaming emits
// word-sized chunks of a canned narrative. Both can be overridden with
// function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, system, user string) (string, error)

	// CompleteStreamFunc is called by CompleteStream if set.
	CompleteStreamFunc func(ctx context.Context, system, user string, fn func(chunk string) error) error

	// Responses is a FIFO queue of structured responses. When exhausted,
	// Complete returns "{}".
	Responses []string

	// StreamText is the canned narrative for CompleteStream.
	StreamText string

	completeCalls int
	streamCalls   int
}

// NewMockCompleter creates a mock completer with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{
		Responses:  responses,
		StreamText: "These papers cover the requested topic [1].",
	}
}

// Complete pops the next scripted response.
func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.completeCalls++

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, user)
	}

	if len(m.Responses) == 0 {
		return "{}", nil
	}
	next := m.Responses[0]
	m.Responses = m.Responses[1:]
	return next, nil
}

// CompleteStream emits StreamText word by word.
func (m *MockCompleter) CompleteStream(ctx context.Context, system, user string, fn func(chunk string) error) error {
	m.streamCalls++

	if m.CompleteStreamFunc != nil {
		return m.CompleteStreamFunc(ctx, system, user, fn)
	}

	words := strings.Fields(m.StreamText)
	for i, word := range words {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

// CompleteCallCount returns the number of Complete invocations.
func (m *MockCompleter) CompleteCallCount() int {
	return m.completeCalls
}

// StreamCallCount returns the number of CompleteStream invocations.
func (m *MockCompleter) StreamCallCount() int {
	return m.streamCalls
}

// Reset clears counters, queues and custom functions.
func (m *MockCompleter) Reset() {
	m.completeCalls = 0
	m.streamCalls = 0
	m.Responses = nil
	m.CompleteFunc = nil
	m.CompleteStreamFunc = nil
}
