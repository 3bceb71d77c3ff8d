// Package chat manages the lifecycle of a user message and its in-flight
// assistant reply: optimistic insertion, live token accumulation, and
// reconciliation against the durable store once the reply completes.
package chat

import (
	"context"

	"tramway-server/internal/domain/timeline"
)

// Message is one turn of conversation history handed to the LLM boundary.
type Message struct {
	Role timeline.MessageRole `json:"role"`
	Text string               `json:"text"`
}

// Stream yields assistant reply chunks. Recv returns io.EOF on normal
// completion and any other error on a provider fault.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider is the LLM boundary: it turns a resolved history into a stream
// of reply chunks.
type Provider interface {
	StreamReply(ctx context.Context, history []Message) (Stream, error)
}

// StreamObserver receives the observable side effects of a send, in order:
// the persisted user node, zero or more deltas, then exactly one of
// completed or errored.
type StreamObserver interface {
	OnUserMessage(node *timeline.Node)
	OnDelta(text string)
	OnCompleted(node *timeline.Node)
	OnError(err error)
}
