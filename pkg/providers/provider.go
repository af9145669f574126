// Package providers adapts generative-AI backends to the single capability
// the response core needs: stream a chat reply, or fail with a classifiable
// reason. Image generation rides along for the attachment-capable surfaces.
package providers

import "context"

// Attachment is an inline binary payload sent with a message.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Message is one prior conversation turn.
type Message struct {
	Role       string // "user" or "assistant"
	Text       string
	Attachment *Attachment
}

// ChatRequest carries everything one streaming call needs.
type ChatRequest struct {
	SystemInstruction string
	History           []Message
	Message           string
	Attachment        *Attachment
}

// Provider is the AI capability contract. StreamChat invokes onDelta once per
// incremental text fragment and returns the full accumulated reply.
// Implementations must honor ctx cancellation without leaking the underlying
// connection.
type Provider interface {
	Name() string
	StreamChat(ctx context.Context, req ChatRequest, onDelta func(delta string)) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
