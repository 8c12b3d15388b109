// Package llm defines the completion contract used by the reply stage and
// builds concrete providers from configuration.
//
// Providers live in subpackages:
//
//   - openai: OpenAI chat completions (default model gpt-4o-mini)
//   - anthropic: Anthropic messages
//   - mock: scripted replies for tests and offline runs
//
// Example:
//
//	completer, err := llm.New(&llm.Config{Provider: "openai"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reply := llm.Complete(ctx, completer, history)
package llm

import (
	"context"
	"strings"

	"github.com/tailored-agentic-units/therapy/core/outcome"
	"github.com/tailored-agentic-units/therapy/core/protocol"
)

// Completer produces the next assistant turn for a transcript. The
// transcript starts with any system turns followed by the conversation.
type Completer interface {
	Complete(ctx context.Context, messages []protocol.Message) (protocol.Message, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, messages []protocol.Message) (protocol.Message, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, messages []protocol.Message) (protocol.Message, error) {
	return f(ctx, messages)
}

// Complete runs c against messages and classifies the result. A nil
// completer is Unavailable; a provider error or a reply with no text is
// Failed. The returned message always carries the assistant role.
func Complete(ctx context.Context, c Completer, messages []protocol.Message) outcome.Outcome[protocol.Message] {
	if c == nil {
		return outcome.Absent[protocol.Message]()
	}

	reply, err := c.Complete(ctx, protocol.Clone(messages))
	if err != nil {
		return outcome.Fail[protocol.Message](err)
	}

	if strings.TrimSpace(reply.Content) == "" {
		return outcome.Fail[protocol.Message](ErrEmptyCompletion)
	}

	return outcome.Of(protocol.Assistant(reply.Content))
}
