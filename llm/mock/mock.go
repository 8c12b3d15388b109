// Package mock provides a scripted llm.Completer for tests and offline runs.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tailored-agentic-units/therapy/core/protocol"
)

// DefaultReply is returned once the script is exhausted and no Fallback is set.
const DefaultReply = "I hear you. Tell me more about how that feels."

// Reply is one scripted completion result.
type Reply struct {
	Content string
	Err     error
	Delay   time.Duration
}

// Text scripts a successful reply.
func Text(content string) Reply {
	return Reply{Content: content}
}

// Fail scripts a provider error.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Completer returns scripted replies in order and records every transcript
// it receives.
type Completer struct {
	// Fallback replaces DefaultReply after the script runs out.
	Fallback string

	mu     sync.Mutex
	script []Reply
	calls  [][]protocol.Message
}

// New creates a Completer with the given script.
func New(script ...Reply) *Completer {
	return &Completer{script: script}
}

// Complete pops the next scripted reply. A Delay waits unless ctx is done
// first, in which case the context error is returned.
func (c *Completer) Complete(ctx context.Context, messages []protocol.Message) (protocol.Message, error) {
	c.mu.Lock()
	c.calls = append(c.calls, protocol.Clone(messages))

	reply := Reply{Content: c.Fallback}
	if len(c.script) > 0 {
		reply = c.script[0]
		c.script = c.script[1:]
	} else if reply.Content == "" {
		reply.Content = DefaultReply
	}
	c.mu.Unlock()

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-ctx.Done():
			return protocol.Message{}, ctx.Err()
		}
	}

	if reply.Err != nil {
		return protocol.Message{}, reply.Err
	}
	return protocol.Assistant(reply.Content), nil
}

// Calls returns the transcripts received so far.
func (c *Completer) Calls() [][]protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]protocol.Message, len(c.calls))
	for i, call := range c.calls {
		out[i] = protocol.Clone(call)
	}
	return out
}
