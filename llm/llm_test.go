package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/therapy/core/outcome"
	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/llm"
	"github.com/tailored-agentic-units/therapy/llm/anthropic"
	"github.com/tailored-agentic-units/therapy/llm/mock"
	"github.com/tailored-agentic-units/therapy/llm/openai"
)

func TestComplete(t *testing.T) {
	ctx := context.Background()
	history := []protocol.Message{protocol.Human("Hi, I'm Alice.")}
	cause := errors.New("rate limited")

	tests := []struct {
		name      string
		completer llm.Completer
		wantKind  outcome.Kind
		wantText  string
		wantErr   error
	}{
		{
			name:     "nil completer",
			wantKind: outcome.Unavailable,
		},
		{
			name:      "reply",
			completer: mock.New(mock.Text("Hello Alice, what brings you here?")),
			wantKind:  outcome.Ok,
			wantText:  "Hello Alice, what brings you here?",
		},
		{
			name:      "provider error",
			completer: mock.New(mock.Fail(cause)),
			wantKind:  outcome.Failed,
			wantErr:   cause,
		},
		{
			name:      "blank reply",
			completer: mock.New(mock.Text("   ")),
			wantKind:  outcome.Failed,
			wantErr:   llm.ErrEmptyCompletion,
		},
		{
			name: "role normalized",
			completer: llm.CompleterFunc(func(context.Context, []protocol.Message) (protocol.Message, error) {
				return protocol.Human("wrong role"), nil
			}),
			wantKind: outcome.Ok,
			wantText: "wrong role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := llm.Complete(ctx, tt.completer, history)

			if got.Kind != tt.wantKind {
				t.Fatalf("expected kind %s, got %s", tt.wantKind, got.Kind)
			}
			if tt.wantErr != nil && !errors.Is(got.Err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, got.Err)
			}
			if got.IsOk() {
				if got.Value.Role != protocol.RoleAssistant {
					t.Errorf("expected assistant role, got %s", got.Value.Role)
				}
				if got.Value.Content != tt.wantText {
					t.Errorf("expected %q, got %q", tt.wantText, got.Value.Content)
				}
			}
		})
	}
}

func TestComplete_DoesNotShareHistory(t *testing.T) {
	history := []protocol.Message{protocol.Human("original")}

	completer := llm.CompleterFunc(func(_ context.Context, msgs []protocol.Message) (protocol.Message, error) {
		msgs[0].Content = "mutated"
		return protocol.Assistant("ok"), nil
	})

	llm.Complete(context.Background(), completer, history)

	if history[0].Content != "original" {
		t.Errorf("caller history was mutated: %q", history[0].Content)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := llm.DefaultConfig()
	cfg.Merge(&llm.Config{Provider: "anthropic", Model: "claude-haiku-4-5"})

	if cfg.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %q", cfg.Provider)
	}
	if cfg.Model != "claude-haiku-4-5" {
		t.Errorf("expected model override, got %q", cfg.Model)
	}
	if cfg.MaxTokens != 1024 {
		t.Errorf("expected default max tokens kept, got %d", cfg.MaxTokens)
	}
}

func TestNew(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test")
	t.Setenv("ANTHROPIC_API_KEY", "test")

	tests := []struct {
		name    string
		cfg     llm.Config
		check   func(llm.Completer) bool
		wantErr error
	}{
		{
			name: "default is openai",
			cfg:  llm.Config{},
			check: func(c llm.Completer) bool {
				p, ok := c.(*openai.Provider)
				return ok && p.Model() == openai.DefaultModel
			},
		},
		{
			name: "anthropic with model",
			cfg:  llm.Config{Provider: "anthropic", Model: "claude-haiku-4-5"},
			check: func(c llm.Completer) bool {
				p, ok := c.(*anthropic.Provider)
				return ok && p.Model() == "claude-haiku-4-5"
			},
		},
		{
			name: "mock",
			cfg:  llm.Config{Provider: "mock"},
			check: func(c llm.Completer) bool {
				_, ok := c.(*mock.Completer)
				return ok
			},
		},
		{
			name:    "unknown",
			cfg:     llm.Config{Provider: "parrot"},
			wantErr: llm.ErrUnknownProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := llm.New(&tt.cfg)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(c) {
				t.Errorf("unexpected completer %T", c)
			}
		})
	}
}
