// Package anthropic implements a completion provider on the Anthropic
// messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tailored-agentic-units/therapy/core/protocol"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 1024
)

var errNoText = errors.New("anthropic: response has no text blocks")

// Provider completes transcripts with a Claude model. System turns are
// joined into the request's system prompt.
type Provider struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

type options struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	request   []option.RequestOption
}

// Option configures a Provider.
type Option func(*options)

// WithAPIKey sets the API key. Empty keeps the client default, which reads
// ANTHROPIC_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL targets a different API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithModel sets the model. Empty keeps DefaultModel.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMaxTokens sets the reply token limit. Zero keeps DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithRequestOptions passes extra options to the underlying client.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(o *options) { o.request = append(o.request, opts...) }
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	o := options{model: DefaultModel, maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(&o)
	}

	var reqOpts []option.RequestOption
	if o.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		if !strings.HasSuffix(o.baseURL, "/") {
			o.baseURL += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	reqOpts = append(reqOpts, o.request...)

	return &Provider{
		client:    anthropic.NewClient(reqOpts...),
		model:     o.model,
		maxTokens: o.maxTokens,
	}
}

// Model returns the configured model.
func (p *Provider) Model() string {
	return p.model
}

// Complete sends messages to the messages API and returns the concatenated
// text blocks as an assistant turn.
func (p *Provider) Complete(ctx context.Context, messages []protocol.Message) (protocol.Message, error) {
	system, turns := split(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages:  turns,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return protocol.Message{}, errNoText
	}

	return protocol.Assistant(text.String()), nil
}

func split(messages []protocol.Message) (string, []anthropic.MessageParam) {
	var system []string
	turns := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case protocol.RoleSystem:
			system = append(system, msg.Content)
		case protocol.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return strings.Join(system, "\n\n"), turns
}
