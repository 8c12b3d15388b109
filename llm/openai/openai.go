// Package openai implements a completion provider on the OpenAI chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tailored-agentic-units/therapy/core/protocol"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

var errNoChoices = errors.New("openai: response has no choices")

// Provider completes transcripts with a chat model.
type Provider struct {
	client    openai.Client
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
// OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL targets an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithModel sets the chat model. Empty keeps DefaultModel.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithMaxTokens caps the reply length. Zero leaves it to the API.
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithRequestOptions passes extra options to the underlying client.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(o *options) { o.request = append(o.request, opts...) }
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	o := options{model: DefaultModel}
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
		client:    openai.NewClient(reqOpts...),
		model:     o.model,
		maxTokens: o.maxTokens,
	}
}

// Model returns the configured chat model.
func (p *Provider) Model() string {
	return p.model
}

// Complete sends messages as a chat completion request and returns the first
// choice as an assistant turn.
func (p *Provider) Complete(ctx context.Context, messages []protocol.Message) (protocol.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: toChatMessages(messages),
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.maxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return protocol.Message{}, errNoChoices
	}

	return protocol.Assistant(resp.Choices[0].Message.Content), nil
}

func toChatMessages(messages []protocol.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case protocol.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case protocol.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}

	return out
}
