// Package mock provides an in-memory memory.Provider for tests.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tailored-agentic-units/therapy/memory"
)

// Provider records every Add and answers Search from its records. Response
// overrides the search body; SearchErr and AddErr force failures.
type Provider struct {
	Response  json.RawMessage
	SearchErr error
	AddErr    error

	mu       sync.Mutex
	records  []memory.Record
	searches []Query
}

// Query captures the arguments of a Search call.
type Query struct {
	Text   string
	UserID string
	Limit  int
}

// New creates a Provider pre-loaded with records.
func New(records ...memory.Record) *Provider {
	return &Provider{records: records}
}

func (p *Provider) Search(ctx context.Context, query, userID string, limit int) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.searches = append(p.searches, Query{Text: query, UserID: userID, Limit: limit})

	if p.SearchErr != nil {
		return nil, p.SearchErr
	}
	if p.Response != nil {
		return p.Response, nil
	}

	found := []memory.Record{}
	for _, r := range p.records {
		if r.UserID == userID && len(found) < limit {
			found = append(found, r)
		}
	}
	return json.Marshal(map[string]any{"results": found})
}

func (p *Provider) Add(ctx context.Context, text, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.AddErr != nil {
		return p.AddErr
	}
	p.records = append(p.records, memory.Record{Text: text, UserID: userID})
	return nil
}

// Records returns the stored records for userID.
func (p *Provider) Records(userID string) []memory.Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []memory.Record
	for _, r := range p.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// Searches returns the recorded Search calls.
func (p *Provider) Searches() []Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Query(nil), p.searches...)
}
