// Package chromem provides an embedded vector memory provider backed by
// chromem-go. Each user gets a dedicated collection.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// Provider stores memories as documents in per-user chromem collections.
type Provider struct {
	db          *chromem.DB
	embed       chromem.EmbeddingFunc
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

type options struct {
	path  string
	embed chromem.EmbeddingFunc
}

// Option configures a Provider.
type Option func(*options)

// WithPersistence stores the database under dir. An empty dir keeps
// everything in memory.
func WithPersistence(dir string) Option {
	return func(o *options) { o.path = dir }
}

// WithEmbeddingFunc sets the function used to embed documents and queries.
func WithEmbeddingFunc(fn chromem.EmbeddingFunc) Option {
	return func(o *options) { o.embed = fn }
}

// WithOpenAI embeds with OpenAI text-embedding-3-small. An empty key falls
// back to OPENAI_API_KEY.
func WithOpenAI(apiKey string) Option {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return WithEmbeddingFunc(chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI3Small))
}

// New creates a Provider. Without WithEmbeddingFunc or WithOpenAI the
// deterministic HashEmbedding is used.
func New(opts ...Option) (*Provider, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.embed == nil {
		o.embed = HashEmbedding(DefaultDimensions)
	}

	db := chromem.NewDB()
	if o.path != "" {
		var err error
		db, err = chromem.NewPersistentDB(o.path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}

	return &Provider{
		db:          db,
		embed:       o.embed,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// collection returns the collection for a user, creating it on first use.
func (p *Provider) collection(userID string) (*chromem.Collection, error) {
	p.mu.RLock()
	col, exists := p.collections[userID]
	p.mu.RUnlock()

	if exists {
		return col, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if col, exists := p.collections[userID]; exists {
		return col, nil
	}

	name := "user_" + userID
	if userID == "" {
		name = "global"
	}

	col, err := p.db.GetOrCreateCollection(name, nil, p.embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	p.collections[userID] = col
	return col, nil
}

type result struct {
	ID     string  `json:"id"`
	Memory string  `json:"memory"`
	UserID string  `json:"user_id"`
	Score  float32 `json:"score"`
}

// Search queries the user's collection and returns
// {"results":[{"id","memory","user_id","score"}]} ordered by similarity.
func (p *Provider) Search(ctx context.Context, query, userID string, limit int) (json.RawMessage, error) {
	col, err := p.collection(userID)
	if err != nil {
		return nil, err
	}

	// chromem-go rejects nResults larger than the collection.
	n := min(limit, col.Count())
	found := []result{}

	if n > 0 {
		docs, err := col.Query(ctx, query, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
		for _, doc := range docs {
			found = append(found, result{
				ID:     doc.ID,
				Memory: doc.Content,
				UserID: doc.Metadata["user_id"],
				Score:  doc.Similarity,
			})
		}
	}

	return json.Marshal(map[string]any{"results": found})
}

// Add embeds text and stores it in the user's collection.
func (p *Provider) Add(ctx context.Context, text, userID string) error {
	col, err := p.collection(userID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:      uuid.New().String(),
		Content: text,
		Metadata: map[string]string{
			"user_id":    userID,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Count returns the number of memories stored for userID.
func (p *Provider) Count(userID string) int {
	col, err := p.collection(userID)
	if err != nil {
		return 0
	}
	return col.Count()
}
