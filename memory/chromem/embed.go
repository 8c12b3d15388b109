package chromem

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// DefaultDimensions matches all-MiniLM-L6-v2 sized embeddings.
const DefaultDimensions = 384

// HashEmbedding returns a deterministic, offline EmbeddingFunc. Each
// lowercased word seeds a pseudo-random unit vector; the text embedding is
// their normalized sum, so texts sharing words score as similar.
func HashEmbedding(dimensions int) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		embedding := make([]float32, dimensions)

		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New64a()
			h.Write([]byte(word))
			seed := h.Sum64()

			for i := range embedding {
				seed = seed*6364136223846793005 + 1442695040888963407
				embedding[i] += float32(int64(seed)) / float32(math.MaxInt64)
			}
		}

		return normalize(embedding), nil
	}
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}

	if norm == 0 {
		// chromem-go rejects zero vectors; empty text maps to a fixed axis.
		vec[0] = 1
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
