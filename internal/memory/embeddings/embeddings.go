// Package embeddings defines the provider contract VectorMemory embeds
// content through.
package embeddings

import "context"

// Provider turns text into dense vectors for similarity search.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
	MaxBatchSize() int
}
