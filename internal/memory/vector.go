// Package memory provides agent.Memory backends beyond the package-level
// term-overlap InMemoryMemory: a vector-similarity store backed by a real
// embeddings provider.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/conclave/internal/agent"
	"github.com/haasonsaas/conclave/internal/memory/embeddings"
	"github.com/haasonsaas/conclave/pkg/models"
)

// VectorMemory is an agent.Memory backend that embeds every entry through
// an embeddings.Provider and ranks Retrieve by cosine similarity instead of
// term overlap. Entries are stored per user as models.MemoryEntry records,
// the same record shape the vector-database-backed memory in the original
// system used, so a real vector store can later replace the in-process map
// without touching this file's ranking logic.
type VectorMemory struct {
	provider embeddings.Provider

	mu      sync.RWMutex
	entries map[string][]*models.MemoryEntry
}

// NewVectorMemory builds a VectorMemory that embeds content through
// provider.
func NewVectorMemory(provider embeddings.Provider) *VectorMemory {
	return &VectorMemory{
		provider: provider,
		entries:  make(map[string][]*models.MemoryEntry),
	}
}

var _ agent.Memory = (*VectorMemory)(nil)

func (m *VectorMemory) Add(userID string, entry agent.MemoryEntry) (agent.MemoryEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	vec, err := m.provider.Embed(context.Background(), entry.Content)
	if err != nil {
		return agent.MemoryEntry{}, fmt.Errorf("memory: embedding entry: %w", err)
	}

	now := time.Now()
	record := &models.MemoryEntry{
		ID:        entry.ID,
		AgentID:   userID,
		Content:   entry.Content,
		Metadata:  models.MemoryMetadata{Tags: entry.Tags},
		Embedding: vec,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.entries[userID] = append(m.entries[userID], record)
	m.mu.Unlock()

	return entry, nil
}

func (m *VectorMemory) Retrieve(userID, query string, limit int) ([]agent.MemoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	all := append([]*models.MemoryEntry(nil), m.entries[userID]...)
	m.mu.RUnlock()
	if len(all) == 0 {
		return nil, nil
	}

	queryVec, err := m.provider.Embed(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("memory: embedding query: %w", err)
	}

	type scored struct {
		record *models.MemoryEntry
		score  float64
	}
	ranked := make([]scored, 0, len(all))
	for _, rec := range all {
		ranked = append(ranked, scored{record: rec, score: cosineSimilarity(queryVec, rec.Embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]agent.MemoryEntry, 0, limit)
	for _, s := range ranked[:limit] {
		out = append(out, toAgentEntry(s.record))
	}
	return out, nil
}

func (m *VectorMemory) All(userID string) ([]agent.MemoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.entries[userID]
	out := make([]agent.MemoryEntry, 0, len(all))
	for _, rec := range all {
		out = append(out, toAgentEntry(rec))
	}
	return out, nil
}

func (m *VectorMemory) Update(userID, id string, entry agent.MemoryEntry) error {
	vec, err := m.provider.Embed(context.Background(), entry.Content)
	if err != nil {
		return fmt.Errorf("memory: embedding updated entry: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.entries[userID] {
		if rec.ID == id {
			rec.Content = entry.Content
			rec.Metadata.Tags = entry.Tags
			rec.Embedding = vec
			rec.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("memory: entry %s not found for user %s", id, userID)
}

func (m *VectorMemory) Delete(userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.entries[userID]
	for i, rec := range all {
		if rec.ID == id {
			m.entries[userID] = append(all[:i], all[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *VectorMemory) Clear(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

func (m *VectorMemory) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]*models.MemoryEntry)
	return nil
}

func (m *VectorMemory) Size(userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[userID]), nil
}

func toAgentEntry(rec *models.MemoryEntry) agent.MemoryEntry {
	return agent.MemoryEntry{ID: rec.ID, Content: rec.Content, Tags: rec.Metadata.Tags}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
