package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/conclave/internal/agent"
)

// fakeEmbedder deterministically embeds text into a 3-dimensional vector
// based on counts of three marker words, so similarity ranking is
// predictable without calling a real embeddings API.
type fakeEmbedder struct{}

func (fakeEmbedder) Name() string       { return "fake" }
func (fakeEmbedder) Dimension() int     { return 3 }
func (fakeEmbedder) MaxBatchSize() int  { return 100 }

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "cat")),
		float32(strings.Count(lower, "dog")),
		float32(strings.Count(lower, "car")),
	}, nil
}

func (e fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestVectorMemory_RetrieveRanksBySimilarity(t *testing.T) {
	m := NewVectorMemory(fakeEmbedder{})

	if _, err := m.Add("u1", agent.MemoryEntry{Content: "the cat sat on the mat"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := m.Add("u1", agent.MemoryEntry{Content: "the dog barked at the car"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := m.Retrieve("u1", "cat", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if !strings.Contains(results[0].Content, "cat") {
		t.Errorf("top result = %q, want the cat entry", results[0].Content)
	}
}

func TestVectorMemory_SizeAndClear(t *testing.T) {
	m := NewVectorMemory(fakeEmbedder{})
	if _, err := m.Add("u1", agent.MemoryEntry{Content: "a cat"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := m.Add("u1", agent.MemoryEntry{Content: "a dog"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	size, err := m.Size("u1")
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 2 {
		t.Errorf("Size = %d, want 2", size)
	}

	if err := m.Clear("u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	size, _ = m.Size("u1")
	if size != 0 {
		t.Errorf("Size after Clear = %d, want 0", size)
	}
}

func TestVectorMemory_UpdateAndDelete(t *testing.T) {
	m := NewVectorMemory(fakeEmbedder{})
	entry, err := m.Add("u1", agent.MemoryEntry{Content: "a cat", Tags: []string{"animal"}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := m.Update("u1", entry.ID, agent.MemoryEntry{Content: "a big cat", Tags: []string{"animal", "big"}}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	all, err := m.All("u1")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || all[0].Content != "a big cat" {
		t.Fatalf("All = %+v, want updated content", all)
	}

	ok, err := m.Delete("u1", entry.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !ok {
		t.Error("Delete should report the entry was found")
	}
	all, _ = m.All("u1")
	if len(all) != 0 {
		t.Errorf("All after Delete = %+v, want empty", all)
	}
}

func TestVectorMemory_RetrieveWithNonPositiveLimitReturnsNil(t *testing.T) {
	m := NewVectorMemory(fakeEmbedder{})
	if _, err := m.Add("u1", agent.MemoryEntry{Content: "a cat"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	results, err := m.Retrieve("u1", "cat", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if results != nil {
		t.Errorf("Retrieve with limit=0 = %+v, want nil", results)
	}
}
