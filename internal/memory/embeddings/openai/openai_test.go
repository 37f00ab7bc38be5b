package openai

import (
	"context"
	"testing"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected an error when APIKey is empty")
	}
}

func TestNew_DefaultsModel(t *testing.T) {
	p, err := New(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", p.Name())
	}
	if p.model != "text-embedding-3-small" {
		t.Errorf("model = %q, want text-embedding-3-small", p.model)
	}
}

func TestDimension_KnownModels(t *testing.T) {
	cases := map[string]int{
		"text-embedding-3-large": 3072,
		"text-embedding-3-small": 1536,
		"text-embedding-ada-002": 1536,
		"some-future-model":      1536,
	}
	for model, want := range cases {
		p, err := New(Config{APIKey: "k", Model: model})
		if err != nil {
			t.Fatalf("New(%q): %v", model, err)
		}
		if got := p.Dimension(); got != want {
			t.Errorf("Dimension() for %q = %d, want %d", model, got, want)
		}
	}
}

func TestMaxBatchSize(t *testing.T) {
	p, _ := New(Config{APIKey: "k"})
	if p.MaxBatchSize() != 2048 {
		t.Errorf("MaxBatchSize() = %d, want 2048", p.MaxBatchSize())
	}
}

func TestEmbedBatch_EmptyInputReturnsNilWithoutCallingAPI(t *testing.T) {
	p, _ := New(Config{APIKey: "k"})
	got, err := p.EmbedBatch(context.Background(), nil)
	if err != nil || got != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v, want nil, nil", got, err)
	}
}
