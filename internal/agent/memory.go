package agent

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryEntry is one item a Memory backend stores per user.
type MemoryEntry struct {
	ID      string
	Content string
	Tags    []string
}

// Memory is the pluggable long-term memory store a Responder-using agent
// may consult across runs, keyed per user.
type Memory interface {
	Add(userID string, entry MemoryEntry) (MemoryEntry, error)
	Retrieve(userID, query string, limit int) ([]MemoryEntry, error)
	All(userID string) ([]MemoryEntry, error)
	Update(userID, id string, entry MemoryEntry) error
	Delete(userID, id string) (bool, error)
	Clear(userID string) error
	ClearAll() error
	Size(userID string) (int, error)
}

// InMemoryMemory is an in-process Memory backed by a map of slices. Its
// relevance ranking is a deterministic substring/term-overlap score: it
// prefers entries whose content contains query terms, breaking ties by
// insertion order so results are reproducible across calls.
type InMemoryMemory struct {
	mu      sync.RWMutex
	entries map[string][]MemoryEntry
}

// NewInMemoryMemory creates an empty in-memory Memory store.
func NewInMemoryMemory() *InMemoryMemory {
	return &InMemoryMemory{entries: make(map[string][]MemoryEntry)}
}

func (m *InMemoryMemory) Add(userID string, entry MemoryEntry) (MemoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.entries[userID] = append(m.entries[userID], entry)
	return entry, nil
}

func (m *InMemoryMemory) Retrieve(userID, query string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	all, ok := m.entries[userID]
	if !ok || len(all) == 0 {
		return nil, nil
	}

	type scored struct {
		entry MemoryEntry
		score int
		order int
	}
	terms := strings.Fields(strings.ToLower(query))
	ranked := make([]scored, 0, len(all))
	for i, e := range all {
		score := relevanceScore(e, terms)
		if len(terms) > 0 && score == 0 {
			continue
		}
		ranked = append(ranked, scored{entry: e, score: score, order: i})
	}
	if len(terms) == 0 {
		// No query terms: fall back to most-recent-first.
		for i := range ranked {
			ranked[i].score = 0
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order > ranked[j].order
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]MemoryEntry, len(ranked))
	for i, r := range ranked {
		out[i] = r.entry
	}
	return out, nil
}

func relevanceScore(e MemoryEntry, terms []string) int {
	content := strings.ToLower(e.Content)
	score := 0
	for _, t := range terms {
		if t == "" {
			continue
		}
		score += strings.Count(content, t)
	}
	for _, tag := range e.Tags {
		tagLower := strings.ToLower(tag)
		for _, t := range terms {
			if t != "" && strings.Contains(tagLower, t) {
				score++
			}
		}
	}
	return score
}

func (m *InMemoryMemory) All(userID string) ([]MemoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]MemoryEntry(nil), m.entries[userID]...)
	return out, nil
}

func (m *InMemoryMemory) Update(userID, id string, entry MemoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries[userID] {
		if e.ID == id {
			entry.ID = id
			m.entries[userID][i] = entry
			return nil
		}
	}
	return nil
}

func (m *InMemoryMemory) Delete(userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.entries[userID]
	for i, e := range list {
		if e.ID == id {
			m.entries[userID] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *InMemoryMemory) Clear(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

func (m *InMemoryMemory) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]MemoryEntry)
	return nil
}

func (m *InMemoryMemory) Size(userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[userID]), nil
}
