package agent

import (
	agentcontext "github.com/haasonsaas/conclave/internal/context"
	"github.com/haasonsaas/conclave/pkg/models"
)

// ContextManagementStrategy prunes an oversized history down to a token
// budget while preserving a policy's invariants (e.g. never dropping the
// system instructions, always keeping the most recent turns intact).
type ContextManagementStrategy interface {
	Prune(history []HistoryEntry, counter TokenCounter, budgetTokens int) []HistoryEntry
}

// SlidingWindowStrategy keeps the most recent entries that fit within the
// token budget, dropping the oldest first. It is the default strategy:
// simple, predictable, and the one most of the teacher stack's truncation
// logic implements as TruncateOldest.
type SlidingWindowStrategy struct{}

func (SlidingWindowStrategy) Prune(history []HistoryEntry, counter TokenCounter, budgetTokens int) []HistoryEntry {
	if counter == nil {
		counter = HeuristicTokenCounter{}
	}
	if budgetTokens <= 0 || len(history) == 0 {
		return history
	}

	used := 0
	kept := make([]HistoryEntry, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		cost := counter.CountText(history[i].Content)
		if used+cost > budgetTokens && len(kept) > 0 {
			break
		}
		used += cost
		kept = append(kept, history[i])
	}
	// reverse back into chronological order
	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}
	return kept
}

// RetainFirstSystemStrategy behaves like SlidingWindowStrategy but always
// keeps the first system-role entry (the original instructions/context
// preamble) regardless of budget, matching the "keep-first" invariant the
// teacher's packer applied to system messages.
type RetainFirstSystemStrategy struct{}

func (RetainFirstSystemStrategy) Prune(history []HistoryEntry, counter TokenCounter, budgetTokens int) []HistoryEntry {
	if len(history) == 0 {
		return history
	}
	var firstSystem *HistoryEntry
	rest := make([]HistoryEntry, 0, len(history))
	for i := range history {
		if firstSystem == nil && history[i].Role == "system" {
			e := history[i]
			firstSystem = &e
			continue
		}
		rest = append(rest, history[i])
	}

	if counter == nil {
		counter = HeuristicTokenCounter{}
	}
	reserved := 0
	if firstSystem != nil {
		reserved = counter.CountText(firstSystem.Content)
	}
	pruned := SlidingWindowStrategy{}.Prune(rest, counter, budgetTokens-reserved)

	if firstSystem == nil {
		return pruned
	}
	out := make([]HistoryEntry, 0, len(pruned)+1)
	out = append(out, *firstSystem)
	out = append(out, pruned...)
	return out
}

// TruncatorStrategy adapts an agentcontext.Truncator into a
// ContextManagementStrategy, converting HistoryEntry to and from the
// Truncator's own Message shape. Unlike SlidingWindowStrategy it supports
// TruncateMiddle, at the cost of a conversion pass per prune.
type TruncatorStrategy struct {
	Strategy agentcontext.TruncationStrategy
}

func (s TruncatorStrategy) Prune(history []HistoryEntry, counter TokenCounter, budgetTokens int) []HistoryEntry {
	if budgetTokens <= 0 || len(history) == 0 {
		return history
	}
	if counter == nil {
		counter = HeuristicTokenCounter{}
	}

	messages := make([]agentcontext.Message, len(history))
	for i, h := range history {
		messages[i] = agentcontext.Message{
			Role:     string(h.Role),
			Content:  h.Content,
			Tokens:   counter.CountText(h.Content),
			IsSystem: h.Role == models.RoleSystem,
		}
	}

	truncator := agentcontext.NewTruncator(s.Strategy, budgetTokens)
	pruned, _ := truncator.Truncate(messages)

	// Truncator only ever drops entries; it never reorders or duplicates
	// them. A left-to-right cursor over the original history therefore
	// recovers the dropped-aware mapping back to HistoryEntry even when
	// multiple entries share identical content.
	out := make([]HistoryEntry, 0, len(pruned))
	keepIdx := 0
	for _, m := range pruned {
		for keepIdx < len(history) && (string(history[keepIdx].Role) != m.Role || history[keepIdx].Content != m.Content) {
			keepIdx++
		}
		if keepIdx < len(history) {
			out = append(out, history[keepIdx])
			keepIdx++
		}
	}
	return out
}

// budgetForModel resolves a model's context window into a budget reserving
// headroom for the next model response.
func budgetForModel(model string, maxOutputTokens int) int {
	window, ok := agentcontext.GetModelContextWindow(model)
	if !ok {
		window = agentcontext.DefaultContextWindow
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = 4096
	}
	budget := window - maxOutputTokens
	if budget < agentcontext.MinContextWindow {
		budget = agentcontext.MinContextWindow
	}
	return budget
}
