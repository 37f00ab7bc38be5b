package context

// TruncationStrategy selects how Truncator reduces a message list that no
// longer fits its token budget.
type TruncationStrategy string

const (
	// TruncateOldest drops the oldest non-pinned messages first.
	TruncateOldest TruncationStrategy = "oldest"

	// TruncateMiddle keeps the earliest and most recent messages, trimming
	// from the middle of the conversation.
	TruncateMiddle TruncationStrategy = "middle"

	// TruncateSummarize is reserved for a strategy that folds dropped
	// messages into a single summary message rather than discarding them;
	// Truncator does not implement it yet and falls back to TruncateOldest.
	TruncateSummarize TruncationStrategy = "summarize"

	// TruncateNone leaves messages untouched even over budget, so a caller
	// can detect and handle the overflow itself (e.g. by ending the run).
	TruncateNone TruncationStrategy = "none"
)

// TruncationResult reports what a Truncator.Truncate call did, independent
// of the resulting message slice, so a caller can log or meter the
// decision without re-deriving it from before/after slices.
type TruncationResult struct {
	OriginalCount int                `json:"original_count"`
	NewCount      int                `json:"new_count"`
	RemovedCount  int                `json:"removed_count"`
	TokensFreed   int                `json:"tokens_freed"`
	Strategy      TruncationStrategy `json:"strategy"`

	// Summary holds the replacement text when TruncateSummarize is
	// implemented; always empty today.
	Summary string `json:"summary,omitempty"`
}

// Message is a Truncator's view of a single conversation turn: enough to
// decide whether it can be dropped, not a full agent.HistoryEntry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Tokens  int    `json:"tokens"`

	// Pinned messages are never truncated regardless of strategy.
	Pinned bool `json:"pinned,omitempty"`

	// IsSystem messages get the same never-truncate treatment as Pinned;
	// kept as a separate flag since a caller may want to tell the two
	// reasons apart in a TruncationResult's accounting.
	IsSystem bool `json:"is_system,omitempty"`
}

// Truncator reduces a message list to fit within a token budget using one
// of the TruncationStrategy values. The zero value is not usable; build
// one with NewTruncator.
type Truncator struct {
	strategy  TruncationStrategy
	maxTokens int
	keepFirst int // messages always kept at the start, regardless of budget
	keepLast  int // messages always kept at the end, regardless of budget
}

// NewTruncator builds a Truncator for strategy with a maxTokens budget.
// By default it keeps the first message (typically the system prompt) and
// the last two (the most recent exchange); override with SetKeepFirst/
// SetKeepLast.
func NewTruncator(strategy TruncationStrategy, maxTokens int) *Truncator {
	return &Truncator{
		strategy:  strategy,
		maxTokens: maxTokens,
		keepFirst: 1,
		keepLast:  2,
	}
}

// SetKeepFirst overrides how many leading messages are always kept.
func (t *Truncator) SetKeepFirst(n int) {
	if n >= 0 {
		t.keepFirst = n
	}
}

// SetKeepLast overrides how many trailing messages are always kept.
func (t *Truncator) SetKeepLast(n int) {
	if n >= 0 {
		t.keepLast = n
	}
}

// Truncate reduces messages to fit within the token budget, estimating a
// message's Tokens via EstimateTokens when it isn't already set. It
// returns the (possibly unchanged) message slice and a TruncationResult
// describing what happened.
func (t *Truncator) Truncate(messages []Message) ([]Message, *TruncationResult) {
	result := &TruncationResult{
		OriginalCount: len(messages),
		Strategy:      t.strategy,
	}

	total := 0
	for i := range messages {
		if messages[i].Tokens == 0 {
			messages[i].Tokens = EstimateTokens(messages[i].Content)
		}
		total += messages[i].Tokens
	}

	if total <= t.maxTokens {
		result.NewCount = len(messages)
		return messages, result
	}

	switch t.strategy {
	case TruncateMiddle:
		return t.truncateMiddle(messages, result)
	case TruncateNone:
		result.NewCount = len(messages)
		return messages, result
	case TruncateOldest, TruncateSummarize:
		fallthrough
	default:
		return t.truncateOldest(messages, result)
	}
}

func (t *Truncator) truncateOldest(messages []Message, result *TruncationResult) ([]Message, *TruncationResult) {
	if len(messages) == 0 {
		return messages, result
	}

	protected := func(i int) bool {
		return i < t.keepFirst || i >= len(messages)-t.keepLast || messages[i].Pinned || messages[i].IsSystem
	}

	keptTokens := 0
	var candidates []Message
	for i, msg := range messages {
		if protected(i) {
			keptTokens += msg.Tokens
		} else {
			candidates = append(candidates, msg)
		}
	}

	for len(candidates) > 0 && keptTokens+sumTokens(candidates) > t.maxTokens {
		result.TokensFreed += candidates[0].Tokens
		candidates = candidates[1:]
		result.RemovedCount++
	}

	final := make([]Message, 0, len(messages)-result.RemovedCount)
	candidateIdx := 0
	for i, msg := range messages {
		if protected(i) {
			final = append(final, msg)
			continue
		}
		if candidateIdx < len(candidates) {
			final = append(final, candidates[candidateIdx])
			candidateIdx++
		}
	}

	result.NewCount = len(final)
	return final, result
}

func (t *Truncator) truncateMiddle(messages []Message, result *TruncationResult) ([]Message, *TruncationResult) {
	if len(messages) <= t.keepFirst+t.keepLast {
		result.NewCount = len(messages)
		return messages, result
	}

	first := messages[:t.keepFirst]
	last := messages[len(messages)-t.keepLast:]
	middle := messages[t.keepFirst : len(messages)-t.keepLast]

	budget := t.maxTokens - sumTokens(first) - sumTokens(last)
	if budget <= 0 {
		result.RemovedCount = len(middle)
		result.TokensFreed = sumTokens(middle)
		result.NewCount = t.keepFirst + t.keepLast

		final := make([]Message, 0, result.NewCount)
		final = append(final, first...)
		final = append(final, last...)
		return final, result
	}

	var keptMiddle []Message
	middleTokens := 0
	for _, msg := range middle {
		switch {
		case msg.Pinned || msg.IsSystem:
			keptMiddle = append(keptMiddle, msg)
			middleTokens += msg.Tokens
		case middleTokens+msg.Tokens <= budget:
			keptMiddle = append(keptMiddle, msg)
			middleTokens += msg.Tokens
		default:
			result.RemovedCount++
			result.TokensFreed += msg.Tokens
		}
	}

	final := make([]Message, 0, t.keepFirst+len(keptMiddle)+t.keepLast)
	final = append(final, first...)
	final = append(final, keptMiddle...)
	final = append(final, last...)

	result.NewCount = len(final)
	return final, result
}

func sumTokens(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += msg.Tokens
	}
	return total
}
