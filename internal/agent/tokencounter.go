package agent

import (
	agentcontext "github.com/haasonsaas/conclave/internal/context"
)

// TokenCounter estimates token consumption for text, images, and whole
// input items before a Request is sent to a Responder.
type TokenCounter interface {
	CountText(s string) int
	CountImage(imageRef string) int
	CountItem(item InputItem) int
}

// HeuristicTokenCounter estimates tokens using the same conservative
// chars-per-token ratio the rest of the stack uses for context-window
// accounting, with a flat per-image surcharge approximating a low-detail
// vision tile.
type HeuristicTokenCounter struct {
	// TokensPerImage is the flat estimate charged per image reference.
	// Defaults to 85 (OpenAI's low-detail tile cost) when zero.
	TokensPerImage int
}

func (c HeuristicTokenCounter) CountText(s string) int {
	return agentcontext.EstimateTokens(s)
}

func (c HeuristicTokenCounter) CountImage(string) int {
	if c.TokensPerImage > 0 {
		return c.TokensPerImage
	}
	return 85
}

func (c HeuristicTokenCounter) CountItem(item InputItem) int {
	n := c.CountText(item.Content) + c.CountText(item.Output)
	if item.Type == "message" {
		n += 4 // role/envelope overhead, matching common provider accounting
	}
	return n
}
