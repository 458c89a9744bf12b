package llm

import (
	"context"

	"github.com/nebulalabs/nebula/services/research/datatypes"
)

// Message is a single chat turn sent to a backend.
type Message = datatypes.Message

// GenerationParams tunes a single completion call. Nil fields fall back to
// backend defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Temp builds GenerationParams with just a temperature set. The pipeline
// calls models at several fixed temperatures, so this shows up everywhere.
func Temp(t float32) GenerationParams {
	return GenerationParams{Temperature: &t}
}

// LLMClient is the synchronous text-completion service consumed by the
// research pipeline. The model is chosen per call because fast and
// thorough runs use different models against the same backend.
//
// Implementations do not retry: a failed call surfaces its error once and
// the caller decides whether defaults can absorb it.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []Message, params GenerationParams) (string, error)
}
