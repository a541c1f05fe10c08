// Package providers implements the uniform model client adapter over the
// Anthropic, OpenAI, and Google text-generation backends, with per-model
// price tables and token accounting.
package providers

import (
	"context"
)

// ModelInfo describes one model a provider serves, including its price per
// million tokens. Prices feed the batch cost ledger.
type ModelInfo struct {
	ID              string
	Name            string
	MaxContext      int
	InputPricePerM  float64
	OutputPricePerM float64
}

// Provider is the uniform adapter every backend implements. Complete is the
// only blocking operation in the pipeline; it must report token counts on
// success (estimated when the backend omits usage) so the cost ledger stays
// consistent.
type Provider interface {
	Name() string
	SupportedModels() []ModelInfo
	Complete(ctx context.Context, req *Request) (*Response, error)
	CountTokens(text string) int
	ValidateConfig() error
	Close() error
}

// Request is a single completion request.
type Request struct {
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Prompt       string  `json:"prompt"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// Response is a completed generation with usage accounting.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Usage carries token counts for cost computation. Estimated is true when
// the backend did not report usage and counts were derived from text
// length.
type Usage struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	Estimated    bool `json:"estimated,omitempty"`
}

// fallbackCharsPerToken is the character-based estimate used when a
// backend omits usage figures.
const fallbackCharsPerToken = 4

func estimateTokens(text string) int {
	return (len(text) + fallbackCharsPerToken - 1) / fallbackCharsPerToken
}
