package providers

import (
	"fmt"
	"sync"

	"github.com/adalundhe/glossforge/core/errors"
)

// ErrUnknownModel marks cost lookups for models absent from the price
// table. Unknown models fail closed: the request is rejected rather than
// silently costing $0.
var ErrUnknownModel = errors.New(errors.KindConfiguration, "model not in price table")

// Pricing is the static per-model price table, in USD per million tokens.
type Pricing struct {
	mu     sync.RWMutex
	models map[string]ModelInfo
}

// NewPricing builds a price table from the models each registered provider
// advertises.
func NewPricing(models ...ModelInfo) *Pricing {
	p := &Pricing{models: make(map[string]ModelInfo, len(models))}
	for _, m := range models {
		p.models[m.ID] = m
	}
	return p
}

// Add registers more models, replacing earlier entries with the same id.
func (p *Pricing) Add(models ...ModelInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range models {
		p.models[m.ID] = m
	}
}

// Known reports whether the model has a price entry.
func (p *Pricing) Known(modelID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.models[modelID]
	return ok
}

// Cost computes the USD cost of a call. Unknown models return
// ErrUnknownModel.
func (p *Pricing) Cost(modelID string, tokensIn, tokensOut int) (float64, error) {
	p.mu.RLock()
	info, ok := p.models[modelID]
	p.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}

	const million = 1_000_000
	cost := float64(tokensIn)/million*info.InputPricePerM +
		float64(tokensOut)/million*info.OutputPricePerM
	return cost, nil
}
