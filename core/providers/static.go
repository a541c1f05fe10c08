package providers

import (
	"context"
	"sync"
)

// RespondFunc produces the response for a scripted completion.
type RespondFunc func(ctx context.Context, req *Request) (*Response, error)

// StaticProvider serves canned responses. It backs dry runs and tests
// where hitting a real API is unwanted.
type StaticProvider struct {
	mu sync.Mutex

	name    string
	models  []ModelInfo
	respond RespondFunc
	calls   []Request
}

// NewStaticProvider creates a scripted provider serving the given models.
func NewStaticProvider(name string, models []ModelInfo, respond RespondFunc) *StaticProvider {
	return &StaticProvider{
		name:    name,
		models:  models,
		respond: respond,
	}
}

func (p *StaticProvider) Name() string {
	return p.name
}

func (p *StaticProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, *req)
	respond := p.respond
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, classifyTransport(p.name, err)
	}

	resp, err := respond(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	if resp.Usage.InputTokens == 0 && resp.Usage.OutputTokens == 0 {
		resp.Usage = Usage{
			InputTokens:  estimateTokens(req.Prompt),
			OutputTokens: estimateTokens(resp.Text),
			Estimated:    true,
		}
	}
	if err := validateText(p.name, resp.Text); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *StaticProvider) ValidateConfig() error {
	return nil
}

func (p *StaticProvider) SupportedModels() []ModelInfo {
	out := make([]ModelInfo, len(p.models))
	copy(out, p.models)
	return out
}

func (p *StaticProvider) CountTokens(text string) int {
	return estimateTokens(text)
}

func (p *StaticProvider) Close() error {
	return nil
}

// Calls returns a copy of every request seen so far.
func (p *StaticProvider) Calls() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Request, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns how many completions were requested.
func (p *StaticProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
