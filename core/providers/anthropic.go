package providers

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for Anthropic's Claude models
type AnthropicProvider struct {
	client *anthropic.Client
	config AnthropicConfig
}

// Supported Anthropic models with prices per million tokens
var anthropicModels = []ModelInfo{
	{ID: "claude-opus-4-5-20251101", Name: "Claude Opus 4.5", MaxContext: 200000, InputPricePerM: 5.00, OutputPricePerM: 25.00},
	{ID: "claude-sonnet-4-5-20250901", Name: "Claude Sonnet 4.5", MaxContext: 1000000, InputPricePerM: 3.00, OutputPricePerM: 15.00},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", MaxContext: 200000, InputPricePerM: 1.00, OutputPricePerM: 5.00},
}

// NewAnthropicProvider creates a new Anthropic provider with the given configuration
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	if config.Model == "" {
		config.Model = DefaultAnthropicConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultAnthropicConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier
func (p *AnthropicProvider) Name() string {
	return string(ProviderTypeAnthropic)
}

// Complete performs a non-streaming completion request
func (p *AnthropicProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, p.classify(err)
	}

	resp := p.convertResponse(msg)
	if err := validateText(p.Name(), resp.Text); err != nil {
		return nil, err
	}
	return resp, nil
}

// ValidateConfig checks if the provider configuration is valid
func (p *AnthropicProvider) ValidateConfig() error {
	return p.config.Validate()
}

// SupportedModels returns the models this provider serves
func (p *AnthropicProvider) SupportedModels() []ModelInfo {
	out := make([]ModelInfo, len(anthropicModels))
	copy(out, anthropicModels)
	return out
}

// CountTokens estimates token usage for planning purposes
func (p *AnthropicProvider) CountTokens(text string) int {
	return estimateTokens(text)
}

// Close cleans up any resources
func (p *AnthropicProvider) Close() error {
	return nil
}

// buildParams constructs Anthropic API parameters from a Request
func (p *AnthropicProvider) buildParams(req *Request) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	system := req.SystemPrompt
	if system == "" {
		system = p.config.SystemPrompt
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(p.config.Temperature)
	}

	return params
}

// convertResponse converts an Anthropic response to generic format
func (p *AnthropicProvider) convertResponse(msg *anthropic.Message) *Response {
	var content string
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += b.Text
		}
	}

	usage := Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		usage = Usage{
			InputTokens:  estimateTokens(content),
			OutputTokens: estimateTokens(content),
			Estimated:    true,
		}
	}

	return &Response{
		Text:  content,
		Model: string(msg.Model),
		Usage: usage,
	}
}

// classify maps SDK errors to the pipeline taxonomy
func (p *AnthropicProvider) classify(err error) error {
	var apiErr *anthropic.Error
	if stderrors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return classifyStatus(apiErr.StatusCode, header, p.Name(), err)
	}
	return classifyTransport(p.Name(), err)
}
