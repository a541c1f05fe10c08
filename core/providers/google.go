package providers

import (
	"context"
	stderrors "errors"

	"google.golang.org/genai"
)

// GoogleProvider implements Provider for Google's Gemini models
type GoogleProvider struct {
	client *genai.Client
	config GoogleConfig
}

// Supported Gemini models with prices per million tokens
var googleModels = []ModelInfo{
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", MaxContext: 1048576, InputPricePerM: 1.25, OutputPricePerM: 10.00},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", MaxContext: 1048576, InputPricePerM: 0.30, OutputPricePerM: 2.50},
	{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash Lite", MaxContext: 1048576, InputPricePerM: 0.10, OutputPricePerM: 0.40},
}

// NewGoogleProvider creates a new Google provider with the given configuration
func NewGoogleProvider(ctx context.Context, config GoogleConfig) (*GoogleProvider, error) {
	if config.Model == "" {
		config.Model = DefaultGoogleConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultGoogleConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	cc := &genai.ClientConfig{}
	if config.UseVertexAI {
		cc.Backend = genai.BackendVertexAI
		cc.Project = config.ProjectID
		cc.Location = config.Location
	} else {
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = config.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, classifyTransport(string(ProviderTypeGoogle), err)
	}

	return &GoogleProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider identifier
func (p *GoogleProvider) Name() string {
	return string(ProviderTypeGoogle)
}

// Complete performs a non-streaming completion request
func (p *GoogleProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), p.buildConfig(req))
	if err != nil {
		return nil, p.classify(err)
	}

	out := p.convertResponse(model, resp)
	if err := validateText(p.Name(), out.Text); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateConfig checks if the provider configuration is valid
func (p *GoogleProvider) ValidateConfig() error {
	return p.config.Validate()
}

// SupportedModels returns the models this provider serves
func (p *GoogleProvider) SupportedModels() []ModelInfo {
	out := make([]ModelInfo, len(googleModels))
	copy(out, googleModels)
	return out
}

// CountTokens estimates token usage for planning purposes
func (p *GoogleProvider) CountTokens(text string) int {
	return estimateTokens(text)
}

// Close cleans up any resources
func (p *GoogleProvider) Close() error {
	return nil
}

// buildConfig constructs Gemini generation config from a Request
func (p *GoogleProvider) buildConfig(req *Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}

	system := req.SystemPrompt
	if system == "" {
		system = p.config.SystemPrompt
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	} else if p.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(p.config.Temperature))
	}

	return cfg
}

// convertResponse converts a Gemini response to generic format
func (p *GoogleProvider) convertResponse(model string, resp *genai.GenerateContentResponse) *Response {
	content := resp.Text()

	var usage Usage
	if resp.UsageMetadata != nil {
		usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
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
		Model: model,
		Usage: usage,
	}
}

// classify maps SDK errors to the pipeline taxonomy
func (p *GoogleProvider) classify(err error) error {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, nil, p.Name(), err)
	}
	return classifyTransport(p.Name(), err)
}
