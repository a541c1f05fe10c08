package providers

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider implements Provider for OpenAI's GPT models
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIConfig
}

// Supported OpenAI models with prices per million tokens
var openaiModels = []ModelInfo{
	{ID: "gpt-5.2-codex", Name: "OpenAI 5.2 Codex", MaxContext: 400000, InputPricePerM: 1.75, OutputPricePerM: 14.00},
	{ID: "gpt-4.1-nano", Name: "GPT-4.1 Nano", MaxContext: 1000000, InputPricePerM: 0.10, OutputPricePerM: 0.40},
	{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", MaxContext: 16385, InputPricePerM: 0.50, OutputPricePerM: 1.50},
}

// NewOpenAIProvider creates a new OpenAI provider with the given configuration
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	if config.Model == "" {
		config.Model = DefaultOpenAIConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultOpenAIConfig().MaxTokens
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

	if config.Organization != "" {
		opts = append(opts, option.WithHeader("OpenAI-Organization", config.Organization))
	}

	if config.Project != "" {
		opts = append(opts, option.WithHeader("OpenAI-Project", config.Project))
	}

	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string {
	return string(ProviderTypeOpenAI)
}

// Complete performs a non-streaming completion request
func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	completion, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, p.classify(err)
	}

	resp := p.convertResponse(completion)
	if err := validateText(p.Name(), resp.Text); err != nil {
		return nil, err
	}
	return resp, nil
}

// ValidateConfig checks if the provider configuration is valid
func (p *OpenAIProvider) ValidateConfig() error {
	return p.config.Validate()
}

// SupportedModels returns the models this provider serves
func (p *OpenAIProvider) SupportedModels() []ModelInfo {
	out := make([]ModelInfo, len(openaiModels))
	copy(out, openaiModels)
	return out
}

// CountTokens estimates token usage for planning purposes
func (p *OpenAIProvider) CountTokens(text string) int {
	return estimateTokens(text)
}

// Close cleans up any resources
func (p *OpenAIProvider) Close() error {
	return nil
}

// buildParams constructs OpenAI API parameters from a Request
func (p *OpenAIProvider) buildParams(req *Request) openai.ChatCompletionNewParams {
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

	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}

	return params
}

// convertResponse converts an OpenAI response to generic format
func (p *OpenAIProvider) convertResponse(completion *openai.ChatCompletion) *Response {
	var content string
	if len(completion.Choices) > 0 {
		content = completion.Choices[0].Message.Content
	}

	usage := Usage{
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
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
		Model: completion.Model,
		Usage: usage,
	}
}

// classify maps SDK errors to the pipeline taxonomy
func (p *OpenAIProvider) classify(err error) error {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return classifyStatus(apiErr.StatusCode, header, p.Name(), err)
	}
	return classifyTransport(p.Name(), err)
}
