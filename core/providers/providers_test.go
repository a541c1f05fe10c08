package providers

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/glossforge/core/errors"
)

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		header http.Header
		kind   errors.Kind
	}{
		{name: "rate limited", status: 429, kind: errors.KindRateLimited},
		{name: "request timeout", status: 408, kind: errors.KindTimeout},
		{name: "gateway timeout", status: 504, kind: errors.KindTimeout},
		{name: "server error", status: 500, kind: errors.KindProviderError},
		{name: "bad gateway", status: 502, kind: errors.KindProviderError},
		{name: "bad request", status: 400, kind: errors.KindProviderError},
		{name: "unauthorized", status: 401, kind: errors.KindProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := classifyStatus(tt.status, tt.header, "anthropic", stderrors.New("boom"))
			if got := errors.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestClassifyStatusRetryAfter(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("Retry-After", "30")

	err := classifyStatus(429, header, "openai", stderrors.New("boom"))

	var pipelineErr *errors.Error
	require.True(t, stderrors.As(err, &pipelineErr))
	assert.Equal(t, errors.KindRateLimited, pipelineErr.Kind)
	assert.Equal(t, float64(30), pipelineErr.RetryAfter.Seconds())
}

func TestClassifyTransport(t *testing.T) {
	t.Parallel()

	t.Run("deadline becomes timeout", func(t *testing.T) {
		t.Parallel()

		err := classifyTransport("google", context.DeadlineExceeded)
		assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
	})

	t.Run("cancellation passes through", func(t *testing.T) {
		t.Parallel()

		err := classifyTransport("google", context.Canceled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("connection failure is provider error", func(t *testing.T) {
		t.Parallel()

		err := classifyTransport("google", stderrors.New("connection refused"))
		assert.Equal(t, errors.KindProviderError, errors.KindOf(err))
	})
}

func TestValidateText(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateText("anthropic", "a definition"))

	err := validateText("anthropic", "")
	assert.Equal(t, errors.KindInvalidResponse, errors.KindOf(err))
}

func TestPricingCost(t *testing.T) {
	t.Parallel()

	pricing := NewPricing(ModelInfo{
		ID:              "test-model",
		InputPricePerM:  3.00,
		OutputPricePerM: 15.00,
	})

	cost, err := pricing.Cost("test-model", 1_000_000, 1_000_000)
	require.NoError(t, err)
	assert.InDelta(t, 18.00, cost, 1e-9)

	cost, err = pricing.Cost("test-model", 500, 2000)
	require.NoError(t, err)
	assert.InDelta(t, 500.0/1e6*3.00+2000.0/1e6*15.00, cost, 1e-9)
}

func TestPricingUnknownModelFailsClosed(t *testing.T) {
	t.Parallel()

	pricing := NewPricing()

	_, err := pricing.Cost("made-up-model", 100, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	assert.Contains(t, err.Error(), "made-up-model")
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "abc", want: 1},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: "aaaaaaaa", want: 2},
	}

	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func testModels() []ModelInfo {
	return []ModelInfo{
		{ID: "scripted-small", Name: "Scripted Small", InputPricePerM: 1.00, OutputPricePerM: 5.00},
		{ID: "scripted-large", Name: "Scripted Large", InputPricePerM: 5.00, OutputPricePerM: 25.00},
	}
}

func echoProvider(name string) *StaticProvider {
	return NewStaticProvider(name, testModels(), func(_ context.Context, req *Request) (*Response, error) {
		return &Response{Text: "echo: " + req.Prompt}, nil
	})
}

func TestRegistryRouting(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Register(ProviderType("scripted"), echoProvider("scripted")))

	provider, err := registry.ForModel("scripted-small")
	require.NoError(t, err)
	assert.Equal(t, "scripted", provider.Name())

	_, err = registry.ForModel("nonexistent-model")
	require.Error(t, err)

	assert.Equal(t, []string{"scripted-large", "scripted-small"}, registry.Models())
}

func TestRegistryPricingAggregation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Register(ProviderType("scripted"), echoProvider("scripted")))

	assert.True(t, registry.Pricing().Known("scripted-small"))
	assert.False(t, registry.Pricing().Known("claude-nonexistent"))

	cost, err := registry.Pricing().Cost("scripted-large", 1_000_000, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.00, cost, 1e-9)
}

func TestRegistryDefaultFallback(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Register(ProviderType("scripted"), echoProvider("scripted")))

	// Unknown model falls back to the default provider.
	resp, err := registry.Complete(context.Background(), &Request{
		Model:  "unrouted-model",
		Prompt: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Text)
}

func TestStaticProviderRecordsCalls(t *testing.T) {
	t.Parallel()

	provider := echoProvider("scripted")

	_, err := provider.Complete(context.Background(), &Request{Model: "scripted-small", Prompt: "one"})
	require.NoError(t, err)
	_, err = provider.Complete(context.Background(), &Request{Model: "scripted-small", Prompt: "two"})
	require.NoError(t, err)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "one", calls[0].Prompt)
	assert.Equal(t, "two", calls[1].Prompt)
}

func TestStaticProviderEstimatesUsage(t *testing.T) {
	t.Parallel()

	provider := echoProvider("scripted")

	resp, err := provider.Complete(context.Background(), &Request{Model: "scripted-small", Prompt: "12345678"})
	require.NoError(t, err)
	assert.True(t, resp.Usage.Estimated)
	assert.Equal(t, 2, resp.Usage.InputTokens)
	assert.Equal(t, "scripted-small", resp.Model)
}

func TestStaticProviderEmptyTextRejected(t *testing.T) {
	t.Parallel()

	provider := NewStaticProvider("scripted", testModels(), func(_ context.Context, _ *Request) (*Response, error) {
		return &Response{}, nil
	})

	_, err := provider.Complete(context.Background(), &Request{Model: "scripted-small", Prompt: "x"})
	assert.Equal(t, errors.KindInvalidResponse, errors.KindOf(err))
}

func TestProviderConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  BaseConfig
		wantErr bool
	}{
		{
			name:   "valid",
			config: BaseConfig{APIKey: "sk-test", MaxTokens: 1024, Temperature: 0.7},
		},
		{
			name:    "missing key",
			config:  BaseConfig{MaxTokens: 1024},
			wantErr: true,
		},
		{
			name:    "zero max tokens",
			config:  BaseConfig{APIKey: "sk-test"},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			config:  BaseConfig{APIKey: "sk-test", MaxTokens: 1024, Temperature: 2.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestVertexConfigRequiresProject(t *testing.T) {
	t.Parallel()

	config := DefaultGoogleConfig()
	config.APIKey = "test-key"
	config.UseVertexAI = true

	require.Error(t, config.Validate())

	config.ProjectID = "my-project"
	config.Location = "us-central1"
	require.NoError(t, config.Validate())
}
