// ABOUTME: OpenAI client for embeddings and grounded answer generation
// ABOUTME: Talks to OpenAI or Azure OpenAI; every call has its own timeout and is never retried here
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harper/docqa/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultTimeout bounds a single service call
	DefaultTimeout = 30 * time.Second
	// DefaultAzureAPIVersion is used when none is configured
	DefaultAzureAPIVersion = "2024-06-01"
)

// Providers
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	APIVersion     string
	ChatModel      string
	EmbeddingModel openai.EmbeddingModel
	Timeout        time.Duration
	Temperature    float32
	HTTPClient     *http.Client
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		Provider:       ProviderOpenAI,
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Timeout:        DefaultTimeout,
	}
}

// OpenAIClient wraps the OpenAI API client
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	timeout        time.Duration
	temperature    float32
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, models.InvalidConfig("OpenAI API key is required")
	}

	var cfg openai.ClientConfig
	switch config.Provider {
	case ProviderOpenAI, "":
		cfg = openai.DefaultConfig(config.APIKey)
		if config.BaseURL != "" {
			cfg.BaseURL = config.BaseURL
		}
	case ProviderAzure:
		if config.BaseURL == "" {
			return nil, models.InvalidConfig("Azure OpenAI requires an endpoint (OPENAI_BASE_URL)")
		}
		cfg = openai.DefaultAzureConfig(config.APIKey, config.BaseURL)
		cfg.APIVersion = DefaultAzureAPIVersion
		if config.APIVersion != "" {
			cfg.APIVersion = config.APIVersion
		}
	default:
		return nil, models.InvalidConfig("unknown LLM provider %q", config.Provider)
	}
	if config.HTTPClient != nil {
		cfg.HTTPClient = config.HTTPClient
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	chatModel := config.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := config.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(cfg),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		timeout:        timeout,
		temperature:    config.Temperature,
	}, nil
}

// Embed returns one embedding per input text, in input order
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, classify(models.ErrEmbeddingService, "embed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, models.NewServiceError(models.ErrEmbeddingService, "embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	// the response may arrive in any order; index points back into the request
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, models.NewServiceError(models.ErrEmbeddingService, "embed",
				fmt.Errorf("invalid or duplicate embedding index %d", d.Index))
		}
		if len(d.Embedding) == 0 {
			return nil, models.NewServiceError(models.ErrEmbeddingService, "embed",
				fmt.Errorf("empty embedding at index %d", d.Index))
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}

// Complete sends a system and user message and returns the first choice's text
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	return c.chat(ctx, openai.ChatCompletionRequest{
		Messages: messages(system, user),
	})
}

// GenerateStructured asks for a response matching the JSON schema of out
// and decodes it into out. The raw model text is returned alongside so
// callers can fall back to free-text parsing when decoding fails; such
// failures match models.ErrParse.
func (c *OpenAIClient) GenerateStructured(ctx context.Context, system, user, name string, out any) (string, error) {
	schema, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return "", fmt.Errorf("failed to generate schema for %s: %w", name, err)
	}

	raw, err := c.chat(ctx, openai.ChatCompletionRequest{
		Messages: messages(system, user),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", err
	}

	if err := schema.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("%w: %s response: %v", models.ErrParse, name, err)
	}
	return raw, nil
}

func (c *OpenAIClient) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req.Model = c.chatModel
	req.Temperature = c.temperature

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(models.ErrGenerationService, "chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewServiceError(models.ErrGenerationService, "chat",
			errors.New("no completion choices returned"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func messages(system, user string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

// classify wraps a transport error, marking client errors that will fail again as permanent
func classify(kind error, op string, err error) *models.ServiceError {
	se := models.NewServiceError(kind, op, err)

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		se.Permanent = permanentStatus(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		se.Permanent = permanentStatus(reqErr.HTTPStatusCode)
	}
	return se
}

func permanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
