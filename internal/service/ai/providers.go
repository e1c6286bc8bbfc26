package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Provider is one LLM backend the ModelManager can route to.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req domain.CompletionRequest, preset ModelPreset) (ProviderResult, error)
	Ping(ctx context.Context) bool
}

type ProviderResult struct {
	Text  string
	Model string
}

// OpenAIProvider wraps the OpenAI chat completion client.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
	logger       *zap.Logger
}

func NewOpenAIProvider(apiKey string, defaultModel string, logger *zap.Logger, opts ...option.RequestOption) *OpenAIProvider {
	if apiKey == "" {
		return nil
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client:       &client,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return "OpenAI"
}

func (o *OpenAIProvider) Generate(ctx context.Context, req domain.CompletionRequest, preset ModelPreset) (ProviderResult, error) {
	if o.client == nil {
		return ProviderResult{}, fmt.Errorf("OpenAI client not initialized")
	}

	config := GetPresetConfig(preset)
	modelName := o.defaultModel

	o.logger.Debug("Generating with OpenAI",
		zap.String("model", modelName),
		zap.String("preset", string(preset)),
		zap.Float32("temperature", req.Temperature),
		zap.Bool("json_mode", req.JSON),
	)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(modelName),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(config.MaxOutputTokens)),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	// Reasoning models reject sampling parameters.
	if !isReasoningModel(modelName) {
		params.Temperature = openai.Float(float64(req.Temperature))
		params.TopP = openai.Float(float64(config.TopP))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		o.logger.Error("OpenAI generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	if len(resp.Choices) == 0 {
		return ProviderResult{}, fmt.Errorf("no choices in OpenAI response")
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return ProviderResult{}, fmt.Errorf("empty response from OpenAI")
	}

	o.logger.Debug("OpenAI response received",
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return ProviderResult{Text: text, Model: modelName}, nil
}

func (o *OpenAIProvider) Ping(ctx context.Context) bool {
	if o.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.defaultModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxCompletionTokens: openai.Int(10),
	})
	if err != nil {
		o.logger.Debug("OpenAI ping failed", zap.Error(err))
		return false
	}

	return len(resp.Choices) > 0
}

func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "gpt-5") || strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4")
}

// GeminiProvider wraps the Gemini client.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
	logger       *zap.Logger
}

// NewGeminiProvider returns nil when no API key is configured.
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string, logger *zap.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:       client,
		defaultModel: defaultModel,
		logger:       logger,
	}, nil
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

func (g *GeminiProvider) Generate(ctx context.Context, req domain.CompletionRequest, preset ModelPreset) (ProviderResult, error) {
	if g.client == nil {
		return ProviderResult{}, fmt.Errorf("gemini client not initialized")
	}

	config := GetPresetConfig(preset)
	temperature := req.Temperature
	topP := config.TopP
	topK := float32(config.TopK)

	genConfig := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		TopK:            &topK,
		MaxOutputTokens: int32(config.MaxOutputTokens),
	}
	if req.JSON {
		genConfig.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	g.logger.Debug("Generating with Gemini",
		zap.String("model", g.defaultModel),
		zap.String("preset", string(preset)),
		zap.Bool("json_mode", req.JSON),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.defaultModel, []*genai.Content{
		{Parts: []*genai.Part{{Text: req.Prompt}}},
	}, genConfig)
	if err != nil {
		g.logger.Error("Gemini generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	text := extractTextFromGeminiResponse(resp)
	if text == "" {
		return ProviderResult{}, fmt.Errorf("empty response from Gemini")
	}

	g.logger.Debug("Gemini response received", zap.Int("length", len(text)))
	return ProviderResult{Text: text, Model: g.defaultModel}, nil
}

func (g *GeminiProvider) Ping(ctx context.Context) bool {
	if g.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	temp := float32(0)
	resp, err := g.client.Models.GenerateContent(ctx, g.defaultModel, []*genai.Content{
		{Parts: []*genai.Part{{Text: "ping"}}},
	}, &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 10,
	})
	if err != nil {
		g.logger.Debug("Gemini ping failed", zap.Error(err))
		return false
	}

	return extractTextFromGeminiResponse(resp) != ""
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}
