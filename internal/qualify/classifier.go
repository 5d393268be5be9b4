package qualify

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"leadscout/internal/errors"
)

const (
	DefaultOpenAIModel = "gpt-4-turbo"
	DefaultGeminiModel = "gemini-1.5-flash"

	// Gemini's OpenAI-compatible surface
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	temperature = 0.2
	maxTokens   = 300
)

// Classifier sends one prompt to a model and returns its raw text answer.
type Classifier interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ChatClassifier talks to any OpenAI-compatible chat completions endpoint.
type ChatClassifier struct {
	name   string
	model  string
	client openai.Client
}

func NewChatClassifier(name, model string, opts ...option.RequestOption) *ChatClassifier {
	return &ChatClassifier{
		name:   name,
		model:  model,
		client: openai.NewClient(opts...),
	}
}

func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *ChatClassifier {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return NewChatClassifier("openai", model, append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
}

func NewGemini(apiKey, model string, opts ...option.RequestOption) *ChatClassifier {
	if model == "" {
		model = DefaultGeminiModel
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithBaseURL(GeminiBaseURL)}
	return NewChatClassifier("gemini", model, append(base, opts...)...)
}

func (c *ChatClassifier) Name() string { return c.name }

func (c *ChatClassifier) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s chat completion", c.name)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Newf("%s: empty response", c.name)
	}
	return resp.Choices[0].Message.Content, nil
}
