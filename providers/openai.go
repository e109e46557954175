package providers

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGenerator generates insights through the OpenAI chat completions
// API.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-backed generator. model defaults to gpt-4o;
// baseURL may be empty for the public endpoint.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAIGenerator, error) {
	if model == "" {
		model = "gpt-4o"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Name returns the generator identifier.
func (g *OpenAIGenerator) Name() string { return "openai" }

// GenerateChartInsight implements Generator.
func (g *OpenAIGenerator) GenerateChartInsight(ctx context.Context, req InsightRequest) (*Insight, error) {
	return g.generateInsight(ctx, req)
}

// GenerateAdvancedInsight implements Generator. The advanced path shares
// the chart-insight prompt; the section and context in the payload steer
// the model.
func (g *OpenAIGenerator) GenerateAdvancedInsight(ctx context.Context, req InsightRequest) (*Insight, error) {
	return g.generateInsight(ctx, req)
}

func (g *OpenAIGenerator) generateInsight(ctx context.Context, req InsightRequest) (*Insight, error) {
	user, err := insightUserPrompt(req)
	if err != nil {
		return nil, err
	}
	text, err := g.complete(ctx, insightSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	return decodeInsight(text)
}

// GenerateTrainingProgram implements Generator.
func (g *OpenAIGenerator) GenerateTrainingProgram(ctx context.Context, req ProgramRequest) (*TrainingProgram, error) {
	text, err := g.complete(ctx, programSystemPrompt, programUserPrompt(req))
	if err != nil {
		return nil, err
	}
	return decodeProgram(text)
}

func (g *OpenAIGenerator) complete(ctx context.Context, system, user string) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", classifyTransportErr(err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrMalformedOutput
	}
	return completion.Choices[0].Message.Content, nil
}

// classifyTransportErr maps SDK/transport failures onto the generator
// failure classes the engine understands.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrUnavailable, err)
}
