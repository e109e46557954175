package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockGenerator generates insights through Anthropic Claude models on
// AWS Bedrock via the InvokeModel API.
type BedrockGenerator struct {
	client *bedrockruntime.Client
	model  string
	region string
}

// NewBedrock creates a Bedrock-backed generator. region defaults to
// us-east-1, model to Claude 3.5 Sonnet.
func NewBedrock(region, model string) (*BedrockGenerator, error) {
	if region == "" {
		region = "us-east-1"
	}
	if model == "" {
		model = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &BedrockGenerator{
		client: bedrockruntime.NewFromConfig(cfg),
		model:  model,
		region: region,
	}, nil
}

// Name returns the generator identifier.
func (g *BedrockGenerator) Name() string { return "bedrock" }

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateChartInsight implements Generator.
func (g *BedrockGenerator) GenerateChartInsight(ctx context.Context, req InsightRequest) (*Insight, error) {
	return g.generateInsight(ctx, req)
}

// GenerateAdvancedInsight implements Generator.
func (g *BedrockGenerator) GenerateAdvancedInsight(ctx context.Context, req InsightRequest) (*Insight, error) {
	return g.generateInsight(ctx, req)
}

func (g *BedrockGenerator) generateInsight(ctx context.Context, req InsightRequest) (*Insight, error) {
	user, err := insightUserPrompt(req)
	if err != nil {
		return nil, err
	}
	text, err := g.invoke(ctx, insightSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	return decodeInsight(text)
}

// GenerateTrainingProgram implements Generator.
func (g *BedrockGenerator) GenerateTrainingProgram(ctx context.Context, req ProgramRequest) (*TrainingProgram, error) {
	text, err := g.invoke(ctx, programSystemPrompt, programUserPrompt(req))
	if err != nil {
		return nil, err
	}
	return decodeProgram(text)
}

func (g *BedrockGenerator) invoke(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        2048,
		System:           system,
		Messages:         []bedrockMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.model),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", classifyTransportErr(err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	text := ""
	for _, c := range resp.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	return text, nil
}
