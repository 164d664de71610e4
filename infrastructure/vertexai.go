package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"scorecard-engine/application"
	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

var _ application.Summarizer = (*VertexAIClient)(nil)

// VertexAIClient summarizes rankings with a Gemini model on Vertex AI.
type VertexAIClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewVertexAIClient(ctx context.Context, projectID, location, modelName string) (*VertexAIClient, error) {
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.SetTopK(40)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(2048)

	return &VertexAIClient{client: client, model: model}, nil
}

func (v *VertexAIClient) Summarize(ctx context.Context, job domain.Job, ranking scoring.Ranking) (string, error) {
	prompt, err := summaryPrompt(job, ranking)
	if err != nil {
		return "", err
	}

	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates returned")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(b.String()), nil
}

func (v *VertexAIClient) Close() error {
	return v.client.Close()
}
