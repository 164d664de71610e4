package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"scorecard-engine/application"
	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var _ application.Summarizer = (*GeminiClient)(nil)

// GeminiClient summarizes rankings through the Gemini REST API, trying each
// configured model in turn.
type GeminiClient struct {
	apiKey  string
	models  []string
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

func NewGeminiClient(apiKey string, models []string, log *logrus.Entry) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		models:  models,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Summarize asks the first model that answers for a recruiter-facing summary
// of the ranking.
func (g *GeminiClient) Summarize(ctx context.Context, job domain.Job, ranking scoring.Ranking) (string, error) {
	prompt, err := summaryPrompt(job, ranking)
	if err != nil {
		return "", err
	}

	var lastError error
	for _, model := range g.models {
		text, err := g.callGeminiWithModel(ctx, prompt, model)
		if err == nil {
			g.log.WithField("model", model).Debug("summary generated")
			return text, nil
		}
		lastError = err
		g.log.WithError(err).WithField("model", model).Warn("model failed")
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("all models failed: %w", lastError)
}

func (g *GeminiClient) callGeminiWithModel(ctx context.Context, prompt string, model string) (string, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": 0.2,
			"topP":        0.8,
			"topK":        40,
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResponse map[string]interface{}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to parse API response: %w", err)
	}

	text, err := extractTextFromResponse(apiResponse)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func extractTextFromResponse(apiResponse map[string]interface{}) (string, error) {
	candidates, ok := apiResponse["candidates"].([]interface{})
	if !ok || len(candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	firstCandidate, ok := candidates[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid candidate format")
	}
	content, ok := firstCandidate["content"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid content format")
	}

	parts, ok := content["parts"].([]interface{})
	if !ok || len(parts) == 0 {
		return "", fmt.Errorf("no parts in content")
	}

	firstPart, ok := parts[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid part format")
	}
	text, ok := firstPart["text"].(string)
	if !ok || text == "" {
		return "", fmt.Errorf("no text in part")
	}
	return text, nil
}

// summaryPrompt embeds the ranking as JSON. The model is told the scores are
// final so the summary only describes them.
func summaryPrompt(job domain.Job, ranking scoring.Ranking) (string, error) {
	data, err := json.MarshalIndent(ranking, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode ranking: %w", err)
	}

	return fmt.Sprintf(
		`You are assisting a recruiter. Summarize the ranking of candidates for the job below.

Job Title:
%s

Job Description:
%s

Ranking (scores are on a 0-100 scale and are final; do not recompute or change them):
%s

Write at most three short paragraphs in plain text:
 - who leads and by how much,
 - notable strengths and gaps per candidate based on top_criteria and category_breakdown,
 - which results are low_confidence because too few evaluators took part.

Refer to candidates exactly by candidate_name. Return ONLY the summary text without markdown.`,
		job.Title, job.Description, string(data)), nil
}
