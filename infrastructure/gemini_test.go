package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

func testRanking() scoring.Ranking {
	return scoring.Ranking{
		Candidates: []scoring.RankedCandidate{
			{Rank: 1, AggregatedCandidate: scoring.AggregatedCandidate{CandidateID: "1", CandidateName: "Ana", TotalScoreAvg: 88.5, EvaluatorsCount: 2}},
		},
		Stats: &scoring.Stats{TotalCandidates: 1, AverageScore: 89, TopScore: 88.5, LowScore: 88.5},
	}
}

func TestGeminiClient_FallsBackToNextModel(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		if strings.Contains(r.URL.Path, "broken-model") {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "contents")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Ana leads with 88.5.  "}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiClient("test-key", []string{"broken-model", "good-model"}, logrus.NewEntry(logrus.New()))
	g.baseURL = srv.URL

	text, err := g.Summarize(context.Background(), domain.Job{Title: "Backend"}, testRanking())
	require.NoError(t, err)
	assert.Equal(t, "Ana leads with 88.5.", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeminiClient_AllModelsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGeminiClient("k", []string{"a", "b"}, logrus.NewEntry(logrus.New()))
	g.baseURL = srv.URL

	_, err := g.Summarize(context.Background(), domain.Job{Title: "Backend"}, testRanking())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all models failed")
	assert.Contains(t, err.Error(), "no candidates in response")
}

func TestSummaryPrompt(t *testing.T) {
	prompt, err := summaryPrompt(domain.Job{Title: "Backend", Description: "Go services"}, testRanking())
	require.NoError(t, err)

	assert.Contains(t, prompt, "Backend")
	assert.Contains(t, prompt, "Go services")
	assert.Contains(t, prompt, `"candidate_name": "Ana"`)
	assert.Contains(t, prompt, "do not recompute")
}

func TestExtractTextFromResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{"ok", `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`, "hi", ""},
		{"no candidates", `{}`, "", "no candidates in response"},
		{"no parts", `{"candidates":[{"content":{"parts":[]}}]}`, "", "no parts in content"},
		{"empty text", `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`, "", "no text in part"},
		{"bad content", `{"candidates":[{"content":"x"}]}`, "", "invalid content format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.body), &resp))

			got, err := extractTextFromResponse(resp)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
