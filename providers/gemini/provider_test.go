package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/internal/orcherr"
	"github.com/archon-ai/orchestrator/providers"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(providers.GeminiConfig{APIKey: "g-test", BaseURL: srv.URL}, zap.NewNop())
}

func TestExecute_BuildsGenerateContentRequest(t *testing.T) {
	var captured struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		SystemInstruction *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
		GenerationConfig struct {
			Temperature     float64 `json:"temperature"`
			MaxOutputTokens int     `json:"maxOutputTokens"`
		} `json:"generationConfig"`
	}

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-pro:generateContent", r.URL.Path)
		assert.Equal(t, "g-test", r.URL.Query().Get("key"), "gemini authenticates via query parameter")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "bonjour"}]}, "safetyRatings": []}]
		}`))
	})

	result, err := p.Execute(context.Background(), "greet in french", map[string]string{"system_prompt": "be polite"})
	require.NoError(t, err)

	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 1)
	assert.Equal(t, "greet in french", captured.Contents[0].Parts[0].Text)
	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "be polite", captured.SystemInstruction.Parts[0].Text)
	assert.InDelta(t, 0.7, captured.GenerationConfig.Temperature, 0.001)
	assert.Equal(t, 2000, captured.GenerationConfig.MaxOutputTokens)

	assert.Equal(t, "bonjour", result["content"])
	assert.Equal(t, "gemini-pro", result["model"])
}

func TestExecute_NoCandidates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	})

	_, err := p.Execute(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Equal(t, orcherr.ExecutionError, orcherr.CodeOf(err))
}

func TestExecute_ServerErrorIsRetryable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := p.Execute(context.Background(), "x", nil)
	require.Error(t, err)
	assert.True(t, orcherr.IsRetryable(err))
}

func TestInitialize_MissingKey(t *testing.T) {
	p := New(providers.GeminiConfig{}, zap.NewNop())
	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, orcherr.ValidationError, orcherr.CodeOf(err))
}

func TestHealthCheck_ProbesModels(t *testing.T) {
	probed := false
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		probed = true
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "g-test", r.URL.Query().Get("key"))
		w.Write([]byte(`{"models": []}`))
	})

	require.NoError(t, p.HealthCheck(context.Background()))
	assert.True(t, probed)
}
