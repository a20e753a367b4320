package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateBody(text, finishReason string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"parts": []map[string]string{{"text": text}}},
			"finishReason": finishReason,
		}},
	})
	return string(body)
}

func testClient(url string) *Client {
	return New(Options{
		BaseURL:     url,
		APIKey:      "test-key",
		Model:       "test-model",
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	})
}

func TestSummarizeSendsPromptAndReturnsText(t *testing.T) {
	var gotPath string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, candidateBody("  A quiet, grateful day.  ", "STOP"))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Summarize(context.Background(), "Wrote letters all morning.", "grateful")
	require.NoError(t, err)
	assert.Equal(t, "A quiet, grateful day.", got)

	assert.Equal(t, "/models/test-model:generateContent?key=test-key", gotPath)
	require.Len(t, gotBody.Contents, 1)
	prompt := gotBody.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "described their mood as grateful")
	assert.Contains(t, prompt, "Wrote letters all morning.")
	assert.Nil(t, gotBody.GenerationConfig)
}

func TestConverseParsesStructuredReply(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		reply := `{"response":"That sounds lovely.","taskUpdates":{"newTasks":[{"text":"Plan a picnic","reason":"user wants time outside"}],"removeTasks":[]}}`
		fmt.Fprint(w, candidateBody("```json\n"+reply+"\n```", "STOP"))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Converse(context.Background(), ConversationRequest{
		Summaries:        []string{"Spent the weekend outdoors."},
		UserPersonaText:  "Enjoys nature.",
		ChatbotPersonaID: "aria",
		Questions:        []string{"What should I do this weekend?"},
		ConversationHistory: []Turn{
			{Role: "user", Text: "Hi"},
			{Role: "assistant", Text: "Hello!"},
		},
		CurrentTasks: []TaskRef{
			{ID: "1", Text: "Buy groceries"},
			{ID: "2", Text: "Call mom", Completed: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "That sounds lovely.", got.Response)
	require.Len(t, got.Directive.NewTasks, 1)
	assert.Equal(t, "Plan a picnic", got.Directive.NewTasks[0].Text)

	require.NotNil(t, gotBody.GenerationConfig)
	assert.Equal(t, 0.7, gotBody.GenerationConfig.Temperature)
	assert.Equal(t, 1000, gotBody.GenerationConfig.MaxOutputTokens)

	prompt := gotBody.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Current Active Tasks (1):")
	assert.Contains(t, prompt, "- Buy groceries")
	assert.Contains(t, prompt, "Recently Completed Tasks (1):")
	assert.Contains(t, prompt, "user: Hi")
	assert.Contains(t, prompt, "User's current question: What should I do this weekend?")
}

func TestConverseTruncationFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateBody(`{"response":"I was going to sa`, "MAX_TOKENS"))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Converse(context.Background(), ConversationRequest{Questions: []string{"hi"}})
	require.NoError(t, err)
	assert.Equal(t, TruncatedReply, got.Response)
	assert.True(t, got.Directive.Empty())
}

func TestGenerateRetriesUntilSuccess(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, candidateBody("Recovered.", "STOP"))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Summarize(context.Background(), "text", "calm")
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", got)
	assert.Equal(t, 3, calls)
}

func TestGenerateExhaustsRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Summarize(context.Background(), "text", "sad")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls)
}

func TestGenerateEmptyCandidatesNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Summarize(context.Background(), "text", "happy")
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 1, calls)
}

func TestGenerateHonorsContextDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Options{
		BaseURL:     srv.URL,
		MaxAttempts: 5,
		BackoffBase: time.Hour, // would stall without cancellation
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Summarize(ctx, "text", "tired")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
