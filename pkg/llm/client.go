package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnavailable is returned once every attempt against the backend has
	// failed. Callers degrade at their own layer instead of surfacing it raw.
	ErrUnavailable = errors.New("llm: backend unavailable")
	// ErrEmptyResponse is returned when the backend answered but carried no
	// candidate text. Not retried; the payload will not improve.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// TruncatedReply replaces a conversational answer the model could not finish
// within its output budget.
const TruncatedReply = "I had more to say than I could fit. Could you ask me that again?"

// Options configures a Client. Zero values fall back to defaults suitable for
// the hosted generateContent endpoint.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxAttempts int
	BackoffBase time.Duration
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client speaks the generateContent wire contract: one user turn in, one
// candidate out. All retrying lives here so the repositories above never
// sleep on their own.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxAttempts int
	backoffBase time.Duration
	httpClient  *http.Client
	log         *zap.Logger
}

func New(opts Options) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		httpClient:  opts.HTTPClient,
		log:         opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.model == "" {
		c.model = "gemini-2.5-flash"
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 3
	}
	if c.backoffBase <= 0 {
		c.backoffBase = time.Second
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// generate posts one prompt and returns the first candidate's text and finish
// reason. Transport errors and non-2xx statuses are retried with exponential
// backoff; the sleep is abandoned when ctx ends.
func (c *Client) generate(ctx context.Context, req generateRequest) (string, string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", "", fmt.Errorf("llm: encode request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(1<<uint(attempt-1)) * c.backoffBase
			c.log.Warn("backend call failed, retrying",
				zap.Int("attempt", attempt-1), zap.Duration("delay", delay), zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", "", ctx.Err()
			}
		}

		text, reason, err := c.post(ctx, url, body)
		if err == nil {
			return text, reason, nil
		}
		if errors.Is(err, ErrEmptyResponse) || ctx.Err() != nil {
			return "", "", err
		}
		lastErr = err
	}
	return "", "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) post(ctx context.Context, url string, body []byte) (string, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("llm: status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", "", ErrEmptyResponse
	}
	return out.Candidates[0].Content.Parts[0].Text, out.Candidates[0].FinishReason, nil
}

// Summarize produces a short factual summary of one journal entry, colored by
// the mood the user selected.
func (c *Client) Summarize(ctx context.Context, journalText, moodScale string) (string, error) {
	text, _, err := c.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: summarizePrompt(journalText, moodScale)}}}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Converse runs one conversational turn. A response truncated by the output
// budget is replaced with TruncatedReply rather than shown half-finished.
func (c *Client) Converse(ctx context.Context, req ConversationRequest) (Reply, error) {
	text, reason, err := c.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: conversePrompt(req)}}}},
		GenerationConfig: &generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1000,
		},
	})
	if err != nil {
		return Reply{}, err
	}
	if reason == "MAX_TOKENS" {
		c.log.Warn("conversation response truncated by output budget")
		return Reply{Response: TruncatedReply}, nil
	}
	reply := ParseReply(text)
	if reply.Response == "" {
		return Reply{}, ErrEmptyResponse
	}
	return reply, nil
}
