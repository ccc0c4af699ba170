// Package commentary asks an OpenAI-style completions endpoint for a short
// reaction to a finished performance.
package commentary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FallbackText is used when the model answers with nothing.
const FallbackText = "Mmm~"

// Client is an HTTP client for the completion service
type Client struct {
	BaseURL string
	Model   string
	HTTP    *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Completion string `json:"completion"`
	Choices    []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

func (c *Client) Generate(ctx context.Context, identity string, average float64) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.Model,
		Prompt:      prompt(identity, average),
		Temperature: 0.8,
		MaxTokens:   60,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text := out.Completion
	if text == "" && len(out.Choices) > 0 {
		text = out.Choices[0].Text
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackText, nil
	}
	return text, nil
}

func prompt(identity string, average float64) string {
	return fmt.Sprintf(
		"You are a lively karaoke host. %q just finished singing and the audience rated them %.1f out of 5. "+
			"React in one short sentence (10 to 30 words), no greetings, no self-introduction.",
		identity, average,
	)
}
