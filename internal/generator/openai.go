package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"uav-testgen/internal/config"
	"uav-testgen/internal/logging"
)

// ErrNoChoices is returned when the service answers without any completion.
var ErrNoChoices = errors.New("generator returned no choices")

// StatusError reports a non-2xx response from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generator http %d: %s", e.Code, e.Body)
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	HTTP        *http.Client
	Tokens      *TokenLedger
}

// NewClient builds a client from the generator section of the campaign config.
// tokens may be nil.
func NewClient(cfg config.Generator, tokens *TokenLedger) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		HTTP:        &http.Client{Timeout: cfg.Timeout},
		Tokens:      tokens,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Generate sends req as a system plus user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})
	body, err := json.Marshal(chatRequest{Model: c.Model, Messages: msgs, Temperature: c.Temperature})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generator request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generator response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode generator response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	reply := out.Choices[0].Message.Content

	logging.FromContext(ctx).Info("generator reply received",
		"model", c.Model,
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"total_tokens", out.Usage.TotalTokens)

	if c.Tokens != nil {
		id := out.ID
		if id == "" {
			id = uuid.NewString()
		}
		if err := c.Tokens.Record(id, req.Prompt, reply, out.Usage); err != nil {
			logging.FromContext(ctx).Warn("token ledger write failed", "err", err)
		}
	}
	return reply, nil
}
