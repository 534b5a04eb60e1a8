// Package llm wraps the generative-model endpoint behind a typed boundary.
// Transport and API failures are classified into error kinds so callers can
// dispatch degraded-mode behavior with a type switch instead of matching
// error message text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Kind classifies a model-boundary failure.
type Kind int

const (
	// KindOther covers failures with no defined degraded-mode handling.
	KindOther Kind = iota
	// KindOverloaded means the endpoint rejected the call under load
	// (HTTP 429/503-equivalent).
	KindOverloaded
	// KindUnavailable means the endpoint is down or erroring (other 5xx).
	KindUnavailable
	// KindTimeout means the caller's context deadline expired.
	KindTimeout
	// KindMalformed means the endpoint answered but produced no usable
	// content.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindOverloaded:
		return "overloaded"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	default:
		return "other"
	}
}

// ModelError is a classified failure of the generative-model endpoint.
type ModelError struct {
	Kind Kind
	Err  error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Transient reports whether the failure may clear on its own, which is what
// qualifies a caller for degraded-mode fallback.
func (e *ModelError) Transient() bool {
	switch e.Kind {
	case KindOverloaded, KindUnavailable, KindTimeout:
		return true
	}
	return false
}

// classify maps an API error onto a ModelError kind by status code.
func classify(err error) *ModelError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ModelError{Kind: KindTimeout, Err: err}
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		return &ModelError{Kind: KindOverloaded, Err: err}
	case status >= 500:
		return &ModelError{Kind: KindUnavailable, Err: err}
	}
	return &ModelError{Kind: KindOther, Err: err}
}

// Request is a single completion request.
type Request struct {
	System       string
	Prompt       string
	ImageDataURI string
	JSON         bool
	Temperature  float32
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new model client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable and the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// Complete sends one prompt to the model and returns the raw response text.
// The caller validates the text against its output schema; an empty response
// is reported as KindMalformed here because there is nothing to validate.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.ImageDataURI != "" {
		userMsg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: req.ImageDataURI},
			},
		}
	} else {
		userMsg.Content = req.Prompt
	}
	messages = append(messages, userMsg)

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", classify(fmt.Errorf("model API call: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", &ModelError{Kind: KindMalformed, Err: errors.New("model returned no choices")}
	}
	raw := resp.Choices[0].Message.Content
	if strings.TrimSpace(raw) == "" {
		return "", &ModelError{Kind: KindMalformed, Err: errors.New("model returned empty content")}
	}
	slog.Debug("model response", "chars", len(raw))

	return raw, nil
}
