package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"overloaded 503", &openai.APIError{HTTPStatusCode: 503}, KindOverloaded},
		{"rate limited 429", &openai.APIError{HTTPStatusCode: 429}, KindOverloaded},
		{"server error 500", &openai.APIError{HTTPStatusCode: 500}, KindUnavailable},
		{"bad gateway 502", &openai.APIError{HTTPStatusCode: 502}, KindUnavailable},
		{"bad request 400", &openai.APIError{HTTPStatusCode: 400}, KindOther},
		{"auth 401", &openai.APIError{HTTPStatusCode: 401}, KindOther},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"plain error", errors.New("connection refused"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("classify() kind = %v, want %v", got.Kind, tt.want)
			}
			if got.Err == nil {
				t.Error("classify() should preserve the cause")
			}
		})
	}
}

func TestClassifyWrappedAPIError(t *testing.T) {
	err := fmt.Errorf("model API call: %w", &openai.APIError{HTTPStatusCode: 503})
	got := classify(err)
	if got.Kind != KindOverloaded {
		t.Errorf("expected overloaded through wrapping, got %v", got.Kind)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindOverloaded, true},
		{KindUnavailable, true},
		{KindTimeout, true},
		{KindMalformed, false},
		{KindOther, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			e := &ModelError{Kind: tt.kind, Err: errors.New("x")}
			if e.Transient() != tt.want {
				t.Errorf("Transient() = %v, want %v", e.Transient(), tt.want)
			}
		})
	}
}

func TestModelErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := &ModelError{Kind: KindUnavailable, Err: cause}
	if !errors.Is(e, cause) {
		t.Error("ModelError should unwrap to its cause")
	}

	var me *ModelError
	wrapped := fmt.Errorf("analyze test: %w", e)
	if !errors.As(wrapped, &me) {
		t.Fatal("errors.As should find ModelError through wrapping")
	}
	if me.Kind != KindUnavailable {
		t.Errorf("expected unavailable, got %v", me.Kind)
	}
}
