package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/tradeidea/internal/config"
)

func TestOpenAI_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"LONG gold"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Temperature: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Complete(context.Background(), "idea please")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "LONG gold" {
		t.Errorf("out = %q", out)
	}
	if got.Model != DefaultModel || len(got.Messages) != 1 || got.Messages[0].Content != "idea please" || got.Temperature != 0.2 {
		t.Errorf("request = %+v", got)
	}
	if c.ModelName() != DefaultModel {
		t.Errorf("ModelName = %s", c.ModelName())
	}
}

func TestOpenAI_errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantSub string
	}{
		{"api error", http.StatusUnauthorized, `{"error":{"message":"invalid key"}}`, "invalid key"},
		{"non json", http.StatusServiceUnavailable, `overloaded`, "status 503"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no response choices"},
		{"bad json on ok", http.StatusOK, `{`, "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c, _ := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := c.Complete(context.Background(), "x")
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("err = %v, want containing %q", err, tt.wantSub)
			}
		})
	}
}

func TestMock(t *testing.T) {
	m := NewMock("first", "second")
	ctx := context.Background()
	for _, want := range []string{"first", "second", "second"} {
		got, err := m.Complete(ctx, "p")
		if err != nil || got != want {
			t.Errorf("Complete = %q, %v; want %q", got, err, want)
		}
	}
	if len(m.Prompts()) != 3 {
		t.Errorf("prompts = %d", len(m.Prompts()))
	}

	boom := errors.New("boom")
	if _, err := NewMock().FailWith(boom).Complete(ctx, "p"); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if out, _ := NewMock().Complete(ctx, "p"); out == "" {
		t.Error("unscripted mock should still answer")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(config.LLMConfig{Provider: "openai"}, ""); err == nil {
		t.Error("openai without key should fail")
	}
	l, err := New(config.LLMConfig{Provider: "openai", Model: "gpt-4o", TimeoutSeconds: 5}, "k")
	if err != nil || l.ModelName() != "gpt-4o" {
		t.Errorf("New = %v, %v", l, err)
	}
	if l, err := New(config.LLMConfig{Provider: "mock"}, ""); err != nil || l.ModelName() != "mock" {
		t.Errorf("mock = %v, %v", l, err)
	}
	if _, err := New(config.LLMConfig{Provider: "anthropic"}, ""); err == nil {
		t.Error("unknown provider should fail")
	}
}
