package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seenimoa/stockqa/internal/config"
)

// ════════════════════════════════════════════════════════════════════
// provider.go
// ════════════════════════════════════════════════════════════════════

func TestMessageConstructors(t *testing.T) {
	if m := SystemMessage("sys"); m.Role != RoleSystem || m.Content != "sys" {
		t.Errorf("SystemMessage: got %+v", m)
	}
	if m := UserMessage("hi"); m.Role != RoleUser {
		t.Errorf("UserMessage: got %+v", m)
	}
	if m := AssistantMessage("ok"); m.Role != RoleAssistant {
		t.Errorf("AssistantMessage: got %+v", m)
	}
}

func TestResponseString(t *testing.T) {
	r := &Response{Content: strings.Repeat("x", 150), Provider: "openai", Model: "gpt-4o-mini",
		Usage: Usage{TotalTokens: 42}, Latency: 1500 * time.Millisecond}
	s := r.String()
	if !strings.Contains(s, "[openai/gpt-4o-mini]") || !strings.Contains(s, "42 tokens") {
		t.Errorf("String: got %q", s)
	}
	if !strings.Contains(s, "...") {
		t.Errorf("String: long content should be truncated, got %q", s)
	}
}

// ════════════════════════════════════════════════════════════════════
// openai.go
// ════════════════════════════════════════════════════════════════════

func TestOpenAIProviderNew(t *testing.T) {
	if _, err := NewOpenAIProvider(""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got: %v", err)
	}

	p, err := NewOpenAIProvider("sk-test", WithOpenAIModel("gpt-4"), WithOpenAIBaseURL("http://custom/"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "openai" || p.model != "gpt-4" || p.baseURL != "http://custom" {
		t.Fatalf("unexpected config: %+v", p)
	}
}

func TestOpenAIChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("missing auth header")
		}

		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model: got %q, want %q", req.Model, "gpt-4o-mini")
		}
		if len(req.Messages) != 2 {
			t.Errorf("messages: got %d, want 2", len(req.Messages))
		}
		if req.Temperature == nil || *req.Temperature != 0.1 {
			t.Errorf("temperature: got %v", req.Temperature)
		}

		json.NewEncoder(w).Encode(openAIChatResponse{
			ID: "chatcmpl-123",
			Choices: []openAIChoice{{
				Message:      Message{Role: RoleAssistant, Content: "AAPL RSI is 62.4"},
				FinishReason: "stop",
			}},
			Usage: Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
			Model: "gpt-4o-mini",
		})
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	resp, err := p.Chat(context.Background(),
		[]Message{SystemMessage("You are helpful."), UserMessage("What is the RSI of AAPL?")},
		&ChatOptions{Temperature: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "AAPL RSI is 62.4" {
		t.Errorf("content: got %q", resp.Content)
	}
	if resp.Provider != "openai" || resp.Usage.TotalTokens != 30 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.FinishReason != FinishStop {
		t.Errorf("finish reason: got %s, want stop", resp.FinishReason)
	}
}

func TestOpenAIErrorHandling(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", 401, `{"error":{"message":"bad key","code":"invalid_api_key"}}`, ErrNoAPIKey},
		{"rate limited", 429, `{"error":{"message":"slow down"}}`, ErrRateLimit},
		{"context length", 400, `{"error":{"message":"too long","code":"context_length_exceeded"}}`, ErrContextLength},
		{"bad model", 404, `{"error":{"message":"nope","code":"model_not_found"}}`, ErrInvalidModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
			_, err := p.Chat(context.Background(), []Message{UserMessage("x")}, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()
	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	_, err := p.Chat(context.Background(), []Message{UserMessage("x")}, nil)
	if err == nil || !strings.Contains(err.Error(), "HTTP 502") {
		t.Errorf("plain error: got %v", err)
	}
}

func TestOpenAIPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	good, _ := NewOpenAIProvider("good", WithOpenAIBaseURL(server.URL))
	if err := good.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	bad, _ := NewOpenAIProvider("bad", WithOpenAIBaseURL(server.URL))
	if err := bad.Ping(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Ping with bad key: got %v", err)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := map[string]FinishReason{
		"stop":           FinishStop,
		"length":         FinishLength,
		"content_filter": FinishReason("content_filter"),
	}
	for in, want := range tests {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q): got %q, want %q", in, got, want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// ollama.go
// ════════════════════════════════════════════════════════════════════

func TestOllamaProviderNew(t *testing.T) {
	p := NewOllamaProvider("")
	if p.baseURL != DefaultOllamaURL || p.model != DefaultOllamaModel {
		t.Errorf("defaults: got %+v", p)
	}
	p = NewOllamaProvider("http://gpu-box:11434/", WithOllamaModel("qwen2.5:7b"))
	if p.baseURL != "http://gpu-box:11434" || p.model != "qwen2.5:7b" || p.Name() != "ollama" {
		t.Errorf("options: got %+v", p)
	}
}

func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		if req.Options == nil || req.Options.NumPredict != 512 {
			t.Errorf("options: got %+v", req.Options)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           req.Model,
			Message:         Message{Role: RoleAssistant, Content: "Revenue grew 8%."},
			Done:            true,
			PromptEvalCount: 100,
			EvalCount:       12,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL)
	resp, err := p.Chat(context.Background(), []Message{UserMessage("revenue?")}, &ChatOptions{MaxTokens: 512})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Revenue grew 8%." || resp.Model != DefaultOllamaModel {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Usage.TotalTokens != 112 {
		t.Errorf("tokens: got %d, want 112", resp.Usage.TotalTokens)
	}
}

func TestOllamaHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, WithOllamaModel("nope"))
	_, err := p.Chat(context.Background(), []Message{UserMessage("x")}, nil)
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("got %v, want ErrInvalidModel", err)
	}
}

func TestOllamaPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	if err := NewOllamaProvider(server.URL).Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	server.Close()
	if err := NewOllamaProvider(server.URL).Ping(context.Background()); !errors.Is(err, ErrProviderDown) {
		t.Errorf("Ping closed server: got %v", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// router.go
// ════════════════════════════════════════════════════════════════════

type mockProvider struct {
	name     string
	chatFunc func(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)
	pingErr  error
	calls    int
}

func (m *mockProvider) Name() string                   { return m.name }
func (m *mockProvider) Ping(ctx context.Context) error { return m.pingErr }
func (m *mockProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	m.calls++
	if m.chatFunc != nil {
		return m.chatFunc(ctx, messages, opts)
	}
	return &Response{Content: "mock response", Provider: m.name}, nil
}

func failing(err error) func(context.Context, []Message, *ChatOptions) (*Response, error) {
	return func(context.Context, []Message, *ChatOptions) (*Response, error) { return nil, err }
}

func TestRouterBasic(t *testing.T) {
	r := NewRouter("primary")
	r.RegisterProvider(&mockProvider{name: "primary"})

	p, err := r.Primary()
	if err != nil || p.Name() != "primary" {
		t.Fatalf("Primary: %v, %v", p, err)
	}
	if names := r.ProviderNames(); len(names) != 1 || names[0] != "primary" {
		t.Errorf("ProviderNames: %v", names)
	}
	if r.Name() != "router/primary" {
		t.Errorf("Name: got %q", r.Name())
	}
}

func TestRouterFallback(t *testing.T) {
	r := NewRouter("primary", WithFallbacks("backup"), WithMaxRetries(0))
	primary := &mockProvider{name: "primary", chatFunc: failing(fmt.Errorf("%w: primary down", ErrProviderDown))}
	backup := &mockProvider{name: "backup"}
	r.RegisterProvider(primary)
	r.RegisterProvider(backup)

	resp, err := r.Chat(context.Background(), []Message{UserMessage("test")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Provider != "backup" {
		t.Errorf("expected fallback response, got: %+v", resp)
	}
	if primary.calls != 1 || backup.calls != 1 {
		t.Errorf("calls: primary=%d backup=%d", primary.calls, backup.calls)
	}
}

func TestRouterRetries(t *testing.T) {
	attempts := 0
	r := NewRouter("a", WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	r.RegisterProvider(&mockProvider{name: "a", chatFunc: func(context.Context, []Message, *ChatOptions) (*Response, error) {
		attempts++
		if attempts < 3 {
			return nil, ErrRateLimit
		}
		return &Response{Content: "ok"}, nil
	}})

	resp, err := r.Chat(context.Background(), []Message{UserMessage("x")}, nil)
	if err != nil || resp.Content != "ok" {
		t.Fatalf("Chat: %v, %v", resp, err)
	}
	if attempts != 3 {
		t.Errorf("attempts: got %d, want 3", attempts)
	}
}

func TestRouterAllFail(t *testing.T) {
	r := NewRouter("a", WithFallbacks("b"), WithMaxRetries(0))
	r.RegisterProvider(&mockProvider{name: "a", chatFunc: failing(errors.New("a failed"))})
	r.RegisterProvider(&mockProvider{name: "b", chatFunc: failing(errors.New("b failed"))})

	_, err := r.Chat(context.Background(), []Message{UserMessage("x")}, nil)
	if err == nil || !strings.Contains(err.Error(), "all providers failed") || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("got %v", err)
	}
}

func TestRouterNoProviders(t *testing.T) {
	_, err := NewRouter("missing").Chat(context.Background(), []Message{UserMessage("x")}, nil)
	if !errors.Is(err, ErrNoProviders) {
		t.Errorf("got %v, want ErrNoProviders", err)
	}
}

func TestRouterNonRetryableError(t *testing.T) {
	r := NewRouter("a", WithFallbacks("b"), WithMaxRetries(3))
	a := &mockProvider{name: "a", chatFunc: failing(fmt.Errorf("%w: bad key", ErrNoAPIKey))}
	b := &mockProvider{name: "b"}
	r.RegisterProvider(a)
	r.RegisterProvider(b)

	_, err := r.Chat(context.Background(), []Message{UserMessage("x")}, nil)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("got %v, want ErrNoAPIKey", err)
	}
	if a.calls != 1 || b.calls != 0 {
		t.Errorf("calls: a=%d b=%d", a.calls, b.calls)
	}
}

func TestRouterDefaultOptions(t *testing.T) {
	var seen *ChatOptions
	r := NewRouter("a", WithDefaultOptions(ChatOptions{Temperature: 0.1, MaxTokens: 2048, TopP: 0.9}))
	r.RegisterProvider(&mockProvider{name: "a", chatFunc: func(_ context.Context, _ []Message, opts *ChatOptions) (*Response, error) {
		seen = opts
		return &Response{}, nil
	}})

	if _, err := r.Chat(context.Background(), nil, &ChatOptions{MaxTokens: 100}); err != nil {
		t.Fatal(err)
	}
	if seen.Temperature != 0.1 || seen.MaxTokens != 100 || seen.TopP != 0.9 {
		t.Errorf("merged options: got %+v", seen)
	}
}

func TestRouterPing(t *testing.T) {
	r := NewRouter("a", WithFallbacks("b"))
	r.RegisterProvider(&mockProvider{name: "a", pingErr: ErrProviderDown})
	r.RegisterProvider(&mockProvider{name: "b"})
	if err := r.Ping(context.Background()); err != nil {
		t.Errorf("Ping with healthy fallback: %v", err)
	}

	down := NewRouter("a")
	down.RegisterProvider(&mockProvider{name: "a", pingErr: ErrProviderDown})
	if err := down.Ping(context.Background()); !errors.Is(err, ErrProviderDown) {
		t.Errorf("Ping: got %v", err)
	}

	if err := NewRouter("none").Ping(context.Background()); !errors.Is(err, ErrNoProviders) {
		t.Errorf("Ping without providers: got %v", err)
	}
}

func TestRouterHealthCheck(t *testing.T) {
	r := NewRouter("a")
	r.RegisterProvider(&mockProvider{name: "a"})
	r.RegisterProvider(&mockProvider{name: "b", pingErr: ErrProviderDown})

	results := r.HealthCheck(context.Background())
	if len(results) != 2 || results["a"] != nil || !errors.Is(results["b"], ErrProviderDown) {
		t.Errorf("HealthCheck: got %v", results)
	}
}

func TestNewRouterFromConfig(t *testing.T) {
	cfg := config.LLMConfig{
		Primary:   ProviderOpenAI,
		OllamaURL: "http://localhost:11434",
		Model:     "gpt-4o",
	}

	// No key: OpenAI is skipped and Ollama takes over as primary.
	r, err := NewRouterFromConfig(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.primary != ProviderOllama {
		t.Errorf("primary: got %q, want ollama", r.primary)
	}

	cfg.OpenAIKey = "sk-test"
	r, err = NewRouterFromConfig(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.primary != ProviderOpenAI {
		t.Errorf("primary: got %q, want openai", r.primary)
	}
	if len(r.fallbacks) != 1 || r.fallbacks[0] != ProviderOllama {
		t.Errorf("fallbacks: got %v", r.fallbacks)
	}
	if got := r.ProviderNames(); len(got) != 2 {
		t.Errorf("ProviderNames: got %v", got)
	}

	if _, err := NewRouterFromConfig(config.LLMConfig{Primary: ProviderOllama}, nil); !errors.Is(err, ErrNoProviders) {
		t.Errorf("empty config: got %v", err)
	}
}

func TestNewRouterFromConfigSingleAttempt(t *testing.T) {
	var chats atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat" {
			chats.Add(1)
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer server.Close()

	r, err := NewRouterFromConfig(config.LLMConfig{Primary: ProviderOllama, OllamaURL: server.URL, Model: "llama3"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.maxRetries != 0 {
		t.Errorf("maxRetries: got %d, want 0", r.maxRetries)
	}

	if _, err := r.Chat(context.Background(), []Message{UserMessage("x")}, nil); err == nil {
		t.Fatal("expected error from failing provider")
	}
	if got := chats.Load(); got != 1 {
		t.Errorf("chat requests: got %d, want 1", got)
	}
}
