package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-assistants/internal/config"
	"github.com/ashwinyue/next-assistants/internal/service/stream"
)

var testMessages = []*schema.Message{
	schema.SystemMessage("be brief"),
	schema.UserMessage("hi"),
}

// ========== ChatModelInvoker ==========

type fakeChatModel struct {
	chunks    []*schema.Message
	err       error
	gotModel  string
	gotInputs []*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return nil, errors.New("not implemented")
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if m.err != nil {
		return nil, m.err
	}
	o := model.GetCommonOptions(nil, opts...)
	if o.Model != nil {
		m.gotModel = *o.Model
	}
	m.gotInputs = input
	return schema.StreamReaderFromArray(m.chunks), nil
}

func TestChatModelInvoker_Stream(t *testing.T) {
	cm := &fakeChatModel{chunks: []*schema.Message{
		schema.AssistantMessage("Hel", nil),
		schema.AssistantMessage("", nil),
		schema.AssistantMessage("lo", nil),
	}}
	inv := NewChatModelInvoker(cm)

	sr, err := inv.Stream(context.Background(), &Request{Model: "gpt-test", Messages: testMessages})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	got, err := stream.NewAggregator(nil).Aggregate(sr)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got != "Hello" {
		t.Errorf("text = %q, want %q", got, "Hello")
	}
	if cm.gotModel != "gpt-test" {
		t.Errorf("model option = %q, want gpt-test", cm.gotModel)
	}
	if len(cm.gotInputs) != 2 {
		t.Errorf("inputs = %d, want 2", len(cm.gotInputs))
	}
}

func TestChatModelInvoker_Error(t *testing.T) {
	boom := errors.New("rate limited")
	inv := NewChatModelInvoker(&fakeChatModel{err: boom})
	if _, err := inv.Stream(context.Background(), &Request{Messages: testMessages}); !errors.Is(err, boom) {
		t.Errorf("Stream() error = %v, want %v", err, boom)
	}
}

// ========== SSEInvoker ==========

func TestSSEInvoker_Stream(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"response\":\"Hel\"}\n\n")
		io.WriteString(w, "data: {\"response\":\"Hello\"}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	inv := NewSSEInvoker(srv.URL+"/accounts", "acc", "tok", "@cf/default", time.Second)
	sr, err := inv.Stream(context.Background(), &Request{Model: "@cf/meta/llama", Messages: testMessages})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	got, err := stream.NewAggregator(nil).Aggregate(sr)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if got != "HelHello" {
		t.Errorf("text = %q, want %q", got, "HelHello")
	}
	if gotPath != "/accounts/acc/ai/run/@cf/meta/llama" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody["stream"] != true {
		t.Errorf("stream flag = %v, want true", gotBody["stream"])
	}
	if msgs, _ := gotBody["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages = %v", gotBody["messages"])
	}
}

func TestSSEInvoker_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "slow down")
	}))
	defer srv.Close()

	inv := NewSSEInvoker(srv.URL, "", "", "m", time.Second)
	_, err := inv.Stream(context.Background(), &Request{Messages: testMessages})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Stream() error = %v, want status 429", err)
	}
}

// ========== OllamaInvoker ==========

func TestOllamaInvoker_Stream(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		gotModel, _ = req["model"].(string)
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":"Hi"},"done":false}`+"\n")
		io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":" there"},"done":false}`+"\n")
		io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":""},"done":true}`+"\n")
	}))
	defer srv.Close()

	inv, err := NewOllamaInvoker(srv.URL, "llama3", time.Second)
	if err != nil {
		t.Fatalf("NewOllamaInvoker() error = %v", err)
	}
	sr, err := inv.Stream(context.Background(), &Request{Messages: testMessages})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	got, err := stream.NewAggregator(nil).Aggregate(sr)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got != "Hi there" {
		t.Errorf("text = %q, want %q", got, "Hi there")
	}
	if gotModel != "llama3" {
		t.Errorf("model = %q, want llama3", gotModel)
	}
}

// ========== NewInvoker ==========

func TestNewInvoker(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AIConfig
		wantErr bool
	}{
		{"workers ai", config.AIConfig{Provider: "workersai"}, false},
		{"ollama", config.AIConfig{Provider: "ollama"}, false},
		{"openai without key", config.AIConfig{Provider: "openai"}, true},
		{"openai", config.AIConfig{Provider: "openai", OpenAI: config.OpenAIConfig{APIKey: "sk-test"}}, false},
		{"unknown", config.AIConfig{Provider: "nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewInvoker(context.Background(), &tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewInvoker() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && inv == nil {
				t.Error("NewInvoker() returned nil invoker")
			}
		})
	}
}
