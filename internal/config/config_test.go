package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Queue.Driver != "redis" || cfg.Queue.Stream != "runs" {
		t.Errorf("queue = %+v", cfg.Queue)
	}
	if cfg.Queue.Block() != 5*time.Second || cfg.Queue.MinIdle() != 5*time.Minute {
		t.Errorf("block = %v, minIdle = %v", cfg.Queue.Block(), cfg.Queue.MinIdle())
	}
	if cfg.Worker.MarkFailedOnError {
		t.Error("markFailedOnError should default to false")
	}
	if len(cfg.Models) != 4 {
		t.Fatalf("models = %d, want 4", len(cfg.Models))
	}
	if m := cfg.Models[0]; m.ID != "@cf/meta/llama-2-7b-chat-fp16" || m.StreamTokens != 2500 || m.Context != 3072 {
		t.Errorf("models[0] = %+v", m)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NEXT_ASSISTANTS_WORKER_MARKFAILEDONERROR", "true")
	t.Setenv("NEXT_ASSISTANTS_QUEUE_DRIVER", "nats")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Worker.MarkFailedOnError {
		t.Error("env should enable markFailedOnError")
	}
	if cfg.Queue.Driver != "nats" {
		t.Errorf("driver = %s, want nats", cfg.Queue.Driver)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
models:
  - id: "@cf/custom/model"
    tokens: 100
    streamTokens: 50
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].ID != "@cf/custom/model" || cfg.Models[0].StreamTokens != 50 {
		t.Errorf("models = %+v", cfg.Models)
	}
	if cfg.Queue.Group != "run-processor" {
		t.Errorf("defaults should still apply, group = %q", cfg.Queue.Group)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() error = nil, want error")
	}
}

func TestAIConfig_ChatModel(t *testing.T) {
	tests := []struct {
		name string
		cfg  AIConfig
		want string
	}{
		{"workers ai", AIConfig{Provider: "workersai", WorkersAI: WorkersAIConfig{Model: "@cf/meta/llama"}}, "@cf/meta/llama"},
		{"empty provider is workers ai", AIConfig{WorkersAI: WorkersAIConfig{Model: "@cf/meta/llama"}}, "@cf/meta/llama"},
		{"openai default", AIConfig{Provider: "openai"}, "gpt-4o-mini"},
		{"openai configured", AIConfig{Provider: "openai", OpenAI: OpenAIConfig{Model: "gpt-4o"}}, "gpt-4o"},
		{"ollama", AIConfig{Provider: "ollama", Ollama: OllamaConfig{Model: "llama3"}}, "llama3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ChatModel(); got != tt.want {
				t.Errorf("ChatModel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmbeddingConfig_ModelName(t *testing.T) {
	tests := []struct {
		cfg  EmbeddingConfig
		want string
	}{
		{EmbeddingConfig{}, "text-embedding-v3"},
		{EmbeddingConfig{Provider: "dashscope", Model: "text-embedding-v2"}, "text-embedding-v2"},
		{EmbeddingConfig{Provider: "ollama", Model: "bge-m3"}, "bge-m3"},
		{EmbeddingConfig{Provider: "openai"}, ""},
	}

	for _, tt := range tests {
		if got := tt.cfg.ModelName(); got != tt.want {
			t.Errorf("%+v.ModelName() = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}
