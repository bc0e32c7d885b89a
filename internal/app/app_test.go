package app

import (
	"testing"

	"github.com/jingga-app/jingga/internal/config"
)

func TestBuildProvider(t *testing.T) {
	tests := []struct {
		name    string
		entry   config.ProviderEntry
		wantErr bool
	}{
		{
			name:  "openai native",
			entry: config.ProviderEntry{Name: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"},
		},
		{
			name:    "openai without key",
			entry:   config.ProviderEntry{Name: "openai", Model: "gpt-4o-mini"},
			wantErr: true,
		},
		{
			name:  "ollama via any-llm",
			entry: config.ProviderEntry{Name: "ollama", Model: "llama3.1", BaseURL: "http://localhost:11434"},
		},
		{
			name:    "missing model",
			entry:   config.ProviderEntry{Name: "ollama"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := buildProvider(tt.entry)
			if tt.wantErr {
				if err == nil {
					t.Fatal("err = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildProvider: %v", err)
			}
			if p == nil {
				t.Fatal("provider is nil")
			}
		})
	}
}
