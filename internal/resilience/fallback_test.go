package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jingga-app/jingga/pkg/provider/llm"
	"github.com/jingga-app/jingga/pkg/provider/llm/mock"
)

func TestFallbackGroup_PrimaryFirst(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("backup", "backup")

	var used []string
	err := fg.Execute(func(name string) error {
		used = append(used, name)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(used) != 1 || used[0] != "primary" {
		t.Errorf("used = %v, want [primary]", used)
	}
}

func TestFallbackGroup_FailsOverInOrder(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("backup1", "backup1")
	fg.AddFallback("backup2", "backup2")

	var used []string
	err := fg.Execute(func(name string) error {
		used = append(used, name)
		if name != "backup2" {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"primary", "backup1", "backup2"}
	for i, name := range want {
		if i >= len(used) || used[i] != name {
			t.Fatalf("used = %v, want %v", used, want)
		}
	}
}

func TestFallbackGroup_AllFailed(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("backup", "backup")

	err := fg.Execute(func(string) error { return errBoom })
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fg.AddFallback("backup", "backup")

	// Trip the primary's breaker.
	fg.Execute(func(name string) error {
		if name == "primary" {
			return errBoom
		}
		return nil
	})

	var used []string
	err := fg.Execute(func(name string) error {
		used = append(used, name)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(used) != 1 || used[0] != "backup" {
		t.Errorf("used = %v, want [backup] (primary breaker open)", used)
	}
}

func TestExecuteWithResult(t *testing.T) {
	fg := NewFallbackGroup(1, "one", FallbackConfig{})
	fg.AddFallback("two", 2)

	got, err := ExecuteWithResult(fg, func(n int) (string, error) {
		if n == 1 {
			return "", errBoom
		}
		return "from-two", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "from-two" {
		t.Errorf("result = %q, want from-two", got)
	}

	_, err = ExecuteWithResult(fg, func(int) (string, error) { return "", errBoom })
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_FailsOverToBackup(t *testing.T) {
	primary := &mock.Provider{CompleteErr: errBoom}
	backup := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"type":"transfer"}`},
	}

	f := NewLLMFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("backup", backup)

	resp, err := f.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "transfer 100 ribu ke BCA 1234567890"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"type":"transfer"}` {
		t.Errorf("content = %q", resp.Content)
	}
	if len(primary.CompleteCalls) != 1 {
		t.Errorf("primary calls = %d, want 1", len(primary.CompleteCalls))
	}
	if len(backup.CompleteCalls) != 1 {
		t.Errorf("backup calls = %d, want 1", len(backup.CompleteCalls))
	}
}

func TestLLMFallback_CapabilitiesFromPrimary(t *testing.T) {
	primary := &mock.Provider{
		ModelCapabilities: llm.ModelCapabilities{SupportsJSONMode: true, ContextWindow: 128000},
	}
	f := NewLLMFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("backup", &mock.Provider{})

	caps := f.Capabilities()
	if !caps.SupportsJSONMode || caps.ContextWindow != 128000 {
		t.Errorf("caps = %+v, want primary's", caps)
	}
}
