package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the LLM provider names the server knows how to
// construct. Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// LLM providers
	if cfg.LLM.Primary.Name == "" {
		errs = append(errs, errors.New("llm.primary.name is required"))
	} else {
		validateProviderName("llm.primary", cfg.LLM.Primary.Name)
	}
	for i, fb := range cfg.LLM.Fallbacks {
		prefix := fmt.Sprintf("llm.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			validateProviderName(prefix, fb.Name)
		}
	}

	// Dialogue timings
	if cfg.Dialogue.SilenceWindow < 0 {
		errs = append(errs, fmt.Errorf("dialogue.silence_window %s must not be negative", cfg.Dialogue.SilenceWindow.Std()))
	}
	if cfg.Dialogue.ResponseTimeout < 0 {
		errs = append(errs, fmt.Errorf("dialogue.response_timeout %s must not be negative", cfg.Dialogue.ResponseTimeout.Std()))
	}
	if cfg.Dialogue.GoldGramDivisor < 0 {
		errs = append(errs, fmt.Errorf("dialogue.gold_gram_divisor %d must not be negative", cfg.Dialogue.GoldGramDivisor))
	}

	// Transaction enablement
	for typ := range cfg.Transactions.Enabled {
		if !typ.IsValid() {
			errs = append(errs, fmt.Errorf("transactions.enabled: unknown transaction type %q", typ))
		}
	}
	enabled := cfg.Transactions.EnabledTypes()
	anyOn := false
	for _, on := range enabled {
		if on {
			anyOn = true
			break
		}
	}
	if !anyOn {
		slog.Warn("all transaction types are disabled; every request will be rejected")
	}

	// Feedback
	if cfg.Feedback.Sink != "" && !cfg.Feedback.Sink.IsValid() {
		errs = append(errs, fmt.Errorf("feedback.sink %q is invalid; valid values: file, postgres", cfg.Feedback.Sink))
	}
	if cfg.Feedback.Sink == SinkPostgres && cfg.Feedback.PostgresDSN == "" {
		errs = append(errs, errors.New("feedback.postgres_dsn is required when feedback.sink is postgres"))
	}

	// Payment
	if cfg.Payment.BaseURL == "" {
		slog.Warn("payment.base_url is empty; payment links will be relative")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is not found in
// [ValidProviderNames]. Unknown names may still work through an
// OpenAI-compatible base_url, so this is not an error.
func validateProviderName(key, name string) {
	if slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"key", key,
		"name", name,
		"known", ValidProviderNames,
	)
}
