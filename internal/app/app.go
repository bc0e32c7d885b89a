// Package app wires all Jingga subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject doubles via functional options (WithExtractor,
// WithFeedbackStore). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jingga-app/jingga/internal/config"
	"github.com/jingga-app/jingga/internal/dialogue"
	"github.com/jingga-app/jingga/internal/extract"
	"github.com/jingga-app/jingga/internal/extract/rules"
	"github.com/jingga-app/jingga/internal/extract/semantic"
	"github.com/jingga-app/jingga/internal/feedback"
	"github.com/jingga-app/jingga/internal/gateway"
	"github.com/jingga-app/jingga/internal/health"
	"github.com/jingga-app/jingga/internal/lexicon"
	"github.com/jingga-app/jingga/internal/observe"
	"github.com/jingga-app/jingga/internal/payment"
	"github.com/jingga-app/jingga/internal/resilience"
	"github.com/jingga-app/jingga/pkg/provider/llm"
	"github.com/jingga-app/jingga/pkg/provider/llm/anyllm"
	"github.com/jingga-app/jingga/pkg/provider/llm/openai"
)

const defaultListenAddr = ":8080"

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithExtractor injects the semantic extractor instead of building one from
// the configured LLM providers.
func WithExtractor(e extract.Extractor) Option {
	return func(a *App) { a.semantic = e }
}

// WithFeedbackStore injects a feedback store instead of creating one from
// config.
func WithFeedbackStore(s feedback.Store) Option {
	return func(a *App) { a.feedback = s }
}

// WithMetrics injects metrics instruments instead of using the OTel global
// meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// App owns all subsystem lifetimes and serves the voice transaction API.
type App struct {
	cfg *config.Config

	semantic extract.Extractor
	feedback feedback.Store
	metrics  *observe.Metrics
	gateway  *gateway.Handler
	server   *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func(context.Context) error

	stopOnce sync.Once
}

// New creates an App by wiring all subsystems together: the LLM provider
// chain, the extractors, the feedback store, telemetry, and the HTTP server.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initObserve(ctx); err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	if err := a.initExtractor(); err != nil {
		return nil, fmt.Errorf("app: init extractor: %w", err)
	}
	if err := a.initFeedback(ctx); err != nil {
		return nil, fmt.Errorf("app: init feedback: %w", err)
	}
	a.initServer()

	return a, nil
}

// initObserve sets up the OTel providers and the metrics instruments.
func (a *App) initObserve(ctx context.Context) error {
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "jingga",
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdown)

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return nil
}

// initExtractor builds the LLM provider chain and the semantic extractor,
// unless one was injected.
func (a *App) initExtractor() error {
	if a.semantic != nil {
		return nil
	}

	primary, err := buildProvider(a.cfg.LLM.Primary)
	if err != nil {
		return fmt.Errorf("create llm provider %q: %w", a.cfg.LLM.Primary.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", a.cfg.LLM.Primary.Name, "model", a.cfg.LLM.Primary.Model)

	chain := resilience.NewLLMFallback(primary, a.cfg.LLM.Primary.Name, resilience.FallbackConfig{})
	for _, entry := range a.cfg.LLM.Fallbacks {
		fb, err := buildProvider(entry)
		if err != nil {
			return fmt.Errorf("create fallback llm provider %q: %w", entry.Name, err)
		}
		chain.AddFallback(entry.Name, fb)
		slog.Info("fallback provider created", "kind", "llm", "name", entry.Name, "model", entry.Model)
	}

	a.semantic = semantic.New(chain)
	return nil
}

// buildProvider constructs a single LLM provider from its config entry.
// "openai" uses the native SDK; everything else goes through any-llm.
func buildProvider(entry config.ProviderEntry) (llm.Provider, error) {
	if entry.Name == "openai" {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

// initFeedback sets up the configured feedback sink, unless one was injected.
func (a *App) initFeedback(ctx context.Context) error {
	if a.feedback != nil {
		return nil
	}

	switch a.cfg.Feedback.Sink {
	case config.SinkPostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Feedback.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		store := feedback.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("ensure feedback schema: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		a.feedback = store
		slog.Info("feedback sink ready", "sink", "postgres")

	case config.SinkFile, "":
		path := a.cfg.Feedback.Path
		if path == "" {
			path = "extraction_feedback.jsonl"
		}
		a.feedback = feedback.NewFileStore(path)
		slog.Info("feedback sink ready", "sink", "file", "path", path)

	default:
		return fmt.Errorf("unknown feedback sink %q", a.cfg.Feedback.Sink)
	}
	return nil
}

// initServer assembles the gateway, health and metrics routes into the HTTP
// server.
func (a *App) initServer() {
	enabled := a.cfg.Transactions.EnabledTypes()
	resolver := dialogue.NewResolver(lexicon.NewFuzzyResolver())

	var ruleOpts []rules.Option
	if a.cfg.Dialogue.GoldGramDivisor > 0 {
		ruleOpts = append(ruleOpts, rules.WithGramDivisor(a.cfg.Dialogue.GoldGramDivisor))
	}

	convOpts := []dialogue.Option{
		dialogue.WithRules(rules.NewParser(ruleOpts...)),
		dialogue.WithResolver(resolver),
		dialogue.WithEnabled(gateway.EnabledFromMap(enabled)),
		dialogue.WithAccessibilityMode(a.cfg.Dialogue.AccessibilityMode),
	}
	if d := a.cfg.Dialogue.SilenceWindow.Std(); d > 0 {
		convOpts = append(convOpts, dialogue.WithSilenceWindow(d))
	}
	if d := a.cfg.Dialogue.ResponseTimeout.Std(); d > 0 {
		convOpts = append(convOpts, dialogue.WithResponseTimeout(d))
	}

	a.gateway = gateway.New(
		a.semantic,
		payment.NewURLBuilder(a.cfg.Payment.BaseURL),
		gateway.WithFeedback(a.feedback),
		gateway.WithMetrics(a.metrics),
		gateway.WithConversationOptions(convOpts...),
	)

	checks := []health.Checker{
		{Name: "feedback", Check: func(ctx context.Context) error {
			if a.feedback == nil {
				return errors.New("feedback store not configured")
			}
			return nil
		}},
	}

	mux := http.NewServeMux()
	a.gateway.Register(mux)
	health.New(checks...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}

	a.server = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run serves HTTP until ctx is cancelled, then drains the server. It returns
// nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", a.server.Addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(drainCtx)
	})

	return g.Wait()
}

// Shutdown releases all resources created in New. Safe to call more than
// once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			if cerr := a.closers[i](ctx); cerr != nil {
				errs = append(errs, cerr)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}
