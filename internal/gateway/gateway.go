// Package gateway exposes the dialogue engine over a WebSocket endpoint.
//
// Each connection carries one conversation. The client streams transcribed
// utterances as JSON text frames; the server answers with speak, state, and
// completed frames. The wire format is defined by [ClientFrame] and
// [ServerFrame].
package gateway

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jingga-app/jingga/internal/dialogue"
	"github.com/jingga-app/jingga/internal/extract"
	"github.com/jingga-app/jingga/internal/feedback"
	"github.com/jingga-app/jingga/internal/observe"
	"github.com/jingga-app/jingga/internal/payment"
	"github.com/jingga-app/jingga/pkg/types"
)

// Option is a functional option for configuring the gateway [Handler].
type Option func(*Handler)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

// WithFeedback sets the store that records the outcome of every completed
// transaction. Nil disables feedback recording.
func WithFeedback(store feedback.Store) Option {
	return func(h *Handler) {
		h.feedback = store
	}
}

// WithMetrics sets the metrics instruments. Nil disables metric recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithConversationOptions sets the dialogue options applied to every new
// conversation (timings, enablement, rules extractor, resolver).
func WithConversationOptions(opts ...dialogue.Option) Option {
	return func(h *Handler) {
		h.convOpts = opts
	}
}

// WithOriginPatterns sets the allowed WebSocket origins. Empty means
// same-origin only.
func WithOriginPatterns(patterns []string) Option {
	return func(h *Handler) {
		h.originPatterns = patterns
	}
}

// Handler upgrades HTTP requests to WebSocket conversations. It is safe for
// concurrent use; every accepted connection runs in its own goroutines.
type Handler struct {
	semantic extract.Extractor
	urls     *payment.URLBuilder
	feedback feedback.Store
	metrics  *observe.Metrics
	convOpts []dialogue.Option

	originPatterns []string
	log            *slog.Logger
}

// New creates a gateway [Handler]. semantic is the extractor used for every
// conversation; urls builds the payment link sent on completion.
func New(semantic extract.Extractor, urls *payment.URLBuilder, opts ...Option) *Handler {
	h := &Handler{
		semantic: semantic,
		urls:     urls,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ServeHTTP accepts a WebSocket connection and runs a conversation over it
// until the client disconnects or the server shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "err", err, "remote", r.RemoteAddr)
		return
	}

	id := uuid.NewString()
	log := h.log.With("session_id", id)

	sess := newSession(id, conn, h, log)
	sess.run(r.Context())
}

// Register adds the /ws route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /ws", h)
}

// EnabledFromMap adapts a transaction enablement map to the predicate the
// dialogue engine expects.
func EnabledFromMap(enabled map[types.TransactionType]bool) func(types.TransactionType) bool {
	return func(t types.TransactionType) bool {
		on, ok := enabled[t]
		return ok && on
	}
}
