package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jingga-app/jingga/internal/extract"
	"github.com/jingga-app/jingga/internal/lexicon"
	"github.com/jingga-app/jingga/internal/observe"
	"github.com/jingga-app/jingga/internal/validate"
	"github.com/jingga-app/jingga/pkg/speech"
	"github.com/jingga-app/jingga/pkg/types"
)

const (
	defaultSilenceWindow   = 3 * time.Second
	defaultResponseTimeout = 5 * time.Second

	// eventBuffer sizes the conversation event queue. Utterances beyond it
	// are dropped rather than blocking the speech input.
	eventBuffer = 32
)

// Spoken on cancel and on the payment handoff.
const (
	cancelMessage   = "Oke, coba sebutin ulang transaksimu ya"
	completeMessage = "Oke, membuka halaman pembayaran"
)

// Outcome summarises a confirmed transaction for downstream consumers: the
// payment handoff and the feedback recorder.
type Outcome struct {
	// Draft is the confirmed draft. Only its type and fields are public
	// payload; MissingFields and Prompt are internal bookkeeping.
	Draft *types.Draft

	// OriginalInput is the first utterance that started this transaction.
	OriginalInput string

	// Attempts counts the extraction rounds spent, including the first.
	Attempts int

	// WasIncomplete reports whether at least one follow-up question was
	// needed.
	WasIncomplete bool
}

// Sink receives everything a conversation says or decides. Implementations
// are called from the conversation's event loop goroutine and must not
// block for long.
type Sink interface {
	speech.Output

	// StateChanged reports every state transition, including the transient
	// pass through StateComplete or StateCancelled before the reset to
	// StateListening.
	StateChanged(from, to State)

	// Completed delivers the confirmed transaction.
	Completed(outcome Outcome)
}

type eventKind int

const (
	evUtterance eventKind = iota
	evSilence
	evNoResponse
	evClose
)

type event struct {
	kind eventKind
	text string
	gen  uint64
}

// Option is a functional option for Conversation.
type Option func(*Conversation)

// WithLogger sets the conversation logger. Default: slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conversation) {
		c.log = l
	}
}

// WithRules installs a deterministic extractor tried before the semantic
// one. Without it every utterance goes straight to the semantic extractor.
func WithRules(e extract.Extractor) Option {
	return func(c *Conversation) {
		c.rules = e
	}
}

// WithEnabled sets the transaction-type enablement predicate. Default: all
// types enabled.
func WithEnabled(fn func(types.TransactionType) bool) Option {
	return func(c *Conversation) {
		c.enabled = fn
	}
}

// WithMetrics attaches metric instruments. Default: none.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Conversation) {
		c.metrics = m
	}
}

// WithSilenceWindow sets the quiet interval after the last finalized
// utterance that forces extraction. Default: 3s.
func WithSilenceWindow(d time.Duration) Option {
	return func(c *Conversation) {
		c.silenceWindow = d
	}
}

// WithResponseTimeout sets the no-response-at-all timeout armed while
// awaiting the answer to an incomplete-field prompt. Default: 5s.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Conversation) {
		c.responseTimeout = d
	}
}

// WithAccessibilityMode enables the full per-character speak delay so screen
// readers finish before the microphone reopens.
func WithAccessibilityMode(on bool) Option {
	return func(c *Conversation) {
		c.accessibility = on
	}
}

// WithResolver replaces the correction value resolver.
func WithResolver(r *Resolver) Option {
	return func(c *Conversation) {
		c.resolver = r
	}
}

// Conversation is the slot-filling state machine for one user. All mutable
// state is owned by the Run loop goroutine; collaborators interact only
// through HandleUtterance, Close, and the Sink callbacks.
type Conversation struct {
	id       string
	log      *slog.Logger
	rules    extract.Extractor
	semantic extract.Extractor
	sink     Sink
	enabled  func(types.TransactionType) bool
	metrics  *observe.Metrics
	resolver *Resolver

	silenceWindow   time.Duration
	responseTimeout time.Duration
	accessibility   bool

	events chan event

	// Loop-owned state below. Never touched outside Run.
	state         State
	transcript    []string
	convCtx       *types.Context
	session       *Session
	originalInput string
	attempts      int
	hadIncomplete bool

	silenceTimer  *time.Timer
	silenceGen    uint64
	responseTimer *time.Timer
	responseGen   uint64
}

// NewConversation builds a conversation. semantic is the mandatory fallback
// extractor; sink receives all outward effects.
func NewConversation(id string, semantic extract.Extractor, sink Sink, opts ...Option) *Conversation {
	c := &Conversation{
		id:              id,
		log:             slog.Default(),
		semantic:        semantic,
		sink:            sink,
		enabled:         func(types.TransactionType) bool { return true },
		resolver:        NewResolver(lexicon.NewFuzzyResolver()),
		silenceWindow:   defaultSilenceWindow,
		responseTimeout: defaultResponseTimeout,
		events:          make(chan event, eventBuffer),
		state:           StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With(slog.String("conversation", id))
	return c
}

// HandleUtterance delivers a speech segment. Interim segments are ignored;
// the call never blocks the speech input, dropping the utterance when the
// event queue is full.
func (c *Conversation) HandleUtterance(u types.Utterance) {
	if !u.IsFinal {
		return
	}
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return
	}
	select {
	case c.events <- event{kind: evUtterance, text: text}:
	default:
		c.log.Warn("event queue full, utterance dropped")
	}
}

// Close asks the event loop to exit after the current event.
func (c *Conversation) Close() {
	select {
	case c.events <- event{kind: evClose}:
	default:
	}
}

// Run processes events until ctx is cancelled or Close is called. Each
// event is handled to completion before the next is accepted, so the draft
// is never mutated concurrently.
func (c *Conversation) Run(ctx context.Context) error {
	c.metrics.ConversationStarted(ctx)
	defer c.metrics.ConversationEnded(ctx)
	defer c.stopTimers()

	c.setState(StateListening)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			switch ev.kind {
			case evClose:
				return nil
			case evUtterance:
				c.onUtterance(ctx, ev.text)
			case evSilence:
				if ev.gen == c.silenceGen {
					c.onSilence(ctx)
				}
			case evNoResponse:
				if ev.gen == c.responseGen {
					c.onNoResponse(ctx)
				}
			}
		}
	}
}

func (c *Conversation) onUtterance(ctx context.Context, text string) {
	switch c.state {
	case StateListening, StateIncompletePrompt, StateCorrectingFieldValue:
		if c.state == StateCorrectingFieldValue && ClassifyKeyword(text) == KeywordCancel {
			c.cancelTransaction(ctx)
			return
		}
		c.transcript = append(c.transcript, text)
		c.stopResponseTimer()
		c.armSilenceTimer()

	case StateConfirming:
		switch ClassifyKeyword(text) {
		case KeywordCorrection:
			c.session = &Session{}
			c.setState(StateCorrectingFieldSelect)
			c.speak(CorrectionPrompt(c.convCtx.Draft.Type), true)
		case KeywordCancel:
			c.cancelTransaction(ctx)
		case KeywordConfirm:
			c.completeTransaction(ctx)
		default:
			// Ordinary chatter during confirmation is discarded, never
			// re-extracted.
			c.log.Debug("non-keyword utterance discarded in confirming", slog.String("text", text))
			c.metrics.RecordTurn(ctx, c.state.String(), "discarded")
		}

	case StateCorrectingFieldSelect:
		if ClassifyKeyword(text) == KeywordCancel {
			c.cancelTransaction(ctx)
			return
		}
		if field, ok := SelectField(c.convCtx.Draft.Type, text); ok {
			c.session.TargetField = field
			c.transcript = nil
			c.setState(StateCorrectingFieldValue)
			c.speak(FieldValuePrompt(field, c.convCtx.Draft), true)
			return
		}
		if ClassifyKeyword(text) == KeywordConfirm {
			c.completeTransaction(ctx)
			return
		}
		// No field keyword matched: re-ask instead of guessing.
		c.metrics.RecordUserError(ctx, "correction_unresolved")
		c.speak(CorrectionPrompt(c.convCtx.Draft.Type), true)

	case StateExtracting:
		// An extraction call already consumed this turn; a racing utterance
		// is dropped, never processed concurrently.
		c.log.Debug("utterance dropped while extracting", slog.String("text", text))

	default:
		c.log.Debug("utterance ignored", slog.String("state", c.state.String()))
	}
}

func (c *Conversation) onSilence(ctx context.Context) {
	text := strings.TrimSpace(strings.Join(c.transcript, " "))
	c.transcript = nil

	switch c.state {
	case StateListening, StateIncompletePrompt:
		if text == "" {
			c.userError(ctx, ErrNoSpeech)
			return
		}
		c.runExtraction(ctx, text)
	case StateCorrectingFieldValue:
		if text == "" {
			c.metrics.RecordUserError(ctx, "correction_unresolved")
			c.speak(FieldValuePrompt(c.session.TargetField, c.convCtx.Draft), true)
			return
		}
		c.resolveCorrection(ctx, text)
	}
}

func (c *Conversation) onNoResponse(ctx context.Context) {
	if c.state != StateIncompletePrompt {
		return
	}
	c.userError(ctx, ErrNoSpeech)
}

// runExtraction drives one utterance through the rule parser, the semantic
// fallback, the enablement gate, and the context merger, then advances to
// confirmation or a follow-up prompt.
func (c *Conversation) runExtraction(ctx context.Context, text string) {
	start := time.Now()
	c.setState(StateExtracting)

	c.attempts++
	if c.originalInput == "" {
		c.originalInput = text
	}

	sanitized := extract.Sanitize(text)
	if sanitized == "" {
		c.userError(ctx, ErrNoSpeech)
		return
	}

	res := extract.Unclassified()
	if c.rules != nil {
		ruleStart := time.Now()
		r, err := c.rules.Extract(ctx, sanitized, c.convCtx)
		c.metrics.RecordExtraction(ctx, "rules", time.Since(ruleStart).Seconds())
		if err == nil {
			res = r
		}
	}
	var semErr error
	if !res.Classified {
		semStart := time.Now()
		r, err := c.semantic.Extract(ctx, sanitized, c.convCtx)
		c.metrics.RecordExtraction(ctx, "semantic", time.Since(semStart).Seconds())
		if err != nil {
			semErr = err
		} else {
			res = r
		}
	}

	// The racing window closes when the last extract call returns. Anything
	// queued from here on is a reply to the upcoming prompt and must survive.
	c.drainRacingUtterances()

	if semErr != nil {
		if !errors.Is(semErr, extract.ErrUnavailable) {
			c.log.Error("semantic extraction failed", slog.Any("error", semErr))
		}
		c.userError(ctx, ErrExtractorUnavailable)
		return
	}

	if !res.Classified {
		c.userError(ctx, ErrUnclassifiable)
		return
	}

	if !c.enabled(res.Draft.Type) {
		c.convCtx = nil
		c.userError(ctx, ErrDisabledType)
		return
	}

	merged := Merge(c.convCtx, res.Draft)

	if phone, ok := merged.Field(types.FieldPhoneNumber); ok && !validate.PhoneNumber(phone) {
		delete(merged.Fields, types.FieldPhoneNumber)
		validate.Evaluate(merged)
		msg := NewUserError(ErrInvalidFormat).Message + " " + merged.Prompt
		c.metrics.RecordUserError(ctx, "invalid_format")
		c.hadIncomplete = true
		c.convCtx = c.contextFor(merged, msg)
		c.setState(StateIncompletePrompt)
		c.speak(msg, true)
		c.armResponseTimer()
		c.metrics.RecordTurn(ctx, StateExtracting.String(), "invalid_format")
		c.observeTurn(ctx, start)
		return
	}

	if merged.Complete {
		c.convCtx = c.contextFor(merged, "")
		c.setState(StateConfirming)
		c.speak(ConfirmationText(merged), true)
		c.metrics.RecordTurn(ctx, StateExtracting.String(), "complete")
	} else {
		c.hadIncomplete = true
		c.convCtx = c.contextFor(merged, merged.Prompt)
		c.setState(StateIncompletePrompt)
		c.speak(merged.Prompt, true)
		c.armResponseTimer()
		c.metrics.RecordTurn(ctx, StateExtracting.String(), "incomplete")
	}
	c.observeTurn(ctx, start)
}

func (c *Conversation) resolveCorrection(ctx context.Context, text string) {
	field := c.session.TargetField
	value, ok := c.resolver.ParseValue(field, text)
	if !ok {
		// Re-prompt the same field without discarding the session.
		c.metrics.RecordUserError(ctx, "correction_unresolved")
		c.speak(FieldValuePrompt(field, c.convCtx.Draft), true)
		return
	}

	draft := c.convCtx.Draft
	draft.Set(field, value)
	validate.Evaluate(draft)
	c.session = nil
	c.setState(StateConfirming)
	c.speak(ConfirmationText(draft), true)
	c.metrics.RecordTurn(ctx, StateCorrectingFieldValue.String(), "corrected")
}

func (c *Conversation) completeTransaction(ctx context.Context) {
	draft := c.convCtx.Draft
	c.metrics.RecordCompletion(ctx, string(draft.Type))
	c.setState(StateComplete)
	c.speak(completeMessage, true)
	c.sink.Completed(Outcome{
		Draft:         draft.Clone(),
		OriginalInput: c.originalInput,
		Attempts:      c.attempts,
		WasIncomplete: c.hadIncomplete,
	})
	c.resetTransaction()
	c.setState(StateListening)
}

func (c *Conversation) cancelTransaction(ctx context.Context) {
	if c.convCtx != nil && c.convCtx.Draft != nil {
		c.metrics.RecordCancellation(ctx, string(c.convCtx.Draft.Type))
	}
	c.setState(StateCancelled)
	c.speak(cancelMessage, true)
	c.resetTransaction()
	c.setState(StateListening)
}

func (c *Conversation) userError(ctx context.Context, kind ErrorKind) {
	ue := NewUserError(kind)
	c.metrics.RecordUserError(ctx, ue.kindLabel())
	c.setState(StateListening)
	c.speak(ue.Message, true)
}

func (c *Conversation) resetTransaction() {
	c.stopTimers()
	c.convCtx = nil
	c.session = nil
	c.transcript = nil
	c.originalInput = ""
	c.attempts = 0
	c.hadIncomplete = false
}

func (c *Conversation) contextFor(d *types.Draft, prompt string) *types.Context {
	out := &types.Context{
		Draft:      d,
		LastPrompt: prompt,
		StartedAt:  time.Now(),
		Attempts:   c.attempts,
	}
	if c.convCtx != nil {
		out.StartedAt = c.convCtx.StartedAt
	}
	return out
}

func (c *Conversation) setState(to State) {
	if to == c.state {
		return
	}
	from := c.state
	c.state = to
	c.log.Debug("state transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	c.sink.StateChanged(from, to)
}

func (c *Conversation) speak(text string, interrupt bool) {
	if text == "" {
		return
	}
	c.sink.Speak(text, interrupt)
	// Minimum elapsed-time heuristic before the next event is handled, so
	// the microphone does not pick the prompt back up.
	time.Sleep(SpeakDelay(text, c.accessibility))
}

func (c *Conversation) observeTurn(ctx context.Context, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
}

// drainRacingUtterances discards utterances queued while an extraction call
// was in flight. Timer and close events are kept in order for the loop,
// which applies its own generation checks to them.
func (c *Conversation) drainRacingUtterances() {
	var kept []event
	for {
		select {
		case ev := <-c.events:
			if ev.kind == evUtterance {
				c.log.Debug("utterance dropped while extracting", slog.String("text", ev.text))
				continue
			}
			kept = append(kept, ev)
		default:
			for _, ev := range kept {
				select {
				case c.events <- ev:
				default:
				}
			}
			return
		}
	}
}

func (c *Conversation) armSilenceTimer() {
	c.silenceGen++
	gen := c.silenceGen
	if c.silenceTimer != nil {
		c.silenceTimer.Stop()
	}
	c.silenceTimer = time.AfterFunc(c.silenceWindow, func() {
		select {
		case c.events <- event{kind: evSilence, gen: gen}:
		default:
		}
	})
}

func (c *Conversation) armResponseTimer() {
	c.responseGen++
	gen := c.responseGen
	if c.responseTimer != nil {
		c.responseTimer.Stop()
	}
	c.responseTimer = time.AfterFunc(c.responseTimeout, func() {
		select {
		case c.events <- event{kind: evNoResponse, gen: gen}:
		default:
		}
	})
}

func (c *Conversation) stopResponseTimer() {
	c.responseGen++
	if c.responseTimer != nil {
		c.responseTimer.Stop()
		c.responseTimer = nil
	}
}

func (c *Conversation) stopTimers() {
	c.silenceGen++
	if c.silenceTimer != nil {
		c.silenceTimer.Stop()
		c.silenceTimer = nil
	}
	c.stopResponseTimer()
}

// kindLabel returns the metric attribute value for the error kind.
func (e *UserError) kindLabel() string {
	switch e.Kind {
	case ErrUnclassifiable:
		return "unclassifiable"
	case ErrDisabledType:
		return "disabled_type"
	case ErrInvalidFormat:
		return "invalid_format"
	case ErrExtractorUnavailable:
		return "extractor_unavailable"
	case ErrNoSpeech:
		return "no_speech"
	case ErrCorrectionUnresolved:
		return "correction_unresolved"
	}
	return "unknown"
}
