package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jingga-app/jingga/internal/dialogue"
	"github.com/jingga-app/jingga/internal/feedback"
	"github.com/jingga-app/jingga/internal/payment"
	"github.com/jingga-app/jingga/pkg/types"
)

const (
	// outBuffer bounds the outbound frame queue per connection.
	outBuffer = 64

	// writeTimeout bounds a single frame write to a slow client.
	writeTimeout = 10 * time.Second
)

// ClientFrame is a JSON text frame sent by the client.
type ClientFrame struct {
	// Type is "utterance" or "close".
	Type string `json:"type"`

	// Text is the transcribed speech content for utterance frames.
	Text string `json:"text"`

	// Final marks the utterance as a settled transcript segment rather
	// than an interim guess.
	Final bool `json:"final"`
}

// ServerFrame is a JSON text frame sent by the server.
type ServerFrame struct {
	// Type is "speak", "state", or "completed".
	Type string `json:"type"`

	// Text is the sentence to voice for speak frames.
	Text string `json:"text,omitempty"`

	// Interrupt tells the client to cut off any speech in progress.
	Interrupt bool `json:"interrupt,omitempty"`

	// From and To carry the transition for state frames.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Data and PaymentURL carry the confirmed transaction for completed
	// frames.
	Data       *payment.Payload `json:"data,omitempty"`
	PaymentURL string           `json:"paymentUrl,omitempty"`
}

// session binds one WebSocket connection to one conversation. It implements
// [dialogue.Sink]: the conversation's event loop hands it speech and state,
// and it serialises them onto the wire through a single writer goroutine.
type session struct {
	id   string
	conn *websocket.Conn
	h    *Handler
	log  *slog.Logger

	out  chan ServerFrame
	done chan struct{}
	once sync.Once
}

var _ dialogue.Sink = (*session)(nil)

func newSession(id string, conn *websocket.Conn, h *Handler, log *slog.Logger) *session {
	return &session{
		id:   id,
		conn: conn,
		h:    h,
		log:  log,
		out:  make(chan ServerFrame, outBuffer),
		done: make(chan struct{}),
	}
}

// run drives the session until the client disconnects or ctx is cancelled.
// It blocks for the lifetime of the connection.
func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conv := dialogue.NewConversation(s.id, s.h.semantic, s,
		append([]dialogue.Option{
			dialogue.WithLogger(s.log),
			dialogue.WithMetrics(s.h.metrics),
		}, s.h.convOpts...)...)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.readLoop(ctx, conv)
	}()

	err := conv.Run(ctx)

	s.close()
	wg.Wait()
	s.conn.Close(websocket.StatusNormalClosure, "conversation ended")

	if err != nil && ctx.Err() == nil {
		s.log.Error("conversation ended with error", "err", err)
	} else {
		s.log.Info("conversation ended")
	}
}

// readLoop parses client frames and feeds utterances into the conversation.
func (s *session) readLoop(ctx context.Context, conv *dialogue.Conversation) {
	defer conv.Close()
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation.
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			s.log.Warn("dropping malformed client frame", "err", err)
			continue
		}

		switch frame.Type {
		case "utterance":
			conv.HandleUtterance(types.Utterance{
				Text:    frame.Text,
				IsFinal: frame.Final,
			})
		case "close":
			return
		default:
			s.log.Warn("dropping client frame with unknown type", "type", frame.Type)
		}
	}
}

// writeLoop serialises outbound frames onto the connection.
func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case frame := <-s.out:
			if err := s.writeFrame(ctx, frame); err != nil {
				return
			}
		case <-s.done:
			// Flush whatever is already queued.
			for {
				select {
				case frame := <-s.out:
					if err := s.writeFrame(ctx, frame); err != nil {
						return
					}
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) writeFrame(ctx context.Context, frame ServerFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		s.log.Error("marshal server frame", "err", err)
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(wctx, websocket.MessageText, data)
}

// Speak implements speech.Output by queueing a speak frame.
func (s *session) Speak(text string, interrupt bool) {
	s.send(ServerFrame{Type: "speak", Text: text, Interrupt: interrupt})
}

// StateChanged implements dialogue.Sink by queueing a state frame.
func (s *session) StateChanged(from, to dialogue.State) {
	s.send(ServerFrame{Type: "state", From: from.String(), To: to.String()})
}

// Completed implements dialogue.Sink. It builds the payment payload and
// link, queues the completed frame, and records the extraction feedback.
func (s *session) Completed(outcome dialogue.Outcome) {
	payload, err := payment.Build(outcome.Draft)
	if err != nil {
		s.log.Error("build payment payload", "err", err)
		return
	}
	frame := ServerFrame{Type: "completed", Data: &payload}
	if s.h.urls != nil {
		url, err := s.h.urls.PaymentURL(payload)
		if err != nil {
			s.log.Error("build payment url", "err", err)
		} else {
			frame.PaymentURL = url
		}
	}
	s.send(frame)

	if s.h.feedback == nil {
		return
	}
	rec := feedback.Record{
		SessionID:     s.id,
		OriginalInput: outcome.OriginalInput,
		ExtractedData: outcome.Draft,
		WasIncomplete: outcome.WasIncomplete,
		AttemptsCount: outcome.Attempts,
		Success:       true,
	}
	// Off the conversation loop; the store may touch disk or the network.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.h.feedback.Save(ctx, rec); err != nil {
			s.log.Error("save feedback record", "err", err)
		}
	}()
}

// send queues a frame without blocking the conversation loop. Frames are
// dropped when the client cannot keep up.
func (s *session) send(frame ServerFrame) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- frame:
	default:
		s.log.Warn("outbound frame dropped, client too slow", "type", frame.Type)
	}
}

func (s *session) close() {
	s.once.Do(func() { close(s.done) })
}
