package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jingga-app/jingga/internal/dialogue"
	"github.com/jingga-app/jingga/internal/extract"
	"github.com/jingga-app/jingga/internal/extract/rules"
	"github.com/jingga-app/jingga/internal/feedback"
	"github.com/jingga-app/jingga/internal/payment"
	"github.com/jingga-app/jingga/pkg/types"
)

// stubExtractor is a semantic fallback that never classifies; the tests below
// drive conversations that the rule parser resolves on its own.
type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string, *types.Context) (extract.Result, error) {
	return extract.Unclassified(), nil
}

// memStore records feedback in memory.
type memStore struct {
	mu   sync.Mutex
	recs []feedback.Record
}

func (m *memStore) Save(_ context.Context, rec feedback.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) records() []feedback.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]feedback.Record(nil), m.recs...)
}

func newTestServer(t *testing.T, store feedback.Store) *httptest.Server {
	t.Helper()
	h := New(stubExtractor{}, payment.NewURLBuilder("https://pay.test"),
		WithFeedback(store),
		WithConversationOptions(
			dialogue.WithRules(rules.NewParser()),
			dialogue.WithSilenceWindow(15*time.Millisecond),
		),
	)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendUtterance(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, _ := json.Marshal(ClientFrame{Type: "utterance", Text: text, Final: true})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write utterance: %v", err)
	}
}

// readUntil reads server frames until pred matches one, failing the test on
// timeout.
func readUntil(t *testing.T, conn *websocket.Conn, pred func(ServerFrame) bool) ServerFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var frame ServerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("unmarshal server frame %q: %v", data, err)
		}
		if pred(frame) {
			return frame
		}
	}
}

func TestGateway_CompleteTransferOverWebSocket(t *testing.T) {
	store := &memStore{}
	srv := newTestServer(t, store)
	conn := dial(t, srv)

	sendUtterance(t, conn, "transfer 100 ribu ke BCA 1234567890")

	speak := readUntil(t, conn, func(f ServerFrame) bool { return f.Type == "speak" })
	if !strings.Contains(speak.Text, "Sudah benar?") {
		t.Fatalf("confirmation = %q", speak.Text)
	}

	sendUtterance(t, conn, "ya")

	done := readUntil(t, conn, func(f ServerFrame) bool { return f.Type == "completed" })
	if done.Data == nil {
		t.Fatal("completed frame has no data")
	}
	if done.Data.Type != types.TypeTransfer || done.Data.Bank != "BCA" ||
		done.Data.AccountNumber != "1234567890" || done.Data.Amount != "100000" {
		t.Errorf("payload = %+v", done.Data)
	}
	if !strings.HasPrefix(done.PaymentURL, "https://pay.test/payment?data=") {
		t.Fatalf("paymentUrl = %q", done.PaymentURL)
	}

	u, err := url.Parse(done.PaymentURL)
	if err != nil {
		t.Fatalf("parse payment url: %v", err)
	}
	decoded, err := payment.Decode(u.Query().Get("data"))
	if err != nil {
		t.Fatalf("decode payment token: %v", err)
	}
	if decoded != *done.Data {
		t.Errorf("decoded = %+v, frame data = %+v", decoded, *done.Data)
	}

	// Feedback is written off the conversation loop; poll briefly.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(store.records()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	recs := store.records()
	if len(recs) != 1 {
		t.Fatalf("feedback records = %d, want 1", len(recs))
	}
	if !recs[0].Success || recs[0].OriginalInput == "" || recs[0].ExtractedData == nil {
		t.Errorf("feedback record = %+v", recs[0])
	}
}

func TestGateway_StateFramesCarryTransitions(t *testing.T) {
	srv := newTestServer(t, nil)
	conn := dial(t, srv)

	sendUtterance(t, conn, "transfer 100 ribu ke BCA 1234567890")

	frame := readUntil(t, conn, func(f ServerFrame) bool {
		return f.Type == "state" && f.To == "confirming"
	})
	if frame.From == "" {
		t.Errorf("state frame missing from: %+v", frame)
	}
}

func TestGateway_CloseFrameEndsConversation(t *testing.T) {
	srv := newTestServer(t, nil)
	conn := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, _ := json.Marshal(ClientFrame{Type: "close"})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write close: %v", err)
	}

	// The server shuts the conversation down and closes the socket.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func TestGateway_MalformedFramesIgnored(t *testing.T) {
	srv := newTestServer(t, nil)
	conn := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	// The session must survive the garbage and still run a conversation.
	sendUtterance(t, conn, "token listrik 50 ribu meter 53871417245")
	speak := readUntil(t, conn, func(f ServerFrame) bool { return f.Type == "speak" })
	if !strings.Contains(speak.Text, "Sudah benar?") {
		t.Errorf("confirmation = %q", speak.Text)
	}
}

func TestEnabledFromMap(t *testing.T) {
	pred := EnabledFromMap(map[types.TransactionType]bool{
		types.TypeTransfer: true,
		types.TypeSedekah:  false,
	})

	if !pred(types.TypeTransfer) {
		t.Error("transfer should be enabled")
	}
	if pred(types.TypeSedekah) {
		t.Error("sedekah should be disabled")
	}
	if pred(types.TypePulsa) {
		t.Error("absent type should be disabled")
	}
}

func TestServerFrame_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(ServerFrame{Type: "speak", Text: "Halo"})
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, key := range []string{"interrupt", "from", "to", "data", "paymentUrl"} {
		if strings.Contains(got, key) {
			t.Errorf("frame %s carries empty field %q", got, key)
		}
	}
}
