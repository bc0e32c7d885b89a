package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jingga-app/jingga/internal/extract"
	"github.com/jingga-app/jingga/internal/extract/rules"
	"github.com/jingga-app/jingga/pkg/types"
)

// fakeExtractor is a scripted extract.Extractor.
type fakeExtractor struct {
	fn func(text string, convCtx *types.Context) (extract.Result, error)
}

func (f *fakeExtractor) Extract(_ context.Context, text string, convCtx *types.Context) (extract.Result, error) {
	if f.fn == nil {
		return extract.Unclassified(), nil
	}
	return f.fn(text, convCtx)
}

// recordingSink captures every outward effect of a conversation.
type recordingSink struct {
	mu       sync.Mutex
	speaks   []string
	states   []string
	outcomes []Outcome
}

func (s *recordingSink) Speak(text string, _ bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaks = append(s.speaks, text)
}

func (s *recordingSink) StateChanged(from, to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, from.String()+"->"+to.String())
}

func (s *recordingSink) Completed(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
}

// lastSpeakContaining waits until a spoken message containing substr appears.
func (s *recordingSink) waitForSpeak(t *testing.T, substr string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		for _, msg := range s.speaks {
			if strings.Contains(msg, substr) {
				s.mu.Unlock()
				return msg
			}
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Fatalf("no spoken message containing %q; got %q", substr, s.speaks)
	return ""
}

func (s *recordingSink) waitForOutcome(t *testing.T) Outcome {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.outcomes) > 0 {
			o := s.outcomes[0]
			s.mu.Unlock()
			return o
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no completed outcome")
	return Outcome{}
}

func (s *recordingSink) sawTransition(tr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.states {
		if st == tr {
			return true
		}
	}
	return false
}

// startConversation runs a conversation with short timers and the real rule
// parser in front of the scripted semantic extractor.
func startConversation(t *testing.T, semantic extract.Extractor, extraOpts ...Option) (*Conversation, *recordingSink, func()) {
	t.Helper()
	sink := &recordingSink{}
	opts := append([]Option{
		WithRules(rules.NewParser()),
		WithSilenceWindow(15 * time.Millisecond),
		WithResponseTimeout(30 * time.Second), // not under test unless overridden
	}, extraOpts...)
	conv := NewConversation("test", semantic, sink, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conv.Run(ctx)
	}()
	stop := func() {
		cancel()
		<-done
	}
	return conv, sink, stop
}

func say(conv *Conversation, text string) {
	conv.HandleUtterance(types.Utterance{Text: text, IsFinal: true})
}

func TestConversation_CompleteTransferFlow(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{})
	defer stop()

	say(conv, "transfer 100 ribu ke BCA 1234567890")
	confirm := sink.waitForSpeak(t, "Sudah benar?")
	if !strings.Contains(confirm, "seratus ribu") || !strings.Contains(confirm, "BCA") {
		t.Errorf("confirmation = %q", confirm)
	}

	say(conv, "ya")
	sink.waitForSpeak(t, "membuka halaman pembayaran")

	outcome := sink.waitForOutcome(t)
	if outcome.Draft.Type != types.TypeTransfer {
		t.Errorf("outcome type = %q, want transfer", outcome.Draft.Type)
	}
	if outcome.OriginalInput != "transfer 100 ribu ke BCA 1234567890" {
		t.Errorf("original input = %q", outcome.OriginalInput)
	}
	if outcome.Attempts != 1 || outcome.WasIncomplete {
		t.Errorf("attempts = %d, wasIncomplete = %v, want 1, false", outcome.Attempts, outcome.WasIncomplete)
	}
	if !sink.sawTransition("confirming->complete") {
		t.Errorf("missing confirming->complete transition: %v", sink.states)
	}
	if !sink.sawTransition("complete->listening") {
		t.Errorf("machine did not reset to listening: %v", sink.states)
	}
}

func TestConversation_IncompleteThenFollowUp(t *testing.T) {
	// The follow-up answer has no transaction keyword, so it reaches the
	// scripted semantic extractor with the prior context attached.
	semantic := &fakeExtractor{fn: func(text string, convCtx *types.Context) (extract.Result, error) {
		if convCtx == nil || convCtx.Draft == nil {
			t.Errorf("semantic extractor got no prior context for %q", text)
			return extract.Unclassified(), nil
		}
		d := types.NewDraft(types.TypePulsa)
		d.Set(types.FieldPhoneNumber, "082312345678")
		return extract.Classified(d), nil
	}}
	conv, sink, stop := startConversation(t, semantic)
	defer stop()

	say(conv, "beli pulsa 20000")
	sink.waitForSpeak(t, "Ke nomor HP berapa?")

	say(conv, "ke nol delapan dua tiga")
	confirm := sink.waitForSpeak(t, "Sudah benar?")
	if !strings.Contains(confirm, "TELKOMSEL") {
		t.Errorf("confirmation = %q, want provider derived from prefix", confirm)
	}

	say(conv, "betul")
	outcome := sink.waitForOutcome(t)
	if outcome.Attempts != 2 || !outcome.WasIncomplete {
		t.Errorf("attempts = %d, wasIncomplete = %v, want 2, true", outcome.Attempts, outcome.WasIncomplete)
	}
	if v, _ := outcome.Draft.Field(types.FieldAmount); v != "20000" {
		t.Errorf("amount = %q, want carried-over 20000", v)
	}
}

func TestConversation_CorrectionFlow(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{})
	defer stop()

	say(conv, "transfer 100 ribu ke BCA 1234567890")
	sink.waitForSpeak(t, "Sudah benar?")

	say(conv, "salah")
	sink.waitForSpeak(t, "Yang mana yang salah?")

	say(conv, "banknya")
	sink.waitForSpeak(t, "Bank yang baru?")

	say(conv, "mandiri")
	deadline := time.Now().Add(3 * time.Second)
	var confirm string
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		for _, msg := range sink.speaks {
			if strings.Contains(msg, "Mandiri") && strings.Contains(msg, "Sudah benar?") {
				confirm = msg
			}
		}
		sink.mu.Unlock()
		if confirm != "" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if confirm == "" {
		t.Fatalf("no re-confirmation with corrected bank; speaks = %q", sink.speaks)
	}

	say(conv, "ya")
	outcome := sink.waitForOutcome(t)
	if v, _ := outcome.Draft.Field(types.FieldBank); v != "Mandiri" {
		t.Errorf("bank = %q, want Mandiri", v)
	}
}

func TestConversation_ChatterDuringConfirmationDiscarded(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{})
	defer stop()

	say(conv, "transfer 100 ribu ke BCA 1234567890")
	sink.waitForSpeak(t, "Sudah benar?")

	// Chatter must not restart extraction or change state.
	say(conv, "hmm sebentar deh")
	time.Sleep(100 * time.Millisecond)
	if sink.sawTransition("confirming->listening") || sink.sawTransition("confirming->extracting") {
		t.Errorf("chatter changed state: %v", sink.states)
	}

	say(conv, "oke")
	sink.waitForOutcome(t)
}

func TestConversation_CancelDuringConfirmation(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{})
	defer stop()

	say(conv, "transfer 100 ribu ke BCA 1234567890")
	sink.waitForSpeak(t, "Sudah benar?")

	say(conv, "batal")
	sink.waitForSpeak(t, "coba sebutin ulang")

	if !sink.sawTransition("confirming->cancelled") || !sink.sawTransition("cancelled->listening") {
		t.Errorf("cancel transitions missing: %v", sink.states)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.outcomes) != 0 {
		t.Error("cancelled transaction produced an outcome")
	}
}

func TestConversation_DisabledType(t *testing.T) {
	semantic := &fakeExtractor{fn: func(string, *types.Context) (extract.Result, error) {
		d := types.NewDraft(types.TypeSedekah)
		d.Set(types.FieldAmount, "10000")
		return extract.Classified(d), nil
	}}
	conv, sink, stop := startConversation(t, semantic,
		WithEnabled(func(tt types.TransactionType) bool { return tt != types.TypeSedekah }))
	defer stop()

	say(conv, "sedekah sepuluh ribu")
	sink.waitForSpeak(t, "belum tersedia")

	if !sink.sawTransition("extracting->listening") {
		t.Errorf("machine did not return to listening: %v", sink.states)
	}
}

func TestConversation_ExtractorUnavailable(t *testing.T) {
	semantic := &fakeExtractor{fn: func(string, *types.Context) (extract.Result, error) {
		return extract.Result{}, fmt.Errorf("semantic: complete: %w: connection refused", extract.ErrUnavailable)
	}}
	conv, sink, stop := startConversation(t, semantic)
	defer stop()

	say(conv, "tolong kirim uang dong")
	sink.waitForSpeak(t, "lagi gangguan")
}

func TestConversation_Unclassifiable(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{})
	defer stop()

	say(conv, "cuaca hari ini cerah sekali")
	sink.waitForSpeak(t, "belum paham maksudnya")
}

func TestConversation_InvalidPhoneFormat(t *testing.T) {
	calls := 0
	semantic := &fakeExtractor{fn: func(string, *types.Context) (extract.Result, error) {
		calls++
		d := types.NewDraft(types.TypePulsa)
		d.Set(types.FieldAmount, "20000")
		if calls == 1 {
			d.Set(types.FieldPhoneNumber, "0123")
		} else {
			d.Set(types.FieldPhoneNumber, "082312345678")
		}
		return extract.Classified(d), nil
	}}
	conv, sink, stop := startConversation(t, semantic)
	defer stop()

	say(conv, "isiin pulsa dong")
	msg := sink.waitForSpeak(t, "belum benar")
	if !strings.Contains(msg, "Ke nomor HP berapa?") {
		t.Errorf("invalid-format message %q lacks the re-prompt", msg)
	}
	if !sink.sawTransition("extracting->incomplete_prompt") {
		t.Errorf("states = %v", sink.states)
	}

	// The re-prompt round counts the session as incomplete.
	say(conv, "nol delapan dua tiga satu dua")
	sink.waitForSpeak(t, "Sudah benar?")
	say(conv, "betul")
	outcome := sink.waitForOutcome(t)
	if outcome.Attempts != 2 || !outcome.WasIncomplete {
		t.Errorf("attempts = %d, wasIncomplete = %v, want 2, true", outcome.Attempts, outcome.WasIncomplete)
	}
}

func TestConversation_NoSpeechTimeout(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{},
		WithResponseTimeout(40*time.Millisecond))
	defer stop()

	say(conv, "beli pulsa 20000")
	sink.waitForSpeak(t, "Ke nomor HP berapa?")

	// Say nothing; the response timeout must fire.
	sink.waitForSpeak(t, "tidak mendengar suaramu")
}

func TestConversation_InterimUtterancesIgnored(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{})
	defer stop()

	conv.HandleUtterance(types.Utterance{Text: "transfer 100 ribu", IsFinal: false})
	time.Sleep(80 * time.Millisecond)

	sink.mu.Lock()
	n := len(sink.speaks)
	sink.mu.Unlock()
	if n != 0 {
		t.Errorf("interim utterance triggered %d speaks: %q", n, sink.speaks)
	}
}

func TestConversation_TypeSwitchMidFlow(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{})
	defer stop()

	say(conv, "beli pulsa 20000")
	sink.waitForSpeak(t, "Ke nomor HP berapa?")

	// A different transaction replaces the pulsa draft entirely.
	say(conv, "transfer 100 ribu ke BCA 1234567890")
	confirm := sink.waitForSpeak(t, "Sudah benar?")
	if !strings.Contains(confirm, "Transfer") {
		t.Errorf("confirmation = %q, want transfer read-back", confirm)
	}

	say(conv, "ya")
	outcome := sink.waitForOutcome(t)
	if outcome.Draft.Type != types.TypeTransfer {
		t.Errorf("type = %q, want transfer after switch", outcome.Draft.Type)
	}
	if _, ok := outcome.Draft.Field(types.FieldPhoneNumber); ok {
		t.Error("pulsa field leaked into the transfer outcome")
	}
}

func TestConversation_CancelDuringCorrectionValue(t *testing.T) {
	conv, sink, stop := startConversation(t, &fakeExtractor{})
	defer stop()

	say(conv, "transfer 100 ribu ke BCA 1234567890")
	sink.waitForSpeak(t, "Sudah benar?")
	say(conv, "salah")
	sink.waitForSpeak(t, "Yang mana yang salah?")
	say(conv, "nominal")
	sink.waitForSpeak(t, "Nominal yang baru?")

	say(conv, "batal")
	sink.waitForSpeak(t, "coba sebutin ulang")
}
