package dialogue

import (
	"context"

	"github.com/jingga-app/jingga/pkg/speech"
)

// Attach consumes a [speech.Input] stream, forwarding its utterance events
// into the conversation until the stream ends or ctx is cancelled. Use this
// when the transcription source lives in-process; remote clients feed
// HandleUtterance directly instead.
//
// Attach returns nil when the stream ends normally, the stream error when it
// fails, or ctx.Err() on cancellation. It does not close the conversation.
func (c *Conversation) Attach(ctx context.Context, in speech.Input) error {
	for {
		select {
		case ev, ok := <-in.Events():
			if !ok {
				return nil
			}
			switch ev.Kind {
			case speech.EventUtterance:
				c.HandleUtterance(ev.Utterance)
			case speech.EventEnded:
				return nil
			case speech.EventError:
				return ev.Err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
