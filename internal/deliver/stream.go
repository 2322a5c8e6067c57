package deliver

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Editor is a surface whose single outgoing message can be edited in place.
type Editor interface {
	Send(ctx context.Context, content string) error
	Edit(ctx context.Context, content string) error
}

// StreamAccumulator buffers streaming fragments and re-emits one outgoing
// message every interval fragments, but only when the buffer has grown since
// the last successful emission. Edit failures are swallowed; the next emission
// carries the fuller buffer forward. An unsent buffer (first send failed) is
// retried on the next tick.
type StreamAccumulator struct {
	editor   Editor
	interval int
	log      zerolog.Logger

	buf       strings.Builder
	fragments int
	emitted   int
	sent      bool
}

func NewStreamAccumulator(editor Editor, interval int, log zerolog.Logger) *StreamAccumulator {
	if interval <= 0 {
		interval = 5
	}
	return &StreamAccumulator{editor: editor, interval: interval, log: log}
}

// Push appends one fragment and emits when the interval is reached.
func (a *StreamAccumulator) Push(ctx context.Context, fragment string) {
	a.buf.WriteString(fragment)
	a.fragments++
	if a.fragments%a.interval == 0 {
		a.emit(ctx)
	}
}

// Flush performs the final emission if the buffer grew since the last one.
func (a *StreamAccumulator) Flush(ctx context.Context) {
	a.emit(ctx)
}

// Content returns everything accumulated so far.
func (a *StreamAccumulator) Content() string {
	return a.buf.String()
}

func (a *StreamAccumulator) emit(ctx context.Context) {
	if a.buf.Len() <= a.emitted {
		return
	}
	content := a.buf.String()

	if !a.sent {
		if err := a.editor.Send(ctx, content); err != nil {
			a.log.Warn().Err(err).Msg("stream send failed, will retry next interval")
			return
		}
		a.sent = true
		a.emitted = len(content)
		return
	}

	if err := a.editor.Edit(ctx, content); err != nil {
		a.log.Debug().Err(err).Msg("stream edit skipped")
		return
	}
	a.emitted = len(content)
}
