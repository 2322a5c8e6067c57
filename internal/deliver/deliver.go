package deliver

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ent0n29/hibiki/internal/observability"
)

// ReplyTarget replies to an ordinary chat message.
type ReplyTarget interface {
	SendReply(ctx context.Context, content string, mention bool) error
}

// FollowupTarget sends ordered follow-ups for a deferred interaction.
type FollowupTarget interface {
	SendFollowup(ctx context.Context, content string) error
}

// Pipeline splits generated text into platform-sized chunks and emits them.
// Delivery is best effort: a failed chunk is logged and the rest still go out.
type Pipeline struct {
	maxLength int
	log       zerolog.Logger
	metrics   *observability.Metrics
}

func NewPipeline(maxLength int, log zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	if maxLength <= 0 {
		maxLength = 1900
	}
	return &Pipeline{maxLength: maxLength, log: log, metrics: metrics}
}

// Chunks splits content into consecutive pieces of at most maxLength runes.
// Concatenating the result reproduces content exactly.
func (p *Pipeline) Chunks(content string) []string {
	if content == "" {
		return nil
	}
	runes := []rune(content)
	chunks := make([]string, 0, (len(runes)+p.maxLength-1)/p.maxLength)
	for start := 0; start < len(runes); start += p.maxLength {
		end := start + p.maxLength
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// DeliverReply sends every chunk as an independent reply with the mention flag
// applied uniformly.
func (p *Pipeline) DeliverReply(ctx context.Context, target ReplyTarget, content string, mention bool) {
	for i, chunk := range p.Chunks(content) {
		if err := target.SendReply(ctx, chunk, mention); err != nil {
			p.log.Error().Err(err).Int("chunk", i).Msg("failed to send reply chunk")
			continue
		}
		if p.metrics != nil {
			p.metrics.DeliveryChunks.WithLabelValues("reply").Inc()
		}
	}
}

// DeliverFollowup sends every chunk as an independent follow-up; only the
// first chunk carries the mention token when one is given.
func (p *Pipeline) DeliverFollowup(ctx context.Context, target FollowupTarget, content, mentionToken string) {
	for i, chunk := range p.Chunks(content) {
		if i == 0 && mentionToken != "" {
			chunk = mentionToken + " " + chunk
		}
		if err := target.SendFollowup(ctx, chunk); err != nil {
			p.log.Error().Err(err).Int("chunk", i).Msg("failed to send followup chunk")
			continue
		}
		if p.metrics != nil {
			p.metrics.DeliveryChunks.WithLabelValues("followup").Inc()
		}
	}
}
