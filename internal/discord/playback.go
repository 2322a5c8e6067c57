package discord

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"
	"github.com/jonas747/dca"
)

// playbackConn plays encoded audio over a Discord voice connection. Play
// blocks until the stream finishes, which is what keeps the per-guild queue
// serialized.
type playbackConn struct {
	vc *discordgo.VoiceConnection
}

func (c *playbackConn) Play(ctx context.Context, wavPath string) error {
	opts := *dca.StdEncodeOptions
	opts.RawOutput = true
	opts.Bitrate = 96

	encode, err := dca.EncodeFile(wavPath, &opts)
	if err != nil {
		return fmt.Errorf("encoding audio: %w", err)
	}
	defer encode.Cleanup()

	if err := c.vc.Speaking(true); err != nil {
		return fmt.Errorf("setting speaking state: %w", err)
	}
	defer func() { _ = c.vc.Speaking(false) }()

	done := make(chan error, 1)
	dca.NewStream(encode, c.vc, done)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("streaming audio: %w", err)
		}
	}
	return nil
}

func (c *playbackConn) Close() error {
	return c.vc.Disconnect()
}
