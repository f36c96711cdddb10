package frame

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync/atomic"

	"github.com/okian/speakercam/internal/domain/model"
)

// Source yields frames in detector order. Next returns io.EOF once the
// source is exhausted.
type Source interface {
	Next(ctx context.Context) (model.Frame, error)
}

// ChannelSource reads frames from a channel until it is closed.
type ChannelSource <-chan model.Frame

// Next implements Source.
func (c ChannelSource) Next(ctx context.Context) (model.Frame, error) {
	select {
	case <-ctx.Done():
		return model.Frame{}, ctx.Err()
	case f, ok := <-c:
		if !ok {
			return model.Frame{}, io.EOF
		}
		return f, nil
	}
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (model.Frame, error)

// Next implements Source.
func (f SourceFunc) Next(ctx context.Context) (model.Frame, error) { return f(ctx) }

// Stream lazily processes frames pulled from src, one per iteration step.
// The sequence ends quietly at io.EOF. Any other source error, including
// context cancellation, is yielded once and ends the sequence. A stream can
// be ranged over only once; later attempts yield ErrStreamConsumed.
func (p *Processor) Stream(ctx context.Context, s *Session, src Source) iter.Seq2[model.RenderParams, error] {
	var used atomic.Bool
	return func(yield func(model.RenderParams, error) bool) {
		if used.Swap(true) {
			yield(model.RenderParams{}, ErrStreamConsumed)
			return
		}
		for {
			f, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(model.RenderParams{}, err)
				return
			}
			if !yield(p.ProcessFrame(ctx, s, f), nil) {
				return
			}
		}
	}
}
