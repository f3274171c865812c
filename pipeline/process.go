package pipeline

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-pipeline/framing"
)

// ProcessOptions carries the per-call shape of a Process invocation.
type ProcessOptions struct {
	// Channels is the number of interleaved channels in buf. It is
	// validated against every stage's RequiredChannels and, from the
	// second call onward, against the channel count the pipeline locked
	// to on its first call.
	Channels int
}

// Process runs buf through every stage in order, in place, and returns
// it. The first call locks the pipeline's channel count; every later
// call must supply the same count or get ErrChannelMismatch. ctx is
// checked between stages so a long chain can be cancelled promptly.
func (p *Pipeline) Process(ctx context.Context, buf []float32, opts ProcessOptions) ([]float32, error) {
	if p.disposed {
		return nil, ErrInvalidState
	}

	if opts.Channels <= 0 || len(buf)%opts.Channels != 0 {
		return nil, fmt.Errorf("%w: buffer length %d not a multiple of channel count %d", ErrInvalidInput, len(buf), opts.Channels)
	}

	if p.channels == 0 {
		p.channels = opts.Channels
	} else if p.channels != opts.Channels {
		return nil, fmt.Errorf("%w: pipeline locked to %d channels, got %d", ErrChannelMismatch, p.channels, opts.Channels)
	}

	views := make([]framing.ChannelView, opts.Channels)
	for c := 0; c < opts.Channels; c++ {
		views[c] = framing.NewChannelView(buf, opts.Channels, c)
	}

	for _, inst := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stageViews := views
		if req := inst.kernel.RequiredChannels(); req > 0 && req != opts.Channels {
			return nil, fmt.Errorf("%w: requires exactly %d channels", ErrInvalidInput, req)
		}

		inst.kernel.Process(stageViews)
	}

	return buf, nil
}
