// Package framing converts between interleaved and planar sample-buffer
// layouts. Adapted from dsp/core's buffer-reuse idiom (EnsureLen/
// Zero/CopyInto), generalized from mono float64 blocks to multi-channel
// float32 interleaved audio buffers.
package framing

import (
	"fmt"

	"github.com/cwbudde/algo-pipeline/internal/numutil"
)

// Interleave concatenates equal-length per-channel vectors into a single
// interleaved buffer: out[s*C+c] = planar[c][s].
func Interleave(planar [][]float32) ([]float32, error) {
	return InterleaveInto(nil, planar)
}

// InterleaveInto is Interleave, reusing dst's capacity when it's large
// enough instead of always allocating, for callers feeding a steady
// stream of equal-shaped batches through the same scratch buffer.
func InterleaveInto(dst []float32, planar [][]float32) ([]float32, error) {
	if len(planar) == 0 {
		return nil, nil
	}

	channels := len(planar)
	length := len(planar[0])

	for c, ch := range planar {
		if len(ch) != length {
			return nil, fmt.Errorf("framing: invalid input: channel %d has length %d, want %d", c, len(ch), length)
		}
	}

	out := numutil.EnsureLen32(dst, length*channels)
	numutil.Zero32(out)

	for s := 0; s < length; s++ {
		base := s * channels
		for c := 0; c < channels; c++ {
			out[base+c] = planar[c][s]
		}
	}

	return out, nil
}

// Deinterleave splits an interleaved buffer into channels equal-length
// per-channel vectors.
func Deinterleave(interleaved []float32, channels int) ([][]float32, error) {
	return DeinterleaveInto(nil, interleaved, channels)
}

// DeinterleaveInto is Deinterleave, reusing each of dst's per-channel
// slices when they're already the right capacity.
func DeinterleaveInto(dst [][]float32, interleaved []float32, channels int) ([][]float32, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("framing: invalid input: channels must be > 0, got %d", channels)
	}

	if len(interleaved)%channels != 0 {
		return nil, fmt.Errorf("framing: invalid input: buffer length %d not a multiple of channels %d", len(interleaved), channels)
	}

	length := len(interleaved) / channels

	planar := dst
	if len(planar) != channels {
		planar = make([][]float32, channels)
	}

	for c := 0; c < channels; c++ {
		planar[c] = numutil.EnsureLen32(planar[c], length)
		numutil.Zero32(planar[c])
	}

	for s := 0; s < length; s++ {
		base := s * channels
		for c := 0; c < channels; c++ {
			planar[c][s] = interleaved[base+c]
		}
	}

	return planar, nil
}

// ChannelView is a logical, zero-copy per-channel view over an interleaved
// buffer: stride channels, offset channel.
type ChannelView struct {
	buf      []float32
	channel  int
	channels int
}

// NewChannelView returns a strided view over buf for the given channel
// (0-indexed) out of channels total.
func NewChannelView(buf []float32, channels, channel int) ChannelView {
	return ChannelView{buf: buf, channel: channel, channels: channels}
}

// Len returns the number of samples visible through the view.
func (v ChannelView) Len() int {
	if v.channels <= 0 {
		return 0
	}

	return len(v.buf) / v.channels
}

// At returns the sample at logical index i.
func (v ChannelView) At(i int) float32 {
	return v.buf[i*v.channels+v.channel]
}

// Set writes the sample at logical index i.
func (v ChannelView) Set(i int, x float32) {
	v.buf[i*v.channels+v.channel] = x
}
