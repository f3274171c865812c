// Package stage implements the stateful streaming DSP kernels: the pure
// per-sample/per-channel numeric logic (Rectify, ClipDetection, RMS,
// MovingAverage, Integrator, ZScoreNormalize, the generic IIR/FIR Filter,
// LmsFilter, WaveletTransform, HilbertEnvelope).
//
// Each kernel owns its state exclusively; the pipeline package only ever
// touches it through the Kernel interface below, mirroring how
// dsp/effectchain/runtime.go keeps per-node Runtime state private behind
// a narrow Configure/Process contract.
package stage

import "github.com/cwbudde/algo-pipeline/framing"

// Kernel is implemented by every registered stage type. Per-channel state
// fan-out is owned by the kernel itself: Process is always called with
// exactly as many views as the pipeline has locked the stage to, and a
// kernel lazily allocates its per-channel state to match on first use.
type Kernel interface {
	// Type returns the stage's registry tag, e.g. "integrator".
	Type() string

	// RequiredChannels returns a fixed channel count this kernel demands
	// (e.g. 2 for LmsFilter), or 0 if any positive channel count is fine.
	RequiredChannels() int

	// Process applies the kernel to one batch, one view per channel, in
	// place. Views share a backing interleaved buffer; a kernel must not
	// retain a view after Process returns.
	Process(views []framing.ChannelView)

	// Params returns the validated construction parameters, used for the
	// snapshot's "params" field and for loadState's structural check.
	Params() map[string]any

	// SaveState returns a JSON-marshalable snapshot of the kernel's
	// internal state, or nil if the kernel is stateless.
	SaveState() (any, error)

	// LoadState restores internal state from a previously-saved snapshot,
	// validating the kernel's own state invariants. A nil raw clears state.
	LoadState(raw any) error

	// ClearState drops all per-channel state (and any channel-count lock
	// the kernel itself tracks, if any).
	ClearState()
}

// Factory builds one Kernel from a validated parameter map. Builder-time
// validation happens inside the factory so construction fails fast.
type Factory func(params map[string]any) (Kernel, error)
