package pipeline

import (
	"fmt"

	"github.com/cwbudde/algo-pipeline/stage"
)

// stageInstance pairs a live kernel with the registry tag it was built
// from; the tag is kept alongside the kernel's own Type() for use in
// SaveState's error messages.
type stageInstance struct {
	tag    string
	kernel stage.Kernel
}

// Pipeline is an ordered, linear chain of stage kernels sharing one
// locked channel count. Unlike dsp/effectchain's graph-compiling Chain,
// a Pipeline never branches: stages run strictly in append order against
// the same interleaved buffer.
type Pipeline struct {
	registry *Registry
	stages   []*stageInstance

	channels int // 0 until the first Process call locks it

	maxRetries            int
	retryBackoffMillis    int
	fallbackOnLoadFailure bool
	disposed              bool
}

// New creates an empty Pipeline. Stages are added with the per-tag
// builder methods (Rectify, Filter, LmsFilter, ...), each returning the
// same *Pipeline so calls can be chained.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		registry:              DefaultRegistry(),
		maxRetries:            3,
		retryBackoffMillis:    10,
		fallbackOnLoadFailure: false,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// append resolves tag against the registry, builds a kernel from params,
// and appends it to the chain. A builder-time error is returned directly
// and the stage is not appended; the Pipeline keeps no record of it, so
// later builder calls proceed normally and each call's error needs its
// own check.
func (p *Pipeline) append(tag string, params map[string]any) (*Pipeline, error) {
	if p.disposed {
		return p, ErrInvalidState
	}

	factory := p.registry.Lookup(tag)
	if factory == nil {
		return p, fmt.Errorf("%w: %s", ErrUnknownStage, tag)
	}

	k, err := factory(params)
	if err != nil {
		return p, err
	}

	if req := k.RequiredChannels(); req > 0 && p.channels > 0 && req != p.channels {
		return p, fmt.Errorf("%w: stage %q requires %d channels, pipeline is locked to %d", ErrChannelMismatch, tag, req, p.channels)
	}

	p.stages = append(p.stages, &stageInstance{tag: tag, kernel: k})

	return p, nil
}

// Rectify appends a Rectify stage.
func (p *Pipeline) Rectify(params RectifyParams) (*Pipeline, error) {
	return p.append("rectify", params.toMap())
}

// ClipDetection appends a ClipDetection stage.
func (p *Pipeline) ClipDetection(params ClipDetectionParams) (*Pipeline, error) {
	return p.append("clipDetection", params.toMap())
}

// Integrator appends an Integrator stage.
func (p *Pipeline) Integrator(params IntegratorParams) (*Pipeline, error) {
	return p.append("integrator", params.toMap())
}

// RMS appends an RMS stage.
func (p *Pipeline) RMS(params RMSParams) (*Pipeline, error) {
	return p.append("rms", params.toMap())
}

// MovingAverage appends a MovingAverage stage.
func (p *Pipeline) MovingAverage(params MovingAverageParams) (*Pipeline, error) {
	return p.append("movingAverage", params.toMap())
}

// ZScoreNormalize appends a ZScoreNormalize stage.
func (p *Pipeline) ZScoreNormalize(params ZScoreNormalizeParams) (*Pipeline, error) {
	return p.append("zScoreNormalize", params.toMap())
}

// Filter appends a generic IIR/FIR Filter stage.
func (p *Pipeline) Filter(params FilterParams) (*Pipeline, error) {
	return p.append("filter", params.toMap())
}

// LmsFilter appends an LmsFilter stage. LmsFilter always locks the
// pipeline to exactly 2 channels.
func (p *Pipeline) LmsFilter(params LmsFilterParams) (*Pipeline, error) {
	return p.append("lmsFilter", params.toMap())
}

// WaveletTransform appends a WaveletTransform stage.
func (p *Pipeline) WaveletTransform(params WaveletTransformParams) (*Pipeline, error) {
	return p.append("waveletTransform", params.toMap())
}

// HilbertEnvelope appends a HilbertEnvelope stage.
func (p *Pipeline) HilbertEnvelope(params HilbertEnvelopeParams) (*Pipeline, error) {
	return p.append("hilbertEnvelope", params.toMap())
}

// Dispose releases the pipeline's stages. Every method on a disposed
// Pipeline returns ErrInvalidState.
func (p *Pipeline) Dispose() {
	if p.disposed {
		return
	}

	for _, inst := range p.stages {
		inst.kernel.ClearState()
	}

	p.stages = nil
	p.disposed = true
}
