package pipeline

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-pipeline/stage"
)

var errDuplicateStage = errors.New("duplicate stage type")

// Registry maps stage type tags to the factories that build them.
// Grounded in dsp/effectchain.Registry, generalized from a single-argument
// effect factory to stage.Factory's parameter-validating constructor.
type Registry struct {
	factories map[string]stage.Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]stage.Factory)}
}

// Register adds a factory for the given stage type tag.
func (r *Registry) Register(tag string, factory stage.Factory) error {
	if tag == "" {
		return errors.New("empty stage type")
	}

	if factory == nil {
		return errors.New("nil factory")
	}

	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("%w: %s", errDuplicateStage, tag)
	}

	r.factories[tag] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tag string, factory stage.Factory) {
	if err := r.Register(tag, factory); err != nil {
		panic("pipeline registry: " + err.Error())
	}
}

// Lookup returns the factory registered for tag, or nil.
func (r *Registry) Lookup(tag string) stage.Factory {
	return r.factories[tag]
}

// DefaultRegistry returns a Registry pre-populated with every built-in
// stage kernel.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister("rectify", stage.NewRectify)
	r.MustRegister("clipDetection", stage.NewClipDetection)
	r.MustRegister("integrator", stage.NewIntegrator)
	r.MustRegister("rms", stage.NewRMS)
	r.MustRegister("movingAverage", stage.NewMovingAverage)
	r.MustRegister("zScoreNormalize", stage.NewZScoreNormalize)
	r.MustRegister("filter", stage.NewFilter)
	r.MustRegister("lmsFilter", stage.NewLmsFilter)
	r.MustRegister("waveletTransform", stage.NewWaveletTransform)
	r.MustRegister("hilbertEnvelope", stage.NewHilbertEnvelope)

	return r
}
