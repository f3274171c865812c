package stage

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-pipeline/framing"
)

// LmsFilter adaptively predicts the desired signal on channel 1 from the
// reference signal on channel 0 using least-mean-squares, optionally
// normalized (NLMS) and leaky-regularized. Unlike the other kernels, its
// state is a single instance-wide weight vector rather than one state per
// channel, since the two input channels play asymmetric roles.
type LmsFilter struct {
	numTaps      int
	learningRate float64
	lambda       float64
	normalized   bool
	epsilon      float64

	weights []float64
	hist    []float64 // hist[0] is the most recent reference sample
}

// LmsFilterState is the JSON-serializable snapshot shape.
type LmsFilterState struct {
	Weights []float64 `json:"weights"`
	History []float64 `json:"history"`
}

// NewLmsFilter validates params and constructs an LmsFilter kernel.
func NewLmsFilter(params map[string]any) (Kernel, error) {
	numTaps, ok := getInt(params, "numTaps", 0)
	if !ok || numTaps <= 0 {
		return nil, invalidParam("numTaps must be a positive integer")
	}

	learningRate, ok := getFloat(params, "learningRate", 0)
	if !ok {
		learningRate, ok = getFloat(params, "mu", 0)
	}

	if !ok || learningRate <= 0 || learningRate > 1 {
		return nil, invalidParam("learningRate must be in (0, 1]")
	}

	lambda, _ := getFloat(params, "lambda", 0)
	if lambda < 0 || lambda >= 1 {
		return nil, invalidParam("lambda must be in [0, 1)")
	}

	normalized := getBool(params, "normalized", false)

	epsilon, ok := getFloat(params, "epsilon", 1e-6)
	if !ok || epsilon <= 0 {
		epsilon = 1e-6
	}

	return &LmsFilter{
		numTaps:      numTaps,
		learningRate: learningRate,
		lambda:       lambda,
		normalized:   normalized,
		epsilon:      epsilon,
	}, nil
}

func (k *LmsFilter) Type() string          { return "lmsFilter" }
func (k *LmsFilter) RequiredChannels() int { return 2 }

func (k *LmsFilter) Params() map[string]any {
	return map[string]any{
		"numTaps":      k.numTaps,
		"learningRate": k.learningRate,
		"lambda":       k.lambda,
		"normalized":   k.normalized,
		"epsilon":      k.epsilon,
	}
}

// Process treats views[0] as the reference input x[n] and views[1] as the
// desired signal d[n]; channel 0 is replaced in place with the error
// e[n] = d[n] - w.X, channel 1 is passed through unchanged.
func (k *LmsFilter) Process(views []framing.ChannelView) {
	if k.weights == nil {
		k.weights = make([]float64, k.numTaps)
		k.hist = make([]float64, k.numTaps)
	}

	reference := views[0]
	desired := views[1]
	n := reference.Len()

	for i := 0; i < n; i++ {
		shiftIn(k.hist, float64(reference.At(i)))

		predicted := vecmath.DotProduct(k.weights, k.hist)

		d := float64(desired.At(i))
		errSample := d - predicted

		mu := k.learningRate
		if k.normalized {
			energy := vecmath.DotProduct(k.hist, k.hist)
			mu = k.learningRate / (energy + k.epsilon)
		}

		for j := range k.weights {
			k.weights[j] = (1-k.lambda)*k.weights[j] + mu*errSample*k.hist[j]
		}

		reference.Set(i, float32(errSample))
	}
}

func (k *LmsFilter) SaveState() (any, error) {
	if k.weights == nil {
		return nil, nil
	}

	w := make([]float64, len(k.weights))
	copy(w, k.weights)
	h := make([]float64, len(k.hist))
	copy(h, k.hist)

	return LmsFilterState{Weights: w, History: h}, nil
}

func (k *LmsFilter) LoadState(raw any) error {
	if raw == nil {
		k.weights = nil
		k.hist = nil

		return nil
	}

	state, err := decodeState[LmsFilterState](raw)
	if err != nil {
		return err
	}

	if len(state.Weights) != k.numTaps || len(state.History) != k.numTaps {
		return fmt.Errorf("%w: weight vector length mismatch", ErrStateShapeMismatch)
	}

	k.weights = make([]float64, k.numTaps)
	copy(k.weights, state.Weights)
	k.hist = make([]float64, k.numTaps)
	copy(k.hist, state.History)

	return nil
}

func (k *LmsFilter) ClearState() {
	k.weights = nil
	k.hist = nil
}
