package stage

import (
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-pipeline/framing"
)

const hilbertEpsilon = 1e-12

// HilbertEnvelope tracks the amplitude envelope of each channel using a
// frequency-domain analytic signal: every hopSize samples, the trailing
// windowSize-sample frame is Hann-windowed, transformed with
// algofft.NewPlan64, had its negative-frequency bins zeroed and positive
// bins doubled (the standard FFT construction of the analytic signal),
// inverse-transformed, and its magnitude (via vecmath.Magnitude)
// overlap-added into a running, window-normalized output stream.
//
// Because every piece of state (the pending raw-sample buffer, the
// overlap-add accumulator, and the ready-output queue) is carried across
// calls exactly as it would exist mid-stream, processing B1 then B2
// produces the same output as processing B1∥B2 in one call.
type HilbertEnvelope struct {
	windowSize int
	hopSize    int
	hann       []float64

	channels []hilbertChannelState
}

type hilbertChannelState struct {
	pending   []float64 // raw samples not yet consumed by a complete frame
	accum     []float64 // overlap-add numerator, aligned with pending
	weight    []float64 // overlap-add denominator (window-sum), aligned with pending
	readyOut  []float64 // finalized envelope samples awaiting emission
}

// HilbertEnvelopeState is the JSON-serializable snapshot shape.
type HilbertEnvelopeState struct {
	WindowSize  int                              `json:"windowSize"`
	HopSize     int                              `json:"hopSize"`
	NumChannels int                              `json:"numChannels"`
	Channels    []HilbertEnvelopeChannelState    `json:"channels"`
}

// HilbertEnvelopeChannelState is one channel's serialized streaming state.
type HilbertEnvelopeChannelState struct {
	Pending  []float64 `json:"pending"`
	Accum    []float64 `json:"accum"`
	Weight   []float64 `json:"weight"`
	ReadyOut []float64 `json:"readyOut"`
}

// NewHilbertEnvelope validates params and constructs a HilbertEnvelope
// kernel.
func NewHilbertEnvelope(params map[string]any) (Kernel, error) {
	windowSize, ok := getInt(params, "windowSize", 0)
	if !ok {
		var err error

		windowSize, err = resolveWindowSize(params)
		if err != nil {
			return nil, invalidParam("window size must be greater than 0")
		}
	}

	if windowSize <= 0 {
		return nil, invalidParam("window size must be greater than 0")
	}

	hopSize, ok := getInt(params, "hopSize", windowSize)
	if !ok {
		hopSize = windowSize
	}

	if hopSize < 1 || hopSize > windowSize {
		return nil, invalidParam("hop size must be between 1 and window")
	}

	return &HilbertEnvelope{
		windowSize: windowSize,
		hopSize:    hopSize,
		hann:       hannWindow(windowSize),
	}, nil
}

func (k *HilbertEnvelope) Type() string          { return "hilbertEnvelope" }
func (k *HilbertEnvelope) RequiredChannels() int { return 0 }

func (k *HilbertEnvelope) Params() map[string]any {
	return map[string]any{"windowSize": k.windowSize, "hopSize": k.hopSize}
}

func (k *HilbertEnvelope) Process(views []framing.ChannelView) {
	if k.channels == nil {
		k.channels = make([]hilbertChannelState, len(views))
	}

	for c, v := range views {
		st := &k.channels[c]
		n := v.Len()

		for i := 0; i < n; i++ {
			st.pending = append(st.pending, float64(v.At(i)))
			st.accum = append(st.accum, 0)
			st.weight = append(st.weight, 0)
		}

		k.drainFrames(st)

		for i := 0; i < n; i++ {
			if len(st.readyOut) == 0 {
				v.Set(i, 0)
				continue
			}

			v.Set(i, float32(st.readyOut[0]))
			st.readyOut = st.readyOut[1:]
		}
	}
}

// drainFrames computes every complete windowSize frame available in
// st.pending, advancing hopSize samples at a time, and appends the
// normalized, finalized hopSize-sample chunks to st.readyOut.
func (k *HilbertEnvelope) drainFrames(st *hilbertChannelState) {
	fftSize := nextPow2(k.windowSize)

	for len(st.pending) >= k.windowSize {
		plan, err := algofft.NewPlan64(fftSize)
		if err != nil {
			// Construction already validated windowSize > 0; a plan
			// failure here would mean the FFT library rejected a size
			// this kernel guarantees is a power of two.
			panic(fmt.Sprintf("hilbertEnvelope: failed to create FFT plan: %v", err))
		}

		framePadded := make([]complex128, fftSize)
		for i := 0; i < k.windowSize; i++ {
			framePadded[i] = complex(st.pending[i]*k.hann[i], 0)
		}

		spectrum := make([]complex128, fftSize)
		if err := plan.Forward(spectrum, framePadded); err != nil {
			panic(fmt.Sprintf("hilbertEnvelope: forward FFT failed: %v", err))
		}

		applyAnalyticMask(spectrum)

		analytic := make([]complex128, fftSize)
		if err := plan.Inverse(analytic, spectrum); err != nil {
			panic(fmt.Sprintf("hilbertEnvelope: inverse FFT failed: %v", err))
		}

		re := make([]float64, k.windowSize)
		im := make([]float64, k.windowSize)
		for i := 0; i < k.windowSize; i++ {
			re[i] = real(analytic[i])
			im[i] = imag(analytic[i])
		}

		mag := make([]float64, k.windowSize)
		vecmath.Magnitude(mag, re, im)

		for i := 0; i < k.windowSize; i++ {
			st.accum[i] += mag[i] * k.hann[i]
			st.weight[i] += k.hann[i]
		}

		for i := 0; i < k.hopSize; i++ {
			st.readyOut = append(st.readyOut, st.accum[i]/(st.weight[i]+hilbertEpsilon))
		}

		st.pending = st.pending[k.hopSize:]
		st.accum = st.accum[k.hopSize:]
		st.weight = st.weight[k.hopSize:]
	}
}

// applyAnalyticMask turns a real signal's DFT into its analytic signal's
// DFT: positive frequencies are doubled, negative frequencies zeroed, and
// DC/Nyquist are left untouched.
func applyAnalyticMask(spectrum []complex128) {
	n := len(spectrum)
	if n == 0 {
		return
	}

	half := n / 2

	for k := 1; k < half; k++ {
		spectrum[k] *= 2
	}

	for k := half + 1; k < n; k++ {
		spectrum[k] = 0
	}

	if n%2 == 0 {
		// Nyquist bin stays as-is (neither doubled nor zeroed).
		_ = spectrum[half]
	}
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n <= 1 {
		for i := range w {
			w[i] = 1
		}

		return w
	}

	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}

	return w
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}

	return p
}

func (k *HilbertEnvelope) SaveState() (any, error) {
	if k.channels == nil {
		return nil, nil
	}

	out := HilbertEnvelopeState{
		WindowSize:  k.windowSize,
		HopSize:     k.hopSize,
		NumChannels: len(k.channels),
		Channels:    make([]HilbertEnvelopeChannelState, len(k.channels)),
	}

	for c, st := range k.channels {
		out.Channels[c] = HilbertEnvelopeChannelState{
			Pending:  append([]float64(nil), st.pending...),
			Accum:    append([]float64(nil), st.accum...),
			Weight:   append([]float64(nil), st.weight...),
			ReadyOut: append([]float64(nil), st.readyOut...),
		}
	}

	return out, nil
}

func (k *HilbertEnvelope) LoadState(raw any) error {
	if raw == nil {
		k.channels = nil
		return nil
	}

	state, err := decodeState[HilbertEnvelopeState](raw)
	if err != nil {
		return err
	}

	if state.WindowSize != k.windowSize || state.HopSize != k.hopSize {
		return fmt.Errorf("%w: Window or hop size mismatch", ErrWindowMismatch)
	}

	channels := make([]hilbertChannelState, len(state.Channels))

	for c, chState := range state.Channels {
		if len(chState.Pending) != len(chState.Accum) || len(chState.Pending) != len(chState.Weight) {
			return fmt.Errorf("%w: Overlap-add buffer length mismatch", ErrStateShapeMismatch)
		}

		channels[c] = hilbertChannelState{
			pending:  append([]float64(nil), chState.Pending...),
			accum:    append([]float64(nil), chState.Accum...),
			weight:   append([]float64(nil), chState.Weight...),
			readyOut: append([]float64(nil), chState.ReadyOut...),
		}
	}

	k.channels = channels

	return nil
}

func (k *HilbertEnvelope) ClearState() {
	k.channels = nil
}
