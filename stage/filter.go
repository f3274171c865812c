package stage

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-pipeline/filterdesign"
	"github.com/cwbudde/algo-pipeline/framing"
)

// Filter applies a Direct-Form-I IIR/FIR difference equation
//
//	y[n] = sum_{i=0}^{M} b[i]*x[n-i] - sum_{j=1}^{N} a[j-1]*y[n-j]
//
// with per-channel x/y delay lines, to coefficients produced once at
// construction time by filterdesign.Design.
type Filter struct {
	b []float64
	a []float64

	channels []filterChannelState
}

type filterChannelState struct {
	xHist []float64 // xHist[0] is x[n-1], most recent first
	yHist []float64 // yHist[0] is y[n-1], most recent first
}

// FilterState is the JSON-serializable snapshot shape.
type FilterState struct {
	NumChannels int                    `json:"numChannels"`
	Channels    []FilterChannelState   `json:"channels"`
}

// FilterChannelState is one channel's serialized delay-line state.
type FilterChannelState struct {
	XHistory []float64 `json:"xHistory"`
	YHistory []float64 `json:"yHistory"`
}

// NewFilter validates params and designs the filter's coefficients via
// filterdesign.Design.
func NewFilter(params map[string]any) (Kernel, error) {
	typ, ok := getString(params, "type", "")
	if !ok || typ == "" {
		return nil, invalidParam("type must be specified")
	}

	mode, _ := getString(params, "mode", filterdesign.IIR)

	order, ok := getInt(params, "order", 0)
	if !ok || order <= 0 {
		return nil, invalidParam("order must be > 0")
	}

	cutoff, ok := getFloat(params, "cutoffFrequency", 0)
	if !ok || cutoff <= 0 {
		return nil, invalidParam("cutoffFrequency must be > 0")
	}

	sampleRate, ok := getFloat(params, "sampleRate", 0)
	if !ok || sampleRate <= 0 {
		return nil, invalidParam("sampleRate must be > 0")
	}

	q, _ := getFloat(params, "q", 0)

	b, a, err := filterdesign.Design(filterdesign.Params{
		Type:            typ,
		Mode:            mode,
		Order:           order,
		CutoffFrequency: cutoff,
		SampleRate:      sampleRate,
		Q:               q,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParam, err)
	}

	return &Filter{
		b: b,
		a: a,
	}, nil
}

func (k *Filter) Type() string          { return "filter" }
func (k *Filter) RequiredChannels() int { return 0 }

func (k *Filter) Params() map[string]any {
	b := make([]float64, len(k.b))
	copy(b, k.b)
	a := make([]float64, len(k.a))
	copy(a, k.a)

	return map[string]any{"b": b, "a": a}
}

func (k *Filter) Process(views []framing.ChannelView) {
	if k.channels == nil {
		k.channels = make([]filterChannelState, len(views))
		for c := range k.channels {
			k.channels[c] = filterChannelState{
				xHist: make([]float64, len(k.b)-1),
				yHist: make([]float64, len(k.a)),
			}
		}
	}

	for c, v := range views {
		st := &k.channels[c]
		n := v.Len()

		for i := 0; i < n; i++ {
			x := float64(v.At(i))

			y := k.b[0]*x + vecmath.DotProduct(k.b[1:], st.xHist) - vecmath.DotProduct(k.a, st.yHist)

			shiftIn(st.xHist, x)
			shiftIn(st.yHist, y)

			v.Set(i, float32(y))
		}
	}
}

// shiftIn pushes x to the front of hist, discarding the oldest entry.
func shiftIn(hist []float64, x float64) {
	for i := len(hist) - 1; i > 0; i-- {
		hist[i] = hist[i-1]
	}

	if len(hist) > 0 {
		hist[0] = x
	}
}

func (k *Filter) SaveState() (any, error) {
	if k.channels == nil {
		return nil, nil
	}

	out := FilterState{
		NumChannels: len(k.channels),
		Channels:    make([]FilterChannelState, len(k.channels)),
	}

	for c, st := range k.channels {
		xh := make([]float64, len(st.xHist))
		copy(xh, st.xHist)
		yh := make([]float64, len(st.yHist))
		copy(yh, st.yHist)

		out.Channels[c] = FilterChannelState{XHistory: xh, YHistory: yh}
	}

	return out, nil
}

func (k *Filter) LoadState(raw any) error {
	if raw == nil {
		k.channels = nil
		return nil
	}

	state, err := decodeState[FilterState](raw)
	if err != nil {
		return err
	}

	channels := make([]filterChannelState, len(state.Channels))

	for c, chState := range state.Channels {
		if len(chState.XHistory) != len(k.b)-1 || len(chState.YHistory) != len(k.a) {
			return fmt.Errorf("%w: Delay line length mismatch", ErrStateShapeMismatch)
		}

		xh := make([]float64, len(chState.XHistory))
		copy(xh, chState.XHistory)
		yh := make([]float64, len(chState.YHistory))
		copy(yh, chState.YHistory)

		channels[c] = filterChannelState{xHist: xh, yHist: yh}
	}

	k.channels = channels

	return nil
}

func (k *Filter) ClearState() {
	k.channels = nil
}
