package stage

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-pipeline/framing"
	"github.com/cwbudde/algo-pipeline/internal/numutil"
)

const (
	rmsModeBatch  = "batch"
	rmsModeMoving = "moving"
)

// RMS computes root-mean-square amplitude: in "batch" mode, one value per
// channel replicated across the whole batch region; in "moving" mode, a
// running window evaluated sample by sample.
type RMS struct {
	mode       string
	windowSize int // moving mode only

	channels []rmsChannelState // moving mode only
}

type rmsChannelState struct {
	ring       *ring
	sumSquares float64
}

// RMSState is the JSON-serializable snapshot shape (moving mode only).
type RMSState struct {
	Mode        string             `json:"mode"`
	WindowSize  int                `json:"windowSize"`
	NumChannels int                `json:"numChannels"`
	Channels    []RMSChannelState  `json:"channels"`
}

// RMSChannelState is one channel's serialized moving-RMS state.
type RMSChannelState struct {
	Buffer            []float64 `json:"buffer"`
	RunningSumSquares float64   `json:"runningSumSquares"`
}

// NewRMS validates params and constructs an RMS kernel.
func NewRMS(params map[string]any) (Kernel, error) {
	mode, _ := getString(params, "mode", rmsModeBatch)

	switch mode {
	case rmsModeBatch:
		return &RMS{mode: mode}, nil
	case rmsModeMoving:
		ws, err := resolveWindowSize(params)
		if err != nil {
			return nil, err
		}

		return &RMS{mode: mode, windowSize: ws}, nil
	default:
		return nil, invalidParam(`mode must be "batch" or "moving"`)
	}
}

func (k *RMS) Type() string          { return "rms" }
func (k *RMS) RequiredChannels() int { return 0 }

func (k *RMS) Params() map[string]any {
	p := map[string]any{"mode": k.mode}
	if k.mode == rmsModeMoving {
		p["windowSize"] = k.windowSize
	}

	return p
}

func (k *RMS) Process(views []framing.ChannelView) {
	if k.mode == rmsModeBatch {
		k.processBatch(views)
		return
	}

	k.processMoving(views)
}

func (k *RMS) processBatch(views []framing.ChannelView) {
	for _, v := range views {
		n := v.Len()
		if n == 0 {
			continue
		}

		samples := viewToFloat64(v)
		sumSq := vecmath.DotProduct(samples, samples)

		value := float32(math.Sqrt(sumSq / float64(n)))
		for i := 0; i < n; i++ {
			v.Set(i, value)
		}
	}
}

func (k *RMS) processMoving(views []framing.ChannelView) {
	if k.channels == nil {
		k.channels = make([]rmsChannelState, len(views))
		for c := range k.channels {
			k.channels[c].ring = newRing(k.windowSize)
		}
	}

	for c, v := range views {
		st := &k.channels[c]
		n := v.Len()

		for i := 0; i < n; i++ {
			x := float64(v.At(i))

			evicted, didEvict := st.ring.Push(x)
			if didEvict {
				st.sumSquares -= evicted * evicted
			}

			st.sumSquares += x * x

			count := st.ring.Len()
			if count == 0 {
				count = 1
			}

			v.Set(i, float32(math.Sqrt(math.Max(st.sumSquares, 0)/float64(count))))
		}
	}
}

func (k *RMS) SaveState() (any, error) {
	if k.mode != rmsModeMoving || k.channels == nil {
		return nil, nil
	}

	out := RMSState{
		Mode:        k.mode,
		WindowSize:  k.windowSize,
		NumChannels: len(k.channels),
		Channels:    make([]RMSChannelState, len(k.channels)),
	}

	for c, st := range k.channels {
		out.Channels[c] = RMSChannelState{
			Buffer:            st.ring.Values(),
			RunningSumSquares: st.sumSquares,
		}
	}

	return out, nil
}

func (k *RMS) LoadState(raw any) error {
	if k.mode != rmsModeMoving {
		return nil
	}

	if raw == nil {
		k.channels = nil
		return nil
	}

	state, err := decodeState[RMSState](raw)
	if err != nil {
		return err
	}

	if state.WindowSize != k.windowSize {
		return fmt.Errorf("%w: Window size mismatch", ErrWindowMismatch)
	}

	channels := make([]rmsChannelState, len(state.Channels))

	for c, chState := range state.Channels {
		if len(chState.Buffer) > k.windowSize {
			return fmt.Errorf("%w: Window size mismatch", ErrWindowMismatch)
		}

		r := loadRing(k.windowSize, chState.Buffer)

		var recomputed float64
		for _, v := range chState.Buffer {
			recomputed += v * v
		}

		if !numutil.NearlyEqualRel(recomputed, chState.RunningSumSquares, 1e-5) {
			return fmt.Errorf("%w: Running sum validation failed", ErrRunningSumInvalid)
		}

		channels[c] = rmsChannelState{ring: r, sumSquares: chState.RunningSumSquares}
	}

	k.channels = channels

	return nil
}

func (k *RMS) ClearState() {
	k.channels = nil
}
