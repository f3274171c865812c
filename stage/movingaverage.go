package stage

import (
	"fmt"

	"github.com/cwbudde/algo-pipeline/framing"
	"github.com/cwbudde/algo-pipeline/internal/numutil"
)

// MovingAverage computes a running arithmetic mean over the last windowSize
// samples of each channel, using an O(1) push-evict-and-adjust update
// rather than resumming the window on every sample.
type MovingAverage struct {
	windowSize int
	channels   []movingAverageChannelState
}

type movingAverageChannelState struct {
	ring *ring
	sum  float64
}

// MovingAverageState is the JSON-serializable snapshot shape.
type MovingAverageState struct {
	WindowSize  int                          `json:"windowSize"`
	NumChannels int                          `json:"numChannels"`
	Channels    []MovingAverageChannelState  `json:"channels"`
}

// MovingAverageChannelState is one channel's serialized moving-average
// state.
type MovingAverageChannelState struct {
	Buffer    []float64 `json:"buffer"`
	RunningSum float64  `json:"runningSum"`
}

// NewMovingAverage validates params and constructs a MovingAverage kernel.
func NewMovingAverage(params map[string]any) (Kernel, error) {
	ws, err := resolveWindowSize(params)
	if err != nil {
		return nil, err
	}

	return &MovingAverage{windowSize: ws}, nil
}

func (k *MovingAverage) Type() string          { return "movingAverage" }
func (k *MovingAverage) RequiredChannels() int { return 0 }

func (k *MovingAverage) Params() map[string]any {
	return map[string]any{"windowSize": k.windowSize}
}

func (k *MovingAverage) Process(views []framing.ChannelView) {
	if k.channels == nil {
		k.channels = make([]movingAverageChannelState, len(views))
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
				st.sum -= evicted
			}

			st.sum += x

			count := st.ring.Len()
			if count == 0 {
				count = 1
			}

			v.Set(i, float32(st.sum/float64(count)))
		}
	}
}

func (k *MovingAverage) SaveState() (any, error) {
	if k.channels == nil {
		return nil, nil
	}

	out := MovingAverageState{
		WindowSize:  k.windowSize,
		NumChannels: len(k.channels),
		Channels:    make([]MovingAverageChannelState, len(k.channels)),
	}

	for c, st := range k.channels {
		out.Channels[c] = MovingAverageChannelState{
			Buffer:     st.ring.Values(),
			RunningSum: st.sum,
		}
	}

	return out, nil
}

func (k *MovingAverage) LoadState(raw any) error {
	if raw == nil {
		k.channels = nil
		return nil
	}

	state, err := decodeState[MovingAverageState](raw)
	if err != nil {
		return err
	}

	if state.WindowSize != k.windowSize {
		return fmt.Errorf("%w: Window size mismatch", ErrWindowMismatch)
	}

	channels := make([]movingAverageChannelState, len(state.Channels))

	for c, chState := range state.Channels {
		if len(chState.Buffer) > k.windowSize {
			return fmt.Errorf("%w: Window size mismatch", ErrWindowMismatch)
		}

		r := loadRing(k.windowSize, chState.Buffer)

		var recomputed float64
		for _, v := range chState.Buffer {
			recomputed += v
		}

		if !numutil.NearlyEqualRel(recomputed, chState.RunningSum, 1e-5) {
			return fmt.Errorf("%w: Running sum validation failed", ErrRunningSumInvalid)
		}

		channels[c] = movingAverageChannelState{ring: r, sum: chState.RunningSum}
	}

	k.channels = channels

	return nil
}

func (k *MovingAverage) ClearState() {
	k.channels = nil
}
