package stage

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-pipeline/framing"
	"github.com/cwbudde/algo-pipeline/internal/numutil"
)

const (
	zscoreModeBatch  = "batch"
	zscoreModeMoving = "moving"
)

// ZScoreNormalize rescales samples to zero mean, unit variance: in "batch"
// mode over the whole processed region, in "moving" mode over a trailing
// window evaluated sample by sample.
type ZScoreNormalize struct {
	mode       string
	windowSize int // moving mode only
	epsilon    float64

	channels []zscoreChannelState // moving mode only
}

type zscoreChannelState struct {
	ring          *ring
	sum           float64
	sumOfSquares  float64
}

// ZScoreState is the JSON-serializable snapshot shape (moving mode only).
type ZScoreState struct {
	Mode        string                `json:"mode"`
	WindowSize  int                   `json:"windowSize"`
	NumChannels int                   `json:"numChannels"`
	Channels    []ZScoreChannelState  `json:"channels"`
}

// ZScoreChannelState is one channel's serialized moving Z-score state.
type ZScoreChannelState struct {
	Buffer             []float64 `json:"buffer"`
	RunningSum         float64   `json:"runningSum"`
	RunningSumOfSquares float64  `json:"runningSumOfSquares"`
}

// NewZScoreNormalize validates params and constructs a ZScoreNormalize
// kernel.
func NewZScoreNormalize(params map[string]any) (Kernel, error) {
	mode, _ := getString(params, "mode", zscoreModeBatch)

	epsilon, ok := getFloat(params, "epsilon", 1e-8)
	if !ok || epsilon < 0 {
		epsilon = 1e-8
	}

	switch mode {
	case zscoreModeBatch:
		return &ZScoreNormalize{mode: mode, epsilon: epsilon}, nil
	case zscoreModeMoving:
		ws, err := resolveWindowSize(params)
		if err != nil {
			return nil, err
		}

		return &ZScoreNormalize{mode: mode, windowSize: ws, epsilon: epsilon}, nil
	default:
		return nil, invalidParam(`mode must be "batch" or "moving"`)
	}
}

func (k *ZScoreNormalize) Type() string          { return "zScoreNormalize" }
func (k *ZScoreNormalize) RequiredChannels() int { return 0 }

func (k *ZScoreNormalize) Params() map[string]any {
	p := map[string]any{"mode": k.mode, "epsilon": k.epsilon}
	if k.mode == zscoreModeMoving {
		p["windowSize"] = k.windowSize
	}

	return p
}

func (k *ZScoreNormalize) Process(views []framing.ChannelView) {
	if k.mode == zscoreModeBatch {
		k.processBatch(views)
		return
	}

	k.processMoving(views)
}

func (k *ZScoreNormalize) processBatch(views []framing.ChannelView) {
	for _, v := range views {
		n := v.Len()
		if n == 0 {
			continue
		}

		samples := viewToFloat64(v)
		sum := vecmath.Sum(samples)
		sumSq := vecmath.DotProduct(samples, samples)

		mean := sum / float64(n)
		variance := sumSq/float64(n) - mean*mean
		stddev := math.Sqrt(math.Max(variance, 0))

		if stddev <= k.epsilon {
			for i := 0; i < n; i++ {
				v.Set(i, 0)
			}

			continue
		}

		for i, x := range samples {
			v.Set(i, float32((x-mean)/stddev))
		}
	}
}

func (k *ZScoreNormalize) processMoving(views []framing.ChannelView) {
	if k.channels == nil {
		k.channels = make([]zscoreChannelState, len(views))
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
				st.sumOfSquares -= evicted * evicted
			}

			st.sum += x
			st.sumOfSquares += x * x

			count := st.ring.Len()
			if count == 0 {
				count = 1
			}

			mean := st.sum / float64(count)
			variance := st.sumOfSquares/float64(count) - mean*mean
			stddev := math.Sqrt(math.Max(variance, 0))

			v.Set(i, float32((x-mean)/math.Max(stddev, k.epsilon)))
		}
	}
}

func (k *ZScoreNormalize) SaveState() (any, error) {
	if k.mode != zscoreModeMoving || k.channels == nil {
		return nil, nil
	}

	out := ZScoreState{
		Mode:        k.mode,
		WindowSize:  k.windowSize,
		NumChannels: len(k.channels),
		Channels:    make([]ZScoreChannelState, len(k.channels)),
	}

	for c, st := range k.channels {
		out.Channels[c] = ZScoreChannelState{
			Buffer:              st.ring.Values(),
			RunningSum:          st.sum,
			RunningSumOfSquares: st.sumOfSquares,
		}
	}

	return out, nil
}

func (k *ZScoreNormalize) LoadState(raw any) error {
	if k.mode != zscoreModeMoving {
		return nil
	}

	if raw == nil {
		k.channels = nil
		return nil
	}

	state, err := decodeState[ZScoreState](raw)
	if err != nil {
		return err
	}

	if state.WindowSize != k.windowSize {
		return fmt.Errorf("%w: Window size mismatch", ErrWindowMismatch)
	}

	channels := make([]zscoreChannelState, len(state.Channels))

	for c, chState := range state.Channels {
		if len(chState.Buffer) > k.windowSize {
			return fmt.Errorf("%w: Window size mismatch", ErrWindowMismatch)
		}

		r := loadRing(k.windowSize, chState.Buffer)

		var sum, sumSq float64
		for _, v := range chState.Buffer {
			sum += v
			sumSq += v * v
		}

		if !numutil.NearlyEqualRel(sum, chState.RunningSum, 1e-5) {
			return fmt.Errorf("%w: Running sum validation failed", ErrRunningSumInvalid)
		}

		if !numutil.NearlyEqualRel(sumSq, chState.RunningSumOfSquares, 1e-5) {
			return fmt.Errorf("%w: Running sum validation failed", ErrRunningSumInvalid)
		}

		channels[c] = zscoreChannelState{
			ring:         r,
			sum:          chState.RunningSum,
			sumOfSquares: chState.RunningSumOfSquares,
		}
	}

	k.channels = channels

	return nil
}

func (k *ZScoreNormalize) ClearState() {
	k.channels = nil
}
