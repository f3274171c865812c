package stage

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-pipeline/framing"
)

// waveletFilters holds the low-pass (scaling) analysis filter for each
// supported wavelet family. The high-pass (wavelet) filter is derived from
// it via the quadrature mirror relation g[n] = (-1)^n * h[L-1-n].
//
// Haar is the two-tap case; db2..db10 are the standard orthonormal
// Daubechies analysis filters (Daubechies, "Ten Lectures on Wavelets",
// 1992), normalized to unit energy.
var waveletFilters = map[string][]float64{
	"haar": {0.7071067811865476, 0.7071067811865476},
	"db2": {
		0.48296291314469025, 0.836516303737469,
		0.22414386804185735, -0.12940952255092145,
	},
	"db3": {
		0.3326705529509569, 0.8068915093133388, 0.4598775021193313,
		-0.13501102001039084, -0.08544127388224149, 0.035226291882100656,
	},
	"db4": {
		0.23037781330885523, 0.7148465705525415, 0.6308807679295904,
		-0.02798376941698385, -0.18703481171888114, 0.030841381835986965,
		0.032883011666982945, -0.010597401784997278,
	},
	"db5": {
		0.160102397974125, 0.6038292697974729, 0.7243085284385744,
		0.13842814590110342, -0.24229488706619015, -0.03224486958502952,
		0.07757149384006515, -0.006241490213011705, -0.012580751999015526,
		0.003335725285001549,
	},
	"db6": {
		0.11154074335008017, 0.4946238903983854, 0.7511339080215775,
		0.3152503517092432, -0.22626469396516913, -0.12976686756709563,
		0.09750160558707936, 0.02752286553001629, -0.031582039318031156,
		0.0005538422009938016, 0.004777257511010651, -0.001077301085308479,
	},
	"db7": {
		0.07785205408506236, 0.39653931948230575, 0.7291320908465551,
		0.4697822874053586, -0.14390600392910627, -0.22403618499416572,
		0.07130921926705004, 0.08061260915108307, -0.03802993693503463,
		-0.01657454163101562, 0.012550998556013784, 0.00042957797300470274,
		-0.0018016407039998328, 0.0003537138000010399,
	},
	"db8": {
		0.05441584224310400, 0.31287159091400100, 0.67563073629801500,
		0.58535468365420900, -0.01582910525634990, -0.28401554296154900,
		0.00047248457391760, 0.12874742662047600, -0.01736930100202220,
		-0.04408825393079500, 0.01398102791739900, 0.00874609404701660,
		-0.00487035299301060, -0.00039174037337850, 0.00067544940645360,
		-0.00011747678400470,
	},
	"db9": {
		0.03807794736387840, 0.24383467463766000, 0.60482312369011400,
		0.65728807803662600, 0.13319738582349700, -0.29327378327300500,
		-0.09684078322085200, 0.14854074933476900, 0.03072568147931320,
		-0.06763282905952200, 0.00025094711499193, 0.02236166212351200,
		-0.00473154498005170, -0.00420592625505030, 0.00184764688305610,
		0.00023859144340870, -0.00025194587510100, 0.00003934732031630,
	},
	"db10": {
		0.02667005790095780, 0.18817680007762600, 0.52720118893091700,
		0.68845903945363400, 0.28117234366059000, -0.24984642432706400,
		-0.19594627437659700, 0.12736934338826600, 0.09305736460357300,
		-0.07139414716586800, -0.02945753682194560, 0.03321267405893200,
		0.00360655356695616, -0.01073317548338300, 0.00139535174735530,
		0.00199240529518060, -0.00068585669500468, -0.00011646685513000,
		0.00009358867032010, -0.00001326420289450,
	},
}

// WaveletTransform computes a single level of Daubechies wavelet
// decomposition: each channel is convolved with the family's low-pass and
// high-pass analysis filters, downsampled by 2, and the result written
// back as [cA | cD], each sub-band padded with its own edge value to fill
// the original buffer length.
//
// Decomposition is causal: sample pair (2i, 2i+1) of the logical,
// unbounded input stream produces output i, using the filterLen-1
// preceding samples as history. At the very start of the stream, that
// history doesn't exist yet, so it is synthesized once by symmetrically
// reflecting the first block's own leading samples; from then on the
// history is the real tail of whatever was processed last. As long as B1
// has even length, processing B1 then B2 therefore yields the same cA and
// cD coefficient sequences as processing B1∥B2 in one call; the output
// buffers differ in layout, since each call writes its own [cA | cD].
type WaveletTransform struct {
	family string
	low    []float64
	high   []float64

	// lowRev/highRev are low/high reversed, so that the convolution sum at
	// a given output index becomes a plain vecmath.DotProduct against the
	// ascending-order window of extended samples it covers.
	lowRev  []float64
	highRev []float64

	channels []waveletChannelState
}

type waveletChannelState struct {
	tail   []float64 // the filterLen-1 real samples preceding the next block
	primed bool
}

// WaveletTransformState is the JSON-serializable snapshot shape.
type WaveletTransformState struct {
	Family      string                          `json:"family"`
	NumChannels int                             `json:"numChannels"`
	Channels    []WaveletTransformChannelState  `json:"channels"`
}

// WaveletTransformChannelState is one channel's serialized edge history.
type WaveletTransformChannelState struct {
	Tail   []float64 `json:"tail"`
	Primed bool      `json:"primed"`
}

// NewWaveletTransform validates params and constructs a WaveletTransform
// kernel.
func NewWaveletTransform(params map[string]any) (Kernel, error) {
	family, ok := getString(params, "wavelet", "")
	if !ok || family == "" {
		return nil, invalidParam("wavelet is required")
	}

	low, known := waveletFilters[family]
	if !known {
		return nil, invalidParam("Unknown wavelet")
	}

	high := quadratureMirror(low)

	return &WaveletTransform{
		family:  family,
		low:     low,
		high:    high,
		lowRev:  reverse(low),
		highRev: reverse(high),
	}, nil
}

// reverse returns a new slice holding x's elements in reverse order.
func reverse(x []float64) []float64 {
	r := make([]float64, len(x))
	for i, v := range x {
		r[len(x)-1-i] = v
	}

	return r
}

// quadratureMirror derives the high-pass wavelet filter from the low-pass
// scaling filter: g[n] = (-1)^n * h[L-1-n].
func quadratureMirror(low []float64) []float64 {
	l := len(low)
	high := make([]float64, l)

	for n := 0; n < l; n++ {
		sign := 1.0
		if n%2 != 0 {
			sign = -1.0
		}

		high[n] = sign * low[l-1-n]
	}

	return high
}

func (k *WaveletTransform) Type() string          { return "waveletTransform" }
func (k *WaveletTransform) RequiredChannels() int { return 0 }

func (k *WaveletTransform) Params() map[string]any {
	return map[string]any{"wavelet": k.family}
}

func (k *WaveletTransform) Process(views []framing.ChannelView) {
	filterLen := len(k.low)
	histLen := filterLen - 1

	if k.channels == nil {
		k.channels = make([]waveletChannelState, len(views))
	}

	for c, v := range views {
		st := &k.channels[c]
		n := v.Len()

		if !st.primed {
			st.tail = reflectPrefix(v, histLen)
			st.primed = true
		}

		extended := make([]float64, histLen+n)
		copy(extended, st.tail)

		for i := 0; i < n; i++ {
			extended[histLen+i] = float64(v.At(i))
		}

		pairs := n / 2
		cA := make([]float64, pairs)
		cD := make([]float64, pairs)

		for i := 0; i < pairs; i++ {
			end := histLen + 2*i + 1 // index, in extended, of the newer sample of pair i
			window := extended[end-filterLen+1 : end+1]

			cA[i] = vecmath.DotProduct(k.lowRev, window)
			cD[i] = vecmath.DotProduct(k.highRev, window)
		}

		// Output layout: first ceil(n/2) entries hold cA, the remainder
		// holds cD; either sub-band is padded out with its own edge value
		// if the halves don't exactly fill n (n odd, or no pairs at all).
		aLen := (n + 1) / 2

		for i := 0; i < n; i++ {
			if i < aLen {
				v.Set(i, float32(edgeValue(cA, i)))
			} else {
				v.Set(i, float32(edgeValue(cD, i-aLen)))
			}
		}

		newTail := make([]float64, histLen)
		if histLen > 0 {
			copy(newTail, extended[len(extended)-histLen:])
		}

		st.tail = newTail
	}
}

// edgeValue returns sub[i], or sub's last element (its "edge value") if i
// runs past the end of a sub-band that came up short of its padded share.
func edgeValue(sub []float64, i int) float64 {
	if len(sub) == 0 {
		return 0
	}

	if i < len(sub) {
		return sub[i]
	}

	return sub[len(sub)-1]
}

// reflectPrefix synthesizes the histLen samples that would have preceded
// v had the stream actually started earlier, by whole-point symmetric
// reflection of v's own leading samples: s[-1-i] = v[i].
func reflectPrefix(v framing.ChannelView, histLen int) []float64 {
	tail := make([]float64, histLen)
	if v.Len() == 0 {
		return tail
	}

	for i := 0; i < histLen; i++ {
		srcIdx := i
		if srcIdx >= v.Len() {
			srcIdx = v.Len() - 1
		}

		tail[histLen-1-i] = float64(v.At(srcIdx))
	}

	return tail
}

func (k *WaveletTransform) SaveState() (any, error) {
	if k.channels == nil {
		return nil, nil
	}

	out := WaveletTransformState{
		Family:      k.family,
		NumChannels: len(k.channels),
		Channels:    make([]WaveletTransformChannelState, len(k.channels)),
	}

	for c, st := range k.channels {
		tail := make([]float64, len(st.tail))
		copy(tail, st.tail)
		out.Channels[c] = WaveletTransformChannelState{Tail: tail, Primed: st.primed}
	}

	return out, nil
}

func (k *WaveletTransform) LoadState(raw any) error {
	if raw == nil {
		k.channels = nil
		return nil
	}

	state, err := decodeState[WaveletTransformState](raw)
	if err != nil {
		return err
	}

	if state.Family != k.family {
		return fmt.Errorf("%w: Wavelet family mismatch", ErrStateShapeMismatch)
	}

	channels := make([]waveletChannelState, len(state.Channels))

	for c, chState := range state.Channels {
		if len(chState.Tail) != len(k.low)-1 {
			return fmt.Errorf("%w: Tail length mismatch", ErrStateShapeMismatch)
		}

		tail := make([]float64, len(chState.Tail))
		copy(tail, chState.Tail)
		channels[c] = waveletChannelState{tail: tail, primed: chState.Primed}
	}

	k.channels = channels

	return nil
}

func (k *WaveletTransform) ClearState() {
	k.channels = nil
}
