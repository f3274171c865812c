package filterdesign

import (
	"fmt"
	"math"
)

// Type names accepted by Design's Type field.
const (
	Lowpass  = "lowpass"
	Highpass = "highpass"
	Bandpass = "bandpass"
	Notch    = "notch"
)

// Mode names accepted by Design's Mode field.
const (
	IIR = "iir"
	FIR = "fir"
)

// Params is the human-friendly parameter set a caller supplies; Design
// turns it into a coefficient vector. This is an external designer
// collaborator deliberately kept out of the streaming pipeline itself —
// the filter stage only ever sees the resulting {B, A}.
type Params struct {
	Type            string
	Mode            string
	Order           int
	CutoffFrequency float64
	SampleRate      float64
	Q               float64 // quality factor for bandpass/notch; 0 selects the default
}

// Design computes feedforward coefficients B (length M+1) and feedback
// coefficients A (length N, excluding the implicit a0=1) from Params.
//
// IIR mode designs a cascade of Butterworth biquad sections (bandpass and
// notch are always single biquads; lowpass/highpass scale to Order) and
// flattens the cascade into a single Direct-Form-I numerator/denominator
// pair by polynomial multiplication. FIR mode designs a single
// linear-phase windowed-sinc kernel of length Order+1 and returns an
// empty A (N=0: an FIR filter has no feedback terms).
func Design(p Params) (b, a []float64, err error) {
	if p.Order <= 0 {
		return nil, nil, fmt.Errorf("filterdesign: order must be positive, got %d", p.Order)
	}

	if p.SampleRate <= 0 {
		return nil, nil, fmt.Errorf("filterdesign: sampleRate must be positive, got %g", p.SampleRate)
	}

	if p.CutoffFrequency <= 0 || p.CutoffFrequency >= p.SampleRate/2 {
		return nil, nil, fmt.Errorf("filterdesign: cutoffFrequency must be in (0, nyquist), got %g", p.CutoffFrequency)
	}

	switch p.Mode {
	case FIR, "":
		return designFIR(p)
	case IIR:
		return designIIR(p)
	default:
		return nil, nil, fmt.Errorf("filterdesign: unknown mode %q", p.Mode)
	}
}

func designIIR(p Params) ([]float64, []float64, error) {
	var sections []Coefficients

	switch p.Type {
	case Lowpass:
		sections = ButterworthCascade(p.CutoffFrequency, p.Order, p.SampleRate, false)
	case Highpass:
		sections = ButterworthCascade(p.CutoffFrequency, p.Order, p.SampleRate, true)
	case Bandpass:
		sections = []Coefficients{BandpassRBJ(p.CutoffFrequency, normalizedQ(p.Q), p.SampleRate)}
	case Notch:
		sections = []Coefficients{NotchRBJ(p.CutoffFrequency, normalizedQ(p.Q), p.SampleRate)}
	default:
		return nil, nil, fmt.Errorf("filterdesign: unknown type %q", p.Type)
	}

	if len(sections) == 0 {
		return nil, nil, fmt.Errorf("filterdesign: could not design filter for the given parameters")
	}

	return flattenCascade(sections)
}

// flattenCascade multiplies out a cascade of biquad sections (each
// contributing a numerator [b0, b1, b2] and denominator [1, a1, a2], or
// [b0, b1] and [1, a1] for a first-order section) into a single
// Direct-Form-I {B, A} pair via polynomial multiplication.
func flattenCascade(sections []Coefficients) ([]float64, []float64, error) {
	num := []float64{1}
	den := []float64{1}

	for _, s := range sections {
		bs := []float64{s.B0, s.B1, s.B2}
		as := []float64{1, s.A1, s.A2}

		if s.B2 == 0 && s.A2 == 0 {
			// First-order section: it has no z^-2 terms.
			bs, as = bs[:2], as[:2]
		}

		num = polyMul(num, bs)
		den = polyMul(den, as)
	}

	// den[0] is the implicit, unstored a0 == 1 (each section was already
	// normalized by normalizeBiquad); a strips it off.
	a := make([]float64, len(den)-1)
	copy(a, den[1:])

	return num, a, nil
}

func polyMul(x, y []float64) []float64 {
	out := make([]float64, len(x)+len(y)-1)
	for i, xv := range x {
		if xv == 0 {
			continue
		}

		for j, yv := range y {
			out[i+j] += xv * yv
		}
	}

	return out
}

// designFIR builds a windowed-sinc linear-phase FIR kernel of length
// Order+1 using a Hann window, the standard approach for turning an ideal
// brick-wall cutoff into a finite, well-behaved kernel.
func designFIR(p Params) ([]float64, []float64, error) {
	n := p.Order + 1
	taps := make([]float64, n)

	fc := p.CutoffFrequency / p.SampleRate // normalized cutoff, 0..0.5
	m := float64(n - 1)

	highpass := p.Type == Highpass

	switch p.Type {
	case Lowpass, Highpass:
	default:
		return nil, nil, fmt.Errorf("filterdesign: FIR mode supports lowpass/highpass only, got %q", p.Type)
	}

	for i := 0; i < n; i++ {
		k := float64(i) - m/2
		taps[i] = sinc2Fc(k, fc) * hann(i, n)
	}

	if highpass {
		taps = spectralInvert(taps)
	}

	normalizeDCGain(taps, highpass)

	return taps, nil, nil
}

func sinc2Fc(k, fc float64) float64 {
	if k == 0 {
		return 2 * fc
	}

	x := 2 * math.Pi * fc * k

	return math.Sin(x) / (math.Pi * k)
}

func hann(i, n int) float64 {
	if n <= 1 {
		return 1
	}

	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
}

// spectralInvert turns a lowpass kernel into the matching highpass kernel
// by negating every tap and adding 1 at the center.
func spectralInvert(taps []float64) []float64 {
	out := make([]float64, len(taps))
	for i, v := range taps {
		out[i] = -v
	}

	out[len(out)/2] += 1

	return out
}

func normalizeDCGain(taps []float64, highpass bool) {
	sum := 0.0
	for _, v := range taps {
		sum += v
	}

	if highpass {
		// Normalize at Nyquist instead, where a highpass kernel has unity gain.
		sum = 0
		for i, v := range taps {
			if i%2 == 0 {
				sum += v
			} else {
				sum -= v
			}
		}
	}

	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return
	}

	for i := range taps {
		taps[i] /= sum
	}
}
