package filterdesign

import (
	"math"
	"testing"
)

func TestDesignIIRLowpassDCGainIsUnity(t *testing.T) {
	b, a, err := Design(Params{Type: Lowpass, Mode: IIR, Order: 4, CutoffFrequency: 1000, SampleRate: 48000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gain := dcGain(b, a)
	if diff := math.Abs(gain - 1); diff > 1e-6 {
		t.Fatalf("DC gain = %v, want ~1 (diff %v)", gain, diff)
	}
}

func TestDesignIIROddOrder(t *testing.T) {
	b, a, err := Design(Params{Type: Lowpass, Mode: IIR, Order: 3, CutoffFrequency: 500, SampleRate: 44100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(b) != 4 || len(a) != 3 {
		t.Fatalf("unexpected coefficient lengths: len(b)=%d len(a)=%d", len(b), len(a))
	}
}

func TestDesignFIRLowpassDCGainIsUnity(t *testing.T) {
	b, a, err := Design(Params{Type: Lowpass, Mode: FIR, Order: 64, CutoffFrequency: 2000, SampleRate: 48000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a) != 0 {
		t.Fatalf("FIR mode must return empty A, got %v", a)
	}

	sum := 0.0
	for _, v := range b {
		sum += v
	}

	if diff := math.Abs(sum - 1); diff > 1e-9 {
		t.Fatalf("DC gain = %v, want ~1 (diff %v)", sum, diff)
	}
}

func TestDesignRejectsInvalidOrder(t *testing.T) {
	if _, _, err := Design(Params{Type: Lowpass, Mode: IIR, Order: 0, CutoffFrequency: 1000, SampleRate: 48000}); err == nil {
		t.Fatalf("expected error for order 0")
	}
}

func TestDesignRejectsCutoffAboveNyquist(t *testing.T) {
	if _, _, err := Design(Params{Type: Lowpass, Mode: IIR, Order: 2, CutoffFrequency: 30000, SampleRate: 48000}); err == nil {
		t.Fatalf("expected error for cutoff above nyquist")
	}
}

func TestDesignRejectsUnknownType(t *testing.T) {
	if _, _, err := Design(Params{Type: "bogus", Mode: IIR, Order: 2, CutoffFrequency: 1000, SampleRate: 48000}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

// dcGain evaluates the Direct-Form-I transfer function at z=1 (DC):
// H(1) = sum(b) / (1 + sum(a)).
func dcGain(b, a []float64) float64 {
	sumB := 0.0
	for _, v := range b {
		sumB += v
	}

	sumA := 1.0
	for _, v := range a {
		sumA += v
	}

	return sumB / sumA
}
