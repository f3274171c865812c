package stage

import (
	"math"
	"testing"
)

// xorshiftSeq deterministically generates a pseudo-random, persistently
// exciting sequence in [-1, 1] without depending on math/rand's seeding
// behavior across Go versions.
func xorshiftSeq(n int, seed uint32) []float32 {
	out := make([]float32, n)
	x := seed

	for i := range out {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		out[i] = float32(x)/float32(1<<31) - 1
	}

	return out
}

func TestLmsFilterIdentifiesPureDelay(t *testing.T) {
	k, err := NewLmsFilter(map[string]any{
		"numTaps":      4,
		"learningRate": 0.1,
	})
	if err != nil {
		t.Fatalf("NewLmsFilter: %v", err)
	}

	const n = 4000

	ref := xorshiftSeq(n, 12345)

	desired := make([]float32, n)
	for i := 1; i < n; i++ {
		desired[i] = ref[i-1]
	}

	views := newViews(t, [][]float32{ref, desired})
	k.Process(views)

	var tailErrEnergy, tailSignalEnergy float64
	for i := n - 200; i < n; i++ {
		e := float64(views[0].At(i))
		tailErrEnergy += e * e
		tailSignalEnergy += float64(ref[i-1]) * float64(ref[i-1])
	}

	if tailSignalEnergy == 0 {
		t.Fatal("degenerate reference energy")
	}

	ratio := tailErrEnergy / tailSignalEnergy
	if ratio > 0.1 {
		t.Fatalf("expected converged error energy much smaller than signal energy, got ratio %v", ratio)
	}
}

func TestLmsFilterNormalizedConverges(t *testing.T) {
	k, err := NewLmsFilter(map[string]any{
		"numTaps":      4,
		"learningRate": 0.5,
		"normalized":   true,
	})
	if err != nil {
		t.Fatalf("NewLmsFilter: %v", err)
	}

	const n = 4000

	ref := xorshiftSeq(n, 999)

	desired := make([]float32, n)
	for i := 2; i < n; i++ {
		desired[i] = 0.5 * ref[i-2]
	}

	views := newViews(t, [][]float32{ref, desired})
	k.Process(views)

	var tailErrEnergy, tailSignalEnergy float64
	for i := n - 200; i < n; i++ {
		e := float64(views[0].At(i))
		tailErrEnergy += e * e
		d := float64(desired[i])
		tailSignalEnergy += d * d
	}

	if tailSignalEnergy == 0 {
		t.Fatal("degenerate desired energy")
	}

	ratio := tailErrEnergy / tailSignalEnergy
	if ratio > 0.2 {
		t.Fatalf("expected NLMS convergence, got ratio %v", ratio)
	}
}

func TestLmsFilterPassesDesiredThroughUnchanged(t *testing.T) {
	k, err := NewLmsFilter(map[string]any{"numTaps": 2, "learningRate": 0.1})
	if err != nil {
		t.Fatalf("NewLmsFilter: %v", err)
	}

	ref := []float32{0.1, 0.2, -0.3, 0.4}
	desired := []float32{1, 2, 3, 4}

	views := newViews(t, [][]float32{append([]float32(nil), ref...), append([]float32(nil), desired...)})
	k.Process(views)

	for i, want := range desired {
		if got := views[1].At(i); got != want {
			t.Fatalf("sample %d: desired channel got %v want %v", i, got, want)
		}
	}
}

func TestLmsFilterSaveLoadRoundTrip(t *testing.T) {
	params := map[string]any{"numTaps": 3, "learningRate": 0.05}

	k, _ := NewLmsFilter(params)
	ref := xorshiftSeq(100, 7)
	desired := make([]float32, 100)
	copy(desired[1:], ref)

	views := newViews(t, [][]float32{append([]float32(nil), ref...), append([]float32(nil), desired...)})
	k.Process(views)

	snap, err := k.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	k2, _ := NewLmsFilter(params)
	if err := k2.LoadState(snap); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	v1 := newViews(t, [][]float32{{0.1}, {0.3}})
	v2 := newViews(t, [][]float32{{0.1}, {0.3}})
	k.Process(v1)
	k2.Process(v2)

	if got, want := v1[0].At(0), v2[0].At(0); math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("post-reload mismatch: got %v want %v", got, want)
	}
}

func TestLmsFilterRejectsBadParams(t *testing.T) {
	cases := []map[string]any{
		{"numTaps": 0, "learningRate": 0.1},
		{"numTaps": 4, "learningRate": 0},
		{"numTaps": 4, "learningRate": 1.5},
		{"numTaps": 4, "learningRate": 0.1, "lambda": 1.0},
	}

	for _, c := range cases {
		if _, err := NewLmsFilter(c); err == nil {
			t.Fatalf("expected error for params %v", c)
		}
	}
}
