package stage

import (
	"errors"
	"math"
	"testing"
)

func TestZScoreNormalizeBatch(t *testing.T) {
	k, err := NewZScoreNormalize(map[string]any{"mode": "batch", "epsilon": 0.0})
	if err != nil {
		t.Fatalf("NewZScoreNormalize: %v", err)
	}

	views := newViews(t, [][]float32{{2, 4, 4, 4, 5, 5, 7, 9}})
	k.Process(views)

	var sum, sumSq float64
	n := views[0].Len()
	for i := 0; i < n; i++ {
		x := float64(views[0].At(i))
		sum += x
		sumSq += x * x
	}

	mean := sum / float64(n)
	if math.Abs(mean) > 1e-4 {
		t.Fatalf("expected near-zero mean, got %v", mean)
	}

	variance := sumSq/float64(n) - mean*mean
	if math.Abs(variance-1) > 1e-3 {
		t.Fatalf("expected unit variance, got %v", variance)
	}
}

func TestZScoreNormalizeMovingSpliceInvariance(t *testing.T) {
	full := []float32{1, 2, 3, 4, 5, 6, 7}

	kWhole, _ := NewZScoreNormalize(map[string]any{"mode": "moving", "windowSize": 3})
	viewsWhole := newViews(t, [][]float32{append([]float32(nil), full...)})
	kWhole.Process(viewsWhole)

	kSplit, _ := NewZScoreNormalize(map[string]any{"mode": "moving", "windowSize": 3})
	part1 := newViews(t, [][]float32{append([]float32(nil), full[:4]...)})
	kSplit.Process(part1)
	part2 := newViews(t, [][]float32{append([]float32(nil), full[4:]...)})
	kSplit.Process(part2)

	for i := 0; i < 4; i++ {
		if got, want := part1[0].At(i), viewsWhole[0].At(i); math.Abs(float64(got-want)) > 1e-5 {
			t.Fatalf("sample %d: got %v want %v", i, got, want)
		}
	}

	for i := 0; i < 3; i++ {
		if got, want := part2[0].At(i), viewsWhole[0].At(i+4); math.Abs(float64(got-want)) > 1e-5 {
			t.Fatalf("sample %d: got %v want %v", i, got, want)
		}
	}
}

func TestZScoreNormalizeLoadStateRejectsCorruptRunningSum(t *testing.T) {
	k, _ := NewZScoreNormalize(map[string]any{"mode": "moving", "windowSize": 3})

	bad := ZScoreState{
		Mode:        "moving",
		WindowSize:  3,
		NumChannels: 1,
		Channels: []ZScoreChannelState{
			{Buffer: []float64{1, 2, 3}, RunningSum: 999, RunningSumOfSquares: 14},
		},
	}

	err := k.LoadState(bad)
	if err == nil {
		t.Fatal("expected error for corrupt running sum")
	}

	if !errors.Is(err, ErrRunningSumInvalid) {
		t.Fatalf("expected ErrRunningSumInvalid, got %v", err)
	}
}
