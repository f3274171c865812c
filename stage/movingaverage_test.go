package stage

import (
	"errors"
	"math"
	"testing"
)

func TestMovingAverageBasic(t *testing.T) {
	k, err := NewMovingAverage(map[string]any{"windowSize": 3})
	if err != nil {
		t.Fatalf("NewMovingAverage: %v", err)
	}

	views := newViews(t, [][]float32{{3, 6, 9, 12}})
	k.Process(views)

	want := []float64{3, 4.5, 6, 9}
	for i, w := range want {
		if got := float64(views[0].At(i)); math.Abs(got-w) > 1e-6 {
			t.Fatalf("sample %d: got %v want %v", i, got, w)
		}
	}
}

func TestMovingAverageSpliceInvariance(t *testing.T) {
	full := []float32{1, 2, 3, 4, 5, 6, 7}

	kWhole, _ := NewMovingAverage(map[string]any{"windowSize": 4})
	viewsWhole := newViews(t, [][]float32{append([]float32(nil), full...)})
	kWhole.Process(viewsWhole)

	kSplit, _ := NewMovingAverage(map[string]any{"windowSize": 4})
	part1 := newViews(t, [][]float32{append([]float32(nil), full[:3]...)})
	kSplit.Process(part1)
	part2 := newViews(t, [][]float32{append([]float32(nil), full[3:]...)})
	kSplit.Process(part2)

	for i := 0; i < 3; i++ {
		if got, want := part1[0].At(i), viewsWhole[0].At(i); math.Abs(float64(got-want)) > 1e-6 {
			t.Fatalf("sample %d: got %v want %v", i, got, want)
		}
	}

	for i := 0; i < 4; i++ {
		if got, want := part2[0].At(i), viewsWhole[0].At(i+3); math.Abs(float64(got-want)) > 1e-6 {
			t.Fatalf("sample %d: got %v want %v", i, got, want)
		}
	}
}

func TestMovingAverageLoadStateRejectsCorruptRunningSum(t *testing.T) {
	k, _ := NewMovingAverage(map[string]any{"windowSize": 3})

	bad := MovingAverageState{
		WindowSize:  3,
		NumChannels: 1,
		Channels: []MovingAverageChannelState{
			{Buffer: []float64{1, 2, 3}, RunningSum: 999},
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
