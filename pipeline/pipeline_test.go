package pipeline

import (
	"context"
	"testing"
)

func mustBuild(t *testing.T) *Pipeline {
	t.Helper()

	p, err := New().Rectify(RectifyParams{Mode: "full"})
	if err != nil {
		t.Fatalf("Rectify: %v", err)
	}

	p, err = p.Integrator(IntegratorParams{Alpha: 0.8})
	if err != nil {
		t.Fatalf("Integrator: %v", err)
	}

	p, err = p.MovingAverage(MovingAverageParams{WindowSize: 4})
	if err != nil {
		t.Fatalf("MovingAverage: %v", err)
	}

	return p
}

func TestPipelineProcessRunsStagesInOrder(t *testing.T) {
	p := mustBuild(t)

	buf := []float32{1, -1, 2, -2, 3, -3, 4, -4}
	out, err := p.Process(context.Background(), buf, ProcessOptions{Channels: 2})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(out) != len(buf) {
		t.Fatalf("got length %d want %d", len(out), len(buf))
	}
}

func TestPipelineProcessRejectsMismatchedChannelCount(t *testing.T) {
	p := mustBuild(t)

	if _, err := p.Process(context.Background(), make([]float32, 8), ProcessOptions{Channels: 2}); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	if _, err := p.Process(context.Background(), make([]float32, 8), ProcessOptions{Channels: 4}); err == nil {
		t.Fatal("expected ErrChannelMismatch for a changed channel count")
	}
}

func TestPipelineProcessRejectsMisalignedBuffer(t *testing.T) {
	p := mustBuild(t)

	if _, err := p.Process(context.Background(), make([]float32, 7), ProcessOptions{Channels: 2}); err == nil {
		t.Fatal("expected ErrInvalidInput for a buffer length not a multiple of channels")
	}
}

func TestPipelineSpliceInvariance(t *testing.T) {
	full := mustBuild(t)
	split := mustBuild(t)

	input := []float32{1, 2, -3, 4, 5, -6, 7, 8, -9, 10, 11, -12}

	fullBuf := append([]float32(nil), input...)
	if _, err := full.Process(context.Background(), fullBuf, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("full Process: %v", err)
	}

	splitAt := 6 // aligned to 2 frames of 3 channels
	firstBuf := append([]float32(nil), input[:splitAt]...)
	secondBuf := append([]float32(nil), input[splitAt:]...)

	if _, err := split.Process(context.Background(), firstBuf, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("split Process (first): %v", err)
	}

	if _, err := split.Process(context.Background(), secondBuf, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("split Process (second): %v", err)
	}

	splitBuf := append(firstBuf, secondBuf...)

	for i := range fullBuf {
		if fullBuf[i] != splitBuf[i] {
			t.Fatalf("sample %d: full=%v split=%v", i, fullBuf[i], splitBuf[i])
		}
	}
}

func TestPipelineSaveLoadIdempotence(t *testing.T) {
	ctx := context.Background()

	p := mustBuild(t)
	if _, err := p.Process(ctx, []float32{1, 2, 3, 4, 5, 6}, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	snap, err := p.SaveState(ctx)
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	reloaded := mustBuild(t)
	if _, err := reloaded.Process(ctx, []float32{0, 0, 0}, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("warm-up Process: %v", err)
	}

	coldStart, err := reloaded.LoadState(ctx, snap)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	if coldStart {
		t.Fatal("expected a warm reload, got coldStart")
	}

	continueInput := []float32{7, 8, -9, 10, 11, -12}

	bufA := append([]float32(nil), continueInput...)
	if _, err := p.Process(ctx, bufA, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("continuation on original: %v", err)
	}

	bufB := append([]float32(nil), continueInput...)
	if _, err := reloaded.Process(ctx, bufB, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("continuation on reloaded: %v", err)
	}

	for i := range bufA {
		if bufA[i] != bufB[i] {
			t.Fatalf("sample %d: original=%v reloaded=%v", i, bufA[i], bufB[i])
		}
	}
}

func TestPipelineLoadStateRejectsStructuralMismatch(t *testing.T) {
	ctx := context.Background()

	p := mustBuild(t)
	snap, err := p.SaveState(ctx)
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	other, err := New().Rectify(RectifyParams{Mode: "half"})
	if err != nil {
		t.Fatalf("Rectify: %v", err)
	}

	other.fallbackOnLoadFailure = false

	if _, err := other.LoadState(ctx, snap); err == nil {
		t.Fatal("expected ErrStateMismatch for a structurally different pipeline")
	}
}

func TestPipelineLoadStateFallsBackToColdStart(t *testing.T) {
	ctx := context.Background()

	p := mustBuild(t)
	if _, err := p.Process(ctx, []float32{1, 2, 3}, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	snap, err := p.SaveState(ctx)
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	// Corrupt the moving-average stage's running sum so its own LoadState
	// invariant check rejects the snapshot.
	snap.Stages[2].State = []byte(`{"windowSize":4,"numChannels":3,"channels":[{"buffer":[1,2,3,4],"runningSum":999},{"buffer":[0,0,0,0],"runningSum":0},{"buffer":[0,0,0,0],"runningSum":0}]}`)

	other := mustBuild(t)
	other.fallbackOnLoadFailure = true

	coldStart, err := other.LoadState(ctx, snap)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	if !coldStart {
		t.Fatal("expected coldStart fallback after an invariant violation")
	}
}

func TestPipelineLoadStatePropagatesInvariantErrorWithoutFallback(t *testing.T) {
	ctx := context.Background()

	p := mustBuild(t)
	if _, err := p.Process(ctx, []float32{1, 2, 3}, ProcessOptions{Channels: 3}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	snap, err := p.SaveState(ctx)
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	snap.Stages[2].State = []byte(`{"windowSize":4,"numChannels":3,"channels":[{"buffer":[1,2,3,4],"runningSum":999},{"buffer":[0,0,0,0],"runningSum":0},{"buffer":[0,0,0,0],"runningSum":0}]}`)

	other := mustBuild(t)
	other.fallbackOnLoadFailure = false
	other.maxRetries = 0

	if _, err := other.LoadState(ctx, snap); err == nil {
		t.Fatal("expected the underlying running-sum invariant error to propagate")
	}
}

func TestPipelineDisposeRejectsFurtherUse(t *testing.T) {
	ctx := context.Background()

	p := mustBuild(t)
	p.Dispose()

	if _, err := p.Process(ctx, make([]float32, 3), ProcessOptions{Channels: 3}); err == nil {
		t.Fatal("expected ErrInvalidState after Dispose")
	}

	if _, err := p.Rectify(RectifyParams{Mode: "full"}); err == nil {
		t.Fatal("expected ErrInvalidState for a builder call after Dispose")
	}
}

func TestPipelineLmsFilterLocksTwoChannels(t *testing.T) {
	p, err := New().LmsFilter(LmsFilterParams{NumTaps: 4, LearningRate: 0.1, Lambda: 0, Epsilon: 1e-8})
	if err != nil {
		t.Fatalf("LmsFilter: %v", err)
	}

	if _, err := p.Process(context.Background(), make([]float32, 6), ProcessOptions{Channels: 3}); err == nil {
		t.Fatal("expected ErrInvalidInput for a 3-channel buffer against an LmsFilter stage")
	}
}
