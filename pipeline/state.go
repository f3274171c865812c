package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot is the JSON-codable state of an entire Pipeline, mirroring how
// dsp/effectchain/graph.go encodes its own node graph as a plain JSON
// document rather than a binary blob.
type Snapshot struct {
	Version int             `json:"version"`
	Stages  []StageSnapshot `json:"stages"`
}

// StageSnapshot is one stage's type, construction params, and internal
// state within a Snapshot. Params is carried alongside State so LoadState
// can structurally verify a snapshot was taken from an equivalently
// configured pipeline before trusting its State payload.
type StageSnapshot struct {
	Type   string          `json:"type"`
	Params map[string]any  `json:"params"`
	State  json.RawMessage `json:"state"`
}

const snapshotVersion = 1

// SaveState serializes every stage's type, params, and internal state.
func (p *Pipeline) SaveState(ctx context.Context) (Snapshot, error) {
	if p.disposed {
		return Snapshot{}, ErrInvalidState
	}

	snap := Snapshot{Version: snapshotVersion, Stages: make([]StageSnapshot, 0, len(p.stages))}

	for _, inst := range p.stages {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		raw, err := inst.kernel.SaveState()
		if err != nil {
			return Snapshot{}, fmt.Errorf("save state for %q: %w", inst.tag, err)
		}

		encoded, err := json.Marshal(raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("encode state for %q: %w", inst.tag, err)
		}

		snap.Stages = append(snap.Stages, StageSnapshot{
			Type:   inst.kernel.Type(),
			Params: inst.kernel.Params(),
			State:  encoded,
		})
	}

	return snap, nil
}

// loadStateOnce performs one, non-retried attempt at structural matching
// plus per-stage LoadState. It never falls back; resilience.go's
// LoadState wraps this with retry and cold-start fallback.
func (p *Pipeline) loadStateOnce(ctx context.Context, snap Snapshot) error {
	if len(snap.Stages) != len(p.stages) {
		return fmt.Errorf("%w: snapshot has %d stages, pipeline has %d", ErrStateMismatch, len(snap.Stages), len(p.stages))
	}

	for i, inst := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		s := snap.Stages[i]
		if s.Type != inst.kernel.Type() {
			return fmt.Errorf("%w: stage %d type %q, snapshot has %q", ErrStateMismatch, i, inst.kernel.Type(), s.Type)
		}

		if !paramsEqual(s.Params, inst.kernel.Params()) {
			return fmt.Errorf("%w: stage %d (%s) params differ from snapshot", ErrStateMismatch, i, inst.kernel.Type())
		}

		var raw any
		if len(s.State) > 0 && string(s.State) != "null" {
			if err := json.Unmarshal(s.State, &raw); err != nil {
				return fmt.Errorf("decode state for stage %d (%s): %w", i, inst.kernel.Type(), err)
			}
		}

		if err := inst.kernel.LoadState(raw); err != nil {
			return fmt.Errorf("%w: load state for stage %d (%s): %w", ErrStateInvariant, i, inst.kernel.Type(), err)
		}
	}

	return nil
}

// paramsEqual compares two params maps by value, not by Go type: a
// Snapshot that was round-tripped through JSON (the wire encoding) turns
// every int into a float64, so a direct reflect.DeepEqual against a
// freshly-constructed kernel's Params() would spuriously fail. Comparing
// each side's own canonical JSON encoding sidesteps that.
func paramsEqual(a, b map[string]any) bool {
	encA, errA := json.Marshal(a)
	encB, errB := json.Marshal(b)

	return errA == nil && errB == nil && string(encA) == string(encB)
}

// ClearState drops every stage's internal state without disposing the
// pipeline; construction params are kept but the channel-count lock is
// released, so a subsequent Process call may relock the pipeline to a
// different channel count.
func (p *Pipeline) ClearState() {
	for _, inst := range p.stages {
		inst.kernel.ClearState()
	}

	p.channels = 0
}
