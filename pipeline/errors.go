package pipeline

import (
	"errors"

	"github.com/cwbudde/algo-pipeline/stage"
)

// ErrInvalidParam is stage.ErrInvalidParam re-exported at package level so
// callers only need to import pipeline to do errors.Is checks against
// builder-time validation failures.
var ErrInvalidParam = stage.ErrInvalidParam

// ErrUnknownStage indicates a registry lookup for an unregistered tag.
var ErrUnknownStage = errors.New("unknown stage type")

// ErrInvalidInput indicates a malformed Process call: a buffer whose
// length isn't a multiple of the channel count, or a non-positive
// channel count.
var ErrInvalidInput = errors.New("invalid input")

// ErrChannelMismatch indicates a Process call supplied a channel count
// different from the one a stage locked to on its first call.
var ErrChannelMismatch = errors.New("channel count mismatch")

// ErrStateMismatch indicates a snapshot's stage list doesn't structurally
// match (by type and params) the pipeline it's being loaded into.
var ErrStateMismatch = errors.New("state mismatch")

// ErrStateInvariant indicates a snapshot's per-stage state failed a
// kernel's own internal consistency check.
var ErrStateInvariant = errors.New("state invariant violation")

// ErrInvalidState indicates an operation was attempted on a disposed
// pipeline.
var ErrInvalidState = errors.New("invalid pipeline state")

// ErrTransient wraps an underlying error to mark it as worth retrying;
// resilience.go's retry loop only re-attempts errors matching this.
var ErrTransient = errors.New("transient failure")
