package buildpipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad decodes the syntax tree of an input.
	StageLoad Stage = "load"
	// StageCompile runs the code generation driver.
	StageCompile Stage = "compile"
	// StageEmit writes the listing of a textual build.
	StageEmit Stage = "emit"
	// StageRun executes the entry point on the dynamic backend.
	StageRun Stage = "run"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for an input (or for the whole build when File is
// empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Build calls it from several
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// Backend selects the type-system implementation.
type Backend string

const (
	// BackendTextual writes an ILAsm listing.
	BackendTextual Backend = "textual"
	// BackendDynamic builds live types that can be executed.
	BackendDynamic Backend = "dynamic"
)

// ParseBackend accepts the manifest and flag spellings.
func ParseBackend(s string) (Backend, bool) {
	switch Backend(s) {
	case BackendTextual, BackendDynamic:
		return Backend(s), true
	}
	return "", false
}

// Timings holds stage durations of one input.
type Timings struct {
	stages map[Stage]time.Duration
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the total over the given stages, or over every recorded stage
// when none are named.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	if len(stages) == 0 {
		for _, d := range t.stages {
			total += d
		}
		return total
	}
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
