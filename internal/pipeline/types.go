package pipeline

import (
	"time"

	"ember/internal/diag"
	"ember/internal/ir"
	"ember/internal/observ"
	"ember/internal/source"
)

// Stage names one step of a unit's compilation.
type Stage string

const (
	StageDecode   Stage = "decode"
	StageTypes    Stage = "types"
	StageIRGen    Stage = "irgen"
	StageLower    Stage = "lower"
	StageOptimize Stage = "optimize"
	StageValidate Stage = "validate"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the unit is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the unit is currently in Stage.
	StatusWorking Status = "working"
	// StatusDone indicates the unit finished.
	StatusDone Status = "done"
	// StatusError indicates the unit was aborted in Stage.
	StatusError Status = "error"
)

// Event reports progress for one unit.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. CompileBatch calls OnEvent from
// several goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Unit is one compilation unit: an ESTree JSON document, optionally with
// the script text its positions refer to.
type Unit struct {
	Path   string
	Data   []byte
	Script []byte
}

// Result holds everything one unit produced. Module is nil when the unit
// was aborted.
type Result struct {
	Path   string
	Module *ir.Module
	Files  *source.FileSet
	File   source.FileID
	Bag    *diag.Bag
	Timing *observ.Timer
	// Discarded is set when the optimized IR failed validation and the
	// pre-optimization IR was kept instead.
	Discarded bool
}
