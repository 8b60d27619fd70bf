package scan

import "fmt"

// Stage names the pipeline stage a StageError originated in.
type Stage string

const (
	StageParse       Stage = "parse"
	StageIR          Stage = "ir"
	StageCFG         Stage = "cfg"
	StageSSA         Stage = "ssa"
	StageTaint       Stage = "taint"
	StageRanker      Stage = "ranker"
	StageBaseline    Stage = "baseline"
	StagePersistence Stage = "persistence"
)

// StageError records one stage's failure for a file, tagged fatal or not:
// a fatal error (parse, configuration) aborts every remaining stage for
// that file; a non-fatal error only disables the stages downstream of the
// missing artifact.
type StageError struct {
	Stage Stage
	File  string
	Err   error
	Fatal bool
}

func (e *StageError) Error() string {
	return fmt.Sprintf("scan: %s stage failed for %s: %v", e.Stage, e.File, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func newStageError(stage Stage, file string, err error, fatal bool) *StageError {
	return &StageError{Stage: stage, File: file, Err: err, Fatal: fatal}
}
