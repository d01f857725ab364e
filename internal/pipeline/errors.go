package pipeline

import (
	"errors"
	"fmt"

	"horse.fit/jobdedup/internal/pairing"
)

// Upstream step names, as the user runs them.
const (
	StepImport        = "import"
	StepIDHandling    = "id_handling"
	StepModeling      = "modeling"
	StepPreprocessing = "preprocessing"
	StepPairing       = "pairing"
	StepCalculation   = "calculation"
	StepMostSim       = "mostsim"
)

// ErrEmptyRecordSet is fatal: a record set the step depends on is empty.
var ErrEmptyRecordSet = pairing.ErrEmptyRecordSet

// MissingUpstreamError reports data or artifacts that an earlier step should
// have produced.
type MissingUpstreamError struct {
	Step   string
	Detail string
	Err    error
}

func (e *MissingUpstreamError) Error() string {
	return fmt.Sprintf("%s: repeat %s step", e.Detail, e.Step)
}

func (e *MissingUpstreamError) Unwrap() error { return e.Err }

func missingUpstream(step string, err error, format string, args ...any) error {
	return &MissingUpstreamError{Step: step, Detail: fmt.Sprintf(format, args...), Err: err}
}

// AsMissingUpstream unwraps a MissingUpstreamError from err.
func AsMissingUpstream(err error) (*MissingUpstreamError, bool) {
	var missing *MissingUpstreamError
	if errors.As(err, &missing) {
		return missing, true
	}
	return nil, false
}
