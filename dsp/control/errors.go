package control

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
)

// Sentinel errors. Callers match with errors.Is.
var (
	ErrInvalidParameter     = errors.New("control: invalid parameter")
	ErrSampleRateOutOfRange = core.ErrSampleRateOutOfRange
	ErrBufferSizeOutOfRange = core.ErrBlockSizeOutOfRange
	ErrAlreadyRunning       = errors.New("control: already running")
	ErrNotRunning           = errors.New("control: not running")

	// ErrLockAcquisition reports that a previous operation panicked while
	// holding the engine lock. The engine may be inconsistent and the
	// gateway refuses further work; treat it as fatal.
	ErrLockAcquisition = errors.New("control: engine lock unavailable")
)

// InvalidParameterError describes a rejected parameter name or an out of
// range configuration value.
type InvalidParameterError struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%v: %s = %g (expected range: %g..=%g)", ErrInvalidParameter, e.Name, e.Value, e.Min, e.Max)
}

func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

func unknownParameter(name string, value float64) error {
	return &InvalidParameterError{Name: name, Value: value, Min: 0, Max: 1}
}

func checkRange(name string, value, lo, hi float64) error {
	if value >= lo && value <= hi {
		return nil
	}
	return &InvalidParameterError{Name: name, Value: value, Min: lo, Max: hi}
}
