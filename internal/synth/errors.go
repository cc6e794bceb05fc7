package synth

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidSamplingRate = errors.New("invalid sampling rate")
	ErrInvalidHeartRate    = errors.New("invalid heart rate")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrInvalidSCRNumber    = errors.New("invalid scr number")
	ErrInvalidNoise        = errors.New("invalid noise level")
	ErrInvalidDrift        = errors.New("invalid drift")
)

// ParamError reports a parameter the synthesis routines cannot work with.
type ParamError struct {
	Param   string
	Value   any
	Message string
	kind    error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("synth: %s=%v: %s", e.Param, e.Value, e.Message)
}

// Unwrap lets errors.Is match the sentinel for the failing parameter.
func (e *ParamError) Unwrap() error {
	return e.kind
}

func checkDuration(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return &ParamError{Param: "duration", Value: d, Message: "must be a finite, non-negative number of seconds", kind: ErrInvalidDuration}
	}
	return nil
}

func checkSamplingRate(rate int) error {
	if rate <= 0 {
		return &ParamError{Param: "sampling_rate", Value: rate, Message: "must be positive", kind: ErrInvalidSamplingRate}
	}
	return nil
}

func checkNoise(n float64) error {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return &ParamError{Param: "noise", Value: n, Message: "must be a finite, non-negative amplitude", kind: ErrInvalidNoise}
	}
	return nil
}
