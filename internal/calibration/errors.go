package calibration

import "codeberg.org/mutker/envirotel/internal/errors"

const (
	ErrInvalidSample = errors.ErrorCode("calibration_invalid_sample")
	ErrUnknownSignal = errors.ErrorCode("calibration_unknown_signal")
)
