package input

import "codeberg.org/mutker/envirotel/internal/errors"

const (
	ErrInvalidConfirmations = errors.ErrorCode("input_invalid_confirmations")
	ErrResampleFailed       = errors.ErrorCode("input_resample_failed")
	ErrSpuriousRead         = errors.ErrorCode("input_spurious_read")
)
