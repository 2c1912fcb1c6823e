package scheduler

import "codeberg.org/mutker/envirotel/internal/errors"

const (
	ErrInvalidInterval = errors.ErrorCode("scheduler_invalid_interval")
	ErrMissingDevice   = errors.ErrorCode("scheduler_missing_device")
	ErrTaskFailed      = errors.ErrorCode("scheduler_task_failed")
	ErrOutputFailed    = errors.ErrorCode("scheduler_output_failed")
)
