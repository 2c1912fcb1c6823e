package render

import "codeberg.org/mutker/envirotel/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("render_invalid_config")
	ErrPresentFailed = errors.ErrorCode("render_present_failed")
)
