package telemetry

import "codeberg.org/mutker/envirotel/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig      = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidBaseURL     = errors.ErrorCode("telemetry_invalid_base_url")
	ErrMissingCredentials = errors.ErrorCode("telemetry_missing_credentials")

	// Submission Errors
	ErrTransportFailure = errors.ErrorCode("telemetry_transport_failure")
	ErrEncodeFailed     = errors.ErrorCode("telemetry_encode_failed")
	ErrInvalidValue     = errors.ErrorCode("telemetry_invalid_value")
)
