// Package errors gives every failure in the agent a stable code. Codes are
// logged as error_code and compared with HasCode or errors.Is; the message
// and attached data are for humans only.
package errors

// ErrorCode is a stable, snake_case failure identifier.
type ErrorCode string

// Coder is anything that reports an ErrorCode. CodeOf and HasCode look for
// it anywhere in a chain, so types outside this package can take part.
type Coder interface {
	Code() ErrorCode
}

// Error is a coded error built by a Factory. WithMessage and WithData return
// a modified copy.
type Error interface {
	error
	Coder
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory builds coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
