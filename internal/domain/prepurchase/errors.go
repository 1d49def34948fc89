package prepurchase

import "errors"

// Domain errors
var (
	// ErrUnknownStream is returned when a message names a stream no sink is registered for
	ErrUnknownStream = errors.New("prepurchase: unknown stream")

	// ErrMalformedRecord is returned when a message carries no usable record body
	ErrMalformedRecord = errors.New("prepurchase: malformed record")

	// ErrCredentialsUnavailable is returned when request headers cannot be produced.
	// It is fatal to the run: no submission can succeed without credentials.
	ErrCredentialsUnavailable = errors.New("prepurchase: credentials unavailable")

	// ErrSubmissionFailed is returned when the remote API rejects an import or cannot be reached
	ErrSubmissionFailed = errors.New("prepurchase: submission failed")

	// ErrInvalidResponse is returned when a successful response body cannot be decoded
	ErrInvalidResponse = errors.New("prepurchase: invalid response")
)
