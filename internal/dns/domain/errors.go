package domain

import (
	"errors"
	"fmt"
)

// Decode error sentinels. A DecodeError always wraps exactly one of these,
// so callers can test the kind with errors.Is(err, domain.ErrTruncated)
// without a type switch.
var (
	ErrTruncated    = errors.New("truncated message")
	ErrBadLabel     = errors.New("bad label length byte")
	ErrBadPointer   = errors.New("bad compression pointer")
	ErrLoopDetected = errors.New("compression pointer loop")
	ErrLimitExceeded = errors.New("name or recursion limit exceeded")
)

// DecodeError reports a failure to parse a DNS wire message, with the
// byte offset at which decoding gave up.
type DecodeError struct {
	Kind   error // one of the Err* sentinels above
	Offset int
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("decode: %v at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("decode: %v at offset %d: %s", e.Kind, e.Offset, e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Kind }

func newDecodeError(kind error, offset int, detail string) *DecodeError {
	return &DecodeError{Kind: kind, Offset: offset, Detail: detail}
}

// NewTruncatedError reports a message that ended before a required field
// or label could be read in full.
func NewTruncatedError(offset int, detail string) error {
	return newDecodeError(ErrTruncated, offset, detail)
}

// NewBadLabelError reports a label length byte whose top two bits are
// the reserved 01/10 combinations.
func NewBadLabelError(offset int, detail string) error {
	return newDecodeError(ErrBadLabel, offset, detail)
}

// NewBadPointerError reports a compression pointer that does not point
// strictly backwards.
func NewBadPointerError(offset int, detail string) error {
	return newDecodeError(ErrBadPointer, offset, detail)
}

// NewLoopDetectedError reports a pointer chain exceeding the recursion
// depth limit.
func NewLoopDetectedError(offset int, detail string) error {
	return newDecodeError(ErrLoopDetected, offset, detail)
}

// NewLimitExceededError reports a name whose total label length exceeds
// the 255-byte wire limit.
func NewLimitExceededError(offset int, detail string) error {
	return newDecodeError(ErrLimitExceeded, offset, detail)
}

// Transport error sentinels, mirroring the DecodeError kind/sentinel shape.
var (
	ErrTimeout = errors.New("upstream transaction timed out")
	ErrNetwork = errors.New("upstream transport network failure")
)

// TransportError reports a failed outbound transaction to an upstream
// resolver, whether over UDP or DoH.
type TransportError struct {
	Kind       error // ErrTimeout, ErrNetwork, or nil when StatusCode is set
	StatusCode int   // non-zero for an HTTP status failure in DoH mode
	Detail     string
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: http status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("transport: %v: %s", e.Kind, e.Detail)
}

func (e *TransportError) Unwrap() error { return e.Kind }

// NewTimeoutError reports an attempt that exceeded its per-attempt deadline.
func NewTimeoutError(detail string) error {
	return &TransportError{Kind: ErrTimeout, Detail: detail}
}

// NewNetworkError reports a connection-level failure (dial, write, read).
func NewNetworkError(detail string) error {
	return &TransportError{Kind: ErrNetwork, Detail: detail}
}

// NewHTTPStatusError reports a non-200 HTTP response from a DoH upstream.
func NewHTTPStatusError(status int, detail string) error {
	return &TransportError{StatusCode: status, Detail: detail}
}

// IsRetryableHTTPStatus reports whether a DoH HTTP status should be retried
// (5xx and 429) rather than dropped immediately (any other 4xx).
func IsRetryableHTTPStatus(status int) bool {
	if status == 429 {
		return true
	}
	return status >= 500 && status <= 599
}
