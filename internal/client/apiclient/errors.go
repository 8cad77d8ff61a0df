package apiclient

import (
	"errors"
)

// Kind classifies a failed request and drives the response policy.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuthRequired: no, invalid or expired token. The caller should send
	// the user to the login flow; the client never retries.
	KindAuthRequired
	// KindNotFound: the endpoint or resource is absent. Masked by fallback
	// data when the endpoint has some.
	KindNotFound
	// KindNetwork: no response at all (DNS, refused connection, timeout).
	// Masked by fallback data when the endpoint has some.
	KindNetwork
	// KindServer: any other non-2xx answer.
	KindServer
	// KindValidation: rejected locally before any network call.
	KindValidation
)

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrNotFound     = errors.New("not found")
	ErrNetwork      = errors.New("backend unavailable")
	ErrServer       = errors.New("server error")
	ErrValidation   = errors.New("validation error")

	// ErrNoStoredSession is wrapped by Restore when durable storage is empty.
	ErrNoStoredSession = errors.New("no stored session")
)

func (k Kind) String() string {
	switch k {
	case KindAuthRequired:
		return "AuthRequired"
	case KindNotFound:
		return "NotFound"
	case KindNetwork:
		return "NetworkError"
	case KindServer:
		return "ServerError"
	case KindValidation:
		return "ValidationError"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuthRequired:
		return ErrAuthRequired
	case KindNotFound:
		return ErrNotFound
	case KindNetwork:
		return ErrNetwork
	case KindServer:
		return ErrServer
	case KindValidation:
		return ErrValidation
	default:
		return nil
	}
}

// outcome is the metrics label for a failure of this kind.
func (k Kind) outcome() string {
	switch k {
	case KindAuthRequired:
		return "auth_required"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network_error"
	case KindServer:
		return "server_error"
	case KindValidation:
		return "validation_error"
	default:
		return "unknown"
	}
}

// Error is a classified request failure. Message is always a non-empty,
// human-readable text suitable for a notification.
type Error struct {
	Kind     Kind
	Status   int
	Method   string
	Endpoint string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if s := e.Kind.sentinel(); s != nil {
		return s.Error()
	}
	return "request failed"
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) and friends match on the kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}
