package web2pdf

import (
	"errors"
	"fmt"
)

// Kind classifies a render failure by who can fix it.
type Kind uint8

const (
	// KindUnknown is reported for errors that were not raised by the render
	// core, such as caller cancellation.
	KindUnknown Kind = iota
	// KindRequest marks failures caused by the request: an unresolvable
	// destination, an unknown operation, bad arguments, a failed navigation.
	KindRequest
	// KindEngineCrash marks failures of the browser or its environment.
	KindEngineCrash
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request error"
	case KindEngineCrash:
		return "engine crash"
	default:
		return "unknown error"
	}
}

// Sentinel causes. Every *Error wraps exactly one of these.
var (
	ErrNoDestination    = errors.New("no destination resolvable")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidArguments = errors.New("invalid operation arguments")
	ErrNavigation       = errors.New("navigation failed")
	ErrOperationFailed  = errors.New("operation failed")

	ErrScratchDir    = errors.New("failed to prepare scratch directory")
	ErrLaunchTimeout = errors.New("browser launch timed out")
	ErrBrowserLaunch = errors.New("failed to launch browser")
	ErrPageCreate    = errors.New("failed to create browser page")
	ErrPageCrashed   = errors.New("page crashed")
	ErrPDFGeneration = errors.New("PDF generation failed")
	ErrInternal      = errors.New("internal error")
)

// Error is the single error type returned by the render core.
// Op names the operation that failed, when there is one.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the failure text without the kind prefix,
// suitable for API payloads.
func (e *Error) Message() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

func newRequestError(op string, err error) *Error {
	return &Error{Kind: KindRequest, Op: op, Err: err}
}

func newEngineCrash(op string, err error) *Error {
	return &Error{Kind: KindEngineCrash, Op: op, Err: err}
}

// KindOf reports the kind of err, or KindUnknown if err was not
// raised by the render core.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRequestError reports whether err was caused by the request.
func IsRequestError(err error) bool {
	return KindOf(err) == KindRequest
}

// IsEngineCrash reports whether err was caused by the browser or its host.
func IsEngineCrash(err error) bool {
	return KindOf(err) == KindEngineCrash
}
