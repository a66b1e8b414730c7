package devtools

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every failure returned by this package matches one of
// these through errors.Is.
var (
	ErrEndpointUnreachable   = errors.New("debug endpoint unreachable")
	ErrNoTargetsAvailable    = errors.New("no debuggable targets available")
	ErrTargetIndexOutOfRange = errors.New("target index out of range")
	ErrChannel               = errors.New("channel error")
	ErrNotConnected          = errors.New("not connected to a browser")
	ErrCommand               = errors.New("command failed")
	ErrDecode                = errors.New("malformed frame")
	ErrCommandTimeout        = errors.New("command timed out")
	ErrConnectInProgress     = errors.New("connection attempt already in progress")
	ErrUnsupportedDialect    = errors.New("operation not supported by dialect")
)

// TargetIndexError reports a target selection past the end of the list.
type TargetIndexError struct {
	Index int
	Count int
}

func (e *TargetIndexError) Error() string {
	return fmt.Sprintf("target index %d out of range: %d target(s) available", e.Index, e.Count)
}

func (e *TargetIndexError) Unwrap() error { return ErrTargetIndexOutOfRange }

// CommandError is an error reported by the browser for one command.
type CommandError struct {
	Method  string
	Code    int
	Message string
}

func (e *CommandError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d)", e.Method, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

func (e *CommandError) Unwrap() error { return ErrCommand }

// DecodeError describes an inbound frame that could not be decoded.
// It is logged and never returned to callers.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	snippet := string(e.Frame)
	if len(snippet) > 120 {
		snippet = snippet[:120] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed frame %q: %v", snippet, e.Err)
	}
	return fmt.Sprintf("malformed frame %q", snippet)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }
