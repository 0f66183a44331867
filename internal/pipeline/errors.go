package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cubemix/internal/lut"
)

var (
	ErrSourceDecode    = errors.New("source decode failure")
	ErrSinkWrite       = errors.New("sink write failure")
	ErrCancelled       = errors.New("export cancelled")
	ErrUnsupported     = errors.New("unsupported frame")
	ErrDestinationBusy = errors.New("destination busy")
)

// Kind groups failures by who has to act on them.
type Kind string

const (
	KindInput     Kind = "input"
	KindOutput    Kind = "output"
	KindCancelled Kind = "cancelled"
	KindUnknown   Kind = "unknown"
)

// Error carries a marker plus operation context. ErrorKind lets callers
// classify without knowing every marker.
type Error struct {
	Marker    error
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// ErrorKind implements the classifier interface used by KindOf.
func (e *Error) ErrorKind() string {
	return string(markerKind(e.Marker))
}

// Wrap tags err with marker and operation context. A nil marker is treated
// as ErrSinkWrite, the conservative choice for an unexplained failure.
func Wrap(marker error, operation, message string, err error) error {
	if marker == nil {
		marker = ErrSinkWrite
	}
	return &Error{Marker: marker, Operation: operation, Message: message, Err: err}
}

// ErrorClassifier lets errors declare their Kind.
type ErrorClassifier interface {
	ErrorKind() string
}

// KindOf classifies err. LUT parse errors count as input problems.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		if kind := Kind(classifier.ErrorKind()); kind != KindUnknown {
			return kind
		}
	}
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrSourceDecode), errors.Is(err, ErrUnsupported), errors.Is(err, lut.ErrParse):
		return KindInput
	case errors.Is(err, ErrSinkWrite), errors.Is(err, ErrDestinationBusy):
		return KindOutput
	default:
		return KindUnknown
	}
}

func markerKind(marker error) Kind {
	switch {
	case errors.Is(marker, ErrCancelled):
		return KindCancelled
	case errors.Is(marker, ErrSourceDecode), errors.Is(marker, ErrUnsupported):
		return KindInput
	case errors.Is(marker, ErrSinkWrite), errors.Is(marker, ErrDestinationBusy):
		return KindOutput
	default:
		return KindUnknown
	}
}

// FailureReason renders a one-line explanation telling the user whether the
// input or the output side is at fault.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindInput:
		return "bad input (LUT or video): " + err.Error()
	case KindOutput:
		return "output/storage failure: " + err.Error()
	case KindCancelled:
		return "cancelled"
	default:
		return "export failed: " + err.Error()
	}
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
