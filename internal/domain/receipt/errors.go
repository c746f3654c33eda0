package receipt

import (
	"errors"
	"fmt"
)

// Kind classifies the failures the pipeline surfaces to callers.
// Field-level ambiguity is never an error and has no kind.
type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindIO                Kind = "io_error"
	KindParse             Kind = "parse_error"
	KindOCRFailure        Kind = "ocr_failure"
)

// Sentinels for errors.Is checks against an *Error of the matching kind.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrIO                = errors.New("io error")
	ErrParse             = errors.New("parse error")
	ErrOCRFailure        = errors.New("ocr failure")
)

// Error is a structural or OCR failure for a single upload.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "parse csv"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnsupportedFormat:
		return ErrUnsupportedFormat
	case KindIO:
		return ErrIO
	case KindParse:
		return ErrParse
	case KindOCRFailure:
		return ErrOCRFailure
	}
	return nil
}

// UnsupportedFormat builds a KindUnsupportedFormat error.
func UnsupportedFormat(op string, err error) error {
	return &Error{Kind: KindUnsupportedFormat, Op: op, Err: err}
}

// IOError builds a KindIO error.
func IOError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// ParseError builds a KindParse error.
func ParseError(op string, err error) error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// OCRFailure builds a KindOCRFailure error.
func OCRFailure(op string, err error) error {
	return &Error{Kind: KindOCRFailure, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
