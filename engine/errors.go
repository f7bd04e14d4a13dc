package engine

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
	"github.com/skdltmxn/pdbtypes/pdb"
)

// ErrorKind classifies the failures reported in Error events.
type ErrorKind uint8

const (
	KindIO ErrorKind = iota + 1
	KindFormat
	KindInvalidQuery
	KindNotFound
	KindAmbiguousName
	KindStaleSession
	KindSend
	KindNoSession
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "IoError"
	case KindFormat:
		return "FormatError"
	case KindInvalidQuery:
		return "InvalidQueryError"
	case KindNotFound:
		return "NotFoundError"
	case KindAmbiguousName:
		return "AmbiguousNameError"
	case KindStaleSession:
		return "StaleSessionError"
	case KindSend:
		return "SendError"
	case KindNoSession:
		return "NoSessionError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Sentinels matching each ErrorKind, for use with errors.Is.
var (
	ErrIO            = errors.New("engine: i/o error")
	ErrFormat        = errors.New("engine: unsupported or invalid PDB")
	ErrInvalidQuery  = errors.New("engine: invalid query")
	ErrNotFound      = errors.New("engine: type not found")
	ErrAmbiguousName = errors.New("engine: ambiguous type name")
	ErrStaleSession  = errors.New("engine: stale session")
	ErrSend          = errors.New("engine: event delivery failed")
	ErrNoSession     = errors.New("engine: no PDB loaded")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("engine: closed")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindIO:
		return ErrIO
	case KindFormat:
		return ErrFormat
	case KindInvalidQuery:
		return ErrInvalidQuery
	case KindNotFound:
		return ErrNotFound
	case KindAmbiguousName:
		return ErrAmbiguousName
	case KindStaleSession:
		return ErrStaleSession
	case KindSend:
		return ErrSend
	case KindNoSession:
		return ErrNoSession
	}
	return nil
}

// Error is a classified command failure.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// classify maps a failure from the lower layers onto the error taxonomy.
// fallback is used for errors none of the layers claim.
func classify(err error, fallback ErrorKind) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	kind := fallback
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, catalog.ErrInvalidQuery):
		kind = KindInvalidQuery
	case errors.Is(err, catalog.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, catalog.ErrAmbiguousName):
		kind = KindAmbiguousName
	case pdb.IsFormatError(err), errors.Is(err, catalog.ErrMalformed):
		kind = KindFormat
	case errors.As(err, &pathErr),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission):
		kind = KindIO
	}
	return &Error{Kind: kind, Detail: err.Error(), Err: err}
}
