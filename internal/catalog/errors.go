package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates no record has the requested name or ID.
	ErrNotFound = errors.New("catalog: type not found")

	// ErrAmbiguousName indicates several different records share a name.
	ErrAmbiguousName = errors.New("catalog: ambiguous type name")

	// ErrInvalidQuery indicates a search pattern that does not compile.
	ErrInvalidQuery = errors.New("catalog: invalid query")

	// ErrMalformed indicates type records that contradict each other.
	ErrMalformed = errors.New("catalog: malformed type information")
)

// AmbiguousError lists the records sharing a name.
type AmbiguousError struct {
	Name string
	IDs  []ID
}

func (e *AmbiguousError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprintf("0x%x", uint32(id))
	}
	return fmt.Sprintf("catalog: %q names %d different types (%s)", e.Name, len(e.IDs), strings.Join(ids, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguousName }
