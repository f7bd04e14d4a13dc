// Package pdb provides parsing and querying of the type information held in
// Microsoft PDB files.
package pdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNotPDB indicates the file is not a valid PDB.
	ErrNotPDB = errors.New("pdb: not a valid PDB file")

	// ErrUnsupportedVersion indicates an unsupported PDB version.
	ErrUnsupportedVersion = errors.New("pdb: unsupported PDB version")

	// ErrInvalidStream indicates a corrupted or invalid stream.
	ErrInvalidStream = errors.New("pdb: invalid stream")

	// ErrTypeNotFound indicates a type index was not found.
	ErrTypeNotFound = errors.New("pdb: type not found")

	// ErrFileClosed indicates the PDB file has been closed.
	ErrFileClosed = errors.New("pdb: file is closed")
)

// ParseError provides detailed information about parsing failures.
type ParseError struct {
	Stream  string // Stream name where error occurred
	Offset  int64  // Byte offset or record index within stream
	Message string // Description of the error
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdb: parse error in %s at offset 0x%x: %s: %v",
			e.Stream, e.Offset, e.Message, e.Err)
	}
	return fmt.Sprintf("pdb: parse error in %s at offset 0x%x: %s",
		e.Stream, e.Offset, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsFormatError reports whether err means the file content, rather than the
// file system, is at fault.
func IsFormatError(err error) bool {
	var pe *ParseError
	return errors.Is(err, ErrNotPDB) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrInvalidStream) ||
		errors.Is(err, ErrTypeNotFound) ||
		errors.As(err, &pe)
}
