package pdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/skdltmxn/pdbtypes/internal/dbi"
	"github.com/skdltmxn/pdbtypes/internal/tpi"
	"github.com/skdltmxn/pdbtypes/msf"
)

// PDB info stream versions
const (
	PDBVersionVC70  uint32 = 20000404
	PDBVersionVC80  uint32 = 20030901
	PDBVersionVC110 uint32 = 20091201
	PDBVersionVC140 uint32 = 20140508
)

// File represents an opened PDB file.
// It is safe for concurrent read access after opening.
type File struct {
	msf    *msf.File
	closed bool
	mu     sync.RWMutex

	// Lazy-loaded streams
	pdbInfo     *PDBInfo
	pdbInfoOnce sync.Once
	pdbInfoErr  error

	tpiStream     *tpi.Stream
	tpiStreamOnce sync.Once
	tpiStreamErr  error

	dbiHeader     *dbi.Header
	dbiHeaderOnce sync.Once
	dbiHeaderErr  error

	typeTable     *TypeTable
	typeTableOnce sync.Once
	typeTableErr  error
}

// PDBInfo contains metadata about the PDB file.
type PDBInfo struct {
	Version   uint32
	Signature uint32
	Age       uint32
	GUID      [16]byte
}

// GUIDString formats the GUID in registry form.
func (i *PDBInfo) GUIDString() string {
	g := i.GUID
	return fmt.Sprintf("%08X-%04X-%04X-%X-%X",
		binary.LittleEndian.Uint32(g[0:4]),
		binary.LittleEndian.Uint16(g[4:6]),
		binary.LittleEndian.Uint16(g[6:8]),
		g[8:10], g[10:16])
}

// Open opens a PDB file from the given path.
func Open(path string) (*File, error) {
	msfFile, err := msf.Open(path)
	if err != nil {
		return nil, classifyOpenError(err)
	}

	return &File{msf: msfFile}, nil
}

// OpenReader opens a PDB from an io.ReaderAt.
// This allows reading from arbitrary sources (embedded, network, etc.)
func OpenReader(r io.ReaderAt, size int64) (*File, error) {
	msfFile, err := msf.NewFile(r, size)
	if err != nil {
		return nil, classifyOpenError(err)
	}

	return &File{msf: msfFile}, nil
}

// classifyOpenError tags container failures with the package sentinels
// while keeping the underlying error reachable.
func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, msf.ErrUnsupportedVersion):
		return fmt.Errorf("%w: %w", ErrUnsupportedVersion, err)
	case errors.Is(err, msf.ErrInvalidMagic),
		errors.Is(err, msf.ErrInvalidBlockSize),
		errors.Is(err, msf.ErrInvalidFPMBlock),
		errors.Is(err, msf.ErrTruncatedFile),
		errors.Is(err, msf.ErrTruncatedDirectory),
		errors.Is(err, msf.ErrInvalidBlockIndex):
		return fmt.Errorf("%w: %w", ErrNotPDB, err)
	default:
		return fmt.Errorf("pdb: failed to open file: %w", err)
	}
}

// Close releases resources associated with the PDB file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true
	return f.msf.Close()
}

// Info returns metadata about the PDB file.
func (f *File) Info() (*PDBInfo, error) {
	f.pdbInfoOnce.Do(func() {
		f.pdbInfo, f.pdbInfoErr = f.loadPDBInfo()
	})

	if f.pdbInfoErr != nil {
		return nil, f.pdbInfoErr
	}
	return f.pdbInfo, nil
}

func (f *File) loadPDBInfo() (*PDBInfo, error) {
	data, err := f.readStream(msf.StreamPDBInfo, "PDB info")
	if err != nil {
		return nil, err
	}

	if len(data) < 28 {
		return nil, &ParseError{Stream: "PDB info", Message: "stream too short"}
	}

	info := &PDBInfo{
		Version:   binary.LittleEndian.Uint32(data[0:]),
		Signature: binary.LittleEndian.Uint32(data[4:]),
		Age:       binary.LittleEndian.Uint32(data[8:]),
	}
	copy(info.GUID[:], data[12:28])

	if info.Version < PDBVersionVC70 {
		return nil, fmt.Errorf("%w: info stream version %d", ErrUnsupportedVersion, info.Version)
	}
	return info, nil
}

// Machine returns the machine type recorded in the DBI header, or
// dbi.MachineUnknown when the file has no DBI stream.
func (f *File) Machine() (uint16, error) {
	f.dbiHeaderOnce.Do(func() {
		if !f.msf.StreamExists(msf.StreamDBI) {
			return
		}
		data, err := f.readStream(msf.StreamDBI, "DBI")
		if err != nil {
			f.dbiHeaderErr = err
			return
		}
		f.dbiHeader, f.dbiHeaderErr = dbi.ParseHeader(data)
	})

	if f.dbiHeaderErr != nil {
		return dbi.MachineUnknown, f.dbiHeaderErr
	}
	if f.dbiHeader == nil {
		return dbi.MachineUnknown, nil
	}
	return f.dbiHeader.Machine, nil
}

// Architecture returns a short name for the image machine type, such as
// "X64". Files without a readable DBI header report "Unknown".
func (f *File) Architecture() string {
	m, err := f.Machine()
	if err != nil {
		return dbi.MachineName(dbi.MachineUnknown)
	}
	return dbi.MachineName(m)
}

// Types returns a type table for querying type information.
func (f *File) Types() (*TypeTable, error) {
	f.typeTableOnce.Do(func() {
		f.typeTable, f.typeTableErr = f.loadTypeTable()
	})

	if f.typeTableErr != nil {
		return nil, f.typeTableErr
	}
	return f.typeTable, nil
}

func (f *File) loadTypeTable() (*TypeTable, error) {
	tpiStream, err := f.getTPI()
	if err != nil {
		return nil, err
	}

	return newTypeTable(tpiStream), nil
}

// BlockSize returns the block size used by this PDB file.
func (f *File) BlockSize() uint32 {
	return f.msf.BlockSize()
}

// NumStreams returns the number of streams in the PDB.
func (f *File) NumStreams() uint32 {
	return f.msf.Directory().NumStreams()
}

func (f *File) getTPI() (*tpi.Stream, error) {
	f.tpiStreamOnce.Do(func() {
		data, err := f.readStream(msf.StreamTPI, "TPI")
		if err != nil {
			f.tpiStreamErr = err
			return
		}

		f.tpiStream, err = tpi.ParseStream(data)
		switch {
		case errors.Is(err, tpi.ErrUnsupportedVersion):
			f.tpiStreamErr = fmt.Errorf("%w: %w", ErrUnsupportedVersion, err)
		case err != nil:
			f.tpiStreamErr = &ParseError{Stream: "TPI", Message: "invalid stream", Err: err}
		}
	})

	if f.tpiStreamErr != nil {
		return nil, f.tpiStreamErr
	}
	return f.tpiStream, nil
}

func (f *File) readStream(index uint32, name string) ([]byte, error) {
	f.mu.RLock()
	closed := f.closed
	f.mu.RUnlock()
	if closed {
		return nil, ErrFileClosed
	}

	if !f.msf.StreamExists(index) {
		return nil, fmt.Errorf("%w: %s stream is missing", ErrInvalidStream, name)
	}
	data, err := f.msf.ReadStream(index)
	if err != nil {
		return nil, &ParseError{Stream: name, Message: "failed to read stream", Err: err}
	}
	return data, nil
}
