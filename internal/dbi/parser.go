// Package dbi parses the header of the DBI (Debug Information) stream.
// Only the fixed header is decoded; it carries the target machine of the
// image the PDB describes.
package dbi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// DBI stream version constants
const (
	DBIVersionV41  uint32 = 930803
	DBIVersionV50  uint32 = 19960307
	DBIVersionV60  uint32 = 19970606
	DBIVersionV70  uint32 = 19990903
	DBIVersionV110 uint32 = 20091201
)

// DBIHeaderSize is the size of the fixed DBI header.
const DBIHeaderSize = 64

// Machine types
const (
	MachineUnknown uint16 = 0x0000
	MachineI386    uint16 = 0x014c
	MachineAMD64   uint16 = 0x8664
	MachineARM     uint16 = 0x01c0
	MachineARM64   uint16 = 0xaa64
	MachineARMNT   uint16 = 0x01c4
	MachineIA64    uint16 = 0x0200
)

var (
	ErrInvalidDBIHeader = errors.New("dbi: invalid DBI header")
	ErrTruncatedStream  = errors.New("dbi: truncated stream")
)

// Header represents the DBI stream header.
type Header struct {
	// VersionSignature is always -1
	VersionSignature int32

	// VersionHeader is typically V70 (19990903) or V110 (20091201)
	VersionHeader uint32

	// Age matches the PDB info stream Age field
	Age uint32

	GlobalStreamIndex uint16

	// BuildNumber encodes toolchain version
	// Bits 0-7: minor version, Bits 8-14: major version, Bit 15: new version flag
	BuildNumber uint16

	PublicStreamIndex    uint16
	PDBDllVersion        uint16
	SymRecordStreamIndex uint16
	PDBDllRbld           uint16

	// Substream sizes in bytes
	ModInfoSize             uint32
	SectionContributionSize uint32
	SectionMapSize          uint32
	SourceInfoSize          uint32
	TypeServerMapSize       uint32
	MFCTypeServerIndex      uint32
	OptionalDbgHeaderSize   uint32
	ECSubstreamSize         uint32

	Flags uint16

	// Machine type (e.g., 0x8664 for x86-64)
	Machine uint16

	Padding uint32
}

// ParseHeader decodes the fixed header at the start of a DBI stream.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < DBIHeaderSize {
		return nil, ErrTruncatedStream
	}

	var h Header
	if err := binary.Read(bytes.NewReader(data[:DBIHeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("dbi: failed to read header: %w", err)
	}
	if h.VersionSignature != -1 {
		return nil, fmt.Errorf("%w: signature %d", ErrInvalidDBIHeader, h.VersionSignature)
	}
	return &h, nil
}

// BuildMajorVersion returns the major version from BuildNumber.
func (h *Header) BuildMajorVersion() uint16 {
	return (h.BuildNumber >> 8) & 0x7F
}

// BuildMinorVersion returns the minor version from BuildNumber.
func (h *Header) BuildMinorVersion() uint16 {
	return h.BuildNumber & 0xFF
}

// MachineName returns a short architecture name for a machine type.
func MachineName(machine uint16) string {
	switch machine {
	case MachineI386:
		return "X86"
	case MachineAMD64:
		return "X64"
	case MachineARM, MachineARMNT:
		return "ARM"
	case MachineARM64:
		return "ARM64"
	case MachineIA64:
		return "IA64"
	default:
		return "Unknown"
	}
}
