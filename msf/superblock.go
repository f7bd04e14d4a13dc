// Package msf reads the MSF (Multi-Stream File) container that wraps every
// stream of a Microsoft PDB file.
package msf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the signature of the PDB 7.0 ("BigMsf") container.
const Magic = "Microsoft C/C++ MSF 7.00\r\n\x1a\x44\x53\x00\x00\x00"

// legacyMagic prefixes the PDB 2.0 ("JG") container, which is recognised but
// not supported.
const legacyMagic = "Microsoft C/C++ program database 2.00\r\n"

// MagicSize is the size of the magic signature in bytes
const MagicSize = 32

// SuperBlockSize is the total size of the SuperBlock structure
const SuperBlockSize = 56

const (
	BlockSizeMin uint32 = 512
	BlockSizeMax uint32 = 65536
)

// Errors returned during SuperBlock parsing
var (
	ErrInvalidMagic       = errors.New("msf: invalid magic signature, not a valid PDB file")
	ErrUnsupportedVersion = errors.New("msf: unsupported container version")
	ErrInvalidBlockSize   = errors.New("msf: invalid block size")
	ErrInvalidFPMBlock    = errors.New("msf: invalid free block map block index")
	ErrTruncatedFile      = errors.New("msf: file is truncated")
)

// SuperBlock is located at file offset 0 and describes the block layout of
// the container and where its stream directory lives.
type SuperBlock struct {
	FileMagic [MagicSize]byte

	// BlockSize is a power of two between BlockSizeMin and BlockSizeMax.
	BlockSize uint32

	// FreeBlockMapBlock is the active free page map (1 or 2).
	FreeBlockMapBlock uint32

	NumBlocks         uint32
	NumDirectoryBytes uint32
	Unknown           uint32

	// BlockMapAddr is the block holding the indices of the directory blocks.
	BlockMapAddr uint32
}

// ReadSuperBlock reads and validates a SuperBlock from the start of a file.
func ReadSuperBlock(r io.Reader) (*SuperBlock, error) {
	var sb SuperBlock

	if err := binary.Read(r, binary.LittleEndian, &sb); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrTruncatedFile
		}
		return nil, fmt.Errorf("msf: failed to read superblock: %w", err)
	}

	if err := sb.Validate(); err != nil {
		return nil, err
	}
	return &sb, nil
}

// Validate checks the SuperBlock for internal consistency.
func (sb *SuperBlock) Validate() error {
	if string(sb.FileMagic[:]) != Magic {
		if bytes.HasPrefix(sb.FileMagic[:], []byte(legacyMagic[:MagicSize])) {
			return ErrUnsupportedVersion
		}
		return ErrInvalidMagic
	}

	if sb.BlockSize < BlockSizeMin || sb.BlockSize > BlockSizeMax || sb.BlockSize&(sb.BlockSize-1) != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, sb.BlockSize)
	}

	if sb.FreeBlockMapBlock != 1 && sb.FreeBlockMapBlock != 2 {
		return ErrInvalidFPMBlock
	}
	return nil
}

// NumDirectoryBlocks returns the number of blocks holding the stream directory.
func (sb *SuperBlock) NumDirectoryBlocks() uint32 {
	return blocksFor(sb.NumDirectoryBytes, sb.BlockSize)
}

// FileSize returns the expected file size based on NumBlocks and BlockSize.
func (sb *SuperBlock) FileSize() int64 {
	return int64(sb.NumBlocks) * int64(sb.BlockSize)
}

// BlockOffset returns the byte offset of the given block number.
func (sb *SuperBlock) BlockOffset(blockNum uint32) int64 {
	return int64(blockNum) * int64(sb.BlockSize)
}

func blocksFor(size, blockSize uint32) uint32 {
	return (size + blockSize - 1) / blockSize
}
