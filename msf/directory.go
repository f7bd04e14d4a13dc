package msf

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// NilStreamSize marks a deleted stream in the directory.
const NilStreamSize = 0xFFFFFFFF

// Well-known stream indices
const (
	StreamOldDirectory = 0
	StreamPDBInfo      = 1
	StreamTPI          = 2
	StreamDBI          = 3
	StreamIPI          = 4
)

// Directory parsing errors
var (
	ErrTruncatedDirectory = errors.New("msf: truncated stream directory")
	ErrInvalidStreamIndex = errors.New("msf: invalid stream index")
	ErrInvalidBlockIndex  = errors.New("msf: invalid block index")
)

// StreamDirectory lists every stream of the container as a size and the
// ordered blocks holding its bytes.
type StreamDirectory struct {
	StreamSizes  []uint32
	StreamBlocks [][]uint32
}

// NumStreams returns the number of directory entries, nil streams included.
func (d *StreamDirectory) NumStreams() uint32 {
	return uint32(len(d.StreamSizes))
}

// ParseDirectory decodes the concatenated directory blocks. Every block index
// is checked against numBlocks so that later stream reads cannot run past the
// end of the file.
func ParseDirectory(data []byte, blockSize, numBlocks uint32) (*StreamDirectory, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedDirectory
	}

	numStreams := binary.LittleEndian.Uint32(data)
	offset := 4
	if uint64(len(data)) < uint64(offset)+uint64(numStreams)*4 {
		return nil, ErrTruncatedDirectory
	}

	dir := &StreamDirectory{
		StreamSizes:  make([]uint32, numStreams),
		StreamBlocks: make([][]uint32, numStreams),
	}
	for i := range dir.StreamSizes {
		dir.StreamSizes[i] = binary.LittleEndian.Uint32(data[offset:])
		offset += 4
	}

	for i, size := range dir.StreamSizes {
		if size == NilStreamSize || size == 0 {
			continue
		}

		n := blocksFor(size, blockSize)
		if len(data) < offset+int(n)*4 {
			return nil, ErrTruncatedDirectory
		}

		blocks := make([]uint32, n)
		for j := range blocks {
			blocks[j] = binary.LittleEndian.Uint32(data[offset:])
			offset += 4
			if blocks[j] >= numBlocks {
				return nil, fmt.Errorf("%w: stream %d references block %d of %d", ErrInvalidBlockIndex, i, blocks[j], numBlocks)
			}
		}
		dir.StreamBlocks[i] = blocks
	}

	return dir, nil
}

// StreamSize returns the size of the given stream, or 0 for missing and nil
// streams.
func (d *StreamDirectory) StreamSize(streamIndex uint32) uint32 {
	if streamIndex >= d.NumStreams() || d.StreamSizes[streamIndex] == NilStreamSize {
		return 0
	}
	return d.StreamSizes[streamIndex]
}

// StreamExists reports whether the stream is present and non-empty.
func (d *StreamDirectory) StreamExists(streamIndex uint32) bool {
	return d.StreamSize(streamIndex) > 0
}
