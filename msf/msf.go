package msf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// File is an opened MSF container. The stream directory is decoded when the
// file is opened, so a File that was returned without error is structurally
// sound.
type File struct {
	data      io.ReaderAt
	closer    io.Closer // nil when the caller owns data
	size      int64
	sb        *SuperBlock
	directory *StreamDirectory
}

// Open opens an MSF file from the given path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("msf: failed to open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("msf: failed to stat file: %w", err)
	}

	m, err := NewFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	m.closer = f
	return m, nil
}

// NewFile reads an MSF container from r. The caller is responsible for
// closing r.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	if size < SuperBlockSize {
		return nil, ErrTruncatedFile
	}

	sbData := make([]byte, SuperBlockSize)
	if _, err := r.ReadAt(sbData, 0); err != nil {
		return nil, fmt.Errorf("msf: failed to read superblock: %w", err)
	}

	sb, err := ReadSuperBlock(bytes.NewReader(sbData))
	if err != nil {
		return nil, err
	}

	if size < sb.FileSize() {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrTruncatedFile, size, sb.FileSize())
	}

	f := &File{data: r, size: size, sb: sb}
	if f.directory, err = f.readDirectory(); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases resources associated with the MSF file.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// SuperBlock returns the MSF superblock.
func (f *File) SuperBlock() *SuperBlock { return f.sb }

// Directory returns the stream directory.
func (f *File) Directory() *StreamDirectory { return f.directory }

// BlockSize returns the block size used by this MSF file.
func (f *File) BlockSize() uint32 { return f.sb.BlockSize }

// StreamExists reports whether the stream is present and non-empty.
func (f *File) StreamExists(streamIndex uint32) bool {
	return f.directory.StreamExists(streamIndex)
}

// ReadStream reads an entire stream into memory.
func (f *File) ReadStream(streamIndex uint32) ([]byte, error) {
	if streamIndex >= f.directory.NumStreams() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStreamIndex, streamIndex)
	}

	size := f.directory.StreamSizes[streamIndex]
	if size == NilStreamSize {
		return nil, fmt.Errorf("msf: stream %d is nil", streamIndex)
	}
	return f.readBlocks(f.directory.StreamBlocks[streamIndex], size)
}

// readBlocks concatenates the first size bytes held by blocks.
func (f *File) readBlocks(blocks []uint32, size uint32) ([]byte, error) {
	out := make([]byte, size)
	bs := f.sb.BlockSize

	for i, block := range blocks {
		start := uint32(i) * bs
		if start >= size {
			break
		}
		end := min(start+bs, size)

		if _, err := f.data.ReadAt(out[start:end], f.sb.BlockOffset(block)); err != nil {
			return nil, fmt.Errorf("msf: failed to read block %d: %w", block, err)
		}
	}
	return out, nil
}

// readDirectory follows BlockMapAddr to the directory blocks and decodes them.
func (f *File) readDirectory() (*StreamDirectory, error) {
	numDirBlocks := f.sb.NumDirectoryBlocks()
	if f.sb.BlockMapAddr >= f.sb.NumBlocks {
		return nil, fmt.Errorf("%w: block map at %d", ErrInvalidBlockIndex, f.sb.BlockMapAddr)
	}

	// The block map itself may span several consecutive blocks.
	mapBytes := numDirBlocks * 4
	mapBlocks := make([]uint32, blocksFor(mapBytes, f.sb.BlockSize))
	for i := range mapBlocks {
		mapBlocks[i] = f.sb.BlockMapAddr + uint32(i)
	}
	raw, err := f.readBlocks(mapBlocks, mapBytes)
	if err != nil {
		return nil, fmt.Errorf("msf: failed to read block map: %w", err)
	}

	dirBlocks := make([]uint32, numDirBlocks)
	for i := range dirBlocks {
		dirBlocks[i] = binary.LittleEndian.Uint32(raw[i*4:])
		if dirBlocks[i] >= f.sb.NumBlocks {
			return nil, fmt.Errorf("%w: directory block %d", ErrInvalidBlockIndex, dirBlocks[i])
		}
	}

	data, err := f.readBlocks(dirBlocks, f.sb.NumDirectoryBytes)
	if err != nil {
		return nil, fmt.Errorf("msf: failed to read directory: %w", err)
	}
	return ParseDirectory(data, f.sb.BlockSize, f.sb.NumBlocks)
}
