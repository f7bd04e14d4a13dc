// Package pdbtest builds small PDB files in memory so that tests can
// exercise the whole reading stack without binary fixtures.
package pdbtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/skdltmxn/pdbtypes/internal/dbi"
	"github.com/skdltmxn/pdbtypes/internal/tpi"
	"github.com/skdltmxn/pdbtypes/msf"
)

const blockSize = 512

// Builder assembles an MSF 7.00 container with a PDB info stream, a TPI
// stream holding Types and a DBI header naming Machine.
type Builder struct {
	Types TypeBuilder

	// Machine is written to the DBI header. Zero omits the DBI stream.
	Machine uint16

	// TPIVersion overrides the TPI header version when non-zero.
	TPIVersion uint32

	// TypeIndexEnd overrides the TPI header's end index when non-zero.
	TypeIndexEnd tpi.TypeIndex

	Age  uint32
	GUID [16]byte
}

// New returns a Builder for an x64 image.
func New() *Builder {
	return &Builder{Machine: dbi.MachineAMD64, Age: 1}
}

// TPI returns the encoded TPI stream.
func (b *Builder) TPI() []byte {
	var records []byte
	for _, rec := range b.Types.records {
		records = binary.LittleEndian.AppendUint16(records, uint16(len(rec)))
		records = append(records, rec...)
	}

	version := b.TPIVersion
	if version == 0 {
		version = tpi.TPIVersionV80
	}

	end := b.Types.Next()
	if b.TypeIndexEnd != 0 {
		end = b.TypeIndexEnd
	}

	var h []byte
	h = binary.LittleEndian.AppendUint32(h, version)
	h = binary.LittleEndian.AppendUint32(h, tpi.TPIHeaderSize)
	h = binary.LittleEndian.AppendUint32(h, uint32(tpi.FirstUserTypeIndex))
	h = binary.LittleEndian.AppendUint32(h, uint32(end))
	h = binary.LittleEndian.AppendUint32(h, uint32(len(records)))
	h = binary.LittleEndian.AppendUint16(h, 0xFFFF) // no hash stream
	h = binary.LittleEndian.AppendUint16(h, 0xFFFF)
	h = binary.LittleEndian.AppendUint32(h, 4)
	h = binary.LittleEndian.AppendUint32(h, 0x3FFFF)
	// hash value, index offset and adjustment buffers: all empty
	h = append(h, make([]byte, 24)...)

	return append(h, records...)
}

func (b *Builder) info() []byte {
	var data []byte
	data = binary.LittleEndian.AppendUint32(data, 20000404)
	data = binary.LittleEndian.AppendUint32(data, 0x5F3C2A10)
	data = binary.LittleEndian.AppendUint32(data, b.Age)
	data = append(data, b.GUID[:]...)
	// empty named stream map
	return append(data, make([]byte, 16)...)
}

func (b *Builder) dbi() []byte {
	if b.Machine == 0 {
		return nil
	}
	h := dbi.Header{
		VersionSignature:     -1,
		VersionHeader:        dbi.DBIVersionV70,
		Age:                  b.Age,
		GlobalStreamIndex:    0xFFFF,
		PublicStreamIndex:    0xFFFF,
		SymRecordStreamIndex: 0xFFFF,
		Machine:              b.Machine,
	}
	var buf bytes.Buffer
	// writes to a bytes.Buffer cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, &h)
	return buf.Bytes()
}

// Bytes returns the complete PDB file.
func (b *Builder) Bytes() []byte {
	return Container(nil, b.info(), b.TPI(), b.dbi())
}

// WriteFile writes the PDB into a temporary directory owned by t and
// returns its path.
func (b *Builder) WriteFile(t testing.TB) string {
	t.Helper()
	return WriteBytes(t, "test.pdb", b.Bytes())
}

// WriteBytes writes data to name inside a temporary directory owned by t.
func WriteBytes(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("pdbtest: write %s: %v", path, err)
	}
	return path
}

// Container lays out streams in an MSF 7.00 file. Stream i of the result
// holds streams[i]; a nil entry is written as an empty stream.
//
// Block 0 is the superblock, blocks 1 and 2 the free page maps and block 3
// the block map. Stream data follows, then the stream directory.
func Container(streams ...[]byte) []byte {
	next := uint32(4)
	alloc := func(size int) []uint32 {
		n := (uint32(size) + blockSize - 1) / blockSize
		blocks := make([]uint32, n)
		for i := range blocks {
			blocks[i] = next
			next++
		}
		return blocks
	}

	streamBlocks := make([][]uint32, len(streams))
	for i, s := range streams {
		streamBlocks[i] = alloc(len(s))
	}

	var dir []byte
	dir = binary.LittleEndian.AppendUint32(dir, uint32(len(streams)))
	for _, s := range streams {
		dir = binary.LittleEndian.AppendUint32(dir, uint32(len(s)))
	}
	for _, blocks := range streamBlocks {
		for _, blk := range blocks {
			dir = binary.LittleEndian.AppendUint32(dir, blk)
		}
	}
	dirBlocks := alloc(len(dir))

	file := make([]byte, int(next)*blockSize)

	sb := msf.SuperBlock{
		BlockSize:         blockSize,
		FreeBlockMapBlock: 1,
		NumBlocks:         next,
		NumDirectoryBytes: uint32(len(dir)),
		BlockMapAddr:      3,
	}
	copy(sb.FileMagic[:], msf.Magic)
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, &sb)
	copy(file, buf.Bytes())

	blockMap := file[3*blockSize:]
	for i, blk := range dirBlocks {
		binary.LittleEndian.PutUint32(blockMap[i*4:], blk)
	}

	scatter := func(data []byte, blocks []uint32) {
		for i, blk := range blocks {
			chunk := data[i*blockSize:]
			if len(chunk) > blockSize {
				chunk = chunk[:blockSize]
			}
			copy(file[int(blk)*blockSize:], chunk)
		}
	}
	for i, s := range streams {
		scatter(s, streamBlocks[i])
	}
	scatter(dir, dirBlocks)

	return file
}

// LegacyHeader returns the first bytes of a PDB 2.00 file.
func LegacyHeader() []byte {
	data := make([]byte, blockSize)
	copy(data, "Microsoft C/C++ program database 2.00\r\n\x1a\x4a\x47\x00\x00")
	return data
}
