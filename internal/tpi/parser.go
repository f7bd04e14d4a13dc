package tpi

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/pdbtypes/internal/stream"
)

// TPI stream version constants
const (
	TPIVersionV40 uint32 = 19950410
	TPIVersionV41 uint32 = 19951122
	TPIVersionV50 uint32 = 19961031
	TPIVersionV70 uint32 = 19990903
	TPIVersionV80 uint32 = 20040203
)

// TPIHeaderSize is the size of the fixed TPI header.
const TPIHeaderSize = 56

const minRecordSize = 4

var (
	ErrInvalidTPIHeader    = errors.New("tpi: invalid TPI header")
	ErrUnsupportedVersion  = errors.New("tpi: unsupported TPI version")
	ErrTypeIndexOutOfRange = errors.New("tpi: type index out of range")
	ErrInvalidTypeRecord   = errors.New("tpi: invalid type record")
)

// Header is the fixed TPI stream header. Hash fields are kept for
// completeness; lookups go through the record offset table instead.
type Header struct {
	Version         uint32
	HeaderSize      uint32
	TypeIndexBegin  TypeIndex
	TypeIndexEnd    TypeIndex
	TypeRecordBytes uint32

	HashStreamIndex    uint16
	HashAuxStreamIndex uint16
	HashKeySize        uint32
	NumHashBuckets     uint32
}

// TypeCount returns the number of type records.
func (h *Header) TypeCount() uint32 {
	return uint32(h.TypeIndexEnd - h.TypeIndexBegin)
}

// Stream is a parsed TPI stream. It is immutable after ParseStream and safe
// for concurrent readers.
type Stream struct {
	Header Header

	rawRecords []byte

	// offsets[i] is the position of record TypeIndexBegin+i in rawRecords.
	offsets []uint32
}

// ParseStream parses a TPI stream from raw data.
func ParseStream(data []byte) (*Stream, error) {
	if len(data) < TPIHeaderSize {
		return nil, ErrInvalidTPIHeader
	}

	r := stream.NewReader(data)
	s := &Stream{}
	if err := s.parseHeader(r); err != nil {
		return nil, err
	}

	if s.Header.HeaderSize < TPIHeaderSize || s.Header.TypeIndexEnd < s.Header.TypeIndexBegin {
		return nil, ErrInvalidTPIHeader
	}

	start := int(s.Header.HeaderSize)
	end := start + int(s.Header.TypeRecordBytes)
	if end > len(data) {
		return nil, fmt.Errorf("tpi: truncated stream: expected %d bytes, got %d", end, len(data))
	}
	s.rawRecords = data[start:end]

	// every record takes at least its length and kind words
	if uint64(s.Header.TypeCount())*minRecordSize > uint64(len(s.rawRecords)) {
		return nil, fmt.Errorf("%w: %d records in %d bytes", ErrInvalidTPIHeader, s.Header.TypeCount(), len(s.rawRecords))
	}

	if err := s.buildOffsetIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stream) parseHeader(r *stream.Reader) error {
	var (
		h   = &s.Header
		err error
		u32 uint32
	)

	if h.Version, err = r.ReadU32(); err != nil {
		return err
	}
	if h.Version != TPIVersionV80 && h.Version != TPIVersionV70 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.HeaderSize, err = r.ReadU32(); err != nil {
		return err
	}
	if u32, err = r.ReadU32(); err != nil {
		return err
	}
	h.TypeIndexBegin = TypeIndex(u32)
	if u32, err = r.ReadU32(); err != nil {
		return err
	}
	h.TypeIndexEnd = TypeIndex(u32)
	if h.TypeRecordBytes, err = r.ReadU32(); err != nil {
		return err
	}
	if h.HashStreamIndex, err = r.ReadU16(); err != nil {
		return err
	}
	if h.HashAuxStreamIndex, err = r.ReadU16(); err != nil {
		return err
	}
	if h.HashKeySize, err = r.ReadU32(); err != nil {
		return err
	}
	if h.NumHashBuckets, err = r.ReadU32(); err != nil {
		return err
	}
	return nil
}

// buildOffsetIndex walks the length-prefixed records once.
func (s *Stream) buildOffsetIndex() error {
	r := stream.NewReader(s.rawRecords)
	s.offsets = make([]uint32, 0, s.Header.TypeCount())

	for ti := s.Header.TypeIndexBegin; ti < s.Header.TypeIndexEnd; ti++ {
		offset := r.Offset()
		recordLen, err := r.ReadU16()
		if err != nil {
			return fmt.Errorf("tpi: record 0x%x: %w", ti, err)
		}
		if recordLen < 2 {
			return fmt.Errorf("%w: record 0x%x has length %d", ErrInvalidTypeRecord, ti, recordLen)
		}
		if err := r.Skip(int(recordLen)); err != nil {
			return fmt.Errorf("tpi: record 0x%x: %w", ti, err)
		}
		s.offsets = append(s.offsets, uint32(offset))
	}
	return nil
}

// TypeRecord is a raw record: its leaf kind and the bytes that follow it.
type TypeRecord struct {
	Kind TypeRecordKind
	Data []byte
}

// GetTypeRecord returns the raw type record for the given index. Simple
// types have no record and yield (nil, nil).
func (s *Stream) GetTypeRecord(ti TypeIndex) (*TypeRecord, error) {
	if ti.IsSimpleType() {
		return nil, nil
	}
	if ti < s.Header.TypeIndexBegin || ti >= s.Header.TypeIndexEnd {
		return nil, fmt.Errorf("%w: 0x%x", ErrTypeIndexOutOfRange, uint32(ti))
	}

	r := stream.NewReader(s.rawRecords[s.offsets[ti-s.Header.TypeIndexBegin]:])
	recordLen, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	kind, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	// recordLen counts the kind field.
	data, err := r.ReadBytesRef(int(recordLen) - 2)
	if err != nil {
		return nil, err
	}

	return &TypeRecord{Kind: TypeRecordKind(kind), Data: data}, nil
}

// TypeIndexBegin returns the first valid type index.
func (s *Stream) TypeIndexBegin() TypeIndex { return s.Header.TypeIndexBegin }

// TypeIndexEnd returns one past the last valid type index.
func (s *Stream) TypeIndexEnd() TypeIndex { return s.Header.TypeIndexEnd }

// TypeCount returns the number of type records.
func (s *Stream) TypeCount() uint32 { return s.Header.TypeCount() }

// ModifierRecord represents an LF_MODIFIER type.
type ModifierRecord struct {
	ModifiedType TypeIndex
	Modifiers    ModifierOptions
}

// ParseModifierRecord parses an LF_MODIFIER record.
func ParseModifierRecord(data []byte) (*ModifierRecord, error) {
	r := stream.NewReader(data)

	modType, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	mods, err := r.ReadU16()
	if err != nil {
		return nil, err
	}

	return &ModifierRecord{
		ModifiedType: TypeIndex(modType),
		Modifiers:    ModifierOptions(mods),
	}, nil
}

// PointerRecord represents an LF_POINTER type.
type PointerRecord struct {
	ReferentType TypeIndex
	Attributes   PointerAttributes

	// ContainingClass is set for pointers to members only.
	ContainingClass TypeIndex
}

// ParsePointerRecord parses an LF_POINTER record.
func ParsePointerRecord(data []byte) (*PointerRecord, error) {
	r := stream.NewReader(data)

	refType, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	attrs, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	rec := &PointerRecord{
		ReferentType: TypeIndex(refType),
		Attributes:   PointerAttributes(attrs),
	}

	mode := rec.Attributes.Mode()
	if mode == PointerModePointerToDataMember || mode == PointerModePointerToMemberFunction {
		containingClass, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		rec.ContainingClass = TypeIndex(containingClass)
	}
	return rec, nil
}

// ProcedureRecord represents an LF_PROCEDURE type (function signature).
type ProcedureRecord struct {
	ReturnType     TypeIndex
	ParameterCount uint16
	ArgumentList   TypeIndex
}

// ParseProcedureRecord parses an LF_PROCEDURE record.
func ParseProcedureRecord(data []byte) (*ProcedureRecord, error) {
	r := stream.NewReader(data)

	retType, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	// calling convention and function attributes
	if err := r.Skip(2); err != nil {
		return nil, err
	}
	paramCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	argList, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	return &ProcedureRecord{
		ReturnType:     TypeIndex(retType),
		ParameterCount: paramCount,
		ArgumentList:   TypeIndex(argList),
	}, nil
}

// MFunctionRecord represents an LF_MFUNCTION type (member function).
type MFunctionRecord struct {
	ReturnType   TypeIndex
	ClassType    TypeIndex
	ThisType     TypeIndex
	ArgumentList TypeIndex
}

// ParseMFunctionRecord parses an LF_MFUNCTION record.
func ParseMFunctionRecord(data []byte) (*MFunctionRecord, error) {
	r := stream.NewReader(data)

	var idx [3]uint32
	for i := range idx {
		v, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		idx[i] = v
	}
	// calling convention, attributes, parameter count
	if err := r.Skip(4); err != nil {
		return nil, err
	}
	argList, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	return &MFunctionRecord{
		ReturnType:   TypeIndex(idx[0]),
		ClassType:    TypeIndex(idx[1]),
		ThisType:     TypeIndex(idx[2]),
		ArgumentList: TypeIndex(argList),
	}, nil
}

// ArgListRecord represents an LF_ARGLIST type.
type ArgListRecord struct {
	ArgTypes []TypeIndex
}

// ParseArgListRecord parses an LF_ARGLIST record.
func ParseArgListRecord(data []byte) (*ArgListRecord, error) {
	r := stream.NewReader(data)

	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(count)*4 > r.Remaining() {
		return nil, fmt.Errorf("%w: argument list of %d entries", ErrInvalidTypeRecord, count)
	}

	args := make([]TypeIndex, count)
	for i := range args {
		argType, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		args[i] = TypeIndex(argType)
	}
	return &ArgListRecord{ArgTypes: args}, nil
}

// ArrayRecord represents an LF_ARRAY type. Size is the total size in bytes.
type ArrayRecord struct {
	ElementType TypeIndex
	IndexType   TypeIndex
	Size        uint64
	Name        string
}

// ParseArrayRecord parses an LF_ARRAY record.
func ParseArrayRecord(data []byte) (*ArrayRecord, error) {
	r := stream.NewReader(data)

	elemType, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	indexType, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	size, err := r.ReadNumeric()
	if err != nil {
		return nil, err
	}
	name, err := r.ReadCString()
	if err != nil {
		return nil, err
	}

	return &ArrayRecord{
		ElementType: TypeIndex(elemType),
		IndexType:   TypeIndex(indexType),
		Size:        size,
		Name:        name,
	}, nil
}

// ClassRecord represents an LF_CLASS, LF_STRUCTURE, or LF_INTERFACE type.
type ClassRecord struct {
	MemberCount uint16
	Properties  ClassProperties
	FieldList   TypeIndex
	DerivedFrom TypeIndex
	VShape      TypeIndex
	Size        uint64
	Name        string
	UniqueName  string
}

// ParseClassRecord parses an LF_CLASS, LF_STRUCTURE, or LF_INTERFACE record.
func ParseClassRecord(data []byte) (*ClassRecord, error) {
	r := stream.NewReader(data)

	memberCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	props, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	var idx [3]uint32
	for i := range idx {
		if idx[i], err = r.ReadU32(); err != nil {
			return nil, err
		}
	}
	size, err := r.ReadNumeric()
	if err != nil {
		return nil, err
	}

	rec := &ClassRecord{
		MemberCount: memberCount,
		Properties:  ClassProperties(props),
		FieldList:   TypeIndex(idx[0]),
		DerivedFrom: TypeIndex(idx[1]),
		VShape:      TypeIndex(idx[2]),
		Size:        size,
	}
	if rec.Name, rec.UniqueName, err = readNames(r, rec.Properties); err != nil {
		return nil, err
	}
	return rec, nil
}

// UnionRecord represents an LF_UNION type.
type UnionRecord struct {
	MemberCount uint16
	Properties  ClassProperties
	FieldList   TypeIndex
	Size        uint64
	Name        string
	UniqueName  string
}

// ParseUnionRecord parses an LF_UNION record.
func ParseUnionRecord(data []byte) (*UnionRecord, error) {
	r := stream.NewReader(data)

	memberCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	props, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	fieldList, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	size, err := r.ReadNumeric()
	if err != nil {
		return nil, err
	}

	rec := &UnionRecord{
		MemberCount: memberCount,
		Properties:  ClassProperties(props),
		FieldList:   TypeIndex(fieldList),
		Size:        size,
	}
	if rec.Name, rec.UniqueName, err = readNames(r, rec.Properties); err != nil {
		return nil, err
	}
	return rec, nil
}

// EnumRecord represents an LF_ENUM type.
type EnumRecord struct {
	Count          uint16
	Properties     ClassProperties
	UnderlyingType TypeIndex
	FieldList      TypeIndex
	Name           string
	UniqueName     string
}

// ParseEnumRecord parses an LF_ENUM record.
func ParseEnumRecord(data []byte) (*EnumRecord, error) {
	r := stream.NewReader(data)

	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	props, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	underlyingType, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	fieldList, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	rec := &EnumRecord{
		Count:          count,
		Properties:     ClassProperties(props),
		UnderlyingType: TypeIndex(underlyingType),
		FieldList:      TypeIndex(fieldList),
	}
	if rec.Name, rec.UniqueName, err = readNames(r, rec.Properties); err != nil {
		return nil, err
	}
	return rec, nil
}

// AliasRecord represents an LF_ALIAS (typedef) type.
type AliasRecord struct {
	UnderlyingType TypeIndex
	Name           string
}

// ParseAliasRecord parses an LF_ALIAS record.
func ParseAliasRecord(data []byte) (*AliasRecord, error) {
	r := stream.NewReader(data)

	underlying, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	name, err := r.ReadCString()
	if err != nil {
		return nil, err
	}
	return &AliasRecord{UnderlyingType: TypeIndex(underlying), Name: name}, nil
}

// BitFieldRecord represents an LF_BITFIELD type.
type BitFieldRecord struct {
	Type     TypeIndex
	Length   uint8
	Position uint8
}

// ParseBitFieldRecord parses an LF_BITFIELD record.
func ParseBitFieldRecord(data []byte) (*BitFieldRecord, error) {
	r := stream.NewReader(data)

	typ, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	length, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	position, err := r.ReadU8()
	if err != nil {
		return nil, err
	}

	return &BitFieldRecord{
		Type:     TypeIndex(typ),
		Length:   length,
		Position: position,
	}, nil
}

// readNames reads the display name and, when flagged, the decorated unique
// name that follow a UDT header.
func readNames(r *stream.Reader, props ClassProperties) (name, unique string, err error) {
	if name, err = r.ReadCString(); err != nil {
		return "", "", err
	}
	if props.HasUniqueName() {
		if unique, err = r.ReadCString(); err != nil {
			return "", "", err
		}
	}
	return name, unique, nil
}
