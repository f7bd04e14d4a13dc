package pdbtest

import (
	"encoding/binary"

	"github.com/skdltmxn/pdbtypes/internal/tpi"
)

// Built-in type indices.
const (
	Void   tpi.TypeIndex = 0x0003
	Char   tpi.TypeIndex = 0x0070
	UChar  tpi.TypeIndex = 0x0020
	Short  tpi.TypeIndex = 0x0011
	Int    tpi.TypeIndex = 0x0074
	UInt   tpi.TypeIndex = 0x0075
	Long   tpi.TypeIndex = 0x0012
	Int64  tpi.TypeIndex = 0x0076
	UInt64 tpi.TypeIndex = 0x0077
	Float  tpi.TypeIndex = 0x0040
	Double tpi.TypeIndex = 0x0041
	Bool   tpi.TypeIndex = 0x0030
)

// NearPtr64 returns the built-in 64-bit pointer to a primitive, e.g. the
// index for "char*".
func NearPtr64(primitive tpi.TypeIndex) tpi.TypeIndex {
	return primitive&0xFF | tpi.TypeIndex(tpi.SimpleModeNearPointer64)<<8
}

// Keyword selects the record kind of a user-defined type.
type Keyword uint8

const (
	Struct Keyword = iota
	Class
	Union
	Interface
)

func (k Keyword) leaf() tpi.TypeRecordKind {
	switch k {
	case Class:
		return tpi.LF_CLASS
	case Union:
		return tpi.LF_UNION
	case Interface:
		return tpi.LF_INTERFACE
	default:
		return tpi.LF_STRUCTURE
	}
}

func (k Keyword) mangleTag() string {
	switch k {
	case Class:
		return ".?AV"
	case Union:
		return ".?AT"
	default:
		return ".?AU"
	}
}

const (
	propForwardRef    = 0x0080
	propScoped        = 0x0100
	propHasUniqueName = 0x0200
)

// TypeBuilder accumulates TPI records. Indices are handed out in insertion
// order starting at 0x1000, so a record can only refer to earlier records
// or to indices obtained through Reserve.
type TypeBuilder struct {
	records [][]byte
}

// Next returns the index the next added record will receive.
func (b *TypeBuilder) Next() tpi.TypeIndex {
	return tpi.FirstUserTypeIndex + tpi.TypeIndex(len(b.records))
}

// Count returns the number of records added so far.
func (b *TypeBuilder) Count() int { return len(b.records) }

// Add appends a raw record and returns its index.
func (b *TypeBuilder) Add(kind tpi.TypeRecordKind, data []byte) tpi.TypeIndex {
	ti := b.Next()
	rec := binary.LittleEndian.AppendUint16(nil, uint16(kind))
	rec = append(rec, data...)
	rec = pad(rec, 2)
	b.records = append(b.records, rec)
	return ti
}

// Reserve adds a placeholder and returns its index; Fill replaces it later.
// This allows records that refer forward in the stream.
func (b *TypeBuilder) Reserve() tpi.TypeIndex {
	return b.Add(0, nil)
}

// Fill sets the record behind a reserved index.
func (b *TypeBuilder) Fill(ti tpi.TypeIndex, kind tpi.TypeRecordKind, data []byte) {
	rec := binary.LittleEndian.AppendUint16(nil, uint16(kind))
	rec = append(rec, data...)
	b.records[ti-tpi.FirstUserTypeIndex] = pad(rec, 2)
}

// Pointer adds a 64-bit LF_POINTER to referent.
func (b *TypeBuilder) Pointer(referent tpi.TypeIndex) tpi.TypeIndex {
	return b.pointer(referent, tpi.PointerModePointer, false)
}

// ConstPointer adds a 64-bit const pointer ("T* const").
func (b *TypeBuilder) ConstPointer(referent tpi.TypeIndex) tpi.TypeIndex {
	return b.pointer(referent, tpi.PointerModePointer, true)
}

// Reference adds an lvalue reference to referent.
func (b *TypeBuilder) Reference(referent tpi.TypeIndex) tpi.TypeIndex {
	return b.pointer(referent, tpi.PointerModeLValueReference, false)
}

// RValueReference adds an rvalue reference to referent.
func (b *TypeBuilder) RValueReference(referent tpi.TypeIndex) tpi.TypeIndex {
	return b.pointer(referent, tpi.PointerModeRValueReference, false)
}

// MemberPointer adds a pointer to a data member of class ("T Class::*").
func (b *TypeBuilder) MemberPointer(referent, class tpi.TypeIndex) tpi.TypeIndex {
	attrs := uint32(0x0c) | uint32(tpi.PointerModePointerToDataMember)<<5 | 8<<13
	data := binary.LittleEndian.AppendUint32(nil, uint32(referent))
	data = binary.LittleEndian.AppendUint32(data, attrs)
	data = binary.LittleEndian.AppendUint32(data, uint32(class))
	// member pointer representation
	data = binary.LittleEndian.AppendUint16(data, 0)
	return b.Add(tpi.LF_POINTER, data)
}

func (b *TypeBuilder) pointer(referent tpi.TypeIndex, mode tpi.PointerMode, isConst bool) tpi.TypeIndex {
	// kind 0x0c is a 64-bit near pointer
	attrs := uint32(0x0c) | uint32(mode)<<5 | 8<<13
	if isConst {
		attrs |= 0x400
	}
	data := binary.LittleEndian.AppendUint32(nil, uint32(referent))
	data = binary.LittleEndian.AppendUint32(data, attrs)
	return b.Add(tpi.LF_POINTER, data)
}

// Modifier adds an LF_MODIFIER.
func (b *TypeBuilder) Modifier(modified tpi.TypeIndex, isConst, isVolatile bool) tpi.TypeIndex {
	var mods uint16
	if isConst {
		mods |= 0x01
	}
	if isVolatile {
		mods |= 0x02
	}
	data := binary.LittleEndian.AppendUint32(nil, uint32(modified))
	data = binary.LittleEndian.AppendUint16(data, mods)
	return b.Add(tpi.LF_MODIFIER, data)
}

// Array adds an LF_ARRAY whose total size is size bytes.
func (b *TypeBuilder) Array(elem tpi.TypeIndex, size uint64) tpi.TypeIndex {
	data := binary.LittleEndian.AppendUint32(nil, uint32(elem))
	data = binary.LittleEndian.AppendUint32(data, uint32(UInt64))
	data = appendNumeric(data, int64(size))
	data = append(data, 0)
	return b.Add(tpi.LF_ARRAY, data)
}

// Bitfield adds an LF_BITFIELD.
func (b *TypeBuilder) Bitfield(typ tpi.TypeIndex, length, position uint8) tpi.TypeIndex {
	data := binary.LittleEndian.AppendUint32(nil, uint32(typ))
	data = append(data, length, position)
	return b.Add(tpi.LF_BITFIELD, data)
}

// Procedure adds an LF_ARGLIST and the LF_PROCEDURE using it.
func (b *TypeBuilder) Procedure(ret tpi.TypeIndex, args ...tpi.TypeIndex) tpi.TypeIndex {
	list := binary.LittleEndian.AppendUint32(nil, uint32(len(args)))
	for _, a := range args {
		list = binary.LittleEndian.AppendUint32(list, uint32(a))
	}
	argList := b.Add(tpi.LF_ARGLIST, list)

	data := binary.LittleEndian.AppendUint32(nil, uint32(ret))
	data = append(data, 0, 0) // near C, no attributes
	data = binary.LittleEndian.AppendUint16(data, uint16(len(args)))
	data = binary.LittleEndian.AppendUint32(data, uint32(argList))
	return b.Add(tpi.LF_PROCEDURE, data)
}

// Alias adds an LF_ALIAS (typedef).
func (b *TypeBuilder) Alias(name string, underlying tpi.TypeIndex) tpi.TypeIndex {
	data := binary.LittleEndian.AppendUint32(nil, uint32(underlying))
	data = appendString(data, name)
	return b.Add(tpi.LF_ALIAS, data)
}

// FieldList adds an LF_FIELDLIST holding fields.
func (b *TypeBuilder) FieldList(fields ...Field) tpi.TypeIndex {
	var data []byte
	for _, f := range fields {
		data = f.append(data)
		data = pad(data, 0)
	}
	return b.Add(tpi.LF_FIELDLIST, data)
}

// UDT adds a complete class, struct, union or interface definition.
func (b *TypeBuilder) UDT(kw Keyword, name string, fieldList tpi.TypeIndex, count int, size uint64) tpi.TypeIndex {
	return b.Add(kw.leaf(), udtRecord(kw, name, fieldList, count, size, 0))
}

// Forward adds a forward reference to a class, struct or union.
func (b *TypeBuilder) Forward(kw Keyword, name string) tpi.TypeIndex {
	return b.Add(kw.leaf(), udtRecord(kw, name, 0, 0, 0, propForwardRef))
}

// Enum adds a complete enum definition.
func (b *TypeBuilder) Enum(name string, underlying, fieldList tpi.TypeIndex, count int) tpi.TypeIndex {
	return b.Add(tpi.LF_ENUM, enumRecord(name, underlying, fieldList, count, 0))
}

// ScopedEnum adds an enum class definition.
func (b *TypeBuilder) ScopedEnum(name string, underlying, fieldList tpi.TypeIndex, count int) tpi.TypeIndex {
	return b.Add(tpi.LF_ENUM, enumRecord(name, underlying, fieldList, count, propScoped))
}

// ForwardEnum adds a forward reference to an enum.
func (b *TypeBuilder) ForwardEnum(name string, underlying tpi.TypeIndex) tpi.TypeIndex {
	return b.Add(tpi.LF_ENUM, enumRecord(name, underlying, 0, 0, propForwardRef))
}

func udtRecord(kw Keyword, name string, fieldList tpi.TypeIndex, count int, size uint64, props uint16) []byte {
	props |= propHasUniqueName
	data := binary.LittleEndian.AppendUint16(nil, uint16(count))
	data = binary.LittleEndian.AppendUint16(data, props)
	data = binary.LittleEndian.AppendUint32(data, uint32(fieldList))
	if kw != Union {
		data = binary.LittleEndian.AppendUint32(data, 0) // derived
		data = binary.LittleEndian.AppendUint32(data, 0) // vshape
	}
	data = appendNumeric(data, int64(size))
	data = appendString(data, name)
	return appendString(data, kw.mangleTag()+name+"@@")
}

func enumRecord(name string, underlying, fieldList tpi.TypeIndex, count int, props uint16) []byte {
	props |= propHasUniqueName
	data := binary.LittleEndian.AppendUint16(nil, uint16(count))
	data = binary.LittleEndian.AppendUint16(data, props)
	data = binary.LittleEndian.AppendUint32(data, uint32(underlying))
	data = binary.LittleEndian.AppendUint32(data, uint32(fieldList))
	data = appendString(data, name)
	return appendString(data, ".?AW4"+name+"@@")
}

// Field is one entry for TypeBuilder.FieldList.
type Field struct {
	kind   tpi.TypeRecordKind
	access tpi.MemberAccess
	typ    tpi.TypeIndex
	offset uint64
	value  int64
	name   string
	vbptr  tpi.TypeIndex
	next   tpi.TypeIndex
}

// Member is a public data member.
func Member(name string, typ tpi.TypeIndex, offset uint64) Field {
	return Field{kind: tpi.LF_MEMBER, access: tpi.MemberAccessPublic, typ: typ, offset: offset, name: name}
}

// StaticMember is a public static data member.
func StaticMember(name string, typ tpi.TypeIndex) Field {
	return Field{kind: tpi.LF_STMEMBER, access: tpi.MemberAccessPublic, typ: typ, name: name}
}

// Base is a public non-virtual base class.
func Base(typ tpi.TypeIndex, offset uint64) Field {
	return Field{kind: tpi.LF_BCLASS, access: tpi.MemberAccessPublic, typ: typ, offset: offset}
}

// VirtualBase is a public direct virtual base class.
func VirtualBase(typ, vbptr tpi.TypeIndex) Field {
	return Field{kind: tpi.LF_VBCLASS, access: tpi.MemberAccessPublic, typ: typ, vbptr: vbptr}
}

// IndirectVirtualBase is a virtual base inherited through another base.
func IndirectVirtualBase(typ, vbptr tpi.TypeIndex) Field {
	return Field{kind: tpi.LF_IVBCLASS, access: tpi.MemberAccessPublic, typ: typ, vbptr: vbptr}
}

// Enumerate is an enumerator.
func Enumerate(name string, value int64) Field {
	return Field{kind: tpi.LF_ENUMERATE, access: tpi.MemberAccessPublic, value: value, name: name}
}

// NestedType declares a nested type name.
func NestedType(name string, typ tpi.TypeIndex) Field {
	return Field{kind: tpi.LF_NESTTYPE, typ: typ, name: name}
}

// Method is a public non-virtual member function.
func Method(name string, typ tpi.TypeIndex) Field {
	return Field{kind: tpi.LF_ONEMETHOD, access: tpi.MemberAccessPublic, typ: typ, name: name}
}

// VFuncTab is the vtable pointer entry.
func VFuncTab(typ tpi.TypeIndex) Field {
	return Field{kind: tpi.LF_VFUNCTAB, typ: typ}
}

// Continuation chains to another field list record.
func Continuation(next tpi.TypeIndex) Field {
	return Field{kind: tpi.LF_INDEX, next: next}
}

// With returns f with a different access level.
func (f Field) With(access tpi.MemberAccess) Field {
	f.access = access
	return f
}

func (f Field) append(data []byte) []byte {
	data = binary.LittleEndian.AppendUint16(data, uint16(f.kind))
	attrs := uint16(f.access)

	switch f.kind {
	case tpi.LF_MEMBER:
		data = binary.LittleEndian.AppendUint16(data, attrs)
		data = binary.LittleEndian.AppendUint32(data, uint32(f.typ))
		data = appendNumeric(data, int64(f.offset))
		data = appendString(data, f.name)
	case tpi.LF_STMEMBER:
		data = binary.LittleEndian.AppendUint16(data, attrs)
		data = binary.LittleEndian.AppendUint32(data, uint32(f.typ))
		data = appendString(data, f.name)
	case tpi.LF_BCLASS:
		data = binary.LittleEndian.AppendUint16(data, attrs)
		data = binary.LittleEndian.AppendUint32(data, uint32(f.typ))
		data = appendNumeric(data, int64(f.offset))
	case tpi.LF_VBCLASS, tpi.LF_IVBCLASS:
		data = binary.LittleEndian.AppendUint16(data, attrs)
		data = binary.LittleEndian.AppendUint32(data, uint32(f.typ))
		data = binary.LittleEndian.AppendUint32(data, uint32(f.vbptr))
		data = appendNumeric(data, 0)
		data = appendNumeric(data, 1)
	case tpi.LF_ENUMERATE:
		data = binary.LittleEndian.AppendUint16(data, attrs)
		data = appendNumeric(data, f.value)
		data = appendString(data, f.name)
	case tpi.LF_NESTTYPE:
		data = binary.LittleEndian.AppendUint16(data, 0)
		data = binary.LittleEndian.AppendUint32(data, uint32(f.typ))
		data = appendString(data, f.name)
	case tpi.LF_ONEMETHOD:
		data = binary.LittleEndian.AppendUint16(data, attrs)
		data = binary.LittleEndian.AppendUint32(data, uint32(f.typ))
		data = appendString(data, f.name)
	case tpi.LF_VFUNCTAB:
		data = binary.LittleEndian.AppendUint16(data, 0)
		data = binary.LittleEndian.AppendUint32(data, uint32(f.typ))
	case tpi.LF_INDEX:
		data = binary.LittleEndian.AppendUint16(data, 0)
		data = binary.LittleEndian.AppendUint32(data, uint32(f.next))
	}
	return data
}

// appendNumeric encodes v as the shortest CodeView numeric leaf.
func appendNumeric(data []byte, v int64) []byte {
	switch {
	case v >= 0 && v < 0x8000:
		return binary.LittleEndian.AppendUint16(data, uint16(v))
	case v >= -0x80 && v < 0:
		data = binary.LittleEndian.AppendUint16(data, 0x8000)
		return append(data, byte(int8(v)))
	case v >= -0x8000 && v < 0:
		data = binary.LittleEndian.AppendUint16(data, 0x8001)
		return binary.LittleEndian.AppendUint16(data, uint16(int16(v)))
	case v >= -0x80000000 && v < 0:
		data = binary.LittleEndian.AppendUint16(data, 0x8003)
		return binary.LittleEndian.AppendUint32(data, uint32(int32(v)))
	case v >= 0 && v <= 0xFFFFFFFF:
		data = binary.LittleEndian.AppendUint16(data, 0x8004)
		return binary.LittleEndian.AppendUint32(data, uint32(v))
	default:
		data = binary.LittleEndian.AppendUint16(data, 0x8009)
		return binary.LittleEndian.AppendUint64(data, uint64(v))
	}
}

func appendString(data []byte, s string) []byte {
	data = append(data, s...)
	return append(data, 0)
}

// pad aligns len(data)+bias to four bytes with LF_PAD bytes.
func pad(data []byte, bias int) []byte {
	n := (4 - (len(data)+bias)%4) % 4
	for i := n; i > 0; i-- {
		data = append(data, byte(0xF0+i))
	}
	return data
}
