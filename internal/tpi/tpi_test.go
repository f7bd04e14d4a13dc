package tpi_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbtypes/internal/pdbtest"
	"github.com/skdltmxn/pdbtypes/internal/tpi"
)

func TestParseStreamIndexesRecords(t *testing.T) {
	b := pdbtest.New()
	ptr := b.Types.Pointer(pdbtest.Int)
	fl := b.Types.FieldList(
		pdbtest.Member("a", pdbtest.Int, 0),
		pdbtest.Member("p", ptr, 8),
	)
	foo := b.Types.UDT(pdbtest.Struct, "Foo", fl, 2, 16)

	s, err := tpi.ParseStream(b.TPI())
	require.NoError(t, err)
	assert.Equal(t, uint32(3), s.TypeCount())
	assert.Equal(t, tpi.FirstUserTypeIndex, s.TypeIndexBegin())

	rec, err := s.GetTypeRecord(foo)
	require.NoError(t, err)
	require.Equal(t, tpi.LF_STRUCTURE, rec.Kind)

	cls, err := tpi.ParseClassRecord(rec.Data)
	require.NoError(t, err)
	assert.Equal(t, "Foo", cls.Name)
	assert.Equal(t, ".?AUFoo@@", cls.UniqueName)
	assert.Equal(t, uint64(16), cls.Size)
	assert.Equal(t, fl, cls.FieldList)
	assert.False(t, cls.Properties.IsForwardRef())

	rec, err = s.GetTypeRecord(ptr)
	require.NoError(t, err)
	p, err := tpi.ParsePointerRecord(rec.Data)
	require.NoError(t, err)
	assert.Equal(t, pdbtest.Int, p.ReferentType)
	assert.Equal(t, tpi.PointerModePointer, p.Attributes.Mode())
	assert.Equal(t, uint8(8), p.Attributes.Size())

	rec, err = s.GetTypeRecord(pdbtest.Int)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = s.GetTypeRecord(foo + 1)
	assert.ErrorIs(t, err, tpi.ErrTypeIndexOutOfRange)
}

func TestParseStreamRejectsOldVersions(t *testing.T) {
	b := pdbtest.New()
	b.TPIVersion = tpi.TPIVersionV50

	_, err := tpi.ParseStream(b.TPI())
	assert.ErrorIs(t, err, tpi.ErrUnsupportedVersion)
}

func TestParseStreamRejectsTruncatedRecords(t *testing.T) {
	b := pdbtest.New()
	b.Types.Pointer(pdbtest.Int)
	data := b.TPI()

	// claim more record bytes than present
	binary.LittleEndian.PutUint32(data[16:], uint32(len(data)))
	_, err := tpi.ParseStream(data)
	require.Error(t, err)

	_, err = tpi.ParseStream(data[:10])
	assert.ErrorIs(t, err, tpi.ErrInvalidTPIHeader)
}

func TestParseStreamRejectsOversizedTypeCount(t *testing.T) {
	b := pdbtest.New()
	b.Types.Pointer(pdbtest.Int)
	data := b.TPI()

	binary.LittleEndian.PutUint32(data[12:], 0xF0000000)
	_, err := tpi.ParseStream(data)
	assert.ErrorIs(t, err, tpi.ErrInvalidTPIHeader)

	// one record more than the bytes can hold
	binary.LittleEndian.PutUint32(data[12:], uint32(tpi.FirstUserTypeIndex)+2)
	_, err = tpi.ParseStream(data)
	assert.Error(t, err)
}

func TestParseFieldList(t *testing.T) {
	b := pdbtest.New()
	fl := b.Types.FieldList(
		pdbtest.Base(0x1234, 0),
		pdbtest.VirtualBase(0x1235, pdbtest.NearPtr64(pdbtest.Int)),
		pdbtest.Member("count", pdbtest.Int, 0x10).With(tpi.MemberAccessPrivate),
		pdbtest.StaticMember("instances", pdbtest.Int),
		pdbtest.Method("run", 0x1300),
		pdbtest.NestedType("Inner", 0x1236),
		pdbtest.VFuncTab(0x1237),
		pdbtest.Continuation(0x1400),
	)

	s, err := tpi.ParseStream(b.TPI())
	require.NoError(t, err)
	rec, err := s.GetTypeRecord(fl)
	require.NoError(t, err)
	require.Equal(t, tpi.LF_FIELDLIST, rec.Kind)

	list, err := tpi.ParseFieldList(rec.Data)
	require.NoError(t, err)
	assert.Equal(t, tpi.TypeIndex(0x1400), list.Continuation)
	require.Len(t, list.Fields, 7)

	assert.True(t, list.Fields[0].IsBaseClass())
	assert.Equal(t, tpi.TypeIndex(0x1234), list.Fields[0].Type)

	assert.Equal(t, tpi.LF_VBCLASS, list.Fields[1].Kind)
	assert.Equal(t, tpi.TypeIndex(0x1235), list.Fields[1].Type)
	assert.Equal(t, uint64(1), list.Fields[1].VBTableIndex)

	m := list.Fields[2]
	assert.True(t, m.IsDataMember())
	assert.Equal(t, "count", m.Name)
	assert.Equal(t, uint64(0x10), m.Offset)
	assert.Equal(t, tpi.MemberAccessPrivate, m.Attributes.Access())

	assert.Equal(t, tpi.LF_STMEMBER, list.Fields[3].Kind)
	assert.Equal(t, "instances", list.Fields[3].Name)
	assert.Equal(t, "run", list.Fields[4].Name)
	assert.Equal(t, "Inner", list.Fields[5].Name)
	assert.Equal(t, tpi.LF_VFUNCTAB, list.Fields[6].Kind)
}

func TestParseFieldListEnumerators(t *testing.T) {
	b := pdbtest.New()
	fl := b.Types.FieldList(
		pdbtest.Enumerate("Small", 3),
		pdbtest.Enumerate("Negative", -1),
		pdbtest.Enumerate("Short", -300),
		pdbtest.Enumerate("Wide", 0x12345678),
		pdbtest.Enumerate("Huge", -0x100000000),
	)

	s, err := tpi.ParseStream(b.TPI())
	require.NoError(t, err)
	rec, err := s.GetTypeRecord(fl)
	require.NoError(t, err)

	list, err := tpi.ParseFieldList(rec.Data)
	require.NoError(t, err)
	require.Len(t, list.Fields, 5)

	want := []string{"3", "-1", "-300", "305419896", "-4294967296"}
	for i, f := range list.Fields {
		assert.Equal(t, want[i], f.Value.String(), f.Name)
	}
}

func TestParseFieldListUnknownLeaf(t *testing.T) {
	data := binary.LittleEndian.AppendUint16(nil, 0x1234)
	_, err := tpi.ParseFieldList(data)
	assert.ErrorIs(t, err, tpi.ErrInvalidTypeRecord)
}

func TestParseRecords(t *testing.T) {
	b := pdbtest.New()
	arr := b.Types.Array(pdbtest.Int, 16)
	bf := b.Types.Bitfield(pdbtest.UInt, 3, 5)
	proc := b.Types.Procedure(pdbtest.Void, pdbtest.Int, pdbtest.Char)
	alias := b.Types.Alias("DWORD", pdbtest.UInt)
	mod := b.Types.Modifier(pdbtest.Int, true, false)
	enum := b.Types.ScopedEnum("Color", pdbtest.Int, 0, 0)

	s, err := tpi.ParseStream(b.TPI())
	require.NoError(t, err)

	get := func(ti tpi.TypeIndex) []byte {
		rec, err := s.GetTypeRecord(ti)
		require.NoError(t, err)
		return rec.Data
	}

	a, err := tpi.ParseArrayRecord(get(arr))
	require.NoError(t, err)
	assert.Equal(t, pdbtest.Int, a.ElementType)
	assert.Equal(t, uint64(16), a.Size)

	f, err := tpi.ParseBitFieldRecord(get(bf))
	require.NoError(t, err)
	assert.Equal(t, uint8(3), f.Length)
	assert.Equal(t, uint8(5), f.Position)

	p, err := tpi.ParseProcedureRecord(get(proc))
	require.NoError(t, err)
	assert.Equal(t, pdbtest.Void, p.ReturnType)
	assert.Equal(t, uint16(2), p.ParameterCount)
	args, err := tpi.ParseArgListRecord(get(p.ArgumentList))
	require.NoError(t, err)
	assert.Equal(t, []tpi.TypeIndex{pdbtest.Int, pdbtest.Char}, args.ArgTypes)

	al, err := tpi.ParseAliasRecord(get(alias))
	require.NoError(t, err)
	assert.Equal(t, "DWORD", al.Name)
	assert.Equal(t, pdbtest.UInt, al.UnderlyingType)

	m, err := tpi.ParseModifierRecord(get(mod))
	require.NoError(t, err)
	assert.True(t, m.Modifiers.IsConst())
	assert.False(t, m.Modifiers.IsVolatile())

	e, err := tpi.ParseEnumRecord(get(enum))
	require.NoError(t, err)
	assert.Equal(t, "Color", e.Name)
	assert.True(t, e.Properties.IsScoped())
}
