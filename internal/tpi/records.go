// Package tpi parses the TPI (Type Program Information) stream.
package tpi

// TypeIndex is a reference to a type in the TPI stream.
type TypeIndex uint32

// FirstUserTypeIndex is the first index backed by a record. Indices below
// it encode built-in types directly.
const FirstUserTypeIndex TypeIndex = 0x1000

// IsSimpleType returns true if this is a built-in primitive type.
func (ti TypeIndex) IsSimpleType() bool {
	return ti < FirstUserTypeIndex
}

// SimpleKind extracts the simple type kind (bits 0-7).
func (ti TypeIndex) SimpleKind() SimpleTypeKind {
	return SimpleTypeKind(ti & 0xFF)
}

// SimpleMode extracts the simple type mode (bits 8-11).
func (ti TypeIndex) SimpleMode() SimpleTypeMode {
	return SimpleTypeMode((ti >> 8) & 0x0F)
}

// SimpleTypeKind identifies primitive types.
type SimpleTypeKind uint8

const (
	SimpleTypeNone          SimpleTypeKind = 0x00
	SimpleTypeVoid          SimpleTypeKind = 0x03
	SimpleTypeNotTranslated SimpleTypeKind = 0x07
	SimpleTypeHResult       SimpleTypeKind = 0x08
	SimpleTypeSignedChar    SimpleTypeKind = 0x10
	SimpleTypeUnsignedChar  SimpleTypeKind = 0x20
	SimpleTypeNarrowChar    SimpleTypeKind = 0x70
	SimpleTypeWideChar      SimpleTypeKind = 0x71
	SimpleTypeChar16        SimpleTypeKind = 0x7a
	SimpleTypeChar32        SimpleTypeKind = 0x7b
	SimpleTypeChar8         SimpleTypeKind = 0x7c
	SimpleTypeSByte         SimpleTypeKind = 0x68
	SimpleTypeByte          SimpleTypeKind = 0x69
	SimpleTypeInt16Short    SimpleTypeKind = 0x11
	SimpleTypeUInt16Short   SimpleTypeKind = 0x21
	SimpleTypeInt16         SimpleTypeKind = 0x72
	SimpleTypeUInt16        SimpleTypeKind = 0x73
	SimpleTypeInt32Long     SimpleTypeKind = 0x12
	SimpleTypeUInt32Long    SimpleTypeKind = 0x22
	SimpleTypeInt32         SimpleTypeKind = 0x74
	SimpleTypeUInt32        SimpleTypeKind = 0x75
	SimpleTypeInt64Quad     SimpleTypeKind = 0x13
	SimpleTypeUInt64Quad    SimpleTypeKind = 0x23
	SimpleTypeInt64         SimpleTypeKind = 0x76
	SimpleTypeUInt64        SimpleTypeKind = 0x77
	SimpleTypeInt128Oct     SimpleTypeKind = 0x14
	SimpleTypeUInt128Oct    SimpleTypeKind = 0x24
	SimpleTypeInt128        SimpleTypeKind = 0x78
	SimpleTypeUInt128       SimpleTypeKind = 0x79
	SimpleTypeFloat16       SimpleTypeKind = 0x46
	SimpleTypeFloat32       SimpleTypeKind = 0x40
	SimpleTypeFloat64       SimpleTypeKind = 0x41
	SimpleTypeFloat80       SimpleTypeKind = 0x42
	SimpleTypeFloat128      SimpleTypeKind = 0x43
	SimpleTypeBool8         SimpleTypeKind = 0x30
	SimpleTypeBool16        SimpleTypeKind = 0x31
	SimpleTypeBool32        SimpleTypeKind = 0x32
	SimpleTypeBool64        SimpleTypeKind = 0x33
)

// SimpleTypeMode identifies pointer modes for simple types.
type SimpleTypeMode uint8

const (
	SimpleModeDirect         SimpleTypeMode = 0x00
	SimpleModeNearPointer    SimpleTypeMode = 0x01
	SimpleModeFarPointer     SimpleTypeMode = 0x02
	SimpleModeHugePointer    SimpleTypeMode = 0x03
	SimpleModeNearPointer32  SimpleTypeMode = 0x04
	SimpleModeFarPointer32   SimpleTypeMode = 0x05
	SimpleModeNearPointer64  SimpleTypeMode = 0x06
	SimpleModeNearPointer128 SimpleTypeMode = 0x07
)

// TypeRecordKind identifies the type of a type record.
type TypeRecordKind uint16

// Type record kinds (LF_*). The *_ST variants are the pre-7.0 encodings
// with length-prefixed names; they are recognised only to be rejected.
const (
	LF_MODIFIER     TypeRecordKind = 0x1001
	LF_POINTER      TypeRecordKind = 0x1002
	LF_CLASS_ST     TypeRecordKind = 0x1004
	LF_STRUCTURE_ST TypeRecordKind = 0x1005
	LF_UNION_ST     TypeRecordKind = 0x1006
	LF_ENUM_ST      TypeRecordKind = 0x1007
	LF_PROCEDURE    TypeRecordKind = 0x1008
	LF_MFUNCTION    TypeRecordKind = 0x1009
	LF_VTSHAPE      TypeRecordKind = 0x000a

	LF_ARGLIST    TypeRecordKind = 0x1201
	LF_FIELDLIST  TypeRecordKind = 0x1203
	LF_BITFIELD   TypeRecordKind = 0x1205
	LF_METHODLIST TypeRecordKind = 0x1206

	LF_BCLASS    TypeRecordKind = 0x1400
	LF_VBCLASS   TypeRecordKind = 0x1401
	LF_IVBCLASS  TypeRecordKind = 0x1402
	LF_INDEX     TypeRecordKind = 0x1404
	LF_VFUNCTAB  TypeRecordKind = 0x1409
	LF_FRIENDCLS TypeRecordKind = 0x140a

	LF_ENUMERATE  TypeRecordKind = 0x1502
	LF_ARRAY      TypeRecordKind = 0x1503
	LF_CLASS      TypeRecordKind = 0x1504
	LF_STRUCTURE  TypeRecordKind = 0x1505
	LF_UNION      TypeRecordKind = 0x1506
	LF_ENUM       TypeRecordKind = 0x1507
	LF_ALIAS      TypeRecordKind = 0x150a
	LF_FRIENDFCN  TypeRecordKind = 0x150c
	LF_MEMBER     TypeRecordKind = 0x150d
	LF_STMEMBER   TypeRecordKind = 0x150e
	LF_METHOD     TypeRecordKind = 0x150f
	LF_NESTTYPE   TypeRecordKind = 0x1510
	LF_ONEMETHOD  TypeRecordKind = 0x1511
	LF_NESTTYPEEX TypeRecordKind = 0x1512
	LF_INTERFACE  TypeRecordKind = 0x1519
	LF_VFTABLE    TypeRecordKind = 0x151d

	LF_PAD0  TypeRecordKind = 0x00F0
	LF_PAD15 TypeRecordKind = 0x00FF
)

// IsPadding returns true if this is a padding leaf.
func (k TypeRecordKind) IsPadding() bool {
	return k >= LF_PAD0 && k <= LF_PAD15
}

// PointerMode distinguishes pointers from references.
type PointerMode uint8

const (
	PointerModePointer                 PointerMode = 0x00
	PointerModeLValueReference         PointerMode = 0x01
	PointerModePointerToDataMember     PointerMode = 0x02
	PointerModePointerToMemberFunction PointerMode = 0x03
	PointerModeRValueReference         PointerMode = 0x04
)

// PointerAttributes is the LF_POINTER attribute bitfield.
type PointerAttributes uint32

func (pa PointerAttributes) Mode() PointerMode { return PointerMode((pa >> 5) & 0x07) }
func (pa PointerAttributes) IsVolatile() bool  { return (pa & 0x200) != 0 }
func (pa PointerAttributes) IsConst() bool     { return (pa & 0x400) != 0 }
func (pa PointerAttributes) Size() uint8       { return uint8((pa >> 13) & 0x3F) }

// ClassProperties is the property bitfield shared by class, union and enum
// records.
type ClassProperties uint16

func (cp ClassProperties) IsPacked() bool      { return (cp & 0x0001) != 0 }
func (cp ClassProperties) IsNested() bool      { return (cp & 0x0008) != 0 }
func (cp ClassProperties) IsForwardRef() bool  { return (cp & 0x0080) != 0 }
func (cp ClassProperties) IsScoped() bool      { return (cp & 0x0100) != 0 }
func (cp ClassProperties) HasUniqueName() bool { return (cp & 0x0200) != 0 }

// MemberAttributes is the CV_fldattr_t bitfield of field list entries.
type MemberAttributes uint16

func (ma MemberAttributes) Access() MemberAccess { return MemberAccess(ma & 0x03) }
func (ma MemberAttributes) MethodKind() MethodKind {
	return MethodKind((ma >> 2) & 0x07)
}

// MethodKind identifies the kind of a method.
type MethodKind uint8

const (
	MethodKindVanilla      MethodKind = 0x00
	MethodKindVirtual      MethodKind = 0x01
	MethodKindStatic       MethodKind = 0x02
	MethodKindFriend       MethodKind = 0x03
	MethodKindIntroVirtual MethodKind = 0x04
	MethodKindPureVirtual  MethodKind = 0x05
	MethodKindPureIntro    MethodKind = 0x06
)

// IsIntroducing reports whether the method carries a vtable offset.
func (mk MethodKind) IsIntroducing() bool {
	return mk == MethodKindIntroVirtual || mk == MethodKindPureIntro
}

// MemberAccess identifies member accessibility.
type MemberAccess uint8

const (
	MemberAccessNone      MemberAccess = 0
	MemberAccessPrivate   MemberAccess = 1
	MemberAccessProtected MemberAccess = 2
	MemberAccessPublic    MemberAccess = 3
)

func (ma MemberAccess) String() string {
	switch ma {
	case MemberAccessPrivate:
		return "private"
	case MemberAccessProtected:
		return "protected"
	case MemberAccessPublic:
		return "public"
	default:
		return ""
	}
}

// ModifierOptions is the LF_MODIFIER bitfield.
type ModifierOptions uint16

func (mo ModifierOptions) IsConst() bool     { return (mo & 0x01) != 0 }
func (mo ModifierOptions) IsVolatile() bool  { return (mo & 0x02) != 0 }
func (mo ModifierOptions) IsUnaligned() bool { return (mo & 0x04) != 0 }
