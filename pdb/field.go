package pdb

import "github.com/skdltmxn/pdbtypes/internal/tpi"

// FieldKind identifies an entry of a field list.
type FieldKind uint8

const (
	FieldUnknown FieldKind = iota
	FieldMember
	FieldStaticMember
	FieldBaseClass
	FieldVirtualBaseClass
	FieldEnumerator
	FieldNestedType
	FieldMethod
	FieldVFuncTab
	FieldFriend
)

func (k FieldKind) String() string {
	switch k {
	case FieldMember:
		return "member"
	case FieldStaticMember:
		return "static_member"
	case FieldBaseClass:
		return "base_class"
	case FieldVirtualBaseClass:
		return "virtual_base_class"
	case FieldEnumerator:
		return "enumerator"
	case FieldNestedType:
		return "nested_type"
	case FieldMethod:
		return "method"
	case FieldVFuncTab:
		return "vfunctab"
	case FieldFriend:
		return "friend"
	default:
		return "unknown"
	}
}

// Access is the visibility of a member or base class.
type Access uint8

const (
	AccessNone Access = iota
	AccessPrivate
	AccessProtected
	AccessPublic
)

func (a Access) String() string {
	return tpi.MemberAccess(a).String()
}

// Field is one entry of a class, union or enum field list.
type Field struct {
	Kind   FieldKind
	Name   string
	Type   TypeIndex
	Access Access

	// Offset is the byte offset of a data member or direct base class.
	Offset uint64

	// Value is set for enumerators.
	Value Numeric

	// Indirect is set for virtual bases inherited through another base.
	Indirect bool
}

func newField(f *tpi.Field) Field {
	out := Field{
		Name:   f.Name,
		Type:   TypeIndex(f.Type),
		Access: Access(f.Attributes.Access()),
		Offset: f.Offset,
		Value:  f.Value,
	}

	switch f.Kind {
	case tpi.LF_MEMBER:
		out.Kind = FieldMember
	case tpi.LF_STMEMBER:
		out.Kind = FieldStaticMember
	case tpi.LF_BCLASS:
		out.Kind = FieldBaseClass
	case tpi.LF_VBCLASS:
		out.Kind = FieldVirtualBaseClass
	case tpi.LF_IVBCLASS:
		out.Kind = FieldVirtualBaseClass
		out.Indirect = true
	case tpi.LF_ENUMERATE:
		out.Kind = FieldEnumerator
	case tpi.LF_NESTTYPE, tpi.LF_NESTTYPEEX:
		out.Kind = FieldNestedType
	case tpi.LF_ONEMETHOD, tpi.LF_METHOD:
		out.Kind = FieldMethod
	case tpi.LF_VFUNCTAB:
		out.Kind = FieldVFuncTab
	case tpi.LF_FRIENDCLS, tpi.LF_FRIENDFCN:
		out.Kind = FieldFriend
	}
	return out
}
