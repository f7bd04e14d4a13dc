package pdb

import (
	"fmt"
	"iter"
	"sync"

	"github.com/skdltmxn/pdbtypes/internal/stream"
	"github.com/skdltmxn/pdbtypes/internal/tpi"
)

// TypeKind identifies the category of a type.
type TypeKind uint16

const (
	TypeKindUnknown TypeKind = iota
	TypeKindPrimitive
	TypeKindPointer
	TypeKindArray
	TypeKindFunction
	TypeKindMemberFunction
	TypeKindClass
	TypeKindStruct
	TypeKindUnion
	TypeKindEnum
	TypeKindAlias
	TypeKindBitfield
	TypeKindModifier
	TypeKindArgList
	TypeKindFieldList
)

func (k TypeKind) String() string {
	switch k {
	case TypeKindPrimitive:
		return "primitive"
	case TypeKindPointer:
		return "pointer"
	case TypeKindArray:
		return "array"
	case TypeKindFunction:
		return "function"
	case TypeKindMemberFunction:
		return "member_function"
	case TypeKindClass:
		return "class"
	case TypeKindStruct:
		return "struct"
	case TypeKindUnion:
		return "union"
	case TypeKindEnum:
		return "enum"
	case TypeKindAlias:
		return "alias"
	case TypeKindBitfield:
		return "bitfield"
	case TypeKindModifier:
		return "modifier"
	case TypeKindArgList:
		return "arglist"
	case TypeKindFieldList:
		return "fieldlist"
	default:
		return "unknown"
	}
}

// TypeIndex is a reference to a type in the type table.
type TypeIndex uint32

// NoType is the index used where a record has no type, e.g. the trailing
// entry of a variadic argument list.
const NoType TypeIndex = 0

// IsSimpleType returns true if this is a built-in primitive type.
func (ti TypeIndex) IsSimpleType() bool {
	return tpi.TypeIndex(ti).IsSimpleType()
}

// Numeric is a decoded numeric leaf as stored for enumerator values.
type Numeric = stream.Numeric

// Type provides information about a type record.
type Type interface {
	// Index returns the type index.
	Index() TypeIndex

	// Kind returns the type kind.
	Kind() TypeKind

	// Name returns the type name (if any).
	Name() string

	// Size returns the size in bytes (0 if unknown).
	Size() uint64
}

// UserDefinedType is implemented by class, struct, union and enum types.
type UserDefinedType interface {
	Type
	UniqueName() string
	FieldList() TypeIndex
	IsForwardRef() bool
}

// PrimitiveType represents a built-in type. Pointers to built-in types are
// encoded in the index itself and reported through IsPointer.
type PrimitiveType struct {
	index     TypeIndex
	name      string
	size      uint64
	isPointer bool
}

func (t *PrimitiveType) Index() TypeIndex { return t.index }
func (t *PrimitiveType) Kind() TypeKind   { return TypeKindPrimitive }
func (t *PrimitiveType) Name() string     { return t.name }
func (t *PrimitiveType) Size() uint64     { return t.size }
func (t *PrimitiveType) IsPointer() bool  { return t.isPointer }

// PointerType represents a pointer or reference.
type PointerType struct {
	index        TypeIndex
	referentType TypeIndex
	size         uint64
	isConst      bool
	isVolatile   bool
	isReference  bool
	isRValue     bool
	isMember     bool

	containingClass TypeIndex
}

func (t *PointerType) Index() TypeIndex        { return t.index }
func (t *PointerType) Kind() TypeKind          { return TypeKindPointer }
func (t *PointerType) Name() string            { return "" }
func (t *PointerType) Size() uint64            { return t.size }
func (t *PointerType) ReferentType() TypeIndex { return t.referentType }
func (t *PointerType) IsConst() bool           { return t.isConst }
func (t *PointerType) IsVolatile() bool        { return t.isVolatile }
func (t *PointerType) IsReference() bool       { return t.isReference }
func (t *PointerType) IsRValueRef() bool       { return t.isRValue }
func (t *PointerType) IsMemberPointer() bool   { return t.isMember }

// ContainingClass is the class a pointer to member points into.
func (t *PointerType) ContainingClass() TypeIndex { return t.containingClass }

// ArrayType represents a fixed-size array. Size is the total byte size.
type ArrayType struct {
	index       TypeIndex
	elementType TypeIndex
	indexType   TypeIndex
	size        uint64
	name        string
}

func (t *ArrayType) Index() TypeIndex       { return t.index }
func (t *ArrayType) Kind() TypeKind         { return TypeKindArray }
func (t *ArrayType) Name() string           { return t.name }
func (t *ArrayType) Size() uint64           { return t.size }
func (t *ArrayType) ElementType() TypeIndex { return t.elementType }
func (t *ArrayType) IndexType() TypeIndex   { return t.indexType }

// FunctionType represents a free function signature.
type FunctionType struct {
	index          TypeIndex
	returnType     TypeIndex
	argumentList   TypeIndex
	parameterCount uint16
}

func (t *FunctionType) Index() TypeIndex        { return t.index }
func (t *FunctionType) Kind() TypeKind          { return TypeKindFunction }
func (t *FunctionType) Name() string            { return "" }
func (t *FunctionType) Size() uint64            { return 0 }
func (t *FunctionType) ReturnType() TypeIndex   { return t.returnType }
func (t *FunctionType) ArgumentList() TypeIndex { return t.argumentList }
func (t *FunctionType) ParameterCount() uint16  { return t.parameterCount }

// MemberFunctionType represents a member function signature.
type MemberFunctionType struct {
	index        TypeIndex
	returnType   TypeIndex
	classType    TypeIndex
	thisType     TypeIndex
	argumentList TypeIndex
}

func (t *MemberFunctionType) Index() TypeIndex        { return t.index }
func (t *MemberFunctionType) Kind() TypeKind          { return TypeKindMemberFunction }
func (t *MemberFunctionType) Name() string            { return "" }
func (t *MemberFunctionType) Size() uint64            { return 0 }
func (t *MemberFunctionType) ReturnType() TypeIndex   { return t.returnType }
func (t *MemberFunctionType) ClassType() TypeIndex    { return t.classType }
func (t *MemberFunctionType) ThisType() TypeIndex     { return t.thisType }
func (t *MemberFunctionType) ArgumentList() TypeIndex { return t.argumentList }

// ArgListType is the parameter list of a function signature.
type ArgListType struct {
	index TypeIndex
	args  []TypeIndex
}

func (t *ArgListType) Index() TypeIndex  { return t.index }
func (t *ArgListType) Kind() TypeKind    { return TypeKindArgList }
func (t *ArgListType) Name() string      { return "" }
func (t *ArgListType) Size() uint64      { return 0 }
func (t *ArgListType) Args() []TypeIndex { return t.args }

// udt holds what class, struct and union records share.
type udt struct {
	index        TypeIndex
	name         string
	uniqueName   string
	size         uint64
	memberCount  uint16
	fieldList    TypeIndex
	isForwardRef bool
}

func (t *udt) Index() TypeIndex     { return t.index }
func (t *udt) Name() string         { return t.name }
func (t *udt) Size() uint64         { return t.size }
func (t *udt) UniqueName() string   { return t.uniqueName }
func (t *udt) MemberCount() uint16  { return t.memberCount }
func (t *udt) FieldList() TypeIndex { return t.fieldList }
func (t *udt) IsForwardRef() bool   { return t.isForwardRef }

// ClassType represents a class, struct or interface. Kind distinguishes the
// declaring keyword.
type ClassType struct {
	udt
	kind        TypeKind
	derivedFrom TypeIndex
	vshape      TypeIndex
}

func (t *ClassType) Kind() TypeKind         { return t.kind }
func (t *ClassType) DerivedFrom() TypeIndex { return t.derivedFrom }
func (t *ClassType) VShape() TypeIndex      { return t.vshape }

// UnionType represents a union.
type UnionType struct {
	udt
}

func (t *UnionType) Kind() TypeKind { return TypeKindUnion }

// EnumType represents an enum type.
type EnumType struct {
	index          TypeIndex
	name           string
	uniqueName     string
	underlyingType TypeIndex
	fieldList      TypeIndex
	count          uint16
	size           uint64
	isForwardRef   bool
	isScoped       bool
}

func (t *EnumType) Index() TypeIndex          { return t.index }
func (t *EnumType) Kind() TypeKind            { return TypeKindEnum }
func (t *EnumType) Name() string              { return t.name }
func (t *EnumType) Size() uint64              { return t.size }
func (t *EnumType) UniqueName() string        { return t.uniqueName }
func (t *EnumType) UnderlyingType() TypeIndex { return t.underlyingType }
func (t *EnumType) FieldList() TypeIndex      { return t.fieldList }
func (t *EnumType) Count() uint16             { return t.count }
func (t *EnumType) IsForwardRef() bool        { return t.isForwardRef }
func (t *EnumType) IsScoped() bool            { return t.isScoped }

// AliasType represents a typedef.
type AliasType struct {
	index          TypeIndex
	name           string
	underlyingType TypeIndex
}

func (t *AliasType) Index() TypeIndex          { return t.index }
func (t *AliasType) Kind() TypeKind            { return TypeKindAlias }
func (t *AliasType) Name() string              { return t.name }
func (t *AliasType) Size() uint64              { return 0 }
func (t *AliasType) UnderlyingType() TypeIndex { return t.underlyingType }

// BitfieldType represents a bitfield type.
type BitfieldType struct {
	index          TypeIndex
	underlyingType TypeIndex
	length         uint8
	position       uint8
}

func (t *BitfieldType) Index() TypeIndex          { return t.index }
func (t *BitfieldType) Kind() TypeKind            { return TypeKindBitfield }
func (t *BitfieldType) Name() string              { return "" }
func (t *BitfieldType) Size() uint64              { return 0 }
func (t *BitfieldType) UnderlyingType() TypeIndex { return t.underlyingType }
func (t *BitfieldType) Length() uint8             { return t.length }
func (t *BitfieldType) Position() uint8           { return t.position }

// ModifierType represents a modified type (const, volatile, etc.).
type ModifierType struct {
	index        TypeIndex
	modifiedType TypeIndex
	isConst      bool
	isVolatile   bool
	isUnaligned  bool
}

func (t *ModifierType) Index() TypeIndex        { return t.index }
func (t *ModifierType) Kind() TypeKind          { return TypeKindModifier }
func (t *ModifierType) Name() string            { return "" }
func (t *ModifierType) Size() uint64            { return 0 }
func (t *ModifierType) ModifiedType() TypeIndex { return t.modifiedType }
func (t *ModifierType) IsConst() bool           { return t.isConst }
func (t *ModifierType) IsVolatile() bool        { return t.isVolatile }
func (t *ModifierType) IsUnaligned() bool       { return t.isUnaligned }

// FieldListType is one LF_FIELDLIST record. Use TypeTable.Fields to read a
// whole list including its continuations.
type FieldListType struct {
	index        TypeIndex
	fields       []Field
	continuation TypeIndex
}

func (t *FieldListType) Index() TypeIndex        { return t.index }
func (t *FieldListType) Kind() TypeKind          { return TypeKindFieldList }
func (t *FieldListType) Name() string            { return "" }
func (t *FieldListType) Size() uint64            { return 0 }
func (t *FieldListType) Fields() []Field         { return t.fields }
func (t *FieldListType) Continuation() TypeIndex { return t.continuation }

// TypeTable provides access to types in the PDB.
type TypeTable struct {
	tpiStream *tpi.Stream

	// Lazy-loaded types
	typeCache sync.Map // map[TypeIndex]Type

	// Complete definitions by unique name (or name when there is none)
	definitions     map[string]TypeIndex
	definitionsOnce sync.Once
}

func newTypeTable(tpiStream *tpi.Stream) *TypeTable {
	return &TypeTable{
		tpiStream: tpiStream,
	}
}

// All returns an iterator over all types in stream order. Records that fail
// to decode are skipped; use ByIndex to observe the error.
func (tt *TypeTable) All() iter.Seq[Type] {
	return func(yield func(Type) bool) {
		begin := tt.tpiStream.TypeIndexBegin()
		end := tt.tpiStream.TypeIndexEnd()

		for ti := begin; ti < end; ti++ {
			typ, err := tt.ByIndex(TypeIndex(ti))
			if err != nil || typ == nil {
				continue
			}
			if !yield(typ) {
				return
			}
		}
	}
}

// ByIndex returns the type at the given index.
func (tt *TypeTable) ByIndex(index TypeIndex) (Type, error) {
	if cached, ok := tt.typeCache.Load(index); ok {
		return cached.(Type), nil
	}

	if index.IsSimpleType() {
		typ := tt.parseSimpleType(index)
		tt.typeCache.Store(index, typ)
		return typ, nil
	}

	record, err := tt.tpiStream.GetTypeRecord(tpi.TypeIndex(index))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTypeNotFound, err)
	}

	typ, err := tt.parseTypeRecord(index, record)
	if err != nil {
		return nil, &ParseError{Stream: "TPI", Offset: int64(index), Message: fmt.Sprintf("record 0x%x (leaf 0x%04x)", uint32(index), uint16(record.Kind)), Err: err}
	}

	tt.typeCache.Store(index, typ)
	return typ, nil
}

// Fields returns every entry of the field list at index, following LF_INDEX
// continuations.
func (tt *TypeTable) Fields(index TypeIndex) ([]Field, error) {
	var (
		fields []Field
		seen   = make(map[TypeIndex]bool)
	)
	for index != NoType && !seen[index] {
		seen[index] = true

		typ, err := tt.ByIndex(index)
		if err != nil {
			return nil, err
		}
		fl, ok := typ.(*FieldListType)
		if !ok {
			return nil, fmt.Errorf("%w: 0x%x is a %s, not a field list", ErrInvalidStream, uint32(index), typ.Kind())
		}
		fields = append(fields, fl.fields...)
		index = fl.continuation
	}
	return fields, nil
}

// Definition returns the complete definition for a forward reference,
// matched by unique name or, lacking one, by name. Types that are not
// forward references are returned unchanged. ok is false when the file holds
// no definition.
func (tt *TypeTable) Definition(t UserDefinedType) (UserDefinedType, bool) {
	if !t.IsForwardRef() {
		return t, true
	}
	tt.buildDefinitionIndex()

	index, found := tt.definitions[definitionKey(t)]
	if !found {
		return t, false
	}
	def, err := tt.ByIndex(index)
	if err != nil {
		return t, false
	}
	return def.(UserDefinedType), true
}

func (tt *TypeTable) buildDefinitionIndex() {
	tt.definitionsOnce.Do(func() {
		tt.definitions = make(map[string]TypeIndex)

		for typ := range tt.All() {
			u, ok := typ.(UserDefinedType)
			if !ok || u.IsForwardRef() {
				continue
			}
			key := definitionKey(u)
			if _, dup := tt.definitions[key]; !dup {
				tt.definitions[key] = u.Index()
			}
		}
	})
}

// definitionKey includes the kind so that a struct and an enum sharing a
// name never resolve to each other.
func definitionKey(t UserDefinedType) string {
	name := t.UniqueName()
	if name == "" {
		name = t.Name()
	}
	kind := t.Kind()
	if kind == TypeKindStruct {
		// struct and class forward references are interchangeable
		kind = TypeKindClass
	}
	return kind.String() + ":" + name
}

// Count returns the total number of types.
func (tt *TypeTable) Count() uint32 {
	return tt.tpiStream.TypeCount()
}

// FirstIndex returns the first valid type index.
func (tt *TypeTable) FirstIndex() TypeIndex {
	return TypeIndex(tt.tpiStream.TypeIndexBegin())
}

// LastIndex returns the last valid type index.
func (tt *TypeTable) LastIndex() TypeIndex {
	return TypeIndex(tt.tpiStream.TypeIndexEnd() - 1)
}

func (tt *TypeTable) parseSimpleType(index TypeIndex) Type {
	ti := tpi.TypeIndex(index)
	name, size := simpleTypeName(ti.SimpleKind())

	mode := ti.SimpleMode()
	isPointer := mode != tpi.SimpleModeDirect
	if isPointer {
		switch mode {
		case tpi.SimpleModeNearPointer, tpi.SimpleModeNearPointer32, tpi.SimpleModeFarPointer32:
			size = 4
		case tpi.SimpleModeNearPointer64:
			size = 8
		case tpi.SimpleModeNearPointer128:
			size = 16
		default:
			size = 2
		}
	}

	return &PrimitiveType{
		index:     index,
		name:      name,
		size:      size,
		isPointer: isPointer,
	}
}

func simpleTypeName(kind tpi.SimpleTypeKind) (string, uint64) {
	switch kind {
	case tpi.SimpleTypeVoid:
		return "void", 0
	case tpi.SimpleTypeSignedChar:
		return "signed char", 1
	case tpi.SimpleTypeUnsignedChar:
		return "unsigned char", 1
	case tpi.SimpleTypeNarrowChar:
		return "char", 1
	case tpi.SimpleTypeWideChar:
		return "wchar_t", 2
	case tpi.SimpleTypeChar16:
		return "char16_t", 2
	case tpi.SimpleTypeChar32:
		return "char32_t", 4
	case tpi.SimpleTypeChar8:
		return "char8_t", 1
	case tpi.SimpleTypeSByte:
		return "int8_t", 1
	case tpi.SimpleTypeByte:
		return "uint8_t", 1
	case tpi.SimpleTypeInt16Short, tpi.SimpleTypeInt16:
		return "short", 2
	case tpi.SimpleTypeUInt16Short, tpi.SimpleTypeUInt16:
		return "unsigned short", 2
	case tpi.SimpleTypeInt32Long:
		return "long", 4
	case tpi.SimpleTypeUInt32Long:
		return "unsigned long", 4
	case tpi.SimpleTypeInt32:
		return "int", 4
	case tpi.SimpleTypeUInt32:
		return "unsigned int", 4
	case tpi.SimpleTypeInt64Quad, tpi.SimpleTypeInt64:
		return "int64_t", 8
	case tpi.SimpleTypeUInt64Quad, tpi.SimpleTypeUInt64:
		return "uint64_t", 8
	case tpi.SimpleTypeInt128Oct, tpi.SimpleTypeInt128:
		return "__int128", 16
	case tpi.SimpleTypeUInt128Oct, tpi.SimpleTypeUInt128:
		return "unsigned __int128", 16
	case tpi.SimpleTypeFloat16:
		return "_Float16", 2
	case tpi.SimpleTypeFloat32:
		return "float", 4
	case tpi.SimpleTypeFloat64:
		return "double", 8
	case tpi.SimpleTypeFloat80:
		return "long double", 10
	case tpi.SimpleTypeFloat128:
		return "__float128", 16
	case tpi.SimpleTypeBool8:
		return "bool", 1
	case tpi.SimpleTypeBool16:
		return "bool16", 2
	case tpi.SimpleTypeBool32:
		return "bool32", 4
	case tpi.SimpleTypeBool64:
		return "bool64", 8
	case tpi.SimpleTypeHResult:
		return "HRESULT", 4
	default:
		return "void", 0
	}
}

func (tt *TypeTable) parseTypeRecord(index TypeIndex, record *tpi.TypeRecord) (Type, error) {
	switch record.Kind {
	case tpi.LF_CLASS_ST, tpi.LF_STRUCTURE_ST, tpi.LF_UNION_ST, tpi.LF_ENUM_ST:
		return nil, fmt.Errorf("%w: pre-7.0 type record", ErrUnsupportedVersion)

	case tpi.LF_MODIFIER:
		rec, err := tpi.ParseModifierRecord(record.Data)
		if err != nil {
			return nil, err
		}
		return &ModifierType{
			index:        index,
			modifiedType: TypeIndex(rec.ModifiedType),
			isConst:      rec.Modifiers.IsConst(),
			isVolatile:   rec.Modifiers.IsVolatile(),
			isUnaligned:  rec.Modifiers.IsUnaligned(),
		}, nil

	case tpi.LF_POINTER:
		rec, err := tpi.ParsePointerRecord(record.Data)
		if err != nil {
			return nil, err
		}
		mode := rec.Attributes.Mode()
		return &PointerType{
			index:        index,
			referentType: TypeIndex(rec.ReferentType),
			size:         uint64(rec.Attributes.Size()),
			isConst:      rec.Attributes.IsConst(),
			isVolatile:   rec.Attributes.IsVolatile(),
			isReference:  mode == tpi.PointerModeLValueReference,
			isRValue:     mode == tpi.PointerModeRValueReference,
			isMember:     mode == tpi.PointerModePointerToDataMember || mode == tpi.PointerModePointerToMemberFunction,

			containingClass: TypeIndex(rec.ContainingClass),
		}, nil

	case tpi.LF_ARRAY:
		rec, err := tpi.ParseArrayRecord(record.Data)
		if err != nil {
			return nil, err
		}
		return &ArrayType{
			index:       index,
			elementType: TypeIndex(rec.ElementType),
			indexType:   TypeIndex(rec.IndexType),
			size:        rec.Size,
			name:        rec.Name,
		}, nil

	case tpi.LF_PROCEDURE:
		rec, err := tpi.ParseProcedureRecord(record.Data)
		if err != nil {
			return nil, err
		}
		return &FunctionType{
			index:          index,
			returnType:     TypeIndex(rec.ReturnType),
			argumentList:   TypeIndex(rec.ArgumentList),
			parameterCount: rec.ParameterCount,
		}, nil

	case tpi.LF_MFUNCTION:
		rec, err := tpi.ParseMFunctionRecord(record.Data)
		if err != nil {
			return nil, err
		}
		return &MemberFunctionType{
			index:        index,
			returnType:   TypeIndex(rec.ReturnType),
			classType:    TypeIndex(rec.ClassType),
			thisType:     TypeIndex(rec.ThisType),
			argumentList: TypeIndex(rec.ArgumentList),
		}, nil

	case tpi.LF_ARGLIST:
		rec, err := tpi.ParseArgListRecord(record.Data)
		if err != nil {
			return nil, err
		}
		args := make([]TypeIndex, len(rec.ArgTypes))
		for i, a := range rec.ArgTypes {
			args[i] = TypeIndex(a)
		}
		return &ArgListType{index: index, args: args}, nil

	case tpi.LF_CLASS, tpi.LF_STRUCTURE, tpi.LF_INTERFACE:
		rec, err := tpi.ParseClassRecord(record.Data)
		if err != nil {
			return nil, err
		}
		kind := TypeKindClass
		if record.Kind == tpi.LF_STRUCTURE {
			kind = TypeKindStruct
		}
		return &ClassType{
			udt: udt{
				index:        index,
				name:         rec.Name,
				uniqueName:   rec.UniqueName,
				size:         rec.Size,
				memberCount:  rec.MemberCount,
				fieldList:    TypeIndex(rec.FieldList),
				isForwardRef: rec.Properties.IsForwardRef(),
			},
			kind:        kind,
			derivedFrom: TypeIndex(rec.DerivedFrom),
			vshape:      TypeIndex(rec.VShape),
		}, nil

	case tpi.LF_UNION:
		rec, err := tpi.ParseUnionRecord(record.Data)
		if err != nil {
			return nil, err
		}
		return &UnionType{udt{
			index:        index,
			name:         rec.Name,
			uniqueName:   rec.UniqueName,
			size:         rec.Size,
			memberCount:  rec.MemberCount,
			fieldList:    TypeIndex(rec.FieldList),
			isForwardRef: rec.Properties.IsForwardRef(),
		}}, nil

	case tpi.LF_ENUM:
		rec, err := tpi.ParseEnumRecord(record.Data)
		if err != nil {
			return nil, err
		}
		var size uint64
		if rec.UnderlyingType.IsSimpleType() {
			_, size = simpleTypeName(rec.UnderlyingType.SimpleKind())
		}
		return &EnumType{
			index:          index,
			name:           rec.Name,
			uniqueName:     rec.UniqueName,
			underlyingType: TypeIndex(rec.UnderlyingType),
			fieldList:      TypeIndex(rec.FieldList),
			count:          rec.Count,
			size:           size,
			isForwardRef:   rec.Properties.IsForwardRef(),
			isScoped:       rec.Properties.IsScoped(),
		}, nil

	case tpi.LF_ALIAS:
		rec, err := tpi.ParseAliasRecord(record.Data)
		if err != nil {
			return nil, err
		}
		return &AliasType{
			index:          index,
			name:           rec.Name,
			underlyingType: TypeIndex(rec.UnderlyingType),
		}, nil

	case tpi.LF_BITFIELD:
		rec, err := tpi.ParseBitFieldRecord(record.Data)
		if err != nil {
			return nil, err
		}
		return &BitfieldType{
			index:          index,
			underlyingType: TypeIndex(rec.Type),
			length:         rec.Length,
			position:       rec.Position,
		}, nil

	case tpi.LF_FIELDLIST:
		rec, err := tpi.ParseFieldList(record.Data)
		if err != nil {
			return nil, err
		}
		fields := make([]Field, len(rec.Fields))
		for i := range rec.Fields {
			fields[i] = newField(&rec.Fields[i])
		}
		return &FieldListType{
			index:        index,
			fields:       fields,
			continuation: TypeIndex(rec.Continuation),
		}, nil

	default:
		return &genericType{
			index: index,
			kind:  TypeKindUnknown,
		}, nil
	}
}

// genericType is used for kinds nothing here needs to look into.
type genericType struct {
	index TypeIndex
	kind  TypeKind
}

func (t *genericType) Index() TypeIndex { return t.index }
func (t *genericType) Kind() TypeKind   { return t.kind }
func (t *genericType) Name() string     { return "" }
func (t *genericType) Size() uint64     { return 0 }
