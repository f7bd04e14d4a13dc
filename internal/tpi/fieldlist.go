package tpi

import (
	"fmt"

	"github.com/skdltmxn/pdbtypes/internal/stream"
)

// Field is one entry of an LF_FIELDLIST record. Which members are set
// depends on Kind:
//
//	LF_MEMBER            Attributes, Type, Offset, Name
//	LF_STMEMBER          Attributes, Type, Name
//	LF_BCLASS            Attributes, Type, Offset
//	LF_VBCLASS/IVBCLASS  Attributes, Type, VBPtrType, VBPtrOffset, VBTableIndex
//	LF_ENUMERATE         Attributes, Value, Name
//	LF_NESTTYPE(EX)      Type, Name
//	LF_ONEMETHOD         Attributes, Type, Name
//	LF_METHOD            Type (method list), Count, Name
//	LF_VFUNCTAB          Type
//	LF_FRIENDCLS         Type
//	LF_FRIENDFCN         Type, Name
type Field struct {
	Kind       TypeRecordKind
	Attributes MemberAttributes
	Type       TypeIndex
	Offset     uint64
	Value      stream.Numeric
	Name       string
	Count      uint16

	VBPtrType    TypeIndex
	VBPtrOffset  uint64
	VBTableIndex uint64
}

// IsDataMember reports whether the field contributes storage to the layout.
func (f *Field) IsDataMember() bool { return f.Kind == LF_MEMBER }

// IsBaseClass reports whether the field is a direct or virtual base.
func (f *Field) IsBaseClass() bool {
	return f.Kind == LF_BCLASS || f.Kind == LF_VBCLASS || f.Kind == LF_IVBCLASS
}

// FieldList is a decoded LF_FIELDLIST record. Long lists are split across
// several records chained through LF_INDEX; Continuation holds the next
// record's index, or 0 at the end of the chain.
type FieldList struct {
	Fields       []Field
	Continuation TypeIndex
}

// ParseFieldList decodes the body of an LF_FIELDLIST record.
func ParseFieldList(data []byte) (*FieldList, error) {
	r := stream.NewReader(data)
	fl := &FieldList{}

	for r.Remaining() > 0 {
		start := r.Offset()
		kind, err := r.ReadU16()
		if err != nil {
			return nil, err
		}

		f := Field{Kind: TypeRecordKind(kind)}
		switch f.Kind {
		case LF_MEMBER:
			err = parseMember(r, &f)
		case LF_STMEMBER:
			err = parseStaticMember(r, &f)
		case LF_BCLASS:
			err = parseBaseClass(r, &f)
		case LF_VBCLASS, LF_IVBCLASS:
			err = parseVirtualBaseClass(r, &f)
		case LF_ENUMERATE:
			err = parseEnumerate(r, &f)
		case LF_NESTTYPE, LF_FRIENDFCN:
			err = parsePaddedTypeName(r, &f)
		case LF_NESTTYPEEX:
			err = parseNestTypeEx(r, &f)
		case LF_ONEMETHOD:
			err = parseOneMethod(r, &f)
		case LF_METHOD:
			err = parseMethod(r, &f)
		case LF_VFUNCTAB, LF_FRIENDCLS:
			err = parsePaddedType(r, &f)
		case LF_INDEX:
			if err = parsePaddedType(r, &f); err == nil {
				fl.Continuation = f.Type
			}
		default:
			// Sub-records carry no length, so an unknown leaf ends the walk.
			return nil, fmt.Errorf("%w: unknown field leaf 0x%04x at offset %d", ErrInvalidTypeRecord, kind, start)
		}
		if err != nil {
			return nil, fmt.Errorf("tpi: field leaf 0x%04x at offset %d: %w", kind, start, err)
		}

		if f.Kind != LF_INDEX {
			fl.Fields = append(fl.Fields, f)
		}
		if err := r.SkipPadding(); err != nil {
			return nil, err
		}
	}
	return fl, nil
}

func readAttributes(r *stream.Reader, f *Field) error {
	attrs, err := r.ReadU16()
	f.Attributes = MemberAttributes(attrs)
	return err
}

func readType(r *stream.Reader) (TypeIndex, error) {
	v, err := r.ReadU32()
	return TypeIndex(v), err
}

func parseMember(r *stream.Reader, f *Field) (err error) {
	if err = readAttributes(r, f); err != nil {
		return err
	}
	if f.Type, err = readType(r); err != nil {
		return err
	}
	if f.Offset, err = r.ReadNumeric(); err != nil {
		return err
	}
	f.Name, err = r.ReadCString()
	return err
}

func parseStaticMember(r *stream.Reader, f *Field) (err error) {
	if err = readAttributes(r, f); err != nil {
		return err
	}
	if f.Type, err = readType(r); err != nil {
		return err
	}
	f.Name, err = r.ReadCString()
	return err
}

func parseBaseClass(r *stream.Reader, f *Field) (err error) {
	if err = readAttributes(r, f); err != nil {
		return err
	}
	if f.Type, err = readType(r); err != nil {
		return err
	}
	f.Offset, err = r.ReadNumeric()
	return err
}

func parseVirtualBaseClass(r *stream.Reader, f *Field) (err error) {
	if err = readAttributes(r, f); err != nil {
		return err
	}
	if f.Type, err = readType(r); err != nil {
		return err
	}
	if f.VBPtrType, err = readType(r); err != nil {
		return err
	}
	if f.VBPtrOffset, err = r.ReadNumeric(); err != nil {
		return err
	}
	f.VBTableIndex, err = r.ReadNumeric()
	return err
}

func parseEnumerate(r *stream.Reader, f *Field) (err error) {
	if err = readAttributes(r, f); err != nil {
		return err
	}
	if f.Value, err = r.ReadNumericValue(); err != nil {
		return err
	}
	f.Name, err = r.ReadCString()
	return err
}

// parsePaddedType reads the two reserved bytes and type index shared by
// LF_INDEX, LF_VFUNCTAB and LF_FRIENDCLS.
func parsePaddedType(r *stream.Reader, f *Field) (err error) {
	if err = r.Skip(2); err != nil {
		return err
	}
	f.Type, err = readType(r)
	return err
}

func parsePaddedTypeName(r *stream.Reader, f *Field) (err error) {
	if err = parsePaddedType(r, f); err != nil {
		return err
	}
	f.Name, err = r.ReadCString()
	return err
}

func parseNestTypeEx(r *stream.Reader, f *Field) (err error) {
	if err = readAttributes(r, f); err != nil {
		return err
	}
	if f.Type, err = readType(r); err != nil {
		return err
	}
	f.Name, err = r.ReadCString()
	return err
}

func parseOneMethod(r *stream.Reader, f *Field) (err error) {
	if err = readAttributes(r, f); err != nil {
		return err
	}
	if f.Type, err = readType(r); err != nil {
		return err
	}
	if f.Attributes.MethodKind().IsIntroducing() {
		// vftable offset
		if err = r.Skip(4); err != nil {
			return err
		}
	}
	f.Name, err = r.ReadCString()
	return err
}

func parseMethod(r *stream.Reader, f *Field) (err error) {
	if f.Count, err = r.ReadU16(); err != nil {
		return err
	}
	if f.Type, err = readType(r); err != nil {
		return err
	}
	f.Name, err = r.ReadCString()
	return err
}
