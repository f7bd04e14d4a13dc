package catalog

import (
	"fmt"
	"strings"

	"github.com/skdltmxn/pdbtypes/pdb"
)

// ExprKind identifies a node of a TypeExpr.
type ExprKind uint8

const (
	// ExprPrimitive is a built-in type; Name holds its spelling.
	ExprPrimitive ExprKind = iota
	// ExprNamed refers to a record by Ref and Name.
	ExprNamed
	// ExprInline refers to an anonymous record rendered in place.
	ExprInline
	ExprPointer
	ExprLValueRef
	ExprRValueRef
	// ExprArray has Count elements of Elem.
	ExprArray
	// ExprFunction returns Elem and takes Params.
	ExprFunction
	// ExprBitfield is BitLength bits of Elem.
	ExprBitfield
)

// TypeExpr is the type of a member, written as a tree. It is self-contained:
// rendering a TypeExpr never needs the type stream.
type TypeExpr struct {
	Kind ExprKind
	Name string
	Ref  ID

	Elem     *TypeExpr
	Count    uint64
	Params   []*TypeExpr
	Variadic bool

	BitLength   uint8
	BitPosition uint8

	// Class is the named class of a pointer to member.
	Class *TypeExpr

	// Qualifiers apply to this node: "const int" on a primitive, "* const"
	// on a pointer.
	Const    bool
	Volatile bool
}

// IsIndirect reports whether the node only needs its target declared, not
// defined, e.g. a pointer or function signature.
func (e *TypeExpr) IsIndirect() bool {
	switch e.Kind {
	case ExprPointer, ExprLValueRef, ExprRValueRef, ExprFunction:
		return true
	}
	return false
}

// Refs calls fn for every record reachable from e. indirect is true when
// the path from e to the record passes through a pointer, reference or
// function signature.
func (e *TypeExpr) Refs(fn func(id ID, indirect bool)) {
	e.refs(false, fn)
}

func (e *TypeExpr) refs(indirect bool, fn func(ID, bool)) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ExprNamed, ExprInline:
		fn(e.Ref, indirect)
		return
	}
	if e.IsIndirect() {
		indirect = true
	}
	e.Elem.refs(indirect, fn)
	e.Class.refs(true, fn)
	for _, p := range e.Params {
		p.refs(true, fn)
	}
}

// maxExprDepth bounds type expression nesting; only a corrupt stream
// reaches it.
const maxExprDepth = 64

// converter builds TypeExprs from the type table. It is safe for
// concurrent use because the table is.
type converter struct {
	types *pdb.TypeTable
}

func (c *converter) expr(ti pdb.TypeIndex) (*TypeExpr, error) {
	return c.exprDepth(ti, 0)
}

func (c *converter) exprDepth(ti pdb.TypeIndex, depth int) (*TypeExpr, error) {
	if depth > maxExprDepth {
		return nil, fmt.Errorf("%w: type 0x%x nests too deeply", ErrMalformed, uint32(ti))
	}
	if ti == pdb.NoType {
		return &TypeExpr{Kind: ExprPrimitive, Name: "void"}, nil
	}

	typ, err := c.types.ByIndex(ti)
	if err != nil {
		return nil, err
	}

	switch t := typ.(type) {
	case *pdb.PrimitiveType:
		prim := &TypeExpr{Kind: ExprPrimitive, Name: t.Name()}
		if t.IsPointer() {
			return &TypeExpr{Kind: ExprPointer, Elem: prim}, nil
		}
		return prim, nil

	case *pdb.ModifierType:
		e, err := c.exprDepth(t.ModifiedType(), depth+1)
		if err != nil {
			return nil, err
		}
		e.Const = e.Const || t.IsConst()
		e.Volatile = e.Volatile || t.IsVolatile()
		return e, nil

	case *pdb.PointerType:
		elem, err := c.exprDepth(t.ReferentType(), depth+1)
		if err != nil {
			return nil, err
		}
		kind := ExprPointer
		switch {
		case t.IsReference():
			kind = ExprLValueRef
		case t.IsRValueRef():
			kind = ExprRValueRef
		}
		e := &TypeExpr{Kind: kind, Elem: elem, Const: t.IsConst(), Volatile: t.IsVolatile()}
		if t.IsMemberPointer() {
			cls, err := c.exprDepth(t.ContainingClass(), depth+1)
			if err != nil {
				return nil, err
			}
			if cls.Kind != ExprNamed {
				return nil, fmt.Errorf("%w: pointer 0x%x points into a non-class", ErrMalformed, uint32(ti))
			}
			e.Class = cls
		}
		return e, nil

	case *pdb.ArrayType:
		elem, err := c.exprDepth(t.ElementType(), depth+1)
		if err != nil {
			return nil, err
		}
		var count uint64
		if size := c.sizeOf(t.ElementType(), 0); size > 0 {
			count = t.Size() / size
		}
		return &TypeExpr{Kind: ExprArray, Elem: elem, Count: count}, nil

	case *pdb.FunctionType:
		return c.function(t.ReturnType(), t.ArgumentList(), depth)

	case *pdb.MemberFunctionType:
		return c.function(t.ReturnType(), t.ArgumentList(), depth)

	case *pdb.BitfieldType:
		elem, err := c.exprDepth(t.UnderlyingType(), depth+1)
		if err != nil {
			return nil, err
		}
		return &TypeExpr{Kind: ExprBitfield, Elem: elem, BitLength: t.Length(), BitPosition: t.Position()}, nil

	case pdb.UserDefinedType:
		def, _ := c.types.Definition(t)
		kind := ExprNamed
		if IsAnonymousName(def.Name()) {
			kind = ExprInline
		}
		return &TypeExpr{Kind: kind, Name: def.Name(), Ref: ID(def.Index())}, nil

	case *pdb.AliasType:
		return &TypeExpr{Kind: ExprNamed, Name: t.Name(), Ref: ID(t.Index())}, nil

	default:
		return nil, fmt.Errorf("%w: type 0x%x of kind %s cannot be a member type", ErrMalformed, uint32(ti), typ.Kind())
	}
}

func (c *converter) function(ret, argList pdb.TypeIndex, depth int) (*TypeExpr, error) {
	r, err := c.exprDepth(ret, depth+1)
	if err != nil {
		return nil, err
	}
	fn := &TypeExpr{Kind: ExprFunction, Elem: r}
	if argList == pdb.NoType {
		return fn, nil
	}

	typ, err := c.types.ByIndex(argList)
	if err != nil {
		return nil, err
	}
	args, ok := typ.(*pdb.ArgListType)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x is not an argument list", ErrMalformed, uint32(argList))
	}
	for i, a := range args.Args() {
		// a trailing untyped entry marks "..."
		if a == pdb.NoType && i == len(args.Args())-1 {
			fn.Variadic = true
			break
		}
		p, err := c.exprDepth(a, depth+1)
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, p)
	}
	return fn, nil
}

// sizeOf returns the byte size of ti, or 0 when unknown.
func (c *converter) sizeOf(ti pdb.TypeIndex, depth int) uint64 {
	if depth > maxExprDepth {
		return 0
	}
	typ, err := c.types.ByIndex(ti)
	if err != nil {
		return 0
	}
	switch t := typ.(type) {
	case *pdb.ModifierType:
		return c.sizeOf(t.ModifiedType(), depth+1)
	case *pdb.AliasType:
		return c.sizeOf(t.UnderlyingType(), depth+1)
	case *pdb.BitfieldType:
		return c.sizeOf(t.UnderlyingType(), depth+1)
	case *pdb.PointerType:
		if t.Size() == 0 {
			return 8
		}
		return t.Size()
	case pdb.UserDefinedType:
		def, _ := c.types.Definition(t)
		return def.Size()
	default:
		return typ.Size()
	}
}

// IsAnonymousName reports whether name is one the compiler invents for
// an unnamed struct, union or enum.
func IsAnonymousName(name string) bool {
	return strings.Contains(name, "<unnamed-") ||
		strings.Contains(name, "<anonymous-") ||
		strings.Contains(name, "__unnamed")
}
