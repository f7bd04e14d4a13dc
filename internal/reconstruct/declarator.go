package reconstruct

import (
	"strconv"
	"strings"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
)

// declare renders e as a C declaration around inner, which starts out as
// the declared name and may be empty for an abstract declarator such as a
// parameter type. depth is the indentation level for anonymous bodies.
func (w *writer) declare(e *catalog.TypeExpr, inner string, depth int) string {
	switch e.Kind {
	case catalog.ExprPointer, catalog.ExprLValueRef, catalog.ExprRValueRef:
		op := "*"
		if e.Class != nil {
			op = e.Class.Name + "::*"
		}
		switch e.Kind {
		case catalog.ExprLValueRef:
			op = "&"
		case catalog.ExprRValueRef:
			op = "&&"
		}
		quals := qualifiers(e)
		if quals != "" {
			op += " " + strings.TrimSpace(quals)
			if inner != "" {
				op += " "
			}
		} else if e.Class != nil && inner != "" {
			op += " "
		}
		return w.declare(e.Elem, op+inner, depth)

	case catalog.ExprArray:
		if startsWithPointer(inner) {
			inner = "(" + inner + ")"
		}
		count := ""
		if e.Count > 0 {
			count = strconv.FormatUint(e.Count, 10)
		}
		// a qualified array is an array of qualified elements
		elem := e.Elem
		if e.Const || e.Volatile {
			q := *elem
			q.Const = q.Const || e.Const
			q.Volatile = q.Volatile || e.Volatile
			elem = &q
		}
		return w.declare(elem, inner+"["+count+"]", depth)

	case catalog.ExprFunction:
		if startsWithPointer(inner) {
			inner = "(" + inner + ")"
		}
		params := make([]string, 0, len(e.Params)+1)
		for _, p := range e.Params {
			params = append(params, w.declare(p, "", depth))
		}
		if e.Variadic {
			params = append(params, "...")
		}
		return w.declare(e.Elem, inner+"("+strings.Join(params, ", ")+")", depth)

	case catalog.ExprBitfield:
		return w.declare(e.Elem, inner, depth) + " : " + strconv.Itoa(int(e.BitLength))

	default:
		return join(qualifiers(e)+w.specifier(e, depth), inner)
	}
}

// specifier is the type name a declarator is built around. Anonymous
// records expand to their full body.
func (w *writer) specifier(e *catalog.TypeExpr, depth int) string {
	if e.Kind == catalog.ExprInline {
		if rec, ok := w.g.Lookup(e.Ref); ok {
			return w.inlineBody(rec, depth)
		}
	}
	return e.Name
}

func qualifiers(e *catalog.TypeExpr) string {
	var q string
	if e.Const {
		q += "const "
	}
	if e.Volatile {
		q += "volatile "
	}
	return q
}

func startsWithPointer(s string) bool {
	if strings.HasPrefix(s, "*") || strings.HasPrefix(s, "&") {
		return true
	}
	// "Foo::* p"
	i := strings.Index(s, "::*")
	return i > 0 && !strings.ContainsAny(s[:i], "()[]")
}

// join glues a type specifier to its declarator. Leading pointer and
// reference operators stay with the type: "int* p", "char* const s".
func join(spec, inner string) string {
	if inner == "" {
		return spec
	}
	ops := len(inner) - len(strings.TrimLeft(inner, "*&"))
	if ops == 0 {
		return spec + " " + inner
	}
	rest := strings.TrimLeft(inner[ops:], " ")
	if rest == "" {
		return spec + inner[:ops]
	}
	return spec + inner[:ops] + " " + rest
}
