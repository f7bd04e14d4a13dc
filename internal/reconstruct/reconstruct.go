// Package reconstruct renders type records as C++ declarations.
//
// Rendering is a pure function of the records handed in and the options:
// it never consults the PDB, so output is byte-for-byte reproducible.
package reconstruct

import (
	"fmt"
	"strings"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
	"github.com/skdltmxn/pdbtypes/internal/resolve"
	"github.com/skdltmxn/pdbtypes/pdb"
)

// Options selects what Render emits.
type Options struct {
	PrintHeader           bool
	PrintDependencies     bool
	PrintAccessSpecifiers bool
}

// Source describes where the records came from, for the header banner.
type Source struct {
	Path         string
	Architecture string
	ToolName     string
	ToolVersion  string
}

const indentUnit = "  "

type writer struct {
	g    resolve.Graph
	opts Options
}

// Render emits root, preceded by the declarations in steps when
// dependencies are requested. steps is normally the output of
// resolve.Resolve for root.
//
// Blocks follow steps, so root's definition is not the last block when a
// dependency holds root by value.
func Render(g resolve.Graph, root catalog.ID, steps []resolve.Step, opts Options, src Source) (string, error) {
	if _, ok := g.Lookup(root); !ok {
		return "", fmt.Errorf("%w: type 0x%x", catalog.ErrNotFound, uint32(root))
	}
	if !opts.PrintDependencies {
		steps = []resolve.Step{{ID: root}}
	}

	w := &writer{g: g, opts: opts}

	var (
		blocks   []string
		forwards []string
	)
	flush := func() {
		if len(forwards) > 0 {
			blocks = append(blocks, strings.Join(forwards, "\n"))
			forwards = nil
		}
	}
	for _, s := range steps {
		rec, ok := g.Lookup(s.ID)
		if !ok {
			return "", fmt.Errorf("%w: type 0x%x", catalog.ErrNotFound, uint32(s.ID))
		}
		if s.Forward || rec.Opaque {
			if decl := forwardDeclaration(rec); decl != "" {
				forwards = append(forwards, decl)
			}
			continue
		}
		flush()
		blocks = append(blocks, w.definition(rec))
	}
	flush()

	var b strings.Builder
	if opts.PrintHeader {
		writeBanner(&b, src)
	}
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteByte('\n')
	return b.String(), nil
}

// Declare renders a single declaration of name with type e, e.g.
// "int (*callback)(int)". An empty name gives the abstract type.
func Declare(g resolve.Graph, e *catalog.TypeExpr, name string) string {
	w := &writer{g: g}
	return w.declare(e, name, 0)
}

func writeBanner(b *strings.Builder, src Source) {
	tool := src.ToolName
	if tool == "" {
		tool = "pdbtypes"
	}
	b.WriteString("//\n")
	fmt.Fprintf(b, "// PDB file: %s\n", src.Path)
	fmt.Fprintf(b, "// Image architecture: %s\n", src.Architecture)
	b.WriteString("//\n")
	fmt.Fprintf(b, "// Information extracted with %s v%s\n", tool, src.ToolVersion)
	b.WriteString("//\n\n")
}

// forwardDeclaration returns the name-only declaration of rec, or "" for
// records that cannot be forward-declared.
func forwardDeclaration(rec *catalog.TypeRecord) string {
	if rec.Anonymous {
		return ""
	}
	switch rec.Kind {
	case catalog.KindAlias:
		return ""
	case catalog.KindEnum:
		return enumHead(rec, true) + ";"
	default:
		return rec.Kind.String() + " " + rec.Name + ";"
	}
}

func (w *writer) definition(rec *catalog.TypeRecord) string {
	switch rec.Kind {
	case catalog.KindAlias:
		return "typedef " + w.declare(rec.Underlying, rec.Name, 0) + ";"
	case catalog.KindEnum:
		return w.enumBody(rec, 0, true) + ";"
	default:
		return w.udtBody(rec, 0, true) + ";"
	}
}

// inlineBody renders an anonymous record at the indentation of the member
// using it.
func (w *writer) inlineBody(rec *catalog.TypeRecord, depth int) string {
	if rec.Kind == catalog.KindEnum {
		return w.enumBody(rec, depth, false)
	}
	return w.udtBody(rec, depth, false)
}

// udtBody renders a class, struct or union without the terminating
// semicolon. The first line carries no indentation.
func (w *writer) udtBody(rec *catalog.TypeRecord, depth int, named bool) string {
	indent := strings.Repeat(indentUnit, depth)
	inner := indent + indentUnit

	head := rec.Kind.String()
	if named {
		head += " " + rec.Name + w.baseList(rec)
	}
	lines := []string{head, indent + "{"}

	access := rec.Kind.DefaultAccess()
	for _, m := range rec.Members {
		if w.opts.PrintAccessSpecifiers && named && m.Access != pdb.AccessNone && m.Access != access {
			access = m.Access
			lines = append(lines, indent+access.String()+":")
		}
		if m.Static {
			lines = append(lines, inner+"static "+w.declare(m.Type, m.Name, depth+1)+";")
			continue
		}
		lines = append(lines, fmt.Sprintf("%s/* 0x%04x */ %s;", inner, m.Offset, w.declare(m.Type, m.Name, depth+1)))
	}

	lines = append(lines, indent+"}")
	return strings.Join(lines, "\n")
}

func (w *writer) baseList(rec *catalog.TypeRecord) string {
	if len(rec.Bases) == 0 {
		return ""
	}
	bases := make([]string, len(rec.Bases))
	for i, b := range rec.Bases {
		var parts []string
		if w.opts.PrintAccessSpecifiers && b.Access != pdb.AccessNone {
			parts = append(parts, b.Access.String())
		}
		if b.Virtual {
			parts = append(parts, "virtual")
		}
		bases[i] = strings.Join(append(parts, b.Name), " ")
	}
	return " : " + strings.Join(bases, ", ")
}

func enumHead(rec *catalog.TypeRecord, forward bool) string {
	head := "enum"
	if rec.Scoped {
		head += " class"
	}
	if !rec.Anonymous {
		head += " " + rec.Name
	}

	underlying := "int"
	if rec.Underlying != nil && rec.Underlying.Kind == catalog.ExprPrimitive {
		underlying = rec.Underlying.Name
	}
	if forward || underlying != "int" {
		head += " : " + underlying
	}
	return head
}

func (w *writer) enumBody(rec *catalog.TypeRecord, depth int, named bool) string {
	indent := strings.Repeat(indentUnit, depth)
	inner := indent + indentUnit

	head := enumHead(rec, false)
	if !named {
		head = strings.Replace(head, " "+rec.Name, "", 1)
	}
	lines := []string{head, indent + "{"}
	for _, e := range rec.Enumerators {
		lines = append(lines, fmt.Sprintf("%s%s = %s,", inner, e.Name, e.Value))
	}
	lines = append(lines, indent+"}")
	return strings.Join(lines, "\n")
}
