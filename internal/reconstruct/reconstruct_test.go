package reconstruct_test

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
	"github.com/skdltmxn/pdbtypes/internal/pdbtest"
	"github.com/skdltmxn/pdbtypes/internal/reconstruct"
	"github.com/skdltmxn/pdbtypes/internal/resolve"
	"github.com/skdltmxn/pdbtypes/internal/tpi"
	"github.com/skdltmxn/pdbtypes/pdb"
)

type graph map[catalog.ID]*catalog.TypeRecord

func (g graph) Lookup(id catalog.ID) (*catalog.TypeRecord, bool) {
	r, ok := g[id]
	return r, ok
}

func (g graph) add(r *catalog.TypeRecord) *catalog.TypeRecord {
	g[r.ID] = r
	return r
}

func prim(name string) *catalog.TypeExpr {
	return &catalog.TypeExpr{Kind: catalog.ExprPrimitive, Name: name}
}

func named(r *catalog.TypeRecord) *catalog.TypeExpr {
	return &catalog.TypeExpr{Kind: catalog.ExprNamed, Name: r.Name, Ref: r.ID}
}

func ptr(elem *catalog.TypeExpr) *catalog.TypeExpr {
	return &catalog.TypeExpr{Kind: catalog.ExprPointer, Elem: elem}
}

func member(name string, offset uint64, typ *catalog.TypeExpr) catalog.Member {
	return catalog.Member{Name: name, Offset: offset, Type: typ, Access: pdb.AccessPublic}
}

func render(t *testing.T, g graph, root catalog.ID, opts reconstruct.Options) string {
	t.Helper()
	steps, err := resolve.Resolve(g, root)
	require.NoError(t, err)
	out, err := reconstruct.Render(g, root, steps, opts, reconstruct.Source{
		Path:         `C:\build\app.pdb`,
		Architecture: "X64",
		ToolVersion:  "1.0.0",
	})
	require.NoError(t, err)
	return out
}

func TestRenderStruct(t *testing.T) {
	g := graph{}
	g.add(&catalog.TypeRecord{
		ID: 0x1000, Kind: catalog.KindStruct, Name: "Point", Size: 8,
		Members: []catalog.Member{
			member("x", 0, prim("int")),
			member("y", 4, prim("int")),
		},
	})

	assert.Equal(t, "struct Point\n{\n  /* 0x0000 */ int x;\n  /* 0x0004 */ int y;\n};\n",
		render(t, g, 0x1000, reconstruct.Options{}))
}

func TestRenderDeclarators(t *testing.T) {
	g := graph{}
	point := g.add(&catalog.TypeRecord{ID: 0x1000, Kind: catalog.KindStruct, Name: "Point", Size: 8})

	constChar := prim("char")
	constChar.Const = true
	constPtr := ptr(prim("char"))
	constPtr.Const = true

	tests := []struct {
		name string
		typ  *catalog.TypeExpr
		want string
	}{
		{"pointer", ptr(prim("int")), "int* p"},
		{"pointer to const", ptr(constChar), "const char* p"},
		{"const pointer", constPtr, "char* const p"},
		{"pointer to pointer", ptr(ptr(prim("char"))), "char** p"},
		{"reference", &catalog.TypeExpr{Kind: catalog.ExprLValueRef, Elem: named(point)}, "Point& p"},
		{"rvalue reference", &catalog.TypeExpr{Kind: catalog.ExprRValueRef, Elem: named(point)}, "Point&& p"},
		{"array", &catalog.TypeExpr{Kind: catalog.ExprArray, Count: 16, Elem: prim("char")}, "char p[16]"},
		{
			"two dimensional array",
			&catalog.TypeExpr{Kind: catalog.ExprArray, Count: 4, Elem: &catalog.TypeExpr{Kind: catalog.ExprArray, Count: 2, Elem: prim("int")}},
			"int p[4][2]",
		},
		{
			"array of pointers",
			&catalog.TypeExpr{Kind: catalog.ExprArray, Count: 3, Elem: ptr(named(point))},
			"Point* p[3]",
		},
		{
			"pointer to array",
			ptr(&catalog.TypeExpr{Kind: catalog.ExprArray, Count: 3, Elem: prim("int")}),
			"int (*p)[3]",
		},
		{
			"function pointer",
			ptr(&catalog.TypeExpr{Kind: catalog.ExprFunction, Elem: prim("int"), Params: []*catalog.TypeExpr{prim("int"), ptr(prim("char"))}}),
			"int (*p)(int, char*)",
		},
		{
			"variadic function pointer",
			ptr(&catalog.TypeExpr{Kind: catalog.ExprFunction, Elem: prim("void"), Params: []*catalog.TypeExpr{ptr(constChar)}, Variadic: true}),
			"void (*p)(const char*, ...)",
		},
		{
			"const array",
			&catalog.TypeExpr{Kind: catalog.ExprArray, Count: 4, Elem: prim("int"), Const: true},
			"const int p[4]",
		},
		{
			"pointer to data member",
			&catalog.TypeExpr{Kind: catalog.ExprPointer, Elem: prim("int"), Class: named(point)},
			"int Point::* p",
		},
		{
			"pointer to member function",
			&catalog.TypeExpr{
				Kind:  catalog.ExprPointer,
				Class: named(point),
				Elem:  &catalog.TypeExpr{Kind: catalog.ExprFunction, Elem: prim("void"), Params: []*catalog.TypeExpr{prim("int")}},
			},
			"void (Point::* p)(int)",
		},
		{
			"bitfield",
			&catalog.TypeExpr{Kind: catalog.ExprBitfield, BitLength: 3, Elem: prim("unsigned int")},
			"unsigned int p : 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g[0x2000] = &catalog.TypeRecord{
				ID: 0x2000, Kind: catalog.KindStruct, Name: "Holder",
				Members: []catalog.Member{member("p", 0, tt.typ)},
			}
			out, err := reconstruct.Render(g, 0x2000, nil, reconstruct.Options{}, reconstruct.Source{})
			require.NoError(t, err)
			assert.Equal(t, "struct Holder\n{\n  /* 0x0000 */ "+tt.want+";\n};\n", out)
		})
	}
}

func TestRenderAccessSpecifiers(t *testing.T) {
	g := graph{}
	base := g.add(&catalog.TypeRecord{ID: 0x1000, Kind: catalog.KindClass, Name: "Base", Size: 4})
	g.add(&catalog.TypeRecord{
		ID: 0x1001, Kind: catalog.KindClass, Name: "Widget", Size: 16,
		Bases: []catalog.Base{{Ref: base.ID, Name: base.Name, Access: pdb.AccessPublic}},
		Members: []catalog.Member{
			member("a", 4, prim("int")),
			member("b", 8, prim("int")),
			{Name: "c", Offset: 12, Type: prim("int"), Access: pdb.AccessPrivate},
			{Name: "count", Type: prim("int"), Access: pdb.AccessProtected, Static: true},
		},
	})

	t.Run("enabled", func(t *testing.T) {
		out, err := reconstruct.Render(g, 0x1001, nil, reconstruct.Options{PrintAccessSpecifiers: true}, reconstruct.Source{})
		require.NoError(t, err)
		assert.Equal(t, `class Widget : public Base
{
public:
  /* 0x0004 */ int a;
  /* 0x0008 */ int b;
private:
  /* 0x000c */ int c;
protected:
  static int count;
};
`, out)
	})

	t.Run("disabled", func(t *testing.T) {
		out, err := reconstruct.Render(g, 0x1001, nil, reconstruct.Options{}, reconstruct.Source{})
		require.NoError(t, err)
		assert.Equal(t, `class Widget : Base
{
  /* 0x0004 */ int a;
  /* 0x0008 */ int b;
  /* 0x000c */ int c;
  static int count;
};
`, out)
	})

	t.Run("struct default is public", func(t *testing.T) {
		g[0x1002] = &catalog.TypeRecord{
			ID: 0x1002, Kind: catalog.KindStruct, Name: "Plain",
			Members: []catalog.Member{member("a", 0, prim("int"))},
		}
		out, err := reconstruct.Render(g, 0x1002, nil, reconstruct.Options{PrintAccessSpecifiers: true}, reconstruct.Source{})
		require.NoError(t, err)
		assert.NotContains(t, out, "public:")
	})
}

func TestRenderVirtualBases(t *testing.T) {
	g := graph{}
	a := g.add(&catalog.TypeRecord{ID: 0x1000, Kind: catalog.KindStruct, Name: "A", Size: 4})
	b := g.add(&catalog.TypeRecord{ID: 0x1001, Kind: catalog.KindStruct, Name: "B", Size: 4})
	g.add(&catalog.TypeRecord{
		ID: 0x1002, Kind: catalog.KindStruct, Name: "C", Size: 24,
		Bases: []catalog.Base{
			{Ref: a.ID, Name: a.Name, Access: pdb.AccessPublic, Virtual: true},
			{Ref: b.ID, Name: b.Name, Access: pdb.AccessProtected},
		},
	})

	out, err := reconstruct.Render(g, 0x1002, nil, reconstruct.Options{PrintAccessSpecifiers: true}, reconstruct.Source{})
	require.NoError(t, err)
	assert.Equal(t, "struct C : public virtual A, protected B\n{\n};\n", out)
}

func TestRenderEnums(t *testing.T) {
	g := graph{}
	g.add(&catalog.TypeRecord{
		ID: 0x1000, Kind: catalog.KindEnum, Name: "Color", Size: 4, Underlying: prim("int"),
		Enumerators: []catalog.Enumerator{
			{Name: "Red", Value: pdb.Numeric{Bits: 0}},
			{Name: "Blue", Value: pdb.Numeric{Bits: uint64(0xFFFFFFFFFFFFFFFE), Signed: true}},
		},
	})
	g.add(&catalog.TypeRecord{
		ID: 0x1001, Kind: catalog.KindEnum, Name: "Mode", Size: 1, Underlying: prim("unsigned char"), Scoped: true,
		Enumerators: []catalog.Enumerator{{Name: "On", Value: pdb.Numeric{Bits: 1}}},
	})

	out, err := reconstruct.Render(g, 0x1000, nil, reconstruct.Options{}, reconstruct.Source{})
	require.NoError(t, err)
	assert.Equal(t, "enum Color\n{\n  Red = 0,\n  Blue = -2,\n};\n", out)

	out, err = reconstruct.Render(g, 0x1001, nil, reconstruct.Options{}, reconstruct.Source{})
	require.NoError(t, err)
	assert.Equal(t, "enum class Mode : unsigned char\n{\n  On = 1,\n};\n", out)
}

func TestRenderTypedef(t *testing.T) {
	g := graph{}
	node := g.add(&catalog.TypeRecord{ID: 0x1000, Kind: catalog.KindStruct, Name: "Node", Size: 8})
	g.add(&catalog.TypeRecord{ID: 0x1001, Kind: catalog.KindAlias, Name: "PNode", Underlying: ptr(named(node))})

	out := render(t, g, 0x1001, reconstruct.Options{PrintDependencies: true})
	assert.Equal(t, "struct Node\n{\n};\n\ntypedef Node* PNode;\n", out)
}

func TestRenderInlineAnonymous(t *testing.T) {
	g := graph{}
	anon := g.add(&catalog.TypeRecord{
		ID: 0x1000, Kind: catalog.KindUnion, Name: "<unnamed-tag>", Size: 8, Anonymous: true,
		Members: []catalog.Member{
			member("i", 0, prim("int")),
			member("d", 0, prim("double")),
		},
	})
	g.add(&catalog.TypeRecord{
		ID: 0x1001, Kind: catalog.KindStruct, Name: "Variant", Size: 16,
		Members: []catalog.Member{
			member("tag", 0, prim("int")),
			member("value", 8, &catalog.TypeExpr{Kind: catalog.ExprInline, Name: anon.Name, Ref: anon.ID}),
		},
	})

	out := render(t, g, 0x1001, reconstruct.Options{PrintDependencies: true})
	assert.Equal(t, `struct Variant
{
  /* 0x0000 */ int tag;
  /* 0x0008 */ union
  {
    /* 0x0000 */ int i;
    /* 0x0000 */ double d;
  } value;
};
`, out)
}

func TestRenderDependenciesAndHeader(t *testing.T) {
	g := graph{}
	opaque := g.add(&catalog.TypeRecord{ID: 0x1000, Kind: catalog.KindStruct, Name: "Impl", Opaque: true})
	color := g.add(&catalog.TypeRecord{
		ID: 0x1001, Kind: catalog.KindEnum, Name: "Color", Size: 4, Underlying: prim("int"),
		Enumerators: []catalog.Enumerator{{Name: "Red", Value: pdb.Numeric{}}},
	})
	point := g.add(&catalog.TypeRecord{
		ID: 0x1002, Kind: catalog.KindStruct, Name: "Point", Size: 8,
		Members: []catalog.Member{member("x", 0, prim("int")), member("y", 4, prim("int"))},
	})
	g.add(&catalog.TypeRecord{
		ID: 0x1003, Kind: catalog.KindStruct, Name: "Shape", Size: 24,
		Members: []catalog.Member{
			member("impl", 0, ptr(named(opaque))),
			member("origin", 8, named(point)),
			member("color", 16, named(color)),
		},
	})

	want := `//
// PDB file: C:\build\app.pdb
// Image architecture: X64
//
// Information extracted with pdbtypes v1.0.0
//

struct Point
{
  /* 0x0000 */ int x;
  /* 0x0004 */ int y;
};

enum Color
{
  Red = 0,
};

struct Impl;

struct Shape
{
  /* 0x0000 */ Impl* impl;
  /* 0x0008 */ Point origin;
  /* 0x0010 */ Color color;
};
`
	opts := reconstruct.Options{PrintHeader: true, PrintDependencies: true}
	out := render(t, g, 0x1003, opts)
	assert.Equal(t, want, out)
	assert.Equal(t, out, render(t, g, 0x1003, opts), "rendering must be deterministic")

	rootOnly := render(t, g, 0x1003, reconstruct.Options{})
	assert.NotContains(t, rootOnly, "struct Point\n")
	assert.Contains(t, rootOnly, "struct Shape\n")
}

func TestRenderGroupsForwardDeclarations(t *testing.T) {
	g := graph{}
	a := g.add(&catalog.TypeRecord{ID: 0x1000, Kind: catalog.KindClass, Name: "A", Opaque: true})
	b := g.add(&catalog.TypeRecord{ID: 0x1001, Kind: catalog.KindEnum, Name: "B", Opaque: true, Scoped: true, Underlying: prim("short")})
	g.add(&catalog.TypeRecord{
		ID: 0x1002, Kind: catalog.KindStruct, Name: "Root", Size: 16,
		Members: []catalog.Member{
			member("a", 0, ptr(named(a))),
			member("b", 8, ptr(named(b))),
		},
	})

	out := render(t, g, 0x1002, reconstruct.Options{PrintDependencies: true})
	assert.Equal(t, "class A;\nenum class B : short;\n\nstruct Root\n{\n  /* 0x0000 */ A* a;\n  /* 0x0008 */ B* b;\n};\n", out)
}

func TestRenderRootHeldByValue(t *testing.T) {
	g := graph{}
	owner := g.add(&catalog.TypeRecord{ID: 0x1001, Kind: catalog.KindStruct, Name: "Owner", Size: 8})
	root := g.add(&catalog.TypeRecord{
		ID: 0x1000, Kind: catalog.KindStruct, Name: "Part", Size: 8,
		Members: []catalog.Member{member("owner", 0, ptr(named(owner)))},
	})
	owner.Members = []catalog.Member{member("part", 0, named(root))}

	out := render(t, g, 0x1000, reconstruct.Options{PrintDependencies: true})
	assert.Equal(t, "struct Owner;\n\n"+
		"struct Part\n{\n  /* 0x0000 */ Owner* owner;\n};\n\n"+
		"struct Owner\n{\n  /* 0x0000 */ Part part;\n};\n", out)
}

func TestRenderUnknownRoot(t *testing.T) {
	_, err := reconstruct.Render(graph{}, 0x1000, nil, reconstruct.Options{}, reconstruct.Source{})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestRenderedOutputParsesAsCpp(t *testing.T) {
	b := pdbtest.New()
	types := &b.Types

	fwdNode := types.Forward(pdbtest.Struct, "Node")
	nodePtr := types.Pointer(fwdNode)
	nodeFields := types.FieldList(
		pdbtest.Member("value", pdbtest.Int, 0),
		pdbtest.Member("next", nodePtr, 8),
	)
	node := types.UDT(pdbtest.Struct, "Node", nodeFields, 2, 16)

	colorFields := types.FieldList(pdbtest.Enumerate("Red", 0), pdbtest.Enumerate("Green", 1))
	color := types.Enum("Color", pdbtest.Int, colorFields, 2)

	callback := types.Pointer(types.Procedure(pdbtest.Void, pdbtest.Int, pdbtest.NearPtr64(pdbtest.Char)))
	flags := types.Bitfield(pdbtest.UInt, 1, 0)
	grid := types.Array(types.Array(pdbtest.Int, 8), 32)
	constChar := types.Modifier(pdbtest.Char, true, false)
	name := types.Pointer(constChar)

	listFields := types.FieldList(
		pdbtest.Base(node, 0),
		pdbtest.Member("head", node, 16),
		pdbtest.Member("color", color, 32),
		pdbtest.Member("callback", callback, 40),
		pdbtest.Member("flags", flags, 48),
		pdbtest.Member("grid", grid, 52),
		pdbtest.Member("name", name, 88).With(tpi.MemberAccessPrivate),
		pdbtest.StaticMember("instances", pdbtest.Int),
	)
	types.UDT(pdbtest.Class, "List", listFields, 8, 96)

	cat, err := catalog.Load(context.Background(), b.WriteFile(t))
	require.NoError(t, err)
	root, err := cat.Resolve("List")
	require.NoError(t, err)
	steps, err := resolve.Resolve(cat, root.ID)
	require.NoError(t, err)

	out, err := reconstruct.Render(cat, root.ID, steps, reconstruct.Options{
		PrintHeader:           true,
		PrintDependencies:     true,
		PrintAccessSpecifiers: true,
	}, reconstruct.Source{Path: cat.Path(), Architecture: cat.Architecture(), ToolVersion: "1.0.0"})
	require.NoError(t, err)

	assert.Contains(t, out, "struct Node\n{\n  /* 0x0000 */ int value;\n  /* 0x0008 */ Node* next;\n};")
	assert.NotContains(t, out, "struct Node;", "a self-referencing type needs no forward declaration")
	assert.Contains(t, out, "void (*callback)(int, char*);")
	assert.Contains(t, out, "unsigned int flags : 1;")
	assert.Contains(t, out, "int grid[4][2];")
	assert.Contains(t, out, "const char* name;")

	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(out))
	require.NoError(t, err)
	assert.False(t, tree.RootNode().HasError(), "rendered output is not valid C++:\n%s", out)
}
