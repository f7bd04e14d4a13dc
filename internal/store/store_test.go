package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
	"github.com/skdltmxn/pdbtypes/internal/pdbtest"
	"github.com/skdltmxn/pdbtypes/internal/store"
	"github.com/skdltmxn/pdbtypes/internal/tpi"
)

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	b := pdbtest.New()
	types := &b.Types

	base := types.UDT(pdbtest.Class, "Base", types.FieldList(
		pdbtest.VFuncTab(types.Pointer(pdbtest.Void)),
	), 1, 8)
	color := types.Enum("Color", pdbtest.Int, types.FieldList(
		pdbtest.Enumerate("Red", 0),
		pdbtest.Enumerate("Green", 1),
		pdbtest.Enumerate("Invalid", -1),
	), 3)
	callback := types.Pointer(types.Procedure(pdbtest.Void, pdbtest.Int))
	types.UDT(pdbtest.Class, "Widget", types.FieldList(
		pdbtest.Base(base, 0).With(tpi.MemberAccessProtected),
		pdbtest.Member("color", color, 8).With(tpi.MemberAccessPrivate),
		pdbtest.Member("onClick", callback, 16),
		pdbtest.StaticMember("count", pdbtest.UInt),
	), 4, 24)

	c, err := catalog.Load(context.Background(), b.WriteFile(t))
	require.NoError(t, err)
	return c
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "types.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	c := loadCatalog(t)
	s := openStore(t)

	sum, err := s.Export(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, store.Summary{Types: 3, Members: 3, BaseClasses: 1, Enumerators: 3}, sum)

	rows, err := s.Types(ctx, c.Path(), "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Base", "Color", "Widget"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})
	assert.Equal(t, "enum", rows[1].Kind)
	assert.Equal(t, uint64(24), rows[2].Size)
	assert.Contains(t, rows[1].Declaration, "  Invalid = -1,\n")
	assert.Contains(t, rows[2].Declaration, "class Widget : Base\n")

	members, err := s.Members(ctx, c.Path(), rows[2].Index)
	require.NoError(t, err)
	assert.Equal(t, []store.MemberRow{
		{Name: "color", Offset: 8, Declaration: "Color color", Access: "private"},
		{Name: "onClick", Offset: 16, Declaration: "void (*onClick)(int)", Access: "public"},
		{Name: "count", Declaration: "unsigned int count", Access: "public", Static: true},
	}, members)
}

func TestExportReplacesPreviousRows(t *testing.T) {
	ctx := context.Background()
	c := loadCatalog(t)
	s := openStore(t)

	_, err := s.Export(ctx, c)
	require.NoError(t, err)
	_, err = s.Export(ctx, c)
	require.NoError(t, err)

	rows, err := s.Types(ctx, c.Path(), "W%")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Widget", rows[0].Name)
}

func TestTypesNotExported(t *testing.T) {
	s := openStore(t)
	_, err := s.Types(context.Background(), "nowhere.pdb", "")
	assert.ErrorIs(t, err, store.ErrNotExported)
}

func TestReopenKeepsSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "types.db")
	c := loadCatalog(t)

	s, err := store.Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Export(ctx, c)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.Types(ctx, c.Path(), "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExportCanceled(t *testing.T) {
	c := loadCatalog(t)
	s := openStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Export(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}
