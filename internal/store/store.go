// Package store exports loaded type catalogs to a SQLite database so they
// can be queried with SQL after the PDB is gone.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
	"github.com/skdltmxn/pdbtypes/internal/reconstruct"
)

var (
	// ErrNotExported is returned when a PDB path has no exported rows.
	ErrNotExported = errors.New("store: pdb not exported")

	// ErrSchemaTooNew is returned when the database was written by a newer
	// version.
	ErrSchemaTooNew = errors.New("store: unsupported schema version")
)

// Store is an export database.
type Store struct {
	db *sql.DB
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}

	// one writer; also keeps in-memory databases on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Open opens or creates the database at path and migrates its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Summary counts the rows written by Export.
type Summary struct {
	Types       int
	Members     int
	BaseClasses int
	Enumerators int
}

// Export writes every searchable record of c, replacing an earlier export
// of the same path. The export is a single transaction.
func (s *Store) Export(ctx context.Context, c *catalog.Catalog) (Summary, error) {
	var sum Summary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pdb_files WHERE path = ?", c.Path()); err != nil {
		return sum, fmt.Errorf("store: clear previous export: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO pdb_files (path, architecture, type_count) VALUES (?, ?, ?)",
		c.Path(), c.Architecture(), c.Len())
	if err != nil {
		return sum, fmt.Errorf("store: insert pdb: %w", err)
	}
	pdbID, err := res.LastInsertId()
	if err != nil {
		return sum, fmt.Errorf("store: pdb id: %w", err)
	}

	stmts, err := prepare(ctx, tx)
	if err != nil {
		return sum, err
	}
	defer stmts.close()

	position := 0
	for rec := range c.Records() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := stmts.writeRecord(ctx, c, pdbID, position, rec, &sum); err != nil {
			return sum, fmt.Errorf("store: type 0x%x (%s): %w", uint32(rec.ID), rec.Name, err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return sum, fmt.Errorf("store: commit: %w", err)
	}
	return sum, nil
}

type statements struct {
	typ, member, base, enumerator *sql.Stmt
}

func prepare(ctx context.Context, tx *sql.Tx) (*statements, error) {
	var (
		s   statements
		err error
	)
	queries := []struct {
		dst **sql.Stmt
		sql string
	}{
		{&s.typ, `INSERT INTO types (pdb_id, type_index, position, kind, name, unique_name, size, scoped, anonymous, declaration)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.member, `INSERT INTO members (pdb_id, type_index, position, name, byte_offset, declaration, access, is_static)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.base, `INSERT INTO base_classes (pdb_id, type_index, position, base_index, name, access, is_virtual)
			VALUES (?, ?, ?, ?, ?, ?, ?)`},
		{&s.enumerator, `INSERT INTO enumerators (pdb_id, type_index, position, name, value)
			VALUES (?, ?, ?, ?, ?)`},
	}
	for _, q := range queries {
		if *q.dst, err = tx.PrepareContext(ctx, q.sql); err != nil {
			s.close()
			return nil, fmt.Errorf("store: prepare: %w", err)
		}
	}
	return &s, nil
}

func (s *statements) close() {
	for _, st := range []*sql.Stmt{s.typ, s.member, s.base, s.enumerator} {
		if st != nil {
			_ = st.Close()
		}
	}
}

func (s *statements) writeRecord(ctx context.Context, c *catalog.Catalog, pdbID int64, position int, rec *catalog.TypeRecord, sum *Summary) error {
	var decl sql.NullString
	if !rec.Anonymous {
		text, err := reconstruct.Render(c, rec.ID, nil, reconstruct.Options{}, reconstruct.Source{})
		if err != nil {
			return err
		}
		decl = sql.NullString{String: text, Valid: true}
	}

	var unique sql.NullString
	if rec.UniqueName != "" {
		unique = sql.NullString{String: rec.UniqueName, Valid: true}
	}

	if _, err := s.typ.ExecContext(ctx, pdbID, int64(rec.ID), position, rec.Kind.String(), rec.Name, unique,
		int64(rec.Size), rec.Scoped, rec.Anonymous, decl); err != nil {
		return err
	}
	sum.Types++

	for i, m := range rec.Members {
		if _, err := s.member.ExecContext(ctx, pdbID, int64(rec.ID), i, m.Name, int64(m.Offset),
			reconstruct.Declare(c, m.Type, m.Name), m.Access.String(), m.Static); err != nil {
			return err
		}
		sum.Members++
	}
	for i, b := range rec.Bases {
		if _, err := s.base.ExecContext(ctx, pdbID, int64(rec.ID), i, int64(b.Ref), b.Name, b.Access.String(), b.Virtual); err != nil {
			return err
		}
		sum.BaseClasses++
	}
	for i, e := range rec.Enumerators {
		if _, err := s.enumerator.ExecContext(ctx, pdbID, int64(rec.ID), i, e.Name, e.Value.String()); err != nil {
			return err
		}
		sum.Enumerators++
	}
	return nil
}

// TypeRow is one exported type.
type TypeRow struct {
	Index       uint32
	Kind        string
	Name        string
	Size        uint64
	Declaration string
}

// Types lists the exported types of the PDB at path whose name matches the
// SQL LIKE pattern, in stream order.
func (s *Store) Types(ctx context.Context, path, like string) ([]TypeRow, error) {
	var pdbID int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM pdb_files WHERE path = ?", path).Scan(&pdbID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotExported, path)
	}
	if err != nil {
		return nil, fmt.Errorf("store: lookup %s: %w", path, err)
	}

	if like == "" {
		like = "%"
	}
	rows, err := s.db.QueryContext(ctx, `SELECT type_index, kind, name, size, COALESCE(declaration, '')
		FROM types WHERE pdb_id = ? AND name LIKE ? ORDER BY position`, pdbID, like)
	if err != nil {
		return nil, fmt.Errorf("store: query types: %w", err)
	}
	defer rows.Close()

	var out []TypeRow
	for rows.Next() {
		var r TypeRow
		if err := rows.Scan(&r.Index, &r.Kind, &r.Name, &r.Size, &r.Declaration); err != nil {
			return nil, fmt.Errorf("store: scan type: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MemberRow is one exported data member.
type MemberRow struct {
	Name        string
	Offset      uint64
	Declaration string
	Access      string
	Static      bool
}

// Members lists the members of one exported type in declaration order.
func (s *Store) Members(ctx context.Context, path string, index uint32) ([]MemberRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT m.name, m.byte_offset, m.declaration, m.access, m.is_static
		FROM members m JOIN pdb_files p ON p.id = m.pdb_id
		WHERE p.path = ? AND m.type_index = ? ORDER BY m.position`, path, int64(index))
	if err != nil {
		return nil, fmt.Errorf("store: query members: %w", err)
	}
	defer rows.Close()

	var out []MemberRow
	for rows.Next() {
		var m MemberRow
		if err := rows.Scan(&m.Name, &m.Offset, &m.Declaration, &m.Access, &m.Static); err != nil {
			return nil, fmt.Errorf("store: scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
