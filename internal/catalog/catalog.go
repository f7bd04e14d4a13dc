// Package catalog turns the type stream of a PDB into an immutable,
// searchable set of type records. Records refer to each other only by ID,
// so a catalog can be shared by concurrent readers and dropped as a unit.
package catalog

import (
	"iter"

	"github.com/skdltmxn/pdbtypes/pdb"
)

// ID identifies a type record within one catalog. It is the record's index
// in the type stream.
type ID uint32

// Kind is the declaring keyword of a record.
type Kind uint8

const (
	KindStruct Kind = iota
	KindClass
	KindUnion
	KindEnum
	KindAlias
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	case KindAlias:
		return "typedef"
	default:
		return "struct"
	}
}

// DefaultAccess is the access a member has when no label precedes it.
func (k Kind) DefaultAccess() pdb.Access {
	if k == KindClass {
		return pdb.AccessPrivate
	}
	return pdb.AccessPublic
}

// Member is a data member of a class, struct or union.
type Member struct {
	Name   string
	Offset uint64
	Type   *TypeExpr
	Access pdb.Access
	Static bool
}

// Base is a base class.
type Base struct {
	Ref     ID
	Name    string
	Access  pdb.Access
	Virtual bool
}

// Enumerator is one named value of an enum.
type Enumerator struct {
	Name  string
	Value pdb.Numeric
}

// TypeRecord describes one declared type.
type TypeRecord struct {
	ID         ID
	Kind       Kind
	Name       string
	UniqueName string
	Size       uint64

	Members     []Member
	Bases       []Base
	Enumerators []Enumerator

	// Underlying is the target of an alias or the integer type of an enum.
	Underlying *TypeExpr

	// Scoped marks an enum class.
	Scoped bool

	// Opaque marks a type the file only forward-declares.
	Opaque bool

	// Anonymous marks a compiler-named type such as "<unnamed-tag>"; it is
	// rendered inline at its point of use.
	Anonymous bool
}

// Entry is one search result.
type Entry struct {
	Name string
	ID   ID
}

// Catalog is the loaded type index of one PDB file.
type Catalog struct {
	path string
	arch string

	records map[ID]*TypeRecord

	// redirect maps forward references to their definitions.
	redirect map[ID]ID

	// order lists searchable records in stream order.
	order  []ID
	byName map[string][]ID
}

func newCatalog(path, arch string) *Catalog {
	return &Catalog{
		path:     path,
		arch:     arch,
		records:  make(map[ID]*TypeRecord),
		redirect: make(map[ID]ID),
		byName:   make(map[string][]ID),
	}
}

// Path returns the file the catalog was loaded from.
func (c *Catalog) Path() string { return c.path }

// Architecture returns the image architecture recorded in the file.
func (c *Catalog) Architecture() string { return c.arch }

// Len returns the number of searchable records.
func (c *Catalog) Len() int { return len(c.order) }

// Lookup returns the record for id. Forward references resolve to their
// definition.
func (c *Catalog) Lookup(id ID) (*TypeRecord, bool) {
	if def, ok := c.redirect[id]; ok {
		id = def
	}
	r, ok := c.records[id]
	return r, ok
}

// Records iterates over the searchable records in stream order.
func (c *Catalog) Records() iter.Seq[*TypeRecord] {
	return func(yield func(*TypeRecord) bool) {
		for _, id := range c.order {
			if !yield(c.records[id]) {
				return
			}
		}
	}
}

// Contains reports whether id is a searchable record of this catalog.
func (c *Catalog) Contains(id ID) bool {
	r, ok := c.records[id]
	return ok && !r.Opaque
}

func (c *Catalog) add(r *TypeRecord) {
	c.records[r.ID] = r
	if r.Opaque {
		return
	}
	c.order = append(c.order, r.ID)
	c.byName[r.Name] = append(c.byName[r.Name], r.ID)
}
