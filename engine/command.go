package engine

import (
	"fmt"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
)

// Command is a request to the engine. Commands are plain values; the engine
// keeps no reference to caller memory.
type Command interface {
	command()
}

// TypeID identifies a type within one loaded session.
type TypeID struct {
	Generation uint64
	Index      catalog.ID
}

func (id TypeID) String() string {
	return fmt.Sprintf("%d:0x%x", id.Generation, uint32(id.Index))
}

// LoadPDB replaces the active session with one built from Path.
type LoadPDB struct {
	Path string
}

// UpdateTypeFilter lists the types whose name matches Pattern.
type UpdateTypeFilter struct {
	Pattern         string
	CaseInsensitive bool
	UseRegex        bool

	// Generation, when non-zero, must name the active session.
	Generation uint64
}

// ReconstructOptions selects what a reconstruction prints.
type ReconstructOptions struct {
	PrintHeader           bool
	PrintDependencies     bool
	PrintAccessSpecifiers bool
}

// ReconstructTypeByName renders the type called Name.
type ReconstructTypeByName struct {
	Name    string
	Options ReconstructOptions

	// Generation, when non-zero, must name the active session.
	Generation uint64
}

// ReconstructTypeByID renders the type ID, as returned in a filter result.
type ReconstructTypeByID struct {
	ID      TypeID
	Options ReconstructOptions
}

func (LoadPDB) command()               {}
func (UpdateTypeFilter) command()      {}
func (ReconstructTypeByName) command() {}
func (ReconstructTypeByID) command()   {}
