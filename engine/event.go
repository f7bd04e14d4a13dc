package engine

// Event is a message from the engine. Seq is the sequence number Submit
// returned for the command that produced it.
type Event interface {
	Seq() uint64
}

// Header carries the fields every event shares.
type Header struct {
	Sequence uint64
}

func (h Header) Seq() uint64 { return h.Sequence }

// PDBLoaded reports a new active session.
type PDBLoaded struct {
	Header
	Generation   uint64
	Path         string
	Architecture string
	TypeCount    int
}

// TypeEntry is one filter result.
type TypeEntry struct {
	Name string
	ID   TypeID
}

// FilteredTypesUpdated carries the result of UpdateTypeFilter in type
// stream order.
type FilteredTypesUpdated struct {
	Header
	Generation uint64
	Types      []TypeEntry
}

// ReconstructedTypeUpdated carries a rendered declaration.
type ReconstructedTypeUpdated struct {
	Header
	ID   TypeID
	Name string
	Text string
}

// ErrorEvent reports a failed command. The engine keeps running.
type ErrorEvent struct {
	Header
	Err *Error
}
