// Package engine runs PDB type queries on a background worker. Callers
// submit Commands and receive Events through an EventSink; commands are
// processed one at a time, in submission order, against a single
// generation-tagged session.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
	"github.com/skdltmxn/pdbtypes/internal/reconstruct"
	"github.com/skdltmxn/pdbtypes/internal/resolve"
)

// State is the engine's position in its command cycle.
type State uint32

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StateBusy:
		return "Busy"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Loader builds a catalog from a PDB path.
type Loader func(ctx context.Context, path string) (*catalog.Catalog, error)

// session is the result of one successful load. It is owned by the worker.
type session struct {
	generation uint64
	catalog    *catalog.Catalog
}

type envelope struct {
	seq uint64
	cmd Command
}

// Engine is the command processor.
type Engine struct {
	sink        EventSink
	log         *slog.Logger
	load        Loader
	toolName    string
	toolVersion string

	mu     sync.Mutex
	queue  []envelope
	seq    uint64
	closed bool
	wake   chan struct{}
	done   chan struct{}

	state      atomic.Uint32
	generation atomic.Uint64

	// worker-owned
	session *session
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for session changes and command failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithLoader replaces catalog.Load as the PDB loader.
func WithLoader(load Loader) Option {
	return func(e *Engine) {
		if load != nil {
			e.load = load
		}
	}
}

// WithTool sets the tool name and version printed in reconstruction
// headers.
func WithTool(name, version string) Option {
	return func(e *Engine) {
		e.toolName = name
		e.toolVersion = version
	}
}

// New starts an engine delivering events to sink.
func New(sink EventSink, opts ...Option) *Engine {
	e := &Engine{
		sink:        sink,
		log:         slog.New(slog.DiscardHandler),
		load:        catalog.Load,
		toolName:    "pdbtypes",
		toolVersion: "dev",
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	go e.run()
	return e
}

// Submit queues cmd and returns its sequence number. Submit never blocks on
// command processing and may be called from any goroutine.
func (e *Engine) Submit(cmd Command) (uint64, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, ErrClosed
	}
	e.seq++
	seq := e.seq
	e.queue = append(e.queue, envelope{seq: seq, cmd: cmd})
	e.mu.Unlock()

	e.signal()
	return seq, nil
}

// Close stops the engine. Commands that have not started are dropped; Close
// returns once the command in progress, if any, has finished.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return nil
	}
	e.closed = true
	e.queue = nil
	e.mu.Unlock()

	e.signal()
	<-e.done
	return nil
}

// State returns the current state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Generation returns the generation of the active session, or 0 when no PDB
// has been loaded.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// next blocks until a command is queued. It reports false once the engine
// is closed.
func (e *Engine) next() (envelope, bool) {
	for {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return envelope{}, false
		}
		if len(e.queue) > 0 {
			env := e.queue[0]
			e.queue[0] = envelope{}
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return env, true
		}
		e.mu.Unlock()
		<-e.wake
	}
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		env, ok := e.next()
		if !ok {
			return
		}
		e.process(env)
	}
}

func (e *Engine) process(env envelope) {
	switch cmd := env.cmd.(type) {
	case LoadPDB:
		e.loadPDB(env.seq, cmd)
	case UpdateTypeFilter:
		e.query(env.seq, func(s *session) (Event, error) {
			return e.filter(env.seq, s, cmd)
		})
	case ReconstructTypeByName:
		e.query(env.seq, func(s *session) (Event, error) {
			return e.reconstructByName(env.seq, s, cmd)
		})
	case ReconstructTypeByID:
		e.query(env.seq, func(s *session) (Event, error) {
			return e.reconstructByID(env.seq, s, cmd)
		})
	default:
		e.fail(env.seq, newError(KindInvalidQuery, nil, "unsupported command %T", env.cmd))
	}
}

func (e *Engine) loadPDB(seq uint64, cmd LoadPDB) {
	prior := e.State()
	e.state.Store(uint32(StateLoading))

	cat, err := e.load(context.Background(), cmd.Path)
	if err != nil {
		e.state.Store(uint32(prior))
		e.fail(seq, classify(err, KindFormat))
		return
	}

	gen := e.generation.Add(1)
	e.session = &session{generation: gen, catalog: cat}
	e.state.Store(uint32(StateReady))

	e.log.Info("session loaded",
		slog.Uint64("generation", gen),
		slog.String("path", cmd.Path),
		slog.Int("types", cat.Len()))

	e.emit(PDBLoaded{
		Header:       Header{Sequence: seq},
		Generation:   gen,
		Path:         cat.Path(),
		Architecture: cat.Architecture(),
		TypeCount:    cat.Len(),
	})
}

// query runs fn against the active session, holding the Busy state.
func (e *Engine) query(seq uint64, fn func(*session) (Event, error)) {
	s := e.session
	if s == nil {
		e.fail(seq, newError(KindNoSession, nil, "no PDB loaded"))
		return
	}

	e.state.Store(uint32(StateBusy))
	ev, err := fn(s)
	e.state.Store(uint32(StateReady))

	if err != nil {
		e.fail(seq, classify(err, KindNotFound))
		return
	}
	e.emit(ev)
}

func checkGeneration(s *session, gen uint64) error {
	if gen != 0 && gen != s.generation {
		return newError(KindStaleSession, nil, "generation %d is not the active session (%d)", gen, s.generation)
	}
	return nil
}

func (e *Engine) filter(seq uint64, s *session, cmd UpdateTypeFilter) (Event, error) {
	if err := checkGeneration(s, cmd.Generation); err != nil {
		return nil, err
	}

	entries, err := s.catalog.Search(catalog.Query{
		Pattern:         cmd.Pattern,
		CaseInsensitive: cmd.CaseInsensitive,
		UseRegex:        cmd.UseRegex,
	})
	if err != nil {
		return nil, err
	}

	types := make([]TypeEntry, len(entries))
	for i, ent := range entries {
		types[i] = TypeEntry{Name: ent.Name, ID: TypeID{Generation: s.generation, Index: ent.ID}}
	}
	return FilteredTypesUpdated{
		Header:     Header{Sequence: seq},
		Generation: s.generation,
		Types:      types,
	}, nil
}

func (e *Engine) reconstructByName(seq uint64, s *session, cmd ReconstructTypeByName) (Event, error) {
	if err := checkGeneration(s, cmd.Generation); err != nil {
		return nil, err
	}
	rec, err := s.catalog.Resolve(cmd.Name)
	if err != nil {
		return nil, err
	}
	return e.reconstruct(seq, s, rec, cmd.Options)
}

func (e *Engine) reconstructByID(seq uint64, s *session, cmd ReconstructTypeByID) (Event, error) {
	if cmd.ID.Generation != s.generation {
		return nil, newError(KindStaleSession, nil, "type %s belongs to a retired session (active generation %d)", cmd.ID, s.generation)
	}
	if !s.catalog.Contains(cmd.ID.Index) {
		return nil, newError(KindNotFound, catalog.ErrNotFound, "no type with id %s", cmd.ID)
	}
	rec, _ := s.catalog.Lookup(cmd.ID.Index)
	return e.reconstruct(seq, s, rec, cmd.Options)
}

func (e *Engine) reconstruct(seq uint64, s *session, rec *catalog.TypeRecord, opts ReconstructOptions) (Event, error) {
	var steps []resolve.Step
	if opts.PrintDependencies {
		var err error
		if steps, err = resolve.Resolve(s.catalog, rec.ID); err != nil {
			return nil, err
		}
	}

	text, err := reconstruct.Render(s.catalog, rec.ID, steps, reconstruct.Options{
		PrintHeader:           opts.PrintHeader,
		PrintDependencies:     opts.PrintDependencies,
		PrintAccessSpecifiers: opts.PrintAccessSpecifiers,
	}, reconstruct.Source{
		Path:         s.catalog.Path(),
		Architecture: s.catalog.Architecture(),
		ToolName:     e.toolName,
		ToolVersion:  e.toolVersion,
	})
	if err != nil {
		return nil, err
	}

	return ReconstructedTypeUpdated{
		Header: Header{Sequence: seq},
		ID:     TypeID{Generation: s.generation, Index: rec.ID},
		Name:   rec.Name,
		Text:   text,
	}, nil
}

func (e *Engine) fail(seq uint64, err *Error) {
	e.log.Warn("command failed",
		slog.Uint64("seq", seq),
		slog.String("kind", err.Kind.String()),
		slog.String("detail", err.Detail))
	e.emit(ErrorEvent{Header: Header{Sequence: seq}, Err: err})
}

// emit delivers ev. A consumer that has gone away does not stop the worker.
func (e *Engine) emit(ev Event) {
	if err := e.sink.Send(ev); err != nil {
		sendErr := newError(KindSend, err, "deliver %T for command %d: %v", ev, ev.Seq(), err)
		e.log.Warn("event dropped",
			slog.Uint64("seq", ev.Seq()),
			slog.String("kind", sendErr.Kind.String()),
			slog.String("detail", sendErr.Detail))
	}
}
