// Package resolve orders the declarations a type depends on so that they
// can be emitted ahead of it.
package resolve

import (
	"fmt"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
)

// Graph is the record lookup the resolver walks. *catalog.Catalog
// implements it.
type Graph interface {
	Lookup(id catalog.ID) (*catalog.TypeRecord, bool)
}

// Step is one declaration to emit: the full definition of ID, or only a
// forward declaration when Forward is set.
type Step struct {
	ID      catalog.ID
	Forward bool
}

type edge struct {
	to     catalog.ID
	direct bool
}

const (
	unvisited = iota
	onPath
	done
)

type resolver struct {
	g     Graph
	edges map[catalog.ID][]edge
	state map[catalog.ID]int
	post  []catalog.ID
}

// Resolve returns the declarations needed to define root, root included.
//
// Every type reachable from root is defined once. A type that another type
// holds by value (as a member, array element or base class) is defined
// before it. A type that is only pointed to is forward-declared ahead of the
// first definition that needs it whenever its own definition comes later,
// which is how reference cycles are broken. A type pointing to itself needs
// no forward declaration. Types the file never defines are only
// forward-declared.
//
// The root is normally the last step. It is not when a reachable type
// holds the root by value; that type's definition has to follow it.
func Resolve(g Graph, root catalog.ID) ([]Step, error) {
	rec, ok := g.Lookup(root)
	if !ok || rec.Opaque {
		return nil, fmt.Errorf("%w: type 0x%x", catalog.ErrNotFound, uint32(root))
	}

	r := &resolver{
		g:     g,
		edges: make(map[catalog.ID][]edge),
		state: make(map[catalog.ID]int),
	}
	r.visit(rec.ID)

	return r.steps(r.order()), nil
}

// visit appends id and everything reachable from it to r.post in DFS
// post-order.
func (r *resolver) visit(id catalog.ID) {
	r.state[id] = onPath
	for _, e := range r.edgesOf(id) {
		if e.to == id || r.isOpaque(e.to) {
			continue
		}
		if r.state[e.to] == unvisited {
			r.visit(e.to)
		}
	}
	r.state[id] = done
	r.post = append(r.post, id)
}

// order reorders r.post so that every by-value dependency precedes its
// user while otherwise keeping DFS order.
func (r *resolver) order() []catalog.ID {
	emitted := make(map[catalog.ID]bool, len(r.post))
	order := make([]catalog.ID, 0, len(r.post))

	ready := func(id catalog.ID) bool {
		for _, e := range r.edgesOf(id) {
			if e.direct && e.to != id && !r.isOpaque(e.to) && !emitted[e.to] {
				return false
			}
		}
		return true
	}

	remaining := r.post
	for len(remaining) > 0 {
		var next []catalog.ID
		for _, id := range remaining {
			if ready(id) {
				emitted[id] = true
				order = append(order, id)
			} else {
				next = append(next, id)
			}
		}
		if len(next) == len(remaining) {
			// by-value cycle: the records are corrupt, keep DFS order
			order = append(order, next...)
			break
		}
		remaining = next
	}
	return order
}

// steps interleaves forward declarations for pointed-to types whose
// definitions come later or never.
func (r *resolver) steps(order []catalog.ID) []Step {
	defined := make(map[catalog.ID]bool, len(order))
	forwarded := make(map[catalog.ID]bool)
	steps := make([]Step, 0, len(order))

	for _, id := range order {
		for _, e := range r.edgesOf(id) {
			if e.to == id || defined[e.to] || forwarded[e.to] {
				continue
			}
			if e.direct && !r.isOpaque(e.to) {
				continue
			}
			forwarded[e.to] = true
			steps = append(steps, Step{ID: e.to, Forward: true})
		}
		defined[id] = true
		steps = append(steps, Step{ID: id})
	}
	return steps
}

func (r *resolver) isOpaque(id catalog.ID) bool {
	rec, ok := r.g.Lookup(id)
	return !ok || rec.Opaque
}

// edgesOf lists the records id refers to, bases first and then members in
// declaration order. Anonymous records are rendered inside their user, so
// their references count as the user's own.
func (r *resolver) edgesOf(id catalog.ID) []edge {
	if es, ok := r.edges[id]; ok {
		return es
	}

	var (
		es    []edge
		index = make(map[catalog.ID]int)
		seen  = map[catalog.ID]bool{id: true}
	)
	add := func(to catalog.ID, direct bool) {
		if i, ok := index[to]; ok {
			es[i].direct = es[i].direct || direct
			return
		}
		index[to] = len(es)
		es = append(es, edge{to: to, direct: direct})
	}

	var walk func(rec *catalog.TypeRecord, indirect bool)
	refs := func(e *catalog.TypeExpr, indirect bool) {
		e.Refs(func(ref catalog.ID, viaPointer bool) {
			target, ok := r.g.Lookup(ref)
			if !ok {
				return
			}
			if target.Anonymous {
				if !seen[target.ID] {
					seen[target.ID] = true
					walk(target, indirect || viaPointer)
				}
				return
			}
			// a typedef cannot be forward-declared
			add(target.ID, !(indirect || viaPointer) || target.Kind == catalog.KindAlias)
		})
	}
	walk = func(rec *catalog.TypeRecord, indirect bool) {
		for _, b := range rec.Bases {
			if target, ok := r.g.Lookup(b.Ref); ok {
				add(target.ID, !indirect)
			}
		}
		for _, m := range rec.Members {
			// a static member may have an incomplete type
			refs(m.Type, indirect || m.Static)
		}
		if rec.Kind == catalog.KindAlias && rec.Underlying != nil {
			refs(rec.Underlying, true)
		}
	}

	if rec, ok := r.g.Lookup(id); ok {
		walk(rec, false)
	}
	r.edges[id] = es
	return es
}
