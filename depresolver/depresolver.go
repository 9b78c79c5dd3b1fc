// Package depresolver computes a stable topological order over a graph of
// integer vertices, used to turn "u depends on v" edges into a build/install
// order where every dependency precedes its dependents.
//
// Grounded on go-synth's pkg.GetBuildOrder/TopoOrderStrict (pkg/deps.go),
// generalized from *Package pointers to opaque int vertices per the spec's
// data model, and pkg.CycleError for the cycle error shape.
package depresolver

import (
	"errors"
	"sort"
)

// ErrCycleDetected is the sentinel behind every CycleError, letting callers
// use errors.Is without caring about the Total/Ordered detail.
var ErrCycleDetected = errors.New("circular dependency detected")

// Graph owns an edge list "(u, v) means u depends on v" with u, v in N.
//
// Self-edges (u == v) are accepted as a way to register a vertex without
// introducing a real predecessor — this is how callers with no dependencies
// still get represented in the output order.
type Graph struct {
	vertices map[int]bool
	order    []int // insertion order of vertex discovery, for stable output
	succ     map[int][]int
	inDegree map[int]int
	edgeSeen map[[2]int]bool
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		vertices: make(map[int]bool),
		succ:     make(map[int][]int),
		inDegree: make(map[int]int),
		edgeSeen: make(map[[2]int]bool),
	}
}

// AddDependency registers that u depends on v. Duplicates are tolerated.
// A self-edge (u == v) registers u as a vertex without creating an in-edge.
func (g *Graph) AddDependency(u, v int) {
	g.addVertex(u)
	g.addVertex(v)

	if u == v {
		return
	}

	key := [2]int{v, u}
	if g.edgeSeen[key] {
		return
	}
	g.edgeSeen[key] = true

	g.succ[v] = append(g.succ[v], u)
	g.inDegree[u]++
}

func (g *Graph) addVertex(v int) {
	if !g.vertices[v] {
		g.vertices[v] = true
		g.order = append(g.order, v)
	}
}

// CycleError reports that Resolve found a circular dependency: Ordered is the
// number of vertices that could be placed before the cycle blocked progress,
// out of Total vertices in the graph.
type CycleError struct {
	Total   int
	Ordered int
}

func (e *CycleError) Error() string {
	return "circular dependency detected: only " +
		itoa(e.Ordered) + " of " + itoa(e.Total) + " vertices ordered"
}

// Unwrap allows errors.Is(err, ErrCycleDetected) to work correctly.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Resolve produces a sequence over the vertex set in which every dependency
// appears before its dependents (Kahn's algorithm), or a *CycleError if the
// graph contains a cycle.
//
// Tie-break is insertion order, applied FIFO: the vertices that start with
// zero in-degree are queued in discovery order, and the vertices that reach
// zero when one vertex is emitted are appended, in discovery order, behind
// those already queued. This gives reproducible orderings across runs.
func (g *Graph) Resolve() ([]int, error) {
	inDegree := make(map[int]int, len(g.vertices))
	for v := range g.vertices {
		inDegree[v] = g.inDegree[v]
	}

	discovery := make(map[int]int, len(g.order))
	for i, v := range g.order {
		discovery[v] = i
	}

	var ready []int
	for _, v := range g.order {
		if inDegree[v] == 0 {
			ready = append(ready, v)
		}
	}

	// ready is already in insertion order because g.order is.
	result := make([]int, 0, len(g.vertices))
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		result = append(result, v)

		var newlyReady []int
		for _, dependent := range g.succ[v] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		if len(newlyReady) > 0 {
			sort.SliceStable(newlyReady, func(i, j int) bool {
				return discovery[newlyReady[i]] < discovery[newlyReady[j]]
			})
			ready = append(ready, newlyReady...)
		}
	}

	if len(result) != len(g.vertices) {
		return result, &CycleError{Total: len(g.vertices), Ordered: len(result)}
	}

	return result, nil
}
