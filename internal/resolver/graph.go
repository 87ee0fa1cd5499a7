package resolver

import (
	"sort"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
)

// Node is one resolved release in the dependency graph.
type Node struct {
	// Ip is the release as found in the catalog (or the working copy for
	// the root).
	Ip *ip.Ip

	// Tier records where the release was found.
	Tier catalog.Tier

	// Deps are the exact releases this node resolved its requirements
	// against, sorted by (name, version).
	Deps []ip.Pin
}

// Pin returns the node's identity.
func (n *Node) Pin() ip.Pin {
	return ip.Pin{Name: n.Ip.Man.Name, Version: n.Ip.Man.Version}
}

// DepGraph is the resolved dependency set of one working IP. Nodes are
// keyed by exact (name, version), so two versions of the same identifier
// are two distinct nodes.
type DepGraph struct {
	root  ip.Pin
	nodes map[string]*Node
}

// NewDepGraph creates an empty graph rooted at the working IP's identity.
func NewDepGraph(root ip.Pin) *DepGraph {
	return &DepGraph{root: root, nodes: make(map[string]*Node)}
}

// Root returns the identity of the working IP.
func (g *DepGraph) Root() ip.Pin { return g.root }

// Add inserts a node. Inserting the same (name, version) twice keeps the
// first node; resolution is deterministic so both would be identical.
func (g *DepGraph) Add(n *Node) {
	key := n.Pin().Key()
	if _, ok := g.nodes[key]; !ok {
		g.nodes[key] = n
	}
}

// Get looks a node up by exact identity.
func (g *DepGraph) Get(pin ip.Pin) (*Node, bool) {
	n, ok := g.nodes[pin.Key()]
	return n, ok
}

// Has reports whether the exact release is already in the graph.
func (g *DepGraph) Has(pin ip.Pin) bool {
	_, ok := g.nodes[pin.Key()]
	return ok
}

// Pins returns every node identity sorted by (name, version).
func (g *DepGraph) Pins() []ip.Pin {
	pins := make([]ip.Pin, 0, len(g.nodes))
	for _, n := range g.nodes {
		pins = append(pins, n.Pin())
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i].Less(pins[j]) })
	return pins
}

// Dependents returns the identities of every node that depends on target,
// sorted by (name, version).
func (g *DepGraph) Dependents(target ip.Pin) []ip.Pin {
	var out []ip.Pin
	for _, pin := range g.Pins() {
		n := g.nodes[pin.Key()]
		for _, dep := range n.Deps {
			if dep.Key() == target.Key() {
				out = append(out, pin)
				break
			}
		}
	}
	return out
}

// dfs colors for cycle detection.
const (
	unseen = iota
	inProgress
	done
)

// DetectCycle walks the graph depth-first from the root and returns a
// CYCLIC_DEPENDENCY error carrying the offending path, or nil for a DAG.
// Neighbor order is the sorted dep list, so the reported path is stable.
func (g *DepGraph) DetectCycle() error {
	state := make(map[string]int, len(g.nodes))
	var stack []ip.Pin

	var visit func(pin ip.Pin) error
	visit = func(pin ip.Pin) error {
		key := pin.Key()
		switch state[key] {
		case done:
			return nil
		case inProgress:
			// close the loop for the report
			start := 0
			for i, p := range stack {
				if p.Key() == key {
					start = i
					break
				}
			}
			path := append(append([]ip.Pin(nil), stack[start:]...), pin)
			return &ResolveError{Code: ErrCodeCyclic, Path: path}
		}
		state[key] = inProgress
		stack = append(stack, pin)
		if n, ok := g.nodes[key]; ok {
			for _, dep := range n.Deps {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[key] = done
		return nil
	}

	for _, pin := range g.orderedFromRoot() {
		if err := visit(pin); err != nil {
			return err
		}
	}
	return nil
}

// orderedFromRoot yields the root first, then the remaining pins sorted,
// so disconnected nodes are still visited.
func (g *DepGraph) orderedFromRoot() []ip.Pin {
	out := []ip.Pin{g.root}
	for _, pin := range g.Pins() {
		if pin.Key() != g.root.Key() {
			out = append(out, pin)
		}
	}
	return out
}

// TopoSort returns the nodes leaves-first: every node appears after all of
// its dependencies. Ties are broken by (name, version), so the order is a
// pure function of the graph. Call DetectCycle first; a cyclic graph
// cannot be ordered and TopoSort stops early.
func (g *DepGraph) TopoSort() []ip.Pin {
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]ip.Pin, len(g.nodes))
	for _, pin := range g.Pins() {
		n := g.nodes[pin.Key()]
		indegree[pin.Key()] += 0
		for _, dep := range n.Deps {
			if !g.Has(dep) {
				continue
			}
			indegree[pin.Key()]++
			dependents[dep.Key()] = append(dependents[dep.Key()], pin)
		}
	}

	ready := make([]ip.Pin, 0, len(g.nodes))
	for _, pin := range g.Pins() {
		if indegree[pin.Key()] == 0 {
			ready = append(ready, pin)
		}
	}

	var order []ip.Pin
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Less(ready[j]) })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dep := range dependents[next.Key()] {
			indegree[dep.Key()]--
			if indegree[dep.Key()] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order
}
