package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
)

func pin(t *testing.T, name, version string) ip.Pin {
	t.Helper()
	id, err := ip.ParseIdent(name)
	require.NoError(t, err)
	v, err := ip.ParseVersion(version)
	require.NoError(t, err)
	return ip.Pin{Name: id, Version: v}
}

// fakeNode builds a graph node without touching the filesystem.
func fakeNode(t *testing.T, name, version string, deps ...ip.Pin) *Node {
	t.Helper()
	p := pin(t, name, version)
	return &Node{
		Ip:   &ip.Ip{Man: &ip.Manifest{Name: p.Name, Version: p.Version}},
		Tier: catalog.TierCache,
		Deps: deps,
	}
}

func TestDepGraph_AddKeepsFirst(t *testing.T) {
	g := NewDepGraph(pin(t, "top", "0.1.0"))
	first := fakeNode(t, "gates", "1.0.0")
	g.Add(first)
	g.Add(fakeNode(t, "gates", "1.0.0"))

	got, ok := g.Get(pin(t, "gates", "1.0.0"))
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestDepGraph_Dependents(t *testing.T) {
	util := pin(t, "util", "1.0.0")
	g := NewDepGraph(pin(t, "top", "0.1.0"))
	g.Add(fakeNode(t, "top", "0.1.0", util, pin(t, "adder", "2.0.0")))
	g.Add(fakeNode(t, "adder", "2.0.0", util))
	g.Add(fakeNode(t, "util", "1.0.0"))

	deps := g.Dependents(util)
	require.Len(t, deps, 2)
	assert.Equal(t, "adder", deps[0].Name.String())
	assert.Equal(t, "top", deps[1].Name.String())
}

func TestTopoSort_LeavesFirst(t *testing.T) {
	g := NewDepGraph(pin(t, "top", "0.1.0"))
	g.Add(fakeNode(t, "top", "0.1.0", pin(t, "a", "1.0.0"), pin(t, "b", "1.0.0")))
	g.Add(fakeNode(t, "a", "1.0.0", pin(t, "c", "1.0.0")))
	g.Add(fakeNode(t, "b", "1.0.0", pin(t, "c", "1.0.0")))
	g.Add(fakeNode(t, "c", "1.0.0"))

	order := g.TopoSort()
	require.Len(t, order, 4)
	assert.Equal(t, "c", order[0].Name.String())
	assert.Equal(t, "a", order[1].Name.String())
	assert.Equal(t, "b", order[2].Name.String())
	assert.Equal(t, "top", order[3].Name.String())
}

func TestTopoSort_TwoVersionsAreTwoNodes(t *testing.T) {
	g := NewDepGraph(pin(t, "top", "0.1.0"))
	g.Add(fakeNode(t, "top", "0.1.0", pin(t, "util", "1.0.0"), pin(t, "adder", "2.0.0")))
	g.Add(fakeNode(t, "adder", "2.0.0", pin(t, "util", "1.1.0")))
	g.Add(fakeNode(t, "util", "1.0.0"))
	g.Add(fakeNode(t, "util", "1.1.0"))

	order := g.TopoSort()
	require.Len(t, order, 4)
	// both util releases precede their dependents
	idx := make(map[string]int)
	for i, p := range order {
		idx[p.String()] = i
	}
	assert.Less(t, idx["util:1.0.0"], idx["top:0.1.0"])
	assert.Less(t, idx["util:1.1.0"], idx["adder:2.0.0"])
	assert.Less(t, idx["adder:2.0.0"], idx["top:0.1.0"])
}

func TestDetectCycle_ReportsPath(t *testing.T) {
	g := NewDepGraph(pin(t, "top", "0.1.0"))
	g.Add(fakeNode(t, "top", "0.1.0", pin(t, "a", "1.0.0")))
	g.Add(fakeNode(t, "a", "1.0.0", pin(t, "b", "1.0.0")))
	g.Add(fakeNode(t, "b", "1.0.0", pin(t, "a", "1.0.0")))

	err := g.DetectCycle()
	require.Error(t, err)
	assert.True(t, IsCyclic(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	require.GreaterOrEqual(t, len(re.Path), 3)
	assert.Equal(t, re.Path[0].Key(), re.Path[len(re.Path)-1].Key())
	assert.Contains(t, err.Error(), "a:1.0.0")
	assert.Contains(t, err.Error(), "b:1.0.0")
}

func TestDetectCycle_AcceptsDag(t *testing.T) {
	g := NewDepGraph(pin(t, "top", "0.1.0"))
	g.Add(fakeNode(t, "top", "0.1.0", pin(t, "a", "1.0.0")))
	g.Add(fakeNode(t, "a", "1.0.0"))
	assert.NoError(t, g.DetectCycle())
}
