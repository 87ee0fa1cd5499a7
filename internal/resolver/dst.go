package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/vhdl"
)

// LinkedIp is a graph node with the directory the build should actually
// read: the original installation, or a dynamic copy when the node was
// renamed or references a renamed release.
type LinkedIp struct {
	Node *Node

	// Ip is the effective release. Equal to Node.Ip unless Transformed.
	Ip *ip.Ip

	// Units indexes the effective release's primary units.
	Units map[string]*vhdl.PrimaryUnit

	// Transformed marks a dynamic copy.
	Transformed bool
}

// Transform runs the dynamic symbol transformation over a resolved graph
// and returns the effective release for every node, keyed by Pin.Key().
//
// Unit identifiers are claimed walking breadth-first from the working IP,
// so the release nearest the root keeps its identity. A release whose
// primary units collide with an already claimed identifier is renamed:
// each of its units gains the suffix "_<sum10>" derived from that
// release's content checksum. The rename happens in a dynamic cache copy;
// the canonical installation is never touched. Releases that depend on a
// renamed one also get dynamic copies so their references follow the
// rename. The working IP claims first and is never copied or rewritten.
func (r *Resolver) Transform(graph *DepGraph) (map[string]*LinkedIp, error) {
	linked := make(map[string]*LinkedIp, len(graph.Pins()))
	order := claimOrder(graph)

	// claim unit identifiers; collisions mark the node for renaming
	claimed := make(map[string]ip.Pin)
	marked := make(map[string]map[string]string) // pin key -> lut
	for _, pin := range order {
		node, _ := graph.Get(pin)
		units, err := vhdl.CollectUnits(node.Ip.Root)
		if err != nil {
			return nil, err
		}
		linked[pin.Key()] = &LinkedIp{Node: node, Ip: node.Ip, Units: units}

		collides := false
		for key := range units {
			if _, taken := claimed[key]; taken {
				collides = true
				break
			}
		}
		if collides {
			lut, err := r.renameLut(node, units)
			if err != nil {
				return nil, err
			}
			marked[pin.Key()] = lut
			continue
		}
		for key := range units {
			claimed[key] = pin
		}
	}

	// dependents of a renamed release inherit its lut so their references
	// are rewritten in step; the root reads renamed units through the
	// canonical names only and stays in place
	luts := make(map[string]map[string]string)
	markedKeys := make([]string, 0, len(marked))
	for k := range marked {
		markedKeys = append(markedKeys, k)
	}
	sort.Strings(markedKeys)
	for _, pinKey := range markedKeys {
		lut := marked[pinKey]
		mergeLut(luts, pinKey, lut)
		node := linked[pinKey].Node
		for _, dependent := range graph.Dependents(node.Pin()) {
			if dependent.Key() == graph.Root().Key() {
				continue
			}
			mergeLut(luts, dependent.Key(), lut)
		}
	}

	// materialize dynamic copies, deterministic order
	keys := make([]string, 0, len(luts))
	for k := range luts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entry := linked[k]
		dynamic, err := r.installDynamic(entry.Node.Ip, luts[k])
		if err != nil {
			return nil, err
		}
		units, err := vhdl.CollectUnits(dynamic.Root)
		if err != nil {
			return nil, err
		}
		entry.Ip = dynamic
		entry.Units = units
		entry.Transformed = true
	}
	return linked, nil
}

// claimOrder walks the graph breadth-first from the working IP, visiting
// each node's deps in their sorted order, then appends any disconnected
// pins. Releases closer to the root claim their unit names first.
func claimOrder(graph *DepGraph) []ip.Pin {
	order := make([]ip.Pin, 0, len(graph.Pins()))
	seen := map[string]bool{graph.Root().Key(): true}
	queue := []ip.Pin{graph.Root()}
	for len(queue) > 0 {
		pin := queue[0]
		queue = queue[1:]
		order = append(order, pin)
		node, ok := graph.Get(pin)
		if !ok {
			continue
		}
		for _, dep := range node.Deps {
			if seen[dep.Key()] || !graph.Has(dep) {
				continue
			}
			seen[dep.Key()] = true
			queue = append(queue, dep)
		}
	}
	for _, pin := range graph.Pins() {
		if !seen[pin.Key()] {
			order = append(order, pin)
		}
	}
	return order
}

// renameLut maps every primary unit of a marked release to its rename
// suffix, derived from the release's content checksum.
func (r *Resolver) renameLut(node *Node, units map[string]*vhdl.PrimaryUnit) (map[string]string, error) {
	sum := node.Ip.Sum
	if sum == nil {
		fresh, err := catalog.ComputeSum(node.Ip.Root)
		if err != nil {
			return nil, err
		}
		sum = &fresh
	}
	suffix := "_" + sum.Prefix()
	lut := make(map[string]string, len(units))
	for key := range units {
		lut[key] = suffix
	}
	return lut, nil
}

func mergeLut(luts map[string]map[string]string, pinKey string, lut map[string]string) {
	dst := luts[pinKey]
	if dst == nil {
		dst = make(map[string]string, len(lut))
		luts[pinKey] = dst
	}
	for k, v := range lut {
		dst[k] = v
	}
}

// installDynamic copies a release, rewrites its VHDL sources through the
// lut, and commits the result to its own content-addressed cache slot
// marked dynamic. An existing slot with the same contents is reused.
func (r *Resolver) installDynamic(src *ip.Ip, lut map[string]string) (*ip.Ip, error) {
	stage := filepath.Join(r.ctx.CachePath, ".stage-"+uuid.NewString())
	if err := catalog.CopyTree(src.Root, stage); err != nil {
		os.RemoveAll(stage)
		return nil, fmt.Errorf("staging dynamic copy of %s: %w", src.Man.Name, err)
	}
	defer os.RemoveAll(stage)

	files, err := ip.GatherFiles(stage)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		if !vhdl.IsVhdlFile(rel) {
			continue
		}
		path := filepath.Join(stage, filepath.FromSlash(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		out := vhdl.Rewrite(string(data), lut)
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			return nil, err
		}
	}

	sum, err := catalog.ComputeSum(stage)
	if err != nil {
		return nil, err
	}
	slot := catalog.SlotName(src.Man.Name, src.Man.Version, sum)
	slotPath := filepath.Join(r.ctx.CachePath, slot)
	if _, err := os.Stat(slotPath); err == nil {
		return ip.LoadIp(slotPath)
	}

	meta := &ip.Metadata{Dynamic: true, Mapping: lut}
	if err := catalog.CommitSlot(stage, slotPath, sum, meta); err != nil {
		if _, statErr := os.Stat(slotPath); statErr == nil {
			return ip.LoadIp(slotPath)
		}
		return nil, fmt.Errorf("committing dynamic slot %s: %w", slot, err)
	}
	return ip.LoadIp(slotPath)
}
