package resolver

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

// Options tunes one resolution run.
type Options struct {
	// Force regenerates the lockfile even when the existing one is usable,
	// and reinstalls corrupt cache slots.
	Force bool
}

// Resolution is the outcome of a resolve run.
type Resolution struct {
	// Graph holds every release in the resolved set.
	Graph *DepGraph

	// Lock is the lockfile describing the set. Freshly generated unless
	// FromLock is set.
	Lock *ip.LockFile

	// FromLock reports that an existing usable lockfile drove the run.
	FromLock bool
}

// Resolver assembles the dependency set of one working IP.
type Resolver struct {
	ctx     *orbit.Context
	working *ip.Ip
}

// New creates a resolver for the working IP.
func New(ctx *orbit.Context, working *ip.Ip) *Resolver {
	return &Resolver{ctx: ctx, working: working}
}

// Resolve produces the dependency graph and lockfile for the working IP.
//
// A usable lockfile short-circuits graph computation: missing entries are
// downloaded and installed against their recorded checksums, and the graph
// is rebuilt from the lock. Otherwise the graph is computed fresh from the
// catalog and a new lockfile is written next to the manifest.
func (r *Resolver) Resolve(opts Options) (*Resolution, error) {
	lock, err := ip.LoadLockFile(r.working.Root)
	if err != nil {
		return nil, err
	}
	if !opts.Force && lock.IsUsable(r.working.Man, true) {
		graph, err := r.planFromLock(lock, opts)
		if err != nil {
			return nil, err
		}
		return &Resolution{Graph: graph, Lock: lock, FromLock: true}, nil
	}

	graph, err := r.computeGraph(opts)
	if err != nil {
		return nil, err
	}
	fresh, err := r.lockFromGraph(graph)
	if err != nil {
		return nil, err
	}
	if err := fresh.Save(r.working.Root); err != nil {
		return nil, err
	}
	return &Resolution{Graph: graph, Lock: fresh}, nil
}

// planFromLock materializes a usable lockfile: download what is absent,
// install what is queued, then lift the entries into a graph.
func (r *Resolver) planFromLock(lock *ip.LockFile, opts Options) (*DepGraph, error) {
	if err := r.InstallLocked(lock, opts); err != nil {
		return nil, err
	}
	return r.GraphFromLock(lock)
}

// InstallLocked brings every locked dependency into the cache: entries
// absent from all tiers are downloaded by their recorded source, and
// queued entries are installed against their recorded checksums. The root
// entry is never installed.
func (r *Resolver) InstallLocked(lock *ip.LockFile, opts Options) error {
	root, ok := lock.Root()
	if !ok {
		return nil
	}
	cat, err := catalog.NewCatalog(r.ctx)
	if err != nil {
		return err
	}
	cat = cat.WithWorking(r.working)

	var missing []*ip.Source
	for _, e := range lock.Entries() {
		if e.Pin().Key() == root.Pin().Key() {
			continue
		}
		if e.Sum == nil {
			return &catalog.StorageError{
				Code:    catalog.ErrCodeMissingChecksum,
				Message: "lockfile entry has no recorded checksum",
				Name:    e.Name,
				Version: e.Version,
			}
		}
		slot, _ := e.SlotName()
		if cat.IsCached(slot) {
			continue
		}
		if _, ok := cat.Get(e.Name, ip.AnyFrom(e.Version)); ok {
			continue // queued, install below
		}
		if e.Source == nil {
			return &ResolveError{Code: ErrCodeUnresolved, Name: e.Name, Req: e.Version.String()}
		}
		missing = append(missing, e.Source)
	}
	if len(missing) > 0 {
		if err := catalog.Download(r.ctx, missing); err != nil {
			return err
		}
		if cat, err = catalog.NewCatalog(r.ctx); err != nil {
			return err
		}
		cat = cat.WithWorking(r.working)
	}

	for _, e := range lock.Entries() {
		if e.Sum == nil {
			continue
		}
		slot, _ := e.SlotName()
		if cat.IsCached(slot) {
			continue
		}
		entry, ok := lockedCandidate(cat, e)
		if !ok {
			return &ResolveError{Code: ErrCodeUnresolved, Name: e.Name, Req: e.Version.String()}
		}
		if _, err := catalog.Install(r.ctx, entry.Ip, catalog.InstallOptions{
			Force:  opts.Force,
			Expect: e.Sum,
		}); err != nil {
			return err
		}
	}
	return nil
}

// lockedCandidate picks the copy of a locked release to install from.
// When several tiers hold the same version, the one whose contents hash
// to the recorded checksum wins; a stale same-version copy in the cache
// must not shadow the right one sitting in the queue.
func lockedCandidate(cat *catalog.Catalog, e ip.LockEntry) (*catalog.Entry, bool) {
	var fallback *catalog.Entry
	for _, cand := range cat.Lookup(e.Name) {
		if cand.Man.Version.Cmp(e.Version) != 0 {
			continue
		}
		if fallback == nil {
			fallback = cand
		}
		sum := cand.Sum
		if sum == nil {
			fresh, err := catalog.ComputeSum(cand.Root)
			if err != nil {
				continue
			}
			sum = &fresh
		}
		if *sum == *e.Sum {
			return cand, true
		}
	}
	return fallback, fallback != nil
}

// GraphFromLock lifts lock entries into nodes backed by their cache
// slots. Callers that installed a freshly resolved set rebuild the graph
// through here so node roots point at cache slots, not queue copies.
func (r *Resolver) GraphFromLock(lock *ip.LockFile) (*DepGraph, error) {
	root, ok := lock.Root()
	if !ok {
		return nil, fmt.Errorf("lockfile is empty")
	}
	graph := NewDepGraph(root.Pin())
	for _, e := range lock.Entries() {
		var node *Node
		if e.Pin().Key() == root.Pin().Key() {
			node = &Node{Ip: r.working, Tier: catalog.TierWorking}
		} else {
			slot, _ := e.SlotName()
			installed, err := ip.LoadIp(filepath.Join(r.ctx.CachePath, slot))
			if err != nil {
				return nil, fmt.Errorf("loading cache slot %s: %w", slot, err)
			}
			node = &Node{Ip: installed, Tier: catalog.TierCache}
		}
		node.Deps = append([]ip.Pin(nil), e.Dependencies...)
		graph.Add(node)
	}
	if err := graph.DetectCycle(); err != nil {
		return nil, err
	}
	return graph, nil
}

// want is one worklist item: an identifier and the requirement to satisfy.
type want struct {
	name ip.Ident
	req  ip.PartialVersion
}

func (w want) key() string {
	return w.name.Key() + "\x00" + w.req.String()
}

// computeGraph resolves the full set from scratch against the catalog.
// Each requirement is satisfied independently by the highest compatible
// version, so two callers wanting incompatible versions of one identifier
// yield two nodes; the DST pass disambiguates them later.
func (r *Resolver) computeGraph(opts Options) (*DepGraph, error) {
	cat, err := catalog.NewCatalog(r.ctx)
	if err != nil {
		return nil, err
	}
	cat = cat.WithWorking(r.working)

	rootNode := &Node{Ip: r.working, Tier: catalog.TierWorking}
	graph := NewDepGraph(rootNode.Pin())

	var worklist []want
	seen := make(map[string]bool)
	enqueue := func(deps []ip.Dependency) {
		for _, d := range deps {
			w := want{name: d.Name, req: d.Version}
			if !seen[w.key()] {
				seen[w.key()] = true
				worklist = append(worklist, w)
			}
		}
	}

	// the working IP's dev-dependencies join the set; transitive
	// dev-dependencies are never followed
	rootDeps := r.working.Man.DepsList(true)
	graph.Add(rootNode)
	enqueue(rootDeps)

	resolved := make(map[string]ip.Pin) // want key -> chosen pin
	for len(worklist) > 0 {
		w := worklist[0]
		worklist = worklist[1:]
		entry, ok := cat.Get(w.name, ip.AnySpecific(w.req))
		if !ok {
			return nil, &ResolveError{Code: ErrCodeUnresolved, Name: w.name, Req: w.req.String()}
		}
		pin := ip.Pin{Name: entry.Man.Name, Version: entry.Man.Version}
		resolved[w.key()] = pin
		if graph.Has(pin) {
			continue
		}
		node := &Node{Ip: entry.Ip, Tier: entry.Tier}
		for _, d := range entry.Man.Dependencies {
			dep, ok := cat.Get(d.Name, ip.AnySpecific(d.Version))
			if !ok {
				return nil, &ResolveError{Code: ErrCodeUnresolved, Name: d.Name, Req: d.Version.String()}
			}
			node.Deps = append(node.Deps, ip.Pin{Name: dep.Man.Name, Version: dep.Man.Version})
		}
		sortPins(node.Deps)
		graph.Add(node)
		enqueue(entry.Man.Dependencies)
	}

	for _, d := range rootDeps {
		w := want{name: d.Name, req: d.Version}
		rootNode.Deps = append(rootNode.Deps, resolved[w.key()])
	}
	sortPins(rootNode.Deps)

	if err := graph.DetectCycle(); err != nil {
		return nil, err
	}
	return graph, nil
}

// lockFromGraph captures the graph as lock entries. Installed releases
// carry their recorded checksum; queued ones are hashed on the spot.
func (r *Resolver) lockFromGraph(graph *DepGraph) (*ip.LockFile, error) {
	var entries []ip.LockEntry
	for _, pin := range graph.Pins() {
		node, _ := graph.Get(pin)
		entry := ip.LockEntry{
			Name:         pin.Name,
			Version:      pin.Version,
			Source:       node.Ip.Man.Source,
			Dependencies: append([]ip.Pin(nil), node.Deps...),
		}
		if pin.Key() != graph.Root().Key() {
			sum := node.Ip.Sum
			if sum == nil {
				fresh, err := catalog.ComputeSum(node.Ip.Root)
				if err != nil {
					return nil, err
				}
				sum = &fresh
			}
			entry.Sum = sum
		}
		entries = append(entries, entry)
	}
	return ip.NewLockFile(graph.Root(), entries), nil
}

func sortPins(pins []ip.Pin) {
	sort.Slice(pins, func(i, j int) bool { return pins[i].Less(pins[j]) })
}
