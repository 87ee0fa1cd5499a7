package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

// Tier names one of the storage levels an IP release can live in. Lower
// values are preferred when the same version appears in several tiers.
type Tier int

const (
	// TierCache holds installed, content-addressed, immutable releases.
	TierCache Tier = iota

	// TierQueue holds downloaded releases awaiting install.
	TierQueue

	// TierWorking is the single in-tree mutable IP, when one exists.
	TierWorking
)

func (t Tier) String() string {
	switch t {
	case TierCache:
		return "cache"
	case TierQueue:
		return "queue"
	case TierWorking:
		return "working"
	}
	return "unknown"
}

// Entry is one release visible through the catalog.
type Entry struct {
	*ip.Ip
	Tier Tier
}

// Catalog is a read-only view over the storage tiers, built once per
// invocation. Mutating operations (install, download) invalidate it; build
// a fresh catalog after they run.
type Catalog struct {
	ctx *orbit.Context
	// byName indexes entries by identifier comparison key.
	byName map[string][]*Entry
}

// NewCatalog scans the cache and queue directories. Slots whose metadata
// marks them dynamic are DST copies and never surface as candidates.
func NewCatalog(ctx *orbit.Context) (*Catalog, error) {
	c := &Catalog{ctx: ctx, byName: make(map[string][]*Entry)}
	if err := c.scanTier(ctx.CachePath, TierCache); err != nil {
		return nil, err
	}
	if err := c.scanTier(ctx.QueuePath, TierQueue); err != nil {
		return nil, err
	}
	return c, nil
}

// WithWorking adds the working IP as the lowest-preference tier.
func (c *Catalog) WithWorking(working *ip.Ip) *Catalog {
	if working != nil {
		c.add(&Entry{Ip: working, Tier: TierWorking})
	}
	return c
}

func (c *Catalog) scanTier(root string, tier Tier) error {
	dirs, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		// dot-prefixed names are stage directories from interrupted
		// installs, never candidates
		if strings.HasPrefix(d.Name(), ".") {
			continue
		}
		entry, err := ip.LoadIp(filepath.Join(root, d.Name()))
		if err != nil {
			// an unreadable directory in a tier is not fatal, it is
			// simply not a candidate
			continue
		}
		if entry.Dynamic {
			continue
		}
		c.add(&Entry{Ip: entry, Tier: tier})
	}
	return nil
}

func (c *Catalog) add(e *Entry) {
	key := e.Man.Name.Key()
	c.byName[key] = append(c.byName[key], e)
}

// Lookup returns every known release of an identifier, highest version
// first; equal versions are ordered cache before queue before working.
func (c *Catalog) Lookup(name ip.Ident) []*Entry {
	entries := append([]*Entry(nil), c.byName[name.Key()]...)
	sort.SliceStable(entries, func(i, j int) bool {
		if cmp := entries[i].Man.Version.Cmp(entries[j].Man.Version); cmp != 0 {
			return cmp > 0
		}
		return entries[i].Tier < entries[j].Tier
	})
	return entries
}

// Names lists every identifier known to the catalog in key order.
func (c *Catalog) Names() []ip.Ident {
	keys := make([]string, 0, len(c.byName))
	for k := range c.byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	names := make([]ip.Ident, 0, len(keys))
	for _, k := range keys {
		names = append(names, c.byName[k][0].Man.Name)
	}
	return names
}

// Get selects the highest version of name compatible with req. When the
// same version exists in several tiers the cache copy wins.
func (c *Catalog) Get(name ip.Ident, req ip.AnyVersion) (*Entry, bool) {
	for _, e := range c.Lookup(name) {
		if req.Matches(e.Man.Version) {
			return e, true
		}
	}
	return nil, false
}

// IsCached checks a content-addressed slot directly by its directory name.
func (c *Catalog) IsCached(slot string) bool {
	info, err := os.Stat(filepath.Join(c.ctx.CachePath, slot))
	return err == nil && info.IsDir()
}

// SlotPath renders the absolute path of a cache slot.
func (c *Catalog) SlotPath(slot string) string {
	return filepath.Join(c.ctx.CachePath, slot)
}

// Context exposes the invocation context the catalog was built from.
func (c *Catalog) Context() *orbit.Context {
	return c.ctx
}
