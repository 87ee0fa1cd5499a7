package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

func testContext(t *testing.T) *orbit.Context {
	t.Helper()
	t.Setenv(orbit.EnvCache, "")
	t.Setenv(orbit.EnvQueue, "")
	ctx, err := orbit.NewContextAt(filepath.Join(t.TempDir(), "home"))
	require.NoError(t, err)
	return ctx
}

func writeRel(t *testing.T, root, rel, data string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

// makeRelease builds an IP fixture with a manifest, declared dependencies,
// and source files. A default entity file is generated when files is nil.
func makeRelease(t *testing.T, name, version string, deps map[string]string, files map[string]string) *ip.Ip {
	t.Helper()
	root := t.TempDir()
	var b strings.Builder
	fmt.Fprintf(&b, "[ip]\nname = %q\nversion = %q\n\n[dependencies]\n", name, version)
	keys := make([]string, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %q\n", k, deps[k])
	}
	writeRel(t, root, orbit.ManifestFile, b.String())

	if files == nil {
		files = map[string]string{name + ".vhd": fmt.Sprintf("entity %s is end;\n", name)}
	}
	for rel, data := range files {
		writeRel(t, root, rel, data)
	}
	loaded, err := ip.LoadIp(root)
	require.NoError(t, err)
	return loaded
}

func installRelease(t *testing.T, ctx *orbit.Context, rel *ip.Ip) *catalog.InstallResult {
	t.Helper()
	res, err := catalog.Install(ctx, rel, catalog.InstallOptions{})
	require.NoError(t, err)
	return res
}

func TestResolve_FreshLockFromCache(t *testing.T) {
	ctx := testContext(t)
	installRelease(t, ctx, makeRelease(t, "gates", "1.0.0", nil, nil))
	installed := installRelease(t, ctx, makeRelease(t, "gates", "1.1.0", nil, nil))
	top := makeRelease(t, "top", "0.1.0", map[string]string{"gates": "1"}, nil)

	res, err := New(ctx, top).Resolve(Options{})
	require.NoError(t, err)
	assert.False(t, res.FromLock)

	// the requirement picked the highest compatible release
	node, ok := res.Graph.Get(pin(t, "gates", "1.1.0"))
	require.True(t, ok)
	assert.Equal(t, catalog.TierCache, node.Tier)
	assert.False(t, res.Graph.Has(pin(t, "gates", "1.0.0")))

	// lockfile written next to the manifest, root entry first without a sum
	lock, err := ip.LoadLockFile(top.Root)
	require.NoError(t, err)
	entries := lock.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "top", entries[0].Name.String())
	assert.Nil(t, entries[0].Sum)
	assert.Equal(t, "gates", entries[1].Name.String())
	require.NotNil(t, entries[1].Sum)
	assert.Equal(t, installed.Sum, *entries[1].Sum)
}

func TestResolve_UsableLockShortCircuits(t *testing.T) {
	ctx := testContext(t)
	installRelease(t, ctx, makeRelease(t, "gates", "1.1.0", nil, nil))
	top := makeRelease(t, "top", "0.1.0", map[string]string{"gates": "1"}, nil)

	r := New(ctx, top)
	first, err := r.Resolve(Options{})
	require.NoError(t, err)
	assert.False(t, first.FromLock)

	second, err := r.Resolve(Options{})
	require.NoError(t, err)
	assert.True(t, second.FromLock)
	assert.True(t, second.Graph.Has(pin(t, "gates", "1.1.0")))

	// declaring a dependency the lock does not cover invalidates it
	installRelease(t, ctx, makeRelease(t, "extra", "1.0.0", nil, nil))
	writeRel(t, top.Root, orbit.ManifestFile,
		"[ip]\nname = \"top\"\nversion = \"0.1.0\"\n\n[dependencies]\ngates = \"1\"\nextra = \"1.0.0\"\n")
	edited, err := ip.LoadIp(top.Root)
	require.NoError(t, err)
	third, err := New(ctx, edited).Resolve(Options{})
	require.NoError(t, err)
	assert.False(t, third.FromLock)
	assert.True(t, third.Graph.Has(pin(t, "extra", "1.0.0")))
}

func TestResolve_QueuedDependencyInstallsOnDemand(t *testing.T) {
	ctx := testContext(t)
	util := makeRelease(t, "util", "1.0.0", nil, nil)
	require.NoError(t, catalog.CopyTree(util.Root, filepath.Join(ctx.QueuePath, "util-1.0.0")))
	top := makeRelease(t, "top", "0.1.0", map[string]string{"util": "1.0.0"}, nil)

	r := New(ctx, top)
	res, err := r.Resolve(Options{})
	require.NoError(t, err)
	assert.False(t, res.FromLock)

	node, ok := res.Graph.Get(pin(t, "util", "1.0.0"))
	require.True(t, ok)
	assert.Equal(t, catalog.TierQueue, node.Tier)

	// the queued release was hashed into the lock; installing it lands the
	// slot in the cache
	entry, ok := res.Lock.Get(node.Pin().Name, node.Pin().Version)
	require.True(t, ok)
	require.NotNil(t, entry.Sum)
	require.NoError(t, r.InstallLocked(res.Lock, Options{}))

	slot, ok := entry.SlotName()
	require.True(t, ok)
	assert.DirExists(t, filepath.Join(ctx.CachePath, slot))

	// the next resolve runs off the lock against the cache copy
	again, err := r.Resolve(Options{})
	require.NoError(t, err)
	assert.True(t, again.FromLock)
	node, ok = again.Graph.Get(pin(t, "util", "1.0.0"))
	require.True(t, ok)
	assert.Equal(t, catalog.TierCache, node.Tier)
}

func TestResolve_TransitiveDependencies(t *testing.T) {
	ctx := testContext(t)
	installRelease(t, ctx, makeRelease(t, "util", "1.1.0", nil, nil))
	installRelease(t, ctx, makeRelease(t, "adder", "2.0.0", map[string]string{"util": "1.1.0"}, nil))
	top := makeRelease(t, "top", "0.1.0", map[string]string{"adder": "2.0.0"}, nil)

	res, err := New(ctx, top).Resolve(Options{})
	require.NoError(t, err)
	require.Len(t, res.Graph.Pins(), 3)

	adder, ok := res.Graph.Get(pin(t, "adder", "2.0.0"))
	require.True(t, ok)
	require.Len(t, adder.Deps, 1)
	assert.Equal(t, "util:1.1.0", adder.Deps[0].String())

	// locked dependency edges survive the round-trip
	lock, err := ip.LoadLockFile(top.Root)
	require.NoError(t, err)
	entry, ok := lock.Get(adder.Pin().Name, adder.Pin().Version)
	require.True(t, ok)
	require.Len(t, entry.Dependencies, 1)
	assert.Equal(t, "util:1.1.0", entry.Dependencies[0].String())
}

func TestResolve_VersionMultiplicity(t *testing.T) {
	ctx := testContext(t)
	installRelease(t, ctx, makeRelease(t, "util", "1.0.0", nil, nil))
	installRelease(t, ctx, makeRelease(t, "util", "1.1.0", nil, nil))
	installRelease(t, ctx, makeRelease(t, "adder", "2.0.0", map[string]string{"util": "1.1.0"}, nil))
	top := makeRelease(t, "top", "0.1.0",
		map[string]string{"adder": "2.0.0", "util": "1.0.0"}, nil)

	res, err := New(ctx, top).Resolve(Options{})
	require.NoError(t, err)
	require.Len(t, res.Graph.Pins(), 4)
	assert.True(t, res.Graph.Has(pin(t, "util", "1.0.0")))
	assert.True(t, res.Graph.Has(pin(t, "util", "1.1.0")))
}

func TestResolve_UnresolvedDependency(t *testing.T) {
	ctx := testContext(t)
	top := makeRelease(t, "top", "0.1.0", map[string]string{"ghost": "1.0.0"}, nil)

	_, err := New(ctx, top).Resolve(Options{})
	require.Error(t, err)
	assert.True(t, IsUnresolved(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "ghost", re.Name.String())
	assert.Equal(t, "1.0.0", re.Req)

	// a failed resolve leaves no lockfile behind
	assert.NoFileExists(t, filepath.Join(top.Root, orbit.LockFile))
}

func TestResolve_CyclicDependency(t *testing.T) {
	ctx := testContext(t)
	installRelease(t, ctx, makeRelease(t, "a", "1.0.0", map[string]string{"b": "1.0.0"}, nil))
	installRelease(t, ctx, makeRelease(t, "b", "1.0.0", map[string]string{"a": "1.0.0"}, nil))
	top := makeRelease(t, "top", "0.1.0", map[string]string{"a": "1.0.0"}, nil)

	_, err := New(ctx, top).Resolve(Options{})
	require.Error(t, err)
	assert.True(t, IsCyclic(err))
}

func TestInstallLocked_MissingChecksumRejected(t *testing.T) {
	ctx := testContext(t)
	top := makeRelease(t, "top", "0.1.0", nil, nil)
	lock := ip.NewLockFile(top.Man.Pin(), []ip.LockEntry{
		{Name: top.Man.Name, Version: top.Man.Version},
		{Name: pin(t, "gates", "1.0.0").Name, Version: pin(t, "gates", "1.0.0").Version},
	})

	err := New(ctx, top).InstallLocked(lock, Options{})
	require.Error(t, err)
	assert.True(t, catalog.IsMissingChecksum(err))
}

func TestResolve_DevDependenciesIncluded(t *testing.T) {
	ctx := testContext(t)
	installRelease(t, ctx, makeRelease(t, "gates", "1.0.0", nil, nil))

	// tb declares its own dev-dependency, which must stay out of the set
	tbRoot := t.TempDir()
	writeRel(t, tbRoot, orbit.ManifestFile,
		"[ip]\nname = \"tb\"\nversion = \"1.0.0\"\n\n[dev-dependencies]\nghost = \"1.0.0\"\n")
	writeRel(t, tbRoot, "tb.vhd", "entity tb is end;\n")
	tb, err := ip.LoadIp(tbRoot)
	require.NoError(t, err)
	installRelease(t, ctx, tb)

	topRoot := t.TempDir()
	writeRel(t, topRoot, orbit.ManifestFile,
		"[ip]\nname = \"top\"\nversion = \"0.1.0\"\n\n"+
			"[dependencies]\ngates = \"1.0.0\"\n\n[dev-dependencies]\ntb = \"1.0.0\"\n")
	writeRel(t, topRoot, "top.vhd", "entity top is end;\n")
	top, err := ip.LoadIp(topRoot)
	require.NoError(t, err)

	res, err := New(ctx, top).Resolve(Options{})
	require.NoError(t, err)
	assert.True(t, res.Graph.Has(pin(t, "tb", "1.0.0")))
	assert.False(t, res.Graph.Has(pin(t, "ghost", "1.0.0")))

	// the lock covers the dev-dependency, so the next run reuses it
	again, err := New(ctx, top).Resolve(Options{})
	require.NoError(t, err)
	assert.True(t, again.FromLock)
	assert.True(t, again.Graph.Has(pin(t, "tb", "1.0.0")))
}

func TestInstallLocked_QueueCopyBeatsStaleCacheSlot(t *testing.T) {
	ctx := testContext(t)

	// the cache already holds this version with different contents
	installRelease(t, ctx, makeRelease(t, "util", "1.0.0", nil, map[string]string{
		"util.vhd": "entity util_stale is end;\n",
	}))
	util := makeRelease(t, "util", "1.0.0", nil, nil)
	require.NoError(t, catalog.CopyTree(util.Root, filepath.Join(ctx.QueuePath, "util-1.0.0")))
	want, err := catalog.ComputeSum(util.Root)
	require.NoError(t, err)

	top := makeRelease(t, "top", "0.1.0", map[string]string{"util": "1.0.0"}, nil)
	lock := ip.NewLockFile(top.Man.Pin(), []ip.LockEntry{
		{Name: top.Man.Name, Version: top.Man.Version},
		{Name: util.Man.Name, Version: util.Man.Version, Sum: &want},
	})

	require.NoError(t, New(ctx, top).InstallLocked(lock, Options{}))
	slot := catalog.SlotName(util.Man.Name, util.Man.Version, want)
	assert.DirExists(t, filepath.Join(ctx.CachePath, slot))
}
