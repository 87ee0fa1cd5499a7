package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

func mustIdent(t *testing.T, s string) ip.Ident {
	t.Helper()
	id, err := ip.ParseIdent(s)
	require.NoError(t, err)
	return id
}

func mustAny(t *testing.T, s string) ip.AnyVersion {
	t.Helper()
	v, err := ip.ParseAnyVersion(s)
	require.NoError(t, err)
	return v
}

// queueRelease drops a release fixture directly into the download queue.
func queueRelease(t *testing.T, ctx *orbit.Context, name, version string) {
	t.Helper()
	src := makeIp(t, name, version)
	require.NoError(t, CopyTree(src.Root, filepath.Join(ctx.QueuePath, name+"-"+version)))
}

func TestCatalog_ScansTiers(t *testing.T) {
	ctx := newTestContext(t)
	_, err := Install(ctx, makeIp(t, "gates", "0.1.0"), InstallOptions{})
	require.NoError(t, err)
	queueRelease(t, ctx, "gates", "0.2.0")
	queueRelease(t, ctx, "util", "1.0.0")

	cat, err := NewCatalog(ctx)
	require.NoError(t, err)

	entries := cat.Lookup(mustIdent(t, "gates"))
	require.Len(t, entries, 2)
	// highest version first
	assert.Equal(t, "0.2.0", entries[0].Man.Version.String())
	assert.Equal(t, TierQueue, entries[0].Tier)
	assert.Equal(t, "0.1.0", entries[1].Man.Version.String())
	assert.Equal(t, TierCache, entries[1].Tier)

	names := cat.Names()
	require.Len(t, names, 2)
	assert.Equal(t, "gates", names[0].String())
	assert.Equal(t, "util", names[1].String())
}

func TestCatalog_CacheWinsTieOnVersion(t *testing.T) {
	ctx := newTestContext(t)
	_, err := Install(ctx, makeIp(t, "gates", "0.1.0"), InstallOptions{})
	require.NoError(t, err)
	queueRelease(t, ctx, "gates", "0.1.0")

	cat, err := NewCatalog(ctx)
	require.NoError(t, err)
	entry, ok := cat.Get(mustIdent(t, "gates"), mustAny(t, "0.1.0"))
	require.True(t, ok)
	assert.Equal(t, TierCache, entry.Tier)
}

func TestCatalog_GetHonorsRequirement(t *testing.T) {
	ctx := newTestContext(t)
	for _, v := range []string{"1.0.0", "1.1.0", "2.0.0"} {
		_, err := Install(ctx, makeIp(t, "gates", v), InstallOptions{})
		require.NoError(t, err)
	}

	cat, err := NewCatalog(ctx)
	require.NoError(t, err)

	entry, ok := cat.Get(mustIdent(t, "gates"), mustAny(t, "1"))
	require.True(t, ok)
	assert.Equal(t, "1.1.0", entry.Man.Version.String())

	entry, ok = cat.Get(mustIdent(t, "gates"), mustAny(t, "latest"))
	require.True(t, ok)
	assert.Equal(t, "2.0.0", entry.Man.Version.String())

	_, ok = cat.Get(mustIdent(t, "gates"), mustAny(t, "3.0.0"))
	assert.False(t, ok)
}

func TestCatalog_DynamicSlotsHidden(t *testing.T) {
	ctx := newTestContext(t)
	res, err := Install(ctx, makeIp(t, "gates", "0.1.0"), InstallOptions{})
	require.NoError(t, err)

	meta := &ip.Metadata{Dynamic: true, Mapping: map[string]string{"gates": "_ababababab"}}
	metaPath := filepath.Join(ctx.CachePath, res.Slot, orbit.MetadataFile)
	require.NoError(t, ip.WriteMetadataFile(metaPath, meta))

	cat, err := NewCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, cat.Lookup(mustIdent(t, "gates")))
	// the slot itself is still addressable by name
	assert.True(t, cat.IsCached(res.Slot))
}

func TestCatalog_WithWorkingIsLastResort(t *testing.T) {
	ctx := newTestContext(t)
	_, err := Install(ctx, makeIp(t, "gates", "0.1.0"), InstallOptions{})
	require.NoError(t, err)
	working := makeIp(t, "gates", "0.1.0")

	cat, err := NewCatalog(ctx)
	require.NoError(t, err)
	cat.WithWorking(working)

	entries := cat.Lookup(mustIdent(t, "gates"))
	require.Len(t, entries, 2)
	assert.Equal(t, TierCache, entries[0].Tier)
	assert.Equal(t, TierWorking, entries[1].Tier)
}

func TestCatalog_NameLookupFoldsKey(t *testing.T) {
	ctx := newTestContext(t)
	_, err := Install(ctx, makeIp(t, "my-filter", "0.1.0"), InstallOptions{})
	require.NoError(t, err)

	cat, err := NewCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, cat.Lookup(mustIdent(t, "My_Filter")), 1)
}

func TestCatalog_IgnoresInterruptedStages(t *testing.T) {
	ctx := newTestContext(t)
	src := makeIp(t, "gates", "9.9.9")
	require.NoError(t, CopyTree(src.Root, filepath.Join(ctx.CachePath, ".stage-leftover")))

	cat, err := NewCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, cat.Lookup(mustIdent(t, "gates")))
}
