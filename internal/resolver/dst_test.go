package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

// dstFixture installs two releases of util that both declare an entity
// named add, plus an adder release pinned to the newer one. The working
// top depends on the older util directly and on adder, so the older util
// sits closer to the root than the newer one.
func dstFixture(t *testing.T) (*Resolver, *Resolution, *catalog.InstallResult) {
	t.Helper()
	ctx := testContext(t)

	installRelease(t, ctx, makeRelease(t, "util", "1.0.0", nil, map[string]string{
		"add.vhd": "entity add is end;\nentity legacy_add is end;\n",
	}))
	newUtil := installRelease(t, ctx, makeRelease(t, "util", "1.1.0", nil, map[string]string{
		"add.vhd": "entity add is end;\n",
	}))
	installRelease(t, ctx, makeRelease(t, "adder", "2.0.0",
		map[string]string{"util": "1.1.0"}, map[string]string{
			"adder.vhd": "entity adder is end;\n" +
				"architecture rtl of adder is\nbegin\n" +
				"  u : entity work.add;\nend architecture;\n",
		}))
	top := makeRelease(t, "top", "0.1.0",
		map[string]string{"adder": "2.0.0", "util": "1.0.0"}, map[string]string{
			"top.vhd": "entity top is end;\n" +
				"architecture rtl of top is\nbegin\n" +
				"  u1 : entity work.add;\n" +
				"  u2 : entity work.adder;\nend architecture;\n",
		})

	r := New(ctx, top)
	res, err := r.Resolve(Options{})
	require.NoError(t, err)
	require.Len(t, res.Graph.Pins(), 4)
	return r, res, newUtil
}

func TestTransform_RenamesCollidingRelease(t *testing.T) {
	r, res, newUtil := dstFixture(t)
	linked, err := r.Transform(res.Graph)
	require.NoError(t, err)
	require.Len(t, linked, 4)

	suffix := "_" + newUtil.Sum.Prefix()

	// the util top depends on directly claims its names first and keeps
	// its canonical installation
	canonical := linked[pin(t, "util", "1.0.0").Key()]
	require.NotNil(t, canonical)
	assert.False(t, canonical.Transformed)
	assert.Contains(t, canonical.Units, "add")
	assert.Contains(t, canonical.Units, "legacy_add")

	// the deeper util is served from a dynamic copy with renamed units
	renamed := linked[pin(t, "util", "1.1.0").Key()]
	require.NotNil(t, renamed)
	assert.True(t, renamed.Transformed)
	assert.NotContains(t, renamed.Units, "add")
	assert.Contains(t, renamed.Units, "add"+suffix)
	assert.NotEqual(t, renamed.Ip.Root, renamed.Node.Ip.Root)

	// adder pinned the renamed util, so its dynamic view follows the
	// rename while its own unit names stay put
	adder := linked[pin(t, "adder", "2.0.0").Key()]
	require.NotNil(t, adder)
	assert.True(t, adder.Transformed)
	assert.Contains(t, adder.Units, "adder")
	data, err := os.ReadFile(filepath.Join(adder.Ip.Root, "adder.vhd"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "work.add"+suffix+";")

	// the working IP is never replaced by a cache copy
	topLinked := linked[res.Graph.Root().Key()]
	require.NotNil(t, topLinked)
	assert.False(t, topLinked.Transformed)
	assert.Same(t, topLinked.Node.Ip, topLinked.Ip)
	data, err = os.ReadFile(filepath.Join(topLinked.Ip.Root, "top.vhd"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "work.add;")
	assert.Contains(t, string(data), "work.adder;")
}

func TestTransform_DynamicSlotsAreMarked(t *testing.T) {
	r, res, _ := dstFixture(t)
	linked, err := r.Transform(res.Graph)
	require.NoError(t, err)

	renamed := linked[pin(t, "util", "1.1.0").Key()]
	require.True(t, renamed.Transformed)

	meta, err := ip.ReadMetadataFile(filepath.Join(renamed.Ip.Root, orbit.MetadataFile))
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.True(t, meta.Dynamic)
	assert.Contains(t, meta.Mapping, "add")

	// the dynamic slot is addressed by its transformed contents
	sum, err := catalog.ComputeSum(renamed.Ip.Root)
	require.NoError(t, err)
	wantSlot := catalog.SlotName(renamed.Node.Ip.Man.Name, renamed.Node.Ip.Man.Version, sum)
	assert.Equal(t, wantSlot, filepath.Base(renamed.Ip.Root))

	// dynamic copies never surface as install candidates
	cat, err := catalog.NewCatalog(r.ctx)
	require.NoError(t, err)
	utilName := pin(t, "util", "1.0.0").Name
	for _, e := range cat.Lookup(utilName) {
		assert.False(t, e.Dynamic)
	}
}

func TestTransform_IsIdempotent(t *testing.T) {
	r, res, _ := dstFixture(t)
	first, err := r.Transform(res.Graph)
	require.NoError(t, err)
	second, err := r.Transform(res.Graph)
	require.NoError(t, err)

	k := pin(t, "util", "1.1.0").Key()
	assert.Equal(t, first[k].Ip.Root, second[k].Ip.Root)

	// no stray staging directories left in the cache
	dirs, err := os.ReadDir(r.ctx.CachePath)
	require.NoError(t, err)
	for _, d := range dirs {
		assert.NotContains(t, d.Name(), ".stage-")
	}
}

func TestTransform_NoCollisionsNoCopies(t *testing.T) {
	ctx := testContext(t)
	installRelease(t, ctx, makeRelease(t, "gates", "1.0.0", nil, nil))
	top := makeRelease(t, "top", "0.1.0", map[string]string{"gates": "1"}, nil)

	r := New(ctx, top)
	res, err := r.Resolve(Options{})
	require.NoError(t, err)

	linked, err := r.Transform(res.Graph)
	require.NoError(t, err)
	for _, l := range linked {
		assert.False(t, l.Transformed)
		assert.Same(t, l.Node.Ip, l.Ip)
	}
}
