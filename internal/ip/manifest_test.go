package ip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
[ip]
name = "image-filter"
version = "1.2.0"
library = "filters"
description = "A streaming image filter"
source = "git+https://example.com/image-filter.git#v1.2.0"

[dependencies]
gates = "0.1"
util = "1"

[dev-dependencies]
testkit = "0.2.1"
`

func TestParseManifest(t *testing.T) {
	man, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, "image-filter", man.Name.String())
	assert.Equal(t, Version{1, 2, 0}, man.Version)
	assert.Equal(t, "filters", man.Library.String())
	assert.Equal(t, "A streaming image filter", man.Description)
	require.NotNil(t, man.Source)
	assert.Equal(t, "git", man.Source.Protocol)
	assert.Equal(t, "v1.2.0", man.Source.Tag)

	require.Len(t, man.Dependencies, 2)
	assert.Equal(t, "gates", man.Dependencies[0].Name.String())
	assert.Equal(t, "0.1", man.Dependencies[0].Version.String())
	require.Len(t, man.DevDependencies, 1)
	assert.Equal(t, "testkit", man.DevDependencies[0].Name.String())
}

func TestParseManifest_SourceTable(t *testing.T) {
	man, err := ParseManifest([]byte(`
[ip]
name = "gates"
version = "0.1.0"

[ip.source]
url = "https://example.com/gates.zip"
protocol = "curl"
`))
	require.NoError(t, err)
	require.NotNil(t, man.Source)
	assert.Equal(t, "curl", man.Source.Protocol)
	assert.Equal(t, "https://example.com/gates.zip", man.Source.URL)
}

func TestParseManifest_SchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing name", "[ip]\nversion = \"1.0.0\"\n"},
		{"missing version", "[ip]\nname = \"gates\"\n"},
		{"bad version shape", "[ip]\nname = \"gates\"\nversion = \"1.0\"\n"},
		{"bad name shape", "[ip]\nname = \"4gates\"\nversion = \"1.0.0\"\n"},
		{"version not a string", "[ip]\nname = \"gates\"\nversion = 1\n"},
		{"dep version not a string", "[ip]\nname = \"gates\"\nversion = \"1.0.0\"\n[dependencies]\nutil = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestManifest_DepsList(t *testing.T) {
	man, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	runtime := man.DepsList(false)
	require.Len(t, runtime, 2)

	all := man.DepsList(true)
	require.Len(t, all, 3)
	// sorted by name key
	assert.Equal(t, "gates", all[0].Name.String())
	assert.Equal(t, "testkit", all[1].Name.String())
	assert.Equal(t, "util", all[2].Name.String())
}

func TestManifest_HdlLibrary(t *testing.T) {
	man, err := ParseManifest([]byte("[ip]\nname = \"my-filter\"\nversion = \"1.0.0\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "my_filter", man.HdlLibrary())

	man, err = ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	assert.Equal(t, "filters", man.HdlLibrary())
}

func TestTemplateManifest_Parses(t *testing.T) {
	man, err := ParseManifest([]byte(TemplateManifest(NewBasic("gates"))))
	require.NoError(t, err)
	assert.Equal(t, "gates", man.Name.String())
	assert.Equal(t, Version{0, 1, 0}, man.Version)

	man, err = ParseManifest([]byte(TemplateManifestWithLibrary(NewBasic("gates"), NewBasic("logic"))))
	require.NoError(t, err)
	assert.Equal(t, "logic", man.Library.String())
}
