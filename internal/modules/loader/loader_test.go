package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
name: augustus-test
version: 1.0.0
dataSources:
  - name: AugustusSwapperV5
    source:
      address: " 0xDEF171Fe48CF0115B1d80b88dc8eAB59176FEe57 "
      abi: AugustusSwapperV5
    mapping:
      entities:
        - Swap
      eventHandlers:
        - event: SwappedV3(bytes16,address,uint256,address,indexed address,indexed address,indexed address,uint256,uint256,uint256)
          handler: handleSwappedV3
context:
  release: 5.x
`

func TestParseManifestDefaults(t *testing.T) {
	l := NewManifestLoader(zerolog.Nop())

	m, err := l.ParseManifest([]byte(testManifest))
	require.NoError(t, err)

	assert.Equal(t, "augustus-test", m.Name)
	assert.Equal(t, DefaultModuleType, m.Type)
	require.Len(t, m.DataSources, 1)

	ds := m.DataSources[0]
	assert.Equal(t, "ethereum/contract", ds.Kind)
	assert.Equal(t, "mainnet", ds.Network)
	assert.Equal(t, "ethereum/events", ds.Mapping.Kind)
	assert.Equal(t, "0.0.1", ds.Mapping.APIVersion)
	assert.Equal(t, "go", ds.Mapping.Language)
	require.NotNil(t, ds.Source.StartBlock)
	assert.Equal(t, uint64(0), *ds.Source.StartBlock)
	require.NotNil(t, ds.Source.Address)
	assert.Equal(t, "0xdef171fe48cf0115b1d80b88dc8eab59176fee57", *ds.Source.Address)
	assert.Equal(t, "5.x", m.Context["release"])
}

func TestParseManifestInvalid(t *testing.T) {
	l := NewManifestLoader(zerolog.Nop())

	tests := []struct {
		name string
		data string
	}{
		{name: "not yaml", data: "name: [unterminated"},
		{name: "missing name", data: "version: 1.0.0\ndataSources: []"},
		{name: "no data sources", data: "name: a\nversion: 1.0.0"},
		{
			name: "no handlers",
			data: `
name: a
version: 1.0.0
dataSources:
  - kind: ethereum/contract
    name: A
    source:
      abi: AugustusSwapperV5
    mapping:
      entities: [Swap]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.ParseManifest([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(testManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("name: ["), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	l := NewManifestLoader(zerolog.Nop())
	manifests, err := l.LoadFromDirectory(dir)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "augustus-test", manifests[0].Name)

	assert.NoError(t, l.ValidateManifestDirectory(dir))
	assert.Error(t, l.ValidateManifestDirectory(filepath.Join(dir, "missing")))
	assert.Error(t, l.ValidateManifestDirectory(t.TempDir()))
}

func TestValidateManifestDirectoryDuplicates(t *testing.T) {
	l := NewManifestLoader(zerolog.Nop())

	t.Run("same name", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(testManifest), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(testManifest), 0o644))
		assert.ErrorContains(t, l.ValidateManifestDirectory(dir), "duplicate module name")
	})

	t.Run("same contract", func(t *testing.T) {
		dir := t.TempDir()
		other := []byte("name: augustus-other" + testManifest[len("\nname: augustus-test"):])
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(testManifest), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), other, 0o644))
		assert.ErrorContains(t, l.ValidateManifestDirectory(dir), "is indexed by both")
	})
}

func TestRepositoryManifests(t *testing.T) {
	l := NewManifestLoader(zerolog.Nop())
	manifests, err := l.LoadFromDirectory("../../../manifests")
	require.NoError(t, err)
	require.Len(t, manifests, 4)
	assert.NoError(t, checkDuplicates(manifests))

	releases := make(map[string]string)
	for _, m := range manifests {
		assert.Equal(t, DefaultModuleType, m.Type)
		releases[m.Name], _ = m.Context["release"].(string)
	}
	assert.Equal(t, map[string]string{
		"augustus-v0_2_0": "0.2.0",
		"augustus-v2":     "2.0.0",
		"augustus-v4":     "4.0.0",
		"augustus-v5":     "5.x",
	}, releases)
}

func TestManifestTemplateRoundTrip(t *testing.T) {
	l := NewManifestLoader(zerolog.Nop())

	template := l.GetManifestTemplate("augustus-polygon")
	data, err := l.SerializeManifest(template)
	require.NoError(t, err)

	parsed, err := l.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, template.Name, parsed.Name)
	assert.Equal(t, template.Type, parsed.Type)
	assert.Equal(t, "5.x", parsed.Context["release"])
	require.Len(t, parsed.DataSources, 1)
	assert.Len(t, parsed.DataSources[0].Mapping.EventHandlers, 2)
}
