package dav

import (
	"strings"
	"testing"

	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMetadataYAML(t *testing.T) {
	md := dandi.VersionMetadata(`{
		"name": "Test Dandiset",
		"id": "DANDI:000001/draft",
		"version": "0.1",
		"count": 3,
		"keywords": ["a", "b"],
		"license": {"spdx": null, "open": true}
	}`)

	out, err := MetadataYAML(md)
	require.NoError(t, err)
	text := string(out)

	t.Run("BlockStyle", func(t *testing.T) {
		assert.NotContains(t, text, "{")
		assert.NotContains(t, text, "[")
		assert.Contains(t, text, "name: Test Dandiset\n")
	})

	t.Run("KeyOrder", func(t *testing.T) {
		order := []string{"name:", "id:", "version:", "count:", "keywords:", "license:"}
		last := -1
		for _, key := range order {
			i := strings.Index(text, key)
			require.GreaterOrEqual(t, i, 0, key)
			assert.Greater(t, i, last, key)
			last = i
		}
	})

	t.Run("NumericLookingStringsStayStrings", func(t *testing.T) {
		assert.Contains(t, text, `version: "0.1"`)
	})

	t.Run("SameData", func(t *testing.T) {
		var want, got any
		require.NoError(t, yaml.Unmarshal(md, &want))
		require.NoError(t, yaml.Unmarshal(out, &got))
		assert.Equal(t, want, got)
	})
}

func TestMetadataYAMLInvalid(t *testing.T) {
	for name, md := range map[string]string{
		"Empty":     "",
		"Malformed": `{"name": `,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MetadataYAML(dandi.VersionMetadata(md))
			assert.Error(t, err)
		})
	}
}
