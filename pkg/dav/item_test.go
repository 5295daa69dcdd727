package dav

import (
	"net/url"
	"testing"
	"time"

	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"github.com/mvandenburgh/dandidav/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestQuoteETag(t *testing.T) {
	assert.Equal(t, "", quoteETag(""))
	assert.Equal(t, `"abc"`, quoteETag("abc"))
	assert.Equal(t, `"abc"`, quoteETag(`"abc"`))
	assert.Equal(t, `W/"abc"`, quoteETag(`W/"abc"`))
}

func TestNewVersionRoot(t *testing.T) {
	v := dandi.DandisetVersion{Version: "0.240301.1000"}

	tests := []struct {
		spec     dandi.VersionSpec
		wantPath string
		wantName string
	}{
		{dandi.Draft(), "/dandisets/000001/draft/", "draft"},
		{dandi.Latest(), "/dandisets/000001/latest/", "latest"},
		{dandi.Published("0.240301.1000"), "/dandisets/000001/releases/0.240301.1000/", "0.240301.1000"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			vr := NewVersionRoot("000001", tt.spec, v)
			assert.Equal(t, tt.wantPath, vr.Path)
			assert.Equal(t, tt.wantName, vr.Name)
			assert.True(t, vr.Item().Collection)
		})
	}
}

func TestResourceItem(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	modified := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	vr := NewVersionRoot("000001", dandi.Draft(), dandi.DandisetVersion{
		Version: dandi.DraftVersionID, Created: created, Modified: modified,
	})

	mustPath := func(s string) paths.PurePath {
		p, err := paths.ParsePath(s)
		require.NoError(t, err)
		return p
	}
	mustDir := func(s string) paths.PureDirPath {
		d, err := paths.ParseDirPath(s)
		require.NoError(t, err)
		return d
	}
	download, _ := url.Parse("https://dandiarchive.s3.amazonaws.com/blobs/abc")

	t.Run("VersionRootFolder", func(t *testing.T) {
		it := vr.ResourceItem(dandi.AssetFolder{Modified: modified})
		assert.Equal(t, vr.Item(), it)
	})

	t.Run("AssetFolder", func(t *testing.T) {
		it := vr.ResourceItem(dandi.AssetFolder{Path: mustDir("sub/"), Modified: modified})
		assert.Equal(t, "/dandisets/000001/draft/sub/", it.Path)
		assert.Equal(t, "sub", it.Name)
		assert.True(t, it.Collection)
		assert.Nil(t, it.Size)
		assert.Equal(t, modified, it.Modified)
		assert.Empty(t, it.ETag)
		assert.Empty(t, it.ContentType)
	})

	t.Run("BlobAsset", func(t *testing.T) {
		it := vr.ResourceItem(dandi.BlobAsset{AssetInfo: dandi.AssetInfo{
			AssetID: "a1", Path: mustPath("sub/img.nii"), Size: 100, Created: created, Modified: modified,
			Metadata: dandi.AssetMetadata{
				EncodingFormat: ptr("application/x-nifti"),
				ContentURL:     []string{download.String()},
				Digest:         dandi.AssetDigests{DandiETag: ptr("abc-1")},
			},
		}})
		assert.Equal(t, "/dandisets/000001/draft/sub/img.nii", it.Path)
		assert.False(t, it.Collection)
		require.NotNil(t, it.Size)
		assert.Equal(t, int64(100), *it.Size)
		assert.Equal(t, `"abc-1"`, it.ETag)
		assert.Equal(t, "application/x-nifti", it.ContentType)
		assert.Equal(t, download, it.Redirect)
	})

	t.Run("BlobAssetDefaults", func(t *testing.T) {
		it := vr.ResourceItem(dandi.BlobAsset{AssetInfo: dandi.AssetInfo{Path: mustPath("x.bin")}})
		assert.Equal(t, DefaultContentType, it.ContentType)
		assert.Empty(t, it.ETag)
		assert.Nil(t, it.Redirect)
	})

	t.Run("ZarrAsset", func(t *testing.T) {
		it := vr.ResourceItem(dandi.ZarrAsset{AssetInfo: dandi.AssetInfo{
			Path: mustPath("data.zarr"), Size: 126, Created: created, Modified: modified,
		}})
		assert.False(t, it.Collection)
		assert.True(t, it.Listable)
		assert.Equal(t, int64(126), *it.Size)
		assert.Empty(t, it.ETag)
		assert.Equal(t, DefaultContentType, it.ContentType)
		assert.Nil(t, it.Redirect)
	})

	t.Run("ZarrFolder", func(t *testing.T) {
		it := vr.ResourceItem(dandi.ZarrFolder{Path: mustDir("data.zarr/0/"), Modified: modified})
		assert.Equal(t, "/dandisets/000001/draft/data.zarr/0/", it.Path)
		assert.Equal(t, "0", it.Name)
		assert.True(t, it.Collection)
	})

	t.Run("ZarrEntry", func(t *testing.T) {
		u, _ := url.Parse("https://dandiarchive.s3.amazonaws.com/zarr/z1/0/0")
		it := vr.ResourceItem(dandi.ZarrEntry{
			Path: mustPath("data.zarr/0/0"), Size: 42, Modified: modified, ETag: `"e"`, URL: u,
		})
		assert.Equal(t, "0", it.Name)
		assert.Equal(t, int64(42), *it.Size)
		assert.Equal(t, `"e"`, it.ETag)
		assert.Equal(t, DefaultContentType, it.ContentType)
		assert.Equal(t, u, it.Redirect)
	})

	t.Run("MetadataItem", func(t *testing.T) {
		it, err := vr.MetadataItem(dandi.VersionMetadata(`{"name": "x"}`))
		require.NoError(t, err)
		assert.Equal(t, "/dandisets/000001/draft/dandiset.yaml", it.Path)
		assert.Equal(t, "name: x\n", string(it.Content))
		assert.Equal(t, int64(len(it.Content)), *it.Size)
		assert.Equal(t, MetadataContentType, it.ContentType)
	})
}
