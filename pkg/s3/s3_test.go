package s3

import (
	"context"
	"errors"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mvandenburgh/dandidav/pkg/paths"
	"github.com/mvandenburgh/dandidav/pkg/s3/s3test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

var testMtime = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

func newZarrFake() *s3test.FakeS3 {
	fake := s3test.New()
	for _, key := range []string{
		"zarr/abc/.zattrs",
		"zarr/abc/0/0",
		"zarr/abc/0/1",
		"zarr/abc/1/0",
		"zarr/abc10/other",
	} {
		fake.Put("dandiarchive", key, s3test.Object{Size: 42, ETag: `"etag-` + key + `"`, Modified: testMtime})
	}
	return fake
}

func newTestClient(t *testing.T, fake *s3test.FakeS3) PrefixedClient {
	t.Helper()
	c, err := NewClient(ClientConfig{API: fake})
	require.NoError(t, err)
	return c.WithPrefix(Location{Bucket: "dandiarchive", Key: "zarr/abc"})
}

func mustDir(t *testing.T, s string) paths.PureDirPath {
	t.Helper()
	d, err := paths.ParseDirPath(s)
	require.NoError(t, err)
	return d
}

// ============================================================================
// ParseLocationURL Tests
// ============================================================================

func TestParseLocationURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    Location
		wantErr bool
	}{
		{
			name: "zarr prefix",
			url:  "https://dandiarchive.s3.amazonaws.com/zarr/5f3c/",
			want: Location{Bucket: "dandiarchive", Key: "zarr/5f3c/"},
		},
		{
			name: "regional host",
			url:  "https://dandiarchive.s3.us-east-2.amazonaws.com/blobs/abc/def",
			want: Location{Bucket: "dandiarchive", Key: "blobs/abc/def"},
		},
		{
			name: "percent-encoded key",
			url:  "https://bucket.s3.amazonaws.com/a%20b/c",
			want: Location{Bucket: "bucket", Key: "a b/c"},
		},
		{name: "api url", url: "https://api.dandiarchive.org/api/assets/123/download/", wantErr: true},
		{name: "no key", url: "https://dandiarchive.s3.amazonaws.com/", wantErr: true},
		{name: "ftp scheme", url: "ftp://dandiarchive.s3.amazonaws.com/x", wantErr: true},
		{name: "bare s3 host", url: "https://s3.amazonaws.com/bucket/key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocationURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ============================================================================
// PrefixedClient Tests
// ============================================================================

func TestPrefixedClientList(t *testing.T) {
	t.Run("ListsRootOfPrefix", func(t *testing.T) {
		fake := newZarrFake()
		fake.PageSize = 1
		client := newTestClient(t, fake)

		entries, err := client.List(context.Background(), paths.PureDirPath{})
		require.NoError(t, err)
		require.Len(t, entries, 3)

		obj, ok := entries[0].(Object)
		require.True(t, ok)
		assert.Equal(t, ".zattrs", obj.Key.String())
		assert.Equal(t, int64(42), obj.Size)
		assert.Equal(t, testMtime, obj.Modified)
		assert.Equal(t, `"etag-zarr/abc/.zattrs"`, obj.ETag)
		assert.Equal(t, "https://dandiarchive.s3.amazonaws.com/zarr/abc/.zattrs", obj.DownloadURL.String())

		assert.Equal(t, Folder{KeyPrefix: mustDir(t, "0/")}, entries[1])
		assert.Equal(t, Folder{KeyPrefix: mustDir(t, "1/")}, entries[2])
		assert.Equal(t, 3, fake.Calls, "one call per page")
	})

	t.Run("ListsSubdirectory", func(t *testing.T) {
		client := newTestClient(t, newZarrFake())

		entries, err := client.List(context.Background(), mustDir(t, "0/"))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "0/0", entries[0].(Object).Key.String())
		assert.Equal(t, "0/1", entries[1].(Object).Key.String())
	})

	t.Run("PropagatesErrors", func(t *testing.T) {
		fake := newZarrFake()
		fake.Err = errors.New("boom")
		client := newTestClient(t, fake)

		_, err := client.List(context.Background(), paths.PureDirPath{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestPrefixedClientLookup(t *testing.T) {
	client := newTestClient(t, newZarrFake())
	ctx := context.Background()

	t.Run("FindsFolder", func(t *testing.T) {
		res, err := client.Lookup(ctx, paths.PureDirPath{}, "0")
		require.NoError(t, err)
		require.NotNil(t, res.Folder)
		assert.Nil(t, res.Object)
		assert.Equal(t, "0/", res.Folder.KeyPrefix.String())
	})

	t.Run("FindsObject", func(t *testing.T) {
		res, err := client.Lookup(ctx, mustDir(t, "0/"), "1")
		require.NoError(t, err)
		require.NotNil(t, res.Object)
		assert.Nil(t, res.Folder)
		assert.Equal(t, "0/1", res.Object.Key.String())
	})

	t.Run("IgnoresSiblingPrefixMatches", func(t *testing.T) {
		fake := s3test.New()
		fake.Put("b", "z/10", s3test.Object{Size: 1})
		c, err := NewClient(ClientConfig{API: fake})
		require.NoError(t, err)

		res, err := c.WithPrefix(Location{Bucket: "b", Key: "z/"}).Lookup(ctx, paths.PureDirPath{}, "1")
		require.NoError(t, err)
		assert.False(t, res.Found())
	})

	t.Run("StopsPastTargetPrefix", func(t *testing.T) {
		fake := s3test.New()
		fake.PageSize = 1
		for _, key := range []string{"z/0/0", "z/0a", "z/0b", "z/0c", "z/0d"} {
			fake.Put("b", key, s3test.Object{Size: 1})
		}
		c, err := NewClient(ClientConfig{API: fake})
		require.NoError(t, err)

		res, err := c.WithPrefix(Location{Bucket: "b", Key: "z/"}).Lookup(ctx, paths.PureDirPath{}, "0")
		require.NoError(t, err)
		require.NotNil(t, res.Folder)
		assert.Nil(t, res.Object)
		assert.Equal(t, 2, fake.Calls)
	})

	t.Run("KeysBeforeTargetPrefixKeepPaging", func(t *testing.T) {
		fake := s3test.New()
		fake.PageSize = 1
		// "-" and "." sort before "/", so "0-x" and "0.x" come before "0/".
		for _, key := range []string{"z/0", "z/0-x", "z/0.x", "z/0/1"} {
			fake.Put("b", key, s3test.Object{Size: 1})
		}
		c, err := NewClient(ClientConfig{API: fake})
		require.NoError(t, err)

		res, err := c.WithPrefix(Location{Bucket: "b", Key: "z/"}).Lookup(ctx, paths.PureDirPath{}, "0")
		require.NoError(t, err)
		assert.NotNil(t, res.Object)
		assert.NotNil(t, res.Folder)
	})

	t.Run("MissingName", func(t *testing.T) {
		res, err := client.Lookup(ctx, paths.PureDirPath{}, "missing")
		require.NoError(t, err)
		assert.False(t, res.Found())
	})

	t.Run("RejectsInvalidName", func(t *testing.T) {
		_, err := client.Lookup(ctx, paths.PureDirPath{}, "..")
		assert.ErrorIs(t, err, paths.ErrInvalidPath)
	})
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{
		URL:    "https://signed.example.com/" + *in.Bucket + "/" + *in.Key + "?X-Amz-Signature=abc",
		Method: "GET",
	}, nil
}

func TestPresignedDownloadURL(t *testing.T) {
	c, err := NewClient(ClientConfig{API: newZarrFake(), Presigner: fakePresigner{}})
	require.NoError(t, err)

	res, err := c.WithPrefix(Location{Bucket: "dandiarchive", Key: "zarr/abc/"}).Lookup(context.Background(), paths.PureDirPath{}, ".zattrs")
	require.NoError(t, err)
	require.NotNil(t, res.Object)
	assert.Equal(t, "https://signed.example.com/dandiarchive/zarr/abc/.zattrs?X-Amz-Signature=abc", res.Object.DownloadURL.String())
}

func TestNewClientRequiresAPI(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}
