package dandi

import (
	"net/url"
	"time"

	"github.com/mvandenburgh/dandidav/pkg/paths"
	"github.com/mvandenburgh/dandidav/pkg/s3"
)

// Resource is anything addressable by path inside a version's asset tree.
//
// It is a closed union; the only implementations are:
//   - AssetFolder: a folder synthesized from flat asset paths
//   - BlobAsset, ZarrAsset: the two kinds of Asset
//   - ZarrFolder: a key prefix inside a Zarr asset
//   - ZarrEntry: an object inside a Zarr asset
//
// Consumers switch on the concrete type and are expected to handle every
// case.
type Resource interface {
	isResource()
}

// Asset is a BlobAsset or a ZarrAsset.
type Asset interface {
	Resource
	Info() AssetInfo
}

// AssetInfo holds the fields shared by both asset kinds.
type AssetInfo struct {
	AssetID  string
	Path     paths.PurePath
	Size     int64
	Created  time.Time
	Modified time.Time
	Metadata AssetMetadata
}

// BlobAsset is an asset stored as a single object.
type BlobAsset struct {
	AssetInfo
	BlobID string
}

// ZarrAsset is an asset stored as a Zarr hierarchy of objects.
type ZarrAsset struct {
	AssetInfo
	ZarrID string
}

// AssetFolder groups assets sharing a path prefix. It has no backing record.
// The zero Path denotes the root of the version's asset tree.
type AssetFolder struct {
	Path paths.PureDirPath
	// Modified is the modification time of the containing version.
	Modified time.Time
}

// ZarrFolder is a key prefix inside a Zarr asset. Path is relative to the
// version root, so it includes the Zarr asset's own path.
type ZarrFolder struct {
	Path paths.PureDirPath
	// Modified is the modification time of the enclosing Zarr asset.
	Modified time.Time
}

// ZarrEntry is an object inside a Zarr asset. Path is relative to the
// version root.
type ZarrEntry struct {
	Path     paths.PurePath
	Size     int64
	Modified time.Time
	ETag     string
	URL      *url.URL
}

func (AssetFolder) isResource() {}
func (BlobAsset) isResource()   {}
func (ZarrAsset) isResource()   {}
func (ZarrFolder) isResource()  {}
func (ZarrEntry) isResource()   {}

// Info implements Asset.
func (a BlobAsset) Info() AssetInfo { return a.AssetInfo }

// Info implements Asset.
func (a ZarrAsset) Info() AssetInfo { return a.AssetInfo }

// ContentType returns the declared encoding format, if any.
func (a BlobAsset) ContentType() (string, bool) {
	if f := a.Metadata.EncodingFormat; f != nil {
		return *f, true
	}
	return "", false
}

// ETag returns the DANDI etag digest, if any.
func (a BlobAsset) ETag() (string, bool) {
	if d := a.Metadata.Digest.DandiETag; d != nil {
		return *d, true
	}
	return "", false
}

// DownloadURL returns the S3 URL of the blob's content, if any.
func (a BlobAsset) DownloadURL() (*url.URL, bool) {
	return a.Metadata.DownloadURL()
}

// S3Location returns the key prefix holding the Zarr's objects.
func (a ZarrAsset) S3Location() (s3.Location, bool) {
	return a.Metadata.S3Location()
}

// ResourceWithChildren pairs a resource with its immediate children.
// Children is nil for BlobAsset and ZarrEntry, which have no structure.
// ZarrAsset carries children even though it is also addressable as an item.
type ResourceWithChildren struct {
	Resource Resource
	Children []Resource
}

// resourceWithS3 is a resolved resource that still owns the S3 handle
// scoped to its enclosing Zarr. store is nil outside Zarr assets.
type resourceWithS3 struct {
	Resource
	store *zarrStore
}

// zarrStore is an S3 client scoped to one Zarr asset plus the asset's place
// in the version tree.
type zarrStore struct {
	client   s3.PrefixedClient
	root     paths.PureDirPath
	modified time.Time
}

// fromS3 converts a listing entry (relative to the Zarr prefix) into a
// resource addressed from the version root.
func (z *zarrStore) fromS3(e s3.Entry) Resource {
	switch e := e.(type) {
	case s3.Folder:
		return ZarrFolder{Path: z.root.JoinDir(e.KeyPrefix), Modified: z.modified}
	case s3.Object:
		return ZarrEntry{
			Path:     z.root.Join(e.Key),
			Size:     e.Size,
			Modified: e.Modified,
			ETag:     e.ETag,
			URL:      e.DownloadURL,
		}
	}
	panic("unreachable: unknown s3 entry type")
}
