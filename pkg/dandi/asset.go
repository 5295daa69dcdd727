package dandi

import (
	"time"

	"github.com/mvandenburgh/dandidav/pkg/paths"
)

// RawAsset is an asset record as delivered by the metadata API, before the
// blob/zarr invariant has been checked.
type RawAsset struct {
	AssetID  string         `json:"asset_id"`
	Blob     *string        `json:"blob"`
	Zarr     *string        `json:"zarr"`
	Path     paths.PurePath `json:"path"`
	Size     int64          `json:"size"`
	Created  time.Time      `json:"created"`
	Modified time.Time      `json:"modified"`
	Metadata AssetMetadata  `json:"metadata"`
}

// ToAsset checks that the record names exactly one backing store and
// converts it to the matching Asset variant. The remaining fields are
// copied through unchanged.
//
// Every record must pass through here before it is placed in a tree;
// nothing downstream re-checks the invariant.
func (r RawAsset) ToAsset() (Asset, error) {
	info := AssetInfo{
		AssetID:  r.AssetID,
		Path:     r.Path,
		Size:     r.Size,
		Created:  r.Created,
		Modified: r.Modified,
		Metadata: r.Metadata,
	}

	switch {
	case r.Blob != nil && r.Zarr == nil:
		return BlobAsset{AssetInfo: info, BlobID: *r.Blob}, nil
	case r.Blob == nil && r.Zarr != nil:
		return ZarrAsset{AssetInfo: info, ZarrID: *r.Zarr}, nil
	case r.Blob == nil:
		return nil, &AssetTypeError{Kind: Neither, AssetID: r.AssetID}
	default:
		return nil, &AssetTypeError{Kind: Both, AssetID: r.AssetID}
	}
}
