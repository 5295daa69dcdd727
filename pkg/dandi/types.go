package dandi

import (
	"net/url"
	"time"

	"github.com/mvandenburgh/dandidav/pkg/paths"
	"github.com/mvandenburgh/dandidav/pkg/s3"
)

// Dandiset is a snapshot of a dandiset as reported by the metadata API.
type Dandiset struct {
	Identifier DandisetID `json:"identifier"`
	Created    time.Time  `json:"created"`
	Modified   time.Time  `json:"modified"`

	DraftVersion               DandisetVersion  `json:"draft_version"`
	MostRecentPublishedVersion *DandisetVersion `json:"most_recent_published_version"`
}

// DandisetVersion summarizes one version of a dandiset.
type DandisetVersion struct {
	Version  VersionID `json:"version"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// VersionMetadata is the raw JSON metadata document of a version.
type VersionMetadata []byte

// AssetMetadata is the subset of an asset's metadata used by the gateway.
type AssetMetadata struct {
	EncodingFormat *string      `json:"encodingFormat"`
	ContentURL     []string     `json:"contentUrl"`
	Digest         AssetDigests `json:"digest"`
}

// AssetDigests carries the digests of an asset's content.
type AssetDigests struct {
	DandiETag *string `json:"dandi:dandi-etag"`
}

// S3Location returns the first content URL that parses as an S3 location.
func (m AssetMetadata) S3Location() (s3.Location, bool) {
	for _, raw := range m.ContentURL {
		if loc, err := s3.ParseLocationURL(raw); err == nil {
			return loc, true
		}
	}
	return s3.Location{}, false
}

// DownloadURL returns the first content URL that points into S3.
func (m AssetMetadata) DownloadURL() (*url.URL, bool) {
	for _, raw := range m.ContentURL {
		if _, err := s3.ParseLocationURL(raw); err != nil {
			continue
		}
		if u, err := url.Parse(raw); err == nil {
			return u, true
		}
	}
	return nil, false
}

// FolderEntry is one item of a "children at path" listing. AssetID is
// empty for folders.
type FolderEntry struct {
	Path    paths.PurePath
	AssetID string
}

// IsFolder reports whether the entry is a bare folder indicator.
func (e FolderEntry) IsFolder() bool { return e.AssetID == "" }
