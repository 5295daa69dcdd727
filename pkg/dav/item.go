package dav

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mvandenburgh/dandidav/pkg/dandi"
)

// Content types served for non-collection items.
const (
	DefaultContentType  = "application/octet-stream"
	MetadataContentType = "text/yaml; charset=utf-8"
)

// MetadataFileName is the synthetic file holding a version's metadata at
// the root of every version.
const MetadataFileName = "dandiset.yaml"

// Item is one resource as exposed over WebDAV: its address and the values
// of its live properties, plus what GET should do with it.
type Item struct {
	// Path is the unescaped request path. Collections end in "/".
	Path string

	// Name is the final path component, used as the display name.
	Name string

	Collection bool

	// Size is nil when the item has no content length (collections).
	Size *int64

	// Created and Modified are omitted from responses when zero.
	Created  time.Time
	Modified time.Time

	// ETag and ContentType are omitted from responses when empty.
	ETag        string
	ContentType string

	// Listable marks non-collection items that GET renders as an index of
	// their children (Zarr assets).
	Listable bool

	// Redirect is where GET sends the client for the item's content.
	Redirect *url.URL

	// Content is served inline by GET (dandiset.yaml).
	Content []byte
}

// Href returns the percent-encoded address of the item.
func (it Item) Href() string {
	return Href(it.Path)
}

func sizeOf(n int64) *int64 { return &n }

// quoteETag wraps an entity tag in double quotes unless it already is a
// quoted (or weak) tag.
func quoteETag(tag string) string {
	if tag == "" || strings.HasPrefix(tag, `"`) || strings.HasPrefix(tag, `W/"`) {
		return tag
	}
	return strconv.Quote(tag)
}

// ============================================================================
// Collections above the asset tree
// ============================================================================

// RootItem is the top-level collection.
func RootItem() Item {
	return Item{Path: "/", Collection: true}
}

// DandisetIndexItem is the collection of all dandisets.
func DandisetIndexItem() Item {
	return Item{Path: "/dandisets/", Name: "dandisets", Collection: true}
}

// DandisetPath returns the path of a dandiset's collection.
func DandisetPath(id dandi.DandisetID) string {
	return "/dandisets/" + id.String() + "/"
}

// DandisetItem is the collection of one dandiset's versions.
func DandisetItem(d dandi.Dandiset) Item {
	return Item{
		Path:       DandisetPath(d.Identifier),
		Name:       d.Identifier.String(),
		Collection: true,
		Created:    d.Created,
		Modified:   d.Modified,
	}
}

// ReleasesItem is the collection of a dandiset's published versions.
func ReleasesItem(d dandi.Dandiset) Item {
	return Item{
		Path:       DandisetPath(d.Identifier) + "releases/",
		Name:       "releases",
		Collection: true,
		Modified:   d.Modified,
	}
}

// VersionPath returns the path of the root of a version.
func VersionPath(id dandi.DandisetID, spec dandi.VersionSpec) string {
	return DandisetPath(id) + spec.String() + "/"
}

// ============================================================================
// Versions and their asset trees
// ============================================================================

// VersionRoot anchors the asset tree of one version in the DAV namespace.
type VersionRoot struct {
	// Path is the collection path of the version root, ending in "/".
	Path    string
	Name    string
	Version dandi.DandisetVersion
}

// NewVersionRoot places version v of dandiset id at the path selected by
// spec.
func NewVersionRoot(id dandi.DandisetID, spec dandi.VersionSpec, v dandi.DandisetVersion) VersionRoot {
	name := spec.String()
	if spec.Kind == dandi.VersionPublished {
		name = spec.Tag.String()
	}
	return VersionRoot{Path: VersionPath(id, spec), Name: name, Version: v}
}

// Item renders the version root collection.
func (vr VersionRoot) Item() Item {
	return Item{
		Path:       vr.Path,
		Name:       vr.Name,
		Collection: true,
		Created:    vr.Version.Created,
		Modified:   vr.Version.Modified,
	}
}

// MetadataItem renders the dandiset.yaml file of the version from its raw
// metadata document.
func (vr VersionRoot) MetadataItem(md dandi.VersionMetadata) (Item, error) {
	body, err := MetadataYAML(md)
	if err != nil {
		return Item{}, err
	}
	return Item{
		Path:        vr.Path + MetadataFileName,
		Name:        MetadataFileName,
		Size:        sizeOf(int64(len(body))),
		Created:     vr.Version.Created,
		Modified:    vr.Version.Modified,
		ContentType: MetadataContentType,
		Content:     body,
	}, nil
}

// ResourceItem renders a resource of the version's asset tree.
//
//   - folders (asset or Zarr) are collections with a modification time only
//   - blob assets carry size, digest etag, declared content type and a
//     download redirect
//   - Zarr assets are files with a size that GET lists like a folder
//   - Zarr entries carry their S3 size, etag and download URL
func (vr VersionRoot) ResourceItem(r dandi.Resource) Item {
	switch r := r.(type) {
	case dandi.AssetFolder:
		if r.Path.IsZero() {
			return vr.Item()
		}
		return Item{
			Path:       vr.Path + r.Path.String(),
			Name:       r.Path.Name(),
			Collection: true,
			Modified:   r.Modified,
		}

	case dandi.BlobAsset:
		it := Item{
			Path:        vr.Path + r.Path.String(),
			Name:        r.Path.Name(),
			Size:        sizeOf(r.Size),
			Created:     r.Created,
			Modified:    r.Modified,
			ContentType: DefaultContentType,
		}
		if ct, ok := r.ContentType(); ok && ct != "" {
			it.ContentType = ct
		}
		if etag, ok := r.ETag(); ok {
			it.ETag = quoteETag(etag)
		}
		if u, ok := r.DownloadURL(); ok {
			it.Redirect = u
		}
		return it

	case dandi.ZarrAsset:
		return Item{
			Path:        vr.Path + r.Path.String(),
			Name:        r.Path.Name(),
			Size:        sizeOf(r.Size),
			Created:     r.Created,
			Modified:    r.Modified,
			ContentType: DefaultContentType,
			Listable:    true,
		}

	case dandi.ZarrFolder:
		return Item{
			Path:       vr.Path + r.Path.String(),
			Name:       r.Path.Name(),
			Collection: true,
			Modified:   r.Modified,
		}

	case dandi.ZarrEntry:
		return Item{
			Path:        vr.Path + r.Path.String(),
			Name:        r.Path.Name(),
			Size:        sizeOf(r.Size),
			Modified:    r.Modified,
			ETag:        quoteETag(r.ETag),
			ContentType: DefaultContentType,
			Redirect:    r.URL,
		}
	}

	panic("unreachable: unknown resource type")
}

// ResourceItems renders each resource in order.
func (vr VersionRoot) ResourceItems(rs []dandi.Resource) []Item {
	items := make([]Item, 0, len(rs))
	for _, r := range rs {
		items = append(items, vr.ResourceItem(r))
	}
	return items
}
