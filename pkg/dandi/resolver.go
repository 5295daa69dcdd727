// Package dandi models the DANDI archive's dandisets, versions and assets and
// resolves paths inside a version to typed resources.
//
// Resolution combines two backends:
//   - the metadata API, which lists folders and assets by path and serves
//     asset records
//   - S3, which holds the internal layout of Zarr assets
//
// A path is walked one segment at a time through the metadata API. When the
// walk reaches a Zarr asset with segments left over, it continues inside S3
// under the Zarr's key prefix.
//
// Nothing is cached: every call re-fetches from both backends, and each call
// owns the S3 handle it creates for a Zarr descent.
package dandi

import (
	"context"
	"errors"
	"strings"

	"github.com/mvandenburgh/dandidav/internal/logger"
	"github.com/mvandenburgh/dandidav/pkg/paths"
	"github.com/mvandenburgh/dandidav/pkg/s3"
)

// Resolver turns dandiset/version/path triples into resources. It holds no
// per-request state and is safe for concurrent use.
type Resolver struct {
	api MetadataClient
	s3  *s3.Client
}

// NewResolver creates a Resolver over the given backends.
func NewResolver(api MetadataClient, s3Client *s3.Client) *Resolver {
	if api == nil {
		panic("metadata client cannot be nil")
	}
	if s3Client == nil {
		panic("S3 client cannot be nil")
	}
	return &Resolver{api: api, s3: s3Client}
}

// VersionRef is a version selector resolved against the metadata API.
type VersionRef struct {
	Dandiset Dandiset
	Version  DandisetVersion
}

// ============================================================================
// Dandisets and versions
// ============================================================================

// Dandisets lists every dandiset.
func (r *Resolver) Dandisets(ctx context.Context) ([]Dandiset, error) {
	ds, err := collect(r.api.ListDandisets(ctx))
	if err != nil {
		return nil, upstream(BackendMetadata, "list dandisets", err)
	}
	return ds, nil
}

// Dandiset fetches one dandiset.
func (r *Resolver) Dandiset(ctx context.Context, id DandisetID) (Dandiset, error) {
	d, err := r.api.GetDandiset(ctx, id)
	if err != nil {
		return Dandiset{}, upstream(BackendMetadata, "get dandiset", err)
	}
	return d, nil
}

// VersionsOf returns the versions a dandiset exposes directly: its draft,
// followed by its most recent published version when there is one.
func VersionsOf(d Dandiset) []DandisetVersion {
	out := []DandisetVersion{d.DraftVersion}
	if d.MostRecentPublishedVersion != nil {
		out = append(out, *d.MostRecentPublishedVersion)
	}
	return out
}

// PublishedVersions lists the published versions of a dandiset in the order
// the metadata API returns them.
func (r *Resolver) PublishedVersions(ctx context.Context, id DandisetID) ([]DandisetVersion, error) {
	all, err := collect(r.api.ListVersions(ctx, id))
	if err != nil {
		return nil, upstream(BackendMetadata, "list versions", err)
	}
	published := make([]DandisetVersion, 0, len(all))
	for _, v := range all {
		if v.Version != DraftVersionID {
			published = append(published, v)
		}
	}
	return published, nil
}

// ResolveVersion looks up the dandiset and resolves spec to a concrete
// version. Latest fails with ErrNotFound when nothing has been published.
func (r *Resolver) ResolveVersion(ctx context.Context, id DandisetID, spec VersionSpec) (VersionRef, error) {
	d, err := r.Dandiset(ctx, id)
	if err != nil {
		return VersionRef{}, err
	}

	switch spec.Kind {
	case VersionDraft:
		return VersionRef{Dandiset: d, Version: d.DraftVersion}, nil

	case VersionLatest:
		if d.MostRecentPublishedVersion == nil {
			return VersionRef{}, notFound("dandiset %s has no published versions", id)
		}
		return VersionRef{Dandiset: d, Version: *d.MostRecentPublishedVersion}, nil

	default:
		v, err := r.api.GetVersion(ctx, id, spec.Tag)
		if err != nil {
			return VersionRef{}, upstream(BackendMetadata, "get version", err)
		}
		return VersionRef{Dandiset: d, Version: v}, nil
	}
}

// VersionMetadata fetches the raw metadata document of a resolved version.
func (r *Resolver) VersionMetadata(ctx context.Context, ref VersionRef) (VersionMetadata, error) {
	md, err := r.api.GetVersionMetadata(ctx, ref.Dandiset.Identifier, ref.Version.Version)
	if err != nil {
		return nil, upstream(BackendMetadata, "get version metadata", err)
	}
	return md, nil
}

// ============================================================================
// Path resolution
// ============================================================================

// Resolve resolves segments below the root of the selected version.
//
// An empty segment list yields the version's root AssetFolder. Otherwise the
// result is an AssetFolder, a BlobAsset, a ZarrAsset, a ZarrFolder or a
// ZarrEntry. Missing entries, leftover segments below a blob, and Zarr
// assets without an S3 location all fail with ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, id DandisetID, spec VersionSpec, segments []string) (Resource, error) {
	ref, err := r.ResolveVersion(ctx, id, spec)
	if err != nil {
		return nil, err
	}
	return r.ResolvePath(ctx, ref, segments)
}

// ResolvePath is Resolve for an already resolved version.
func (r *Resolver) ResolvePath(ctx context.Context, ref VersionRef, segments []string) (Resource, error) {
	res, err := r.resolvePath(ctx, ref, segments)
	if err != nil {
		return nil, err
	}
	return res.Resource, nil
}

// ResolveWithChildren resolves segments and lists the resource's immediate
// children. See Children for which resources have children.
func (r *Resolver) ResolveWithChildren(ctx context.Context, id DandisetID, spec VersionSpec, segments []string) (ResourceWithChildren, error) {
	ref, err := r.ResolveVersion(ctx, id, spec)
	if err != nil {
		return ResourceWithChildren{}, err
	}
	return r.ResolvePathWithChildren(ctx, ref, segments)
}

// ResolvePathWithChildren is ResolveWithChildren for an already resolved
// version.
func (r *Resolver) ResolvePathWithChildren(ctx context.Context, ref VersionRef, segments []string) (ResourceWithChildren, error) {
	res, err := r.resolvePath(ctx, ref, segments)
	if err != nil {
		return ResourceWithChildren{}, err
	}
	children, err := r.children(ctx, ref, res)
	if err != nil {
		return ResourceWithChildren{}, err
	}
	return ResourceWithChildren{Resource: res.Resource, Children: children}, nil
}

func (r *Resolver) resolvePath(ctx context.Context, ref VersionRef, segments []string) (resourceWithS3, error) {
	id, version := ref.Dandiset.Identifier, ref.Version.Version
	var cur paths.PureDirPath

	if len(segments) == 0 {
		return resourceWithS3{Resource: AssetFolder{Modified: ref.Version.Modified}}, nil
	}

	for i, seg := range segments {
		target, err := paths.ChildOf(cur, seg)
		if err != nil {
			return resourceWithS3{}, err
		}

		entry, err := r.findChild(ctx, id, version, cur, target)
		if err != nil {
			return resourceWithS3{}, err
		}

		rest := segments[i+1:]

		if entry.IsFolder() {
			cur = target.ToDirPath()
			if len(rest) == 0 {
				return resourceWithS3{Resource: AssetFolder{Path: cur, Modified: ref.Version.Modified}}, nil
			}
			continue
		}

		asset, err := r.getAsset(ctx, id, version, entry.AssetID)
		if err != nil {
			return resourceWithS3{}, err
		}
		if len(rest) == 0 {
			return resourceWithS3{Resource: asset}, nil
		}

		switch a := asset.(type) {
		case BlobAsset:
			return resourceWithS3{}, notFound("%s/%s (blob assets have no entries)", target, strings.Join(rest, "/"))
		case ZarrAsset:
			return r.resolveZarr(ctx, a, rest)
		}
	}

	panic("unreachable: segment walk ended without a result")
}

// findChild scans the listing of dir for target. The listing is consumed
// page by page and abandoned as soon as the entry is found.
func (r *Resolver) findChild(ctx context.Context, id DandisetID, version VersionID, dir paths.PureDirPath, target paths.PurePath) (FolderEntry, error) {
	for entry, err := range r.api.ListChildren(ctx, id, version, dir) {
		if err != nil {
			return FolderEntry{}, upstream(BackendMetadata, "list children", err)
		}
		if entry.Path.Equal(target) {
			return entry, nil
		}
	}
	return FolderEntry{}, notFound("%s in dandiset %s version %s", target, id, version)
}

func (r *Resolver) getAsset(ctx context.Context, id DandisetID, version VersionID, assetID string) (Asset, error) {
	raw, err := r.api.GetAsset(ctx, id, version, assetID)
	if err != nil {
		return nil, upstream(BackendMetadata, "get asset", err)
	}
	return raw.ToAsset()
}

func (r *Resolver) zarrStore(zarr ZarrAsset) (*zarrStore, error) {
	loc, ok := zarr.S3Location()
	if !ok {
		return nil, notFound("S3 location of Zarr asset %s", zarr.AssetID)
	}
	return &zarrStore{
		client:   r.s3.WithPrefix(loc),
		root:     zarr.Path.ToDirPath(),
		modified: zarr.Modified,
	}, nil
}

// resolveZarr walks the remaining segments inside a Zarr's S3 prefix, one
// prefix listing per segment. Every segment but the last must name a key
// prefix. For the last one an object wins over a prefix of the same name.
func (r *Resolver) resolveZarr(ctx context.Context, zarr ZarrAsset, segments []string) (resourceWithS3, error) {
	store, err := r.zarrStore(zarr)
	if err != nil {
		return resourceWithS3{}, err
	}

	var dir paths.PureDirPath
	for i, seg := range segments {
		found, err := store.client.Lookup(ctx, dir, seg)
		if err != nil {
			if errors.Is(err, paths.ErrInvalidPath) {
				return resourceWithS3{}, err
			}
			return resourceWithS3{}, upstream(BackendS3, "list", err)
		}

		last := i == len(segments)-1
		switch {
		case last && found.Object != nil:
			return resourceWithS3{Resource: store.fromS3(*found.Object), store: store}, nil
		case found.Folder != nil:
			if last {
				return resourceWithS3{Resource: store.fromS3(*found.Folder), store: store}, nil
			}
			dir = found.Folder.KeyPrefix
		default:
			return resourceWithS3{}, notFound("%s%s in Zarr asset %s", store.root, strings.Join(segments[:i+1], "/"), zarr.AssetID)
		}
	}

	panic("unreachable: Zarr walk ended without a result")
}

// ============================================================================
// Children
// ============================================================================

// children lists the immediate children of a resolved resource:
//   - AssetFolder: folders and assets from one full metadata listing
//   - ZarrAsset, ZarrFolder: prefixes and objects from one full S3 listing
//   - BlobAsset, ZarrEntry: none
//
// Order is whatever the backend returned. Any failure, including a malformed
// asset record, fails the whole listing.
func (r *Resolver) children(ctx context.Context, ref VersionRef, res resourceWithS3) ([]Resource, error) {
	switch v := res.Resource.(type) {
	case AssetFolder:
		return r.folderChildren(ctx, ref, v.Path)

	case ZarrAsset:
		store, err := r.zarrStore(v)
		if err != nil {
			return nil, err
		}
		return r.zarrChildren(ctx, store, paths.PureDirPath{})

	case ZarrFolder:
		rel, ok := v.Path.ToFilePath().RelativeTo(res.store.root)
		if !ok {
			panic("Zarr folder outside its Zarr asset: " + v.Path.String())
		}
		return r.zarrChildren(ctx, res.store, rel.ToDirPath())

	case BlobAsset, ZarrEntry:
		return nil, nil
	}

	panic("unreachable: unknown resource type")
}

func (r *Resolver) folderChildren(ctx context.Context, ref VersionRef, dir paths.PureDirPath) ([]Resource, error) {
	id, version := ref.Dandiset.Identifier, ref.Version.Version

	entries, err := collect(r.api.ListChildren(ctx, id, version, dir))
	if err != nil {
		return nil, upstream(BackendMetadata, "list children", err)
	}

	children := make([]Resource, 0, len(entries))
	for _, entry := range entries {
		if entry.IsFolder() {
			children = append(children, AssetFolder{Path: entry.Path.ToDirPath(), Modified: ref.Version.Modified})
			continue
		}
		asset, err := r.getAsset(ctx, id, version, entry.AssetID)
		if err != nil {
			return nil, err
		}
		children = append(children, asset)
	}

	logger.Debug("Listed %d children of %q in dandiset %s version %s", len(children), dir, id, version)
	return children, nil
}

func (r *Resolver) zarrChildren(ctx context.Context, store *zarrStore, dir paths.PureDirPath) ([]Resource, error) {
	entries, err := store.client.List(ctx, dir)
	if err != nil {
		return nil, upstream(BackendS3, "list", err)
	}

	children := make([]Resource, 0, len(entries))
	for _, e := range entries {
		children = append(children, store.fromS3(e))
	}
	return children, nil
}
