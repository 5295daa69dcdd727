package dav

import (
	"context"
	"fmt"

	"github.com/mvandenburgh/dandidav/pkg/dandi"
)

// Service answers DAV lookups for request paths by combining the namespace
// above the asset tree with the resolver below it.
type Service struct {
	resolver *dandi.Resolver
}

// NewService creates a Service backed by resolver.
func NewService(resolver *dandi.Resolver) *Service {
	if resolver == nil {
		panic("resolver cannot be nil")
	}
	return &Service{resolver: resolver}
}

// Lookup resolves the unescaped request path p to an item. When
// withChildren is set it also returns the item's immediate children;
// non-collection items other than Zarr assets have none.
func (s *Service) Lookup(ctx context.Context, p string, withChildren bool) (Item, []Item, error) {
	target, err := ParseTarget(p)
	if err != nil {
		return Item{}, nil, err
	}

	switch t := target.(type) {
	case RootTarget:
		var children []Item
		if withChildren {
			children = []Item{DandisetIndexItem()}
		}
		return RootItem(), children, nil

	case DandisetIndexTarget:
		if !withChildren {
			return DandisetIndexItem(), nil, nil
		}
		ds, err := s.resolver.Dandisets(ctx)
		if err != nil {
			return Item{}, nil, err
		}
		children := make([]Item, 0, len(ds))
		for _, d := range ds {
			children = append(children, DandisetItem(d))
		}
		return DandisetIndexItem(), children, nil

	case DandisetTarget:
		return s.lookupDandiset(ctx, t.ID, withChildren)

	case ReleasesTarget:
		return s.lookupReleases(ctx, t.ID, withChildren)

	case MetadataTarget:
		if t.Dir {
			return Item{}, nil, notCollection(p)
		}
		ref, err := s.resolver.ResolveVersion(ctx, t.ID, t.Spec)
		if err != nil {
			return Item{}, nil, err
		}
		item, err := s.metadataItem(ctx, NewVersionRoot(t.ID, t.Spec, ref.Version), ref)
		if err != nil {
			return Item{}, nil, err
		}
		return item, nil, nil

	case VersionTarget:
		item, children, err := s.lookupVersionPath(ctx, t, withChildren)
		if err == nil && t.Dir && !item.Collection {
			return Item{}, nil, notCollection(p)
		}
		return item, children, err
	}

	panic(fmt.Sprintf("unreachable: unknown target %T", target))
}

// Propfind returns the items a PROPFIND on p reports at the given depth.
func (s *Service) Propfind(ctx context.Context, p string, depth Depth) ([]Item, error) {
	self, children, err := s.Lookup(ctx, p, depth == SelfPlusChildren)
	if err != nil {
		return nil, err
	}
	return Render(self, children, depth), nil
}

func (s *Service) lookupDandiset(ctx context.Context, id dandi.DandisetID, withChildren bool) (Item, []Item, error) {
	d, err := s.resolver.Dandiset(ctx, id)
	if err != nil {
		return Item{}, nil, err
	}
	if !withChildren {
		return DandisetItem(d), nil, nil
	}

	var children []Item
	for _, v := range dandi.VersionsOf(d) {
		spec := dandi.Latest()
		if v.Version == dandi.DraftVersionID {
			spec = dandi.Draft()
		}
		children = append(children, NewVersionRoot(id, spec, v).Item())
	}
	children = append(children, ReleasesItem(d))
	return DandisetItem(d), children, nil
}

func (s *Service) lookupReleases(ctx context.Context, id dandi.DandisetID, withChildren bool) (Item, []Item, error) {
	d, err := s.resolver.Dandiset(ctx, id)
	if err != nil {
		return Item{}, nil, err
	}
	if !withChildren {
		return ReleasesItem(d), nil, nil
	}

	versions, err := s.resolver.PublishedVersions(ctx, id)
	if err != nil {
		return Item{}, nil, err
	}
	children := make([]Item, 0, len(versions))
	for _, v := range versions {
		children = append(children, NewVersionRoot(id, dandi.Published(v.Version), v).Item())
	}
	return ReleasesItem(d), children, nil
}

func (s *Service) lookupVersionPath(ctx context.Context, t VersionTarget, withChildren bool) (Item, []Item, error) {
	ref, err := s.resolver.ResolveVersion(ctx, t.ID, t.Spec)
	if err != nil {
		return Item{}, nil, err
	}
	root := NewVersionRoot(t.ID, t.Spec, ref.Version)

	if !withChildren {
		res, err := s.resolver.ResolvePath(ctx, ref, t.Segments)
		if err != nil {
			return Item{}, nil, err
		}
		return root.ResourceItem(res), nil, nil
	}

	rwc, err := s.resolver.ResolvePathWithChildren(ctx, ref, t.Segments)
	if err != nil {
		return Item{}, nil, err
	}
	children := root.ResourceItems(rwc.Children)

	if len(t.Segments) == 0 {
		md, err := s.metadataItem(ctx, root, ref)
		if err != nil {
			return Item{}, nil, err
		}
		// dandiset.yaml shadows an asset of the same name at the version root.
		shown := make([]Item, 0, len(children)+1)
		shown = append(shown, md)
		for _, c := range children {
			if c.Path != md.Path {
				shown = append(shown, c)
			}
		}
		children = shown
	}

	return root.ResourceItem(rwc.Resource), children, nil
}

// notCollection reports a path that ends in "/" but names a file.
func notCollection(p string) error {
	return &dandi.NotFoundError{What: fmt.Sprintf("collection %q", p)}
}

func (s *Service) metadataItem(ctx context.Context, root VersionRoot, ref dandi.VersionRef) (Item, error) {
	md, err := s.resolver.VersionMetadata(ctx, ref)
	if err != nil {
		return Item{}, err
	}
	item, err := root.MetadataItem(md)
	if err != nil {
		return Item{}, &dandi.UpstreamError{Backend: dandi.BackendMetadata, Op: "decode version metadata", Err: err}
	}
	return item, nil
}
