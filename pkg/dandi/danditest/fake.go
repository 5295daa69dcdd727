// Package danditest provides an in-memory dandi.MetadataClient for tests.
package danditest

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"github.com/mvandenburgh/dandidav/pkg/paths"
)

type versionKey struct {
	id      dandi.DandisetID
	version dandi.VersionID
}

type version struct {
	summary  dandi.DandisetVersion
	metadata dandi.VersionMetadata
	assets   map[string]dandi.RawAsset // by path
	byID     map[string]dandi.RawAsset
	added    []string // asset paths in insertion order
}

// Fake is an in-memory metadata API. Listings are paginated PageSize items
// at a time (default 100) so tests can observe early termination.
//
// The draft version and most recent published version of each dandiset must
// also be registered with AddVersion for their contents to be listed.
type Fake struct {
	mu        sync.Mutex
	dandisets []dandi.Dandiset
	versions  map[versionKey]*version
	order     map[dandi.DandisetID][]dandi.VersionID

	// PageSize limits items per listing page.
	PageSize int
	// KeepOrder makes ListChildren yield entries in the order their assets
	// were added instead of sorted by path.
	KeepOrder bool
	// Err, when set, is returned by every call.
	Err error
	// FailPage, when positive, makes every listing fail with PageErr as
	// it reaches that page (1-based). Earlier pages are served normally.
	FailPage int
	PageErr  error
	// Pages counts listing pages handed out.
	Pages int
	// AssetGets counts GetAsset calls.
	AssetGets int
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		versions: make(map[versionKey]*version),
		order:    make(map[dandi.DandisetID][]dandi.VersionID),
	}
}

// AddDandiset registers a dandiset and its draft version (and most recent
// published version, if set).
func (f *Fake) AddDandiset(d dandi.Dandiset) {
	f.mu.Lock()
	f.dandisets = append(f.dandisets, d)
	f.mu.Unlock()

	f.AddVersion(d.Identifier, d.DraftVersion, nil)
	if d.MostRecentPublishedVersion != nil {
		f.AddVersion(d.Identifier, *d.MostRecentPublishedVersion, nil)
	}
}

// AddVersion registers a version of a dandiset. Re-adding an existing
// version only replaces its metadata document when md is non-nil.
func (f *Fake) AddVersion(id dandi.DandisetID, v dandi.DandisetVersion, md dandi.VersionMetadata) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := versionKey{id, v.Version}
	if existing, ok := f.versions[key]; ok {
		existing.summary = v
		if md != nil {
			existing.metadata = md
		}
		return
	}
	f.versions[key] = &version{
		summary:  v,
		metadata: md,
		assets:   make(map[string]dandi.RawAsset),
		byID:     make(map[string]dandi.RawAsset),
	}
	f.order[id] = append(f.order[id], v.Version)
}

// AddAsset stores an asset in a registered version.
func (f *Fake) AddAsset(id dandi.DandisetID, vid dandi.VersionID, a dandi.RawAsset) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.versions[versionKey{id, vid}]
	if !ok {
		panic(fmt.Sprintf("danditest: version %s/%s not registered", id, vid))
	}
	if _, ok := v.assets[a.Path.String()]; !ok {
		v.added = append(v.added, a.Path.String())
	}
	v.assets[a.Path.String()] = a
	v.byID[a.AssetID] = a
}

func (f *Fake) version(id dandi.DandisetID, vid dandi.VersionID) (*version, error) {
	v, ok := f.versions[versionKey{id, vid}]
	if !ok {
		return nil, fmt.Errorf("version %s/%s: %w", id, vid, dandi.ErrNotFound)
	}
	return v, nil
}

func (f *Fake) pageSize() int {
	if f.PageSize <= 0 {
		return 100
	}
	return f.PageSize
}

// paginate yields items a page at a time, counting pages as they are
// handed out.
func paginate[T any](f *Fake, items []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		size := f.pageSize()
		for start, page := 0, 1; start == 0 || start < len(items); start, page = start+size, page+1 {
			f.mu.Lock()
			f.Pages++
			failPage, pageErr := f.FailPage, f.PageErr
			f.mu.Unlock()

			if page == failPage {
				if pageErr == nil {
					pageErr = fmt.Errorf("page %d failed", page)
				}
				var zero T
				yield(zero, pageErr)
				return
			}

			end := min(start+size, len(items))
			for _, item := range items[start:end] {
				if !yield(item, nil) {
					return
				}
			}
			if end >= len(items) {
				return
			}
		}
	}
}

func fail[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// ListDandisets implements dandi.MetadataClient.
func (f *Fake) ListDandisets(ctx context.Context) iter.Seq2[dandi.Dandiset, error] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return fail[dandi.Dandiset](err)
	}
	return paginate(f, append([]dandi.Dandiset(nil), f.dandisets...))
}

// GetDandiset implements dandi.MetadataClient.
func (f *Fake) GetDandiset(ctx context.Context, id dandi.DandisetID) (dandi.Dandiset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return dandi.Dandiset{}, err
	}
	for _, d := range f.dandisets {
		if d.Identifier == id {
			return d, nil
		}
	}
	return dandi.Dandiset{}, fmt.Errorf("dandiset %s: %w", id, dandi.ErrNotFound)
}

// ListVersions implements dandi.MetadataClient.
func (f *Fake) ListVersions(ctx context.Context, id dandi.DandisetID) iter.Seq2[dandi.DandisetVersion, error] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return fail[dandi.DandisetVersion](err)
	}
	var out []dandi.DandisetVersion
	for _, vid := range f.order[id] {
		out = append(out, f.versions[versionKey{id, vid}].summary)
	}
	return paginate(f, out)
}

// GetVersion implements dandi.MetadataClient.
func (f *Fake) GetVersion(ctx context.Context, id dandi.DandisetID, vid dandi.VersionID) (dandi.DandisetVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return dandi.DandisetVersion{}, err
	}
	v, err := f.version(id, vid)
	if err != nil {
		return dandi.DandisetVersion{}, err
	}
	return v.summary, nil
}

// GetVersionMetadata implements dandi.MetadataClient.
func (f *Fake) GetVersionMetadata(ctx context.Context, id dandi.DandisetID, vid dandi.VersionID) (dandi.VersionMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	v, err := f.version(id, vid)
	if err != nil {
		return nil, err
	}
	if v.metadata == nil {
		return dandi.VersionMetadata(`{}`), nil
	}
	return v.metadata, nil
}

// ListChildren implements dandi.MetadataClient. Entries are sorted by path
// unless KeepOrder is set; a folder indicator is emitted once for every name
// that prefixes a deeper asset path, at the first asset below it.
func (f *Fake) ListChildren(ctx context.Context, id dandi.DandisetID, vid dandi.VersionID, dir paths.PureDirPath) iter.Seq2[dandi.FolderEntry, error] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(ctx); err != nil {
		return fail[dandi.FolderEntry](err)
	}
	v, err := f.version(id, vid)
	if err != nil {
		return fail[dandi.FolderEntry](err)
	}

	prefix := dir.String()
	type item struct {
		path    string
		assetID string
	}
	var items []item
	folders := make(map[string]bool)
	for _, p := range v.added {
		a := v.assets[p]
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || rest == "" {
			continue
		}
		if name, _, deeper := strings.Cut(rest, "/"); deeper {
			if !folders[name] {
				folders[name] = true
				items = append(items, item{path: prefix + name})
			}
			continue
		}
		items = append(items, item{path: p, assetID: a.AssetID})
	}
	if !f.KeepOrder {
		sort.Slice(items, func(i, j int) bool {
			if items[i].path != items[j].path {
				return items[i].path < items[j].path
			}
			return items[i].assetID < items[j].assetID
		})
	}

	entries := make([]dandi.FolderEntry, 0, len(items))
	for _, it := range items {
		p, err := paths.ParsePath(it.path)
		if err != nil {
			return fail[dandi.FolderEntry](err)
		}
		entries = append(entries, dandi.FolderEntry{Path: p, AssetID: it.assetID})
	}
	return paginate(f, entries)
}

// GetAsset implements dandi.MetadataClient.
func (f *Fake) GetAsset(ctx context.Context, id dandi.DandisetID, vid dandi.VersionID, assetID string) (dandi.RawAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AssetGets++
	if err := f.check(ctx); err != nil {
		return dandi.RawAsset{}, err
	}
	v, err := f.version(id, vid)
	if err != nil {
		return dandi.RawAsset{}, err
	}
	a, ok := v.byID[assetID]
	if !ok {
		return dandi.RawAsset{}, fmt.Errorf("asset %s: %w", assetID, dandi.ErrNotFound)
	}
	return a, nil
}

func (f *Fake) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Err != nil {
		return f.Err
	}
	return nil
}

var _ dandi.MetadataClient = (*Fake)(nil)
