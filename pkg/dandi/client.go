package dandi

import (
	"context"
	"iter"

	"github.com/mvandenburgh/dandidav/pkg/paths"
)

// MetadataClient is the boundary to the archive's metadata API.
//
// Implementations deliver already-decoded, field-validated values. Listing
// methods return a sequence that follows the API's pagination itself; the
// sequence yields a non-nil error at most once, as its last element. Callers
// may stop iterating early, in which case no further pages are requested.
//
// Single-object lookups return an error wrapping ErrNotFound when the object
// does not exist. Implementations are responsible for timeouts and any retry
// policy; the resolver never retries.
type MetadataClient interface {
	// ListDandisets lists every dandiset in the archive.
	ListDandisets(ctx context.Context) iter.Seq2[Dandiset, error]

	// GetDandiset fetches one dandiset.
	GetDandiset(ctx context.Context, id DandisetID) (Dandiset, error)

	// ListVersions lists the versions of a dandiset, draft included.
	ListVersions(ctx context.Context, id DandisetID) iter.Seq2[DandisetVersion, error]

	// GetVersion fetches one version summary.
	GetVersion(ctx context.Context, id DandisetID, version VersionID) (DandisetVersion, error)

	// GetVersionMetadata fetches the raw metadata document of a version.
	GetVersionMetadata(ctx context.Context, id DandisetID, version VersionID) (VersionMetadata, error)

	// ListChildren lists the folders and assets directly inside dir. The
	// zero dir lists the root of the version.
	ListChildren(ctx context.Context, id DandisetID, version VersionID, dir paths.PureDirPath) iter.Seq2[FolderEntry, error]

	// GetAsset fetches one raw asset record.
	GetAsset(ctx context.Context, id DandisetID, version VersionID, assetID string) (RawAsset, error)
}

// collect drains a listing, returning everything or the first error.
func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
