package dandi

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a dandiset, version, asset or path does not
// exist. Use errors.Is to check for it.
var ErrNotFound = errors.New("not found")

// NotFoundError names what could not be found.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + ": not found"
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(format string, args ...any) error {
	return &NotFoundError{What: fmt.Sprintf(format, args...)}
}

// AssetTypeKind distinguishes the two ways an asset record can fail the
// single-backing-store check.
type AssetTypeKind int

const (
	// Neither means the record names no blob and no zarr.
	Neither AssetTypeKind = iota
	// Both means the record names a blob and a zarr.
	Both
)

// AssetTypeError reports an asset record that does not name exactly one
// backing store. This is a data-quality fault upstream, not a client error.
type AssetTypeError struct {
	Kind    AssetTypeKind
	AssetID string
}

func (e *AssetTypeError) Error() string {
	if e.Kind == Both {
		return fmt.Sprintf(`asset %s has both "blob" and "zarr" set`, e.AssetID)
	}
	return fmt.Sprintf(`asset %s has neither "blob" nor "zarr" set`, e.AssetID)
}

// Backend names the upstream service behind an UpstreamError.
type Backend string

const (
	BackendMetadata Backend = "dandi-api"
	BackendS3       Backend = "s3"
)

// UpstreamError wraps a failure reported by one of the backend clients.
type UpstreamError struct {
	Backend Backend
	Op      string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// upstream wraps err as an UpstreamError unless it already reports a
// not-found condition or an upstream failure.
func upstream(backend Backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.Is(err, ErrNotFound) || errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Backend: backend, Op: op, Err: err}
}
