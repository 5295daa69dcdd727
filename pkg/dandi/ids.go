package dandi

import (
	"fmt"
	"strings"
)

// DandisetID identifies a dandiset, e.g. "000108".
type DandisetID string

// ParseDandisetID validates a dandiset identifier: a non-empty run of ASCII
// digits.
func ParseDandisetID(s string) (DandisetID, error) {
	if s == "" {
		return "", fmt.Errorf("invalid dandiset ID %q: empty", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid dandiset ID %q: not all digits", s)
		}
	}
	return DandisetID(s), nil
}

func (id DandisetID) String() string { return string(id) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *DandisetID) UnmarshalText(b []byte) error {
	parsed, err := ParseDandisetID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// VersionID identifies a version of a dandiset: "draft" or a published
// version string such as "0.230629.1955".
type VersionID string

// DraftVersionID is the identifier the metadata API uses for draft versions.
const DraftVersionID VersionID = "draft"

// ParseVersionID validates a version identifier. It must be non-empty and
// usable as a single path segment.
func ParseVersionID(s string) (VersionID, error) {
	if s == "" || s == "." || s == ".." || strings.ContainsRune(s, '/') {
		return "", fmt.Errorf("invalid version ID %q", s)
	}
	return VersionID(s), nil
}

func (v VersionID) String() string { return string(v) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *VersionID) UnmarshalText(b []byte) error {
	parsed, err := ParseVersionID(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// VersionKind enumerates the ways a request can select a version.
type VersionKind int

const (
	// VersionDraft selects the draft version, which always exists.
	VersionDraft VersionKind = iota
	// VersionPublished selects a published version by tag.
	VersionPublished
	// VersionLatest selects the most recent published version.
	VersionLatest
)

// VersionSpec selects a version of a dandiset.
type VersionSpec struct {
	Kind VersionKind
	// Tag is set only for VersionPublished.
	Tag VersionID
}

// Draft returns the spec selecting the draft version.
func Draft() VersionSpec { return VersionSpec{Kind: VersionDraft} }

// Latest returns the spec selecting the most recent published version.
func Latest() VersionSpec { return VersionSpec{Kind: VersionLatest} }

// Published returns the spec selecting the given published version.
func Published(tag VersionID) VersionSpec {
	return VersionSpec{Kind: VersionPublished, Tag: tag}
}

func (s VersionSpec) String() string {
	switch s.Kind {
	case VersionDraft:
		return "draft"
	case VersionLatest:
		return "latest"
	default:
		return "releases/" + string(s.Tag)
	}
}
