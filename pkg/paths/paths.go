// Package paths provides validated, immutable path values used to address
// resources inside a dandiset version.
//
// Two kinds of path exist:
//   - PurePath: a file path such as "sub/img.nii" (no leading or trailing "/")
//   - PureDirPath: a directory path such as "sub/dir/" (always a trailing "/")
//
// Both are sequences of non-empty segments, none of which is "." or "..".
// No normalization is performed beyond structural validation.
package paths

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned when a string cannot be parsed as a path.
var ErrInvalidPath = errors.New("invalid path")

// PathError describes why a specific string was rejected.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

func (e *PathError) Unwrap() error {
	return ErrInvalidPath
}

// PurePath is a validated file path. The zero value is not a valid path;
// obtain values through ParsePath or the Join helpers.
type PurePath struct {
	s string
}

// PureDirPath is a validated directory path. Its string form always ends
// with "/".
type PureDirPath struct {
	s string
}

// ParsePath parses a file path. The string must not start or end with "/"
// and every segment must be valid.
func ParsePath(s string) (PurePath, error) {
	if s == "" {
		return PurePath{}, &PathError{Path: s, Reason: "empty path"}
	}
	if strings.HasPrefix(s, "/") {
		return PurePath{}, &PathError{Path: s, Reason: "leading separator"}
	}
	if strings.HasSuffix(s, "/") {
		return PurePath{}, &PathError{Path: s, Reason: "file path ends in separator"}
	}
	if err := checkSegments(s); err != nil {
		return PurePath{}, err
	}
	return PurePath{s: s}, nil
}

// ParseDirPath parses a directory path. The string must end with exactly
// one "/" and must not start with one.
func ParseDirPath(s string) (PureDirPath, error) {
	trimmed, ok := strings.CutSuffix(s, "/")
	if !ok {
		return PureDirPath{}, &PathError{Path: s, Reason: "directory path does not end in separator"}
	}
	p, err := ParsePath(trimmed)
	if err != nil {
		return PureDirPath{}, &PathError{Path: s, Reason: err.(*PathError).Reason}
	}
	return p.ToDirPath(), nil
}

func checkSegments(s string) error {
	for _, seg := range strings.Split(s, "/") {
		if err := CheckSegment(seg); err != nil {
			return &PathError{Path: s, Reason: err.(*PathError).Reason}
		}
	}
	return nil
}

// CheckSegment reports whether seg can appear as a single path component.
func CheckSegment(seg string) error {
	switch {
	case seg == "":
		return &PathError{Path: seg, Reason: "empty segment"}
	case seg == "." || seg == "..":
		return &PathError{Path: seg, Reason: "relative segment"}
	case strings.Contains(seg, "/"):
		return &PathError{Path: seg, Reason: "segment contains separator"}
	}
	return nil
}

// String returns the path without leading or trailing separators.
func (p PurePath) String() string { return p.s }

// IsZero reports whether p is the zero value rather than a parsed path.
func (p PurePath) IsZero() bool { return p.s == "" }

// Segments returns the components of the path.
func (p PurePath) Segments() []string { return strings.Split(p.s, "/") }

// Name returns the final component.
func (p PurePath) Name() string {
	if i := strings.LastIndexByte(p.s, '/'); i >= 0 {
		return p.s[i+1:]
	}
	return p.s
}

// Parent returns the directory containing p, or false when p has a single
// segment.
func (p PurePath) Parent() (PureDirPath, bool) {
	i := strings.LastIndexByte(p.s, '/')
	if i < 0 {
		return PureDirPath{}, false
	}
	return PureDirPath{s: p.s[:i+1]}, true
}

// ToDirPath converts p into the directory path with the same segments.
func (p PurePath) ToDirPath() PureDirPath {
	return PureDirPath{s: p.s + "/"}
}

// Equal reports whether the two paths have the same segments.
func (p PurePath) Equal(q PurePath) bool { return p.s == q.s }

// MarshalText implements encoding.TextMarshaler.
func (p PurePath) MarshalText() ([]byte, error) { return []byte(p.s), nil }

// UnmarshalText implements encoding.TextUnmarshaler, validating the input.
func (p *PurePath) UnmarshalText(b []byte) error {
	parsed, err := ParsePath(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// String returns the path including its trailing separator.
func (d PureDirPath) String() string { return d.s }

// IsZero reports whether d is the zero value rather than a parsed path.
func (d PureDirPath) IsZero() bool { return d.s == "" }

// Segments returns the components of the path.
func (d PureDirPath) Segments() []string { return d.ToFilePath().Segments() }

// Name returns the final component without the trailing separator.
func (d PureDirPath) Name() string { return d.ToFilePath().Name() }

// ToFilePath strips the trailing separator.
func (d PureDirPath) ToFilePath() PurePath {
	return PurePath{s: strings.TrimSuffix(d.s, "/")}
}

// Equal reports whether the two paths have the same segments.
func (d PureDirPath) Equal(e PureDirPath) bool { return d.s == e.s }

// Join appends a file path below d.
func (d PureDirPath) Join(p PurePath) PurePath {
	return PurePath{s: d.s + p.s}
}

// JoinDir appends a directory path below d.
func (d PureDirPath) JoinDir(e PureDirPath) PureDirPath {
	return PureDirPath{s: d.s + e.s}
}

// JoinSegment appends a single validated segment below d.
func (d PureDirPath) JoinSegment(seg string) (PurePath, error) {
	if err := CheckSegment(seg); err != nil {
		return PurePath{}, err
	}
	return PurePath{s: d.s + seg}, nil
}

// RelativeTo returns the part of p below d, or false when p is not strictly
// inside d.
func (p PurePath) RelativeTo(d PureDirPath) (PurePath, bool) {
	rest, ok := strings.CutPrefix(p.s, d.s)
	if !ok || rest == "" {
		return PurePath{}, false
	}
	return PurePath{s: rest}, true
}

// MarshalText implements encoding.TextMarshaler.
func (d PureDirPath) MarshalText() ([]byte, error) { return []byte(d.s), nil }

// UnmarshalText implements encoding.TextUnmarshaler, validating the input.
func (d *PureDirPath) UnmarshalText(b []byte) error {
	parsed, err := ParseDirPath(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ChildOf returns parent + seg, treating a zero parent as the root.
func ChildOf(parent PureDirPath, seg string) (PurePath, error) {
	if parent.IsZero() {
		if err := CheckSegment(seg); err != nil {
			return PurePath{}, err
		}
		return PurePath{s: seg}, nil
	}
	return parent.JoinSegment(seg)
}
