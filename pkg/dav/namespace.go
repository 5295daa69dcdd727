package dav

import (
	"fmt"
	"strings"

	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"github.com/mvandenburgh/dandidav/pkg/paths"
)

// Target is a parsed request path. It is a closed union:
//   - RootTarget: "/"
//   - DandisetIndexTarget: "/dandisets/"
//   - DandisetTarget: "/dandisets/{id}/"
//   - ReleasesTarget: "/dandisets/{id}/releases/"
//   - VersionTarget: a version root ("draft/", "latest/" or
//     "releases/{version}/") followed by zero or more asset path segments
//   - MetadataTarget: "dandiset.yaml" directly below a version root
type Target interface {
	isTarget()
}

type RootTarget struct{}

type DandisetIndexTarget struct{}

type DandisetTarget struct {
	ID dandi.DandisetID
}

type ReleasesTarget struct {
	ID dandi.DandisetID
}

// VersionTarget and MetadataTarget record whether the request path ended
// in "/" in Dir. Only collections may be addressed that way.
type VersionTarget struct {
	ID       dandi.DandisetID
	Spec     dandi.VersionSpec
	Segments []string
	Dir      bool
}

type MetadataTarget struct {
	ID   dandi.DandisetID
	Spec dandi.VersionSpec
	Dir  bool
}

func (RootTarget) isTarget()          {}
func (DandisetIndexTarget) isTarget() {}
func (DandisetTarget) isTarget()      {}
func (ReleasesTarget) isTarget()      {}
func (VersionTarget) isTarget()       {}
func (MetadataTarget) isTarget()      {}

// ParseTarget parses an unescaped request path. A single trailing "/" is
// accepted on any path; below a version root it is kept in the target's Dir
// field. Paths outside the namespace fail with an error wrapping
// dandi.ErrNotFound; malformed asset path segments fail with
// paths.ErrInvalidPath.
func ParseTarget(p string) (Target, error) {
	rest, ok := strings.CutPrefix(p, "/")
	if !ok {
		return nil, outside(p)
	}
	if rest == "" {
		return RootTarget{}, nil
	}
	rest, dir := strings.CutSuffix(rest, "/")

	segs := strings.Split(rest, "/")
	if segs[0] != "dandisets" {
		return nil, outside(p)
	}
	if len(segs) == 1 {
		return DandisetIndexTarget{}, nil
	}

	id, err := dandi.ParseDandisetID(segs[1])
	if err != nil {
		return nil, outside(p)
	}
	if len(segs) == 2 {
		return DandisetTarget{ID: id}, nil
	}

	var spec dandi.VersionSpec
	var assetPath []string
	switch segs[2] {
	case "draft":
		spec, assetPath = dandi.Draft(), segs[3:]
	case "latest":
		spec, assetPath = dandi.Latest(), segs[3:]
	case "releases":
		if len(segs) == 3 {
			return ReleasesTarget{ID: id}, nil
		}
		v, err := dandi.ParseVersionID(segs[3])
		if err != nil {
			return nil, outside(p)
		}
		spec, assetPath = dandi.Published(v), segs[4:]
	default:
		return nil, outside(p)
	}

	for _, seg := range assetPath {
		if err := paths.CheckSegment(seg); err != nil {
			return nil, err
		}
	}
	if len(assetPath) == 1 && assetPath[0] == MetadataFileName {
		return MetadataTarget{ID: id, Spec: spec, Dir: dir}, nil
	}
	return VersionTarget{ID: id, Spec: spec, Segments: assetPath, Dir: dir}, nil
}

func outside(p string) error {
	return &dandi.NotFoundError{What: fmt.Sprintf("path %q", p)}
}
