package dav

import (
	"errors"
	"strings"
)

// Depth is how far a PROPFIND reaches below the requested resource. Only
// two depths are served; recursive listings are always refused.
type Depth int

const (
	// SelfOnly renders just the requested resource ("Depth: 0").
	SelfOnly Depth = iota
	// SelfPlusChildren renders the resource and its immediate children
	// ("Depth: 1").
	SelfPlusChildren
)

func (d Depth) String() string {
	if d == SelfPlusChildren {
		return "1"
	}
	return "0"
}

var (
	// ErrUnsupportedDepth is returned for "Depth: infinity" and for a
	// missing Depth header, which WebDAV defines as infinity.
	ErrUnsupportedDepth = errors.New("depth infinity is not supported")

	// ErrInvalidDepth is returned for any other unrecognized Depth value.
	ErrInvalidDepth = errors.New(`invalid "Depth" header`)
)

// FiniteDepthErrorBody is the response body that accompanies a 403 for
// ErrUnsupportedDepth (RFC 4918, section 9.1).
const FiniteDepthErrorBody = `<?xml version="1.0" encoding="utf-8"?>` + "\n" +
	`<error xmlns="DAV:"><propfind-finite-depth /></error>` + "\n"

// ParseDepth parses the value of a Depth header; the empty string stands
// for an absent header.
func ParseDepth(value string) (Depth, error) {
	switch v := strings.TrimSpace(value); {
	case v == "0":
		return SelfOnly, nil
	case v == "1":
		return SelfPlusChildren, nil
	case v == "" || strings.EqualFold(v, "infinity"):
		return 0, ErrUnsupportedDepth
	default:
		return 0, ErrInvalidDepth
	}
}

// Render assembles the items a PROPFIND at the given depth reports: the
// resource itself and, for SelfPlusChildren, each immediate child in the
// given order. A leaf at SelfPlusChildren simply has no children.
func Render(self Item, children []Item, depth Depth) []Item {
	if depth == SelfOnly {
		return []Item{self}
	}
	out := make([]Item, 0, 1+len(children))
	out = append(out, self)
	return append(out, children...)
}
