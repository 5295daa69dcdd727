package dav

import (
	"strings"
	"time"
)

// modifiedLayout is RFC 1123 with a literal GMT zone, as required for
// getlastmodified.
const modifiedLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatCreationDate renders t for the creationdate property: RFC 3339 in
// UTC.
func FormatCreationDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatModifiedDate renders t for the getlastmodified property: RFC 1123,
// always in UTC.
func FormatModifiedDate(t time.Time) string {
	return t.UTC().Format(modifiedLayout)
}

const upperhex = "0123456789ABCDEF"

func isHrefSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', '/':
		return true
	}
	return false
}

// Href percent-encodes a path for use in a DAV href. ASCII letters and
// digits and "-._~/" pass through; every other byte of the UTF-8 encoding
// becomes %XX.
func Href(path string) string {
	n := 0
	for i := 0; i < len(path); i++ {
		if !isHrefSafe(path[i]) {
			n++
		}
	}
	if n == 0 {
		return path
	}

	var b strings.Builder
	b.Grow(len(path) + 2*n)
	for i := 0; i < len(path); i++ {
		c := path[i]
		if isHrefSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}
