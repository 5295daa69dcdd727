package s3

import (
	"fmt"
	"net/url"
	"strings"
)

// Location is a bucket plus a key (or key prefix) inside it.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

// ParseLocationURL extracts the bucket and key from a virtual-hosted-style
// S3 HTTPS URL such as:
//
//	https://dandiarchive.s3.amazonaws.com/zarr/5f3c.../
//	https://dandiarchive.s3.us-east-2.amazonaws.com/blobs/abc/def/...
//
// Any other URL form is rejected. The returned key is percent-decoded.
func ParseLocationURL(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse S3 URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return Location{}, fmt.Errorf("not an S3 URL: %s", raw)
	}

	bucket, ok := bucketFromHost(u.Hostname())
	if !ok {
		return Location{}, fmt.Errorf("not an S3 URL: %s", raw)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return Location{}, fmt.Errorf("S3 URL has no key: %s", raw)
	}

	return Location{Bucket: bucket, Key: key}, nil
}

func bucketFromHost(host string) (string, bool) {
	rest, ok := strings.CutSuffix(host, ".amazonaws.com")
	if !ok {
		return "", false
	}
	// rest is "<bucket>.s3" or "<bucket>.s3.<region>"
	i := strings.LastIndex(rest, ".s3")
	if i <= 0 {
		return "", false
	}
	tail := rest[i+len(".s3"):]
	if tail != "" && !strings.HasPrefix(tail, ".") {
		return "", false
	}
	if strings.Contains(strings.TrimPrefix(tail, "."), ".") {
		return "", false
	}
	return rest[:i], true
}

// PublicURL is the anonymous virtual-hosted-style download URL for key.
func PublicURL(bucket, key string) *url.URL {
	return &url.URL{
		Scheme: "https",
		Host:   bucket + ".s3.amazonaws.com",
		Path:   "/" + key,
	}
}
