// Package s3 lists the contents of Zarr assets stored in Amazon S3.
//
// The archive stores every Zarr asset as a tree of objects under a common key
// prefix. This package exposes that tree one level at a time, the way a
// directory listing would, using ListObjectsV2 with a "/" delimiter:
//   - CommonPrefixes become Folder entries
//   - Contents become Object entries (with size, mtime, etag and download URL)
//
// The package is read-only and keeps no state between calls.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mvandenburgh/dandidav/internal/logger"
	"github.com/mvandenburgh/dandidav/pkg/paths"
)

// Entry is a Folder or an Object found in a listing.
type Entry interface {
	isEntry()
}

// Folder is a key prefix one level below the listed prefix. KeyPrefix is
// relative to the client's base prefix.
type Folder struct {
	KeyPrefix paths.PureDirPath
}

// Object is an object one level below the listed prefix. Key is relative to
// the client's base prefix.
type Object struct {
	Key         paths.PurePath
	Size        int64
	Modified    time.Time
	ETag        string
	DownloadURL *url.URL
}

func (Folder) isEntry() {}
func (Object) isEntry() {}

// Presigner creates presigned GET requests. *s3.PresignClient implements it.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ClientConfig contains configuration for Client.
type ClientConfig struct {
	// API is the S3 listing API, normally an *s3.Client.
	API s3.ListObjectsV2APIClient

	// Presigner, when set, is used to build download URLs. When nil,
	// download URLs are the public virtual-hosted URLs of the objects.
	Presigner Presigner

	// PresignExpiry is the lifetime of presigned URLs (default: 1h).
	PresignExpiry time.Duration

	// Metrics is optional; nil disables metrics collection.
	Metrics S3Metrics
}

// Client lists objects in S3. It is safe for concurrent use.
type Client struct {
	api           s3.ListObjectsV2APIClient
	presigner     Presigner
	presignExpiry time.Duration
	metrics       S3Metrics
}

// NewClient creates a Client from cfg.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("S3 API client is required")
	}

	expiry := cfg.PresignExpiry
	if expiry == 0 {
		expiry = time.Hour
	}

	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	return &Client{
		api:           cfg.API,
		presigner:     cfg.Presigner,
		presignExpiry: expiry,
		metrics:       m,
	}, nil
}

// WithPrefix returns a client scoped to the key prefix of loc. The prefix
// is treated as a directory: a missing trailing "/" is added.
func (c *Client) WithPrefix(loc Location) PrefixedClient {
	prefix := loc.Key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return PrefixedClient{client: c, bucket: loc.Bucket, prefix: prefix}
}

// PrefixedClient is a Client scoped to one bucket and key prefix. It is a
// small value type; copies share the underlying Client.
type PrefixedClient struct {
	client *Client
	bucket string
	prefix string
}

// List returns every entry directly below dir (the zero dir is the base
// prefix). All pages are fetched before returning; entries keep the order
// S3 returned them in, folders before objects within each page.
func (p PrefixedClient) List(ctx context.Context, dir paths.PureDirPath) ([]Entry, error) {
	var entries []Entry
	err := p.walk(ctx, "list", p.prefix+dir.String(), "", func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// LookupResult reports what exists at one name below a directory. Both
// fields may be set when an object and a prefix share the name.
type LookupResult struct {
	Folder *Folder
	Object *Object
}

// Found reports whether anything exists at the looked-up name.
func (r LookupResult) Found() bool {
	return r.Folder != nil || r.Object != nil
}

// Lookup finds the object named name directly below dir and/or the key
// prefix name + "/". It lists only keys starting with dir + name and stops
// paging once both have been seen or a page ends past name + "/".
func (p PrefixedClient) Lookup(ctx context.Context, dir paths.PureDirPath, name string) (LookupResult, error) {
	target, err := paths.ChildOf(dir, name)
	if err != nil {
		return LookupResult{}, err
	}

	var res LookupResult
	keyPrefix := p.prefix + target.String()
	err = p.walk(ctx, "lookup", keyPrefix, keyPrefix+"/", func(e Entry) bool {
		switch e := e.(type) {
		case Folder:
			if e.KeyPrefix.Equal(target.ToDirPath()) {
				res.Folder = &e
			}
		case Object:
			if e.Key.Equal(target) {
				res.Object = &e
			}
		}
		return res.Folder == nil || res.Object == nil
	})
	if err != nil {
		return LookupResult{}, err
	}
	return res, nil
}

// walk pages through ListObjectsV2 for the given absolute key prefix and
// calls yield for each entry until it returns false. When stopAfter is set,
// paging also ends after a page whose last key sorts past it; S3 lists keys
// in ascending order, so no later page can hold a key at or before it.
func (p PrefixedClient) walk(ctx context.Context, op string, keyPrefix string, stopAfter string, yield func(Entry) bool) error {
	start := time.Now()
	var opErr error
	defer func() {
		p.client.metrics.ObserveOperation(op, time.Since(start), opErr)
	}()

	paginator := s3.NewListObjectsV2Paginator(p.client.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.bucket),
		Prefix:    aws.String(keyPrefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			opErr = fmt.Errorf("list s3://%s/%s: %w", p.bucket, keyPrefix, err)
			return opErr
		}
		p.client.metrics.RecordPage(op)

		for _, cp := range page.CommonPrefixes {
			rel, ok := p.relative(aws.ToString(cp.Prefix))
			if !ok {
				continue
			}
			dir, err := paths.ParseDirPath(rel)
			if err != nil {
				logger.Warn("Skipping S3 prefix with unusable key %q: %v", aws.ToString(cp.Prefix), err)
				continue
			}
			if !yield(Folder{KeyPrefix: dir}) {
				return nil
			}
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel, ok := p.relative(key)
			if !ok {
				continue
			}
			relPath, err := paths.ParsePath(rel)
			if err != nil {
				// Directory marker objects ("foo/") land here too.
				logger.Debug("Skipping S3 object with unusable key %q: %v", key, err)
				continue
			}
			downloadURL, err := p.downloadURL(ctx, key)
			if err != nil {
				opErr = err
				return opErr
			}
			entry := Object{
				Key:         relPath,
				Size:        aws.ToInt64(obj.Size),
				Modified:    aws.ToTime(obj.LastModified),
				ETag:        aws.ToString(obj.ETag),
				DownloadURL: downloadURL,
			}
			if !yield(entry) {
				return nil
			}
		}

		if stopAfter != "" && lastKey(page) > stopAfter {
			return nil
		}
	}

	return nil
}

// lastKey is the greatest key or common prefix in a page.
func lastKey(page *s3.ListObjectsV2Output) string {
	var last string
	if n := len(page.CommonPrefixes); n > 0 {
		last = aws.ToString(page.CommonPrefixes[n-1].Prefix)
	}
	if n := len(page.Contents); n > 0 {
		last = max(last, aws.ToString(page.Contents[n-1].Key))
	}
	return last
}

func (p PrefixedClient) relative(key string) (string, bool) {
	rel, ok := strings.CutPrefix(key, p.prefix)
	return rel, ok && rel != ""
}

func (p PrefixedClient) downloadURL(ctx context.Context, key string) (*url.URL, error) {
	c := p.client
	if c.presigner == nil {
		return PublicURL(p.bucket, key), nil
	}

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign s3://%s/%s: %w", p.bucket, key, err)
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse presigned URL for %s: %w", key, err)
	}
	return u, nil
}
