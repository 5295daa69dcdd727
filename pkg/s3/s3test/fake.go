// Package s3test provides an in-memory ListObjectsV2 implementation for tests.
package s3test

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Object is a stored object in the fake bucket.
type Object struct {
	Size     int64
	ETag     string
	Modified time.Time
}

// FakeS3 implements s3.ListObjectsV2APIClient over an in-memory key space.
// Listings are returned in key order, PageSize keys or prefixes per page.
type FakeS3 struct {
	mu      sync.Mutex
	buckets map[string]map[string]Object

	// PageSize limits entries per page (default 1000).
	PageSize int
	// Err, when set, is returned by every call.
	Err error
	// Calls counts ListObjectsV2 invocations.
	Calls int
}

// New creates an empty FakeS3.
func New() *FakeS3 {
	return &FakeS3{buckets: make(map[string]map[string]Object)}
}

// Put stores an object.
func (f *FakeS3) Put(bucket, key string, obj Object) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buckets[bucket] == nil {
		f.buckets[bucket] = make(map[string]Object)
	}
	f.buckets[bucket][key] = obj
}

type listItem struct {
	key      string
	isPrefix bool
}

// ListObjectsV2 implements s3.ListObjectsV2APIClient.
func (f *FakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}

	bucket, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, fmt.Errorf("NoSuchBucket: %s", aws.ToString(in.Bucket))
	}

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var items []listItem
	seen := make(map[string]bool)
	for _, k := range keys {
		rest := k[len(prefix):]
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+len(delim)]
				if !seen[cp] {
					seen[cp] = true
					items = append(items, listItem{key: cp, isPrefix: true})
				}
				continue
			}
		}
		items = append(items, listItem{key: k})
	}

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("bad continuation token %q", tok)
		}
		start = n
	}

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	end := min(start+pageSize, len(items))

	out := &s3.ListObjectsV2Output{}
	for _, it := range items[start:end] {
		if it.isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(it.key)})
			continue
		}
		obj := bucket[it.key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(it.key),
			Size:         aws.Int64(obj.Size),
			ETag:         aws.String(obj.ETag),
			LastModified: aws.Time(obj.Modified),
		})
	}
	if end < len(items) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	} else {
		out.IsTruncated = aws.Bool(false)
	}
	return out, nil
}
