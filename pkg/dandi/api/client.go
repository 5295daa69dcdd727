// Package api implements dandi.MetadataClient over the archive's REST API.
//
// Every call is a plain GET returning JSON. Listings follow the API's
// page-number pagination through the "next" links of each page; pages are
// fetched lazily as the caller iterates. A 404 from the API is reported as
// dandi.ErrNotFound. Nothing is cached and nothing is retried.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mvandenburgh/dandidav/internal/logger"
	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"github.com/mvandenburgh/dandidav/pkg/paths"
)

// DefaultBaseURL is the API root of the public DANDI archive.
const DefaultBaseURL = "https://api.dandiarchive.org/api/"

// Endpoint labels used for logging and metrics.
const (
	EndpointDandisets       = "dandisets"
	EndpointDandiset        = "dandiset"
	EndpointVersions        = "versions"
	EndpointVersion         = "version"
	EndpointVersionMetadata = "version_metadata"
	EndpointPaths           = "paths"
	EndpointAsset           = "asset"
)

// maxErrorBody bounds how much of an error response is kept for the error
// message.
const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	// BaseURL is the API root (default: DefaultBaseURL).
	BaseURL string

	// HTTPClient performs the requests (default: a client with Timeout).
	HTTPClient *http.Client

	// Timeout bounds each request when HTTPClient is not set (default: 30s).
	Timeout time.Duration

	// PageSize is requested for every listing (default: 200).
	PageSize int

	// UserAgent is sent with every request.
	UserAgent string

	// Metrics is optional; nil disables metrics collection.
	Metrics APIMetrics
}

// Client talks to the archive's REST API. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	pageSize  int
	userAgent string
	metrics   APIMetrics
}

// StatusError is returned for any non-2xx response other than 404.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", raw)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}

	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	return &Client{
		base:      base,
		http:      httpClient,
		pageSize:  pageSize,
		userAgent: cfg.UserAgent,
		metrics:   m,
	}, nil
}

// ============================================================================
// dandi.MetadataClient
// ============================================================================

// ListDandisets implements dandi.MetadataClient.
func (c *Client) ListDandisets(ctx context.Context) iter.Seq2[dandi.Dandiset, error] {
	return paginate[dandi.Dandiset](ctx, c, EndpointDandisets, c.listURL(nil, "dandisets"))
}

// GetDandiset implements dandi.MetadataClient.
func (c *Client) GetDandiset(ctx context.Context, id dandi.DandisetID) (dandi.Dandiset, error) {
	var d dandi.Dandiset
	err := c.getJSON(ctx, EndpointDandiset, c.url(nil, "dandisets", id.String()), &d)
	return d, err
}

// ListVersions implements dandi.MetadataClient.
func (c *Client) ListVersions(ctx context.Context, id dandi.DandisetID) iter.Seq2[dandi.DandisetVersion, error] {
	return paginate[dandi.DandisetVersion](ctx, c, EndpointVersions, c.listURL(nil, "dandisets", id.String(), "versions"))
}

// GetVersion implements dandi.MetadataClient.
func (c *Client) GetVersion(ctx context.Context, id dandi.DandisetID, version dandi.VersionID) (dandi.DandisetVersion, error) {
	var v dandi.DandisetVersion
	err := c.getJSON(ctx, EndpointVersion, c.url(nil, "dandisets", id.String(), "versions", version.String(), "info"), &v)
	return v, err
}

// GetVersionMetadata implements dandi.MetadataClient.
func (c *Client) GetVersionMetadata(ctx context.Context, id dandi.DandisetID, version dandi.VersionID) (dandi.VersionMetadata, error) {
	body, err := c.get(ctx, EndpointVersionMetadata, c.url(nil, "dandisets", id.String(), "versions", version.String()))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("metadata of %s/%s is not valid JSON", id, version)
	}
	return dandi.VersionMetadata(body), nil
}

// pathEntry is one result of the assets/paths listing.
type pathEntry struct {
	Path  paths.PurePath `json:"path"`
	Asset *struct {
		AssetID string `json:"asset_id"`
	} `json:"asset"`
}

// ListChildren implements dandi.MetadataClient.
func (c *Client) ListChildren(ctx context.Context, id dandi.DandisetID, version dandi.VersionID, dir paths.PureDirPath) iter.Seq2[dandi.FolderEntry, error] {
	var query url.Values
	if !dir.IsZero() {
		query = url.Values{"path_prefix": {dir.String()}}
	}
	u := c.listURL(query, "dandisets", id.String(), "versions", version.String(), "assets", "paths")

	return func(yield func(dandi.FolderEntry, error) bool) {
		for e, err := range paginate[pathEntry](ctx, c, EndpointPaths, u) {
			if err != nil {
				yield(dandi.FolderEntry{}, err)
				return
			}
			entry := dandi.FolderEntry{Path: e.Path}
			if e.Asset != nil {
				if e.Asset.AssetID == "" {
					yield(dandi.FolderEntry{}, fmt.Errorf("path %q lists an asset without an ID", e.Path))
					return
				}
				entry.AssetID = e.Asset.AssetID
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// GetAsset implements dandi.MetadataClient.
func (c *Client) GetAsset(ctx context.Context, id dandi.DandisetID, version dandi.VersionID, assetID string) (dandi.RawAsset, error) {
	var a dandi.RawAsset
	err := c.getJSON(ctx, EndpointAsset, c.url(nil, "dandisets", id.String(), "versions", version.String(), "assets", assetID, "info"), &a)
	return a, err
}

var _ dandi.MetadataClient = (*Client)(nil)

// ============================================================================
// HTTP plumbing
// ============================================================================

// url builds an API URL from path segments. API paths always end in "/".
func (c *Client) url(query url.Values, segments ...string) string {
	u := c.base.JoinPath(segments...)
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) listURL(query url.Values, segments ...string) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page_size", strconv.Itoa(c.pageSize))
	return c.url(q, segments...)
}

// paginate walks a paginated listing starting at first, following "next"
// links until the last page or until the consumer stops.
func paginate[T any](ctx context.Context, c *Client, endpoint, first string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		next := first
		for next != "" {
			var page struct {
				Next    *string `json:"next"`
				Results []T     `json:"results"`
			}
			if err := c.getJSON(ctx, endpoint, next, &page); err != nil {
				yield(zero, err)
				return
			}
			c.metrics.RecordPage(endpoint)

			for _, item := range page.Results {
				if !yield(item, nil) {
					return
				}
			}

			next = ""
			if page.Next != nil {
				next = *page.Next
			}
		}
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	body, err := c.get(ctx, endpoint, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}

// get performs one GET and returns the response body of a 2xx response.
func (c *Client) get(ctx context.Context, endpoint, rawURL string) (body []byte, err error) {
	start := time.Now()
	status := 0
	defer func() {
		c.metrics.ObserveRequest(endpoint, status, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logger.Debug("API GET %s", rawURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("GET %s: %w", rawURL, dandi.ErrNotFound)

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", rawURL, err)
	}
	return body, nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
