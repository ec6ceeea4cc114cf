package site

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"slices"

	"github.com/tartampluch/go-storefront/internal/config"
)

// Request describes one download of a remote site.yaml.
// ETag and LastModified come from the previous successful download and turn
// the request into a conditional one.
type Request struct {
	URL          string
	User         string
	Pass         string
	ETag         string
	LastModified string
}

// Response is the result of a download. Body is nil when NotModified is set.
type Response struct {
	Body         io.ReadCloser
	ETag         string
	LastModified string
	NotModified  bool
}

// Fetcher retrieves a remote site configuration.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// HTTPFetcher implements Fetcher using the standard net/http client.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with configured timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// Fetch downloads the site configuration described by r.
// A 304 answer to a conditional request yields NotModified. Query parameters
// never reach the logs, and the body is capped at config.MaxHTTPResponseSize.
func (f *HTTPFetcher) Fetch(ctx context.Context, r Request) (*Response, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}

	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
	)
	log.Debug(config.MsgFetchStart, slog.String(config.LogKeyETag, r.ETag))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRequestBuild, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.AcceptSiteConfig)

	conditional := r.ETag != "" || r.LastModified != ""
	if r.ETag != "" {
		req.Header.Set(config.HeaderIfNoneMatch, r.ETag)
	}
	if r.LastModified != "" {
		req.Header.Set(config.HeaderIfModifiedSince, r.LastModified)
	}

	if r.User != "" || r.Pass != "" {
		req.SetBasicAuth(r.User, r.Pass)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && conditional:
		_ = resp.Body.Close()
		log.Debug(config.MsgFetchSame)
		return &Response{ETag: r.ETag, LastModified: r.LastModified, NotModified: true}, nil
	case resp.StatusCode != http.StatusOK:
		_ = resp.Body.Close()
		log.Warn(config.MsgFetchStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %s", config.ErrHTTPStatus, resp.Status)
	}

	contentType := resp.Header.Get(config.HeaderContentType)
	if isRejectedMediaType(contentType) {
		_ = resp.Body.Close()
		log.Warn(config.MsgFetchType, slog.String(config.LogKeyType, contentType))
		return nil, fmt.Errorf("%s: %s", config.ErrContentType, contentType)
	}

	out := &Response{
		Body: &limitedReadCloser{
			Reader: io.LimitReader(resp.Body, config.MaxHTTPResponseSize),
			Closer: resp.Body,
		},
		ETag:         resp.Header.Get(config.HeaderETag),
		LastModified: resp.Header.Get(config.HeaderLastModified),
	}

	log.Info(config.MsgFetchDone,
		slog.Int64(config.LogKeyLength, resp.ContentLength),
		slog.String(config.LogKeyType, contentType),
		slog.String(config.LogKeyETag, out.ETag),
	)
	return out, nil
}

// isRejectedMediaType reports whether a Content-Type names a web page.
// Missing or unparseable values are let through to the YAML parser.
func isRejectedMediaType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(config.RejectedSiteMediaTypes, mediaType)
}

// limitedReadCloser pairs a size-limited reader with the response body closer.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}
