package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tartampluch/go-storefront/internal/config"
)

// Source selects where the site configuration comes from.
type Source struct {
	Mode      string // config.SourceModeEmbedded, config.SourceModeLocal or config.SourceModeWeb
	LocalPath string // Path to a .yaml file
	WebURL    string // HTTP(S) URL of a .yaml file
	WebUser   string // HTTP Basic Auth Username
	WebPass   string // HTTP Basic Auth Password
}

// ResolveMode infers the mode from the filled fields when Mode is empty.
func (s Source) ResolveMode() string {
	switch {
	case s.Mode != "":
		return s.Mode
	case s.WebURL != "":
		return config.SourceModeWeb
	case s.LocalPath != "":
		return config.SourceModeLocal
	default:
		return config.SourceModeEmbedded
	}
}

// Loader reads and validates site configurations.
// For web sources it remembers the validators of the last download, so a
// reload of an unchanged site.yaml is answered from the parsed copy.
type Loader struct {
	Fetcher Fetcher // Only required for config.SourceModeWeb.

	mu   sync.Mutex
	last *remoteCopy
}

// remoteCopy is the last parsed web download and its cache validators.
type remoteCopy struct {
	url          string
	user         string
	etag         string
	lastModified string
	site         *Site
}

// Load acquires the configuration from src, then parses and validates it.
func (l *Loader) Load(ctx context.Context, src Source) (*Site, error) {
	mode := src.ResolveMode()
	log := slog.With(
		config.LogKeyComponent, config.CompSite,
		config.LogKeyMode, mode,
	)

	switch mode {
	case config.SourceModeEmbedded:
		s, err := Default()
		if err == nil {
			log.Info(config.MsgSiteLoaded, config.LogKeyName, s.Business.Name)
		}
		return s, err
	case config.SourceModeWeb:
		return l.loadRemote(ctx, log, src)
	}

	reader, err := openLocal(mode, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSiteRead, err)
	}
	defer func() { _ = reader.Close() }()

	s, err := readSite(reader)
	if err != nil {
		return nil, err
	}

	log.Info(config.MsgSiteLoaded, config.LogKeyName, s.Business.Name)
	return s, nil
}

func (l *Loader) loadRemote(ctx context.Context, log *slog.Logger, src Source) (*Site, error) {
	if src.WebURL == "" {
		return nil, fmt.Errorf("%s: %w", config.ErrSiteRead, errors.New(config.ErrWebURLEmpty))
	}
	if l.Fetcher == nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSiteRead, errors.New(config.ErrFetcherMissing))
	}

	req := Request{URL: src.WebURL, User: src.WebUser, Pass: src.WebPass}
	prev := l.previous(src)
	if prev != nil {
		req.ETag, req.LastModified = prev.etag, prev.lastModified
	}

	resp, err := l.Fetcher.Fetch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrSiteRead, err)
	}

	if resp.NotModified {
		if prev == nil {
			return nil, fmt.Errorf("%s: %s", config.ErrSiteRead, config.ErrNotModified)
		}
		log.Info(config.MsgSiteUnchanged,
			config.LogKeyName, prev.site.Business.Name,
			config.LogKeyETag, prev.etag)
		return prev.site, nil
	}
	defer func() { _ = resp.Body.Close() }()

	s, err := readSite(resp.Body)
	if err != nil {
		return nil, err
	}
	l.remember(src, resp, s)

	log.Info(config.MsgSiteLoaded, config.LogKeyName, s.Business.Name)
	return s, nil
}

// previous returns the remembered download for the same URL and user.
func (l *Loader) previous(src Source) *remoteCopy {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil || l.last.url != src.WebURL || l.last.user != src.WebUser {
		return nil
	}
	return l.last
}

func (l *Loader) remember(src Source, resp *Response, s *Site) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if resp.ETag == "" && resp.LastModified == "" {
		l.last = nil
		return
	}
	l.last = &remoteCopy{
		url:          src.WebURL,
		user:         src.WebUser,
		etag:         resp.ETag,
		lastModified: resp.LastModified,
		site:         s,
	}
}

func readSite(r io.Reader) (*Site, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSiteRead, err)
	}
	return Parse(data)
}

func openLocal(mode string, src Source) (io.ReadCloser, error) {
	if mode != config.SourceModeLocal {
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, mode)
	}
	if src.LocalPath == "" {
		return nil, errors.New(config.ErrLocalPathEmpty)
	}
	return os.Open(src.LocalPath)
}
