package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-storefront/internal/config"
	"github.com/tartampluch/go-storefront/internal/engine"
	"github.com/tartampluch/go-storefront/internal/locale"
)

// cacheItem stores a rendered response body and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// statusItem is the latest evaluation published by the status worker.
type statusItem struct {
	status      engine.Status
	evaluatedAt time.Time
	timezone    string
	hours       []engine.HoursRule
}

// statusResponse is the JSON body of the status endpoint.
type statusResponse struct {
	Open        bool               `json:"open"`
	State       string             `json:"state"`
	Message     string             `json:"message"`
	Badge       string             `json:"badge"`
	Lang        string             `json:"lang"`
	Timezone    string             `json:"timezone"`
	EvaluatedAt string             `json:"evaluated_at"`
	Hours       []engine.HoursRule `json:"hours"`
}

// SiteServer publishes the storefront status, links, hours feed and contact card.
type SiteServer struct {
	// Every resource is an atomic.Pointer: reads are frequent and lock-free,
	// writes only happen on sync or once a minute for the status.
	calendar atomic.Pointer[cacheItem]
	card     atomic.Pointer[cacheItem]
	links    atomic.Pointer[cacheItem]
	status   atomic.Pointer[statusItem]

	Translator *locale.Translator
	Bind       string
	Port       string
}

// NewSiteServer creates a new instance of the server bound to localhost.
func NewSiteServer(port string, tr *locale.Translator) *SiteServer {
	return &SiteServer{
		Translator: tr,
		Bind:       config.LocalhostBindAddr,
		Port:       port,
	}
}

// Handler returns the route table.
func (s *SiteServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteStatus, s.readOnly(s.handleStatus))
	mux.HandleFunc(config.RouteLinks, s.readOnly(s.handleLinks))
	mux.HandleFunc(config.RouteHours, s.readOnly(s.handleCalendar))
	mux.HandleFunc(config.RouteContact, s.readOnly(s.handleContact))
	mux.HandleFunc(config.RouteHealth, s.readOnly(s.handleHealth))
	return mux
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *SiteServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	srv := &http.Server{
		Addr:         s.Bind + config.AddrSeparator + s.Port,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// UpdateAssets atomically replaces the feed, the card and the link set.
func (s *SiteServer) UpdateAssets(a *engine.Assets) error {
	links, err := json.Marshal(a.Links)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrJSONEncode, err)
	}

	s.calendar.Store(newCacheItem(config.RouteHours, a.Calendar))
	s.card.Store(newCacheItem(config.RouteContact, a.Card))
	s.links.Store(newCacheItem(config.RouteLinks, links))
	return nil
}

// UpdateStatus publishes a fresh evaluation.
func (s *SiteServer) UpdateStatus(st engine.Status, evaluatedAt time.Time, timezone string, hours []engine.HoursRule) {
	s.status.Store(&statusItem{
		status:      st,
		evaluatedAt: evaluatedAt,
		timezone:    timezone,
		hours:       hours,
	})
}

func newCacheItem(route string, data []byte) *cacheItem {
	item := &cacheItem{
		data:         data,
		etag:         etagFor(data),
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyRoute, route,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, item.etag,
	)
	return item
}

func etagFor(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))
}

// readOnly rejects every method but GET and HEAD.
func (s *SiteServer) readOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set(config.HeaderAllow, config.AllowedMethods)
			http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (s *SiteServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HeaderContentDisp, config.DispHours)
	s.serveCached(w, r, s.calendar.Load(), config.MimeTextCalendar, config.CacheControlPublic)
}

func (s *SiteServer) handleContact(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HeaderContentDisp, config.DispContact)
	s.serveCached(w, r, s.card.Load(), config.MimeVCard, config.CacheControlPublic)
}

func (s *SiteServer) handleLinks(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, s.links.Load(), config.MimeJSON, config.CacheControlPublic)
}

func (s *SiteServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HeaderContentType, config.MimeTextPlain)
	if r.Method == http.MethodGet {
		_, _ = io.WriteString(w, config.HealthOK)
	}
}

// handleStatus renders the latest evaluation in the negotiated language.
func (s *SiteServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	item := s.status.Load()
	if item == nil {
		notReady(w)
		return
	}

	lang := s.Translator.Negotiate(r.URL.Query().Get(config.QueryLang), r.Header.Get(config.HeaderAcceptLanguage))
	message, badge := s.Translator.Status(lang, item.status)

	body, err := json.Marshal(statusResponse{
		Open:        item.status.Open,
		State:       item.status.State.String(),
		Message:     message,
		Badge:       badge,
		Lang:        lang,
		Timezone:    item.timezone,
		EvaluatedAt: item.evaluatedAt.UTC().Format(time.RFC3339),
		Hours:       item.hours,
	})
	if err != nil {
		slog.Error(config.ErrJSONEncode,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		http.Error(w, config.HTTPMsgInternalErr, http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HeaderContentLanguage, lang)
	w.Header().Set(config.HeaderVary, config.HeaderAcceptLanguage)
	s.serveCached(w, r, &cacheItem{
		data:         body,
		etag:         etagFor(body),
		lastModified: item.evaluatedAt.UTC().Format(http.TimeFormat),
	}, config.MimeJSON, config.CacheControlStatus)
}

// serveCached writes item with conditional request support.
func (s *SiteServer) serveCached(w http.ResponseWriter, r *http.Request, item *cacheItem, contentType, cacheControl string) {
	if item == nil {
		notReady(w)
		return
	}

	w.Header().Set(config.HeaderContentType, contentType)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, cacheControl)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		if match == item.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	} else if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

func notReady(w http.ResponseWriter) {
	w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
	http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
}
