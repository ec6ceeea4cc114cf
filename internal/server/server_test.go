package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-storefront/internal/config"
	"github.com/tartampluch/go-storefront/internal/engine"
	"github.com/tartampluch/go-storefront/internal/locale"
)

var testHours = []engine.HoursRule{
	{Days: "Mon–Sat", Open: "09:00", Close: "21:00"},
	{Days: "Sun", Open: "10:00", Close: "14:00"},
}

func newTestServer(port string) *SiteServer {
	return NewSiteServer(port, locale.NewTranslator())
}

func testAssets() *engine.Assets {
	return &engine.Assets{
		Calendar: []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"),
		Card:     []byte("BEGIN:VCARD\r\nVERSION:4.0\r\nFN:Satya Store\r\nEND:VCARD\r\n"),
		Links:    engine.Links{Call: "tel:+919876543210", WhatsApp: "https://wa.me/919876543210"},
		Hours:    testHours,
		Timezone: "Asia/Kolkata",
	}
}

// publishOpen loads assets and a Wednesday-morning evaluation.
func publishOpen(t *testing.T, srv *SiteServer) time.Time {
	t.Helper()
	require.NoError(t, srv.UpdateAssets(testAssets()))

	now := time.Date(2025, time.October, 22, 4, 30, 0, 0, time.UTC)
	srv.UpdateStatus(engine.Evaluate(testHours, "Asia/Kolkata", now), now, "Asia/Kolkata", testHours)
	return now
}

func do(srv *SiteServer, method, target string, header http.Header) *http.Response {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w.Result()
}

// -----------------------------------------------------------------------------
// Unit Tests (White-Box Testing of Handler Logic)
// -----------------------------------------------------------------------------

// TestHandler_ServingContent verifies headers and bodies of the static resources.
func TestHandler_ServingContent(t *testing.T) {
	srv := newTestServer("0")
	publishOpen(t, srv)

	tests := []struct {
		route       string
		contentType string
		disposition string
		contains    string
	}{
		{config.RouteHours, config.MimeTextCalendar, config.DispHours, "BEGIN:VCALENDAR"},
		{config.RouteContact, config.MimeVCard, config.DispContact, "FN:Satya Store"},
		{config.RouteLinks, config.MimeJSON, "", `"call":"tel:+919876543210"`},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			resp := do(srv, http.MethodGet, tt.route, nil)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.contentType, resp.Header.Get(config.HeaderContentType))
			assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
			assert.Equal(t, config.CacheControlPublic, resp.Header.Get(config.HeaderCacheControl))
			assert.Equal(t, tt.disposition, resp.Header.Get(config.HeaderContentDisp))
			assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), tt.contains)
		})
	}
}

func TestHandler_Status(t *testing.T) {
	srv := newTestServer("0")
	now := publishOpen(t, srv)

	resp := do(srv, http.MethodGet, config.RouteStatus, nil)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.CacheControlStatus, resp.Header.Get(config.HeaderCacheControl))
	assert.Equal(t, "en", resp.Header.Get(config.HeaderContentLanguage))
	assert.Equal(t, config.HeaderAcceptLanguage, resp.Header.Get(config.HeaderVary))

	var got statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.Open)
	assert.Equal(t, "open", got.State)
	assert.Equal(t, "Open now · Closes 21:00", got.Message)
	assert.Equal(t, "Open", got.Badge)
	assert.Equal(t, "Asia/Kolkata", got.Timezone)
	assert.Equal(t, now.Format(time.RFC3339), got.EvaluatedAt)
	assert.Equal(t, testHours, got.Hours)
}

func TestHandler_StatusLanguage(t *testing.T) {
	srv := newTestServer("0")
	publishOpen(t, srv)

	// Query parameter.
	resp := do(srv, http.MethodGet, config.RouteStatus+"?"+config.QueryLang+"=hi", nil)
	var got statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	_ = resp.Body.Close()
	assert.Equal(t, "hi", got.Lang)
	assert.Equal(t, "अभी खुला है · 21:00 बजे बंद होगा", got.Message)
	assert.Equal(t, "hi", resp.Header.Get(config.HeaderContentLanguage))

	// Accept-Language header.
	resp = do(srv, http.MethodGet, config.RouteStatus, http.Header{
		config.HeaderAcceptLanguage: {"hi-IN,hi;q=0.9,en;q=0.5"},
	})
	got = statusResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	_ = resp.Body.Close()
	assert.Equal(t, "hi", got.Lang)
	assert.Equal(t, "खुला", got.Badge)
}

// TestHandler_Caching verifies that the server respects ETag headers (If-None-Match)
// and returns 304 Not Modified to save bandwidth.
func TestHandler_Caching(t *testing.T) {
	srv := newTestServer("0")
	publishOpen(t, srv)

	// Step 1: Initial Request to get the ETag
	resp1 := do(srv, http.MethodGet, config.RouteHours, nil)
	_ = resp1.Body.Close()
	etag := resp1.Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	// Step 2: Second Request providing the known ETag
	resp2 := do(srv, http.MethodGet, config.RouteHours, http.Header{config.HeaderIfNoneMatch: {etag}})
	defer func() { _ = resp2.Body.Close() }()

	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
	body, _ := io.ReadAll(resp2.Body)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")

	// Step 3: A stale ETag gets the full body
	resp3 := do(srv, http.MethodGet, config.RouteHours, http.Header{config.HeaderIfNoneMatch: {`"stale"`}})
	defer func() { _ = resp3.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

func TestHandler_IfModifiedSince(t *testing.T) {
	srv := newTestServer("0")
	publishOpen(t, srv)

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	resp := do(srv, http.MethodGet, config.RouteContact, http.Header{config.HeaderIfModifiedSince: {future}})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	resp2 := do(srv, http.MethodGet, config.RouteContact, http.Header{config.HeaderIfModifiedSince: {past}})
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestHandler_Head(t *testing.T) {
	srv := newTestServer("0")
	publishOpen(t, srv)

	resp := do(srv, http.MethodHead, config.RouteLinks, nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
}

// TestHandler_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer("0")
	publishOpen(t, srv)

	for _, route := range []string{config.RouteStatus, config.RouteLinks, config.RouteHours, config.RouteContact, config.RouteHealth} {
		resp := do(srv, http.MethodPost, route, nil)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, route)
		assert.Equal(t, config.AllowedMethods, resp.Header.Get(config.HeaderAllow), route)
	}
}

// TestHandler_Initializing verifies the 503 behavior when data is not yet ready.
func TestHandler_Initializing(t *testing.T) {
	srv := newTestServer("0")
	// Note: We intentionally do NOT publish anything here.

	for _, route := range []string{config.RouteStatus, config.RouteLinks, config.RouteHours, config.RouteContact} {
		resp := do(srv, http.MethodGet, route, nil)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, route)
		assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter), route)
	}
}

func TestHandler_Health(t *testing.T) {
	srv := newTestServer("0")

	resp := do(srv, http.MethodGet, config.RouteHealth, nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, config.HealthOK, string(body))
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := newTestServer("0")
	var wg sync.WaitGroup

	end := time.Now().Add(500 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			i := 0
			for time.Now().Before(end) {
				a := testAssets()
				a.Calendar = []byte(fmt.Sprintf("VERSION:%d-%d", id, i))
				_ = srv.UpdateAssets(a)

				now := time.Now()
				srv.UpdateStatus(engine.Evaluate(testHours, "Asia/Kolkata", now), now, "Asia/Kolkata", testHours)
				i++
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			route := config.RouteHours
			if r%2 == 0 {
				route = config.RouteStatus
			}
			for time.Now().Before(end) {
				resp := do(srv, http.MethodGet, route, nil)
				_ = resp.Body.Close()

				code := resp.StatusCode
				if code != http.StatusOK && code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", code)
				}
			}
		}(r)
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const port = "18099"

	srv := newTestServer(port)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	base := "http://127.0.0.1:" + port

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + config.RouteHealth)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	// 1. Check Initial State (503)
	resp, err := http.Get(base + config.RouteStatus)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	// 2. Publish Data
	publishOpen(t, srv)

	// 3. Check Served Content (200)
	resp, err = http.Get(base + config.RouteStatus)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), `"open":true`)

	// 4. Test Shutdown
	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

func TestServer_StartRequiresPort(t *testing.T) {
	srv := newTestServer("")
	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrPortRequired)
}
