package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client used to fetch remote site configs.
var UserAgent = "Go-Storefront/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Storefront"
	AppID             = "com.github.tartampluch.go-storefront"
	KeyringService    = "com.github.tartampluch.go-storefront"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	EnvFileName       = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags, Environment & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion    = "version"
	FlagDebug      = "debug"
	FlagConfig     = "config"
	FlagConfigURL  = "config-url"
	FlagConfigUser = "config-user"
	FlagPort       = "port"
	FlagBind       = "bind"
	FlagRefresh    = "refresh"

	FlagDescVersion    = "Show application version and exit"
	FlagDescDebug      = "Enable debug logging to stdout"
	FlagDescConfig     = "Path to a site configuration file (YAML); the embedded default is used when empty"
	FlagDescConfigURL  = "HTTP(S) URL of a site configuration file (YAML)"
	FlagDescConfigUser = "Basic auth user for -config-url; the password is read from the OS keyring"
	FlagDescPort       = "HTTP port to listen on"
	FlagDescBind       = "Address to bind the HTTP server to"
	FlagDescRefresh    = "Site configuration reload interval in minutes (0 disables reloading)"

	EnvConfig         = "STOREFRONT_CONFIG"
	EnvConfigURL      = "STOREFRONT_CONFIG_URL"
	EnvConfigUser     = "STOREFRONT_CONFIG_USER"
	EnvConfigPassword = "STOREFRONT_CONFIG_PASSWORD"
	EnvPort           = "STOREFRONT_PORT"
	EnvBind           = "STOREFRONT_BIND"
	EnvRefresh        = "STOREFRONT_REFRESH_MIN"

	MsgVersionOutput = "%s version %s (commit %s, built %s) %s/%s\n"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyStatusOpen        = "status_open"        // Requires Close
	TKeyStatusClosed      = "status_closed"      // Requires Open, Days
	TKeyStatusUnavailable = "status_unavailable" // No arguments
	TKeyBadgeOpen         = "badge_open"
	TKeyBadgeClosed       = "badge_closed"
	TKeyCalName           = "calendar_name"      // Requires Name
	TKeyEvtSummary        = "event_summary"      // Requires Name
	TKeyWAGreeting        = "whatsapp_greeting"  // Requires Name
)

// SupportedLanguages defines the list of shipped catalogues (ISO 639-1).
var SupportedLanguages = []string{"en", "hi"}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeEmbedded = "embedded"
	SourceModeLocal    = "local"
	SourceModeWeb      = "web"

	DefaultPort       = "18080"
	DefaultRefreshMin = 60
	DefaultLanguage   = "en"
	DefaultTimezone   = "Asia/Kolkata"
	DefaultCurrency   = "INR"
	DisabledInterval  = 0

	// StatusInterval is how often the clock is re-sampled for the open/closed status.
	StatusInterval = 1 * time.Minute

	UIDSalt = "go-storefront-v1-" // Salt for deterministic UID generation
)

// -----------------------------------------------------------------------------
// Opening Hours
// -----------------------------------------------------------------------------

const (
	// DayRangeSeparator is the en-dash joining two weekday abbreviations ("Mon–Sat").
	DayRangeSeparator = "–"
	DayAbbrevLen      = 3
	ClockSeparator    = ":"
	MinutesPerHour    = 60
	DaysPerWeek       = 7

	MsgOpenNow          = "Open now · Closes %s"
	MsgClosedOpens      = "Closed · Opens %s (%s)"
	MsgHoursUnavailable = "Hours unavailable"
)

// WeekdayOrder is the canonical weekday order used for range matching.
var WeekdayOrder = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// -----------------------------------------------------------------------------
// Links (tel, WhatsApp, UPI)
// -----------------------------------------------------------------------------

const (
	SchemeTel    = "tel:"
	SchemeMailto = "mailto:"
	WhatsAppBase = "https://wa.me/"
	WhatsAppText = "text"

	// ComponentUnreserved lists the marks left literal in an encoded query value, besides alphanumerics.
	ComponentUnreserved = "-_.!~*'()"

	UPIPayPrefix   = "upi://pay?"
	UPIKeyPayee    = "pa"
	UPIKeyName     = "pn"
	UPIKeyAmount   = "am"
	UPIKeyCurrency = "cu"
	UPIKeyNote     = "tn"
	UPIKeyMerchant = "mc"
	UPIKeyTxnRef   = "tr"
	UPIKeyURL      = "url"

	SocialInstagram = "instagram"
	SocialFacebook  = "facebook"
	SocialYouTube   = "youtube"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Storefront//Hours//EN"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalDomain    = "gostorefront"
	ICalTZStart   = "19700101T000000"
	ICalStandard  = "STANDARD"
	ICalTimezone  = "VTIMEZONE"
	ICalOffsetFmt = "-0700"

	PropUID          = "UID"
	PropSummary      = "SUMMARY"
	PropDTStart      = "DTSTART"
	PropDTEnd        = "DTEND"
	PropDTStamp      = "DTSTAMP"
	PropRRule        = "RRULE"
	PropRefresh      = "REFRESH-INTERVAL"
	PropLocation     = "LOCATION"
	PropVersion      = "VERSION"
	PropProdid       = "PRODID"
	PropXWRCalName   = "X-WR-CALNAME"
	PropXWRTimezone  = "X-WR-TIMEZONE"
	PropCalScale     = "CALSCALE"
	PropMethod       = "METHOD"
	PropTZID         = "TZID"
	PropTZOffsetFrom = "TZOFFSETFROM"
	PropTZOffsetTo   = "TZOFFSETTO"

	DefaultICalRefresh = 12 * time.Hour

	VCardVersion  = "4.0"
	VCardGeoFmt   = "geo:%g,%g"
	VCardTypeChat = "x-whatsapp"

	// StubVCalendar is the minimal valid iCalendar object used when no rule owns a weekday.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%s@%s"

	MinPort = 1
	MaxPort = 65535
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 1 * 1024 * 1024 // 1MB, a site config is a few KB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	AddrSeparator       = ":"

	RouteStatus  = "/api/status"
	RouteLinks   = "/api/links"
	RouteHours   = "/hours.ics"
	RouteContact = "/contact.vcf"
	RouteHealth  = "/healthz"

	QueryLang = "lang"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderContentLanguage = "Content-Language"
	HeaderContentDisp     = "Content-Disposition"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
	HeaderAcceptLanguage  = "Accept-Language"
	HeaderAccept          = "Accept"
	HeaderVary            = "Vary"

	MimeTextCalendar = "text/calendar; charset=utf-8"
	MimeVCard        = "text/vcard; charset=utf-8"
	MimeJSON         = "application/json; charset=utf-8"
	MimeTextPlain    = "text/plain; charset=utf-8"
	MimeNoSniff      = "nosniff"

	// AcceptSiteConfig prefers the YAML media types but takes whatever the host serves.
	AcceptSiteConfig = "application/yaml, application/x-yaml, text/yaml, text/x-yaml, text/plain;q=0.9, */*;q=0.1"

	CacheControlPublic = "public, max-age=300"
	CacheControlStatus = "no-cache"

	DispHours   = `inline; filename="hours.ics"`
	DispContact = `attachment; filename="contact.vcf"`

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
	HealthOK   = "ok"
)

// RejectedSiteMediaTypes are bodies that cannot be a site configuration,
// typically a login or error page answered with 200.
var RejectedSiteMediaTypes = []string{"text/html", "application/xhtml+xml"}

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty = "configuration error: local path is empty"
	ErrWebURLEmpty    = "configuration error: web URL is empty"
	ErrFetcherMissing = "internal error: network fetcher is not initialized"
	ErrModeUnsupport  = "configuration error: unsupported source mode"
	ErrSiteRead       = "failed to read site configuration"
	ErrSiteParse      = "failed to parse site configuration"
	ErrSiteInvalid    = "invalid site configuration"
	ErrNameRequired   = "business.name is required"
	ErrPhoneRequired  = "business.phoneE164 is required"
	ErrTimezone       = "unknown business.timezone"
	ErrServerStartup  = "server startup failed"
	ErrServerShutdown = "server shutdown failed"
	ErrPortRequired   = "server port is required"
	ErrPortNumber     = "server port must be a number"
	ErrPortRange      = "server port must be between 1 and 65535"
	ErrInvalidURL     = "invalid URL structure"
	ErrProtocol       = "unsupported protocol scheme (http/https only)"
	ErrRequestBuild   = "failed to create request"
	ErrNetwork        = "network error during fetch"
	ErrHTTPStatus     = "server returned unexpected status"
	ErrContentType    = "server returned a web page instead of a site configuration"
	ErrNotModified    = "server reported no change but no previous copy is held"
	ErrICalEncode     = "failed to encode iCalendar data"
	ErrVCardEncode    = "failed to encode vCard data"
	ErrJSONEncode     = "failed to encode JSON response"
	ErrLogFile        = "failed to open log file"
	ErrCacheDir       = "could not determine user cache dir"
	ErrCreateDir      = "could not create app cache dir"
	ErrAppFailed      = "application failed unexpectedly"
	ErrWriteResp      = "failed to write response body"
	ErrLocalesAccess  = "failed to access embedded locales"
	ErrLocaleLoad     = "failed to load locale file"
	ErrEnvFile        = "failed to load .env file"
	ErrSyncFailed     = "initial synchronization failed"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Storefront initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackSummary = "%s is open"
	FallbackCalName = "%s opening hours"
	FallbackName    = "Store"

	MsgSyncFailed    = "Synchronization failed. Keeping previous content."
	MsgSyncReq       = "Sync requested"
	MsgSiteLoaded    = "Site configuration loaded"
	MsgSiteUnchanged = "Site configuration unchanged, reusing parsed copy"
	MsgFetchStart    = "Initiating site configuration download"
	MsgFetchStatus   = "Server returned error status"
	MsgFetchType     = "Server returned unexpected content type"
	MsgFetchDone     = "Site configuration downloading"
	MsgFetchSame     = "Site configuration not modified"
	MsgWorkerStart   = "Background worker started"
	MsgWorkerStop    = "Worker stopping due to context cancellation"
	MsgStatusChanged = "Store status changed"
	MsgAppStop       = "Application stopped gracefully"
	MsgGenSuccess    = "Storefront assets generated"
	MsgSkippedRule   = "Skipping hours rule without a usable time window"
	MsgAppStarting   = "Starting application"
	MsgServerListen  = "HTTP server listening"
	MsgServerStop    = "Shutting down HTTP server..."
	MsgCacheUpdated  = "Response cache updated"
	MsgLocaleSkip    = "Skipping non-locale file"
	MsgLocaleBadName = "Skipping malformed locale filename"
	MsgLocaleLoaded  = "Locale loaded successfully"
	MsgTransMissing  = "Missing translation key"
	MsgPassFail      = "Password retrieval failed, falling back to environment"
	MsgLogWarning    = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyInterval  = "interval"
	LogKeyUser      = "user"
	LogKeyName      = "name"
	LogKeyRoute     = "route"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyModified  = "last_modified"
	LogKeyType      = "content_type"
	LogKeyLength    = "content_length"
	LogKeyOpen      = "open"
	LogKeyMessage   = "message"
	LogKeyRules     = "rules"
	LogKeyEvents    = "events"
	LogKeyDays      = "days"
	LogKeyTimezone  = "timezone"
	LogKeyStats     = "stats"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyDate    = "build_date"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompApp     = "app"
	CompEngine  = "engine"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompSite    = "site"
	CompWorker  = "worker"
	CompMain    = "main"
	CompI18n    = "i18n"
)
