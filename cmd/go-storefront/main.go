package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tartampluch/go-storefront/internal/app"
	"github.com/tartampluch/go-storefront/internal/config"
	"github.com/tartampluch/go-storefront/internal/locale"
	"github.com/tartampluch/go-storefront/internal/server"
	"github.com/tartampluch/go-storefront/internal/site"
	"github.com/zalando/go-keyring"
)

// options are the process settings resolved from flags and the environment.
type options struct {
	showVersion bool
	debug       bool
	configPath  string
	configURL   string
	configUser  string
	port        string
	bind        string
	refreshMin  int
}

// main delegates to runMain so deferred calls (closing the log file) run
// before os.Exit.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. Environment & CLI Argument Parsing
	// -------------------------------------------------------------------------
	// A local .env is optional; real environment variables keep precedence.
	if err := godotenv.Load(config.EnvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrEnvFile, config.EnvFileName, err)
	}

	opts := parseFlags(flag.CommandLine, os.Args[1:])

	if opts.showVersion {
		printVersion(os.Stdout)
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	logCloser := setupLogging(opts.debug)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close()
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, opts); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run wires dependencies and blocks until the server stops.
func run(ctx context.Context, opts options) error {
	if err := validatePort(opts.port); err != nil {
		return err
	}

	tr := locale.NewTranslator()

	srv := server.NewSiteServer(opts.port, tr)
	srv.Bind = opts.bind

	src := site.Source{
		LocalPath: opts.configPath,
		WebURL:    opts.configURL,
		WebUser:   opts.configUser,
	}
	if src.WebUser != "" {
		src.WebPass = lookupPassword(src.WebUser)
	}

	loader := &site.Loader{Fetcher: site.NewHTTPFetcher()}
	refresh := time.Duration(opts.refreshMin) * time.Minute

	storefront := app.NewStorefrontApp(ctx, srv, loader, src, tr, refresh)
	return storefront.Run()
}

// parseFlags declares the flags on the given set with environment-derived defaults.
func parseFlags(flags *flag.FlagSet, args []string) options {
	var opts options
	flags.BoolVar(&opts.showVersion, config.FlagVersion, false, config.FlagDescVersion)
	flags.BoolVar(&opts.debug, config.FlagDebug, false, config.FlagDescDebug)
	flags.StringVar(&opts.configPath, config.FlagConfig, os.Getenv(config.EnvConfig), config.FlagDescConfig)
	flags.StringVar(&opts.configURL, config.FlagConfigURL, os.Getenv(config.EnvConfigURL), config.FlagDescConfigURL)
	flags.StringVar(&opts.configUser, config.FlagConfigUser, os.Getenv(config.EnvConfigUser), config.FlagDescConfigUser)
	flags.StringVar(&opts.port, config.FlagPort, envOr(config.EnvPort, config.DefaultPort), config.FlagDescPort)
	flags.StringVar(&opts.bind, config.FlagBind, envOr(config.EnvBind, config.LocalhostBindAddr), config.FlagDescBind)
	flags.IntVar(&opts.refreshMin, config.FlagRefresh, envInt(config.EnvRefresh, config.DefaultRefreshMin), config.FlagDescRefresh)
	// ExitOnError: the flag package prints usage and exits on bad input.
	_ = flags.Parse(args)

	if opts.refreshMin < 0 {
		opts.refreshMin = config.DisabledInterval
	}
	return opts
}

// validatePort ensures the port is a number within the TCP range.
func validatePort(port string) error {
	if port == "" {
		return errors.New(config.ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPortNumber, err)
	}
	if n < config.MinPort || n > config.MaxPort {
		return errors.New(config.ErrPortRange)
	}
	return nil
}

// lookupPassword reads the remote config password from the OS keyring,
// falling back to the environment on headless hosts.
func lookupPassword(user string) string {
	pass, err := keyring.Get(config.KeyringService, user)
	if err == nil {
		return pass
	}
	slog.Debug(config.MsgPassFail,
		config.LogKeyUser, user,
		config.LogKeyError, err,
		config.LogKeyComponent, config.CompMain)
	return os.Getenv(config.EnvConfigPassword)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

// printVersion writes the build information to w.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		config.Commit,
		config.Date,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyDate, config.Date),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger to write JSON to stdout
// and to a log file in the user's cache directory.
func setupLogging(debugMode bool) io.Closer {
	writers := []io.Writer{os.Stdout}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts)))

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
