package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tartampluch/go-storefront/internal/config"
	"github.com/tartampluch/go-storefront/internal/engine"
	"github.com/tartampluch/go-storefront/internal/locale"
	"github.com/tartampluch/go-storefront/internal/server"
	"github.com/tartampluch/go-storefront/internal/site"
)

// StorefrontApp wires the site loader, the generator and the HTTP server,
// and owns the periodic triggers that keep the published data fresh.
type StorefrontApp struct {
	Ctx        context.Context
	Server     *server.SiteServer
	Loader     *site.Loader
	Source     site.Source
	Translator *locale.Translator
	Clock      engine.Clock // Injected clock for testability.

	// Refresh is the site reload interval; zero disables reloading.
	Refresh time.Duration

	mu       sync.RWMutex
	assets   *engine.Assets
	lastOpen *bool
}

// NewStorefrontApp constructs the application with a real clock.
func NewStorefrontApp(ctx context.Context, srv *server.SiteServer, loader *site.Loader, src site.Source, tr *locale.Translator, refresh time.Duration) *StorefrontApp {
	return &StorefrontApp{
		Ctx:        ctx,
		Server:     srv,
		Loader:     loader,
		Source:     src,
		Translator: tr,
		Clock:      engine.RealClock{},
		Refresh:    refresh,
	}
}

// Run performs the first sync, then serves until the context is cancelled.
// A failing first sync is fatal: there would be nothing to serve.
func (a *StorefrontApp) Run() error {
	if err := a.PerformSync(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrSyncFailed, err)
	}

	// The worker also stops when the server fails to start.
	ctx, cancel := context.WithCancel(a.Ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.backgroundWorker(ctx)
	}()

	err := a.Server.Start(ctx)
	cancel()
	wg.Wait()
	return err
}

// backgroundWorker re-samples the clock every minute and reloads the site
// configuration every Refresh. Both tickers stop with the context.
func (a *StorefrontApp) backgroundWorker(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	statusTicker := time.NewTicker(config.StatusInterval)
	defer statusTicker.Stop()

	var refreshC <-chan time.Time
	if a.Refresh > 0 {
		refreshTicker := time.NewTicker(a.Refresh)
		defer refreshTicker.Stop()
		refreshC = refreshTicker.C
	}

	log.Info(config.MsgWorkerStart, config.LogKeyInterval, a.Refresh)

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return

		case <-statusTicker.C:
			a.RefreshStatus()

		case <-refreshC:
			if err := a.PerformSync(); err != nil {
				log.Error(config.MsgSyncFailed, config.LogKeyError, err)
			}
		}
	}
}

// PerformSync loads the site configuration, regenerates the assets and
// publishes them together with a fresh status. On failure the previously
// published content stays in place.
func (a *StorefrontApp) PerformSync() error {
	slog.Info(config.MsgSyncReq,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyMode, a.Source.ResolveMode())

	s, err := a.Loader.Load(a.Ctx, a.Source)
	if err != nil {
		return err
	}

	gen := &engine.Generator{
		Clock:              a.Clock,
		FormatCalendarName: a.Translator.CalendarName(config.DefaultLanguage),
		FormatSummary:      a.Translator.Summary(config.DefaultLanguage),
	}

	greeting := a.Translator.Greeting(config.DefaultLanguage, s.Business.Name)
	assets, err := gen.Generate(a.Ctx, s.Profile(greeting))
	if err != nil {
		return err
	}
	if err := a.Server.UpdateAssets(assets); err != nil {
		return err
	}

	a.mu.Lock()
	a.assets = assets
	a.mu.Unlock()

	a.RefreshStatus()
	return nil
}

// RefreshStatus evaluates the schedule against the current time and publishes it.
func (a *StorefrontApp) RefreshStatus() {
	a.mu.RLock()
	assets := a.assets
	a.mu.RUnlock()
	if assets == nil {
		return
	}

	now := a.Clock.Now()
	st := engine.Evaluate(assets.Hours, assets.Timezone, now)
	a.Server.UpdateStatus(st, now, assets.Timezone, assets.Hours)

	a.mu.Lock()
	changed := a.lastOpen == nil || *a.lastOpen != st.Open
	open := st.Open
	a.lastOpen = &open
	a.mu.Unlock()

	if changed {
		slog.Info(config.MsgStatusChanged,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyOpen, st.Open,
			config.LogKeyMessage, st.Message,
			config.LogKeyTimezone, assets.Timezone,
		)
	}
}
