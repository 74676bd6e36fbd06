package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"aqualink/internal/catalog"
	"aqualink/internal/health"
	"aqualink/internal/logging"
	"aqualink/internal/models"
	"aqualink/internal/monitoring"
	"aqualink/internal/series"
	"aqualink/internal/storage"
)

// Backend is what the orchestrator needs from the API client
type Backend interface {
	GetDashboard(ctx context.Context) (*models.Dashboard, error)
	GetSeries(ctx context.Context, tags []string, minutes int) (models.SeriesMap, error)
}

// errCatalogUnreachable is the user-facing message for catalog
// connectivity failures, matching the product's language
const errCatalogUnreachable = "Não foi possível conectar ao servidor de dados."

// Options configures an Orchestrator
type Options struct {
	Backend      Backend
	Cache        storage.Cache          // optional snapshot cache
	Logger       *slog.Logger           // defaults to logging.Default()
	Metrics      *monitoring.Collector  // optional self-metrics
	Health       *health.Checker        // optional health reporting
	Location     *time.Location         // timezone for chart labels, defaults to local
	PollInterval time.Duration          // catalog polling interval, defaults to 60s
	RangeMinutes int                    // initial window, defaults to models.DefaultTimeRangeMinutes
	SessionID    string                 // threaded into logs
}

// Orchestrator is the reactive glue of one dashboard view: it polls the
// catalog, recomputes the active tag set whenever the catalog snapshot
// or the station/filter/window selection changes, drives the series
// fetcher, and exposes a unified snapshot to the presentation layer.
//
// The catalog snapshot and derived indexes are single-writer (the poll
// completion path), multi-reader; every update is a full replacement so
// readers always see one point-in-time view. A tag-set change is the
// sole trigger for a series fetch: value-only updates from polling
// produce the same request key and are deduplicated by the fetcher.
type Orchestrator struct {
	backend      Backend
	cache        storage.Cache
	fetcher      *series.Fetcher
	logger       *slog.Logger
	metrics      *monitoring.Collector
	health       *health.Checker
	loc          *time.Location
	pollInterval time.Duration
	sessionID    string

	mu            sync.RWMutex
	runCtx        context.Context
	catalog       *models.Dashboard
	catalogErr    string
	phase         Phase
	stationKeys   []string
	categoryIndex map[string]catalog.CategoryDescriptor
	activeStation string
	filters       map[string]struct{}
	rangeMinutes  int
	lastPollTime  time.Time

	onChange func() // notified after every state change, used by the push hub
}

// New creates an orchestrator. Run must be called to start polling.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}
	rangeMinutes := opts.RangeMinutes
	if rangeMinutes <= 0 {
		rangeMinutes = models.DefaultTimeRangeMinutes
	}

	o := &Orchestrator{
		backend:       opts.Backend,
		cache:         opts.Cache,
		fetcher:       series.NewFetcher(opts.Backend, logger),
		logger:        logger,
		metrics:       opts.Metrics,
		health:        opts.Health,
		loc:           loc,
		pollInterval:  pollInterval,
		sessionID:     opts.SessionID,
		phase:         PhaseIdle,
		filters:       make(map[string]struct{}),
		rangeMinutes:  rangeMinutes,
		categoryIndex: map[string]catalog.CategoryDescriptor{},
	}

	if opts.Metrics != nil {
		o.fetcher.SetHooks(opts.Metrics.RecordDedupSkip, opts.Metrics.RecordStaleDiscard)
	}

	return o
}

// OnChange installs the state-change callback. Must be set before Run.
func (o *Orchestrator) OnChange(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = fn
}

// notify invokes the change callback outside any lock
func (o *Orchestrator) notify() {
	o.mu.RLock()
	fn := o.onChange
	o.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Run starts the polling loop and blocks until ctx is cancelled. The
// view is long-lived: cancellation is the only exit, and it also
// abandons any in-flight series fetch (its result is discarded by the
// fetcher's resolution guard).
func (o *Orchestrator) Run(ctx context.Context) {
	o.mu.Lock()
	o.runCtx = ctx
	o.mu.Unlock()

	o.restoreFromCache(ctx)

	// First poll is visible; subsequent ticks are silent so the UI
	// never flashes a loading state during background refresh.
	o.pollCatalog(ctx, false)

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("view orchestrator stopped")
			return
		case <-ticker.C:
			o.pollCatalog(ctx, true)
		}
	}
}

// restoreFromCache seeds the view with the last persisted snapshots so
// stale data is on screen while the first fetches run
func (o *Orchestrator) restoreFromCache(ctx context.Context) {
	if o.cache == nil {
		return
	}

	dash, fetchedAt, err := o.cache.LoadCatalog(ctx)
	if err != nil {
		o.logger.Warn("failed to load cached catalog", slog.Any("error", err))
	} else if dash != nil {
		o.mu.Lock()
		o.catalog = dash
		o.stationKeys = catalog.StationKeys(dash)
		o.categoryIndex = catalog.BuildCategoryIndex(dash)
		o.mu.Unlock()
		o.logger.Info("restored catalog snapshot from cache",
			slog.Time("fetched_at", fetchedAt),
			slog.Int("stations", len(dash.Data)),
		)
	}

	cached, _, _, err := o.cache.LoadSeries(ctx)
	if err != nil {
		o.logger.Warn("failed to load cached series", slog.Any("error", err))
	} else if cached != nil {
		// Seeded with an empty key so the first real fetch for the same
		// selection is not deduplicated away.
		o.fetcher.Replace(cached, "")
		o.logger.Info("restored series snapshot from cache", slog.Int("series", len(cached)))
	}
}

// pollCatalog fetches the dashboard payload and replaces the snapshot.
// Silent polls never flip the view into a loading phase.
func (o *Orchestrator) pollCatalog(ctx context.Context, silent bool) {
	if !silent {
		o.mu.Lock()
		o.phase = PhaseCatalogLoading
		o.mu.Unlock()
		o.notify()
	}

	start := time.Now()
	dash, err := o.backend.GetDashboard(ctx)
	duration := time.Since(start)

	if err != nil {
		o.mu.Lock()
		o.catalogErr = errCatalogUnreachable
		// Prior data, when present, stays on screen with an error
		// banner; only a first-load failure shows the error state.
		if o.catalog == nil {
			o.phase = PhaseCatalogError
		} else if o.phase == PhaseCatalogLoading {
			o.phase = PhaseCatalogReady
		}
		lastPoll := o.lastPollTime
		stations := len(o.stationKeys)
		o.mu.Unlock()

		if o.metrics != nil {
			o.metrics.RecordPollFailure()
		}
		if o.health != nil {
			o.health.UpdateCatalogStatus(lastPoll, err, stations)
		}
		logging.LogPollError(o.logger, o.sessionID, err)
		o.notify()
		return
	}

	totalKPIs := 0
	for _, station := range dash.Data {
		totalKPIs += len(station.KPIs)
	}

	o.mu.Lock()
	o.catalog = dash
	o.catalogErr = ""
	o.stationKeys = catalog.StationKeys(dash)
	o.categoryIndex = catalog.BuildCategoryIndex(dash)
	o.lastPollTime = time.Now()
	if o.phase == PhaseIdle || o.phase == PhaseCatalogLoading || o.phase == PhaseCatalogError {
		o.phase = PhaseCatalogReady
	}
	stations := len(o.stationKeys)
	o.mu.Unlock()

	if o.cache != nil {
		saveErr := o.cache.SaveCatalog(ctx, dash)
		if saveErr != nil {
			o.logger.Warn("failed to cache catalog snapshot", slog.Any("error", saveErr))
		}
		if o.health != nil {
			var dbSize int64
			if sizer, ok := o.cache.(interface{ DBSize() (int64, error) }); ok {
				dbSize, _ = sizer.DBSize()
			}
			o.health.UpdateCacheStatus(dbSize, saveErr)
		}
	}
	if o.metrics != nil {
		o.metrics.RecordPollSuccess(duration)
	}
	if o.health != nil {
		o.health.UpdateCatalogStatus(time.Now(), nil, stations)
		if o.metrics != nil {
			o.health.SetDetails("self", o.metrics.Report())
		}
	}
	logging.LogPoll(o.logger, stations, totalKPIs, duration.Milliseconds(), o.sessionID)

	// The snapshot may have added or removed KPIs; if the derived tag
	// set is unchanged the fetcher dedups the request away.
	o.triggerSeries(false)
	o.notify()
}

// effectiveStationLocked resolves the station to display: the operator
// selection when still valid, otherwise the first active station
func (o *Orchestrator) effectiveStationLocked() string {
	if o.activeStation != "" {
		for _, key := range o.stationKeys {
			if key == o.activeStation {
				return o.activeStation
			}
		}
	}
	if len(o.stationKeys) > 0 {
		return o.stationKeys[0]
	}
	return ""
}

// activeTagsLocked derives the wire tags for the current selection
func (o *Orchestrator) activeTagsLocked() []string {
	station := o.effectiveStationLocked()
	if station == "" {
		return nil
	}
	return catalog.ActiveTags(o.catalog.StationKPIs(station), o.filters)
}

// triggerSeries recomputes the active tag set and drives the fetcher in
// the background. The tag computation is synchronous; only the network
// call runs on a goroutine tied to the run context.
func (o *Orchestrator) triggerSeries(force bool) {
	o.mu.Lock()
	ctx := o.runCtx
	if ctx == nil || o.catalog == nil {
		o.mu.Unlock()
		return
	}
	tags := o.activeTagsLocked()
	minutes := o.rangeMinutes
	station := o.effectiveStationLocked()
	if len(tags) == 0 {
		// Nothing to request: a distinct empty state, not an error.
		// The prior map is left untouched by the fetcher contract.
		o.mu.Unlock()
		if o.health != nil {
			o.health.UpdateSeriesStatus(nil, 0, 0)
		}
		o.notify()
		return
	}
	// An unchanged selection dedups inside the fetcher; flipping into a
	// loading phase for it would flash on every silent catalog tick.
	wouldIssue := force || o.fetcher.WouldIssue(tags, minutes)
	if wouldIssue {
		o.phase = PhaseSeriesLoading
	}
	o.mu.Unlock()
	if wouldIssue {
		o.notify()
	}

	go func() {
		start := time.Now()
		issued := o.fetcher.Fetch(ctx, tags, minutes, force)
		if !issued {
			// Deduplicated: the last result is already current.
			o.mu.Lock()
			changed := o.phase == PhaseSeriesLoading
			if changed {
				o.phase = PhaseSeriesReady
			}
			o.mu.Unlock()
			if changed {
				o.notify()
			}
			return
		}
		duration := time.Since(start)

		data, loading, errMsg := o.fetcher.Result()
		if loading {
			// A newer request superseded this one; it owns the
			// transition out of the loading phase.
			return
		}

		o.mu.Lock()
		if errMsg != "" {
			o.phase = PhaseSeriesError
		} else {
			o.phase = PhaseSeriesReady
		}
		o.mu.Unlock()

		if errMsg != "" {
			if o.metrics != nil {
				o.metrics.RecordFetchFailure()
			}
			if o.health != nil {
				o.health.UpdateSeriesStatus(errors.New(errMsg), len(tags), len(data))
			}
			logging.LogFetchError(o.logger, station, len(tags), minutes, errors.New(errMsg))
		} else {
			if o.metrics != nil {
				o.metrics.RecordFetchSuccess(duration)
			}
			if o.health != nil {
				o.health.UpdateSeriesStatus(nil, len(tags), len(data))
			}
			logging.LogFetch(o.logger, station, len(tags), minutes, duration.Milliseconds())

			if o.cache != nil {
				key := series.RequestKey(tags, minutes)
				if err := o.cache.SaveSeries(ctx, key, minutes, data); err != nil {
					o.logger.Warn("failed to cache series snapshot", slog.Any("error", err))
				}
			}
		}
		o.notify()
	}()
}

// SetStation switches the displayed station
func (o *Orchestrator) SetStation(key string) {
	o.mu.Lock()
	o.activeStation = key
	o.mu.Unlock()
	o.triggerSeries(false)
	o.notify()
}

// ToggleFilter adds or removes a KPI id from the filter set
func (o *Orchestrator) ToggleFilter(kpiID string) {
	o.mu.Lock()
	if _, ok := o.filters[kpiID]; ok {
		delete(o.filters, kpiID)
	} else {
		o.filters[kpiID] = struct{}{}
	}
	o.mu.Unlock()
	o.triggerSeries(false)
	o.notify()
}

// ClearFilters removes every KPI filter, returning to "show everything"
func (o *Orchestrator) ClearFilters() {
	o.mu.Lock()
	o.filters = make(map[string]struct{})
	o.mu.Unlock()
	o.triggerSeries(false)
	o.notify()
}

// SetTimeRange switches the historical window; only preset values are
// accepted
func (o *Orchestrator) SetTimeRange(minutes int) error {
	if !models.ValidTimeRange(minutes) {
		return errors.New("time range must be one of the presets")
	}
	o.mu.Lock()
	o.rangeMinutes = minutes
	o.mu.Unlock()
	o.triggerSeries(false)
	o.notify()
	return nil
}

// Refresh re-issues the series request, bypassing dedup
func (o *Orchestrator) Refresh() {
	o.triggerSeries(true)
}

// RetryCatalog re-attempts a failed catalog fetch, visibly
func (o *Orchestrator) RetryCatalog() {
	o.mu.RLock()
	ctx := o.runCtx
	o.mu.RUnlock()
	if ctx == nil {
		return
	}
	go o.pollCatalog(ctx, false)
}

// SeriesForKPI returns the shaped, chart-ready points for one KPI id
// together with its density tier
func (o *Orchestrator) SeriesForKPI(kpiID string) ([]models.ChartPoint, series.DensityTier) {
	tag := catalog.IDToTag(kpiID)
	data, _, _ := o.fetcher.Result()
	points := data[tag]
	shaped := series.Shape(points, o.loc)
	return shaped, series.Tier(len(shaped))
}

// AllKPIs returns the deduplicated flat KPI list across stations
func (o *Orchestrator) AllKPIs() []models.KPI {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return catalog.AllKPIs(o.catalog)
}

// KPIs returns one station's KPI list, optionally narrowed by category
func (o *Orchestrator) KPIs(stationKey, category string) []models.KPI {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return catalog.KPIs(o.catalog, stationKey, category)
}
