package series

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"aqualink/internal/models"
)

// Source retrieves raw series data for a set of tags over a window
type Source interface {
	GetSeries(ctx context.Context, tags []string, minutes int) (models.SeriesMap, error)
}

// Fetcher retrieves SeriesPoint lists per tag with request dedup, an
// explicit refresh path, and a guard against stale responses landing
// after a newer request already changed the selection.
//
// Single writer (the fetch completion path under mu), multiple readers
// through Result(). A successful fetch replaces the whole map; a failed
// one keeps the previous map so the UI shows stale data with an error
// banner instead of going blank.
type Fetcher struct {
	source Source
	logger *slog.Logger

	mu        sync.Mutex
	data      models.SeriesMap
	lastKey   string // Dedup key of the last completed fetch
	activeKey string // Dedup key of the most recently started fetch
	seq       uint64 // Incremented per started fetch; stale resolvers compare against it
	loading   bool
	errMsg    string

	// Observability hooks, optional
	onDedupSkip    func()
	onStaleDiscard func()
}

// NewFetcher creates a fetcher over the given source
func NewFetcher(source Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		source: source,
		logger: logger,
		data:   models.SeriesMap{},
	}
}

// SetHooks installs optional counters for dedup skips and stale
// discards. Intended for the monitoring collector.
func (f *Fetcher) SetHooks(onDedupSkip, onStaleDiscard func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDedupSkip = onDedupSkip
	f.onStaleDiscard = onStaleDiscard
}

// RequestKey builds the dedup key for a tag set and window: the sorted
// tag list joined with commas plus the window. Tags are expected
// pre-sorted by the selector; identical logical selections always
// produce identical keys.
func RequestKey(tags []string, minutes int) string {
	return strings.Join(tags, ",") + "@" + strconv.Itoa(minutes)
}

// WouldIssue reports whether a Fetch with these arguments would issue a
// network request rather than deduplicate it. Callers use it to avoid
// entering a loading state for requests that will be skipped.
func (f *Fetcher) WouldIssue(tags []string, minutes int) bool {
	if len(tags) == 0 {
		return false
	}
	key := RequestKey(tags, minutes)

	f.mu.Lock()
	defer f.mu.Unlock()
	alreadyInFlight := f.loading && key == f.activeKey
	alreadyLoaded := key == f.lastKey && f.errMsg == ""
	return !alreadyInFlight && !alreadyLoaded
}

// Fetch retrieves series for the given tags and window.
//
// An empty tag list performs no network call and leaves the prior map
// untouched, avoiding a flash of empty state during transient filter
// changes. A request whose key matches the last completed fetch is
// skipped unless force is set (manual refresh). If a newer Fetch starts
// while this one is in flight, this one's result is discarded at
// resolution time.
//
// Returns true when a fetch was actually issued.
func (f *Fetcher) Fetch(ctx context.Context, tags []string, minutes int, force bool) bool {
	if len(tags) == 0 {
		return false
	}

	key := RequestKey(tags, minutes)

	f.mu.Lock()
	alreadyInFlight := f.loading && key == f.activeKey
	alreadyLoaded := key == f.lastKey && f.errMsg == ""
	if !force && (alreadyInFlight || alreadyLoaded) {
		if f.onDedupSkip != nil {
			f.onDedupSkip()
		}
		f.mu.Unlock()
		return false
	}
	f.seq++
	mySeq := f.seq
	f.activeKey = key
	f.loading = true
	f.mu.Unlock()

	result, err := f.source.GetSeries(ctx, tags, minutes)

	f.mu.Lock()
	defer f.mu.Unlock()

	// A newer request started while this one was in flight; applying
	// this result would overwrite fresher data.
	if mySeq != f.seq {
		if f.onStaleDiscard != nil {
			f.onStaleDiscard()
		}
		f.logger.Debug("discarding stale series response",
			slog.String("key", key),
		)
		return true
	}

	f.loading = false
	if err != nil {
		// Keep the previous map; surface the error separately.
		f.errMsg = err.Error()
		f.logger.Error("series fetch failed",
			slog.Int("tags", len(tags)),
			slog.Int("window_minutes", minutes),
			slog.Any("error", err),
		)
		return true
	}

	if result == nil {
		result = models.SeriesMap{}
	}
	f.data = result
	f.lastKey = key
	f.errMsg = ""
	f.logger.Debug("series fetch completed",
		slog.Int("tags", len(tags)),
		slog.Int("series", len(result)),
		slog.Int("window_minutes", minutes),
	)
	return true
}

// Refresh re-issues the last request, bypassing the dedup check
func (f *Fetcher) Refresh(ctx context.Context, tags []string, minutes int) bool {
	return f.Fetch(ctx, tags, minutes, true)
}

// Result returns the current map together with loading and error state.
// The returned map must be treated as read-only.
func (f *Fetcher) Result() (data models.SeriesMap, loading bool, errMsg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.loading, f.errMsg
}

// Replace installs a series map directly, bypassing the network. Used
// to seed the fetcher from the snapshot cache on startup.
func (f *Fetcher) Replace(data models.SeriesMap, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data == nil {
		data = models.SeriesMap{}
	}
	f.data = data
	f.lastKey = key
}
