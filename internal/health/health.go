package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the overall health status
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// ComponentStatus represents the health of a single component
type ComponentStatus struct {
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Report represents the complete health status of the agent
type Report struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentStatus `json:"components"`
	Uptime     float64                    `json:"uptime_seconds"`
}

// Checker is the main health monitoring service
type Checker struct {
	mu         sync.RWMutex
	components map[string]ComponentStatus
	startTime  time.Time
	thresholds Thresholds
}

// Thresholds defines health status thresholds
type Thresholds struct {
	// Catalog staleness thresholds (seconds since last successful poll)
	CatalogOKInterval       int `json:"catalog_ok_interval"`       // 2x poll interval
	CatalogDegradedInterval int `json:"catalog_degraded_interval"` // 10x poll interval
}

// DefaultThresholds returns sensible default thresholds
// Use ThresholdsFromPollInterval for production to derive from actual config
func DefaultThresholds() Thresholds {
	return Thresholds{
		CatalogOKInterval:       120, // 2x 60s default interval
		CatalogDegradedInterval: 600, // 10x 60s default interval
	}
}

// ThresholdsFromPollInterval calculates health thresholds based on the
// catalog polling interval so staleness reflects the configured timing
func ThresholdsFromPollInterval(pollInterval time.Duration) Thresholds {
	pollIntervalSec := int(pollInterval.Seconds())

	// Handle sub-second intervals by enforcing a minimum of 1 second
	// to prevent zero thresholds causing immediate degraded status
	if pollIntervalSec < 1 {
		pollIntervalSec = 1
	}

	return Thresholds{
		CatalogOKInterval:       pollIntervalSec * 2,
		CatalogDegradedInterval: pollIntervalSec * 10,
	}
}

// NewChecker creates a new health checker
func NewChecker(thresholds Thresholds) *Checker {
	return &Checker{
		components: make(map[string]ComponentStatus),
		startTime:  time.Now(),
		thresholds: thresholds,
	}
}

// UpdateComponent updates the status of a specific component
func (c *Checker) UpdateComponent(name string, status ComponentStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status.Timestamp = time.Now()
	c.components[name] = status
}

// UpdateCatalogStatus updates the health of the catalog polling stream
func (c *Checker) UpdateCatalogStatus(lastPollTime time.Time, lastPollErr error, stations int) {
	status := ComponentStatus{
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"last_poll_time": lastPollTime.Format(time.RFC3339),
			"stations":       stations,
		},
	}

	timeSincePoll := time.Since(lastPollTime).Seconds()
	status.Details["time_since_poll_seconds"] = int64(timeSincePoll)

	if lastPollErr != nil {
		status.Status = StatusError
		status.Message = lastPollErr.Error()
	} else if timeSincePoll > float64(c.thresholds.CatalogDegradedInterval) {
		status.Status = StatusError
		status.Message = "no catalog snapshot within 10x poll interval"
	} else if timeSincePoll > float64(c.thresholds.CatalogOKInterval) {
		status.Status = StatusDegraded
		status.Message = "no catalog snapshot within 2x poll interval"
	} else {
		status.Status = StatusOK
		status.Message = "polling catalog"
	}

	c.UpdateComponent("catalog", status)
}

// UpdateSeriesStatus updates the health of the series fetch stream.
// An idle stream (no tags selected) is healthy.
func (c *Checker) UpdateSeriesStatus(lastFetchErr error, tagCount, seriesCount int) {
	status := ComponentStatus{
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"tags":   tagCount,
			"series": seriesCount,
		},
	}

	if lastFetchErr != nil {
		status.Status = StatusError
		status.Message = lastFetchErr.Error()
	} else if tagCount == 0 {
		status.Status = StatusOK
		status.Message = "no tags selected"
	} else {
		status.Status = StatusOK
		status.Message = "fetching series"
	}

	c.UpdateComponent("series", status)
}

// UpdateCacheStatus updates the health of the snapshot cache
func (c *Checker) UpdateCacheStatus(dbSize int64, lastErr error) {
	status := ComponentStatus{
		Status:    StatusOK,
		Message:   "cache operational",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"database_size_bytes": dbSize,
		},
	}

	// Cache failures degrade rather than error: the pipeline still
	// works, only restart recovery is lost.
	if lastErr != nil {
		status.Status = StatusDegraded
		status.Message = lastErr.Error()
	}

	c.UpdateComponent("cache", status)
}

// SetDetails attaches free-form details (e.g. self-metrics) to a component
func (c *Checker) SetDetails(name string, details map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, ok := c.components[name]
	if !ok {
		status = ComponentStatus{Status: StatusOK, Timestamp: time.Now()}
	}
	status.Details = details
	c.components[name] = status
}

// GetReport generates a complete health report
func (c *Checker) GetReport() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Deep copy components
	components := make(map[string]ComponentStatus, len(c.components))
	for k, v := range c.components {
		components[k] = v
	}

	return Report{
		Status:     c.calculateOverallStatus(components),
		Timestamp:  time.Now(),
		Components: components,
		Uptime:     time.Since(c.startTime).Seconds(),
	}
}

// calculateOverallStatus determines the overall agent status from
// component statuses. The catalog stream is the critical path: without
// it there is nothing to display. Series errors degrade (stale data is
// still shown), cache problems degrade.
func (c *Checker) calculateOverallStatus(components map[string]ComponentStatus) Status {
	if len(components) == 0 {
		return StatusOK
	}

	if catalogStatus, ok := components["catalog"]; ok && catalogStatus.Status == StatusError {
		return StatusError
	}

	for _, component := range components {
		if component.Status == StatusError || component.Status == StatusDegraded {
			return StatusDegraded
		}
	}

	return StatusOK
}

// HTTPHandler creates an HTTP handler for the health endpoint
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.GetReport()

		w.Header().Set("Content-Type", "application/json")

		// Set HTTP status code based on health status
		switch report.Status {
		case StatusOK:
			w.WriteHeader(http.StatusOK)
		case StatusDegraded:
			w.WriteHeader(http.StatusOK) // Still return 200 for degraded
		case StatusError:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(report)
	}
}

// LivenessHandler returns a simple liveness probe (always returns 200 if process is running)
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessHandler returns a readiness probe (200 only if status is OK)
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.GetReport()

		w.Header().Set("Content-Type", "application/json")

		if report.Status == StatusOK {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":         "not_ready",
				"message":        "system is not in OK state",
				"current_status": string(report.Status),
			})
		}
	}
}

// StartHTTPServer starts the health check HTTP server
func (c *Checker) StartHTTPServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", c.HTTPHandler())
	mux.HandleFunc("/health/live", c.LivenessHandler())
	mux.HandleFunc("/health/ready", c.ReadinessHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Graceful shutdown handler
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
