package watchdog

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Pinger sends periodic keepalive notifications to the systemd watchdog
// when the agent runs as a service unit with WatchdogSec set.
type Pinger struct {
	enabled  bool
	interval time.Duration
	logger   *slog.Logger
}

// NewPinger detects whether a systemd watchdog is armed for this
// process. When it is not, the returned pinger is a no-op.
func NewPinger(logger *slog.Logger) *Pinger {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		logger.Info("systemd watchdog not enabled, skipping watchdog notifications")
		return &Pinger{enabled: false, logger: logger}
	}

	// Ping at half the watchdog timeout for safety margin.
	pingInterval := interval / 2

	logger.Info("systemd watchdog enabled",
		"watchdog_timeout", interval,
		"ping_interval", pingInterval,
	)

	return &Pinger{
		enabled:  true,
		interval: pingInterval,
		logger:   logger,
	}
}

// Start runs the keepalive loop until the context is cancelled. It does
// not send READY; call NotifyReady once initialization is complete.
func (p *Pinger) Start(ctx context.Context) {
	if !p.enabled {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			p.logger.Info("watchdog pinger stopped")
			return

		case <-ticker.C:
			sent, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			if err != nil {
				p.logger.Error("failed to send watchdog ping", "error", err)
			} else if sent {
				p.logger.Debug("watchdog ping sent")
			}
		}
	}
}

// NotifyReady tells systemd the dashboard agent finished startup.
func (p *Pinger) NotifyReady() {
	if !p.enabled {
		return
	}
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		p.logger.Error("failed to notify systemd ready", "error", err)
	} else if sent {
		p.logger.Info("notified systemd: service ready")
	}
}

// NotifyStopping tells systemd a clean shutdown has begun.
func (p *Pinger) NotifyStopping() {
	if !p.enabled {
		return
	}
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		p.logger.Error("failed to notify systemd stopping", "error", err)
	} else if sent {
		p.logger.Info("notified systemd: service stopping")
	}
}

// IsEnabled reports whether watchdog notifications are active.
func (p *Pinger) IsEnabled() bool {
	return p.enabled
}

// Interval returns the keepalive ping interval.
func (p *Pinger) Interval() time.Duration {
	return p.interval
}

// IsRunningUnderSystemd reports whether systemd launched this process.
// READY and STOPPING notifications are sent whenever this holds, even
// when no watchdog timeout is configured.
func IsRunningUnderSystemd() bool {
	if os.Getenv("NOTIFY_SOCKET") != "" {
		return true
	}
	return os.Getenv("INVOCATION_ID") != ""
}
