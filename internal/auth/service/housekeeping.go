package service

import (
	"context"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/store"
	"github.com/meridianwealth/authgate/pkg/slogx"
)

// DefaultLoginEventRetention bounds the audit trail.
const DefaultLoginEventRetention = 90 * 24 * time.Hour

// Housekeeper periodically purges expired sessions and trims old login
// events. One instance runs per process.
type Housekeeper struct {
	Store     store.Store
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// Start launches the background loop. Call Stop to shut it down.
func (h *Housekeeper) Start(ctx context.Context) {
	if h.Interval <= 0 {
		h.Interval = time.Hour
	}
	if h.Retention <= 0 {
		h.Retention = DefaultLoginEventRetention
	}

	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})

	go h.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight sweep.
func (h *Housekeeper) Stop() {
	if h.stopCh == nil {
		return
	}
	close(h.stopCh)
	<-h.doneCh
}

func (h *Housekeeper) run(ctx context.Context) {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	// One sweep at startup so a long interval doesn't delay the first purge.
	h.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			h.sweep(ctx)
		case <-h.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Housekeeper) sweep(ctx context.Context) {
	log := slogx.FromContext(ctx)

	if err := h.Store.Sessions().DeleteExpiredSessions(ctx); err != nil {
		log.Error("housekeeping: delete expired sessions", "error", err)
	}

	cutoff := nowFunc().Add(-h.Retention)
	if err := h.Store.LoginEvents().DeleteLoginEventsBefore(ctx, cutoff); err != nil {
		log.Error("housekeeping: trim login events", "error", err)
	}
}
