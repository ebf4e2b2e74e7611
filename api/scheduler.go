/*
scheduler.go - Background permit-expiry watcher

PURPOSE:
  Periodically scans work permits and builds a list of notices for
  permits that have expired or expire within the lookahead window.
  Expired permits fail RULE-005 at submission time; the watcher exists
  so managers hear about it before a timesheet bounces.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only the newest valid permit per employee is considered (a revoked
    or superseded permit is not actionable)
  - Notices are cached under a mutex for the HTTP handler to read

CONFIGURATION:
  - CheckInterval: How often to scan (default: 1 hour)
  - Lookahead: How far ahead to warn (default: 30 days)

USAGE:
  watcher := NewPermitExpiryWatcher(store)
  watcher.Start()
  // ... later
  watcher.Stop()

SEE ALSO:
  - handlers.go: ListExpiringPermits endpoint
  - compliance/rules.go: RULE-005 (work permit not expired)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/orchard/compliance-engine/calendar"
	"github.com/orchard/compliance-engine/compliance"
)

// PermitExpiryWatcher scans for work permits nearing expiry.
type PermitExpiryWatcher struct {
	Store         compliance.Store
	CheckInterval time.Duration
	Lookahead     int // days
	Now           func() calendar.Date

	mu      sync.Mutex
	notices []ExpiringPermitDTO
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewPermitExpiryWatcher creates a watcher with default settings.
func NewPermitExpiryWatcher(store compliance.Store) *PermitExpiryWatcher {
	return &PermitExpiryWatcher{
		Store:         store,
		CheckInterval: time.Hour,
		Lookahead:     30,
		Now:           calendar.Today,
		stop:          make(chan struct{}),
	}
}

// Start begins the background scan loop. The first scan runs
// immediately so the endpoint has data before the first tick.
func (pw *PermitExpiryWatcher) Start() {
	pw.ticker = time.NewTicker(pw.CheckInterval)
	pw.wg.Add(1)

	go pw.run()

	log.Printf("[PermitWatcher] Started with check interval %v, lookahead %d days",
		pw.CheckInterval, pw.Lookahead)
}

// Stop halts the scan loop and waits for it to finish.
func (pw *PermitExpiryWatcher) Stop() {
	close(pw.stop)
	if pw.ticker != nil {
		pw.ticker.Stop()
	}
	pw.wg.Wait()
	log.Println("[PermitWatcher] Stopped")
}

// Notices returns the most recent scan's results.
func (pw *PermitExpiryWatcher) Notices() []ExpiringPermitDTO {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	out := make([]ExpiringPermitDTO, len(pw.notices))
	copy(out, pw.notices)
	return out
}

func (pw *PermitExpiryWatcher) run() {
	defer pw.wg.Done()

	pw.Scan(context.Background())

	for {
		select {
		case <-pw.ticker.C:
			pw.Scan(context.Background())
		case <-pw.stop:
			return
		}
	}
}

// Scan rebuilds the notice list. Exported so tests and the scenario
// loader can force a refresh without waiting for a tick.
func (pw *PermitExpiryWatcher) Scan(ctx context.Context) {
	today := pw.Now()
	horizon := today.AddDays(pw.Lookahead)

	employees, err := pw.Store.ListEmployees(ctx)
	if err != nil {
		log.Printf("[PermitWatcher] Scan failed: %v", err)
		return
	}

	var notices []ExpiringPermitDTO
	for _, emp := range employees {
		docs, err := pw.Store.ListDocuments(ctx, emp.ID)
		if err != nil {
			log.Printf("[PermitWatcher] Failed to list documents for %s: %v", emp.ID, err)
			continue
		}

		permit := compliance.LatestValidDocument(docs, compliance.DocWorkPermit)
		if permit == nil || permit.ExpiresOn == nil {
			continue
		}
		if permit.ExpiresOn.After(horizon) {
			continue
		}

		notices = append(notices, ExpiringPermitDTO{
			DocumentID:   string(permit.ID),
			EmployeeID:   string(emp.ID),
			EmployeeName: emp.Name,
			ExpiresOn:    permit.ExpiresOn.String(),
			Expired:      permit.ExpiresOn.Before(today),
		})
	}

	pw.mu.Lock()
	pw.notices = notices
	pw.mu.Unlock()
}
