/*
scheduler.go - Automated renewal processing scheduler

PURPOSE:
  Periodically scans pending renewals and processes them in two passes:
  reminders for renewals coming due within the lead window, and lapses
  for renewals still unpaid past the grace period.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Reminders go out once per cycle (reminder_sent_at guards repeats)
  - Lapsing a renewal moves the policy to lapsed as well
  - Notification failures are logged and retried on the next check;
    they never block the lapse pass

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - LeadDays: How far ahead of the due date reminders start (default: 30)
  - GraceDays: How long past the due date before lapsing (default: 15)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRenewalScheduler(store, lifecycle, notifier)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRenewalRun endpoint (manual trigger)
  - policy/lifecycle.go: LapseRenewal
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/covera/brokerage-engine/notify"
	"github.com/covera/brokerage-engine/policy"
	"github.com/covera/brokerage-engine/store/sqlite"
)

// RenewalScheduler drives reminders and lapses for pending renewals.
type RenewalScheduler struct {
	Store         *sqlite.Store
	Lifecycle     *policy.Lifecycle
	Notifier      notify.Notifier
	CheckInterval time.Duration
	LeadDays      int
	GraceDays     int
	Enabled       bool

	ticker  *time.Ticker
	stop    chan bool
	stopped bool
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// RunReport summarizes a single scheduler pass.
type RunReport struct {
	Reminded int
	Lapsed   int
	Failed   int
}

// NewRenewalScheduler creates a new scheduler with default windows.
func NewRenewalScheduler(store *sqlite.Store, lifecycle *policy.Lifecycle, notifier notify.Notifier) *RenewalScheduler {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &RenewalScheduler{
		Store:         store,
		Lifecycle:     lifecycle,
		Notifier:      notifier,
		CheckInterval: 1 * time.Hour,
		LeadDays:      30,
		GraceDays:     15,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RenewalScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v (lead %dd, grace %dd)",
		rs.CheckInterval, rs.LeadDays, rs.GraceDays)
}

// Stop stops the scheduler. Safe to call more than once.
func (rs *RenewalScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil || rs.stopped {
		return
	}
	rs.stopped = true
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (rs *RenewalScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RenewalScheduler) checkAndProcess() RunReport {
	ctx := context.Background()
	now := time.Now().UTC()
	report := RunReport{}

	horizon := now.AddDate(0, 0, rs.LeadDays)
	renewals, err := rs.Store.ListDueRenewals(ctx, horizon)
	if err != nil {
		log.Printf("[Scheduler] Error listing due renewals: %v", err)
		report.Failed++
		return report
	}

	for _, renewal := range renewals {
		lapseDeadline := renewal.DueDate.AddDate(0, 0, rs.GraceDays)
		if now.After(lapseDeadline) {
			if err := rs.lapse(ctx, renewal); err != nil {
				log.Printf("[Scheduler] Error lapsing renewal %s: %v", renewal.ID, err)
				report.Failed++
			} else {
				report.Lapsed++
			}
			continue
		}

		if renewal.ReminderSentAt != nil {
			continue
		}
		switch rs.remind(ctx, renewal, now) {
		case notify.StatusDelivered:
			report.Reminded++
		case notify.StatusFailed:
			report.Failed++
		}
	}

	if report.Reminded > 0 || report.Lapsed > 0 || report.Failed > 0 {
		log.Printf("[Scheduler] Completed: %d reminded, %d lapsed, %d failed",
			report.Reminded, report.Lapsed, report.Failed)
	}
	return report
}

// remind sends the renewal-due notification and stamps the cycle so the
// next pass skips it. A failed send is not stamped and retries later.
func (rs *RenewalScheduler) remind(ctx context.Context, renewal policy.Renewal, now time.Time) notify.Status {
	pol, err := rs.Store.GetPolicy(ctx, renewal.PolicyID)
	if err != nil {
		log.Printf("[Scheduler] Error loading policy %s: %v", renewal.PolicyID, err)
		return notify.StatusFailed
	}
	client, err := rs.Store.GetClient(ctx, pol.ClientID)
	if err != nil {
		log.Printf("[Scheduler] Error loading client %s: %v", pol.ClientID, err)
		return notify.StatusFailed
	}

	daysLeft := int(renewal.DueDate.Sub(now).Hours() / 24)
	if daysLeft < 0 {
		daysLeft = 0
	}

	result := rs.Notifier.RenewalDue(ctx, *pol, *client, daysLeft)
	switch result.Status {
	case notify.StatusFailed:
		log.Printf("[Scheduler] Reminder for renewal %s failed: %v", renewal.ID, result.Err)
		return notify.StatusFailed
	case notify.StatusSkipped:
		// No channel configured; stamp anyway so the pass stays quiet.
	default:
		log.Printf("[Scheduler] Reminded %s about policy %s (due %s)",
			client.Name, pol.Number, renewal.DueDate.Format("2006-01-02"))
	}

	if err := rs.Store.MarkRenewalReminded(ctx, renewal.ID, now); err != nil {
		log.Printf("[Scheduler] Error stamping reminder for renewal %s: %v", renewal.ID, err)
		return notify.StatusFailed
	}
	return result.Status
}

func (rs *RenewalScheduler) lapse(ctx context.Context, renewal policy.Renewal) error {
	if err := rs.Lifecycle.LapseRenewal(ctx, renewal.ID); err != nil {
		return err
	}
	log.Printf("[Scheduler] Lapsed renewal %s (policy %s, due %s)",
		renewal.ID, renewal.PolicyID, renewal.DueDate.Format("2006-01-02"))
	return nil
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *RenewalScheduler) RunNow() RunReport {
	return rs.checkAndProcess()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (rs *RenewalScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
