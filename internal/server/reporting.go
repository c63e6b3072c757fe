package server

import (
	"context"
	"log"
	"time"

	"github.com/attyx/assistant/internal/feed"
	"github.com/attyx/assistant/internal/models"
	"github.com/attyx/assistant/internal/store"
	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// reportingRefresher periodically recomputes reporting metrics from the
// store and pushes an updateView directive to every session with a live
// subscriber, so open reporting panels stay current without a user query.
type reportingRefresher struct {
	store  *store.Store
	broker *feed.Broker
	expr   string
}

func newReportingRefresher(st *store.Store, broker *feed.Broker, expr string) *reportingRefresher {
	return &reportingRefresher{store: st, broker: broker, expr: expr}
}

// run blocks until ctx is cancelled, firing on the cron schedule. It
// returns immediately if the expression never fires.
func (r *reportingRefresher) run(ctx context.Context) {
	d := nextCronDuration(r.expr)
	if d <= 0 {
		log.Printf("server: reporting refresher disabled: bad cron %q", r.expr)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r.fire()
			if d := nextCronDuration(r.expr); d > 0 {
				timer.Reset(d)
			} else {
				return
			}
		}
	}
}

// fire appends one reporting updateView row per active session. The store
// fans the insert out to the session's feed like any other row.
func (r *reportingRefresher) fire() {
	metrics, err := r.metrics()
	if err != nil {
		log.Printf("server: reporting refresh: %v", err)
		return
	}
	for _, sessionID := range r.broker.ActiveSessions() {
		if _, err := r.store.Append(sessionID, feed.Message{
			Type:    feed.TypeSystem,
			Content: "reporting metrics refreshed",
			Metadata: &feed.Metadata{
				Action: feed.ActionUpdateView,
				View:   "reporting",
				Data:   metrics,
			},
		}); err != nil {
			log.Printf("server: reporting push to %s: %v", sessionID, err)
		}
	}
}

// metrics computes the reporting snapshot from stored rows.
func (r *reportingRefresher) metrics() (map[string]any, error) {
	sessions, err := r.store.Sessions()
	if err != nil {
		return nil, err
	}
	since := time.Now().UTC().Add(-24 * time.Hour)
	var recent int64
	if err := r.store.DB().Model(&models.MessageRow{}).
		Where("created_at >= ?", since).Count(&recent).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"period":            "daily",
		"total_sessions":    len(sessions),
		"messages_last_24h": recent,
		"generated_at":      time.Now().UTC().Format(time.RFC3339),
	}, nil
}
