package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/robfig/cron/v3"
)

// DefaultRefreshSchedule reloads every five minutes.
const DefaultRefreshSchedule = "0 */5 * * * *"

// RefreshScheduler periodically runs a full Reload so state converges even
// after a FeedLost, when the live feed no longer repairs drift.
type RefreshScheduler struct {
	scheduler *cron.Cron
	logger    *log.Logger
}

// NewRefreshScheduler wires a cron job for the given six-field schedule
// (seconds granularity). An empty schedule uses DefaultRefreshSchedule.
func NewRefreshScheduler(session *ChatSession, schedule string) (*RefreshScheduler, error) {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}

	logger := log.New(os.Stdout, "[refresh] ", log.LstdFlags)
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc(schedule, func() {
		if err := session.Reload(); err != nil {
			logger.Printf("scheduled reload failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	return &RefreshScheduler{scheduler: c, logger: logger}, nil
}

// Start begins the schedule.
func (r *RefreshScheduler) Start() {
	r.scheduler.Start()
}

// Stop halts the schedule; a reload already running is allowed to finish.
func (r *RefreshScheduler) Stop() {
	r.scheduler.Stop()
}
