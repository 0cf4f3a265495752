// workers/notification_cleanup.go
package workers

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"incident-report-system/services"
)

// StartNotificationCleanup sweeps expired notification records every
// hour. Returns the scheduler so main can shut it down.
func StartNotificationCleanup(notifier *services.NotificationService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			deleted, err := notifier.DeleteExpired()
			if err != nil {
				log.Printf("[Cleanup] failed to delete expired notifications: %v", err)
				return
			}
			if deleted > 0 {
				log.Printf("🧹 [Cleanup] removed %d expired notifications", deleted)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
