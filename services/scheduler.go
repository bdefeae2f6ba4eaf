// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSettlementScheduler retries unsettled games in the background so a
// wallet outage during settlement never loses a win.
func (s *SettlementService) StartSettlementScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: re-drive completed games whose prize credit failed
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.RetryUnsettled()
		}),
	)

	log.Println("✅ Settlement retry scheduler running (every 1m)")
}
