package health

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StartScheduler runs job at every activation of sched until ctx is done.
// Runs never overlap: the next activation is computed after a run finishes.
func StartScheduler(ctx context.Context, name string, sched cron.Schedule, loc *time.Location, job func(context.Context)) {
	if loc == nil {
		loc = time.Local
	}
	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next %s at %s (in %s)", name, next.Format("Mon Jan 2 15:04:05"), wait.Round(time.Second))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Printf("%s scheduler stopped", name)
				return
			case <-timer.C:
			}
			job(ctx)
		}
	}()
}
