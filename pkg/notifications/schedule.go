package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts five-field cron specs and descriptors such as
// "@daily" or "@every 1m".
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// runScheduled runs job on schedule until ctx is cancelled, then waits for a
// running job to return.
func runScheduled(ctx context.Context, schedule cron.Schedule, log *slog.Logger, job func()) {
	c := cron.New(cron.WithParser(scheduleParser), cron.WithLocation(time.UTC))
	c.Schedule(schedule, cron.FuncJob(job))

	c.Start()
	log.LogAttrs(ctx, slog.LevelInfo, "scheduler started",
		slog.Time("next_run", schedule.Next(time.Now())),
	)

	<-ctx.Done()
	<-c.Stop().Done()
}
