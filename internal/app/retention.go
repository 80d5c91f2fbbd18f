package app

import (
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// startRetention schedules the emission prune job. It returns nil when
// retention is disabled or the schedule is invalid.
func (a *App) startRetention() *cron.Cron {
	schedule := strings.TrimSpace(a.config.Store.RetentionSchedule)
	days := a.config.Store.RetentionDays
	if schedule == "" || days <= 0 {
		log.Println("Emission retention disabled")
		return nil
	}

	c := cron.New(cron.WithLogger(cron.PrintfLogger(log.Default())))
	if _, err := c.AddFunc(schedule, func() { a.pruneEmissions(time.Now()) }); err != nil {
		log.Printf("Invalid retention_schedule '%s': %v, retention disabled", schedule, err)
		return nil
	}
	c.Start()

	log.Printf("Emission retention scheduled (cron: %s, keep %d days)", schedule, days)
	return c
}

// pruneEmissions deletes emissions older than the retention period.
func (a *App) pruneEmissions(now time.Time) int64 {
	cutoff := now.AddDate(0, 0, -a.config.Store.RetentionDays)
	n, err := a.store.Emissions().PruneBefore(cutoff)
	if err != nil {
		log.Printf("Emission prune failed: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("Pruned %d emissions older than %s", n, cutoff.Format("2006-01-02"))
	}
	return n
}
