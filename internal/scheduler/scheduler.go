// Package scheduler – daily sweep trigger
//
// The scheduler polls the clock once a minute and, when the wall time in
// the business timezone matches the remotely configured hour and minute,
// fires the day's reminder sweeps. Reading the configuration on every tick
// means an operator can move the send time without restarting the service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/sweep"
)

// Reminder categories the daily run dispatches.
const (
	CategoryUpcoming = "Recordatorio de Pago"
	CategoryOverdue  = "Recordatorio de Pago Vencido"
)

// SweepRunner abstracts the dispatch engine.
type SweepRunner interface {
	Run(ctx context.Context, company string, days int, category string, audience sweep.Audience) (*sweep.Report, error)
}

// ReminderSource provides the remotely configured send time and horizons.
type ReminderSource interface {
	GetReminderConfig(ctx context.Context, company string) docstore.ReminderConfig
}

// Scheduler fires the configured sweeps once per day per company.
type Scheduler struct {
	Company string
	Engine  SweepRunner
	Config  ReminderSource

	// Location is the business timezone the send time is expressed in.
	Location *time.Location
	// Interval is the poll cadence. Zero means one minute.
	Interval time.Duration
	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time

	lastRunDay string
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Location)
	}
	return time.Now().In(s.Location)
}

// Run blocks until ctx is done, polling every Interval and firing the
// daily sweeps at the configured time. At most one run happens per day
// even if the process restarts mid-minute.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("company", s.Company).Msg("scheduler: started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("company", s.Company).Msg("scheduler: stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks the clock against the configured send time and fires the
// sweeps when they match. Exported so tests can drive it directly.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	cfg := s.Config.GetReminderConfig(ctx, s.Company)

	// The configured values travel through the document store as loosely
	// typed data, so the match is done on zero-padded strings rather than
	// trusting both sides to be clean integers.
	wantHour := fmt.Sprintf("%02d", cfg.Hour)
	wantMinute := fmt.Sprintf("%02d", cfg.Minute)
	haveHour := fmt.Sprintf("%02d", now.Hour())
	haveMinute := fmt.Sprintf("%02d", now.Minute())
	if haveHour != wantHour || haveMinute != wantMinute {
		return
	}

	day := now.Format("2006-01-02")
	if s.lastRunDay == day {
		return
	}
	s.lastRunDay = day

	s.runDaily(ctx, cfg)
}

// runDaily executes the four reminder sweeps of one day: upcoming-payment
// reminders at both horizons, then overdue reminders at the same horizons.
func (s *Scheduler) runDaily(ctx context.Context, cfg docstore.ReminderConfig) {
	type job struct {
		days     int
		category string
		audience sweep.Audience
	}
	jobs := []job{
		{cfg.Days1, CategoryUpcoming, sweep.AudienceDueSoon},
		{cfg.Days2, CategoryUpcoming, sweep.AudienceDueSoon},
		{cfg.Days1, CategoryOverdue, sweep.AudienceDelinquent},
		{cfg.Days2, CategoryOverdue, sweep.AudienceDelinquent},
	}
	for _, j := range jobs {
		report, err := s.Engine.Run(ctx, s.Company, j.days, j.category, j.audience)
		if err != nil {
			log.Error().Err(err).
				Str("company", s.Company).
				Int("days", j.days).
				Str("category", j.category).
				Msg("scheduler: sweep failed")
			continue
		}
		log.Info().
			Str("company", s.Company).
			Str("category", j.category).
			Str("audience", string(j.audience)).
			Str("target_date", report.TargetDate).
			Int("attempts", report.Attempts).
			Str("status", report.Status).
			Msg("scheduler: sweep finished")
	}
}
