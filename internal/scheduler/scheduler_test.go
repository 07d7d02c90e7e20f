package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/sweep"
)

type recordedRun struct {
	days     int
	category string
	audience sweep.Audience
}

type fakeRunner struct {
	runs []recordedRun
}

func (f *fakeRunner) Run(_ context.Context, _ string, days int, category string, audience sweep.Audience) (*sweep.Report, error) {
	f.runs = append(f.runs, recordedRun{days: days, category: category, audience: audience})
	return &sweep.Report{Status: "proceso_finalizado"}, nil
}

type fakeReminderSource struct {
	cfg docstore.ReminderConfig
}

func (f *fakeReminderSource) GetReminderConfig(context.Context, string) docstore.ReminderConfig {
	return f.cfg
}

func newTestScheduler(runner *fakeRunner, cfg docstore.ReminderConfig, clock *time.Time) *Scheduler {
	return &Scheduler{
		Company:  "casaluz",
		Engine:   runner,
		Config:   &fakeReminderSource{cfg: cfg},
		Location: time.UTC,
		Now:      func() time.Time { return *clock },
	}
}

func TestTick_FiresAtConfiguredTimeOncePerDay(t *testing.T) {
	runner := &fakeRunner{}
	cfg := docstore.ReminderConfig{Days1: 3, Days2: 1, Hour: 10, Minute: 0}
	clock := time.Date(2026, 9, 2, 9, 59, 0, 0, time.UTC)
	s := newTestScheduler(runner, cfg, &clock)
	ctx := context.Background()

	s.Tick(ctx)
	if len(runner.runs) != 0 {
		t.Fatal("must not fire before the configured time")
	}

	clock = time.Date(2026, 9, 2, 10, 0, 10, 0, time.UTC)
	s.Tick(ctx)
	if len(runner.runs) != 4 {
		t.Fatalf("expected 4 sweeps, got %d", len(runner.runs))
	}

	want := []recordedRun{
		{3, CategoryUpcoming, sweep.AudienceDueSoon},
		{1, CategoryUpcoming, sweep.AudienceDueSoon},
		{3, CategoryOverdue, sweep.AudienceDelinquent},
		{1, CategoryOverdue, sweep.AudienceDelinquent},
	}
	for i, w := range want {
		if runner.runs[i] != w {
			t.Fatalf("run[%d] = %+v; want %+v", i, runner.runs[i], w)
		}
	}

	// Another tick inside the same minute must not re-run.
	clock = time.Date(2026, 9, 2, 10, 0, 40, 0, time.UTC)
	s.Tick(ctx)
	if len(runner.runs) != 4 {
		t.Fatalf("same-day re-fire: got %d runs", len(runner.runs))
	}

	// The next day at the same time fires again.
	clock = time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC)
	s.Tick(ctx)
	if len(runner.runs) != 8 {
		t.Fatalf("next-day fire: got %d runs; want 8", len(runner.runs))
	}
}

func TestTick_PicksUpConfigChangesWithoutRestart(t *testing.T) {
	runner := &fakeRunner{}
	src := &fakeReminderSource{cfg: docstore.ReminderConfig{Days1: 3, Days2: 1, Hour: 10, Minute: 0}}
	clock := time.Date(2026, 9, 2, 18, 30, 0, 0, time.UTC)
	s := &Scheduler{
		Company:  "casaluz",
		Engine:   runner,
		Config:   src,
		Location: time.UTC,
		Now:      func() time.Time { return clock },
	}
	ctx := context.Background()

	s.Tick(ctx)
	if len(runner.runs) != 0 {
		t.Fatal("18:30 does not match the 10:00 schedule")
	}

	src.cfg.Hour, src.cfg.Minute = 18, 30
	s.Tick(ctx)
	if len(runner.runs) != 4 {
		t.Fatalf("moved schedule should fire, got %d runs", len(runner.runs))
	}
}

func TestTick_ZeroPaddedComparison(t *testing.T) {
	runner := &fakeRunner{}
	cfg := docstore.ReminderConfig{Days1: 3, Days2: 1, Hour: 7, Minute: 5}
	clock := time.Date(2026, 9, 2, 7, 5, 0, 0, time.UTC)
	s := newTestScheduler(runner, cfg, &clock)

	s.Tick(context.Background())
	if len(runner.runs) != 4 {
		t.Fatalf("single-digit hour and minute should still match, got %d runs", len(runner.runs))
	}
}
