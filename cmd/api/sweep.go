package main

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Sweeper runs the daily birthday sweep: once a day at 09:00 local it fetches
// every birthday record with a phone number, keeps the ones whose month/day
// match today, and sends each a congratulatory message. It owns its scheduler
// so callers get an explicit Start/Stop lifecycle, and tests call RunSweep
// directly without real time passing.
type Sweeper struct {
	List  func(ctx context.Context) ([]BirthdayRecord, error)
	Send  func(ctx context.Context, to, body string) (string, error)
	Clock clockwork.Clock
	Loc   *time.Location

	scheduler gocron.Scheduler
}

func (s *Sweeper) Start() error {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(s.Loc),
		gocron.WithClock(s.Clock),
	)
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(9, 0, 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			s.RunSweep(ctx)
		}),
		gocron.WithName("birthday-sweep"),
		// A sweep longer than a day is unrealistic, but never let two overlap.
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	s.scheduler = scheduler
	scheduler.Start()
	log.Printf("birthday sweep scheduled daily at 09:00 %s", s.Loc)
	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

// RunSweep executes one sweep. Per-record send failures are logged and
// skipped; one bad number never aborts the rest. Returns counts for logging
// and tests.
func (s *Sweeper) RunSweep(ctx context.Context) (sent, failed int) {
	now := s.Clock.Now()
	if s.Loc != nil {
		now = now.In(s.Loc)
	}
	records, err := s.List(ctx)
	if err != nil {
		log.Printf("birthday sweep: list records: %v", err)
		return 0, 0
	}
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, rec := range records {
		// Occurrence-based match so a Feb 29 birth fires on Mar 1 in
		// non-leap years, same as the dashboard's today bucket.
		if !nextOccurrence(now, rec.BirthDate).Equal(todayStart) {
			continue
		}
		body := wishMessage(rec.DisplayName(), wishAge(now, rec.BirthDate))
		if _, err := s.Send(ctx, rec.Phone, body); err != nil {
			log.Printf("birthday sweep: send to %s (birthday %s) failed: %v", rec.Phone, rec.ID, err)
			failed++
			continue
		}
		sent++
	}
	log.Printf("birthday sweep: checked=%d sent=%d failed=%d", len(records), sent, failed)
	return sent, failed
}
