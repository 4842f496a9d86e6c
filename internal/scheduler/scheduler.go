// Package scheduler drives the daily announcement jobs. Cron expressions are
// evaluated in the configured timezone so "midnight" means the community's
// midnight, not the host's.
package scheduler

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"guildsync/internal/config"
	"guildsync/lib/sl"
	"log/slog"
	"time"
)

type Announcer interface {
	SendBirthdays(now time.Time)
	SendDailyEvent(ctx context.Context, now time.Time)
}

type Scheduler struct {
	log       *slog.Logger
	cron      *cron.Cron
	announcer Announcer
	location  *time.Location
	conf      config.AnnounceConfig
}

func New(logger *slog.Logger, conf config.AnnounceConfig, announcer Announcer) (*Scheduler, error) {
	location, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", conf.Timezone, err)
	}
	return &Scheduler{
		log:       logger.With(sl.Module("scheduler")),
		cron:      cron.New(cron.WithLocation(location)),
		announcer: announcer,
		location:  location,
		conf:      conf,
	}, nil
}

// Start registers both jobs and begins ticking.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.conf.BirthdayCron, s.runBirthdays)
	if err != nil {
		return fmt.Errorf("register birthday job: %w", err)
	}
	_, err = s.cron.AddFunc(s.conf.EventsCron, s.runDailyEvent)
	if err != nil {
		return fmt.Errorf("register daily event job: %w", err)
	}
	s.cron.Start()
	s.log.Info("scheduler started",
		slog.String("timezone", s.conf.Timezone),
		slog.String("birthday_cron", s.conf.BirthdayCron),
		slog.String("events_cron", s.conf.EventsCron))
	return nil
}

// Stop waits for a running job to finish before returning.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runBirthdays() {
	log := s.log.With(slog.String("run_id", uuid.NewString()))
	log.Info("birthday job started")
	s.announcer.SendBirthdays(time.Now().In(s.location))
	log.Info("birthday job finished")
}

func (s *Scheduler) runDailyEvent() {
	log := s.log.With(slog.String("run_id", uuid.NewString()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Info("daily event job started")
	s.announcer.SendDailyEvent(ctx, time.Now().In(s.location))
	log.Info("daily event job finished")
}
