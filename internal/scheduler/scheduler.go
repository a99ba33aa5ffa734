package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	wsync "github.com/example/wordsync/internal/sync"
)

// Константы для настроек напоминаний по умолчанию
const (
	DefaultReminderStartHour = 8  // Время начала напоминаний (8:00)
	DefaultReminderEndHour   = 22 // Время окончания напоминаний (22:00)
	DefaultSyncInterval      = 5 * time.Minute
)

// Syncer runs a full sync; implemented by the sync orchestrator
type Syncer interface {
	FullSync(ctx context.Context, trig wsync.Trigger) (wsync.Result, error)
}

// Reminder interface for telling the user about due reviews
type Reminder interface {
	RemindDue(count int) error
}

// DueCounter returns the number of reviews due now
type DueCounter func(ctx context.Context) (int, error)

// Config of the background jobs
type Config struct {
	SyncInterval      time.Duration
	ReminderStartHour int
	ReminderEndHour   int
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		SyncInterval:      DefaultSyncInterval,
		ReminderStartHour: DefaultReminderStartHour,
		ReminderEndHour:   DefaultReminderEndHour,
	}
}

// Scheduler manages the background jobs of an active session: a periodic
// full sync and an hourly due-review reminder.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cfg       Config
	syncer    Syncer
	reminder  Reminder
	due       DueCounter
	log       *zap.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(cfg Config, syncer Syncer, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}

	s := gocron.NewScheduler(time.UTC)
	// a job never overlaps with its own previous run
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		cfg:       cfg,
		syncer:    syncer,
		log:       log.Named("scheduler"),
		now:       time.Now,
	}
}

// WithReminder enables the hourly due-review reminder
func (s *Scheduler) WithReminder(r Reminder, due DueCounter) *Scheduler {
	s.reminder = r
	s.due = due
	return s
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	// the first sync of a session is the login download, so wait a full interval
	if _, err := s.scheduler.Every(s.cfg.SyncInterval).WaitForSchedule().Do(s.runSync); err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}

	if s.reminder != nil && s.due != nil {
		if _, err := s.scheduler.Every(1).Hour().Do(s.checkAndRemind); err != nil {
			return fmt.Errorf("failed to schedule reminder job: %w", err)
		}
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.Info("background jobs started", zap.Duration("sync_interval", s.cfg.SyncInterval))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// runSync is skipped by the orchestrator when a session is already running
func (s *Scheduler) runSync() {
	res, _ := s.syncer.FullSync(context.Background(), wsync.TriggerInterval)
	if res.Skipped {
		s.log.Debug("interval sync skipped, another session is running")
	}
}

// checkAndRemind reminds about due reviews within reminder hours
func (s *Scheduler) checkAndRemind() {
	currentHour := s.now().Hour()

	// Проверяем, находится ли текущий час в диапазоне времени для отправки напоминаний
	if currentHour < s.cfg.ReminderStartHour || currentHour > s.cfg.ReminderEndHour {
		s.log.Debug("outside reminder hours, skipping",
			zap.Int("hour", currentHour),
			zap.Int("start", s.cfg.ReminderStartHour),
			zap.Int("end", s.cfg.ReminderEndHour))
		return
	}

	if err := s.RunManualCheck(context.Background()); err != nil {
		s.log.Warn("due reminder failed", zap.Error(err))
	}
}

// RunManualCheck counts due reviews and reminds if there are any
func (s *Scheduler) RunManualCheck(ctx context.Context) error {
	if s.reminder == nil || s.due == nil {
		return nil
	}

	count, err := s.due(ctx)
	if err != nil {
		return fmt.Errorf("failed to count due reviews: %w", err)
	}
	if count == 0 {
		return nil
	}
	return s.reminder.RemindDue(count)
}
