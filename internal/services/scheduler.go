package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/responses"
)

const maintenanceSchedule = "@daily"

// ScheduleStore persists user job schedules.
type ScheduleStore interface {
	ListJobSchedules(ctx context.Context, enabledOnly bool) ([]db.JobSchedule, error)
	GetJobSchedule(ctx context.Context, id int64) (*db.JobSchedule, error)
	CreateJobSchedule(ctx context.Context, jobID, cronExpr string) (int64, error)
	UpdateJobSchedule(ctx context.Context, id int64, cronExpr string, enabled bool) error
	DeleteJobSchedule(ctx context.Context, id int64) error
	RunMaintenance(ctx context.Context, retentionDays int) error
}

// Refresher refreshes the sensor snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (Snapshot, error)
}

// JobRunner triggers an Overseerr job on behalf of the scheduler.
type JobRunner interface {
	RunScheduledJob(ctx context.Context, jobID string) responses.Response
}

var _ ScheduleStore = (*db.Repository)(nil)

// SchedulerOptions configures the built-in cron entries. An empty
// RefreshSchedule disables the periodic refresh.
type SchedulerOptions struct {
	RefreshSchedule string
	RetentionDays   int
}

type SchedulerService struct {
	store     ScheduleStore
	refresher Refresher
	runner    JobRunner
	opts      SchedulerOptions
	cron      *cron.Cron
	jobs      map[int64]cron.EntryID
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewSchedulerService(store ScheduleStore, refresher Refresher, runner JobRunner, opts SchedulerOptions) *SchedulerService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SchedulerService{
		store:     store,
		refresher: refresher,
		runner:    runner,
		opts:      opts,
		cron:      cron.New(),
		jobs:      make(map[int64]cron.EntryID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the built-in entries, loads stored schedules and starts
// the cron loop.
func (s *SchedulerService) Start() error {
	logger.Infof("Starting Scheduler Service...")
	if s.opts.RefreshSchedule != "" && s.refresher != nil {
		if _, err := s.cron.AddFunc(s.opts.RefreshSchedule, s.refresh); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", s.opts.RefreshSchedule, err)
		}
	}
	if _, err := s.cron.AddFunc(maintenanceSchedule, s.maintenance); err != nil {
		return err
	}
	if err := s.LoadSchedules(); err != nil {
		logger.Errorf("Failed to load schedules: %v", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running entries.
func (s *SchedulerService) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *SchedulerService) refresh() {
	if _, err := s.refresher.Refresh(s.ctx); err != nil {
		logger.Warnf("Scheduled refresh failed: %v", err)
	}
}

func (s *SchedulerService) maintenance() {
	if err := s.store.RunMaintenance(s.ctx, s.opts.RetentionDays); err != nil {
		logger.Errorf("Database maintenance failed: %v", err)
	}
}

// LoadSchedules replaces the user entries with the enabled stored schedules.
func (s *SchedulerService) LoadSchedules() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entryID := range s.jobs {
		s.cron.Remove(entryID)
	}
	s.jobs = make(map[int64]cron.EntryID)

	schedules, err := s.store.ListJobSchedules(s.ctx, true)
	if err != nil {
		return err
	}

	count := 0
	for _, sch := range schedules {
		if err := s.addJob(sch.ID, sch.JobID, sch.CronExpression); err != nil {
			logger.Errorf("Failed to add job for schedule %d: %v", sch.ID, err)
			continue
		}
		count++
	}
	logger.Infof("Loaded %d active job schedules", count)
	return nil
}

func (s *SchedulerService) addJob(scheduleID int64, jobID, cronExpr string) error {
	if s.runner == nil {
		return errors.New("no job runner configured")
	}
	entryID, err := s.cron.AddFunc(cronExpr, func() {
		logger.Infof("Executing scheduled Overseerr job %s (Schedule ID: %d)", jobID, scheduleID)
		r := s.runner.RunScheduledJob(s.ctx, jobID)
		if responses.ActionOf(r) != "job_started" {
			logger.Errorf("Scheduled job %s failed: %s", jobID, responses.MessageOf(r))
		}
	})
	if err != nil {
		return err
	}
	s.jobs[scheduleID] = entryID
	return nil
}

// Active reports whether a schedule currently has a cron entry.
func (s *SchedulerService) Active(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// ListSchedules returns every stored schedule.
func (s *SchedulerService) ListSchedules(ctx context.Context) ([]db.JobSchedule, error) {
	return s.store.ListJobSchedules(ctx, false)
}

func (s *SchedulerService) AddSchedule(ctx context.Context, jobID, cronExpr string) (int64, error) {
	if jobID == "" {
		return 0, errors.New("job_id is required")
	}
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return 0, fmt.Errorf("invalid cron expression: %v", err)
	}

	id, err := s.store.CreateJobSchedule(ctx, jobID, cronExpr)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addJob(id, jobID, cronExpr); err != nil {
		return id, fmt.Errorf("saved to DB but failed to schedule: %v", err)
	}
	return id, nil
}

func (s *SchedulerService) DeleteSchedule(ctx context.Context, id int64) error {
	if err := s.store.DeleteJobSchedule(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[id]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, id)
	}
	return nil
}

// UpdateSchedule changes the expression (kept when empty) and the enabled
// flag, then reschedules.
func (s *SchedulerService) UpdateSchedule(ctx context.Context, id int64, cronExpr string, enabled bool) error {
	if cronExpr != "" {
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return fmt.Errorf("invalid cron expression: %v", err)
		}
	}

	current, err := s.store.GetJobSchedule(ctx, id)
	if err != nil {
		return err
	}
	if cronExpr == "" {
		cronExpr = current.CronExpression
	}
	if err := s.store.UpdateJobSchedule(ctx, id, cronExpr, enabled); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[id]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, id)
	}
	if enabled {
		if err := s.addJob(id, current.JobID, cronExpr); err != nil {
			logger.Errorf("Failed to reschedule job %d: %v", id, err)
		}
	}
	return nil
}
