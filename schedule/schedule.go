package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/utils"

	"github.com/cockroachdb/errors"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Emitter receives the events of the schedules
type Emitter func(ctx context.Context, ev *types.Event) error

// Scheduler fires the configured schedules
type Scheduler struct {
	sync.Mutex
	scheduler gocron.Scheduler
	emit      Emitter
	jobs      map[string]uuid.UUID
}

// New creates a stopped scheduler
func New(emit Emitter, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed creating scheduler")
	}
	return &Scheduler{scheduler: s, emit: emit, jobs: map[string]uuid.UUID{}}, nil
}

// Crontab renders the cron expression of config, a time zone becomes a CRON_TZ prefix
func Crontab(config types.ScheduleConfig) (string, error) {
	if config.TimeZone == "" {
		return config.Cron, nil
	}
	if _, err := time.LoadLocation(config.TimeZone); err != nil {
		return "", errors.Wrapf(types.ErrInvalidCron, "time zone %s: %v", config.TimeZone, err)
	}
	return fmt.Sprintf("CRON_TZ=%s %s", config.TimeZone, config.Cron), nil
}

// Add a schedule, a schedule with the same id is replaced
func (s *Scheduler) Add(ctx context.Context, config types.ScheduleConfig) error {
	logger := log.WithFunc("schedule.Add").WithField("id", config.ID)
	crontab, err := Crontab(config)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()
	job, err := s.scheduler.NewJob(
		gocron.CronJob(crontab, config.WithSeconds),
		gocron.NewTask(func() {
			if err := s.fire(utils.WithTracingID(context.TODO()), config); err != nil {
				logger.Error(context.TODO(), err, "emit failed")
			}
		}),
		gocron.WithName(config.ID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.Wrapf(types.ErrInvalidCron, "%s: %v", config.Cron, err)
	}
	s.replace(ctx, config.ID, job.ID())
	logger.Infof(ctx, "scheduled %s", crontab)
	return nil
}

// Every runs f each interval under id, a job with the same id is replaced
func (s *Scheduler) Every(ctx context.Context, id string, interval time.Duration, f func(context.Context) error) error {
	logger := log.WithFunc("schedule.Every").WithField("id", id)
	if interval <= 0 {
		return errors.Wrapf(types.ErrInvalidCron, "interval %s", interval)
	}
	s.Lock()
	defer s.Unlock()
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := f(utils.WithTracingID(context.TODO())); err != nil {
				logger.Error(context.TODO(), err, "job failed")
			}
		}),
		gocron.WithName(id),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.Wrapf(err, "every %s", interval)
	}
	s.replace(ctx, id, job.ID())
	logger.Infof(ctx, "scheduled every %s", interval)
	return nil
}

func (s *Scheduler) replace(ctx context.Context, id string, jobID uuid.UUID) {
	if old, ok := s.jobs[id]; ok {
		if err := s.scheduler.RemoveJob(old); err != nil {
			log.WithFunc("schedule.replace").Warnf(ctx, "remove replaced job %s failed %+v", id, err)
		}
	}
	s.jobs[id] = jobID
}

// Remove a schedule
func (s *Scheduler) Remove(id string) error {
	s.Lock()
	defer s.Unlock()
	jobID, ok := s.jobs[id]
	if !ok {
		return types.NewDetailedErr(types.ErrKeyNotExists, id)
	}
	delete(s.jobs, id)
	return s.scheduler.RemoveJob(jobID)
}

// NextRun of a schedule
func (s *Scheduler) NextRun(id string) (time.Time, error) {
	s.Lock()
	jobID, ok := s.jobs[id]
	s.Unlock()
	if !ok {
		return time.Time{}, types.NewDetailedErr(types.ErrKeyNotExists, id)
	}
	for _, job := range s.scheduler.Jobs() {
		if job.ID() == jobID {
			return job.NextRun()
		}
	}
	return time.Time{}, types.NewDetailedErr(types.ErrKeyNotExists, id)
}

// Start .
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Shutdown waits for running jobs
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) fire(ctx context.Context, config types.ScheduleConfig) error {
	if config.EventType == "" {
		log.WithFunc("schedule.fire").WithField("id", config.ID).Debug(ctx, "no event type, skip")
		return nil
	}
	now := time.Now()
	payload := map[string]any{}
	for k, v := range config.Payload {
		payload[k] = v
	}
	payload["scheduleId"] = config.ID
	payload["scheduledAt"] = now.Format(time.RFC3339)
	return s.emit(ctx, &types.Event{
		ID:      fmt.Sprintf("%s-%d", config.ID, now.UnixNano()),
		Type:    config.EventType,
		Payload: payload,
	})
}
