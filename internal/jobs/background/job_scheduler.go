package background

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// JobScheduler runs the periodic background jobs
type JobScheduler struct {
	scheduler gocron.Scheduler
	alerts    *jobs.InventoryAlertService
	interval  time.Duration
	jobs      map[string]gocron.Job
}

// NewJobScheduler creates a scheduler that runs the low-stock check every interval
func NewJobScheduler(alerts *jobs.InventoryAlertService, interval time.Duration) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		alerts:    alerts,
		interval:  interval,
		jobs:      make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) registerJobs() error {
	alertsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(js.interval),
		gocron.NewTask(js.runLowStockCheck),
		gocron.WithName("low-stock-alerts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create low stock job: %w", err)
	}
	js.jobs["low-stock-alerts"] = alertsJob

	log.WithField("jobs", len(js.jobs)).Info("Registered background jobs")
	return nil
}

func (js *JobScheduler) runLowStockCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), js.interval)
	defer cancel()
	_ = js.alerts.ScheduledLowStockCheck(ctx)
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	log.Info("Starting background job scheduler")
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (js *JobScheduler) Stop() error {
	log.Info("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// Jobs returns the registered job names
func (js *JobScheduler) Jobs() []string {
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}
