package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"marriage-compliance/internal/common/config"
	"marriage-compliance/internal/common/logger"
	"marriage-compliance/internal/common/metrics"
	"marriage-compliance/internal/common/observability"
)

// Job is one periodic unit of work. Run must be idempotent; the scheduler
// guarantees at-least-once execution, never exactly-once.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Locker serializes job cycles across instances. *database.RedisClient
// satisfies it.
type Locker interface {
	AcquireLock(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, holder string) error
}

// Runner drives registered jobs on their configured intervals. Each cycle
// takes a per-job Redis lock so horizontally scaled instances do not double
// run; losing the lock just skips the cycle.
type Runner struct {
	cfg      *config.Config
	locker   Locker
	logger   logger.Logger
	obs      *observability.Observability
	holder   string
	jobs     []Job
	wg       sync.WaitGroup
	runFirst bool
}

func NewRunner(cfg *config.Config, locker Locker, log logger.Logger, obs *observability.Observability) *Runner {
	return &Runner{
		cfg:      cfg,
		locker:   locker,
		logger:   log.WithFields(map[string]interface{}{"component": "runner"}),
		obs:      obs,
		holder:   uuid.New().String(),
		runFirst: true,
	}
}

func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start launches one goroutine per enabled job and blocks until ctx is
// cancelled and every in-flight cycle has finished.
func (r *Runner) Start(ctx context.Context) {
	for _, job := range r.jobs {
		if !config.IsJobEnabled(r.cfg, job.Name()) {
			r.logger.Info("job disabled", map[string]interface{}{"job": job.Name()})
			continue
		}
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	jobCfg := config.GetJobConfig(r.cfg, job.Name())
	interval := config.GetDuration(jobCfg.Interval)
	log := r.logger.WithFields(map[string]interface{}{"job": job.Name()})
	log.Info("job scheduled", map[string]interface{}{"interval": interval.String()})

	if r.runFirst {
		r.runCycle(ctx, job, jobCfg, log)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("job stopped", nil)
			return
		case <-ticker.C:
			r.runCycle(ctx, job, jobCfg, log)
		}
	}
}

func (r *Runner) runCycle(ctx context.Context, job Job, jobCfg config.JobConfig, log logger.Logger) {
	lockKey := "jobs:lock:" + job.Name()
	acquired, err := r.locker.AcquireLock(ctx, lockKey, r.holder, config.GetDuration(jobCfg.LockTTL))
	if err != nil {
		log.WithError(err).Error("lock acquisition failed", nil)
		return
	}
	if !acquired {
		log.Debug("another instance holds the lock, skipping cycle", nil)
		return
	}
	defer func() {
		if err := r.locker.ReleaseLock(ctx, lockKey, r.holder); err != nil {
			log.WithError(err).Warn("lock release failed", nil)
		}
	}()

	start := time.Now()
	err = job.Run(ctx)
	elapsed := time.Since(start)

	metrics.JobCycleDuration.WithLabelValues(job.Name()).Observe(elapsed.Seconds())
	if r.obs != nil {
		r.obs.RecordCycleDuration(ctx, job.Name(), elapsed)
	}

	if err != nil {
		metrics.JobCyclesFailed.WithLabelValues(job.Name()).Inc()
		if r.obs != nil {
			r.obs.RecordCycle(ctx, job.Name(), "failed")
		}
		log.WithError(err).Error("job cycle failed", map[string]interface{}{
			"duration": elapsed.String(),
		})
		return
	}

	metrics.JobCyclesCompleted.WithLabelValues(job.Name()).Inc()
	if r.obs != nil {
		r.obs.RecordCycle(ctx, job.Name(), "completed")
	}
	log.Info("job cycle completed", map[string]interface{}{
		"duration": elapsed.String(),
	})
}
