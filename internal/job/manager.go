package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"evacsim/internal/grid"
	"evacsim/internal/sim"
	"evacsim/internal/telemetry"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("job not found")

// Manager defaults.
const (
	DefaultMaxConcurrentJobs = 4
	DefaultRetention         = time.Hour
	DefaultSweepInterval     = time.Minute
	DefaultProgressEvery     = 10
)

// Options configures a Manager. Zero fields take the defaults.
type Options struct {
	MaxConcurrentJobs int
	Retention         time.Duration
	SweepInterval     time.Duration
	ProgressEvery     int // ticks between progress saves

	// Sink, when set, additionally receives every row of every job.
	Sink sim.FrameWriter
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentJobs <= 0 {
		o.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	return o
}

// Manager accepts simulation requests and runs each on its own goroutine,
// at most MaxConcurrentJobs at a time. The store is the only state shared
// between goroutines.
type Manager struct {
	store Store
	opts  Options
	sem   *semaphore.Weighted
	log   *slog.Logger
	now   func() time.Time
	wg    sync.WaitGroup
}

// NewManager creates a manager on top of an initialised store.
func NewManager(store Store, opts Options, log *slog.Logger) *Manager {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store: store,
		opts:  opts,
		sem:   semaphore.NewWeighted(int64(opts.MaxConcurrentJobs)),
		log:   log,
		now:   time.Now,
	}
}

// Submit validates the request, stores a queued job and starts it in the
// background. Agent and fire placement problems are returned synchronously
// wrapped in grid.ErrInvalidFloorPlan and never produce a job.
func (m *Manager) Submit(ctx context.Context, g *grid.Grid, opts sim.Options) (string, error) {
	id := uuid.New().String()
	pw := &progressWriter{m: m, sink: m.opts.Sink}
	s, err := sim.NewSimulator(g, opts, pw)
	if err != nil {
		return "", err
	}
	s.SetRunID(id)

	j := Job{
		ID:        id,
		Status:    StatusQueued,
		MaxTicks:  opts.MaxTicks,
		CreatedAt: m.now().UTC(),
	}
	pw.job = &j
	if err := m.store.Save(ctx, j); err != nil {
		return "", fmt.Errorf("save job: %w", err)
	}
	m.log.Info("job queued", "job_id", id, "seed", s.Seed())

	m.wg.Add(1)
	go m.execute(context.WithoutCancel(ctx), s, pw)
	return id, nil
}

func (m *Manager) execute(ctx context.Context, s *sim.Simulator, pw *progressWriter) {
	defer m.wg.Done()
	j := pw.job
	log := m.log.With("job_id", j.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panic", "panic", r, "stack", string(debug.Stack()))
			m.finish(ctx, j, nil, fmt.Errorf("%w: %v", sim.ErrSimulationFault, r))
		}
	}()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finish(ctx, j, nil, err)
		return
	}
	defer m.sem.Release(1)

	j.Status = StatusProcessing
	j.StartedAt = m.now().UTC()
	m.save(ctx, *j)
	log.Info("job processing")

	res, err := s.Run(ctx)
	m.finish(ctx, j, res, err)
}

func (m *Manager) finish(ctx context.Context, j *Job, res *sim.Result, err error) {
	j.FinishedAt = m.now().UTC()
	if err != nil {
		j.Status = StatusFailed
		j.Error = err.Error()
		j.Result = nil
		m.log.Error("job failed", "job_id", j.ID, "err", err)
	} else {
		j.Status = StatusComplete
		j.Result = res
		j.Progress = res.Ticks
		m.log.Info("job complete", "job_id", j.ID, "ticks", res.Ticks,
			"escaped", res.Dashboard.Escaped, "burned", res.Dashboard.Burned)
	}
	m.save(ctx, *j)
}

func (m *Manager) save(ctx context.Context, j Job) {
	if err := m.store.Save(ctx, j); err != nil {
		m.log.Error("job save failed", "job_id", j.ID, "status", j.Status, "err", err)
	}
}

// Get returns a snapshot of the job without blocking on its simulation.
func (m *Manager) Get(ctx context.Context, id string) (Job, error) {
	j, ok, err := m.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

// Wait polls until the job is terminal or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (Job, error) {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for {
		j, err := m.Get(ctx, id)
		if err != nil {
			return Job{}, err
		}
		if j.Status.Terminal() {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return j, ctx.Err()
		case <-t.C:
		}
	}
}

// Sweep deletes terminal jobs that finished more than Retention before now
// and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) (int, error) {
	jobs, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-m.opts.Retention)
	n := 0
	for _, j := range jobs {
		if !j.Status.Terminal() || j.FinishedAt.After(cutoff) {
			continue
		}
		if err := m.store.Delete(ctx, j.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Recover fails jobs left queued or processing by a previous process. Only
// persistent stores can hold such jobs.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	jobs, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range jobs {
		if j.Status.Terminal() {
			continue
		}
		j.Status = StatusFailed
		j.Error = "interrupted by server restart"
		j.FinishedAt = m.now().UTC()
		if err := m.store.Save(ctx, j); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Start runs the retention sweeper until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(m.opts.SweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				n, err := m.Sweep(ctx, now)
				if err != nil {
					m.log.Error("job sweep failed", "err", err)
					continue
				}
				if n > 0 {
					m.log.Info("expired jobs removed", "count", n)
				}
			}
		}
	}()
}

// Drain waits for running jobs to finish or ctx to expire.
func (m *Manager) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// progressWriter saves the tick count of a running job every few frames and
// forwards rows to the manager sink.
type progressWriter struct {
	m    *Manager
	job  *Job
	sink sim.FrameWriter
}

func (p *progressWriter) WriteFrame(row telemetry.FrameRow) error {
	p.job.Progress = row.Tick
	if row.Tick%p.m.opts.ProgressEvery == 0 {
		p.m.save(context.Background(), *p.job)
	}
	if p.sink != nil {
		return p.sink.WriteFrame(row)
	}
	return nil
}

func (p *progressWriter) WriteRun(row telemetry.RunRow) error {
	if rw, ok := p.sink.(sim.RunWriter); ok {
		return rw.WriteRun(row)
	}
	return nil
}

func (p *progressWriter) WriteEvent(row telemetry.EventRow) error {
	if ew, ok := p.sink.(sim.EventWriter); ok {
		return ew.WriteEvent(row)
	}
	return nil
}

func (p *progressWriter) WriteSummary(row telemetry.SummaryRow) error {
	if sw, ok := p.sink.(sim.SummaryWriter); ok {
		return sw.WriteSummary(row)
	}
	return nil
}
