// Package scheduler drives periodic tasks in independent loops.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is an operation run repeatedly: run, wait Interval, run again
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Loop states
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateFailed  = "failed"
	StateStopped = "stopped"
)

// TaskStatus is a snapshot of one loop
type TaskStatus struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Runner runs each task in its own goroutine. With StopOnError a task whose
// run returns an error (or panics) stops permanently; otherwise the error is
// logged and the loop carries on after the interval.
type Runner struct {
	log         zerolog.Logger
	stopOnError bool

	mu      sync.Mutex
	status  map[string]*TaskStatus
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a Runner
func NewRunner(log zerolog.Logger, stopOnError bool) *Runner {
	return &Runner{
		log:         log.With().Str("component", "scheduler").Logger(),
		stopOnError: stopOnError,
		status:      make(map[string]*TaskStatus),
	}
}

// Start launches one loop per task. Calling Start on a running Runner is a no-op.
func (r *Runner) Start(ctx context.Context, tasks ...Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true

	ctx, r.cancel = context.WithCancel(ctx)
	for _, task := range tasks {
		r.status[task.Name] = &TaskStatus{Name: task.Name, State: StateIdle}
		r.wg.Add(1)
		go func(t Task) {
			defer r.wg.Done()
			r.loop(ctx, t)
		}(task)
	}
	r.log.Info().Int("tasks", len(tasks)).Bool("stop_on_error", r.stopOnError).Msg("Scheduler started")
}

// Stop cancels every loop and waits for in-flight runs to return
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.log.Info().Msg("Scheduler stopped")
}

// Wait blocks until every loop has exited
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Status returns a snapshot of all loops ordered by name
func (r *Runner) Status() []TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TaskStatus, 0, len(r.status))
	for _, s := range r.status {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Runner) loop(ctx context.Context, task Task) {
	log := r.log.With().Str("task", task.Name).Logger()
	log.Info().Dur("interval", task.Interval).Msg("Task loop started")

	for {
		r.setState(task.Name, StateRunning)
		err := RunOnce(ctx, task)
		if ctx.Err() != nil {
			r.setState(task.Name, StateStopped)
			log.Info().Msg("Task loop stopping")
			return
		}
		r.record(task.Name, err)

		if err != nil {
			if r.stopOnError {
				log.Error().Err(err).Msg("Task failed, loop stopped")
				r.setState(task.Name, StateFailed)
				return
			}
			log.Error().Err(err).Msg("Task failed, retrying after interval")
		}
		r.setState(task.Name, StateIdle)

		timer := time.NewTimer(task.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.setState(task.Name, StateStopped)
			log.Info().Msg("Task loop stopping")
			return
		case <-timer.C:
		}
	}
}

// RunOnce runs task a single time, converting a panic into an error
func RunOnce(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, rec)
		}
	}()
	return task.Run(ctx)
}

func (r *Runner) setState(name, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.status[name]; ok {
		s.State = state
	}
}

func (r *Runner) record(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.status[name]
	if !ok {
		return
	}
	s.Runs++
	s.LastRun = time.Now().UTC()
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
	}
}
