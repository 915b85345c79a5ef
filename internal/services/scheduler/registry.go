// Package scheduler runs the platform's recurring background passes. Every
// scheduler is an explicitly constructed Task registered on a Registry the
// process owns: main starts them after wiring and stops them on shutdown,
// and tests drive RunOnce directly instead of waiting on a timer.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task is one recurring unit of background work.
type Task interface {
	Name() string
	RunOnce(ctx context.Context) error
}

// NewTask wraps a function as a Task.
func NewTask(name string, fn func(ctx context.Context) error) Task {
	return &taskFunc{name: name, fn: fn}
}

type taskFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (t *taskFunc) Name() string                      { return t.name }
func (t *taskFunc) RunOnce(ctx context.Context) error { return t.fn(ctx) }

type runner struct {
	task       Task
	interval   time.Duration
	runOnStart bool
	stop       chan struct{}
	done       chan struct{}
}

func (r *runner) loop() {
	defer close(r.done)

	if r.runOnStart {
		r.run()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.run()
		case <-r.stop:
			return
		}
	}
}

func (r *runner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	if err := r.task.RunOnce(ctx); err != nil {
		log.Printf("scheduler %s: run failed: %v", r.task.Name(), err)
	}
}

// Registry holds the process's schedulers. Construct it once in main,
// start after wiring, stop on shutdown.
type Registry struct {
	mu      sync.Mutex
	runners []*runner
	started bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a task to the registry. Panics after StartAll; the task
// set is fixed at startup.
func (g *Registry) Register(task Task, interval time.Duration, runOnStart bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		panic("cannot register a scheduler after StartAll")
	}
	if interval <= 0 {
		panic("scheduler interval must be positive")
	}
	g.runners = append(g.runners, &runner{
		task:       task,
		interval:   interval,
		runOnStart: runOnStart,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	})
}

func (g *Registry) StartAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return
	}
	g.started = true
	for _, r := range g.runners {
		log.Printf("scheduler %s: starting with interval %s", r.task.Name(), r.interval)
		go r.loop()
	}
}

// StopAll stops every runner and waits for in-flight runs to finish.
func (g *Registry) StopAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.started {
		return
	}
	for _, r := range g.runners {
		close(r.stop)
	}
	for _, r := range g.runners {
		<-r.done
	}
	g.started = false
	log.Println("all schedulers stopped")
}
