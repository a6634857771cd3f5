// internal/sched/worker.go

package sched

import (
	"context"
	"log/slog"
	"math"
	"time"

	"clustersim/internal/job"
)

// Message is what travels on a worker's inbound channel: either an Assign
// carrying a task or the Stop sentinel.
type Message interface {
	isMessage()
}

// Assign hands one task to a worker.
type Assign struct {
	Task Task
}

// Stop tells a worker to finish its loop and report utilization.
type Stop struct{}

func (Assign) isMessage() {}
func (Stop) isMessage()   {}

// EventKind tags events on the shared outbound channel.
type EventKind int

const (
	EventCompleted EventKind = iota + 1
	EventShutdown
)

func (k EventKind) String() string {
	switch k {
	case EventCompleted:
		return "completed"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is emitted by a worker: once per finished task (EventCompleted) and
// once when it stops (EventShutdown).
type Event struct {
	Kind     EventKind
	ServerID ServerID

	// completion fields
	TaskID   TaskID
	Realized float64 // simulated units
	Priority int
	Arrival  time.Time

	// shutdown fields
	Utilization float64 // percent, 0..100
}

type workerState int

const (
	workerRunning workerState = iota
	workerStopped
)

// Worker is an independently scheduled execution unit. It owns busy-time
// accounting and shares nothing with other workers except the outbox.
type Worker struct {
	server         Server
	inbox          <-chan Message
	outbox         chan<- Event
	timeScale      float64
	receiveTimeout time.Duration
	logger         *slog.Logger

	state workerState
	busy  float64 // simulated units spent executing
}

func newWorker(server Server, inbox <-chan Message, outbox chan<- Event, timeScale float64, receiveTimeout time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		server:         server,
		inbox:          inbox,
		outbox:         outbox,
		timeScale:      timeScale,
		receiveTimeout: receiveTimeout,
		logger:         logger.With("server_id", server.ID),
	}
}

// Run consumes the inbox until the Stop sentinel arrives or ctx is cancelled,
// then emits exactly one EventShutdown.
func (w *Worker) Run(ctx context.Context) {
	started := time.Now()
	w.logger.Debug("worker started", "capacity", w.server.Capacity)

	for w.state == workerRunning {
		msg, ok := w.receive(ctx)
		if !ok {
			// nothing to do yet
			continue
		}
		switch m := msg.(type) {
		case Stop:
			w.state = workerStopped
		case Assign:
			w.execute(ctx, m.Task)
		}
	}

	util := utilization(w.busy, time.Since(started), w.timeScale)
	w.logger.Debug("worker stopped", "busy", w.busy, "utilization_pct", util)
	w.outbox <- Event{
		Kind:        EventShutdown,
		ServerID:    w.server.ID,
		Utilization: util,
	}
}

// receive waits at most receiveTimeout for the next message. ok is false
// when nothing arrived in time. A cancelled ctx reads as Stop.
func (w *Worker) receive(ctx context.Context) (msg Message, ok bool) {
	// cancellation wins over anything still queued
	if ctx.Err() != nil {
		return Stop{}, true
	}

	timer := time.NewTimer(w.receiveTimeout)
	defer timer.Stop()

	select {
	case msg = <-w.inbox:
		return msg, true
	case <-ctx.Done():
		return Stop{}, true
	case <-timer.C:
		return nil, false
	}
}

func (w *Worker) execute(ctx context.Context, t Task) {
	realized := w.server.Realized(t)

	// a dispatched task always runs to completion
	if err := job.RunToCompletion(ctx, job.SleepWork(simDuration(realized, w.timeScale))); err != nil {
		w.logger.Debug("task work returned an error", "task_id", t.ID, "error", err)
	}
	w.busy += realized

	w.outbox <- Event{
		Kind:     EventCompleted,
		ServerID: w.server.ID,
		TaskID:   t.ID,
		Realized: realized,
		Priority: t.Priority,
		Arrival:  t.Arrival,
	}
}

// utilization is busy simulated time over elapsed simulated time, in percent.
func utilization(busy float64, elapsed time.Duration, timeScale float64) float64 {
	simElapsed := elapsed.Seconds() / timeScale
	if simElapsed <= 0 {
		return 0
	}
	return math.Max(0, math.Min(100, 100*busy/simElapsed))
}
