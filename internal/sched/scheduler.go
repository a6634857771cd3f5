// internal/sched/scheduler.go

package sched

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/google/uuid"
)

var ErrShutdownTimeout = errors.New("shutdown timed out")

// Scheduler is the dispatcher: it admits arrived tasks, orders the ready
// queue by policy, assigns tasks to workers cyclically and collects their
// events. The backlog, ready queue and cyclic index are owned by the loop
// goroutine alone.
type Scheduler struct {
	cfg      Config
	policy   Policy
	rng      *rand.Rand
	runID    string
	logger   *slog.Logger
	out      io.Writer         // progress lines, unless cfg.Silent
	hook     func(StatusEvent) // optional observer
	results  chan runResult    // loop -> Run
	statusCh chan StatusEvent  // loop -> handleEvent

	// logging-related
	csvFile   *os.File
	csvWriter *csv.Writer
}

type runResult struct {
	report Report
	err    error
}

// workerHandle is the dispatcher side of one worker.
type workerHandle struct {
	server Server
	inbox  chan<- Message
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithRand sets the arrival jitter source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithOutput sets where progress lines go (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(s *Scheduler) { s.out = w }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Scheduler) { s.runID = id }
}

// WithStatusHook registers a callback invoked for every status event, in
// emission order, from the event-consuming goroutine.
func WithStatusHook(fn func(StatusEvent)) Option {
	return func(s *Scheduler) { s.hook = fn }
}

// New validates cfg and creates a Scheduler. Malformed definitions are
// rejected here so a run never starts with undefined behaviour.
func New(cfg Config, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, _ := ParsePolicy(cfg.Policy)

	s := &Scheduler{
		cfg:    cfg,
		policy: policy,
		runID:  uuid.NewString(),
		logger: slog.Default(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = rand.New(rand.NewSource(seed))
	}
	s.logger = s.logger.With("component", "scheduler", "run_id", s.runID)
	return s, nil
}

// Policy returns the active scheduling policy.
func (s *Scheduler) Policy() Policy { return s.policy }

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before Run().
func (s *Scheduler) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write(eventLogHeader); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	s.csvFile = f
	s.csvWriter = w
	return nil
}

// Run executes the simulation to completion and returns the final report.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	s.statusCh = make(chan StatusEvent, 256)
	s.results = make(chan runResult, 1)

	// start loop
	go func() {
		report, err := s.loop(ctx)
		s.results <- runResult{report: report, err: err}
	}()

	// consume events
	for ev := range s.statusCh {
		s.handleEvent(ev)
	}

	res := <-s.results

	if s.csvFile != nil {
		s.csvWriter.Flush()
		if err := s.csvWriter.Error(); err != nil && res.err == nil {
			res.err = fmt.Errorf("write event log: %w", err)
		}
		s.csvFile.Close()
		s.csvFile, s.csvWriter = nil, nil
	}
	return res.report, res.err
}

func (s *Scheduler) emit(ev StatusEvent) {
	s.statusCh <- ev
}

// loop runs the control loop and the shutdown protocol.
func (s *Scheduler) loop(ctx context.Context) (Report, error) {
	defer close(s.statusCh)

	cfg := s.cfg
	start := time.Now()
	tasks := GenerateArrivals(cfg.Tasks, start, cfg.TimeScale, cfg.MaxArrivalJitter, s.rng)
	pending := newBacklog(tasks)
	ready := arraylist.New()
	order := s.policy.comparator()
	stats := NewStats(start, cfg.TimeScale, len(tasks))

	// the buffers are sized so neither side ever blocks on a send
	outbox := make(chan Event, len(tasks)+len(cfg.Servers))
	workers := make([]workerHandle, len(cfg.Servers))
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var wg sync.WaitGroup
	for i, srv := range cfg.Servers {
		inbox := make(chan Message, len(tasks)+1)
		workers[i] = workerHandle{server: srv, inbox: inbox}
		stats.Register(srv.ID)

		w := newWorker(srv, inbox, outbox, cfg.TimeScale, cfg.ReceiveTimeout(), s.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(workerCtx)
		}()
	}

	s.logger.Info("run started", "policy", s.policy, "servers", len(workers), "tasks", len(tasks), "time_scale", cfg.TimeScale)
	s.emit(StatusEvent{Time: start, Kind: StatusStart, Value: cfg.TimeScale, Count: len(tasks)})

	clock := NewTickClock()
	clock.Start(cfg.PollInterval())
	defer clock.Stop()

	var (
		next int    // cyclic worker index
		seq  uint64 // admission sequence
		tick int64
	)
	for {
		tick++
		now := time.Now()

		// 1) admit every task whose arrival instant has passed
		for {
			t, ok := pending.popArrived(now)
			if !ok {
				break
			}
			ready.Add(readyEntry{task: t, seq: seq})
			seq++
			s.emit(StatusEvent{Time: now, Tick: tick, Kind: StatusAdmit, TaskID: t.ID, Priority: t.Priority, ExecTime: t.BaseExec})
		}

		// 2) re-rank the whole ready set before dispatching
		if order != nil {
			ready.Sort(order)
		}

		// 3) dispatch the head to the next worker in cyclic order
		if head, ok := ready.Get(0); ok {
			ready.Remove(0)
			e := head.(readyEntry)
			h := workers[next]
			h.inbox <- Assign{Task: e.task}
			next = (next + 1) % len(workers)

			stats.ObserveDispatch(Dispatch{TaskID: e.task.ID, ServerID: h.server.ID})
			s.emit(StatusEvent{Time: time.Now(), Tick: tick, Kind: StatusDispatch, TaskID: e.task.ID, ServerID: h.server.ID, Priority: e.task.Priority, ExecTime: e.task.BaseExec})
		}

		// 4) drain whatever completions are available
		s.drain(outbox, stats, tick)

		if stats.Completed() == len(tasks) && ready.Empty() && pending.Len() == 0 {
			break
		}

		// 5) wait for the next poll tick
		select {
		case <-ctx.Done():
			s.logger.Warn("run cancelled", "completed", stats.Completed(), "tasks", len(tasks))
			stopWorkers()
			if !joinWorkers(&wg, cfg.ShutdownTimeout()) {
				s.logger.Error("workers did not exit after cancel", "timeout", cfg.ShutdownTimeout())
			}
			return Report{}, ctx.Err()
		case <-clock.Ch:
		}
	}

	report, err := s.shutdown(ctx, workers, outbox, stats, &wg, tick)
	if err != nil {
		return Report{}, err
	}
	s.logger.Info("run finished",
		"completed", report.Completed,
		"mean_response_time", report.MeanResponseTime,
		"throughput", report.Throughput,
		"ticks", clock.Count())
	return report, nil
}

// drain pulls every event currently queued on the outbox without blocking.
func (s *Scheduler) drain(outbox <-chan Event, stats *Stats, tick int64) {
	for {
		select {
		case ev := <-outbox:
			s.observe(ev, stats, tick)
		default:
			return
		}
	}
}

func (s *Scheduler) observe(ev Event, stats *Stats, tick int64) {
	rec := Record{Event: ev, At: time.Now()}
	rt := stats.Observe(rec)

	switch ev.Kind {
	case EventCompleted:
		s.emit(StatusEvent{
			Time:     rec.At,
			Tick:     tick,
			Kind:     StatusComplete,
			TaskID:   ev.TaskID,
			ServerID: ev.ServerID,
			Priority: ev.Priority,
			ExecTime: ev.Realized,
			Arrival:  ev.Arrival,
			Value:    rt,
		})
	case EventShutdown:
		s.emit(StatusEvent{
			Time:     rec.At,
			Tick:     tick,
			Kind:     StatusShutdown,
			ServerID: ev.ServerID,
			Value:    ev.Utilization,
		})
	}
}

// shutdown sends the sentinel to every worker, waits for one shutdown event
// per worker and then for every worker goroutine to exit. Both waits share
// one deadline.
func (s *Scheduler) shutdown(ctx context.Context, workers []workerHandle, outbox <-chan Event, stats *Stats, wg *sync.WaitGroup, tick int64) (Report, error) {
	for _, h := range workers {
		h.inbox <- Stop{}
	}

	deadline := time.NewTimer(s.cfg.ShutdownTimeout())
	defer deadline.Stop()

	for stats.Shutdowns() < len(workers) {
		select {
		case ev := <-outbox:
			s.observe(ev, stats, tick)
		case <-ctx.Done():
			return Report{}, ctx.Err()
		case <-deadline.C:
			return Report{}, fmt.Errorf("%w: %d of %d workers reported", ErrShutdownTimeout, stats.Shutdowns(), len(workers))
		}
	}

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-deadline.C:
		return Report{}, fmt.Errorf("%w: workers did not exit", ErrShutdownTimeout)
	}

	end := time.Now()
	stats.Finish(end)
	s.emit(StatusEvent{Time: end, Tick: tick, Kind: StatusDone, Count: stats.Completed()})

	report := stats.Report()
	report.RunID = s.runID
	report.Policy = s.policy
	return report, nil
}

// joinWorkers waits up to timeout for every worker goroutine to return.
func joinWorkers(wg *sync.WaitGroup, timeout time.Duration) bool {
	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-joined:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Scheduler) handleEvent(ev StatusEvent) {
	if s.hook != nil {
		s.hook(ev)
	}

	if !s.cfg.Silent {
		fmt.Fprintln(s.out, formatStatus(ev))
	}

	// CSV output
	if s.csvWriter != nil {
		s.csvWriter.Write(encodeEvent(ev))
		s.csvWriter.Flush()
	}
}

// formatStatus renders one progress line.
func formatStatus(ev StatusEvent) string {
	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		spaces := int(float64(width-len(str)) / 2)
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
	}

	var detail string
	switch ev.Kind {
	case StatusStart:
		detail = fmt.Sprintf("Tasks: %d, time scale=%.3f", ev.Count, ev.Value)
	case StatusAdmit:
		detail = fmt.Sprintf("Task: %04d, priority=%d, exec=%.2f", ev.TaskID, ev.Priority, ev.ExecTime)
	case StatusDispatch:
		detail = fmt.Sprintf("Task: %04d -> Server: %02d, priority=%d, exec=%.2f", ev.TaskID, ev.ServerID, ev.Priority, ev.ExecTime)
	case StatusComplete:
		detail = fmt.Sprintf("Task: %04d on Server: %02d, realized=%.2f, response=%.2f", ev.TaskID, ev.ServerID, ev.ExecTime, ev.Value)
	case StatusShutdown:
		detail = fmt.Sprintf("Server: %02d, utilization=%.2f%%", ev.ServerID, ev.Value)
	case StatusDone:
		detail = fmt.Sprintf("Completed: %d", ev.Count)
	}

	return fmt.Sprintf("%s = Tick: %07d [%s] => %s",
		ev.Time.Format("Jan 02 15:04:05.000"),
		ev.Tick,
		center(ev.Kind.String(), 12),
		detail,
	)
}
