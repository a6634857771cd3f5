package sched

import (
	"slices"
	"time"
)

// Record is one outbound event together with the instant the dispatcher
// drained it.
type Record struct {
	Event Event
	At    time.Time
}

// Dispatch is one cyclic assignment of a task to a worker.
type Dispatch struct {
	TaskID   TaskID   `json:"task_id"`
	ServerID ServerID `json:"server_id"`
}

// EventLog is everything needed to recompute a report after the fact.
type EventLog struct {
	Start      time.Time
	End        time.Time
	TimeScale  float64
	TotalTasks int
	Dispatches []Dispatch
	Records    []Record
}

// ServerStats is the per-worker part of a report.
type ServerStats struct {
	TasksCompleted int      `json:"tasks_completed"`
	Utilization    float64  `json:"utilization_pct"`
	TaskIDs        []TaskID `json:"task_ids"`
}

// Report is the final summary of a run. Times are in simulated units.
type Report struct {
	RunID            string                   `json:"run_id,omitempty"`
	Policy           Policy                   `json:"policy,omitempty"`
	TotalTasks       int                      `json:"total_tasks"`
	Completed        int                      `json:"completed"`
	MeanResponseTime float64                  `json:"mean_response_time"`
	MaxResponseTime  float64                  `json:"max_response_time"`
	Throughput       float64                  `json:"throughput"`
	Elapsed          float64                  `json:"elapsed"`
	PerServer        map[ServerID]ServerStats `json:"per_server"`
	Dispatches       []Dispatch               `json:"dispatches,omitempty"`
}

// Stats accumulates metrics from the worker event stream. It has no
// concurrency of its own; the dispatcher calls it from its drain step.
type Stats struct {
	log       EventLog
	completed int
	responses []float64
	servers   map[ServerID]*ServerStats
	shutdowns int
}

// NewStats creates an aggregator for a run that started at start.
func NewStats(start time.Time, timeScale float64, totalTasks int) *Stats {
	return &Stats{
		log: EventLog{
			Start:      start,
			TimeScale:  timeScale,
			TotalTasks: totalTasks,
		},
		servers: make(map[ServerID]*ServerStats),
	}
}

// Replay rebuilds an aggregator from a log. Replaying the same log always
// yields the same report.
func Replay(log EventLog) *Stats {
	s := NewStats(log.Start, log.TimeScale, log.TotalTasks)
	for _, d := range log.Dispatches {
		s.ObserveDispatch(d)
	}
	for _, rec := range log.Records {
		s.Observe(rec)
	}
	s.Finish(log.End)
	return s
}

func (s *Stats) server(id ServerID) *ServerStats {
	st, ok := s.servers[id]
	if !ok {
		st = &ServerStats{}
		s.servers[id] = st
	}
	return st
}

// Register makes a server appear in reports even if it never completes a task.
func (s *Stats) Register(id ServerID) {
	s.server(id)
}

// ObserveDispatch records one assignment in the dispatch trace.
func (s *Stats) ObserveDispatch(d Dispatch) {
	s.log.Dispatches = append(s.log.Dispatches, d)
}

// Observe folds one drained event into the totals. For completions it
// returns the response time in simulated units.
func (s *Stats) Observe(rec Record) float64 {
	s.log.Records = append(s.log.Records, rec)
	ev := rec.Event
	st := s.server(ev.ServerID)

	switch ev.Kind {
	case EventCompleted:
		s.completed++
		st.TasksCompleted++
		st.TaskIDs = append(st.TaskIDs, ev.TaskID)
		rt := rec.At.Sub(ev.Arrival).Seconds() / s.log.TimeScale
		s.responses = append(s.responses, rt)
		return rt
	case EventShutdown:
		s.shutdowns++
		st.Utilization = ev.Utilization
	}
	return 0
}

// Completed returns how many tasks have reported completion.
func (s *Stats) Completed() int { return s.completed }

// Shutdowns returns how many workers have reported shutdown.
func (s *Stats) Shutdowns() int { return s.shutdowns }

// Finish fixes the end instant used by Report.
func (s *Stats) Finish(end time.Time) {
	s.log.End = end
}

// Log returns a copy of the accumulated event log.
func (s *Stats) Log() EventLog {
	log := s.log
	log.Dispatches = slices.Clone(s.log.Dispatches)
	log.Records = slices.Clone(s.log.Records)
	return log
}

// Report returns the summary as of the Finish instant.
func (s *Stats) Report() Report {
	return s.Snapshot(s.log.End)
}

// Snapshot returns a read-only summary as if the run ended at `at`.
func (s *Stats) Snapshot(at time.Time) Report {
	r := Report{
		TotalTasks: s.log.TotalTasks,
		Completed:  s.completed,
		PerServer:  make(map[ServerID]ServerStats, len(s.servers)),
		Dispatches: slices.Clone(s.log.Dispatches),
	}

	if len(s.responses) > 0 {
		var sum float64
		for _, rt := range s.responses {
			sum += rt
		}
		r.MeanResponseTime = sum / float64(len(s.responses))
		r.MaxResponseTime = slices.Max(s.responses)
	}

	r.Elapsed = at.Sub(s.log.Start).Seconds() / s.log.TimeScale
	if r.Elapsed > 0 {
		r.Throughput = float64(s.log.TotalTasks) / r.Elapsed
	}

	for id, st := range s.servers {
		r.PerServer[id] = ServerStats{
			TasksCompleted: st.TasksCompleted,
			Utilization:    st.Utilization,
			TaskIDs:        slices.Clone(st.TaskIDs),
		}
	}
	return r
}
