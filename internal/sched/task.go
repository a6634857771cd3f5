package sched

import (
	"errors"
	"fmt"
	"time"
)

// TaskID uniquely identifies a task in the simulation.
type TaskID uint64

// ServerID identifies a compute unit.
type ServerID int

const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

var (
	ErrInvalidTask   = errors.New("invalid task definition")
	ErrInvalidServer = errors.New("invalid server definition")
)

// TaskDef is a task definition as supplied by configuration.
type TaskDef struct {
	ID       TaskID  `yaml:"id" json:"id"`
	Type     string  `yaml:"type" json:"type"`
	Priority int     `yaml:"priority" json:"priority"` // 1 = high, 2 = medium, 3 = low
	ExecTime float64 `yaml:"exec_time" json:"exec_time"`
}

// Task represents one unit of inference work. It is never mutated after
// the arrival generator creates it.
type Task struct {
	ID       TaskID
	Kind     string
	Priority int
	BaseExec float64   // simulated time-units at capacity 1
	Arrival  time.Time // wall-clock instant the task becomes ready
}

// Server describes a compute unit. Capacity is a throughput multiplier.
type Server struct {
	ID       ServerID `yaml:"id" json:"id"`
	Capacity float64  `yaml:"capacity" json:"capacity"`
}

// Realized returns how long the task takes on this server, in simulated units.
func (s Server) Realized(t Task) float64 {
	return t.BaseExec / s.Capacity
}

// Validate rejects definitions that would make scheduling undefined.
func (ts TaskDef) Validate() error {
	switch {
	case ts.Type == "":
		return fmt.Errorf("%w: task %d has no type", ErrInvalidTask, ts.ID)
	case ts.Priority < PriorityHigh || ts.Priority > PriorityLow:
		return fmt.Errorf("%w: task %d priority %d not in [%d,%d]", ErrInvalidTask, ts.ID, ts.Priority, PriorityHigh, PriorityLow)
	case !(ts.ExecTime > 0):
		return fmt.Errorf("%w: task %d exec_time must be > 0, got %v", ErrInvalidTask, ts.ID, ts.ExecTime)
	}
	return nil
}

// Validate rejects servers with a non-positive capacity.
func (s Server) Validate() error {
	if !(s.Capacity > 0) {
		return fmt.Errorf("%w: server %d capacity must be > 0, got %v", ErrInvalidServer, s.ID, s.Capacity)
	}
	return nil
}

func validateDefinitions(servers []Server, tasks []TaskDef) error {
	if len(servers) == 0 {
		return fmt.Errorf("%w: at least one server is required", ErrInvalidServer)
	}
	seenServers := make(map[ServerID]struct{}, len(servers))
	for _, s := range servers {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := seenServers[s.ID]; dup {
			return fmt.Errorf("%w: server %d already exists", ErrInvalidServer, s.ID)
		}
		seenServers[s.ID] = struct{}{}
	}

	seenTasks := make(map[TaskID]struct{}, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seenTasks[t.ID]; dup {
			return fmt.Errorf("%w: task %d already exists", ErrInvalidTask, t.ID)
		}
		seenTasks[t.ID] = struct{}{}
	}
	return nil
}
