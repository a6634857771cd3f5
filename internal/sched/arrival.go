package sched

import (
	"math/rand"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// GenerateArrivals stamps each definition with start plus a uniform delay in
// [0, maxJitter) simulated units, converted to wall time by timeScale.
// Tasks are returned in definition order; newBacklog orders them by arrival.
func GenerateArrivals(defs []TaskDef, start time.Time, timeScale, maxJitter float64, rng *rand.Rand) []Task {
	tasks := make([]Task, len(defs))
	for i, d := range defs {
		var delay float64
		if maxJitter > 0 {
			delay = rng.Float64() * maxJitter
		}
		tasks[i] = Task{
			ID:       d.ID,
			Kind:     d.Type,
			Priority: d.Priority,
			BaseExec: d.ExecTime,
			Arrival:  start.Add(simDuration(delay, timeScale)),
		}
	}
	return tasks
}

// simDuration converts simulated time-units into a wall-clock duration.
func simDuration(units, timeScale float64) time.Duration {
	return time.Duration(units * timeScale * float64(time.Second))
}

// backlog holds tasks that have not arrived yet, ordered by arrival instant.
type backlog struct {
	tree *redblacktree.Tree
}

// backlogKey orders the red-black tree by arrival, then by generation order.
type backlogKey struct {
	arrival time.Time
	order   int
}

func cmpBacklog(a, b any) int {
	ka, kb := a.(backlogKey), b.(backlogKey)
	switch {
	case ka.arrival.Before(kb.arrival):
		return -1
	case ka.arrival.After(kb.arrival):
		return 1
	case ka.order < kb.order:
		return -1
	case ka.order > kb.order:
		return 1
	default:
		return 0
	}
}

// newBacklog orders tasks by arrival; equal arrivals keep slice order.
func newBacklog(tasks []Task) *backlog {
	b := &backlog{tree: redblacktree.NewWith(cmpBacklog)}
	for i, t := range tasks {
		b.tree.Put(backlogKey{arrival: t.Arrival, order: i}, t)
	}
	return b
}

// popArrived removes and returns the head task if it has arrived by now.
func (b *backlog) popArrived(now time.Time) (Task, bool) {
	node := b.tree.Left()
	if node == nil {
		return Task{}, false
	}
	key := node.Key.(backlogKey)
	if key.arrival.After(now) {
		return Task{}, false
	}
	b.tree.Remove(key)
	return node.Value.(Task), true
}

func (b *backlog) Len() int { return b.tree.Size() }
