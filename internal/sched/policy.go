package sched

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emirpasic/gods/utils"
)

// Policy selects which ready task is dispatched next. It never affects
// which worker receives it.
type Policy string

const (
	RoundRobin       Policy = "round_robin"
	ShortestJobFirst Policy = "shortest_job_first"
	PriorityFirst    Policy = "priority"
)

var ErrInvalidPolicy = errors.New("invalid policy")

// Policies lists every supported policy in a stable order.
func Policies() []Policy {
	return []Policy{RoundRobin, ShortestJobFirst, PriorityFirst}
}

// ParsePolicy accepts the canonical names plus the usual short forms.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "round_robin", "round-robin", "rr":
		return RoundRobin, nil
	case "shortest_job_first", "shortest-job-first", "sjf":
		return ShortestJobFirst, nil
	case "priority", "prio":
		return PriorityFirst, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// readyEntry is what the ready queue holds: the task plus its admission
// sequence, which breaks ties so re-sorting stays stable.
type readyEntry struct {
	task Task
	seq  uint64
}

// comparator returns the ready-queue ordering for p, or nil when the
// queue must stay in admission order.
func (p Policy) comparator() utils.Comparator {
	switch p {
	case ShortestJobFirst:
		return func(a, b interface{}) int {
			ea, eb := a.(readyEntry), b.(readyEntry)
			if c := utils.Float64Comparator(ea.task.BaseExec, eb.task.BaseExec); c != 0 {
				return c
			}
			return bySeq(ea, eb)
		}
	case PriorityFirst:
		return func(a, b interface{}) int {
			ea, eb := a.(readyEntry), b.(readyEntry)
			if c := utils.IntComparator(ea.task.Priority, eb.task.Priority); c != 0 {
				return c
			}
			return bySeq(ea, eb)
		}
	default:
		return nil
	}
}

func bySeq(a, b readyEntry) int {
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	default:
		return 0
	}
}
