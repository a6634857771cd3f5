// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusStart StatusKind = iota
	StatusAdmit
	StatusDispatch
	StatusComplete
	StatusShutdown
	StatusDone
)

// StatusEvent is emitted on key actions of a run. Fields not relevant to a
// kind stay zero.
type StatusEvent struct {
	Time     time.Time
	Tick     int64
	Kind     StatusKind
	TaskID   TaskID
	ServerID ServerID
	Priority int
	ExecTime float64   // base time on Admit/Dispatch, realized time on Complete
	Arrival  time.Time // Complete only
	Value    float64   // time scale on Start, response time on Complete, utilization on Shutdown
	Count    int       // total tasks on Start
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusStart:
		return "Start"
	case StatusAdmit:
		return "Admit"
	case StatusDispatch:
		return "Dispatch"
	case StatusComplete:
		return "Complete"
	case StatusShutdown:
		return "Shutdown"
	case StatusDone:
		return "Done"
	default:
		return "Unknown"
	}
}

func parseStatusKind(s string) (StatusKind, bool) {
	for k := StatusStart; k <= StatusDone; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}
