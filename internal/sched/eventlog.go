package sched

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var eventLogHeader = []string{"timestamp", "tick", "event", "task_id", "server_id", "priority", "exec_time", "arrival", "value", "count"}

// encodeEvent renders one status event as an event log row.
func encodeEvent(ev StatusEvent) []string {
	arrival := ""
	if !ev.Arrival.IsZero() {
		arrival = ev.Arrival.Format(time.RFC3339Nano)
	}
	return []string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatInt(ev.Tick, 10),
		ev.Kind.String(),
		strconv.FormatUint(uint64(ev.TaskID), 10),
		strconv.Itoa(int(ev.ServerID)),
		strconv.Itoa(ev.Priority),
		strconv.FormatFloat(ev.ExecTime, 'g', -1, 64),
		arrival,
		strconv.FormatFloat(ev.Value, 'g', -1, 64),
		strconv.Itoa(ev.Count),
	}
}

func decodeEvent(row []string) (StatusEvent, error) {
	var ev StatusEvent
	if len(row) != len(eventLogHeader) {
		return ev, fmt.Errorf("expected %d columns, got %d", len(eventLogHeader), len(row))
	}
	kind, ok := parseStatusKind(row[2])
	if !ok {
		return ev, fmt.Errorf("unknown event %q", row[2])
	}
	ev.Kind = kind

	var err error
	if ev.Time, err = time.Parse(time.RFC3339Nano, row[0]); err != nil {
		return ev, fmt.Errorf("timestamp: %w", err)
	}
	if ev.Tick, err = strconv.ParseInt(row[1], 10, 64); err != nil {
		return ev, fmt.Errorf("tick: %w", err)
	}
	id, err := strconv.ParseUint(row[3], 10, 64)
	if err != nil {
		return ev, fmt.Errorf("task_id: %w", err)
	}
	ev.TaskID = TaskID(id)
	server, err := strconv.Atoi(row[4])
	if err != nil {
		return ev, fmt.Errorf("server_id: %w", err)
	}
	ev.ServerID = ServerID(server)
	if ev.Priority, err = strconv.Atoi(row[5]); err != nil {
		return ev, fmt.Errorf("priority: %w", err)
	}
	if ev.ExecTime, err = strconv.ParseFloat(row[6], 64); err != nil {
		return ev, fmt.Errorf("exec_time: %w", err)
	}
	if row[7] != "" {
		if ev.Arrival, err = time.Parse(time.RFC3339Nano, row[7]); err != nil {
			return ev, fmt.Errorf("arrival: %w", err)
		}
	}
	if ev.Value, err = strconv.ParseFloat(row[8], 64); err != nil {
		return ev, fmt.Errorf("value: %w", err)
	}
	if ev.Count, err = strconv.Atoi(row[9]); err != nil {
		return ev, fmt.Errorf("count: %w", err)
	}
	return ev, nil
}

// ReadEventLog parses a CSV event log written by EnableCSVLogging.
func ReadEventLog(r io.Reader) (EventLog, error) {
	var log EventLog
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(eventLogHeader)

	header, err := cr.Read()
	if err != nil {
		return log, fmt.Errorf("read event log header: %w", err)
	}
	if header[0] != eventLogHeader[0] {
		return log, fmt.Errorf("unexpected event log header %v", header)
	}

	var started, done bool
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return log, fmt.Errorf("read event log line %d: %w", line, err)
		}
		ev, err := decodeEvent(row)
		if err != nil {
			return log, fmt.Errorf("event log line %d: %w", line, err)
		}

		switch ev.Kind {
		case StatusStart:
			started = true
			log.Start = ev.Time
			log.TimeScale = ev.Value
			log.TotalTasks = ev.Count
		case StatusDispatch:
			log.Dispatches = append(log.Dispatches, Dispatch{TaskID: ev.TaskID, ServerID: ev.ServerID})
		case StatusComplete:
			log.Records = append(log.Records, Record{At: ev.Time, Event: Event{
				Kind:     EventCompleted,
				ServerID: ev.ServerID,
				TaskID:   ev.TaskID,
				Realized: ev.ExecTime,
				Priority: ev.Priority,
				Arrival:  ev.Arrival,
			}})
		case StatusShutdown:
			log.Records = append(log.Records, Record{At: ev.Time, Event: Event{
				Kind:        EventShutdown,
				ServerID:    ev.ServerID,
				Utilization: ev.Value,
			}})
		case StatusDone:
			done = true
			log.End = ev.Time
		}
	}

	if !started || !done {
		return log, errors.New("event log is incomplete: missing Start or Done row")
	}
	if !(log.TimeScale > 0) {
		return log, fmt.Errorf("event log has invalid time scale %v", log.TimeScale)
	}
	return log, nil
}

// ReadEventLogFile opens path and parses it with ReadEventLog.
func ReadEventLogFile(path string) (EventLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return EventLog{}, err
	}
	defer f.Close()
	return ReadEventLog(f)
}
