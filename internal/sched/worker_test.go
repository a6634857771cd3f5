package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clustersim/internal/logging"
)

func startWorker(ctx context.Context, server Server) (chan Message, chan Event, chan struct{}) {
	inbox := make(chan Message, 8)
	outbox := make(chan Event, 8)
	done := make(chan struct{})
	w := newWorker(server, inbox, outbox, 0.001, 2*time.Millisecond, logging.Discard())
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return inbox, outbox, done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not terminate")
	}
}

func TestWorkerProcessesInOrder(t *testing.T) {
	inbox, outbox, done := startWorker(context.Background(), Server{ID: 4, Capacity: 2})
	arrival := time.Now()

	inbox <- Assign{Task: Task{ID: 1, Priority: 3, BaseExec: 10, Arrival: arrival}}
	inbox <- Assign{Task: Task{ID: 2, Priority: 1, BaseExec: 4, Arrival: arrival}}
	inbox <- Stop{}
	waitDone(t, done)

	require.Len(t, outbox, 3)
	first, second, last := <-outbox, <-outbox, <-outbox

	assert.Equal(t, EventCompleted, first.Kind)
	assert.Equal(t, TaskID(1), first.TaskID)
	assert.Equal(t, 5.0, first.Realized)
	assert.Equal(t, 3, first.Priority)
	assert.Equal(t, arrival, first.Arrival)
	assert.Equal(t, ServerID(4), first.ServerID)

	assert.Equal(t, TaskID(2), second.TaskID)
	assert.Equal(t, 2.0, second.Realized)

	assert.Equal(t, EventShutdown, last.Kind)
	assert.Equal(t, ServerID(4), last.ServerID)
	assert.Greater(t, last.Utilization, 0.0)
	assert.LessOrEqual(t, last.Utilization, 100.0)
}

func TestWorkerIdleUntilStop(t *testing.T) {
	inbox, outbox, done := startWorker(context.Background(), Server{ID: 1, Capacity: 1})

	// several receive timeouts pass without a message
	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("worker stopped without the sentinel")
	default:
	}

	inbox <- Stop{}
	waitDone(t, done)
	require.Len(t, outbox, 1)
	ev := <-outbox
	assert.Equal(t, EventShutdown, ev.Kind)
	assert.Zero(t, ev.Utilization)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, outbox, done := startWorker(ctx, Server{ID: 2, Capacity: 1})
	cancel()
	waitDone(t, done)

	require.Len(t, outbox, 1)
	assert.Equal(t, EventShutdown, (<-outbox).Kind)
}

func TestWorkerCancelDropsQueuedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inbox := make(chan Message, 4)
	outbox := make(chan Event, 4)
	for i := 1; i <= 3; i++ {
		inbox <- Assign{Task: Task{ID: TaskID(i), Priority: 1, BaseExec: 1000}}
	}
	w := newWorker(Server{ID: 3, Capacity: 1}, inbox, outbox, 0.001, 2*time.Millisecond, logging.Discard())

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	waitDone(t, done)

	require.Len(t, outbox, 1)
	assert.Equal(t, EventShutdown, (<-outbox).Kind)
	assert.Len(t, inbox, 3)
	assert.Zero(t, w.busy)
}

func TestUtilization(t *testing.T) {
	assert.InDelta(t, 50.0, utilization(5, time.Second, 0.1), 1e-9)
	assert.Equal(t, 100.0, utilization(50, time.Second, 0.1))
	assert.Zero(t, utilization(3, 0, 0.2))
	assert.Zero(t, utilization(0, time.Second, 0.2))
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "completed", EventCompleted.String())
	assert.Equal(t, "shutdown", EventShutdown.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
