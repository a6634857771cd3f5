package sched

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defs(n int) []TaskDef {
	out := make([]TaskDef, n)
	for i := range out {
		out[i] = TaskDef{ID: TaskID(i + 1), Type: "t", Priority: 1 + i%3, ExecTime: float64(i + 1)}
	}
	return out
}

func TestGenerateArrivalsBounded(t *testing.T) {
	start := time.Now()
	tasks := GenerateArrivals(defs(50), start, 0.2, 3, rand.New(rand.NewSource(1)))
	require.Len(t, tasks, 50)

	limit := start.Add(600 * time.Millisecond) // 3 units * 0.2s
	for i, task := range tasks {
		assert.Equal(t, TaskID(i+1), task.ID, "definition order is kept")
		assert.False(t, task.Arrival.Before(start), "task %d", task.ID)
		assert.True(t, task.Arrival.Before(limit), "task %d", task.ID)
	}

	// the backlog alone orders by arrival
	b := newBacklog(tasks)
	var prev time.Time
	for n := 0; ; n++ {
		task, ok := b.popArrived(limit)
		if !ok {
			assert.Equal(t, 50, n)
			break
		}
		assert.False(t, task.Arrival.Before(prev), "task %d", task.ID)
		prev = task.Arrival
	}
}

func TestGenerateArrivalsDeterministic(t *testing.T) {
	start := time.Now()
	a := GenerateArrivals(defs(10), start, 0.2, 3, rand.New(rand.NewSource(42)))
	b := GenerateArrivals(defs(10), start, 0.2, 3, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestGenerateArrivalsWithoutJitter(t *testing.T) {
	start := time.Now()
	tasks := GenerateArrivals(defs(4), start, 0.2, 0, rand.New(rand.NewSource(1)))
	for i, task := range tasks {
		assert.Equal(t, TaskID(i+1), task.ID)
		assert.True(t, task.Arrival.Equal(start))
		assert.Equal(t, "t", task.Kind)
		assert.Equal(t, float64(i+1), task.BaseExec)
	}
}

func TestBacklogPopArrived(t *testing.T) {
	start := time.Now()
	b := newBacklog([]Task{
		{ID: 1, Arrival: start},
		{ID: 2, Arrival: start},
		{ID: 3, Arrival: start.Add(time.Second)},
	})
	assert.Equal(t, 3, b.Len())

	var got []TaskID
	for {
		task, ok := b.popArrived(start)
		if !ok {
			break
		}
		got = append(got, task.ID)
	}
	assert.Equal(t, []TaskID{1, 2}, got)
	assert.Equal(t, 1, b.Len())

	task, ok := b.popArrived(start.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, TaskID(3), task.ID)

	_, ok = b.popArrived(start.Add(time.Hour))
	assert.False(t, ok)
}

func TestBacklogOrdersUnsortedInput(t *testing.T) {
	start := time.Now()
	b := newBacklog([]Task{
		{ID: 1, Arrival: start.Add(2 * time.Millisecond)},
		{ID: 2, Arrival: start},
		{ID: 3, Arrival: start.Add(time.Millisecond)},
		{ID: 4, Arrival: start},
	})

	var got []TaskID
	for {
		task, ok := b.popArrived(start.Add(time.Second))
		if !ok {
			break
		}
		got = append(got, task.ID)
	}
	assert.Equal(t, []TaskID{2, 4, 3, 1}, got)
}
