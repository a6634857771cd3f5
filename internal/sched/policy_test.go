package sched

import (
	"testing"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{
		"round_robin":        RoundRobin,
		"RR":                 RoundRobin,
		"shortest_job_first": ShortestJobFirst,
		" sjf ":              ShortestJobFirst,
		"priority":           PriorityFirst,
		"prio":               PriorityFirst,
	}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePolicy("lottery")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func sortedIDs(p Policy, entries ...readyEntry) []TaskID {
	list := arraylist.New()
	for _, e := range entries {
		list.Add(e)
	}
	if cmp := p.comparator(); cmp != nil {
		list.Sort(cmp)
	}
	var ids []TaskID
	for _, v := range list.Values() {
		ids = append(ids, v.(readyEntry).task.ID)
	}
	return ids
}

func TestPolicyOrdering(t *testing.T) {
	entries := []readyEntry{
		{task: Task{ID: 1, Priority: 2, BaseExec: 5}, seq: 0},
		{task: Task{ID: 2, Priority: 3, BaseExec: 1}, seq: 1},
		{task: Task{ID: 3, Priority: 1, BaseExec: 5}, seq: 2},
		{task: Task{ID: 4, Priority: 1, BaseExec: 3}, seq: 3},
	}

	assert.Equal(t, []TaskID{1, 2, 3, 4}, sortedIDs(RoundRobin, entries...))
	assert.Equal(t, []TaskID{2, 4, 1, 3}, sortedIDs(ShortestJobFirst, entries...))
	assert.Equal(t, []TaskID{3, 4, 1, 2}, sortedIDs(PriorityFirst, entries...))
}

func TestPolicyTiesKeepAdmissionOrder(t *testing.T) {
	// inserted out of admission order on purpose
	entries := []readyEntry{
		{task: Task{ID: 9, Priority: 2, BaseExec: 2}, seq: 5},
		{task: Task{ID: 8, Priority: 2, BaseExec: 2}, seq: 1},
		{task: Task{ID: 7, Priority: 2, BaseExec: 2}, seq: 3},
	}
	assert.Equal(t, []TaskID{8, 7, 9}, sortedIDs(ShortestJobFirst, entries...))
	assert.Equal(t, []TaskID{8, 7, 9}, sortedIDs(PriorityFirst, entries...))
}

func TestShortestJobFirstFractionalExecTimes(t *testing.T) {
	entries := []readyEntry{
		{task: Task{ID: 1, BaseExec: 2.5}, seq: 0},
		{task: Task{ID: 2, BaseExec: 0.25}, seq: 1},
		{task: Task{ID: 3, BaseExec: 2.25}, seq: 2},
		{task: Task{ID: 4, BaseExec: 0.25}, seq: 3},
	}
	assert.Equal(t, []TaskID{2, 4, 3, 1}, sortedIDs(ShortestJobFirst, entries...))
}
