package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"clustersim/internal/sched"
)

func serverIDs(r sched.Report) []sched.ServerID {
	ids := make([]sched.ServerID, 0, len(r.PerServer))
	for id := range r.PerServer {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderReport prints one report as a summary plus a per-server table.
func renderReport(w io.Writer, r sched.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(w, r)
	}

	fmt.Fprintln(w)
	if r.Policy != "" {
		fmt.Fprintf(w, "Policy:              %s\n", r.Policy)
	}
	fmt.Fprintf(w, "Tasks completed:     %d/%d\n", r.Completed, r.TotalTasks)
	fmt.Fprintf(w, "Mean response time:  %.2f\n", r.MeanResponseTime)
	fmt.Fprintf(w, "Max response time:   %.2f\n", r.MaxResponseTime)
	fmt.Fprintf(w, "Throughput:          %.3f tasks/unit\n", r.Throughput)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVER\tTASKS\tUTILIZATION")
	for _, id := range serverIDs(r) {
		st := r.PerServer[id]
		fmt.Fprintf(tw, "%d\t%d\t%.2f%%\n", id, st.TasksCompleted, st.Utilization)
	}
	return tw.Flush()
}

// renderComparison prints one row per policy.
func renderComparison(w io.Writer, reports []sched.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(w, reports)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POLICY\tMEAN RESPONSE\tMAX RESPONSE\tTHROUGHPUT\tMEAN UTILIZATION")
	for _, r := range reports {
		var util float64
		for _, st := range r.PerServer {
			util += st.Utilization
		}
		if len(r.PerServer) > 0 {
			util /= float64(len(r.PerServer))
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.3f\t%.2f%%\n", r.Policy, r.MeanResponseTime, r.MaxResponseTime, r.Throughput, util)
	}
	return tw.Flush()
}
