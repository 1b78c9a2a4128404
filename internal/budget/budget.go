// Package budget spreads the pending queue backlog over the runs left in the
// current day.
package budget

import "time"

// lastHour is the final hour of the day in which a scheduled run can happen.
const lastHour = 23

// Plan is the fetch budget for one run.
type Plan struct {
	// Pending is the total un-acked depth across both queues.
	Pending int
	// RunsLeft counts the scheduled runs remaining today, this one included.
	RunsLeft int
	// Operations is the maximum number of fetches this run may perform.
	Operations int
}

// Idle reports whether there is nothing to fetch.
func (p Plan) Idle() bool {
	return p.Pending == 0
}

// Compute returns the budget for a run at the given hour of day.
//
// RunsLeft is (23 - hour) * runsPerHour + 1, which is at least one even in
// the last hour. Operations is depth / RunsLeft + 1 + minPerRun, so the
// backlog drains by the end of the day and every run makes progress.
func Compute(depth, hour, runsPerHour, minPerRun int) Plan {
	hour = min(max(hour, 0), lastHour)
	runsPerHour = max(runsPerHour, 0)
	minPerRun = max(minPerRun, 0)
	depth = max(depth, 0)

	runsLeft := (lastHour-hour)*runsPerHour + 1
	return Plan{
		Pending:    depth,
		RunsLeft:   runsLeft,
		Operations: depth/runsLeft + 1 + minPerRun,
	}
}

// ComputeAt is Compute using the local wall-clock hour of now.
func ComputeAt(depth int, now time.Time, runsPerHour, minPerRun int) Plan {
	return Compute(depth, now.Local().Hour(), runsPerHour, minPerRun)
}
