package task

import "fmt"

// Filter selects which tasks a derived view shows. It is process-local
// UI state and never affects the underlying task set.
type Filter string

const (
	// FilterAll shows every task.
	FilterAll Filter = "all"
	// FilterActive shows tasks that are not completed.
	FilterActive Filter = "active"
	// FilterCompleted shows completed tasks.
	FilterCompleted Filter = "completed"
)

// ParseFilter converts a string into a Filter.
// An empty string parses as FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	default:
		return "", fmt.Errorf("invalid filter %q: must be one of all, active, completed", s)
	}
}

// Match reports whether the task passes the filter's predicate.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// Apply returns the tasks matching the filter, preserving their relative
// order. The input slice is never mutated; the result is always a fresh
// slice (empty, not nil, when nothing matches).
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
