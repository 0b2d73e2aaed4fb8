package sync

import "github.com/roach88/ticker/internal/task"

// mutation captures one optimistic edit as a transaction: the pre-image
// taken before the edit and the post-image that replaces it. Committing
// is keeping the post-image; reverting is applying the inverse, which for
// a wholesale list edit means restoring the pre-image.
//
// Every mutating operation (toggle, edit, delete, clear, move) goes
// through this one shape instead of per-action revert code.
type mutation struct {
	name string
	pre  []task.Task
	post []task.Task
}

// begin captures the pre-image of items and computes the post-image by
// applying edit to a private copy. The input slice is never mutated.
func begin(name string, items []task.Task, edit func([]task.Task) []task.Task) mutation {
	return mutation{
		name: name,
		pre:  cloneTasks(items),
		post: edit(cloneTasks(items)),
	}
}

// changed reports whether the edit produced a different list.
func (m mutation) changed() bool {
	if len(m.pre) != len(m.post) {
		return true
	}
	for i := range m.pre {
		if m.pre[i] != m.post[i] {
			return true
		}
	}
	return false
}

// cloneTasks copies a task slice so pre- and post-images cannot alias
// live state. Always returns a non-nil slice.
func cloneTasks(items []task.Task) []task.Task {
	out := make([]task.Task, len(items))
	copy(out, items)
	return out
}
