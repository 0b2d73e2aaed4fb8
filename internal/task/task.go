package task

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyTitle is returned when a title trims to the empty string.
var ErrEmptyTitle = errors.New("task title is empty")

// Task is a single task row owned by one identity.
//
// ID is assigned by the store at creation time and never reused.
// Position orders an owner's tasks for display; values need not be
// contiguous.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	OwnerID   string    `json:"owner_id"`
	Position  int       `json:"position"`
}

// NormalizeTitle trims surrounding whitespace and applies Unicode NFC
// normalization so that visually identical titles compare equal.
// Returns ErrEmptyTitle if the result is empty.
func NormalizeTitle(raw string) (string, error) {
	title := norm.NFC.String(strings.TrimSpace(raw))
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

// Counts holds the derived active/completed tally for a task list.
// Active plus Completed always equals the total number of tasks.
type Counts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// Count tallies active and completed tasks.
func Count(tasks []Task) Counts {
	var c Counts
	for _, t := range tasks {
		if t.Completed {
			c.Completed++
		} else {
			c.Active++
		}
	}
	return c
}
