package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/ticker/internal/sync"
	"github.com/roach88/ticker/internal/task"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Filter string
	Sort   string
}

// validSorts are the accepted --sort values. "created" is the sync
// layer's natural order (newest first); "title" collates titles
// locale-aware.
var validSorts = []string{"created", "title"}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show tasks",
		Long: `Show the signed-in account's tasks, newest first.

Example:
  ticker list
  ticker list --filter active
  ticker list --filter completed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "all", "task filter (all|active|completed)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "created", "sort order (created|title)")

	return cmd
}

// listResult is the json payload for list.
type listResult struct {
	Tasks  []task.Task `json:"tasks"`
	Counts task.Counts `json:"counts"`
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	filter, err := task.ParseFilter(opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flag", err)
	}
	if !isValidSort(opts.Sort) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid sort %q: must be one of %v", opts.Sort, validSorts))
	}

	app, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.signedIn(cmd.Context())
	if err != nil {
		return err
	}

	return app.withSyncer(cmd.Context(), sess.User, func(s *sync.Syncer) error {
		tasks := s.Tasks(filter)
		if opts.Sort == "title" {
			sortByTitle(tasks)
		}

		if opts.Format == "json" {
			return app.out.Success(listResult{Tasks: tasks, Counts: s.Counts()})
		}

		fmt.Fprint(app.out.Writer, renderTasks(tasks, s.Counts()))
		return nil
	})
}

// sortByTitle orders tasks by locale-aware title collation. Stable so
// equal titles keep their creation order.
func sortByTitle(tasks []task.Task) {
	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(tasks, func(i, j int) bool {
		return c.CompareString(tasks[i].Title, tasks[j].Title) < 0
	})
}

// renderTasks builds the text listing: one line per task with a checkbox,
// a short ID for referencing the task in other commands, and the title,
// then a tally footer.
func renderTasks(tasks []task.Task, counts task.Counts) string {
	var b strings.Builder

	if len(tasks) == 0 {
		b.WriteString("No tasks\n")
	}
	for _, t := range tasks {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		fmt.Fprintf(&b, "%s %s  %s\n", box, shortID(t.ID), t.Title)
	}

	fmt.Fprintf(&b, "\n%d active, %d completed\n", counts.Active, counts.Completed)
	return b.String()
}

// shortID truncates an ID for display. UUIDv7 front bits are the
// timestamp, so eight characters are still unique enough to reference
// within one list; commands accept any unique prefix.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func isValidSort(s string) bool {
	for _, v := range validSorts {
		if v == s {
			return true
		}
	}
	return false
}
