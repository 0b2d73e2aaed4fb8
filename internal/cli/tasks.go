package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ticker/internal/sync"
	"github.com/roach88/ticker/internal/task"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>...",
		Short: "Add a task",
		Long: `Add a task to the signed-in account's list. Multiple arguments are
joined with spaces, so quoting the title is optional.

Example:
  ticker add Buy milk`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, rootOpts, strings.Join(args, " "))
		},
	}

	return cmd
}

func runAdd(cmd *cobra.Command, rootOpts *RootOptions, text string) error {
	if _, err := task.NormalizeTitle(text); err != nil {
		return NewExitError(ExitCommandError, "title is empty")
	}

	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.signedIn(cmd.Context())
	if err != nil {
		return err
	}

	return app.withSyncer(cmd.Context(), sess.User, func(s *sync.Syncer) error {
		if err := s.Add(cmd.Context(), text); err != nil {
			return WrapExitError(ExitFailure, "add failed", err)
		}

		added := s.Tasks(task.FilterAll)[0]
		if rootOpts.Format == "json" {
			return app.out.Success(added)
		}
		return app.out.Success(fmt.Sprintf("Added %s  %s", shortID(added.ID), added.Title))
	})
}

// NewDoneCommand creates the done command.
func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Toggle a task's completion",
		Long: `Flip the completion state of a task. Running it on a completed task
reopens it. The task may be referenced by any unique ID prefix as shown
by 'ticker list'.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDone(cmd, rootOpts, args[0])
		},
	}

	return cmd
}

func runDone(cmd *cobra.Command, rootOpts *RootOptions, ref string) error {
	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.signedIn(cmd.Context())
	if err != nil {
		return err
	}

	return app.withSyncer(cmd.Context(), sess.User, func(s *sync.Syncer) error {
		id, err := resolveTaskID(s.Tasks(task.FilterAll), ref)
		if err != nil {
			return err
		}
		if err := s.Toggle(cmd.Context(), id); err != nil {
			return WrapExitError(ExitFailure, "toggle failed", err)
		}

		for _, t := range s.Tasks(task.FilterAll) {
			if t.ID == id {
				if rootOpts.Format == "json" {
					return app.out.Success(t)
				}
				state := "open"
				if t.Completed {
					state = "done"
				}
				return app.out.Success(fmt.Sprintf("Marked %s %s  %s", shortID(t.ID), state, t.Title))
			}
		}
		return nil
	})
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "edit <task-id> <title>...",
		Short:         "Retitle a task",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, rootOpts, args[0], strings.Join(args[1:], " "))
		},
	}

	return cmd
}

func runEdit(cmd *cobra.Command, rootOpts *RootOptions, ref, text string) error {
	if _, err := task.NormalizeTitle(text); err != nil {
		return NewExitError(ExitCommandError, "title is empty")
	}

	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.signedIn(cmd.Context())
	if err != nil {
		return err
	}

	return app.withSyncer(cmd.Context(), sess.User, func(s *sync.Syncer) error {
		id, err := resolveTaskID(s.Tasks(task.FilterAll), ref)
		if err != nil {
			return err
		}
		if err := s.Edit(cmd.Context(), id, text); err != nil {
			return WrapExitError(ExitFailure, "edit failed", err)
		}
		return app.out.Success(fmt.Sprintf("Updated %s", shortID(id)))
	})
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rm <task-id>",
		Short:         "Delete a task",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, rootOpts, args[0])
		},
	}

	return cmd
}

func runRemove(cmd *cobra.Command, rootOpts *RootOptions, ref string) error {
	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.signedIn(cmd.Context())
	if err != nil {
		return err
	}

	return app.withSyncer(cmd.Context(), sess.User, func(s *sync.Syncer) error {
		id, err := resolveTaskID(s.Tasks(task.FilterAll), ref)
		if err != nil {
			return err
		}
		if err := s.Delete(cmd.Context(), id); err != nil {
			return WrapExitError(ExitFailure, "delete failed", err)
		}
		return app.out.Success(fmt.Sprintf("Deleted %s", shortID(id)))
	})
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clear",
		Short:         "Delete all completed tasks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, rootOpts)
		},
	}

	return cmd
}

func runClear(cmd *cobra.Command, rootOpts *RootOptions) error {
	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.signedIn(cmd.Context())
	if err != nil {
		return err
	}

	return app.withSyncer(cmd.Context(), sess.User, func(s *sync.Syncer) error {
		cleared := s.Counts().Completed
		if err := s.ClearCompleted(cmd.Context()); err != nil {
			return WrapExitError(ExitFailure, "clear failed", err)
		}
		return app.out.Success(fmt.Sprintf("Cleared %d completed", cleared))
	})
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <task-id>...",
		Short: "Reorder tasks",
		Long: `Rearrange the list so the given tasks come first, in the given
order. Tasks not mentioned keep their relative order after them.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd, rootOpts, args)
		},
	}

	return cmd
}

func runMove(cmd *cobra.Command, rootOpts *RootOptions, refs []string) error {
	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.signedIn(cmd.Context())
	if err != nil {
		return err
	}

	return app.withSyncer(cmd.Context(), sess.User, func(s *sync.Syncer) error {
		tasks := s.Tasks(task.FilterAll)
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			id, err := resolveTaskID(tasks, ref)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		if err := s.Move(cmd.Context(), ids); err != nil {
			return WrapExitError(ExitFailure, "move failed", err)
		}
		return app.out.Success(fmt.Sprintf("Reordered %d tasks", len(ids)))
	})
}
