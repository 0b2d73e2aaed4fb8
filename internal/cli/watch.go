package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ticker/internal/sync"
	"github.com/roach88/ticker/internal/task"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Filter string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the list live",
		Long: `Print the list and reprint it whenever the synced state changes.

Press Ctrl-C to stop.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "all", "task filter (all|active|completed)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	filter, err := task.ParseFilter(opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flag", err)
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

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return app.withSyncer(ctx, sess.User, func(s *sync.Syncer) error {
		render := func() {
			fmt.Fprint(app.out.Writer, renderTasks(s.Tasks(filter), s.Counts()))
			fmt.Fprintln(app.out.Writer)
		}
		render()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-s.Changed():
				render()
			}
		}
	})
}
