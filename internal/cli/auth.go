package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ticker/internal/session"
)

// SignupOptions holds flags for the signup command.
type SignupOptions struct {
	*RootOptions
	Password string
}

// NewSignupCommand creates the signup command.
func NewSignupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Register a new account",
		Long: `Register a new account with the backend.

Registration does not sign you in; run 'ticker login' afterwards.

Example:
  ticker signup alice@example.com`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignup(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (prompted when omitted)")

	return cmd
}

func runSignup(cmd *cobra.Command, opts *SignupOptions, email string) error {
	app, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	password, err := readPassword(cmd, opts.Password)
	if err != nil {
		return WrapExitError(ExitCommandError, "could not read password", err)
	}

	notice, err := app.gate.SignUp(cmd.Context(), email, password)
	if err != nil {
		return app.authExit(err, "sign up failed")
	}

	return app.out.Success(notice)
}

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Password string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and persist the session",
		Long: `Sign in to an existing account. The session token is stored under
the ticker home directory so later commands run as this identity until
'ticker logout'.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (prompted when omitted)")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *LoginOptions, email string) error {
	app, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	password, err := readPassword(cmd, opts.Password)
	if err != nil {
		return WrapExitError(ExitCommandError, "could not read password", err)
	}

	if err := app.gate.SignIn(cmd.Context(), email, password); err != nil {
		return app.authExit(err, "sign in failed")
	}

	sess, _ := app.gate.Session()
	return app.out.Success(fmt.Sprintf("Signed in as %s", sess.User.Email))
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard the persisted session",
		Long: `Sign out of the current session. The local token is discarded even
when the backend cannot be reached.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, rootOpts)
		},
	}

	return cmd
}

func runLogout(cmd *cobra.Command, rootOpts *RootOptions) error {
	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	// Resume first so the backend session is revoked, not just the file.
	app.gate.Resume(cmd.Context())
	if err := app.gate.SignOut(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "sign out failed", err)
	}

	return app.out.Success("Signed out")
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "whoami",
		Short:         "Show the current identity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd, rootOpts)
		},
	}

	return cmd
}

// whoamiResult is the json payload for whoami.
type whoamiResult struct {
	State  string `json:"state"`
	Email  string `json:"email,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

func runWhoami(cmd *cobra.Command, rootOpts *RootOptions) error {
	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	st := app.gate.Resume(cmd.Context())
	if st.Kind != session.StateAuthenticated {
		if rootOpts.Format == "json" {
			return app.out.Success(whoamiResult{State: st.Kind.String()})
		}
		return app.out.Success("Not signed in")
	}

	if rootOpts.Format == "json" {
		return app.out.Success(whoamiResult{
			State:  st.Kind.String(),
			Email:  st.Session.User.Email,
			UserID: st.Session.User.ID,
		})
	}
	return app.out.Success(fmt.Sprintf("Signed in as %s (%s)", st.Session.User.Email, st.Session.User.ID))
}
