package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
)

const domainSession model.Domain = "session"

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Google Drive",
	Long: `Sign in with your Google account in the browser. The session is cached
locally and refreshed silently before it expires.

Only the drive remote needs a sign-in; webdav, s3 and localfs use the
credentials in the config file.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the cached session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if !ctx.NeedsSignIn() {
		return errors.NewUserError("the "+ctx.Config.Remote.Type+" remote needs no sign-in",
			"Credentials for this remote come from the config file")
	}

	user, err := ctx.Session.SignIn(cmd.Context())
	if err != nil {
		return err
	}
	loadDomains(cmd)

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("signed_in", domainSession, user)
	}
	ctx.CLIFormatter().Success("Signed in as " + user.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	// Changes still waiting for their debounce window go out first.
	if err := ctx.Sync.FlushPending(cmd.Context()); err != nil {
		ctx.Debugf("flush before sign-out failed: %v", err)
	}
	if err := ctx.Session.SignOut(cmd.Context()); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintItem("signed_out", domainSession, nil)
	}
	ctx.CLIFormatter().Success("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	user, ok := ctx.Session.User()
	state := ctx.Session.State().String()

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(struct {
			State string      `json:"state"`
			User  *model.User `json:"user,omitempty"`
		}{State: state, User: userPtr(user, ok)})
	}

	cli := ctx.CLIFormatter()
	if !ok {
		if ctx.NeedsSignIn() {
			cli.Muted("Not signed in. Run 'personalvault login'.")
		} else {
			cli.Muted("No sign-in needed for the " + ctx.Config.Remote.Type + " remote.")
		}
		return nil
	}
	ctx.Formatter.Printf("%s <%s>\n", user.Name, user.Email)
	cli.Muted("Session: " + state)
	return nil
}

func userPtr(u model.User, ok bool) *model.User {
	if !ok {
		return nil
	}
	return &u
}
