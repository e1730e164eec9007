package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/blobfm/internal/session"
)

// authCommands returns login, logout and whoami bound to run.
func authCommands(run runner) []*cobra.Command {
	return []*cobra.Command{newLoginCmd(run), newLogoutCmd(run), newWhoamiCmd(run)}
}

func newLoginCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Microsoft (device code, or --browser)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			browser, _ := cmd.Flags().GetBool("browser")

			return run(cmd, func(ctx context.Context, a *app) error {
				return runLogin(ctx, cmd, a, browser)
			})
		},
	}

	cmd.Flags().Bool("browser", false, "sign in through the system browser instead of a device code")

	return cmd
}

func runLogin(ctx context.Context, cmd *cobra.Command, a *app, browser bool) error {
	var (
		acct session.Account
		err  error
	)

	if browser {
		acct, err = a.session.LoginWithBrowser(ctx, func(authURL string) error {
			if err := openBrowser(authURL); err != nil {
				a.logger.Warn("could not open browser", "error", err)
				fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in your browser:\n%s\n", authURL)
			}

			return nil
		})
	} else {
		acct, err = a.session.Login(ctx, func(da session.DeviceAuth) {
			// Device code prompts must always be visible, even with --quiet.
			fmt.Fprintf(cmd.ErrOrStderr(), "To sign in, visit: %s\n", da.VerificationURI)
			fmt.Fprintf(cmd.ErrOrStderr(), "Enter code: %s\n", da.UserCode)
		})
	}

	if errors.Is(err, session.ErrNoClientID) {
		return fmt.Errorf("%w: set client_id in the [auth] section of %s", err, a.cfg.ConfigPath)
	}

	if err != nil {
		return err
	}

	a.logger.Info("login successful", "account", acct.Display())
	statusf(cmd.ErrOrStderr(), "Signed in as %s.\n", acct.Display())

	return nil
}

func newLogoutCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(_ context.Context, a *app) error {
				if err := a.session.Logout(); err != nil {
					return err
				}

				statusf(cmd.ErrOrStderr(), "Signed out.\n")

				return nil
			})
		},
	}
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	API      string `json:"api"`
}

func newWhoamiCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(_ context.Context, a *app) error {
				acct, ok := a.session.Account()
				if !ok {
					return fmt.Errorf("not signed in, run 'blobfm login' first")
				}

				if flagJSON {
					return printJSON(cmd.OutOrStdout(), whoamiOutput{
						Username: acct.Username,
						Name:     acct.Name,
						API:      a.client.BaseURL(),
					})
				}

				fmt.Fprintf(cmd.OutOrStdout(), "User: %s\n", acct.Display())

				if acct.Name != "" && acct.Name != acct.Display() {
					fmt.Fprintf(cmd.OutOrStdout(), "Name: %s\n", acct.Name)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "API:  %s\n", a.client.BaseURL())

				return nil
			})
		},
	}
}

// openBrowser launches the platform's URL handler.
func openBrowser(url string) error {
	var name string

	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		name = "xdg-open"
	}

	return exec.Command(name, url).Start()
}
