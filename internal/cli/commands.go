package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/spf13/cobra"
)

func (a *app) newLoginCmd() *cobra.Command {
	var (
		username   string
		password   string
		rememberMe bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), reader, "Username: "); err != nil {
					return err
				}
			}
			if username == "" {
				return apperrors.ErrMissingUsername
			}
			if password == "" {
				if password, err = prompt(cmd.OutOrStdout(), reader, "Password: "); err != nil {
					return err
				}
			}
			if password == "" {
				return apperrors.ErrMissingPassword
			}

			ctx := cmd.Context()
			s, err := newStack(ctx, a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.manager.Start(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("could not restore previous session")
			}
			if err := s.manager.Login(ctx, username, password, rememberMe); err != nil {
				return apperrors.Wrapf(err, "login failed")
			}

			printSnapshot(cmd.OutOrStdout(), s.manager.Snapshot())
			if rememberMe && !s.manager.HasConsent(ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), "Credentials were not saved: run 'authsession consent grant' to allow it.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().BoolVar(&rememberMe, "remember", false, "Keep the session across runs when consent is granted")
	return cmd
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session, renewing it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newStack(ctx, a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.manager.Start(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("could not restore session")
			}
			if err := s.waitSettled(ctx); err != nil {
				return err
			}

			snap := s.manager.Snapshot()
			printSnapshot(cmd.OutOrStdout(), snap)
			if !snap.LoggedIn {
				return apperrors.ErrNotLoggedIn
			}
			return nil
		},
	}
}

func (a *app) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newStack(ctx, a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.manager.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) newConsentCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "consent [grant|revoke|show]",
		Short:     "Allow, refuse or show permission to remember credentials",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"grant", "revoke", "show"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newStack(ctx, a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			switch args[0] {
			case "grant":
				err = s.manager.SetConsent(ctx, true)
			case "revoke":
				err = s.manager.SetConsent(ctx, false)
			case "show":
			default:
				return apperrors.ErrInvalidConsent
			}
			if err != nil {
				return err
			}

			state := "revoked"
			if s.manager.HasConsent(ctx) {
				state = "granted"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Consent %s\n", state)
			return nil
		},
	}
}

func prompt(w io.Writer, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	if !snap.LoggedIn {
		fmt.Fprintf(w, "Not logged in (%s)\n", snap.State)
		return
	}
	roles := strings.Join(snap.Roles.Strings(), ", ")
	if roles == "" {
		roles = "none"
	}
	fmt.Fprintf(w, "Logged in as user %d (roles: %s)\n", snap.SubjectID, roles)
}
