package cli

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/casely/internal/server/httpapi"
	"github.com/spf13/cobra"
)

func newCredentialCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credential",
		Aliases: []string{"cred", "auth"},
		Short:   "Manage the origin credential used by the poller",
	}
	cmd.AddCommand(
		newCredentialSetCmd(opts),
		newCredentialClearCmd(opts),
		newCredentialShowCmd(opts),
	)
	return cmd
}

func newCredentialSetCmd(opts *rootOptions) *cobra.Command {
	var token, user string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a new origin access token",
		Long: `Send a new origin access token to the server. The poller saves it on
its next tick and resumes if it was paused by a rejected credential.

Without --token the token is read from stdin (hidden when interactive).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			if token == "" {
				t, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Access token: ")
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = t
			}
			if token == "" {
				return errors.New("empty token")
			}

			body := map[string]string{"access_token": token, "userId": user}
			if err := opts.api().call(cmd.Context(), http.MethodPost, "/api/auth", body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credential for %s submitted\n", user)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token (prompted when omitted)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "origin user id")
	return cmd
}

func newCredentialClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored credential and pause polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.api().call(cmd.Context(), http.MethodDelete, "/api/auth", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "credential clear submitted")
			return nil
		},
	}
}

func newCredentialShowCmd(opts *rootOptions) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			var a httpapi.AuthResponse
			if err := opts.api().call(cmd.Context(), http.MethodGet, "/api/auth", nil, &a); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if a.Token == "" {
				fmt.Fprintln(w, "no credential stored")
				return nil
			}

			tok := maskToken(a.Token)
			if reveal {
				tok = a.Token
			}
			fmt.Fprintf(w, "user:    %s\n", a.PrincipalID)
			fmt.Fprintf(w, "token:   %s\n", tok)
			if a.ExpiresAt != nil {
				exp := time.Unix(*a.ExpiresAt, 0).UTC()
				state := "valid"
				if !exp.After(time.Now()) {
					state = "expired"
				}
				fmt.Fprintf(w, "expires: %s (%s)\n", exp.Format(time.RFC3339), state)
			}
			fmt.Fprintf(w, "paused:  %t\n", a.Paused)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the full token")
	return cmd
}
