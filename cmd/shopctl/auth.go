package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func loginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = a.readLine("Email: ")
			}
			if password == "" {
				password = os.Getenv("SHOPCTL_PASSWORD")
			}
			if password == "" {
				password = a.readLine("Password: ")
			}
			user, err := a.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s (%s)\n", user.GetDisplayName(), strings.Join(user.Roles, ", "))
			if a.session.ShopID() == "" {
				fmt.Fprintln(a.out, "No shop selected. Run `shopctl shops` and `shopctl use <shopId>`.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (default $SHOPCTL_PASSWORD, else prompted)")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session tokens and forget them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.api.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.api.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return printRecord(a.out, [][2]string{
				{"ID", u.ID},
				{"Email", u.Email},
				{"Name", deref(u.Name)},
				{"Roles", strings.Join(u.Roles, ", ")},
				{"Account", u.AccountID},
				{"Shop", a.session.ShopID()},
			})
		},
	}
}

func passwdCmd(a *app) *cobra.Command {
	var current, next string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if current == "" {
				current = a.readLine("Current password: ")
			}
			if next == "" {
				next = a.readLine("New password: ")
			}
			if err := a.api.ChangePassword(cmd.Context(), current, next); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Password changed")
			return nil
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")
	return cmd
}
