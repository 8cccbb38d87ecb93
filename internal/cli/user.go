package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserGetCmd())
	cmd.AddCommand(newUserRacesCmd())

	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var user, email string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user without credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"username": user, "email": email}
			var result User

			if err := client.Post("/api/v1/users", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newUserGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a user and their stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result User

			if err := client.Get("/api/v1/users/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newUserRacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "races <id>",
		Short: "List a user's race results, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RaceResults

			if err := client.Get("/api/v1/users/"+url.PathEscape(args[0])+"/races", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
