package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/typerace/internal/services/passage"
)

func newPassageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passage",
		Short: "Passage catalogue commands",
	}

	cmd.AddCommand(newPassageAddCmd())
	cmd.AddCommand(newPassageListCmd())
	cmd.AddCommand(newPassageRandomCmd())
	cmd.AddCommand(newPassageSeedCmd())

	return cmd
}

func newPassageAddCmd() *cobra.Command {
	var text, source, universe string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a passage",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"text": text, "source": source, "universe": universe}
			var result Passage

			if err := client.Post("/api/v1/passages", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Passage text (required)")
	cmd.Flags().StringVar(&source, "source", "", "Source attribution")
	cmd.Flags().StringVar(&universe, "universe", "", "Universe (category)")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

func newPassageListCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List passages, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("page", strconv.Itoa(page))
			query.Set("limit", strconv.Itoa(limit))
			var result PassagePage

			if err := client.Get("/api/v1/passages?"+query.Encode(), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", passage.DefaultPageSize, "Page size")

	return cmd
}

func newPassageRandomCmd() *cobra.Command {
	var universe string

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Pick a random passage",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/passages/random"
			if universe != "" {
				path += "?universe=" + url.QueryEscape(universe)
			}
			var result Passage

			if err := client.Get(path, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&universe, "universe", "", "Restrict to a universe")

	return cmd
}

func newPassageSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upload every passage in a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := passage.LoadSeedFile(file)
			if err != nil {
				return err
			}

			added := 0
			for _, entry := range seed.Passages {
				if entry.Text == "" {
					continue
				}
				req := map[string]string{"text": entry.Text, "source": entry.Source, "universe": entry.Universe}
				if err := client.Post("/api/v1/passages", req, nil); err != nil {
					return fmt.Errorf("passage %d: %w", added+1, err)
				}
				added++
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("Seeded %d passages", added))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Seed file path (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
