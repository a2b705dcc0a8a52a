package main

import (
	"github.com/spf13/cobra"

	"fstours/internal/tours"
)

func newToursCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tours",
		Short: "Manage tours",
	}
	cmd.AddCommand(
		newToursListCmd(),
		newToursGetCmd(),
		newToursCreateCmd(),
		newToursUpdateCmd(),
		newToursDeleteCmd(),
	)
	return cmd
}

func newToursListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tours",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := clientFromCmd(cmd).ListTours(cmd.Context())
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(list)
			}
			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{t.ID, t.Description})
			}
			p.table([]string{"ID", "DESCRIPTION"}, rows)
			return nil
		},
	}
}

func newToursGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <tour-id>",
		Short: "Show a tour and its legs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFromCmd(cmd)
			t, err := c.GetTour(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			legs, err := c.ListTourLegs(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(map[string]any{"tour": t, "legs": legs})
			}
			p.kv([][2]string{
				{"ID", t.ID},
				{"Description", t.Description},
			})
			printf(cmd, "\n")
			printLegs(p, legs, true)
			return nil
		},
	}
}

func newToursCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <tour-id>",
		Short: "Create a tour",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, _ := cmd.Flags().GetString("description")
			in := tours.TourInput{ID: args[0], Description: desc}
			if err := clientFromCmd(cmd).CreateTour(cmd.Context(), in); err != nil {
				return err
			}
			printf(cmd, "Created tour %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "tour description (required)")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newToursUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <tour-id>",
		Short: "Change a tour's description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, _ := cmd.Flags().GetString("description")
			if err := clientFromCmd(cmd).UpdateTour(cmd.Context(), args[0], desc); err != nil {
				return err
			}
			printf(cmd, "Updated tour %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "new description (required)")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newToursDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tour-id>",
		Short: "Delete a tour without legs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFromCmd(cmd).DeleteTour(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd, "Deleted tour %q\n", args[0])
			return nil
		},
	}
}
