package main

import (
	"os"

	"github.com/spf13/cobra"

	"fstours/internal/kml"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tours to other formats",
	}
	cmd.AddCommand(newExportKMLCmd())
	return cmd
}

func newExportKMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kml",
		Short: "Write a tour's route as KML",
		RunE: func(cmd *cobra.Command, args []string) error {
			tourID, _ := cmd.Flags().GetString("tour")
			file, _ := cmd.Flags().GetString("file")

			c := clientFromCmd(cmd)
			t, err := c.GetTour(cmd.Context(), tourID)
			if err != nil {
				return err
			}
			legs, err := c.ListTourLegs(cmd.Context(), tourID)
			if err != nil {
				return err
			}
			doc := kml.Build(*t, legs)

			if file == "" {
				return kml.Write(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(file)
			if err != nil {
				return err
			}
			if err := kml.Write(f, doc); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printf(cmd, "Wrote %d legs to %s\n", len(legs), file)
			return nil
		},
	}
	cmd.Flags().String("tour", "", "tour to export (required)")
	cmd.Flags().StringP("file", "f", "", "output file (default: stdout)")
	_ = cmd.MarkFlagRequired("tour")
	return cmd
}
