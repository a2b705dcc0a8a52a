package main

import (
	"os"

	"github.com/spf13/cobra"

	"fstours/internal/simbrief"
)

func newSimBriefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simbrief",
		Short: "Import flight plans from SimBrief",
	}
	cmd.AddCommand(newSimBriefImportCmd())
	return cmd
}

func newSimBriefImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Add the latest SimBrief flight plan as a leg",
		RunE: func(cmd *cobra.Command, args []string) error {
			tourID, _ := cmd.Flags().GetString("tour")
			username, _ := cmd.Flags().GetString("username")
			if username == "" {
				username = os.Getenv("FSTOURS_SIMBRIEF_USERNAME")
			}
			baseURL, _ := cmd.Flags().GetString("simbrief-url")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			draft, err := simbrief.New(baseURL, timeout).FetchLatest(cmd.Context(), username)
			if err != nil {
				return err
			}
			in := draft.LegInput(tourID)

			p := newPrinter(cmd)
			if dryRun {
				if p.isJSON() {
					return p.json(in)
				}
				p.kv([][2]string{
					{"Tour", in.TourID},
					{"Origin", in.Origin},
					{"Destination", in.Destination},
					{"Aircraft", orDash(in.Aircraft)},
					{"Route", orDash(in.Route)},
					{"Comments", orDash(in.Comments)},
					{"Link 1", orDash(in.Link1)},
				})
				return nil
			}

			id, err := clientFromCmd(cmd).CreateLeg(cmd.Context(), in)
			if err != nil {
				return err
			}
			if p.isJSON() {
				return p.json(map[string]any{"id": id, "leg": in})
			}
			printf(cmd, "Imported %s-%s as leg %d\n", in.Origin, in.Destination, id)
			return nil
		},
	}
	cmd.Flags().String("tour", "", "tour to add the leg to (required)")
	cmd.Flags().String("username", "", "SimBrief username (or FSTOURS_SIMBRIEF_USERNAME env)")
	cmd.Flags().String("simbrief-url", simbrief.DefaultBaseURL, "SimBrief base URL")
	cmd.Flags().Bool("dry-run", false, "print the leg without creating it")
	_ = cmd.MarkFlagRequired("tour")
	return cmd
}
