package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fstours/internal/tours"
)

func newLegsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legs",
		Short: "Manage tour legs",
	}
	cmd.AddCommand(
		newLegsListCmd(),
		newLegsGetCmd(),
		newLegsCreateCmd(),
		newLegsUpdateCmd(),
		newLegsDeleteCmd(),
	)
	return cmd
}

func newLegsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List legs, optionally of one tour in flight order",
		RunE: func(cmd *cobra.Command, args []string) error {
			tourID, _ := cmd.Flags().GetString("tour")
			c := clientFromCmd(cmd)

			var (
				legs []tours.EnrichedLeg
				err  error
			)
			if tourID != "" {
				legs, err = c.ListTourLegs(cmd.Context(), tourID)
			} else {
				legs, err = c.ListLegs(cmd.Context())
			}
			if err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(legs)
			}
			printLegs(p, legs, tourID != "")
			return nil
		},
	}
	cmd.Flags().String("tour", "", "only legs of this tour")
	return cmd
}

func newLegsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <leg-id>",
		Short: "Show leg details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLegID(args[0])
			if err != nil {
				return err
			}
			leg, err := clientFromCmd(cmd).GetLeg(cmd.Context(), id)
			if err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(leg)
			}
			p.kv(legDetail(leg))
			return nil
		},
	}
}

func newLegsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a leg to a tour",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in tours.LegInput
			applyLegFlags(cmd.Flags(), &in)
			id, err := clientFromCmd(cmd).CreateLeg(cmd.Context(), in)
			if err != nil {
				return err
			}
			printf(cmd, "Created leg %d\n", id)
			return nil
		},
	}
	addLegFlags(cmd)
	_ = cmd.MarkFlagRequired("tour")
	_ = cmd.MarkFlagRequired("origin")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

// The API replaces the whole leg on update, so the current leg is fetched
// and only the flags that were given are changed.
func newLegsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <leg-id>",
		Short: "Change fields of a leg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLegID(args[0])
			if err != nil {
				return err
			}
			c := clientFromCmd(cmd)
			cur, err := c.GetLeg(cmd.Context(), id)
			if err != nil {
				return err
			}

			in := inputFromLeg(cur.Leg)
			applyLegFlags(cmd.Flags(), &in)
			if err := c.UpdateLeg(cmd.Context(), id, in); err != nil {
				return err
			}
			printf(cmd, "Updated leg %d\n", id)
			return nil
		},
	}
	addLegFlags(cmd)
	return cmd
}

func newLegsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <leg-id>",
		Short: "Delete a leg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLegID(args[0])
			if err != nil {
				return err
			}
			if err := clientFromCmd(cmd).DeleteLeg(cmd.Context(), id); err != nil {
				return err
			}
			printf(cmd, "Deleted leg %d\n", id)
			return nil
		},
	}
}

func addLegFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("tour", "", "tour id")
	f.String("origin", "", "origin ICAO code")
	f.String("destination", "", "destination ICAO code")
	f.String("aircraft", "", "aircraft ICAO type code")
	f.String("route", "", "route string")
	f.String("comments", "", "free-text comments")
	f.String("date", "", "flight date (YYYY-MM-DD)")
	f.String("link1", "", "link 1")
	f.String("link2", "", "link 2")
	f.String("link3", "", "link 3")
}

// applyLegFlags copies changed flags into in. An explicitly empty optional
// flag clears the field.
func applyLegFlags(f *pflag.FlagSet, in *tours.LegInput) {
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	opt := func(name string, dst **string) {
		if !f.Changed(name) {
			return
		}
		v, _ := f.GetString(name)
		if v == "" {
			*dst = nil
			return
		}
		*dst = &v
	}

	str("tour", &in.TourID)
	str("origin", &in.Origin)
	str("destination", &in.Destination)
	opt("aircraft", &in.Aircraft)
	opt("route", &in.Route)
	opt("comments", &in.Comments)
	opt("date", &in.FlightDate)
	opt("link1", &in.Link1)
	opt("link2", &in.Link2)
	opt("link3", &in.Link3)
}

func inputFromLeg(l tours.Leg) tours.LegInput {
	return tours.LegInput{
		TourID:      l.TourID,
		Origin:      l.Origin,
		Destination: l.Destination,
		Aircraft:    l.Aircraft,
		Route:       l.Route,
		Comments:    l.Comments,
		FlightDate:  l.FlightDate,
		Link1:       l.Link1,
		Link2:       l.Link2,
		Link3:       l.Link3,
	}
}

func parseLegID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid leg id %q", s)
	}
	return id, nil
}

func printLegs(p *printer, legs []tours.EnrichedLeg, sequenced bool) {
	header := []string{"ID", "TOUR", "ROUTE", "DATE", "AIRCRAFT", "ORIGIN NAME", "DESTINATION NAME"}
	if sequenced {
		header = append([]string{"#"}, header...)
	}

	rows := make([][]string, 0, len(legs))
	for _, l := range legs {
		row := []string{
			strconv.FormatInt(l.ID, 10),
			l.TourID,
			l.Origin + "-" + l.Destination,
			orDash(l.FlightDate),
			aircraftLabel(l),
			nameOf(l.OriginName),
			nameOf(l.DestinationName),
		}
		if sequenced {
			row = append([]string{strconv.Itoa(l.Sequence)}, row...)
		}
		rows = append(rows, row)
	}
	p.table(header, rows)
}

func legDetail(l *tours.EnrichedLeg) [][2]string {
	return [][2]string{
		{"ID", strconv.FormatInt(l.ID, 10)},
		{"Tour", l.TourID + " (" + orDash(l.TourDescription) + ")"},
		{"Origin", l.Origin + " " + nameOf(l.OriginName)},
		{"Destination", l.Destination + " " + nameOf(l.DestinationName)},
		{"Aircraft", aircraftLabel(*l)},
		{"Date", orDash(l.FlightDate)},
		{"Route", orDash(l.Route)},
		{"Comments", orDash(l.Comments)},
		{"Link 1", orDash(l.Link1)},
		{"Link 2", orDash(l.Link2)},
		{"Link 3", orDash(l.Link3)},
	}
}

func aircraftLabel(l tours.EnrichedLeg) string {
	ac := orDash(l.Aircraft)
	if l.AircraftModel != nil {
		ac += " (" + *l.AircraftModel + ")"
	}
	return ac
}

func nameOf(n *tours.NullableString) string {
	if n == nil || !n.Valid {
		return "-"
	}
	return n.String
}
