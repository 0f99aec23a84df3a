package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/roomwatch/internal/geo"
	"github.com/ppiankov/roomwatch/internal/logging"
	"github.com/ppiankov/roomwatch/internal/model"
	"github.com/ppiankov/roomwatch/internal/notify"
)

// geocodeCmd resolves free text the same way postings without a geotag are
// resolved
var geocodeCmd = &cobra.Command{
	Use:   "geocode <location text>",
	Short: "Resolve a location description to a coordinate",
	Long: `Geocode splits the text into fragments, geocodes each one and prints the
mean coordinate together with the area and transit annotations.

Example:
  roomwatch geocode "123 Main St, near Downtown!"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := logging.Logger

		_, geocoder, err := newMaps(cfg, logger)
		if err != nil {
			return err
		}
		enricher := newEnricher(cfg, geocoder, logger)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Fragments: %q\n", geo.Fragments(args[0]))
		p := enricher.Enrich(contextOrBackground(cmd), model.RawPosting{ID: "cli", Where: args[0]})
		printEnrichment(cmd, p)
		return nil
	},
}

// checkCmd shows the area and transit annotations for a coordinate
var checkCmd = &cobra.Command{
	Use:   "check <lat> <lon>",
	Short: "Show the area and nearest transit for a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: %w", args[0], err)
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: %w", args[1], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		enricher := newEnricher(cfg, nil, logging.Logger)
		p := enricher.Enrich(contextOrBackground(cmd), model.RawPosting{
			ID:     "cli",
			Geotag: &model.Coordinate{Lat: lat, Lon: lon},
		})
		printEnrichment(cmd, p)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	rootCmd.AddCommand(checkCmd)
}

func printEnrichment(cmd *cobra.Command, p model.EnrichedPosting) {
	out := cmd.OutOrStdout()
	if !p.Resolved {
		fmt.Fprintln(out, "Location:  unresolved")
	} else {
		fmt.Fprintf(out, "Location:  %s\n", p.Location)
	}
	fmt.Fprintf(out, "Area:      %s (box match: %t)\n", p.Area, p.AreaFound)
	if p.HasTransitDistance() {
		fmt.Fprintf(out, "Transit:   %.2f km", p.TransitDistance)
		if p.NearTransit {
			fmt.Fprintf(out, " to %s (near)", p.TransitName)
		}
		fmt.Fprintln(out)
	} else {
		fmt.Fprintln(out, "Transit:   unknown")
	}
	fmt.Fprintf(out, "Message:   %s\n", notify.Format(p))
}
