package cmd

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/placesearch/internal/output"
	"github.com/Aman-CERP/placesearch/internal/server"
)

func newPlaceCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "place <id>",
		Short: "Show details for one place",
		Long: `Show details for one place by its provider-qualified id, as printed
by 'placesearch search' (for example mapbox:dXJuOm1ieHBvaTo...).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.orchestrator.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(server.NewFeature(p))
			}
			output.New(cmd.OutOrStdout()).Place(p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output a GeoJSON Feature")
	return cmd
}
