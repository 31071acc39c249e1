package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/placesearch/internal/config"
	"github.com/Aman-CERP/placesearch/pkg/place"
	"github.com/Aman-CERP/placesearch/pkg/version"
)

// versionReport is the --json output of version.
type versionReport struct {
	version.BuildInfo
	UserAgent string `json:"user_agent"`
	// Providers maps each provider to its state in the effective config.
	Providers   map[place.Source]string `json:"providers,omitempty"`
	ConfigError string                  `json:"config_error,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var jsonOutput bool
	var shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and provider information",
		Long: `Print the build version, the User-Agent sent to Mapbox and Google Places,
and which providers the current configuration enables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if shortOutput {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return err
			}

			report := versionReport{BuildInfo: version.GetInfo(), UserAgent: version.UserAgent()}
			if cfg, err := loadConfig(); err != nil {
				report.ConfigError = err.Error()
			} else {
				report.Providers = providerStates(cfg)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printVersion(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")

	return cmd
}

// providerStates describes each provider as the app would build it.
func providerStates(cfg *config.Config) map[place.Source]string {
	pc := cfg.Providers
	states := map[place.Source]string{
		place.SourceWhoosh:       "disabled",
		place.SourceMapbox:       "disabled",
		place.SourceGooglePlaces: "disabled",
	}
	if pc.Whoosh.Enabled {
		states[place.SourceWhoosh] = "enabled"
	}
	switch {
	case pc.Mapbox.Enabled && pc.Mapbox.AccessToken == "":
		states[place.SourceMapbox] = "missing access token"
	case pc.Mapbox.Enabled:
		states[place.SourceMapbox] = "enabled"
	}
	switch {
	case pc.GooglePlaces.Enabled && pc.GooglePlaces.APIKey == "":
		states[place.SourceGooglePlaces] = "missing API key"
	case pc.GooglePlaces.Enabled:
		states[place.SourceGooglePlaces] = "enabled"
	}
	return states
}

func printVersion(w io.Writer, r versionReport) {
	_, _ = fmt.Fprintln(w, version.String())
	_, _ = fmt.Fprintf(w, "User-Agent: %s\n", r.UserAgent)
	if r.ConfigError != "" {
		_, _ = fmt.Fprintf(w, "Providers: unknown (%s)\n", r.ConfigError)
		return
	}
	_, _ = fmt.Fprintln(w, "Providers:")
	for _, src := range []place.Source{place.SourceWhoosh, place.SourceMapbox, place.SourceGooglePlaces} {
		_, _ = fmt.Fprintf(w, "  %-14s %s\n", src, r.Providers[src])
	}
}
