package cmd

import (
	"errors"
	"fmt"
	"strings"

	perrors "github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/internal/search"
)

// formatError renders err for the terminal. Structured errors show their
// code and hint; an all-providers failure lists each provider.
func formatError(err error) string {
	var pe *perrors.PlaceError
	if !errors.As(err, &pe) {
		return fmt.Sprintf("Error: %v\n", err)
	}

	var sb strings.Builder
	sb.WriteString(perrors.FormatForCLI(err))

	var all *search.AllProvidersFailedError
	if errors.As(err, &all) {
		for _, src := range all.Sources() {
			f := all.Failures[src]
			sb.WriteString(fmt.Sprintf("  - %s: %s (%s)\n", src, f.Message, f.Kind))
		}
	}
	return sb.String()
}
