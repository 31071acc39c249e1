package mcp

import (
	"fmt"
	"sort"
	"strings"
)

// FormatSearchResults formats search_places output as markdown.
func FormatSearchResults(query string, out SearchPlacesOutput) string {
	var sb strings.Builder

	if len(out.Places) == 0 {
		sb.WriteString(fmt.Sprintf("No places found for \"%s\"", query))
	} else {
		sb.WriteString(fmt.Sprintf("## Places for \"%s\"\n\n", query))
		sb.WriteString(fmt.Sprintf("Found %d place", len(out.Places)))
		if len(out.Places) != 1 {
			sb.WriteString("s")
		}
		if out.CacheHit {
			sb.WriteString(" (cached)")
		}
		sb.WriteString("\n\n")

		for i, p := range out.Places {
			formatPlace(&sb, i+1, p)
		}
	}

	if len(out.Warnings) > 0 {
		sb.WriteString("\n### Unavailable providers\n\n")
		for _, name := range sortedKeys(out.Warnings) {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", name, out.Warnings[name]))
		}
	}

	return sb.String()
}

// FormatPlace formats a single place with its details as markdown.
func FormatPlace(p PlaceOutput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", p.Name))
	writePlaceLines(&sb, p)

	if len(p.Details) > 0 {
		sb.WriteString("\n### Details\n\n")
		keys := make([]string, 0, len(p.Details))
		for k := range p.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %v\n", k, p.Details[k]))
		}
	}
	return sb.String()
}

func formatPlace(sb *strings.Builder, n int, p PlaceOutput) {
	sb.WriteString(fmt.Sprintf("### %d. %s\n\n", n, p.Name))
	writePlaceLines(sb, p)
	sb.WriteString("\n")
}

func writePlaceLines(sb *strings.Builder, p PlaceOutput) {
	if p.Address != "" {
		sb.WriteString(fmt.Sprintf("**Address:** %s\n", p.Address))
	}
	if p.Latitude != nil && p.Longitude != nil {
		sb.WriteString(fmt.Sprintf("**Location:** %.6f,%.6f\n", *p.Latitude, *p.Longitude))
	}
	sb.WriteString(fmt.Sprintf("**Source:** %s\n", p.Source))
	sb.WriteString(fmt.Sprintf("**ID:** `%s`\n", p.ID))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
