// Package configs provides embedded configuration templates for placesearch.
//
// Templates are embedded at build time so every distribution can create
// them:
//   - cmd/placesearch/cmd/config.go: `placesearch config init` writes the
//     user config; `placesearch config init --project` writes .placesearch.yaml
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/placesearch/config.yaml)
//  3. Project config (.placesearch.yaml)
//  4. .env and environment variables (PLACESEARCH_*, MAPBOX_ACCESS_TOKEN,
//     GOOGLE_PLACES_API_KEY)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by `placesearch config init` at ~/.config/placesearch/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
// Created by `placesearch config init --project` at .placesearch.yaml.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
