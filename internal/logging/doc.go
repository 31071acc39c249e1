// Package logging configures slog for placesearch.
//
// Interactive commands log to stderr. With --debug, JSON logs are also
// written to ~/.placesearch/logs/placesearch.log with size-based rotation.
// The MCP stdio server logs to the file only, since stdout carries the
// protocol stream.
package logging
