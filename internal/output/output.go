// Package output renders search results and status lines for the CLI.
// Colour is used only when writing to a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
	color  bool
}

// New creates a Writer, enabling colour when out is a terminal.
func New(out io.Writer) *Writer {
	color := IsTTY(out) && !DetectNoColor()
	return NewWithColor(out, color)
}

// NewWithColor creates a Writer with colour explicitly on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	styles := PlainStyles()
	if color {
		styles = ColorStyles()
	}
	return &Writer{out: out, styles: styles, color: color}
}

// IsTTY checks if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Color reports whether styled output is enabled.
func (w *Writer) Color() bool {
	return w.color
}

// Errors from writing are ignored for console output.
func (w *Writer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}

// Status prints a message with an icon.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		w.printf("%s %s\n", icon, msg)
	} else {
		w.printf("   %s\n", msg)
	}
}

// Statusf prints a formatted message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	w.printf("\n")
}

// Places prints a numbered result list.
func (w *Writer) Places(places []place.Place) {
	if len(places) == 0 {
		w.printf("%s\n", w.styles.Dim.Render("No places found."))
		return
	}

	width := len(fmt.Sprint(len(places)))
	indent := strings.Repeat(" ", width+2)
	for i, p := range places {
		w.printf("%*d. %s %s\n", width, i+1,
			w.styles.Title.Render(p.Name),
			w.styles.Source.Render("["+string(p.Source)+"]"))
		if p.Address != "" {
			w.printf("%s%s\n", indent, p.Address)
		}
		if p.Coordinates != nil {
			w.printf("%s%s\n", indent, w.styles.Dim.Render(p.Coordinates.String()))
		}
		w.printf("%s%s\n", indent, w.styles.Dim.Render(p.ID))
	}
}

// Place prints one place with its provider-specific fields.
func (w *Writer) Place(p place.Place) {
	w.printf("%s %s\n", w.styles.Title.Render(p.Name), w.styles.Source.Render("["+string(p.Source)+"]"))
	w.field("id", p.ID)
	w.field("address", p.Address)
	if p.Coordinates != nil {
		w.field("coordinates", p.Coordinates.String())
	}

	keys := make([]string, 0, len(p.Raw))
	for k := range p.Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.field(k, fmt.Sprint(p.Raw[k]))
	}
}

func (w *Writer) field(label, value string) {
	if value == "" {
		return
	}
	w.printf("  %s %s\n", w.styles.Label.Render(label+":"), value)
}

// Failures prints one warning line per failed provider, in source order.
func (w *Writer) Failures(failures map[place.Source]*errors.PlaceError) {
	sources := make([]place.Source, 0, len(failures))
	for src := range failures {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	for _, src := range sources {
		f := failures[src]
		w.Warningf("%s unavailable (%s): %s", src, f.Kind, f.Message)
	}
}
