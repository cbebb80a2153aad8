package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// printJSON writes v as JSON, indented when writing to a terminal so humans
// can read it and compact otherwise so scripts can parse it.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
