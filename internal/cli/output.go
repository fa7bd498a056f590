package cli

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
)

// render writes data as indented JSON or as a table built from headers and rows.
func render(w io.Writer, format string, data any, headers []string, rows [][]string) error {
	switch format {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case outputTable, "":
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, "Nothing to show.")
			return err
		}
		table := tablewriter.NewWriter(w)
		table.Header(headers)
		if err := table.Bulk(rows); err != nil {
			return err
		}
		return table.Render()
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
