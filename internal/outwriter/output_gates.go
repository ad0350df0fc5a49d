package outwriter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/schema"
)

// PrintGateCatalog displays every gate and its static metadata.
// This is a static display that does not read any scan.
func PrintGateCatalog(cfg *contract.Config) error {
	return writeWithFile("", func(w io.Writer) error {
		return WriteGateCatalog(w, cfg)
	}, "Wrote catalog")
}

// WriteGateCatalog writes the gate catalog to w.
func WriteGateCatalog(w io.Writer, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(w, schema.GateCatalog)
	}

	rows := make([][]string, 0, len(schema.GateCatalog))
	for _, info := range schema.GateCatalog {
		rows = append(rows, []string{
			string(info.ID),
			info.Name,
			info.Group,
			string(info.Category),
			info.Source,
			strconv.FormatBool(info.Visible),
		})
	}
	if _, err := fmt.Fprintln(w, "Gate Catalog:"); err != nil {
		return err
	}
	if err := renderTable(w, []string{"Gate", "Name", "Group", "Category", "Source", "Visible"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Only %s gates can block a deployment.\n", schema.Enforcing)
	return err
}
