package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/errors"
)

// TableRows flattens an annotation table into one row per group, sorted by
// first location. Positions print 1-based, the way editors show them.
func TableRows(table *annotate.Table) pterm.TableData {
	type row struct {
		first document.Position
		cells []string
	}

	rows := make([]row, 0, len(table.Groups))
	for _, key := range table.Keys() {
		g := table.Groups[key]
		if len(g.Locations) == 0 {
			continue
		}

		locs := make([]document.Range, len(g.Locations))
		copy(locs, g.Locations)
		sort.Slice(locs, func(i, j int) bool { return locs[i].Start.Before(locs[j].Start) })

		positions := make([]string, 0, len(locs))
		for _, r := range locs {
			positions = append(positions, fmt.Sprintf("%d:%d", r.Start.Line+1, r.Start.Character+1))
		}

		rows = append(rows, row{
			first: locs[0].Start,
			cells: []string{
				g.Chain.Self(),
				strings.Join(g.Chain.Ancestors(), annotate.InheritsArrow),
				fmt.Sprintf("%d", len(locs)),
				strings.Join(positions, ", "),
			},
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].first.Before(rows[j].first) })

	data := pterm.TableData{{"Type", "Inherits", "Count", "Locations"}}
	for _, r := range rows {
		data = append(data, r.cells)
	}
	return data
}

// RenderTable writes table as a pterm table to w. An empty table prints a
// single line instead.
func RenderTable(w io.Writer, table *annotate.Table) error {
	if table.Len() == 0 {
		_, err := fmt.Fprintf(w, "No types found in %s\n", table.URI)
		return err
	}

	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithData(TableRows(table)).
		Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	_, err = fmt.Fprintf(w, "%s\n%d locations in %d groups (pass %s)\n", out, table.Len(), len(table.Groups), table.PassID)
	return err
}
