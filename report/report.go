// Package report renders evaluation results as terminal tables and xlsx
// workbooks.
package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"

	"ppbind"
	"ppbind/store"
)

// order of the known result fields, anything else sorts after them by name
var fieldOrder = []string{
	"total_stars", "partial_stars", "pp", "max_pp", "max_combo",
	"ar", "cs", "od", "hp", "clock_rate",
}

// Row is one evaluated play. Err is set instead of Result when the play
// failed.
type Row struct {
	Label  string
	Mode   string
	Mods   string
	Result ppbind.Result
	Err    error
}

// Columns returns the union of the fields of every successful row.
func Columns(rows []Row, shape ppbind.Shape) []string {
	seen := map[string]bool{}
	for _, r := range rows {
		if r.Result == nil {
			continue
		}
		for k := range r.Result.Fields(shape) {
			seen[k] = true
		}
	}
	var cols []string
	for _, k := range fieldOrder {
		if seen[k] {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	var rest []string
	for k := range seen {
		rest = append(rest, k)
	}
	slices.Sort(rest)
	return append(cols, rest...)
}

func format(name string, v float64) string {
	if name == "max_combo" {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Table writes rows as an aligned table. Missing fields show as "-".
func Table(w io.Writer, rows []Row, shape ppbind.Shape) {
	cols := Columns(rows, shape)
	t := tablewriter.NewWriter(w)
	t.SetHeader(append([]string{"play", "mode", "mods"}, cols...))
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)

	var failed [][]string
	for _, r := range rows {
		if r.Err != nil {
			failed = append(failed, []string{r.Label, r.Mode, r.Mods, r.Err.Error()})
			continue
		}
		f := r.Result.Fields(shape)
		line := []string{r.Label, r.Mode, r.Mods}
		for _, c := range cols {
			v, ok := f[c]
			if !ok {
				line = append(line, "-")
				continue
			}
			line = append(line, format(c, v))
		}
		t.Append(line)
	}
	t.Render()

	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(w)
	ft := tablewriter.NewWriter(w)
	ft.SetHeader([]string{"play", "mode", "mods", "error"})
	ft.SetAutoFormatHeaders(false)
	ft.SetAutoWrapText(false)
	ft.AppendBulk(failed)
	ft.Render()
}

// Single writes one result as a field/value table.
func Single(w io.Writer, r ppbind.Result, shape ppbind.Shape) {
	cols := Columns([]Row{{Result: r}}, shape)
	f := r.Fields(shape)
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"field", "value"})
	t.SetAutoFormatHeaders(false)
	t.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, c := range cols {
		t.Append([]string{c, format(c, f[c])})
	}
	t.Render()
}

const (
	resultsSheet = "Results"
	errorsSheet  = "Errors"
)

// XLSX writes rows into a workbook at path: successful plays on a Results
// sheet, failures on an Errors sheet when there are any.
func XLSX(path string, rows []Row, shape ppbind.Shape) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}

	cols := Columns(rows, shape)
	header := append([]string{"play", "mode", "mods"}, cols...)
	if err := writeRow(f, resultsSheet, 1, header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(resultsSheet, "A1", last, style); err != nil {
		return err
	}

	line := 1
	var failed []Row
	for _, r := range rows {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		line++
		values := r.Result.Fields(shape)
		cells := []any{r.Label, r.Mode, r.Mods}
		for _, c := range cols {
			if v, ok := values[c]; ok {
				cells = append(cells, v)
			} else {
				cells = append(cells, nil)
			}
		}
		if err := writeRow(f, resultsSheet, line, cells); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		if _, err := f.NewSheet(errorsSheet); err != nil {
			return err
		}
		if err := writeRow(f, errorsSheet, 1, []string{"play", "mode", "mods", "error"}); err != nil {
			return err
		}
		for i, r := range failed {
			if err := writeRow(f, errorsSheet, i+2, []string{r.Label, r.Mode, r.Mods, r.Err.Error()}); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

func writeRow[T any](f *excelize.File, sheet string, row int, cells []T) error {
	for i, v := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// History writes recorded evaluations, newest first as given.
func History(w io.Writer, entries []store.Entry) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"id", "when", "mode", "mods", "pp", "stars", "chart"})
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	for _, e := range entries {
		t.Append([]string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Mode,
			e.Mods,
			format("pp", e.PP),
			format("total_stars", e.Stars),
			e.Chart,
		})
	}
	t.Render()
}
