package main

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/term"

	"ppbind"
	"ppbind/report"
	"ppbind/store"
)

// output renders to a table on terminals and JSON everywhere else unless
// the format is forced.
type output struct {
	w      io.Writer
	format string
	shape  ppbind.Shape
}

func (o output) table() bool {
	switch o.format {
	case "table":
		return true
	case "json":
		return false
	}
	f, ok := o.w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (o output) json(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o output) result(r ppbind.Result) error {
	if o.table() {
		report.Single(o.w, r, o.shape)
		return nil
	}
	return o.json(r.Fields(o.shape))
}

type jsonRow struct {
	Label  string             `json:"label"`
	Mode   string             `json:"mode"`
	Mods   string             `json:"mods"`
	Result map[string]float64 `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func (o output) rows(rows []report.Row) error {
	if o.table() {
		report.Table(o.w, rows, o.shape)
		return nil
	}
	out := make([]jsonRow, 0, len(rows))
	for _, r := range rows {
		jr := jsonRow{Label: r.Label, Mode: r.Mode, Mods: r.Mods}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.Result = r.Result.Fields(o.shape)
		}
		out = append(out, jr)
	}
	return o.json(out)
}

func (o output) history(entries []store.Entry) error {
	if o.table() {
		report.History(o.w, entries)
		return nil
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	return o.json(entries)
}
