/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package shell

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/graphbolt/graphbolt/bolt"
	"github.com/graphbolt/graphbolt/values"
	jsoniter "github.com/json-iterator/go"
)

// renderer writes all records of a stream to the shell output.
type renderer func(st *shellState, rs bolt.ResultStream) error

var renderers = map[string]renderer{
	"table": renderTable,
	"csv":   renderCSV,
	"json":  renderJSON,
}

var fieldColor = color.New(color.FgHiCyan).Sprint

func fieldnames(rs bolt.ResultStream) ([]string, error) {
	n, err := rs.NFields()
	if err != nil {
		return nil, err
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		if names[i], err = rs.FieldName(i); err != nil {
			return nil, err
		}
	}
	return names, nil
}

//
// table
//

func renderTable(st *shellState, rs bolt.ResultStream) error {
	names, err := fieldnames(rs)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return drain(rs)
	}
	colWidth := (renderWidth(st)-1)/len(names) - 3
	if colWidth < 1 {
		colWidth = 1
	}
	rule := tableRule(len(names), colWidth)

	fmt.Fprintln(st.out, rule)
	var hdr strings.Builder
	for _, name := range names {
		hdr.WriteString("| ")
		hdr.WriteString(fieldColor(pad(name, colWidth)))
		hdr.WriteByte(' ')
	}
	hdr.WriteByte('|')
	fmt.Fprintln(st.out, hdr.String())
	fmt.Fprintln(st.out, rule)

	for {
		rec, err := rs.FetchNext()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
		var row strings.Builder
		for i := range names {
			row.WriteString("| ")
			row.WriteString(pad(rec.Field(i).String(), colWidth))
			row.WriteByte(' ')
		}
		row.WriteByte('|')
		fmt.Fprintln(st.out, row.String())
	}
	fmt.Fprintln(st.out, rule)
	return nil
}

func tableRule(ncols, colWidth int) string {
	var sb strings.Builder
	for i := 0; i < ncols; i++ {
		sb.WriteByte('+')
		sb.WriteString(strings.Repeat("-", colWidth+2))
	}
	sb.WriteByte('+')
	return sb.String()
}

// pad truncates with a trailing marker or right-pads to the exact width.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return "="
		}
		return string(r[:width-1]) + "="
	}
	return s + strings.Repeat(" ", width-len(r))
}

//
// csv
//

func renderCSV(st *shellState, rs bolt.ResultStream) error {
	names, err := fieldnames(rs)
	if err != nil {
		return err
	}
	w := csv.NewWriter(st.out)
	if err := w.Write(names); err != nil {
		return err
	}
	row := make([]string, len(names))
	for {
		rec, err := rs.FetchNext()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
		for i := range names {
			v := rec.Field(i)
			if v.Type() == values.TypeString {
				row[i] = v.Str()
			} else {
				row[i] = v.String()
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

//
// json
//

func renderJSON(st *shellState, rs bolt.ResultStream) error {
	names, err := fieldnames(rs)
	if err != nil {
		return err
	}
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(st.out)
	for {
		rec, err := rs.FetchNext()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		obj := make(map[string]any, len(names))
		for i, name := range names {
			obj[name] = rec.Field(i).Interface()
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
}

// drain consumes a record-less stream so its metadata resolves.
func drain(rs bolt.ResultStream) error {
	for {
		rec, err := rs.FetchNext()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
	}
}

// renderUpdateCounts prints the non-zero update counters of a completed
// statement.
func renderUpdateCounts(st *shellState, rs bolt.ResultStream) error {
	stype, err := rs.StatementType()
	if err != nil {
		return err
	}
	if stype == bolt.StatementReadOnly || stype == bolt.StatementUnknown {
		return nil
	}
	counts, err := rs.UpdateCounts()
	if err != nil {
		return err
	}
	for _, c := range []struct {
		n    uint64
		what string
	}{
		{counts.NodesCreated, "Nodes created"},
		{counts.NodesDeleted, "Nodes deleted"},
		{counts.RelationshipsCreated, "Relationships created"},
		{counts.RelationshipsDeleted, "Relationships deleted"},
		{counts.PropertiesSet, "Properties set"},
		{counts.LabelsAdded, "Labels added"},
		{counts.LabelsRemoved, "Labels removed"},
		{counts.IndexesAdded, "Indexes added"},
		{counts.IndexesRemoved, "Indexes removed"},
		{counts.ConstraintsAdded, "Constraints added"},
		{counts.ConstraintsRemoved, "Constraints removed"},
	} {
		if c.n > 0 {
			fmt.Fprintf(st.out, "%s: %d\n", c.what, c.n)
		}
	}
	return nil
}
