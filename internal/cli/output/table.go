package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter formats data as an aligned text table.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format formats data as a table. A struct renders as FIELD/VALUE rows, a
// slice of structs as one row per element, and a map as KEY/VALUE rows
// sorted by key. Anything else falls back to JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}

	switch t := data.(type) {
	case *Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	}

	table, ok := toTable(reflect.ValueOf(data), f.Wide)
	if !ok {
		return (&JSONFormatter{}).Format(w, data)
	}
	return table.RenderWithOptions(w, f.NoHeaders)
}

type column struct {
	name  string
	index int
}

// columns lists the displayable fields of struct type t.
func columns(t reflect.Type, wide bool) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("table")
		if tag == "-" || (tag == "wide" && !wide) {
			continue
		}

		name := field.Name
		if jsonName, _, _ := strings.Cut(field.Tag.Get("json"), ","); jsonName == "-" {
			continue
		} else if jsonName != "" {
			name = jsonName
		}
		cols = append(cols, column{name: name, index: i})
	}
	return cols
}

func toTable(v reflect.Value, wide bool) (*Table, bool) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return &Table{}, true
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		table := &Table{Headers: []string{"FIELD", "VALUE"}}
		for _, c := range columns(v.Type(), wide) {
			table.AddRow(c.name, formatValue(v.Field(c.index)))
		}
		return table, true

	case reflect.Slice, reflect.Array:
		elem := v.Type().Elem()
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			table := &Table{Headers: []string{"VALUE"}}
			for i := 0; i < v.Len(); i++ {
				table.AddRow(formatValue(v.Index(i)))
			}
			return table, true
		}

		cols := columns(elem, wide)
		table := &Table{}
		for _, c := range cols {
			table.Headers = append(table.Headers, strings.ToUpper(c.name))
		}
		for i := 0; i < v.Len(); i++ {
			row := reflect.Indirect(v.Index(i))
			cells := make([]string, len(cols))
			for j, c := range cols {
				if row.IsValid() {
					cells[j] = formatValue(row.Field(c.index))
				}
			}
			table.AddRow(cells...)
		}
		return table, true

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		table := &Table{Headers: []string{"KEY", "VALUE"}}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			table.AddRow(k.String(), formatValue(v.MapIndex(k)))
		}
		return table, true
	}
	return nil, false
}

var timeType = reflect.TypeOf(time.Time{})

// formatValue formats a scalar cell. Unset values render as "-".
func formatValue(v reflect.Value) string {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return "-"
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}

	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
		return v.String()
	case reflect.Bool:
		return fmt.Sprintf("%t", v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", v.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%g", v.Float())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		if (v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.Len() == 0 {
			return "-"
		}
		// Nested values are shown inline as compact JSON.
		raw, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(raw)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table with options.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}
