package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"
	"time"
)

// TimeLayout is how times are shown in tables.
const TimeLayout = "2006-01-02 15:04 MST"

// TableFormatter renders data as aligned columns.
//
// A *Table or Table is written as is. A slice becomes one row per element,
// a struct or map becomes FIELD/VALUE rows. Anything else falls back to
// JSON.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
	// Location is the zone times are shown in; nil means UTC.
	Location *time.Location
}

func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}
	switch t := data.(type) {
	case *Table:
		return t.render(w, f.NoHeaders)
	case Table:
		return t.render(w, f.NoHeaders)
	}

	table, ok := f.toTable(reflect.ValueOf(data))
	if !ok {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return table.render(w, f.NoHeaders)
}

func (f *TableFormatter) toTable(v reflect.Value) (*Table, bool) {
	v = indirect(v)
	if !v.IsValid() {
		return &Table{}, true
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return f.sliceTable(v), true
	case reflect.Map:
		return f.mapTable(v), true
	case reflect.Struct:
		if v.Type() == timeType {
			return nil, false
		}
		return f.structTable(v), true
	}
	return nil, false
}

// column is a struct field shown in a table.
type column struct {
	index int
	name  string
}

func (f *TableFormatter) columns(t reflect.Type) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("table")
		if tag == "-" || (tag == "wide" && !f.Wide) {
			continue
		}
		cols = append(cols, column{index: i, name: fieldName(field)})
	}
	return cols
}

func (f *TableFormatter) sliceTable(v reflect.Value) *Table {
	table := &Table{}
	if v.Len() == 0 {
		return table
	}

	elemType := v.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}

	if elemType.Kind() != reflect.Struct || elemType == timeType {
		table.Headers = []string{"VALUE"}
		for i := 0; i < v.Len(); i++ {
			table.AddRow(f.cell(v.Index(i)))
		}
		return table
	}

	cols := f.columns(elemType)
	for _, c := range cols {
		table.Headers = append(table.Headers, strings.ToUpper(c.name))
	}
	for i := 0; i < v.Len(); i++ {
		elem := indirect(v.Index(i))
		row := make([]string, len(cols))
		if elem.IsValid() {
			for j, c := range cols {
				row[j] = f.cell(elem.Field(c.index))
			}
		}
		table.AddRow(row...)
	}
	return table
}

func (f *TableFormatter) mapTable(v reflect.Value) *Table {
	table := &Table{Headers: []string{"KEY", "VALUE"}}
	keys := v.MapKeys()
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{f.cell(k), f.cell(v.MapIndex(k))})
	}
	sortRows(rows)
	table.Rows = rows
	return table
}

func (f *TableFormatter) structTable(v reflect.Value) *Table {
	table := &Table{Headers: []string{"FIELD", "VALUE"}}
	for _, c := range f.columns(v.Type()) {
		table.AddRow(c.name, f.cell(v.Field(c.index)))
	}
	return table
}

var timeType = reflect.TypeOf(time.Time{})

// cell renders one value. Empty values show as "-".
func (f *TableFormatter) cell(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return "-"
	}

	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		loc := f.Location
		if loc == nil {
			loc = time.UTC
		}
		return t.In(loc).Format(TimeLayout)
	}
	if s, ok := v.Interface().(fmt.Stringer); ok && v.Kind() != reflect.String {
		return s.String()
	}

	switch v.Kind() {
	case reflect.String:
		if v.String() == "" {
			return "-"
		}
		return v.String()
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%.2f", v.Float())
	case reflect.Slice, reflect.Array:
		return f.list(v)
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return fmt.Sprintf("%+v", v.Interface())
	}
	return fmt.Sprint(v.Interface())
}

// list joins short scalar lists and counts the rest.
func (f *TableFormatter) list(v reflect.Value) string {
	if v.Len() == 0 {
		return "-"
	}
	elem := v.Type().Elem()
	if elem.Kind() != reflect.String || v.Len() > 4 {
		return fmt.Sprintf("[%d items]", v.Len())
	}
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = v.Index(i).String()
	}
	return strings.Join(parts, ",")
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// fieldName returns the json name of a field, or its Go name in
// snake_case.
func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return toSnakeCase(field.Name)
}

// toSnakeCase converts CamelCase to snake_case.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sortRows(rows [][]string) {
	slices.SortFunc(rows, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
}

// Table is pre-built tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table with headers.
func (t *Table) Render(w io.Writer) error {
	return t.render(w, false)
}

func (t *Table) render(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
