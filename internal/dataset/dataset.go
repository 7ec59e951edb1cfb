// Package dataset loads tabular files into an in-memory, column-tagged table.
package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	// ErrNotFound indicates the dataset path does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrEmpty indicates a file without a header row.
	ErrEmpty = errors.New("no columns to parse from file")
	// ErrNoColumn indicates a lookup of a column the dataset does not have.
	ErrNoColumn = errors.New("no such column")
	// ErrNotNumeric indicates a numeric operation on a non-numeric column.
	ErrNotNumeric = errors.New("column is not numeric")
)

// Options controls how a dataset is read.
type Options struct {
	// MaxRows limits data rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for delimited text. If 0, chosen by file extension.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection; SheetIndex is 1-based.
	SheetName  string
	SheetIndex int
	// NAValues are cell texts treated as missing, in addition to "".
	NAValues []string
}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options {
	return Options{
		SheetIndex: 1,
		NAValues: []string{
			"NA", "N/A", "n/a", "NaN", "nan", "-nan", "NULL", "null", "None", "#N/A", "<NA>",
		},
	}
}

// Column describes one column of a Dataset.
type Column struct {
	Name    string
	Kind    Kind
	Missing int
	// Verbatim marks columns whose cells only make sense as written text:
	// every categorical, text or datetime column, and numeric columns that
	// needed percent or separator normalization to parse.
	Verbatim bool
}

// Dataset is a row-aligned table of named, kind-tagged columns. Typed values
// live in a gota DataFrame; the normalized cell text is kept alongside for
// grouping and display.
type Dataset struct {
	Name string
	Path string

	frame dataframe.DataFrame
	cols  []Column
	index map[string]int
	raw   [][]string // per column, "" marks a missing cell
}

// Load reads the file at path. A missing file yields an error wrapping ErrNotFound.
func Load(path string, opt Options) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	records, err := readRecords(path, opt)
	if err != nil {
		return nil, err
	}
	ds, err := FromRecords(filepath.Base(path), records, opt)
	if err != nil {
		return nil, err
	}
	ds.Path = path
	return ds, nil
}

// FromRecords builds a Dataset from raw records whose first row is the header.
func FromRecords(name string, records [][]string, opt Options) (*Dataset, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmpty
	}
	header := repairHeader(records[0])
	rows := records[1:]
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	na := make(map[string]struct{}, len(opt.NAValues))
	for _, v := range opt.NAValues {
		na[v] = struct{}{}
	}

	ds := &Dataset{
		Name:  name,
		cols:  make([]Column, len(header)),
		index: make(map[string]int, len(header)),
		raw:   make([][]string, len(header)),
	}
	ss := make([]series.Series, len(header))
	for j, colName := range header {
		vals := make([]string, len(rows))
		missing := 0
		for i, rec := range rows {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			if _, ok := na[v]; ok {
				v = ""
			}
			if v == "" {
				missing++
			}
			vals[i] = v
		}
		kind, nums := inferColumn(vals, opt)
		ss[j] = buildSeries(colName, kind, vals, nums)
		verbatim := kind != KindUnknown && (kind != KindNumeric || !plainNumbers(vals))
		ds.cols[j] = Column{Name: colName, Kind: kind, Missing: missing, Verbatim: verbatim}
		ds.index[colName] = j
		ds.raw[j] = vals
	}
	ds.frame = dataframe.New(ss...)
	if ds.frame.Err != nil {
		return nil, fmt.Errorf("build table: %w", ds.frame.Err)
	}
	return ds, nil
}

func buildSeries(name string, kind Kind, vals []string, nums []float64) series.Series {
	if kind == KindNumeric || kind == KindUnknown {
		if nums == nil {
			nums = make([]float64, len(vals))
			for i := range nums {
				nums[i] = math.NaN()
			}
		}
		return series.New(nums, series.Float, name)
	}
	strs := make([]string, len(vals))
	for i, v := range vals {
		if v == "" {
			strs[i] = "NaN"
			continue
		}
		strs[i] = v
	}
	return series.New(strs, series.String, name)
}

// repairHeader names blank headers "Unnamed: i" and suffixes duplicates ".n".
func repairHeader(in []string) []string {
	out := make([]string, len(in))
	used := make(map[string]bool, len(in))
	for i, h := range in {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// Names returns the column names in file order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns a copy of the column descriptors.
func (d *Dataset) Columns() []Column {
	out := make([]Column, len(d.cols))
	copy(out, d.cols)
	return out
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.cols[i], true
}

// Has reports whether every name is a column of the dataset.
func (d *Dataset) Has(names ...string) bool {
	return len(d.Absent(names...)) == 0
}

// Absent returns the names that are not columns of the dataset.
func (d *Dataset) Absent(names ...string) []string {
	var out []string
	for _, n := range names {
		if _, ok := d.index[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// Rows returns the number of data rows.
func (d *Dataset) Rows() int { return d.frame.Nrow() }

// Floats returns the numeric values of a column, NaN marking missing cells.
func (d *Dataset) Floats(name string) ([]float64, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	if c.Kind != KindNumeric && c.Kind != KindUnknown {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotNumeric, name, c.Kind)
	}
	return d.frame.Col(name).Float(), nil
}

// Values returns the normalized cell text of a column; "" marks a missing cell.
func (d *Dataset) Values(name string) ([]string, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	out := make([]string, len(d.raw[i]))
	copy(out, d.raw[i])
	return out, nil
}

// Unique returns the distinct non-missing values of a column in order of
// first appearance.
func (d *Dataset) Unique(name string) ([]string, error) {
	vals, err := d.Values(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// FirstTextual returns the first column, in file order, kept as written
// text. Dates and formatted numbers such as "5%" count.
func (d *Dataset) FirstTextual() (Column, bool) {
	for _, c := range d.cols {
		if c.Verbatim {
			return c, true
		}
	}
	return Column{}, false
}

// SetFloats assigns a numeric column, replacing an existing column of the
// same name or appending a new one.
func (d *Dataset) SetFloats(name string, vals []float64) error {
	if len(vals) != d.Rows() {
		return fmt.Errorf("column %s: got %d values for %d rows", name, len(vals), d.Rows())
	}
	s := series.New(vals, series.Float, name)
	frame := d.frame.Mutate(s)
	if frame.Err != nil {
		return fmt.Errorf("set column %s: %w", name, frame.Err)
	}
	raw := make([]string, len(vals))
	missing := 0
	for i, v := range vals {
		if math.IsNaN(v) {
			missing++
			continue
		}
		raw[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	d.frame = frame
	col := Column{Name: name, Kind: KindNumeric, Missing: missing}
	if i, ok := d.index[name]; ok {
		d.cols[i] = col
		d.raw[i] = raw
		return nil
	}
	d.index[name] = len(d.cols)
	d.cols = append(d.cols, col)
	d.raw = append(d.raw, raw)
	return nil
}

// Head returns up to n rows of the named columns (all columns when none are
// given) as display text.
func (d *Dataset) Head(n int, names ...string) ([]string, [][]string, error) {
	if len(names) == 0 {
		names = d.Names()
	}
	idx := make([]int, len(names))
	for k, name := range names {
		i, ok := d.index[name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoColumn, name)
		}
		idx[k] = i
	}
	if n > d.Rows() || n < 0 {
		n = d.Rows()
	}
	rows := make([][]string, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(idx))
		for k, i := range idx {
			v := d.raw[i][r]
			if v == "" {
				v = "NaN"
			}
			row[k] = v
		}
		rows[r] = row
	}
	return names, rows, nil
}
