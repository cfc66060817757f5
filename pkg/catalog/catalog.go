// Package catalog resolves which missing-value pattern governs a variable,
// from a variable metadata catalogue first and naming conventions second.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Header aliases accepted for the two required catalogue columns.
var (
	variableColumns = []string{"variable", "variable_name", "name"}
	patternColumns  = []string{"missing_pattern", "missing_data_pattern", "pattern"}
)

// Catalog maps variable names to their declared pattern. Lookups ignore case.
// A Catalog is read-only after loading.
type Catalog struct {
	entries map[string]string
	source  string
}

// NewCatalog builds a catalog from a variable → pattern map. Blank patterns
// are dropped.
func NewCatalog(entries map[string]string) *Catalog {
	c := &Catalog{entries: make(map[string]string, len(entries))}
	for variable, pattern := range entries {
		c.add(variable, pattern)
	}
	return c
}

func (c *Catalog) add(variable, pattern string) {
	key := normalizeName(variable)
	pattern = strings.TrimSpace(pattern)
	if key == "" || pattern == "" {
		return
	}
	if _, exists := c.entries[key]; exists {
		return
	}
	c.entries[key] = pattern
}

// Lookup returns the declared pattern for a variable.
func (c *Catalog) Lookup(variable string) (string, bool) {
	if c == nil {
		return "", false
	}
	p, ok := c.entries[normalizeName(variable)]
	return p, ok
}

// Len returns the number of catalogued variables.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Variables lists the catalogued variable names, normalised and sorted.
func (c *Catalog) Variables() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.entries))
	for v := range c.entries {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Source names the file the catalog was read from.
func (c *Catalog) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// OpenCatalog reads a catalogue file, choosing CSV or XLSX by extension. A
// missing file is not an error: detection then relies on naming rules alone,
// and a warning is logged.
func OpenCatalog(path string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		logger.Warn("no variable catalogue configured; using naming rules only")
		return NewCatalog(nil), nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("variable catalogue not found; using naming rules only", zap.String("path", path))
			return NewCatalog(nil), nil
		}
		return nil, fmt.Errorf("checking catalogue %s: %w", path, err)
	}

	var (
		c   *Catalog
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		c, err = LoadXLSX(path)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening catalogue: %w", err)
		}
		defer f.Close()
		c, err = LoadCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalogue %s: %w", path, err)
	}

	c.source = path
	logger.Info("loaded variable catalogue", zap.String("path", path), zap.Int("variables", c.Len()))
	return c, nil
}

// LoadCSV reads a catalogue from CSV with a header row.
func LoadCSV(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty catalogue")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	varIdx, patIdx, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	c := NewCatalog(nil)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		c.add(cell(record, varIdx), cell(record, patIdx))
	}
	return c, nil
}

// LoadXLSX reads a catalogue from the first worksheet whose header row
// carries both required columns.
func LoadXLSX(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		varIdx, patIdx, err := locateColumns(rows[0])
		if err != nil {
			continue
		}
		c := NewCatalog(nil)
		for _, row := range rows[1:] {
			c.add(cell(row, varIdx), cell(row, patIdx))
		}
		return c, nil
	}
	return nil, fmt.Errorf("no worksheet has columns %q and %q", variableColumns[0], patternColumns[0])
}

func locateColumns(header []string) (varIdx, patIdx int, err error) {
	varIdx, patIdx = -1, -1
	for i, h := range header {
		h = normalizeName(strings.TrimPrefix(h, "\ufeff"))
		if varIdx < 0 && contains(variableColumns, h) {
			varIdx = i
		}
		if patIdx < 0 && contains(patternColumns, h) {
			patIdx = i
		}
	}
	if varIdx < 0 || patIdx < 0 {
		return -1, -1, fmt.Errorf("header must contain one of %v and one of %v", variableColumns, patternColumns)
	}
	return varIdx, patIdx, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
