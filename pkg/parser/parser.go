// Package parser provides readers for tabular process mining inputs
// (CSV, XES, XLSX). Readers produce a raw table projection; semantic
// interpretation of columns happens during ingestion.
package parser

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	perrors "github.com/procsight/procsight/pkg/errors"
)

// Table is the raw tabular projection of an input file. Rows may be
// shorter than the header when trailing fields are absent.
type Table struct {
	Header []string
	Rows   [][]string
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Field returns the value of a row at a column position, or "" when the
// row is too short.
func (t *Table) Field(row, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Reader reads an input stream into a raw table. Implementations must
// respect context cancellation.
type Reader interface {
	Read(ctx context.Context, r io.Reader) (*Table, error)
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXES
	FormatXLSX
	FormatParquet
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXES:
		return "xes"
	case FormatXLSX:
		return "xlsx"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV
	case "xes":
		return FormatXES
	case "xlsx", "excel":
		return FormatXLSX
	case "parquet", "pq":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// DetectFormat determines the input format from the file extension,
// honoring an explicit override first.
func DetectFormat(path, override string) Format {
	if override != "" {
		return ParseFormat(override)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xes":
		return FormatXES
	case ".xlsx":
		return FormatXLSX
	case ".parquet":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// Config holds common reader configuration.
type Config struct {
	// BufferSize is the size of the read buffer in bytes.
	BufferSize int

	// Delimiter is the field delimiter for CSV (default: comma).
	Delimiter byte
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 64 * 1024,
		Delimiter:  ',',
	}
}

// NewReader creates a reader for the given format. Parquet inputs are
// read through the DuckDB engine, not here.
func NewReader(format Format, cfg Config) (Reader, error) {
	switch format {
	case FormatCSV:
		return NewCSVReader(cfg), nil
	case FormatXES:
		return NewXESReader(cfg), nil
	case FormatXLSX:
		return NewXLSXReader(cfg), nil
	default:
		return nil, perrors.New(perrors.CodeInvalidFormat, "unsupported input format").
			WithContext("format", format.String())
	}
}
