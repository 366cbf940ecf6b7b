package parser

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	perrors "github.com/procsight/procsight/pkg/errors"
)

// XLSXReader parses Excel XLSX files via excelize.
type XLSXReader struct {
	cfg Config
}

// NewXLSXReader creates a new XLSX reader.
func NewXLSXReader(cfg Config) *XLSXReader {
	return &XLSXReader{cfg: cfg}
}

// Read reads the first sheet into a table. The first row is the header.
func (p *XLSXReader) Read(ctx context.Context, r io.Reader) (*Table, error) {
	xlFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeInvalidFormat, "failed to open xlsx")
	}
	defer xlFile.Close()

	sheetName := xlFile.GetSheetName(0)
	if sheetName == "" {
		sheetList := xlFile.GetSheetList()
		if len(sheetList) == 0 {
			return nil, perrors.New(perrors.CodeInvalidFormat, "no sheets found in xlsx file")
		}
		sheetName = sheetList[0]
	}

	// Streaming row reader for memory efficiency
	rows, err := xlFile.Rows(sheetName)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeInvalidFormat, "failed to read rows")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, perrors.New(perrors.CodeInvalidFormat, "xlsx file is empty")
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeInvalidFormat, "failed to read header")
	}

	table := &Table{Header: header, Rows: make([][]string, 0, 1024)}

	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, perrors.New(perrors.CodeContextCanceled, "read canceled")
		default:
		}

		cells, err := rows.Columns()
		if err != nil {
			return nil, perrors.Wrap(err, perrors.CodeInvalidFormat, "failed to read row")
		}
		if len(cells) == 0 {
			continue
		}
		table.Rows = append(table.Rows, cells)
	}

	return table, nil
}
