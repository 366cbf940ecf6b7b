package parser

import (
	"bufio"
	"context"
	"io"

	perrors "github.com/procsight/procsight/pkg/errors"
)

// CSVReader implements byte-level CSV parsing without strings.Split.
// Handles quoted fields with embedded delimiters and escaped quotes.
type CSVReader struct {
	cfg Config
}

// NewCSVReader creates a new CSV reader.
func NewCSVReader(cfg Config) *CSVReader {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 64 * 1024
	}
	return &CSVReader{cfg: cfg}
}

// Read implements the Reader interface. The first non-empty line is the
// header.
func (p *CSVReader) Read(ctx context.Context, r io.Reader) (*Table, error) {
	reader := bufio.NewReaderSize(r, p.cfg.BufferSize)

	headerLine, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	headerLine = trimLineEnding(headerLine)
	if len(headerLine) == 0 {
		return nil, perrors.New(perrors.CodeInvalidFormat, "empty CSV header")
	}

	table := &Table{
		Header: fieldsToStrings(p.parseLine(headerLine)),
		Rows:   make([][]string, 0, 1024),
	}

	for {
		select {
		case <-ctx.Done():
			return nil, perrors.New(perrors.CodeContextCanceled, "read canceled")
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		line = trimLineEnding(line)
		if len(line) > 0 {
			table.Rows = append(table.Rows, fieldsToStrings(p.parseLine(line)))
		}

		if err == io.EOF {
			break
		}
	}

	return table, nil
}

// parseLine parses a CSV line using byte-level scanning.
func (p *CSVReader) parseLine(line []byte) [][]byte {
	if len(line) == 0 {
		return nil
	}

	fields := make([][]byte, 0, 16)
	delim := p.cfg.Delimiter
	start := 0
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]

		if c == '"' {
			if !inQuotes {
				inQuotes = true
			} else {
				// Check for escaped quote
				if i+1 < len(line) && line[i+1] == '"' {
					i++
				} else {
					inQuotes = false
				}
			}
		} else if c == delim && !inQuotes {
			fields = append(fields, unquoteField(line[start:i]))
			start = i + 1
		}
	}

	fields = append(fields, unquoteField(line[start:]))
	return fields
}

// unquoteField removes surrounding quotes and unescapes embedded quotes.
func unquoteField(field []byte) []byte {
	if len(field) < 2 {
		return field
	}
	if field[0] == '"' && field[len(field)-1] == '"' {
		field = field[1 : len(field)-1]
		result := make([]byte, 0, len(field))
		for i := 0; i < len(field); i++ {
			if field[i] == '"' && i+1 < len(field) && field[i+1] == '"' {
				result = append(result, '"')
				i++
			} else {
				result = append(result, field[i])
			}
		}
		return result
	}
	return field
}

// trimLineEnding removes trailing \n and \r characters.
func trimLineEnding(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

func fieldsToStrings(fields [][]byte) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
