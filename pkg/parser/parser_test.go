package parser

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	perrors "github.com/procsight/procsight/pkg/errors"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		override string
		want     Format
	}{
		{"events.csv", "", FormatCSV},
		{"EVENTS.CSV", "", FormatCSV},
		{"trace.xes", "", FormatXES},
		{"claims.xlsx", "", FormatXLSX},
		{"big.parquet", "", FormatParquet},
		{"data.txt", "", FormatUnknown},
		{"data.txt", "csv", FormatCSV},
		{"events.csv", "xes", FormatXES},
		{"data.bin", "excel", FormatXLSX},
		{"data.bin", "nope", FormatUnknown},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path, tt.override); got != tt.want {
			t.Errorf("DetectFormat(%q, %q) = %v, want %v", tt.path, tt.override, got, tt.want)
		}
	}
}

func TestNewReaderUnsupported(t *testing.T) {
	_, err := NewReader(FormatParquet, DefaultConfig())
	if perrors.CodeOf(err) != perrors.CodeInvalidFormat {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(err), perrors.CodeInvalidFormat)
	}
	if _, err := NewReader(FormatUnknown, DefaultConfig()); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCSVReaderBasic(t *testing.T) {
	input := "case_id,activity,timestamp\nA,Submit,2024-05-10 09:00:00\nB,Review,2024-05-11 10:00:00\n"

	table, err := NewCSVReader(DefaultConfig()).Read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	wantHeader := []string{"case_id", "activity", "timestamp"}
	if len(table.Header) != 3 {
		t.Fatalf("header = %v", table.Header)
	}
	for i, col := range wantHeader {
		if table.Header[i] != col {
			t.Errorf("header[%d] = %q, want %q", i, table.Header[i], col)
		}
	}
	if table.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", table.NumRows())
	}
	if table.Field(1, 1) != "Review" {
		t.Errorf("field(1,1) = %q", table.Field(1, 1))
	}
}

func TestCSVReaderQuotedFields(t *testing.T) {
	input := `id,note
A,"hello, world"
B,"she said ""hi"""
C,plain
`
	table, err := NewCSVReader(DefaultConfig()).Read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"hello, world", `she said "hi"`, "plain"}
	for i, w := range want {
		if got := table.Field(i, 1); got != w {
			t.Errorf("row %d note = %q, want %q", i, got, w)
		}
	}
}

func TestCSVReaderCRLFAndNoTrailingNewline(t *testing.T) {
	input := "id,x\r\nA,1\r\nB,2"

	table, err := NewCSVReader(DefaultConfig()).Read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if table.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", table.NumRows())
	}
	if table.Field(1, 1) != "2" {
		t.Errorf("last field = %q", table.Field(1, 1))
	}
}

func TestCSVReaderShortRowFieldAccess(t *testing.T) {
	input := "id,x,y\nA,1\n"

	table, err := NewCSVReader(DefaultConfig()).Read(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Field(0, 2); got != "" {
		t.Errorf("missing trailing field = %q, want empty", got)
	}
}

func TestCSVReaderEmptyInput(t *testing.T) {
	_, err := NewCSVReader(DefaultConfig()).Read(context.Background(), strings.NewReader(""))
	if perrors.CodeOf(err) != perrors.CodeInvalidFormat {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(err), perrors.CodeInvalidFormat)
	}
}

func TestCSVReaderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSVReader(DefaultConfig()).Read(ctx, strings.NewReader("id\nA\n"))
	if perrors.CodeOf(err) != perrors.CodeContextCanceled {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(err), perrors.CodeContextCanceled)
	}
}

const sampleXES = `<?xml version="1.0" encoding="UTF-8"?>
<log xes.version="1.0">
  <trace>
    <string key="concept:name" value="case-1"/>
    <event>
      <string key="concept:name" value="Submit"/>
      <date key="time:timestamp" value="2024-05-10T09:00:00.000+00:00"/>
      <string key="org:resource" value="alice"/>
      <string key="risk_level" value="high"/>
    </event>
    <event>
      <string key="concept:name" value="Approve"/>
      <date key="time:timestamp" value="2024-05-10T12:00:00.000+00:00"/>
      <string key="org:resource" value="bob"/>
    </event>
  </trace>
  <trace>
    <string key="concept:name" value="case-2"/>
    <event>
      <string key="concept:name" value="Submit"/>
      <date key="time:timestamp" value="2024-05-11T08:00:00.000+00:00"/>
      <string key="org:resource" value="alice"/>
    </event>
  </trace>
</log>
`

func TestXESReader(t *testing.T) {
	table, err := NewXESReader(DefaultConfig()).Read(context.Background(), strings.NewReader(sampleXES))
	if err != nil {
		t.Fatal(err)
	}

	if table.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3", table.NumRows())
	}
	if table.Header[0] != "case:concept:name" || table.Header[3] != "org:resource" {
		t.Errorf("header = %v", table.Header)
	}

	// First event of case-1
	if table.Field(0, 0) != "case-1" || table.Field(0, 1) != "Submit" || table.Field(0, 3) != "alice" {
		t.Errorf("row 0 = %v", table.Rows[0])
	}
	// case-2 inherits its trace concept:name
	if table.Field(2, 0) != "case-2" {
		t.Errorf("row 2 case id = %q", table.Field(2, 0))
	}
}

func TestXESReaderExtraAttributeColumns(t *testing.T) {
	table, err := NewXESReader(DefaultConfig()).Read(context.Background(), strings.NewReader(sampleXES))
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Header) != 5 || table.Header[4] != "risk_level" {
		t.Fatalf("header = %v, want risk_level as fifth column", table.Header)
	}
	if table.Field(0, 4) != "high" {
		t.Errorf("row 0 risk_level = %q", table.Field(0, 4))
	}
	// Events without the attribute get an empty cell.
	if table.Field(1, 4) != "" {
		t.Errorf("row 1 risk_level = %q, want empty", table.Field(1, 4))
	}
}

func TestXESReaderNotXES(t *testing.T) {
	_, err := NewXESReader(DefaultConfig()).Read(context.Background(), strings.NewReader("<html><body>nope</body></html>"))
	if perrors.CodeOf(err) != perrors.CodeInvalidFormat {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(err), perrors.CodeInvalidFormat)
	}
}

func TestXLSXReader(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]interface{}{"case_id", "activity", "timestamp"})
	f.SetSheetRow(sheet, "A2", &[]interface{}{"A", "Submit", "2024-05-10 09:00:00"})
	f.SetSheetRow(sheet, "A3", &[]interface{}{"B", "Review", "2024-05-11 10:00:00"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	table, err := NewXLSXReader(DefaultConfig()).Read(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if table.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", table.NumRows())
	}
	if table.Header[1] != "activity" || table.Field(1, 0) != "B" {
		t.Errorf("header = %v, row 1 = %v", table.Header, table.Rows[1])
	}
}

func TestXLSXReaderNotXLSX(t *testing.T) {
	_, err := NewXLSXReader(DefaultConfig()).Read(context.Background(), strings.NewReader("not a zip"))
	if perrors.CodeOf(err) != perrors.CodeInvalidFormat {
		t.Errorf("error code = %v, want %v", perrors.CodeOf(err), perrors.CodeInvalidFormat)
	}
}
