package parse

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		want Format
	}{
		{"screener.csv", FormatCSV},
		{"Screener.CSV", FormatCSV},
		{"export.xlsx", FormatWorkbook},
		{"legacy.xls", FormatWorkbook},
		{"notes.txt", FormatUnknown},
		{"noext", FormatUnknown},
	}
	for _, c := range cases {
		if got := Detect(c.name); got != c.want {
			t.Errorf("Detect(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCSVBasic(t *testing.T) {
	in := "Symbol,Date,Last,Change,P/C Vol,Options Vol,IV Rank\n" +
		"AAPL,2024-06-14,185.5,1.2,0.45,120000,62\n" +
		"TSLA,2024-06-14,178.0,-2.1,1.8,300000,88\n"

	records, err := CSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("CSV returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("CSV returned %d records, want 2", len(records))
	}

	r := records[0]
	if r.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", r.Symbol)
	}
	if r.Date != "2024-06-14" {
		t.Errorf("Date = %q, want 2024-06-14", r.Date)
	}
	if r.Last != 185.5 {
		t.Errorf("Last = %v, want 185.5", r.Last)
	}
	if r.PCVol != 0.45 {
		t.Errorf("PCVol = %v, want 0.45", r.PCVol)
	}
	if r.OptionsVol != 120000 {
		t.Errorf("OptionsVol = %v, want 120000", r.OptionsVol)
	}
	if r.IVRank != 62 {
		t.Errorf("IVRank = %v, want 62", r.IVRank)
	}
}

func TestCSVAliasHeaders(t *testing.T) {
	in := "Ticker,Price,P/C Ratio\nNVDA,950.0,0.3\n"

	records, err := CSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("CSV returned error: %v", err)
	}
	if records[0].Symbol != "NVDA" {
		t.Errorf("Ticker alias not mapped to Symbol: %+v", records[0])
	}
	if records[0].Last != 950.0 {
		t.Errorf("Price alias not mapped to Last: %+v", records[0])
	}
	if records[0].PCVol != 0.3 {
		t.Errorf("P/C Ratio alias not mapped to PCVol: %+v", records[0])
	}
}

func TestCSVQuotedFields(t *testing.T) {
	in := "Symbol,Last,Sector\n" +
		"\"BRK.B\",410.0,\"Financials, \"\"diversified\"\"\n holdings\"\n"

	records, err := CSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("CSV returned error: %v", err)
	}
	sector, ok := records[0].Field("Sector")
	if !ok {
		t.Fatal("Sector column not retained")
	}
	want := "Financials, \"diversified\"\n holdings"
	if sector != want {
		t.Errorf("Sector = %q, want %q", sector, want)
	}
}

func TestCSVShortAndBlankRows(t *testing.T) {
	in := "Symbol,Last,IV Rank\n" +
		"AAPL,185.5\n" +
		"\n" +
		"  , , \n" +
		"MSFT,420.0,55\n"

	records, err := CSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("CSV returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (blank rows skipped)", len(records))
	}
	if records[0].IVRank != 0 {
		t.Errorf("short row IVRank = %v, want 0", records[0].IVRank)
	}
}

func TestCSVEmptyFile(t *testing.T) {
	_, err := CSV(strings.NewReader(""))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("empty input should return *ParseError, got %v", err)
	}
}

func TestCSVHeaderOnly(t *testing.T) {
	_, err := CSV(strings.NewReader("Symbol,Last\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("header-only input should return *ParseError, got %v", err)
	}
	if !strings.Contains(pe.Reason, "no data rows") {
		t.Errorf("unexpected reason: %q", pe.Reason)
	}
}

func TestCSVMissingRequiredColumns(t *testing.T) {
	_, err := CSV(strings.NewReader("Date,Change\n2024-06-14,1.2\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("missing required columns should return *ParseError, got %v", err)
	}
	if !strings.Contains(pe.Reason, "Symbol and Last") {
		t.Errorf("unexpected reason: %q", pe.Reason)
	}
}

func TestCSVExtraColumnsSurvive(t *testing.T) {
	in := "Symbol,Last,Return_10d\nAAPL,185.5,5.2\n"

	records, err := CSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("CSV returned error: %v", err)
	}
	v, ok := records[0].Float("Return_10d")
	if !ok || v != 5.2 {
		t.Errorf("Float(Return_10d) = %v, %v; want 5.2, true", v, ok)
	}
	extras := records[0].ExtraColumns()
	if len(extras) != 1 || extras[0] != "Return_10d" {
		t.Errorf("ExtraColumns = %v, want [Return_10d]", extras)
	}
}

func workbookBytes(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestWorkbook(t *testing.T) {
	r := workbookBytes(t, [][]any{
		{"Ticker", "Date", "Price", "P/C Vol", "IV Rank", "Sector"},
		{"aapl", "2024-06-14", 185.5, 0.45, "62%", "Tech"},
		{"TSLA", "2024-06-14", 178.0, 1.8, 0.88, "Autos"},
	})

	records, err := Workbook(r)
	if err != nil {
		t.Fatalf("Workbook returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Workbook returned %d records, want 2", len(records))
	}

	// Aliases resolve the same way the CSV path resolves them.
	if records[0].Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", records[0].Symbol)
	}
	if records[0].Date != "2024-06-14" {
		t.Errorf("Date = %q, want 2024-06-14", records[0].Date)
	}
	if records[0].Last != 185.5 {
		t.Errorf("Last = %v, want 185.5", records[0].Last)
	}
	if records[0].PCVol != 0.45 {
		t.Errorf("PCVol = %v, want 0.45", records[0].PCVol)
	}
	// "62%" and a bare 0.88 fraction both normalize to 0-100.
	if records[0].IVRank != 62 {
		t.Errorf("IVRank = %v, want 62", records[0].IVRank)
	}
	if records[1].IVRank != 88 {
		t.Errorf("IVRank = %v, want 88", records[1].IVRank)
	}
	if sector, ok := records[0].Field("Sector"); !ok || sector != "Tech" {
		t.Errorf("Sector = %q, %v", sector, ok)
	}
}

func TestWorkbookEmptySheet(t *testing.T) {
	r := workbookBytes(t, nil)

	_, err := Workbook(r)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("empty sheet should return *ParseError, got %v", err)
	}
}

func TestWorkbookHeaderOnly(t *testing.T) {
	r := workbookBytes(t, [][]any{{"Symbol", "Last"}})

	_, err := Workbook(r)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("header-only sheet should return *ParseError, got %v", err)
	}
	if !strings.Contains(pe.Reason, "no data rows") {
		t.Errorf("unexpected reason: %q", pe.Reason)
	}
}

func TestWorkbookMissingRequiredColumns(t *testing.T) {
	r := workbookBytes(t, [][]any{
		{"Date", "Change"},
		{"2024-06-14", 1.2},
	})

	_, err := Workbook(r)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("missing required columns should return *ParseError, got %v", err)
	}
	if !strings.Contains(pe.Reason, "Symbol and Last") {
		t.Errorf("unexpected reason: %q", pe.Reason)
	}
}

func TestWorkbookNotAWorkbook(t *testing.T) {
	_, err := Workbook(strings.NewReader("Symbol,Last\nAAPL,185.5\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("non-xlsx input should return *ParseError, got %v", err)
	}
}

func TestFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("Symbol,Last\nAAPL,185.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := File(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("unsupported extension should return *ParseError, got %v", err)
	}
	if !strings.Contains(pe.Reason, "unsupported") {
		t.Errorf("unexpected reason: %q", pe.Reason)
	}
}

func TestFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screener.csv")
	if err := os.WriteFile(path, []byte("Symbol,Last\nAAPL,185.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := File(path)
	if err != nil {
		t.Fatalf("File returned error: %v", err)
	}
	if len(records) != 1 || records[0].Symbol != "AAPL" {
		t.Errorf("unexpected records: %+v", records)
	}
}
