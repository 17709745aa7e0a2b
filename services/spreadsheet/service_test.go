package sheetsvc

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ratiba/core/timetable"
)

func TestReadGridCSV(t *testing.T) {
	in := strings.NewReader("Mon,-,MATH101,-\nTue,-,-\n")

	grid, err := ReadGrid(in, "timetable.CSV")
	if err != nil {
		t.Fatalf("ReadGrid() error = %v", err)
	}
	want := timetable.Grid{
		{"Mon", "-", "MATH101", "-"},
		{"Tue", "-", "-"}, // widths are validated downstream
	}
	if !reflect.DeepEqual(grid, want) {
		t.Errorf("ReadGrid() = %v, want %v", grid, want)
	}
}

func TestReadGridXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	_ = f.SetSheetRow(sheet, "A1", &[]string{"Mon", "-", "MATH101"})
	_ = f.SetSheetRow(sheet, "A2", &[]string{"Tue", "PHY205", "-"})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("building xlsx fixture: %v", err)
	}

	grid, err := ReadGrid(&buf, "timetable.xlsx")
	if err != nil {
		t.Fatalf("ReadGrid() error = %v", err)
	}
	want := timetable.Grid{
		{"Mon", "-", "MATH101"},
		{"Tue", "PHY205", "-"},
	}
	if !reflect.DeepEqual(grid, want) {
		t.Errorf("ReadGrid() = %v, want %v", grid, want)
	}
}

func TestReadGridUnsupported(t *testing.T) {
	if _, err := ReadGrid(strings.NewReader("x"), "timetable.pdf"); err != ErrUnsupportedFormat {
		t.Errorf("ReadGrid() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestWriteReportCSV(t *testing.T) {
	rpt := timetable.Report{
		Name:   "batch",
		Header: []string{"id", "student_name", "batch"},
		Rows: [][]string{
			{"2200031234", "Asha Patel", "Y22"},
			{"9999999999", "No Batch", "Unknown"},
		},
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, rpt, FormatCSV); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	want := "id,student_name,batch\n2200031234,Asha Patel,Y22\n9999999999,No Batch,Unknown\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteReport() = %q, want %q", got, want)
	}
}

func TestWriteReportXLSX(t *testing.T) {
	rpt := timetable.Report{
		Name:   "availability",
		Header: []string{"id", "status"},
		Rows:   [][]string{{"2200031234", "Busy"}},
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, rpt, FormatXLSX); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reading back xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("availability")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	want := [][]string{
		{"id", "status"},
		{"2200031234", "Busy"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("GetRows() = %v, want %v", rows, want)
	}
}

func TestWriteReportUnsupported(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, timetable.Report{}, "pdf"); err != ErrUnsupportedFormat {
		t.Errorf("WriteReport() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		rpt    timetable.Report
		format string
		want   string
	}{
		{"simple", timetable.Report{Name: "batch"}, FormatCSV, "batch.csv"},
		{"spaces and case", timetable.Report{Name: "Course Listing"}, FormatXLSX, "course_listing.xlsx"},
		{"unnamed", timetable.Report{}, FormatCSV, "report.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.rpt, tt.format); got != tt.want {
				t.Errorf("Filename() = %v, want %v", got, tt.want)
			}
		})
	}
}
