// Package sheetsvc reads uploaded timetable grids and writes report exports
// in CSV and XLSX formats.
package sheetsvc

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ratiba/core/timetable"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ReadGrid parses an uploaded timetable file into a raw grid.
// The format is taken from the filename extension.
func ReadGrid(r io.Reader, filename string) (timetable.Grid, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSVGrid(r)
	case ".xlsx":
		return readXLSXGrid(r)
	}
	return nil, ErrUnsupportedFormat
}

func readCSVGrid(r io.Reader) (timetable.Grid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row widths are validated downstream

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv grid")
	}
	return rows, nil
}

func readXLSXGrid(r io.Reader) (timetable.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening xlsx grid")
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "reading xlsx grid")
	}
	return rows, nil
}

// WriteReport renders the report to w in the requested format.
func WriteReport(w io.Writer, rpt timetable.Report, format string) error {
	switch format {
	case FormatCSV:
		return writeCSVReport(w, rpt)
	case FormatXLSX:
		return writeXLSXReport(w, rpt)
	}
	return ErrUnsupportedFormat
}

func writeCSVReport(w io.Writer, rpt timetable.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(rpt.Header); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	if err := writer.WriteAll(rpt.Rows); err != nil {
		return errors.Wrap(err, "writing csv rows")
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flushing csv")
}

func writeXLSXReport(w io.Writer, rpt timetable.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if rpt.Name != "" {
		f.SetSheetName(sheet, rpt.Name)
		sheet = rpt.Name
	}

	writeRow := func(idx int, row []string) error {
		cell, err := excelize.CoordinatesToCellName(1, idx)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := writeRow(1, rpt.Header); err != nil {
		return errors.Wrap(err, "writing xlsx header")
	}
	for i, row := range rpt.Rows {
		if err := writeRow(i+2, row); err != nil {
			return errors.Wrap(err, "writing xlsx row")
		}
	}
	return errors.Wrap(f.Write(w), "writing xlsx report")
}

// Filename returns the export file name for a report in the given format.
func Filename(rpt timetable.Report, format string) string {
	name := strings.ReplaceAll(strings.ToLower(rpt.Name), " ", "_")
	if name == "" {
		name = "report"
	}
	return name + "." + format
}
