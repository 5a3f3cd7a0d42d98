// Package export renders list pages as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Column describes one spreadsheet column.
type Column[T any] struct {
	Header string
	Width  float64
	Value  func(T) any
}

// WriteXLSX writes rows as a single-sheet workbook with a styled header row.
func WriteXLSX[T any](w io.Writer, sheet string, columns []Column[T], rows []T) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#8EA9DB", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	for i, c := range columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		cell := col + "1"
		if err := f.SetCellValue(sheet, cell, c.Header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, header); err != nil {
			return err
		}
		width := c.Width
		if width <= 0 {
			width = 14
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	for r, row := range rows {
		for i, c := range columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, c.Value(row)); err != nil {
				return fmt.Errorf("export: row %d: %w", r+1, err)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// WriteCSV writes rows as CSV. With gbk set the output is GBK encoded, which
// is what spreadsheet tools on Chinese-locale desktops expect; runes GBK
// cannot represent, such as emoji, become the substitute character.
func WriteCSV[T any](w io.Writer, columns []Column[T], rows []T, gbk bool) error {
	out := w
	var enc *transform.Writer
	if gbk {
		enc = transform.NewWriter(w, encoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder()))
		out = enc
	}

	cw := csv.NewWriter(out)
	record := make([]string, len(columns))
	for i, c := range columns {
		record[i] = c.Header
	}
	if err := cw.Write(record); err != nil {
		return err
	}
	for _, row := range rows {
		for i, c := range columns {
			record[i] = fmt.Sprint(c.Value(row))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if enc != nil {
		return enc.Close()
	}
	return nil
}

// Filename returns prefix-YYYYMMDD-HHMMSS.ext.
func Filename(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, now.Format("20060102-150405"), ext)
}

// PrometheusFilename names a scheduler metrics download.
func PrometheusFilename(now time.Time) string {
	return Filename("scheduler-metrics", "prom", now)
}

// ContentDisposition returns an attachment header value for name.
func ContentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
