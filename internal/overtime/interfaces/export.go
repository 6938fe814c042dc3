package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	overtime "venue-timers/internal/overtime/domain"
)

const recordTimeLayout = "2006-01-02 15:04"

// BuildOvertimePDF renders a one-page daily overtime report.
func BuildOvertimePDF(summary overtime.Summary, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Overtime Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", summary.PeriodKey))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total overtime (min): %d", summary.TotalMinutes))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Station", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Sessions", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Minutes", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, total := range summary.Stations {
		pdf.CellFormat(50, 6, total.StationName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", total.Sessions), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", total.Minutes), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Station", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Source", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Minutes", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, rec := range summary.Records {
		pdf.CellFormat(40, 6, rec.Timestamp.Format(recordTimeLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, rec.StationName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, string(rec.Source), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", rec.OvertimeMinutes), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildOvertimeXLSX renders a workbook with a per-station sheet and a record sheet.
func BuildOvertimeXLSX(summary overtime.Summary, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	recordsSheet := "records"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Overtime Report")
	_ = f.SetCellValue(summarySheet, "A3", "Period")
	_ = f.SetCellValue(summarySheet, "B3", summary.PeriodKey)
	_ = f.SetCellValue(summarySheet, "A4", "Generated")
	_ = f.SetCellValue(summarySheet, "B4", generatedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "Total Minutes")
	_ = f.SetCellValue(summarySheet, "B5", summary.TotalMinutes)

	_ = f.SetCellValue(summarySheet, "A7", "Station ID")
	_ = f.SetCellValue(summarySheet, "B7", "Station")
	_ = f.SetCellValue(summarySheet, "C7", "Sessions")
	_ = f.SetCellValue(summarySheet, "D7", "Minutes")
	for i, total := range summary.Stations {
		row := i + 8
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), total.StationID)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), total.StationName)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), total.Sessions)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), total.Minutes)
	}

	_ = f.SetCellValue(recordsSheet, "A1", "Time")
	_ = f.SetCellValue(recordsSheet, "B1", "Station ID")
	_ = f.SetCellValue(recordsSheet, "C1", "Station")
	_ = f.SetCellValue(recordsSheet, "D1", "Session")
	_ = f.SetCellValue(recordsSheet, "E1", "Source")
	_ = f.SetCellValue(recordsSheet, "F1", "Minutes")
	for i, rec := range summary.Records {
		row := i + 2
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("A%d", row), rec.Timestamp.Format(recordTimeLayout))
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("B%d", row), rec.StationID)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("C%d", row), rec.StationName)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("D%d", row), rec.SessionID)
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("E%d", row), string(rec.Source))
		_ = f.SetCellValue(recordsSheet, fmt.Sprintf("F%d", row), rec.OvertimeMinutes)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
