package record

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/excelthedev/Plural-health/pkg/pagination"
)

const (
	exportSheet    = "Records"
	exportPageSize = pagination.MaxLimit
)

// ExportHeader is the first row of the records workbook.
var ExportHeader = []string{
	"Date",
	"Time",
	"Patient Name",
	"Patient Code",
	"Phone",
	"Clinic",
	"Status",
	"Appointment Type",
	"Urgent",
	"Cost",
	"Payment Status",
	"Wallet Balance",
	"Currency",
	"Facility",
}

var exportColumnWidths = []float64{14, 10, 28, 16, 18, 22, 20, 18, 8, 12, 16, 16, 10, 32}

func exportRow(r Record) []interface{} {
	urgent := "No"
	if r.IsUrgent {
		urgent = "Yes"
	}
	return []interface{}{
		r.FormattedDate,
		r.FormattedTime,
		r.PatientName,
		r.PatientCode,
		r.PatientPhone,
		r.Clinic,
		r.Status,
		r.AppointmentType,
		urgent,
		r.Cost,
		r.PaymentStatus,
		r.WalletBalance,
		r.Currency,
		r.FacilityName,
	}
}

// Export writes every record matching q to w as an xlsx workbook, reading
// the store one page at a time. It returns the number of data rows.
func (s *Service) Export(ctx context.Context, q Query, w io.Writer) (int, error) {
	filter, err := s.normalize(q)
	if err != nil {
		return 0, err
	}

	f, err := newExportWorkbook()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	row := 2
	for page := 1; ; page++ {
		filter.Page = pagination.New(page, exportPageSize)
		res, err := s.list(ctx, filter)
		if err != nil {
			return 0, err
		}
		for _, rec := range res.Records {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return 0, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			values := exportRow(rec)
			if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
				return 0, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
		if !res.Pagination.HasNextPage {
			break
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	n := row - 2
	s.metrics.RecordExportsTotal.Inc()
	s.logger.Info().Int("rows", n).Msg("records exported")
	return n, nil
}

// newExportWorkbook creates the workbook with a styled, frozen header row.
func newExportWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(exportSheet, name, name, exportColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}
	return f, nil
}
