// Package export writes the student register as an OOXML workbook with the enhanced
// fingerprints embedded as pictures.
package export

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/fingerprint-enhancer/internal/records"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Student Data"
	FileName    = "student_data_with_images.xlsx"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	imageColumnWidth = 25
	dataRowHeight    = 120
	pictureSize      = 100 // rendered picture edge in pixels
	firstImageColumn = 4   // column D
)

var Headers = []string{"Sign No", "Name", "Student ID", "Enhance 1", "Enhance 2", "Enhance 3"}

// Spreadsheet renders one header row plus one row per record. Record i is written to row i+2,
// its images to columns D to F. Empty slots leave the cell blank.
func Spreadsheet(studentRecords []records.StudentRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("Spreadsheet: failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &Headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	if err := f.SetColWidth(SheetName, "D", "F", imageColumnWidth); err != nil {
		return nil, fmt.Errorf("failed to set image column width: %w", err)
	}

	for index, record := range studentRecords {
		if err := writeRecord(f, index, record); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", records.SignNo(index), err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	slog.Info("Spreadsheet: workbook exported",
		"records", len(studentRecords),
		"size_bytes", buf.Len())

	return buf.Bytes(), nil
}

func writeRecord(f *excelize.File, index int, record records.StudentRecord) error {
	row := index + 2
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := []any{records.SignNo(index), record.Name, record.StudentID}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return err
	}
	if err := f.SetRowHeight(SheetName, row, dataRowHeight); err != nil {
		return err
	}

	for slot, img := range record.Slots {
		if img == nil {
			continue
		}
		data, err := img.EncodePNG()
		if err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(firstImageColumn+slot, row)
		if err != nil {
			return err
		}
		err = f.AddPictureFromBytes(SheetName, cell, &excelize.Picture{
			Extension: ".png",
			File:      data,
			Format: &excelize.GraphicOptions{
				ScaleX:      float64(pictureSize) / float64(img.Width()),
				ScaleY:      float64(pictureSize) / float64(img.Height()),
				Positioning: "oneCell",
				AltText:     fmt.Sprintf("%s enhanced fingerprint %d", record.Name, slot+1),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to embed image %d at %s: %w", slot+1, cell, err)
		}
	}
	return nil
}
