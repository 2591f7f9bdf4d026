// Package reports renders admin exports.
package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"quickearn/internal/models"
)

// ClicksSheet is the worksheet name of the clicks report.
const ClicksSheet = "Clicks"

// ClicksHeaders is the header row of the clicks report.
var ClicksHeaders = []string{"Click ID", "User ID", "App", "Status", "Timestamp (UTC)", "Referrer ID", "Own Referral", "Link Kind"}

// WriteClicksReport writes clicks as an xlsx workbook to w.
func WriteClicksReport(w io.Writer, clicks []models.Click) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ClicksSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1") // Delete default sheet
	f.SetActiveSheet(index)

	for i, header := range ClicksHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(ClicksSheet, cell, header)
	}

	rowIndex := 2
	for _, c := range clicks {
		f.SetCellValue(ClicksSheet, fmt.Sprintf("A%d", rowIndex), c.ID)
		if c.UserID.Valid {
			f.SetCellValue(ClicksSheet, fmt.Sprintf("B%d", rowIndex), c.UserID.String)
		} else {
			f.SetCellValue(ClicksSheet, fmt.Sprintf("B%d", rowIndex), "anonymous")
		}
		f.SetCellValue(ClicksSheet, fmt.Sprintf("C%d", rowIndex), c.App)
		f.SetCellValue(ClicksSheet, fmt.Sprintf("D%d", rowIndex), string(c.Status))
		f.SetCellValue(ClicksSheet, fmt.Sprintf("E%d", rowIndex), c.Timestamp.UTC().Format("2006-01-02 15:04:05"))
		if c.Meta != nil {
			f.SetCellValue(ClicksSheet, fmt.Sprintf("F%d", rowIndex), c.Meta.ReferrerID)
			f.SetCellValue(ClicksSheet, fmt.Sprintf("G%d", rowIndex), yesNo(c.Meta.UseOwnReferral))
			f.SetCellValue(ClicksSheet, fmt.Sprintf("H%d", rowIndex), c.Meta.LinkKind)
		}
		rowIndex++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
