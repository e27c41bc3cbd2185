// Package export renders program weeks as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"fitcoach/backend/internal/domain"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Header is the first row of every sheet.
var Header = []string{"Day", "Weekday", "Block Order", "Block", "Block Type", "Exercise", "Sets", "Reps", "Time", "Type"}

// WeekWorkbook renders every week of doc into its own sheet named "Week N",
// one row per exercise. Blocks without exercises still get a row.
func WeekWorkbook(doc domain.ProgramDocument) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	weeks := doc.Weeks
	if len(weeks) == 0 {
		weeks = []domain.DocumentWeek{{WeekNumber: 1}}
	}

	for i, week := range weeks {
		sheet := fmt.Sprintf("Week %d", week.WeekNumber)
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		if err := writeWeek(f, sheet, week, headerStyle); err != nil {
			return nil, fmt.Errorf("write %s: %w", sheet, err)
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{Title: doc.Title, Description: doc.Description}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func writeWeek(f *excelize.File, sheet string, week domain.DocumentWeek, headerStyle int) error {
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	row := 2
	for _, day := range week.Days {
		for order, block := range day.Blocks {
			prefix := []interface{}{day.DayNumber, domain.NormalizeWeekday(day.DayNumber), order + 1, block.Title, string(block.Type)}
			if len(block.Exercises) == 0 {
				if err := setRow(f, sheet, row, prefix); err != nil {
					return err
				}
				row++
				continue
			}
			for _, ex := range block.Exercises {
				values := append(append([]interface{}{}, prefix...), ex.Name, ex.Sets, optionalInt(ex.Reps), optionalDuration(ex.Time), string(ex.Type))
				if err := setRow(f, sheet, row, values); err != nil {
					return err
				}
				row++
			}
		}
	}

	return f.SetColWidth(sheet, "A", "J", 14)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalDuration(d *domain.Duration) interface{} {
	if d == nil {
		return ""
	}
	return d.String()
}
