package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/attendance"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
)

const sheet = "Attendance"

var header = []any{"Student ID", "Marked At", "Method", "Confidence", "Latitude", "Longitude", "Image URL"}

// WriteAttendance writes one sheet with a summary block and one row per record.
func WriteAttendance(w io.Writer, s session.Session, records []attendance.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	summary := [][]any{
		{"Session", s.Title},
		{"Course", s.CourseID},
		{"Section", s.SectionID},
		{"Date", s.Date},
		{"Time", s.StartTime + " - " + s.EndTime},
		{"Location", s.Location},
		{"Present", len(records)},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	start := len(summary) + 2
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", start), &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, start, start, bold); err != nil {
		return err
	}

	for i, rec := range records {
		row := []any{rec.StudentID, rec.MarkedAt.Format("2006-01-02 15:04:05"), string(rec.Method), "", "", "", rec.ImageURL}
		if rec.Confidence != nil {
			row[3] = *rec.Confidence
		}
		if rec.Geo != nil {
			row[4] = rec.Geo.Latitude
			row[5] = rec.Geo.Longitude
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", start+1+i), &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "G", 20); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
