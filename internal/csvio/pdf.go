package csvio

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/limaJavier/coursescheduler/pkg/model"
	"github.com/samber/lo"
)

var (
	scheduledHeaders   = []string{"Day", "Start", "End", "Room", "Course", "Section", "Type", "Teacher"}
	scheduledWidths    = []float64{18, 18, 18, 34, 34, 18, 20, 117}
	unscheduledHeaders = []string{"Course", "Section", "Type", "Reason"}
	unscheduledWidths  = []float64{60, 30, 30, 60}
)

// RenderPDF lays out the scheduled sessions and the unscheduled tasks as two tables on landscape A4
func RenderPDF(timetable model.Timetable, title string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	scheduled := lo.Map(timetable.Scheduled, func(session model.ScheduledSession, _ int) []string {
		return []string{
			session.Day,
			session.Start.String(),
			session.End.String(),
			session.Room,
			session.Course,
			strconv.Itoa(session.Section),
			session.Type.String(),
			session.Teacher,
		}
	})
	table(pdf, "Scheduled sessions", scheduledHeaders, scheduledWidths, scheduled)

	if len(timetable.Unscheduled) > 0 {
		pdf.Ln(6)
		unscheduled := lo.Map(timetable.Unscheduled, func(task model.UnscheduledTask, _ int) []string {
			return []string{task.Course, strconv.Itoa(task.Section), task.Type.String(), task.Reason}
		})
		table(pdf, "Unscheduled tasks", unscheduledHeaders, unscheduledWidths, unscheduled)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func WritePDF(timetable model.Timetable, path, title string) error {
	content, err := RenderPDF(timetable, title)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("cannot write %v: %w", path, err)
	}
	return nil
}

func table(pdf *gofpdf.Fpdf, caption string, headers []string, widths []float64, rows [][]string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, caption, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 9)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range rows {
		for i, value := range row {
			pdf.CellFormat(widths[i], 6, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
