package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/coursescheduler/pkg/model"
)

// WriteTimetable writes the scheduled rows to <dir>/<name>.csv and the unscheduled tasks to
// <dir>/<name>_unscheduled.csv, returning both paths.
func WriteTimetable(timetable model.Timetable, dir, name string, delimiter rune) ([]string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("cannot create output directory %v: %w", dir, err)
	}

	scheduledPath := filepath.Join(dir, name+".csv")
	if err := writeFile(scheduledPath, &timetable.Scheduled, delimiter); err != nil {
		return nil, err
	}

	unscheduledPath := filepath.Join(dir, name+"_unscheduled.csv")
	if err := writeFile(unscheduledPath, &timetable.Unscheduled, delimiter); err != nil {
		return nil, err
	}
	return []string{scheduledPath, unscheduledPath}, nil
}

// ExportString renders the scheduled rows as CSV text
func ExportString(timetable model.Timetable) (string, error) {
	return exportString(&timetable.Scheduled)
}

func ExportUnscheduledString(timetable model.Timetable) (string, error) {
	return exportString(&timetable.Unscheduled)
}

func exportString(rows any) (string, error) {
	var out strings.Builder
	if err := marshal(rows, &out, ','); err != nil {
		return "", err
	}
	return out.String(), nil
}

func writeFile(path string, rows any, delimiter rune) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %v: %w", path, err)
	}
	defer out.Close()

	if err := marshal(rows, out, delimiter); err != nil {
		return fmt.Errorf("cannot write %v: %w", path, err)
	}
	return nil
}

// Each call builds its own writer so concurrent exports never share a delimiter
func marshal(rows any, out io.Writer, delimiter rune) error {
	writer := csv.NewWriter(out)
	writer.Comma = delimiter
	return gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(writer))
}
