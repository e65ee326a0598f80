package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/coursescheduler/pkg/model"
	"go.uber.org/multierr"
)

// Sources names the CSV files of one scheduling instance, relative to Dir
type Sources struct {
	Dir            string
	Rooms          string
	TeacherCourses string
	Courses        []string
	Teachers       string
	Fixed          []string // Optional legacy schedules
	Unavailability string   // Optional structured unavailability
}

func DefaultSources(dir string) Sources {
	return Sources{
		Dir:            dir,
		Rooms:          "room.csv",
		TeacherCourses: "teacher_courses.csv",
		Courses:        []string{"ai_courses.csv", "cy_in_courses.csv"},
		Teachers:       "all_teachers.csv",
		Fixed:          []string{"ai_out_courses.csv", "cy_out_courses.csv"},
		Unavailability: "teacher_unavailability.csv",
	}
}

// Load reads every source into a raw input. All problems with required files are reported together,
// each wrapping model.ErrMissingSource when the file does not exist.
func Load(sources Sources, delimiter rune) (model.RawInput, error) {
	var raw model.RawInput
	var err error
	required := func(file string, out any) {
		_, loadErr := loadFile(sources.path(file), delimiter, true, out)
		err = multierr.Append(err, loadErr)
	}
	optional := func(file string, out any) bool {
		found, loadErr := loadFile(sources.path(file), delimiter, false, out)
		err = multierr.Append(err, loadErr)
		return found
	}

	required(sources.Rooms, &raw.Rooms)
	required(sources.TeacherCourses, &raw.TeacherCourses)
	required(sources.Teachers, &raw.Teachers)

	// At least one course file must exist
	loadedCourses := 0
	for _, file := range sources.Courses {
		var courses []model.RawCourseSection
		if optional(file, &courses) {
			loadedCourses++
		}
		raw.Courses = append(raw.Courses, courses...)
	}
	if loadedCourses == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: no course file found in %v", model.ErrMissingSource, sources.Dir))
	}

	for _, file := range sources.Fixed {
		var fixed []model.RawFixedSession
		optional(file, &fixed)
		raw.Fixed = append(raw.Fixed, fixed...)
	}
	if sources.Unavailability != "" {
		optional(sources.Unavailability, &raw.Unavailability)
	}

	if err != nil {
		return model.RawInput{}, err
	}
	return raw, nil
}

func (sources Sources) path(file string) string {
	return filepath.Join(sources.Dir, file)
}

// Unmarshals a CSV file into out and reports whether the file exists. A missing optional file
// leaves out untouched.
func loadFile(path string, delimiter rune, required bool, out any) (bool, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if required {
			return false, fmt.Errorf("%w: %v", model.ErrMissingSource, path)
		}
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("cannot open %v: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(reader, out); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return true, fmt.Errorf("cannot parse %v: %w", path, err)
	}
	return true, nil
}
