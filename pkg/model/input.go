package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"go.uber.org/multierr"
)

const (
	UnknownTeacher  = "Unknown"
	ExternalTeacher = "External_Faculty"
	OnlineRoom      = "Online"

	onlineCapacity = 9999
	virtualType    = "virtual"
)

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var validate = validator.New()

//** Raw records as they come from CSV files or JSON documents

type RawRoom struct {
	Name     string `csv:"room" mapstructure:"room" validate:"required"`
	Capacity string `csv:"capacity" mapstructure:"capacity" validate:"required,numeric"`
	Type     string `csv:"type" mapstructure:"type"`
}

type RawTeacherCourse struct {
	Course  string `csv:"course_code" mapstructure:"course_code" validate:"required"`
	Teacher string `csv:"teacher_id" mapstructure:"teacher_id" validate:"required"`
}

type RawCourseSection struct {
	Course            string `csv:"course_code" mapstructure:"course_code" validate:"required"`
	Section           string `csv:"section" mapstructure:"section" validate:"required,numeric"`
	Enrollment        string `csv:"enrollment_count" mapstructure:"enrollment_count" validate:"required,numeric"`
	LectureHours      string `csv:"lecture_hour" mapstructure:"lecture_hour" validate:"required,numeric"`
	LabHours          string `csv:"lab_hour" mapstructure:"lab_hour" validate:"required,numeric"`
	LectureOnline     string `csv:"lec_online" mapstructure:"lec_online"`
	LabOnline         string `csv:"lab_online" mapstructure:"lab_online"`
	Optional          string `csv:"optional" mapstructure:"optional"`
	RequireAILab      string `csv:"require_lab_ai" mapstructure:"require_lab_ai"`
	RequireNetworkLab string `csv:"require_lab_network" mapstructure:"require_lab_network"`
}

type RawTeacher struct {
	Id               string `csv:"teacher_id" mapstructure:"teacher_id" validate:"required"`
	UnavailableTimes string `csv:"unavailable_times" mapstructure:"unavailable_times"`
}

type RawUnavailability struct {
	Teacher string `csv:"teacher_id" mapstructure:"teacher_id" validate:"required"`
	Day     string `csv:"day" mapstructure:"day" validate:"required"`
	Start   string `csv:"start" mapstructure:"start" validate:"required"`
	End     string `csv:"end" mapstructure:"end" validate:"required"`
}

type RawFixedSession struct {
	Day          string `csv:"day" mapstructure:"day" validate:"required"`
	Course       string `csv:"course_code" mapstructure:"course_code" validate:"required"`
	Section      string `csv:"section" mapstructure:"section" validate:"required,numeric"`
	Room         string `csv:"room" mapstructure:"room" validate:"required"`
	Start        string `csv:"start" mapstructure:"start" validate:"required"`
	LectureHours string `csv:"lecture_hour" mapstructure:"lecture_hour" validate:"omitempty,numeric"`
	LabHours     string `csv:"lab_hour" mapstructure:"lab_hour" validate:"omitempty,numeric"`
}

type RawInput struct {
	Rooms          []RawRoom           `mapstructure:"rooms"`
	TeacherCourses []RawTeacherCourse  `mapstructure:"teacher_courses"`
	Courses        []RawCourseSection  `mapstructure:"courses"`
	Teachers       []RawTeacher        `mapstructure:"teachers"`
	Unavailability []RawUnavailability `mapstructure:"unavailability"`
	Fixed          []RawFixedSession   `mapstructure:"fixed"`
}

//** Processed input

type Room struct {
	Name     string
	Capacity int
	Type     string
}

// Virtual rooms host online sessions and never conflict
func (room Room) Virtual() bool {
	return room.Name == OnlineRoom
}

func (room Room) IsLab() bool {
	return strings.Contains(strings.ToLower(room.Type), "lab")
}

// BlockedRange is a structured unavailability record: the half-open interval [Start, End) of Day
type BlockedRange struct {
	Day   string
	Start Clock
	End   Clock
}

type Teacher struct {
	Id          string
	Unavailable []string // Free-text entries such as "Mon 10:00-12:00"
	Blocked     []BlockedRange
}

type CourseSection struct {
	Course            string
	Section           int
	Enrollment        int
	LectureHours      float64
	LabHours          float64
	LectureOnline     bool
	LabOnline         bool
	Optional          bool
	RequireAILab      bool
	RequireNetworkLab bool
}

type FixedSession struct {
	Course   string
	Section  int
	Type     SessionType
	Room     string
	Day      string
	Start    Clock
	Duration int
}

type Input struct {
	Rooms          []Room
	Teachers       map[string]Teacher
	TeacherCourses map[string][]string // Course code to its deduplicated, sorted teacher ids
	Courses        []CourseSection
	Fixed          []FixedSession

	// Warnings combines every SkippedRecordError found while processing
	Warnings error
}

// Room looks up a room by name
func (input Input) Room(name string) (Room, bool) {
	return lo.Find(input.Rooms, func(room Room) bool { return room.Name == name })
}

func (input Input) CourseSection(course string, section int) (CourseSection, bool) {
	return lo.Find(input.Courses, func(c CourseSection) bool { return c.Course == course && c.Section == section })
}

func InputFromJson(file string) (Input, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrMissingSource, err)
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return Input{}, err
	}

	var rawInput RawInput
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rawInput,
	})
	if err != nil {
		return Input{}, err
	}
	if err := decoder.Decode(inputJson); err != nil {
		return Input{}, err
	}
	return ProcessRawInput(rawInput), nil
}

// ProcessRawInput normalizes raw records. Malformed records are skipped and reported through Input.Warnings.
func ProcessRawInput(rawInput RawInput) Input {
	p := inputProcessor{
		input: Input{
			Teachers:       make(map[string]Teacher),
			TeacherCourses: make(map[string][]string),
		},
	}
	p.processRooms(rawInput.Rooms)
	p.processTeacherCourses(rawInput.TeacherCourses)
	p.processTeachers(rawInput.Teachers, rawInput.Unavailability)
	p.processCourses(rawInput.Courses)
	p.processFixed(rawInput.Fixed)
	return p.input
}

type inputProcessor struct {
	input Input
}

func (p *inputProcessor) skip(source string, index int, reason any) {
	p.input.Warnings = multierr.Append(p.input.Warnings, &SkippedRecordError{
		Source: source,
		Row:    index + 1,
		Reason: fmt.Sprint(reason),
	})
}

func (p *inputProcessor) processRooms(rawRooms []RawRoom) {
	for i, raw := range rawRooms {
		if err := validate.Struct(raw); err != nil {
			p.skip("rooms", i, err)
			continue
		}
		name := strings.TrimSpace(raw.Name)
		if name == OnlineRoom {
			p.skip("rooms", i, "the online room is reserved")
			continue
		}
		if _, ok := p.input.Room(name); ok {
			p.skip("rooms", i, fmt.Sprintf("duplicate room %q", name))
			continue
		}
		capacity, _ := strconv.ParseFloat(raw.Capacity, 64)
		p.input.Rooms = append(p.input.Rooms, Room{
			Name:     name,
			Capacity: int(capacity),
			Type:     strings.TrimSpace(raw.Type),
		})
	}
	p.input.Rooms = append(p.input.Rooms, Room{Name: OnlineRoom, Capacity: onlineCapacity, Type: virtualType})
}

func (p *inputProcessor) processTeacherCourses(rawTeacherCourses []RawTeacherCourse) {
	for i, raw := range rawTeacherCourses {
		if err := validate.Struct(raw); err != nil {
			p.skip("teacher_courses", i, err)
			continue
		}
		course := strings.TrimSpace(raw.Course)
		p.input.TeacherCourses[course] = append(p.input.TeacherCourses[course], strings.TrimSpace(raw.Teacher))
	}
	for course, teachers := range p.input.TeacherCourses {
		teachers = lo.Uniq(teachers)
		slices.Sort(teachers)
		p.input.TeacherCourses[course] = teachers
	}
}

func (p *inputProcessor) processTeachers(rawTeachers []RawTeacher, rawUnavailability []RawUnavailability) {
	for i, raw := range rawTeachers {
		if err := validate.Struct(raw); err != nil {
			p.skip("teachers", i, err)
			continue
		}
		id := strings.TrimSpace(raw.Id)
		teacher := p.input.Teachers[id]
		teacher.Id = id
		if text := strings.TrimSpace(raw.UnavailableTimes); text != "" {
			teacher.Unavailable = append(teacher.Unavailable, text)
		}
		p.input.Teachers[id] = teacher
	}

	for i, raw := range rawUnavailability {
		if err := validate.Struct(raw); err != nil {
			p.skip("teacher_unavailability", i, err)
			continue
		}
		start, err := ParseClock(raw.Start)
		if err != nil {
			p.skip("teacher_unavailability", i, err)
			continue
		}
		end, err := ParseClock(raw.End)
		if err != nil {
			p.skip("teacher_unavailability", i, err)
			continue
		}
		if start >= end {
			p.skip("teacher_unavailability", i, "start must precede end")
			continue
		}
		id := strings.TrimSpace(raw.Teacher)
		teacher := p.input.Teachers[id]
		teacher.Id = id
		teacher.Blocked = append(teacher.Blocked, BlockedRange{Day: strings.TrimSpace(raw.Day), Start: start, End: end})
		p.input.Teachers[id] = teacher
	}
}

func (p *inputProcessor) processCourses(rawCourses []RawCourseSection) {
	for i, raw := range rawCourses {
		if err := validate.Struct(raw); err != nil {
			p.skip("courses", i, err)
			continue
		}
		section, err := parseInteger("section", raw.Section, 1)
		if err != nil {
			p.skip("courses", i, err)
			continue
		}
		enrollment, err := parseInteger("enrollment_count", raw.Enrollment, 0)
		if err != nil {
			p.skip("courses", i, err)
			continue
		}
		lectureHours, _ := strconv.ParseFloat(raw.LectureHours, 64)
		labHours, _ := strconv.ParseFloat(raw.LabHours, 64)
		if lectureHours < 0 || labHours < 0 {
			p.skip("courses", i, "negative hours")
			continue
		}

		course := CourseSection{
			Course:            strings.TrimSpace(raw.Course),
			Section:           section,
			Enrollment:        enrollment,
			LectureHours:      lectureHours,
			LabHours:          labHours,
			LectureOnline:     parseFlag(raw.LectureOnline, false),
			LabOnline:         parseFlag(raw.LabOnline, false),
			Optional:          parseFlag(raw.Optional, true),
			RequireAILab:      parseFlag(raw.RequireAILab, false),
			RequireNetworkLab: parseFlag(raw.RequireNetworkLab, false),
		}
		if _, ok := p.input.CourseSection(course.Course, course.Section); ok {
			p.skip("courses", i, fmt.Sprintf("duplicate section %v-%d", course.Course, course.Section))
			continue
		}
		p.input.Courses = append(p.input.Courses, course)
	}
}

func (p *inputProcessor) processFixed(rawFixed []RawFixedSession) {
	for i, raw := range rawFixed {
		if err := validate.Struct(raw); err != nil {
			p.skip("fixed", i, err)
			continue
		}
		day := strings.TrimSpace(raw.Day)
		if len(day) >= 3 {
			day = day[:3]
		}
		if !lo.ContainsBy(weekdays, func(weekday string) bool { return strings.EqualFold(weekday, day) }) {
			p.skip("fixed", i, fmt.Sprintf("unknown day %q", raw.Day))
			continue
		}
		room := strings.TrimSpace(raw.Room)
		if _, ok := p.input.Room(room); !ok {
			p.skip("fixed", i, fmt.Sprintf("unknown room %q", room))
			continue
		}
		start, err := ParseClock(raw.Start)
		if err != nil {
			p.skip("fixed", i, err)
			continue
		}
		section, err := parseInteger("section", raw.Section, 1)
		if err != nil {
			p.skip("fixed", i, err)
			continue
		}
		lectureHours, _ := strconv.ParseFloat(raw.LectureHours, 64)
		labHours, _ := strconv.ParseFloat(raw.LabHours, 64)

		sessions := 0
		for _, session := range []struct {
			sessionType SessionType
			hours       float64
		}{{Lecture, lectureHours}, {Lab, labHours}} {
			if session.hours <= 0 {
				continue
			}
			p.input.Fixed = append(p.input.Fixed, FixedSession{
				Course:   strings.TrimSpace(raw.Course),
				Section:  section,
				Type:     session.sessionType,
				Room:     room,
				Day:      day,
				Start:    start,
				Duration: slotsFor(session.hours),
			})
			sessions++
		}
		if sessions == 0 {
			p.skip("fixed", i, "no lecture or lab hours")
		}
	}
}

// Integer fields are never truncated: spreadsheet style "30.0" is accepted, "30.7" is rejected
func parseInteger(field, text string, minimum int) (int, error) {
	text = strings.TrimSpace(text)
	value, err := strconv.Atoi(text)
	if err != nil {
		number, floatErr := strconv.ParseFloat(text, 64)
		if floatErr != nil || number != math.Trunc(number) || math.Abs(number) > math.MaxInt32 {
			return 0, fmt.Errorf("%v must be an integer, got %q", field, text)
		}
		value = int(number)
	}
	if value < minimum {
		return 0, fmt.Errorf("%v must be at least %d, got %d", field, minimum, value)
	}
	return value, nil
}

// Reads 0/1 style flags; empty cells fall back to the given default
func parseFlag(text string, fallback bool) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	if number, err := strconv.ParseFloat(text, 64); err == nil {
		return number == 1
	}
	if flag, err := strconv.ParseBool(text); err == nil {
		return flag
	}
	return fallback
}
