package model

import (
	"fmt"
	"math"
	"slices"
)

type SessionType int

const (
	Lecture SessionType = iota
	Lab
)

func (sessionType SessionType) String() string {
	if sessionType == Lab {
		return "Lab"
	}
	return "Lecture"
}

func (sessionType SessionType) MarshalCSV() (string, error) {
	return sessionType.String(), nil
}

// Short code used inside task ids
func (sessionType SessionType) code() string {
	if sessionType == Lab {
		return "Lab"
	}
	return "Lec"
}

// Task is one schedulable session
type Task struct {
	Id                string
	Course            string
	Section           int
	Type              SessionType
	Duration          int // In slots
	Students          int
	Teachers          []string
	Online            bool
	Optional          bool
	RequireAILab      bool
	RequireNetworkLab bool

	// Fixed tasks are pinned to a room, day and start time
	Fixed       bool
	LockedRoom  string
	LockedDay   string
	LockedStart Clock
}

func (task Task) Weight(weights Weights) int64 {
	switch {
	case task.Fixed:
		return weights.Fixed
	case task.Optional:
		return weights.Elective
	}
	return weights.Core
}

func IsSentinelTeacher(teacher string) bool {
	return teacher == UnknownTeacher || teacher == ExternalTeacher
}

// Number of half-hour slots covering the given hours
func slotsFor(hours float64) int {
	return int(math.Ceil(hours*2 - 1e-9))
}

type sessionKey struct {
	course      string
	section     int
	sessionType SessionType
}

// BuildTasks turns fixed sessions and course sections into tasks. Fixed sessions come first and
// reserve their session type, so the matching lecture or lab is not decomposed again.
func BuildTasks(input Input, options Options) []Task {
	tasks := make([]Task, 0)
	reserved := make(map[sessionKey]bool)

	counter := 0
	for _, fixed := range input.Fixed {
		counter++
		task := Task{
			Id:          fmt.Sprintf("%v_S%d_%v_F%d", fixed.Course, fixed.Section, fixed.Type.code(), counter),
			Course:      fixed.Course,
			Section:     fixed.Section,
			Type:        fixed.Type,
			Duration:    fixed.Duration,
			Students:    options.DefaultFixedEnrollment,
			Teachers:    teachersOf(input, fixed.Course, ExternalTeacher),
			Optional:    true,
			Fixed:       true,
			LockedRoom:  fixed.Room,
			LockedDay:   fixed.Day,
			LockedStart: fixed.Start,
		}
		if course, ok := input.CourseSection(fixed.Course, fixed.Section); ok {
			task.Students = course.Enrollment
			task.Optional = course.Optional
			task.Online = course.LectureOnline
			if fixed.Type == Lab {
				task.Online = course.LabOnline
			}
		}
		// A fixed session booked in the virtual room is online
		task.Online = task.Online || fixed.Room == OnlineRoom
		reserved[sessionKey{fixed.Course, fixed.Section, fixed.Type}] = true
		tasks = append(tasks, task)
	}

	for _, course := range input.Courses {
		teachers := teachersOf(input, course.Course, UnknownTeacher)

		if !reserved[sessionKey{course.Course, course.Section, Lecture}] {
			for i, duration := range splitLecture(slotsFor(course.LectureHours), options.MaxLectureSlots) {
				tasks = append(tasks, Task{
					Id:       fmt.Sprintf("%v_S%d_Lec_P%d", course.Course, course.Section, i+1),
					Course:   course.Course,
					Section:  course.Section,
					Type:     Lecture,
					Duration: duration,
					Students: course.Enrollment,
					Teachers: teachers,
					Online:   course.LectureOnline,
					Optional: course.Optional,
				})
			}
		}

		if labSlots := slotsFor(course.LabHours); labSlots > 0 && !reserved[sessionKey{course.Course, course.Section, Lab}] {
			tasks = append(tasks, Task{
				Id:                fmt.Sprintf("%v_S%d_Lab", course.Course, course.Section),
				Course:            course.Course,
				Section:           course.Section,
				Type:              Lab,
				Duration:          labSlots,
				Students:          course.Enrollment,
				Teachers:          teachers,
				Online:            course.LabOnline,
				Optional:          course.Optional,
				RequireAILab:      course.RequireAILab,
				RequireNetworkLab: course.RequireNetworkLab,
			})
		}
	}
	return tasks
}

// Splits a lecture into consecutive parts of at most maxSlots
func splitLecture(slots, maxSlots int) []int {
	parts := make([]int, 0)
	if maxSlots <= 0 {
		maxSlots = slots
	}
	for remaining := slots; remaining > 0; remaining -= parts[len(parts)-1] {
		parts = append(parts, min(remaining, maxSlots))
	}
	return parts
}

func teachersOf(input Input, course, fallback string) []string {
	teachers := input.TeacherCourses[course]
	if len(teachers) == 0 {
		return []string{fallback}
	}
	return slices.Clone(teachers)
}
