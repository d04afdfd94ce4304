package scheduler

import (
	"sort"
	"strings"
	"unicode"

	"github.com/noah-isme/timetable-api/internal/models"
)

const (
	defaultWeeksPerTerm   = 13
	defaultWeeklySessions = 3
	minKeywordLength      = 4
)

// Snapshot is the in-memory catalog a single run works on.
type Snapshot struct {
	Courses []models.Course
	Faculty []models.Faculty
	Rooms   []models.Room
}

// Options tune constraint derivation.
type Options struct {
	Grid                  Grid
	WeeksPerTerm          int
	DefaultWeeklySessions int
	// MaxSessionsPerDay caps sessions of one course per day; zero means unlimited.
	MaxSessionsPerDay int
}

func (o Options) withDefaults() Options {
	if len(o.Grid.Days) == 0 || len(o.Grid.Slots) == 0 {
		o.Grid = DefaultGrid()
	}
	if o.WeeksPerTerm <= 0 {
		o.WeeksPerTerm = defaultWeeksPerTerm
	}
	if o.DefaultWeeklySessions <= 0 {
		o.DefaultWeeklySessions = defaultWeeklySessions
	}
	if o.MaxSessionsPerDay < 0 {
		o.MaxSessionsPerDay = 0
	}
	return o
}

// CourseConstraint holds the derived requirements of one course.
type CourseConstraint struct {
	Course   models.Course
	Sessions int
	// Faculty and Rooms are eligible ids in preference order.
	Faculty []string
	Rooms   []string
}

// Model is the immutable constraint view consumed by strategies, the detector and the optimizer.
type Model struct {
	Grid              Grid
	MaxSessionsPerDay int
	// Courses are in scheduling order: priority desc, credits desc, id asc.
	Courses []CourseConstraint

	courseIndex map[string]int
	faculty     map[string]models.Faculty
	rooms       map[string]models.Room
}

// BuildModel derives per-course constraints from a catalog snapshot.
func BuildModel(snapshot Snapshot, opts Options) (*Model, error) {
	opts = opts.withDefaults()
	if err := opts.Grid.validate(); err != nil {
		return nil, &InsufficientDataError{Reason: err.Error()}
	}
	if len(snapshot.Courses) == 0 {
		return nil, &InsufficientDataError{Reason: "no courses found for the requested department and semester"}
	}
	if len(snapshot.Rooms) == 0 {
		return nil, &InsufficientDataError{Reason: "no rooms available"}
	}
	if len(snapshot.Faculty) == 0 {
		return nil, &InsufficientDataError{Reason: "no faculty found for the requested department"}
	}

	m := &Model{
		Grid:              opts.Grid,
		MaxSessionsPerDay: opts.MaxSessionsPerDay,
		courseIndex:       make(map[string]int, len(snapshot.Courses)),
		faculty:           make(map[string]models.Faculty, len(snapshot.Faculty)),
		rooms:             make(map[string]models.Room, len(snapshot.Rooms)),
	}
	for _, f := range snapshot.Faculty {
		m.faculty[f.ID] = f
	}
	for _, r := range snapshot.Rooms {
		m.rooms[r.ID] = r
	}

	courses := make([]models.Course, len(snapshot.Courses))
	copy(courses, snapshot.Courses)
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Priority != courses[j].Priority {
			return courses[i].Priority > courses[j].Priority
		}
		if courses[i].Credits != courses[j].Credits {
			return courses[i].Credits > courses[j].Credits
		}
		return courses[i].ID < courses[j].ID
	})

	anyFaculty := false
	for _, course := range courses {
		cc := CourseConstraint{
			Course:   course,
			Sessions: WeeklySessions(course, opts.WeeksPerTerm, opts.DefaultWeeklySessions),
			Faculty:  eligibleFaculty(course, snapshot.Faculty),
			Rooms:    eligibleRooms(course, snapshot.Rooms),
		}
		if len(cc.Faculty) > 0 {
			anyFaculty = true
		}
		m.courseIndex[course.ID] = len(m.Courses)
		m.Courses = append(m.Courses, cc)
	}
	if !anyFaculty {
		return nil, &InsufficientDataError{Reason: "no faculty specialization matches any requested course"}
	}
	return m, nil
}

// WeeklySessions derives required weekly sessions: ceil(totalHours/weeks) when
// total hours are known, then hoursPerWeek, then the configured default. A course
// declaring its own duration in weeks overrides weeksPerTerm.
func WeeklySessions(course models.Course, weeksPerTerm, fallback int) int {
	if course.DurationWeeks > 0 {
		weeksPerTerm = course.DurationWeeks
	}
	if weeksPerTerm <= 0 {
		weeksPerTerm = defaultWeeksPerTerm
	}
	if fallback <= 0 {
		fallback = defaultWeeklySessions
	}
	switch {
	case course.TotalHours > 0:
		return (course.TotalHours + weeksPerTerm - 1) / weeksPerTerm
	case course.HoursPerWeek > 0:
		return course.HoursPerWeek
	default:
		return fallback
	}
}

// Course returns the constraint for a course id.
func (m *Model) Course(id string) (CourseConstraint, bool) {
	idx, ok := m.courseIndex[id]
	if !ok {
		return CourseConstraint{}, false
	}
	return m.Courses[idx], true
}

// Faculty returns a faculty record from the snapshot.
func (m *Model) Faculty(id string) (models.Faculty, bool) {
	f, ok := m.faculty[id]
	return f, ok
}

// Room returns a room record from the snapshot.
func (m *Model) Room(id string) (models.Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

// FacultyAvailable treats undeclared availability as always available.
func (m *Model) FacultyAvailable(id, day string, slot Slot) bool {
	f, ok := m.faculty[id]
	if !ok {
		return false
	}
	if !f.Availability.Declared() {
		return true
	}
	return within(f.Availability.Windows(day), slot.Start, slot.End)
}

// RoomAvailable treats undeclared availability as always available.
func (m *Model) RoomAvailable(id, day string, slot Slot) bool {
	r, ok := m.rooms[id]
	if !ok {
		return false
	}
	if !r.Availability.Declared() {
		return true
	}
	return within(r.Availability.Windows(day), slot.Start, slot.End)
}

func eligibleFaculty(course models.Course, faculty []models.Faculty) []string {
	type scored struct {
		id       string
		strength int
	}
	var matches []scored
	for _, f := range faculty {
		best := 0
		for _, tag := range f.Specializations {
			if s := matchStrength(tag, course); s > best {
				best = s
			}
		}
		if best > 0 {
			matches = append(matches, scored{id: f.ID, strength: best})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].strength != matches[j].strength {
			return matches[i].strength > matches[j].strength
		}
		return matches[i].id < matches[j].id
	})
	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, match.id)
	}
	return ids
}

// matchStrength scores a specialization tag against a course: 3 exact, 2 substring,
// 1 shared keyword prefix, 0 no match.
func matchStrength(tag string, course models.Course) int {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return 0
	}
	name := strings.ToLower(strings.TrimSpace(course.Name))
	code := strings.ToLower(strings.TrimSpace(course.Code))
	dept := strings.ToLower(strings.TrimSpace(course.Department))
	if tag == name || (code != "" && tag == code) || (dept != "" && tag == dept) {
		return 3
	}
	if name != "" && (strings.Contains(name, tag) || strings.Contains(tag, name)) {
		return 2
	}
	for _, tk := range keywords(tag) {
		for _, ck := range keywords(name) {
			if sharedPrefix(tk, ck) >= minKeywordLength {
				return 1
			}
		}
	}
	return 0
}

func keywords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	result := fields[:0]
	for _, field := range fields {
		if len([]rune(field)) >= minKeywordLength {
			result = append(result, field)
		}
	}
	return result
}

func sharedPrefix(a, b string) int {
	ar, br := []rune(a), []rune(b)
	n := 0
	for n < len(ar) && n < len(br) && ar[n] == br[n] {
		n++
	}
	return n
}

var compatibleRoomTypes = map[models.CourseType][]models.RoomType{
	models.CourseTypeLecture:  {models.RoomTypeLectureHall, models.RoomTypeAuditorium},
	models.CourseTypeLab:      {models.RoomTypeLab},
	models.CourseTypeSeminar:  {models.RoomTypeSeminarRoom, models.RoomTypeLectureHall},
	models.CourseTypeTutorial: {models.RoomTypeSeminarRoom, models.RoomTypeLectureHall},
}

func roomTypeCompatible(course models.Course, room models.Room) bool {
	roomType := models.RoomType(strings.ToLower(string(room.Type)))
	if required := strings.ToLower(strings.TrimSpace(course.RequiredRoomType)); required != "" {
		return string(roomType) == required
	}
	allowed, ok := compatibleRoomTypes[models.CourseType(strings.ToLower(string(course.Type)))]
	if !ok {
		return true
	}
	for _, t := range allowed {
		if t == roomType {
			return true
		}
	}
	return false
}

func hasEquipment(required, available []string) bool {
	have := make(map[string]struct{}, len(available))
	for _, item := range available {
		have[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}
	for _, item := range required {
		if _, ok := have[strings.ToLower(strings.TrimSpace(item))]; !ok {
			return false
		}
	}
	return true
}

// eligibleRooms orders matching rooms best fit first: smallest sufficient capacity, then lowest id.
func eligibleRooms(course models.Course, rooms []models.Room) []string {
	var matches []models.Room
	for _, room := range rooms {
		if room.Capacity < course.Capacity {
			continue
		}
		if !roomTypeCompatible(course, room) {
			continue
		}
		if !hasEquipment(course.RequiredEquipment, room.Equipment) {
			continue
		}
		matches = append(matches, room)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Capacity != matches[j].Capacity {
			return matches[i].Capacity < matches[j].Capacity
		}
		return matches[i].ID < matches[j].ID
	})
	ids := make([]string, 0, len(matches))
	for _, room := range matches {
		ids = append(ids, room.ID)
	}
	return ids
}
