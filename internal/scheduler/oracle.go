package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/timetable-api/internal/models"
)

const defaultOracleTimeout = 30 * time.Second

// OracleClient sends a prompt to an external generator and returns its raw text.
type OracleClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OracleStrategy delegates placement to an external generator. Its output is
// never trusted: it is parsed strictly, checked against the model and rejected
// when it contains any conflict.
type OracleStrategy struct {
	client   OracleClient
	timeout  time.Duration
	validate *validator.Validate
}

// NewOracleStrategy wires an oracle client with a per-call timeout.
func NewOracleStrategy(client OracleClient, timeout time.Duration) *OracleStrategy {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	return &OracleStrategy{client: client, timeout: timeout, validate: validator.New()}
}

// Name implements GenerationStrategy.
func (s *OracleStrategy) Name() string { return StrategyOracle }

// Generate implements GenerationStrategy.
func (s *OracleStrategy) Generate(ctx context.Context, m *Model) (*Proposal, error) {
	if s.client == nil {
		return nil, errors.New("oracle client not configured")
	}
	prompt, err := BuildPrompt(m)
	if err != nil {
		return nil, fmt.Errorf("build oracle prompt: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.client.Generate(callCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("oracle call failed: %w", err)
	}
	return s.parse(m, raw)
}

type oracleEntry struct {
	CourseID  string `json:"courseId" validate:"required"`
	FacultyID string `json:"facultyId" validate:"required"`
	RoomID    string `json:"roomId" validate:"required"`
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

func (s *OracleStrategy) parse(m *Model, raw string) (*Proposal, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, malformed("response is not a JSON array", nil)
	}
	decoder := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	decoder.DisallowUnknownFields()
	var items []oracleEntry
	if err := decoder.Decode(&items); err != nil {
		return nil, malformed("response could not be decoded", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("unexpected content after JSON array", nil)
	}
	if len(items) == 0 {
		return nil, malformed("response contains no entries", nil)
	}

	placed := make(map[string]int)
	entries := make([]models.ScheduleEntry, 0, len(items))
	for i, item := range items {
		if err := s.validate.Struct(item); err != nil {
			return nil, malformed(fmt.Sprintf("entry %d is missing required fields", i), err)
		}
		cc, ok := m.Course(item.CourseID)
		if !ok {
			return nil, malformed(fmt.Sprintf("entry %d references unknown course %q", i, item.CourseID), nil)
		}
		if !contains(cc.Faculty, item.FacultyID) {
			return nil, malformed(fmt.Sprintf("entry %d references faculty %q not eligible for course %s", i, item.FacultyID, item.CourseID), nil)
		}
		if !contains(cc.Rooms, item.RoomID) {
			return nil, malformed(fmt.Sprintf("entry %d references room %q not eligible for course %s", i, item.RoomID, item.CourseID), nil)
		}
		day := normalizeDay(item.Day)
		if m.Grid.DayIndex(day) < 0 {
			return nil, malformed(fmt.Sprintf("entry %d uses unknown day %q", i, item.Day), nil)
		}
		start, end := strings.TrimSpace(item.StartTime), strings.TrimSpace(item.EndTime)
		if m.Grid.SlotIndex(start, end) < 0 {
			return nil, malformed(fmt.Sprintf("entry %d uses %s-%s which is not a grid slot", i, start, end), nil)
		}
		placed[item.CourseID]++
		if placed[item.CourseID] > cc.Sessions {
			return nil, malformed(fmt.Sprintf("course %s scheduled more than %d times", item.CourseID, cc.Sessions), nil)
		}
		entries = append(entries, models.ScheduleEntry{
			CourseID:  item.CourseID,
			FacultyID: item.FacultyID,
			RoomID:    item.RoomID,
			Day:       day,
			StartTime: start,
			EndTime:   end,
		})
	}

	SortEntries(m.Grid, entries)
	ordinals := make(map[string]int)
	for i := range entries {
		ordinals[entries[i].CourseID]++
		entries[i].ID = EntryID(entries[i].CourseID, ordinals[entries[i].CourseID])
	}
	if conflicts := Detect(m, entries); len(conflicts) > 0 {
		return nil, malformed(fmt.Sprintf("response contains %d conflicts, first: %s", len(conflicts), conflicts[0].Message), nil)
	}

	proposal := &Proposal{Entries: entries}
	for _, cc := range m.Courses {
		reason := "not placed by oracle"
		switch {
		case len(cc.Faculty) == 0:
			reason = reasonNoFaculty
		case len(cc.Rooms) == 0:
			reason = reasonNoRoom
		}
		for session := placed[cc.Course.ID] + 1; session <= cc.Sessions; session++ {
			proposal.Unscheduled = append(proposal.Unscheduled, UnscheduledSession{CourseID: cc.Course.ID, Session: session, Reason: reason})
		}
	}
	return proposal, nil
}

type promptCourse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Capacity int      `json:"capacity"`
	Sessions int      `json:"sessions"`
	Faculty  []string `json:"eligibleFaculty"`
	Rooms    []string `json:"eligibleRooms"`
}

type promptFaculty struct {
	ID              string                    `json:"id"`
	Name            string                    `json:"name"`
	MaxHoursPerWeek int                       `json:"maxHoursPerWeek,omitempty"`
	Availability    models.WeeklyAvailability `json:"availability,omitempty"`
}

type promptRoom struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	Capacity     int                       `json:"capacity"`
	Type         string                    `json:"type"`
	Availability models.WeeklyAvailability `json:"availability,omitempty"`
}

type promptContext struct {
	Days    []string        `json:"days"`
	Slots   []Slot          `json:"slots"`
	Break   Slot            `json:"break"`
	Courses []promptCourse  `json:"courses"`
	Faculty []promptFaculty `json:"faculty"`
	Rooms   []promptRoom    `json:"rooms"`
}

// BuildPrompt renders the generation instructions and catalog context.
func BuildPrompt(m *Model) (string, error) {
	ctx := promptContext{Days: m.Grid.Days, Slots: m.Grid.Slots, Break: m.Grid.Break}
	facultySeen := make(map[string]bool)
	roomSeen := make(map[string]bool)
	for _, cc := range m.Courses {
		ctx.Courses = append(ctx.Courses, promptCourse{
			ID:       cc.Course.ID,
			Name:     cc.Course.Name,
			Type:     string(cc.Course.Type),
			Capacity: cc.Course.Capacity,
			Sessions: cc.Sessions,
			Faculty:  cc.Faculty,
			Rooms:    cc.Rooms,
		})
		for _, id := range cc.Faculty {
			if f, ok := m.Faculty(id); ok && !facultySeen[id] {
				facultySeen[id] = true
				ctx.Faculty = append(ctx.Faculty, promptFaculty{ID: f.ID, Name: f.Name, MaxHoursPerWeek: f.MaxHoursPerWeek, Availability: f.Availability})
			}
		}
		for _, id := range cc.Rooms {
			if r, ok := m.Room(id); ok && !roomSeen[id] {
				roomSeen[id] = true
				ctx.Rooms = append(ctx.Rooms, promptRoom{ID: r.ID, Name: r.Name, Capacity: r.Capacity, Type: string(r.Type), Availability: r.Availability})
			}
		}
	}
	payload, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a university timetable generator.\n")
	b.WriteString("Schedule every course exactly `sessions` times per week using only the listed days and slots.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- A faculty member or room can hold at most one session per day and slot.\n")
	b.WriteString("- Only use a course's eligibleFaculty and eligibleRooms.\n")
	b.WriteString("- Respect declared availability windows and maxHoursPerWeek.\n")
	fmt.Fprintf(&b, "- Never schedule during the break %s.\n", m.Grid.Break.Label())
	b.WriteString("- Spread sessions of the same course across different days.\n")
	b.WriteString("Respond with a JSON array only. Each element must have exactly the fields ")
	b.WriteString(`"courseId", "facultyId", "roomId", "day", "startTime", "endTime"` + ".\n")
	b.WriteString("Context:\n")
	b.Write(payload)
	b.WriteString("\n")
	return b.String(), nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
