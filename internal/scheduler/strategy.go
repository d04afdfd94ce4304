package scheduler

import (
	"context"

	"github.com/noah-isme/timetable-api/internal/models"
)

const (
	StrategyDeterministic = "deterministic"
	StrategyOracle        = "oracle"
)

// Warning codes surfaced alongside generation and optimization results.
const (
	WarningPartialSchedule    = "PARTIAL_SCHEDULE"
	WarningGenerationFallback = "GENERATION_FALLBACK"
	WarningOptimizationNoOp   = "OPTIMIZATION_NOOP"
)

// Warning is a non-fatal condition reported with a result.
type Warning struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// UnscheduledSession is one required session no strategy could place.
type UnscheduledSession struct {
	CourseID string `json:"course_id"`
	Session  int    `json:"session"`
	Reason   string `json:"reason"`
}

// Proposal is raw strategy output before the conflict pass.
type Proposal struct {
	Entries     []models.ScheduleEntry
	Unscheduled []UnscheduledSession
}

// GenerationStrategy proposes a schedule for a constraint model.
type GenerationStrategy interface {
	Name() string
	Generate(ctx context.Context, m *Model) (*Proposal, error)
}
