package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Outcome is a conflict-checked schedule ready for persistence.
type Outcome struct {
	Strategy    string
	Entries     []models.ScheduleEntry
	Conflicts   models.Conflicts
	Unscheduled []UnscheduledSession
	Warnings    []Warning
	Metadata    models.TimetableMetadata
}

// Partial reports whether any required session was left out.
func (o *Outcome) Partial() bool {
	return len(o.Unscheduled) > 0
}

// Scheduler runs a selected strategy, falls back to the deterministic one when
// the selection fails, and always finishes with the conflict pass.
type Scheduler struct {
	strategies map[string]GenerationStrategy
	fallback   GenerationStrategy
	logger     *zap.Logger
}

// NewScheduler registers strategies. The deterministic strategy is always present.
func NewScheduler(logger *zap.Logger, strategies ...GenerationStrategy) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		strategies: make(map[string]GenerationStrategy),
		fallback:   DeterministicStrategy{},
		logger:     logger,
	}
	s.strategies[s.fallback.Name()] = s.fallback
	for _, strategy := range strategies {
		if strategy != nil {
			s.strategies[strategy.Name()] = strategy
		}
	}
	return s
}

// Has reports whether a strategy name is registered.
func (s *Scheduler) Has(name string) bool {
	_, ok := s.strategies[name]
	return ok
}

// Run produces an Outcome using the named strategy.
func (s *Scheduler) Run(ctx context.Context, m *Model, strategyName string) (*Outcome, error) {
	var warnings []Warning
	strategy, ok := s.strategies[strategyName]
	if !ok {
		if strategyName != "" {
			warnings = append(warnings, Warning{
				Code:    WarningGenerationFallback,
				Message: fmt.Sprintf("strategy %q is not available, using %s", strategyName, s.fallback.Name()),
			})
		}
		strategy = s.fallback
	}

	proposal, err := strategy.Generate(ctx, m)
	if err != nil && strategy.Name() != s.fallback.Name() {
		s.logger.Warn("generation strategy failed, falling back",
			zap.String("strategy", strategy.Name()),
			zap.Error(err),
		)
		warnings = append(warnings, Warning{
			Code:    WarningGenerationFallback,
			Message: fmt.Sprintf("%s strategy failed, used %s: %v", strategy.Name(), s.fallback.Name(), err),
			Meta:    map[string]any{"from": strategy.Name(), "to": s.fallback.Name()},
		})
		strategy = s.fallback
		proposal, err = strategy.Generate(ctx, m)
	}
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Strategy:    strategy.Name(),
		Entries:     cloneEntries(proposal.Entries),
		Unscheduled: proposal.Unscheduled,
		Warnings:    warnings,
	}
	SortEntries(m.Grid, outcome.Entries)
	outcome.Conflicts = Detect(m, outcome.Entries)
	outcome.Metadata = CalculateMetrics(m.Grid, outcome.Entries, outcome.Conflicts)
	if outcome.Partial() {
		outcome.Warnings = append(outcome.Warnings, Warning{
			Code:    WarningPartialSchedule,
			Message: fmt.Sprintf("%d required sessions could not be scheduled", len(outcome.Unscheduled)),
			Meta:    map[string]any{"unscheduled": outcome.Unscheduled},
		})
	}
	return outcome, nil
}
