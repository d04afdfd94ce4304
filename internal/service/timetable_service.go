package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type catalogSnapshotter interface {
	Snapshot(ctx context.Context, department string, semester int) (scheduler.Snapshot, error)
}

type timetableStore interface {
	Create(ctx context.Context, timetable *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
	ReplaceSchedule(ctx context.Context, timetable *models.Timetable, expectedVersion int) error
	UpdateStatus(ctx context.Context, id string, status models.TimetableStatus, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

type scheduleRunner interface {
	Run(ctx context.Context, m *scheduler.Model, strategy string) (*scheduler.Outcome, error)
}

type keyLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type notificationEmitter interface {
	Emit(kind models.NotificationType, title, message string)
}

// TimetableConfig carries generation defaults.
type TimetableConfig struct {
	Strategy              string
	WeeksPerTerm          int
	DefaultWeeklySessions int
	OptimizerMaxAttempts  int
	Grid                  scheduler.Grid
}

// TimetableService runs generation and optimization and manages the timetable lifecycle.
type TimetableService struct {
	catalog  catalogSnapshotter
	store    timetableStore
	runner   scheduleRunner
	locker   keyLocker
	notifier notificationEmitter
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	cfg      TimetableConfig
	now      func() time.Time
}

// NewTimetableService wires a TimetableService.
func NewTimetableService(
	catalog catalogSnapshotter,
	store timetableStore,
	runner scheduleRunner,
	locker keyLocker,
	notifier notificationEmitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = scheduler.StrategyDeterministic
	}
	if len(cfg.Grid.Days) == 0 {
		cfg.Grid = scheduler.DefaultGrid()
	}
	return &TimetableService{
		catalog:  catalog,
		store:    store,
		runner:   runner,
		locker:   locker,
		notifier: notifier,
		metrics:  metrics,
		validate: validate,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate builds, checks and persists a new draft timetable.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	req.Department = strings.TrimSpace(req.Department)
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	strategy := s.cfg.Strategy
	maxPerDay := 0
	if req.Constraints != nil {
		if req.Constraints.Strategy != "" {
			strategy = req.Constraints.Strategy
		}
		maxPerDay = req.Constraints.MaxSessionsPerDay
	}

	release, err := s.locker.Lock(ctx, generationLockKey(req))
	if err != nil {
		return nil, err
	}
	defer release()

	started := s.now()
	label := models.TimetableName(req.Department, req.Semester, req.AcademicYear)

	snapshot, err := s.catalog.Snapshot(ctx, req.Department, req.Semester)
	if err != nil {
		return nil, s.generationFailed(strategy, label, started,
			appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog"))
	}

	model, err := scheduler.BuildModel(snapshot, s.modelOptions(maxPerDay))
	if err != nil {
		return nil, s.generationFailed(strategy, label, started, modelError(err))
	}

	outcome, err := s.runner.Run(ctx, model, strategy)
	if err != nil {
		var (
			malformed *scheduler.MalformedGenerationError
			appErr    *appErrors.Error
		)
		if errors.As(err, &malformed) {
			appErr = appErrors.Wrap(err, appErrors.ErrMalformedGeneration.Code, appErrors.ErrMalformedGeneration.Status, appErrors.ErrMalformedGeneration.Message)
		} else {
			appErr = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation failed")
		}
		return nil, s.generationFailed(strategy, label, started, appErr)
	}

	if outcome.Partial() && !req.PartialAllowed() {
		return nil, s.generationFailed(outcome.Strategy, label, started, appErrors.Clone(appErrors.ErrPartialSchedule,
			fmt.Sprintf("%d required sessions could not be scheduled", len(outcome.Unscheduled))))
	}

	timetable := &models.Timetable{
		Name:       label,
		Department: req.Department,
		Semester:   req.Semester,
		Year:       req.AcademicYear,
		Schedule:   outcome.Entries,
		Conflicts:  outcome.Conflicts,
		Status:     models.TimetableStatusDraft,
		Metadata:   outcome.Metadata,
	}
	if err := s.store.Create(ctx, timetable); err != nil {
		return nil, s.generationFailed(outcome.Strategy, label, started,
			appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message))
	}

	fallback := hasWarning(outcome.Warnings, scheduler.WarningGenerationFallback)
	outcomeLabel := "success"
	if outcome.Partial() {
		outcomeLabel = "partial"
		s.notify(models.NotificationWarning, "Timetable generated with gaps",
			fmt.Sprintf("%s: %d entries scheduled, %d sessions unscheduled", label, len(outcome.Entries), len(outcome.Unscheduled)))
	} else {
		s.notify(models.NotificationSuccess, "Timetable generated",
			fmt.Sprintf("%s: %d entries scheduled, %d conflicts", label, len(outcome.Entries), len(outcome.Conflicts)))
	}
	if s.metrics != nil {
		s.metrics.ObserveGeneration(outcome.Strategy, outcomeLabel, fallback, len(outcome.Unscheduled), s.now().Sub(started))
	}
	s.logger.Info("timetable generated",
		zap.String("timetable_id", timetable.ID),
		zap.String("strategy", outcome.Strategy),
		zap.Bool("fallback", fallback),
		zap.Int("entries", len(outcome.Entries)),
		zap.Int("conflicts", len(outcome.Conflicts)),
		zap.Int("unscheduled", len(outcome.Unscheduled)),
	)

	warnings := outcome.Warnings
	if warnings == nil {
		warnings = []scheduler.Warning{}
	}
	return &dto.GenerateTimetableResponse{Timetable: timetable, Warnings: warnings, Strategy: outcome.Strategy}, nil
}

// Optimize relocates entries of a persisted timetable and saves the result when it improved.
func (s *TimetableService) Optimize(ctx context.Context, id string) (*dto.OptimizeTimetableResponse, error) {
	release, err := s.locker.Lock(ctx, "optimize:"+id)
	if err != nil {
		return nil, err
	}
	defer release()

	timetable, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if timetable.Status == models.TimetableStatusArchived {
		return nil, s.optimizationFailed(timetable, appErrors.Clone(appErrors.ErrInvalidTransition, "archived timetables cannot be optimized"))
	}

	snapshot, err := s.catalog.Snapshot(ctx, timetable.Department, timetable.Semester)
	if err != nil {
		return nil, s.optimizationFailed(timetable,
			appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog"))
	}
	model, err := scheduler.BuildModel(snapshot, s.modelOptions(0))
	if err != nil {
		return nil, s.optimizationFailed(timetable, modelError(err))
	}

	result := scheduler.Optimizer{MaxAttempts: s.cfg.OptimizerMaxAttempts}.Optimize(model, timetable.Schedule)
	if s.metrics != nil {
		s.metrics.ObserveOptimization(result.Moves)
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []scheduler.Warning{}
	}
	if result.Moves == 0 {
		s.notify(models.NotificationInfo, "Timetable already optimal",
			fmt.Sprintf("%s: no improving relocation found", timetable.Name))
		return &dto.OptimizeTimetableResponse{Timetable: timetable, Warnings: warnings}, nil
	}

	expected := timetable.Version
	before := timetable.Metadata.ConflictCount
	timetable.Schedule = result.Entries
	timetable.Conflicts = result.Conflicts
	timetable.Metadata = result.Metadata
	if err := s.store.ReplaceSchedule(ctx, timetable, expected); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			return nil, s.optimizationFailed(timetable, appErrors.Clone(appErrors.ErrStaleVersion, "timetable changed during optimization, retry"))
		}
		return nil, s.optimizationFailed(timetable,
			appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message))
	}

	s.notify(models.NotificationSuccess, "Timetable optimized",
		fmt.Sprintf("%s: %d moves, conflicts %d -> %d", timetable.Name, result.Moves, before, len(result.Conflicts)))
	s.logger.Info("timetable optimized",
		zap.String("timetable_id", timetable.ID),
		zap.Int("moves", result.Moves),
		zap.Int("attempts", result.Attempts),
		zap.Int("conflicts", len(result.Conflicts)),
	)
	return &dto.OptimizeTimetableResponse{Timetable: timetable, Warnings: warnings, Moves: result.Moves}, nil
}

// List returns timetables matching the query.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, *models.Pagination, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	filter := models.TimetableFilter{
		Department: strings.TrimSpace(query.Department),
		Semester:   query.Semester,
		Year:       query.Year,
		Status:     models.TimetableStatus(query.Status),
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	timetables, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return timetables, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one timetable.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	return s.find(ctx, id)
}

// Publish moves a draft to published.
func (s *TimetableService) Publish(ctx context.Context, id string) (*models.Timetable, error) {
	return s.transition(ctx, id, models.TimetableStatusPublished)
}

// Unpublish moves a published timetable back to draft.
func (s *TimetableService) Unpublish(ctx context.Context, id string) (*models.Timetable, error) {
	return s.transition(ctx, id, models.TimetableStatusDraft)
}

// Archive retires a draft or published timetable.
func (s *TimetableService) Archive(ctx context.Context, id string) (*models.Timetable, error) {
	return s.transition(ctx, id, models.TimetableStatusArchived)
}

// Delete removes a draft timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	timetable, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if timetable.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "only draft timetables can be deleted")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

var allowedTransitions = map[models.TimetableStatus][]models.TimetableStatus{
	models.TimetableStatusPublished: {models.TimetableStatusDraft},
	models.TimetableStatusDraft:     {models.TimetableStatusPublished},
	models.TimetableStatusArchived:  {models.TimetableStatusDraft, models.TimetableStatusPublished},
}

func (s *TimetableService) transition(ctx context.Context, id string, target models.TimetableStatus) (*models.Timetable, error) {
	timetable, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, from := range allowedTransitions[target] {
		if timetable.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move timetable from %s to %s", timetable.Status, target))
	}
	if err := s.store.UpdateStatus(ctx, id, target, timetable.Version); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			return nil, appErrors.Clone(appErrors.ErrStaleVersion, "timetable was modified concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable status")
	}
	timetable.Status = target
	timetable.Version++
	s.notify(models.NotificationInfo, "Timetable "+string(target),
		fmt.Sprintf("%s is now %s", timetable.Name, target))
	return timetable, nil
}

func (s *TimetableService) find(ctx context.Context, id string) (*models.Timetable, error) {
	timetable, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return timetable, nil
}

func (s *TimetableService) modelOptions(maxPerDay int) scheduler.Options {
	return scheduler.Options{
		Grid:                  s.cfg.Grid,
		WeeksPerTerm:          s.cfg.WeeksPerTerm,
		DefaultWeeklySessions: s.cfg.DefaultWeeklySessions,
		MaxSessionsPerDay:     maxPerDay,
	}
}

func (s *TimetableService) generationFailed(strategy, label string, started time.Time, err *appErrors.Error) error {
	s.notify(models.NotificationError, "Timetable generation failed", fmt.Sprintf("%s: %s", label, err.Message))
	if s.metrics != nil {
		s.metrics.ObserveGeneration(strategy, "failed", false, 0, s.now().Sub(started))
	}
	s.logger.Warn("timetable generation failed", zap.String("timetable", label), zap.String("code", err.Code), zap.Error(err))
	return err
}

func (s *TimetableService) optimizationFailed(timetable *models.Timetable, err *appErrors.Error) error {
	s.notify(models.NotificationError, "Timetable optimization failed", fmt.Sprintf("%s: %s", timetable.Name, err.Message))
	s.logger.Warn("timetable optimization failed", zap.String("timetable_id", timetable.ID), zap.String("code", err.Code), zap.Error(err))
	return err
}

func (s *TimetableService) notify(kind models.NotificationType, title, message string) {
	if s.notifier != nil {
		s.notifier.Emit(kind, title, message)
	}
}

func modelError(err error) *appErrors.Error {
	var insufficient *scheduler.InsufficientDataError
	if errors.As(err, &insufficient) {
		return appErrors.Wrap(err, appErrors.ErrInsufficientData.Code, appErrors.ErrInsufficientData.Status, insufficient.Reason)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build constraint model")
}

func generationLockKey(req dto.GenerateTimetableRequest) string {
	return fmt.Sprintf("generate:%s:%d:%d", strings.ToLower(req.Department), req.Semester, req.AcademicYear)
}

func hasWarning(warnings []scheduler.Warning, code string) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
