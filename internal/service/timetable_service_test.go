package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type catalogStub struct {
	snapshot scheduler.Snapshot
	err      error
	calls    int
}

func (c *catalogStub) Snapshot(ctx context.Context, department string, semester int) (scheduler.Snapshot, error) {
	c.calls++
	return c.snapshot, c.err
}

type timetableStoreStub struct {
	mu         sync.Mutex
	items      map[string]*models.Timetable
	createErr  error
	replaceErr error
	created    int
	replaced   int
}

func newTimetableStoreStub() *timetableStoreStub {
	return &timetableStoreStub{items: make(map[string]*models.Timetable)}
}

func (s *timetableStoreStub) Create(ctx context.Context, timetable *models.Timetable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created++
	timetable.ID = fmt.Sprintf("tt-%d", s.created)
	timetable.Version = 1
	stored := *timetable
	s.items[timetable.ID] = &stored
	return nil
}

func (s *timetableStoreStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	stored := *item
	return &stored, nil
}

func (s *timetableStoreStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Timetable, 0, len(s.items))
	for _, item := range s.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (s *timetableStoreStub) ReplaceSchedule(ctx context.Context, timetable *models.Timetable, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	current, ok := s.items[timetable.ID]
	if !ok || current.Version != expectedVersion {
		return repository.ErrVersionMismatch
	}
	s.replaced++
	timetable.Version = expectedVersion + 1
	stored := *timetable
	s.items[timetable.ID] = &stored
	return nil
}

func (s *timetableStoreStub) UpdateStatus(ctx context.Context, id string, status models.TimetableStatus, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[id]
	if !ok || current.Version != expectedVersion {
		return repository.ErrVersionMismatch
	}
	current.Status = status
	current.Version++
	return nil
}

func (s *timetableStoreStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

type emitted struct {
	kind  models.NotificationType
	title string
}

type emitterStub struct {
	mu     sync.Mutex
	events []emitted
}

func (e *emitterStub) Emit(kind models.NotificationType, title, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{kind: kind, title: title})
}

func (e *emitterStub) kinds() []models.NotificationType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.NotificationType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.kind)
	}
	return out
}

type oracleClientStub struct {
	response string
	err      error
}

func (o oracleClientStub) Generate(ctx context.Context, prompt string) (string, error) {
	return o.response, o.err
}

func csCatalog() scheduler.Snapshot {
	return scheduler.Snapshot{
		Courses: []models.Course{
			{ID: "c-alg", Code: "CS201", Name: "Algorithms", Department: "CS", Semester: 3, Credits: 3, Type: models.CourseTypeLecture, HoursPerWeek: 2, Capacity: 30},
			{ID: "c-db", Code: "CS202", Name: "Databases", Department: "CS", Semester: 3, Credits: 3, Type: models.CourseTypeLecture, HoursPerWeek: 2, Capacity: 30},
		},
		Faculty: []models.Faculty{
			{ID: "f-1", Name: "Ada", Department: "CS", Specializations: []string{"Algorithms"}},
			{ID: "f-2", Name: "Edgar", Department: "CS", Specializations: []string{"Databases"}},
		},
		Rooms: []models.Room{
			{ID: "r-1", Name: "Hall A", Capacity: 40, Type: models.RoomTypeLectureHall},
			{ID: "r-2", Name: "Hall B", Capacity: 60, Type: models.RoomTypeLectureHall},
		},
	}
}

type timetableFixture struct {
	svc     *TimetableService
	catalog *catalogStub
	store   *timetableStoreStub
	emitter *emitterStub
}

func newTimetableFixture(snapshot scheduler.Snapshot, strategies ...scheduler.GenerationStrategy) *timetableFixture {
	f := &timetableFixture{
		catalog: &catalogStub{snapshot: snapshot},
		store:   newTimetableStoreStub(),
		emitter: &emitterStub{},
	}
	f.svc = NewTimetableService(
		f.catalog,
		f.store,
		scheduler.NewScheduler(zap.NewNop(), strategies...),
		NewGenerationLocker(nil, time.Minute, zap.NewNop()),
		f.emitter,
		NewMetricsService(),
		nil,
		zap.NewNop(),
		TimetableConfig{},
	)
	return f
}

func csRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{Department: "CS", Semester: 3, AcademicYear: 2025}
}

func TestTimetableServiceGenerateDeterministic(t *testing.T) {
	f := newTimetableFixture(csCatalog())

	res, err := f.svc.Generate(context.Background(), csRequest())
	require.NoError(t, err)

	assert.Equal(t, scheduler.StrategyDeterministic, res.Strategy)
	assert.Empty(t, res.Warnings)
	tt := res.Timetable
	assert.Equal(t, "tt-1", tt.ID)
	assert.Equal(t, "CS - Semester 3 2025", tt.Name)
	assert.Equal(t, models.TimetableStatusDraft, tt.Status)
	assert.Len(t, tt.Schedule, 4)
	assert.Empty(t, tt.Conflicts)
	assert.Equal(t, models.TimetableMetadata{TotalHours: 4, UtilizationRate: 13, ConflictCount: 0}, tt.Metadata)
	assert.Equal(t, []models.NotificationType{models.NotificationSuccess}, f.emitter.kinds())
}

func TestTimetableServiceGenerateInsufficientData(t *testing.T) {
	snapshot := csCatalog()
	snapshot.Faculty = nil
	f := newTimetableFixture(snapshot)

	res, err := f.svc.Generate(context.Background(), csRequest())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, appErrors.ErrInsufficientData)
	assert.Equal(t, 0, f.store.created)
	assert.Equal(t, []models.NotificationType{models.NotificationError}, f.emitter.kinds())
}

func TestTimetableServiceGenerateFallsBackFromOracle(t *testing.T) {
	oracle := scheduler.NewOracleStrategy(oracleClientStub{response: "Here is your timetable: Monday looks good."}, time.Second)
	f := newTimetableFixture(csCatalog(), oracle)
	req := csRequest()
	req.Constraints = &dto.GenerationConstraints{Strategy: scheduler.StrategyOracle}

	res, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, scheduler.StrategyDeterministic, res.Strategy)
	assert.Len(t, res.Timetable.Schedule, 4)
	assert.Empty(t, res.Timetable.Conflicts)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, scheduler.WarningGenerationFallback, res.Warnings[0].Code)
	assert.Equal(t, 1, f.store.created)
}

func limitedCatalog() scheduler.Snapshot {
	return scheduler.Snapshot{
		Courses: []models.Course{
			{ID: "c-net", Name: "Networks", Department: "CS", Semester: 3, Credits: 3, Type: models.CourseTypeLecture, HoursPerWeek: 3, Capacity: 20},
		},
		Faculty: []models.Faculty{{
			ID:              "f-net",
			Name:            "Vint",
			Department:      "CS",
			Specializations: []string{"networks"},
			Availability: models.WeeklyAvailability{
				"monday":  {{Start: "09:00", End: "10:00"}},
				"tuesday": {{Start: "09:00", End: "10:00"}},
			},
		}},
		Rooms: []models.Room{{ID: "r-1", Name: "Lab 1", Capacity: 30, Type: models.RoomTypeLectureHall}},
	}
}

func TestTimetableServiceGeneratePartial(t *testing.T) {
	f := newTimetableFixture(limitedCatalog())

	res, err := f.svc.Generate(context.Background(), csRequest())
	require.NoError(t, err)

	assert.Len(t, res.Timetable.Schedule, 2)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, scheduler.WarningPartialSchedule, res.Warnings[0].Code)
	assert.Equal(t, 1, f.store.created)
	assert.Equal(t, []models.NotificationType{models.NotificationWarning}, f.emitter.kinds())
}

func TestTimetableServiceGeneratePartialRejectedWhenDisallowed(t *testing.T) {
	f := newTimetableFixture(limitedCatalog())
	allow := false
	req := csRequest()
	req.Constraints = &dto.GenerationConstraints{AllowPartial: &allow}

	_, err := f.svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPartialSchedule)
	assert.Equal(t, 0, f.store.created)
	assert.Equal(t, []models.NotificationType{models.NotificationError}, f.emitter.kinds())
}

func TestTimetableServiceGeneratePersistenceFailure(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	f.store.createErr = errors.New("connection reset")

	_, err := f.svc.Generate(context.Background(), csRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
	assert.Equal(t, []models.NotificationType{models.NotificationError}, f.emitter.kinds())
}

func TestTimetableServiceGenerateValidation(t *testing.T) {
	f := newTimetableFixture(csCatalog())

	_, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{Department: " ", Semester: 3, AcademicYear: 2025})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req := csRequest()
	req.Constraints = &dto.GenerationConstraints{Strategy: "annealing"}
	_, err = f.svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 0, f.catalog.calls)
	assert.Empty(t, f.emitter.kinds())
}

func TestTimetableServiceGenerateRejectsConcurrentRun(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	release, err := f.svc.locker.Lock(context.Background(), generationLockKey(csRequest()))
	require.NoError(t, err)
	defer release()

	_, err = f.svc.Generate(context.Background(), csRequest())
	assert.ErrorIs(t, err, appErrors.ErrGenerationInProgress)
	assert.Equal(t, 0, f.catalog.calls)
}

func TestTimetableServiceGenerateCatalogFailure(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	f.catalog.err = errors.New("mongo down")

	_, err := f.svc.Generate(context.Background(), csRequest())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, []models.NotificationType{models.NotificationError}, f.emitter.kinds())
}

func seedTimetable(store *timetableStoreStub, entries ...models.ScheduleEntry) *models.Timetable {
	tt := &models.Timetable{Name: "CS - Semester 3 2025", Department: "CS", Semester: 3, Year: 2025, Status: models.TimetableStatusDraft, Schedule: entries}
	_ = store.Create(context.Background(), tt)
	return tt
}

func TestTimetableServiceOptimizeResolvesConflict(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	tt := seedTimetable(f.store,
		models.ScheduleEntry{ID: "c-alg#1", CourseID: "c-alg", FacultyID: "f-1", RoomID: "r-1", Day: "monday", StartTime: "09:00", EndTime: "10:00"},
		models.ScheduleEntry{ID: "c-db#1", CourseID: "c-db", FacultyID: "f-2", RoomID: "r-1", Day: "monday", StartTime: "09:00", EndTime: "10:00"},
	)

	res, err := f.svc.Optimize(context.Background(), tt.ID)
	require.NoError(t, err)

	assert.Positive(t, res.Moves)
	assert.Empty(t, res.Timetable.Conflicts)
	assert.Equal(t, 2, res.Timetable.Version)
	assert.Equal(t, 1, f.store.replaced)
	assert.Equal(t, []models.NotificationType{models.NotificationSuccess}, f.emitter.kinds())
}

func TestTimetableServiceOptimizeNoOp(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	tt := seedTimetable(f.store,
		models.ScheduleEntry{ID: "c-alg#1", CourseID: "c-alg", FacultyID: "f-1", RoomID: "r-1", Day: "monday", StartTime: "09:00", EndTime: "10:00"},
	)

	res, err := f.svc.Optimize(context.Background(), tt.ID)
	require.NoError(t, err)

	assert.Zero(t, res.Moves)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, scheduler.WarningOptimizationNoOp, res.Warnings[0].Code)
	assert.Equal(t, 0, f.store.replaced)
	assert.Equal(t, 1, res.Timetable.Version)
}

func TestTimetableServiceOptimizeStaleVersion(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	tt := seedTimetable(f.store,
		models.ScheduleEntry{ID: "c-alg#1", CourseID: "c-alg", FacultyID: "f-1", RoomID: "r-1", Day: "monday", StartTime: "09:00", EndTime: "10:00"},
		models.ScheduleEntry{ID: "c-db#1", CourseID: "c-db", FacultyID: "f-2", RoomID: "r-1", Day: "monday", StartTime: "09:00", EndTime: "10:00"},
	)
	f.store.replaceErr = repository.ErrVersionMismatch

	_, err := f.svc.Optimize(context.Background(), tt.ID)
	assert.ErrorIs(t, err, appErrors.ErrStaleVersion)
	assert.Equal(t, []models.NotificationType{models.NotificationError}, f.emitter.kinds())
}

func TestTimetableServiceOptimizeArchivedNotifiesFailure(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	tt := seedTimetable(f.store)
	tt.Status = models.TimetableStatusArchived
	f.store.items[tt.ID].Status = models.TimetableStatusArchived

	_, err := f.svc.Optimize(context.Background(), tt.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Equal(t, []models.NotificationType{models.NotificationError}, f.emitter.kinds())
}

type runnerStub struct {
	err error
}

func (r runnerStub) Run(ctx context.Context, m *scheduler.Model, strategy string) (*scheduler.Outcome, error) {
	return nil, r.err
}

func TestTimetableServiceGenerateMalformedOutput(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	f.svc.runner = runnerStub{err: &scheduler.MalformedGenerationError{Reason: "not a JSON array"}}

	res, err := f.svc.Generate(context.Background(), csRequest())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, appErrors.ErrMalformedGeneration)
	assert.Equal(t, 0, f.store.created)
	assert.Equal(t, []models.NotificationType{models.NotificationError}, f.emitter.kinds())
}

func TestTimetableServiceGenerateRunnerFailure(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	f.svc.runner = runnerStub{err: errors.New("strategy exploded")}

	_, err := f.svc.Generate(context.Background(), csRequest())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, []models.NotificationType{models.NotificationError}, f.emitter.kinds())
}

func TestTimetableServiceOptimizeNotFound(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	_, err := f.svc.Optimize(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableServiceTransitions(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	tt := seedTimetable(f.store)
	ctx := context.Background()

	_, err := f.svc.Unpublish(ctx, tt.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	published, err := f.svc.Publish(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusPublished, published.Status)
	assert.Equal(t, 2, published.Version)

	assert.ErrorIs(t, f.svc.Delete(ctx, tt.ID), appErrors.ErrInvalidTransition)

	draft, err := f.svc.Unpublish(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusDraft, draft.Status)

	archived, err := f.svc.Archive(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusArchived, archived.Status)

	_, err = f.svc.Publish(ctx, tt.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = f.svc.Optimize(ctx, tt.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestTimetableServiceDeleteDraft(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	tt := seedTimetable(f.store)

	require.NoError(t, f.svc.Delete(context.Background(), tt.ID))
	_, err := f.svc.Get(context.Background(), tt.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableServiceListPaginates(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	seedTimetable(f.store)
	seedTimetable(f.store)

	items, pagination, err := f.svc.List(context.Background(), dto.TimetableQuery{Status: "draft"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 2}, pagination)

	_, _, err = f.svc.List(context.Background(), dto.TimetableQuery{Status: "deleted"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTimetableServiceDetailResolvesNames(t *testing.T) {
	f := newTimetableFixture(csCatalog())
	tt := seedTimetable(f.store,
		models.ScheduleEntry{ID: "c-alg#1", CourseID: "c-alg", FacultyID: "f-1", RoomID: "r-1", Day: "monday", StartTime: "09:00", EndTime: "10:00"},
		models.ScheduleEntry{ID: "x#1", CourseID: "x", FacultyID: "f-x", RoomID: "r-x", Day: "friday", StartTime: "15:00", EndTime: "16:00"},
	)

	detail, err := f.svc.Detail(context.Background(), tt.ID)
	require.NoError(t, err)
	require.Len(t, detail.Schedule, 2)
	assert.Equal(t, "Algorithms", detail.Schedule[0].CourseName)
	assert.Equal(t, "Ada", detail.Schedule[0].FacultyName)
	assert.Equal(t, "Hall A", detail.Schedule[0].RoomName)
	assert.Equal(t, "09:00-10:00", detail.Schedule[0].TimeSlot)
	assert.Equal(t, "f-x", detail.Schedule[1].FacultyName)
}
