package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

const catalogCachePattern = "catalog:*"

// CatalogReader is the read side of the external course/faculty/room catalog.
type CatalogReader interface {
	ListCourses(ctx context.Context, department string, semester int) ([]models.Course, error)
	ListFaculty(ctx context.Context, department string) ([]models.Faculty, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
}

// CatalogService serves catalog reads through the cache.
type CatalogService struct {
	reader  CatalogReader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(reader CatalogReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{reader: reader, cache: cache, metrics: metrics, logger: logger}
}

// ListCourses returns the courses offered by a department in a semester.
func (s *CatalogService) ListCourses(ctx context.Context, department string, semester int) ([]models.Course, error) {
	key := fmt.Sprintf("catalog:courses:%s:%d", catalogKey(department), semester)
	return remember(ctx, s.cache, key, func(ctx context.Context) ([]models.Course, error) {
		defer s.observe("courses", time.Now())
		return s.reader.ListCourses(ctx, department, semester)
	})
}

// ListFaculty returns the faculty attached to a department.
func (s *CatalogService) ListFaculty(ctx context.Context, department string) ([]models.Faculty, error) {
	key := fmt.Sprintf("catalog:faculty:%s", catalogKey(department))
	return remember(ctx, s.cache, key, func(ctx context.Context) ([]models.Faculty, error) {
		defer s.observe("faculty", time.Now())
		return s.reader.ListFaculty(ctx, department)
	})
}

// ListRooms returns every room.
func (s *CatalogService) ListRooms(ctx context.Context) ([]models.Room, error) {
	return remember(ctx, s.cache, "catalog:rooms", func(ctx context.Context) ([]models.Room, error) {
		defer s.observe("rooms", time.Now())
		return s.reader.ListRooms(ctx)
	})
}

// Snapshot loads everything needed to build a constraint model.
func (s *CatalogService) Snapshot(ctx context.Context, department string, semester int) (scheduler.Snapshot, error) {
	courses, err := s.ListCourses(ctx, department, semester)
	if err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("list courses: %w", err)
	}
	faculty, err := s.ListFaculty(ctx, department)
	if err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("list faculty: %w", err)
	}
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("list rooms: %w", err)
	}
	s.logger.Debug("catalog snapshot loaded",
		zap.String("department", department),
		zap.Int("semester", semester),
		zap.Int("courses", len(courses)),
		zap.Int("faculty", len(faculty)),
		zap.Int("rooms", len(rooms)),
	)
	return scheduler.Snapshot{Courses: courses, Faculty: faculty, Rooms: rooms}, nil
}

// Invalidate drops every cached catalog read. Called after the catalog owner edits data.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, catalogCachePattern)
}

func (s *CatalogService) observe(collection string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCatalogQuery(collection, time.Since(start))
	}
}

func catalogKey(department string) string {
	key := strings.ToLower(strings.TrimSpace(department))
	if key == "" {
		return "all"
	}
	return key
}
