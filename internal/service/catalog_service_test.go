package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type memoryCache struct {
	items  map[string][]byte
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

type catalogReaderStub struct {
	courses     []models.Course
	faculty     []models.Faculty
	rooms       []models.Room
	roomsErr    error
	courseCalls int
	roomCalls   int
}

func (c *catalogReaderStub) ListCourses(ctx context.Context, department string, semester int) ([]models.Course, error) {
	c.courseCalls++
	return c.courses, nil
}

func (c *catalogReaderStub) ListFaculty(ctx context.Context, department string) ([]models.Faculty, error) {
	return c.faculty, nil
}

func (c *catalogReaderStub) ListRooms(ctx context.Context) ([]models.Room, error) {
	c.roomCalls++
	return c.rooms, c.roomsErr
}

func newCatalogReaderStub() *catalogReaderStub {
	snapshot := csCatalog()
	return &catalogReaderStub{courses: snapshot.Courses, faculty: snapshot.Faculty, rooms: snapshot.Rooms}
}

func TestCatalogServiceReadsThroughCache(t *testing.T) {
	reader := newCatalogReaderStub()
	cache := newMemoryCache()
	metrics := NewMetricsService()
	svc := NewCatalogService(reader, NewCacheService(cache, metrics, time.Minute, zap.NewNop()), metrics, zap.NewNop())

	first, err := svc.ListCourses(context.Background(), "CS", 3)
	require.NoError(t, err)
	second, err := svc.ListCourses(context.Background(), "cs ", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, reader.courseCalls)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Contains(t, cache.items, "catalog:courses:cs:3")

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.Equal(t, uint64(1), snapshot.CatalogQueryCount)
}

func TestCatalogServiceInvalidateDropsCachedReads(t *testing.T) {
	reader := newCatalogReaderStub()
	cache := newMemoryCache()
	svc := NewCatalogService(reader, NewCacheService(cache, nil, time.Minute, nil), nil, nil)

	_, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))
	_, err = svc.ListRooms(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, reader.roomCalls)
}

func TestCatalogServiceTreatsCacheErrorsAsMiss(t *testing.T) {
	reader := newCatalogReaderStub()
	cache := newMemoryCache()
	cache.getErr = errors.New("redis timeout")
	svc := NewCatalogService(reader, NewCacheService(cache, nil, time.Minute, nil), nil, nil)

	rooms, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestCatalogServiceWithoutCache(t *testing.T) {
	reader := newCatalogReaderStub()
	svc := NewCatalogService(reader, nil, nil, nil)

	snapshot, err := svc.Snapshot(context.Background(), "CS", 3)
	require.NoError(t, err)
	assert.Len(t, snapshot.Courses, 2)
	assert.Len(t, snapshot.Faculty, 2)
	assert.Len(t, snapshot.Rooms, 2)
	require.NoError(t, svc.Invalidate(context.Background()))
}

func TestCatalogServiceSnapshotPropagatesErrors(t *testing.T) {
	reader := newCatalogReaderStub()
	reader.roomsErr = errors.New("connection refused")
	svc := NewCatalogService(reader, nil, nil, nil)

	_, err := svc.Snapshot(context.Background(), "CS", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list rooms")
}
