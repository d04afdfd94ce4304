package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ErrVersionMismatch is returned when an update targets a stale timetable version.
var ErrVersionMismatch = errors.New("timetable version mismatch")

const timetableColumns = `id, name, department, semester, year, status, conflicts, version, created_at, updated_at,
total_hours AS "metadata.total_hours", utilization_rate AS "metadata.utilization_rate", conflict_count AS "metadata.conflict_count"`

const entryColumns = `timetable_id, entry_key, position, course_id, faculty_id, room_id, day, start_time, end_time`

// TimetableRepository persists timetables and their schedule entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create inserts a timetable with its entries in one transaction.
func (r *TimetableRepository) Create(ctx context.Context, timetable *models.Timetable) (err error) {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Status == "" {
		timetable.Status = models.TimetableStatusDraft
	}
	if timetable.Version == 0 {
		timetable.Version = 1
	}
	now := time.Now().UTC()
	timetable.CreatedAt = now
	timetable.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO timetables (id, name, department, semester, year, status, conflicts, total_hours, utilization_rate, conflict_count, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err = tx.ExecContext(ctx, insertQuery,
		timetable.ID, timetable.Name, timetable.Department, timetable.Semester, timetable.Year,
		timetable.Status, timetable.Conflicts, timetable.Metadata.TotalHours, timetable.Metadata.UtilizationRate,
		timetable.Metadata.ConflictCount, timetable.Version, timetable.CreatedAt, timetable.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	if err = r.insertEntries(ctx, tx, timetable.ID, timetable.Schedule); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable: %w", err)
	}
	return nil
}

// FindByID loads a timetable with its ordered schedule.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	entries, err := r.listEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	timetable.Schedule = entries
	return &timetable, nil
}

// List returns timetables matching the filter, newest first, without schedules.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	base := "FROM timetables WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(department) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", timetableColumns, base, size, offset)
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}
	return timetables, total, nil
}

// ReplaceSchedule swaps the schedule and metadata when the stored version still
// matches expectedVersion. The timetable version is bumped on success.
func (r *TimetableRepository) ReplaceSchedule(ctx context.Context, timetable *models.Timetable, expectedVersion int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const updateQuery = `UPDATE timetables SET conflicts = $1, total_hours = $2, utilization_rate = $3, conflict_count = $4, version = version + 1, updated_at = $5
WHERE id = $6 AND version = $7`
	result, err := tx.ExecContext(ctx, updateQuery,
		timetable.Conflicts, timetable.Metadata.TotalHours, timetable.Metadata.UtilizationRate, timetable.Metadata.ConflictCount,
		now, timetable.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update timetable schedule: %w", err)
	}
	if err = requireAffected(result, "timetable schedule"); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE timetable_id = $1`, timetable.ID); err != nil {
		return fmt.Errorf("clear timetable entries: %w", err)
	}
	if err = r.insertEntries(ctx, tx, timetable.ID, timetable.Schedule); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable schedule: %w", err)
	}
	timetable.Version = expectedVersion + 1
	timetable.UpdatedAt = now
	return nil
}

// UpdateStatus moves a timetable to a new status guarded by its version.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, id string, status models.TimetableStatus, expectedVersion int) error {
	const query = `UPDATE timetables SET status = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	return requireAffected(result, "timetable status")
}

// Delete removes a draft timetable. Entries cascade.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetables WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, models.TimetableStatusDraft)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *TimetableRepository) insertEntries(ctx context.Context, exec sqlx.ExecerContext, timetableID string, entries []models.ScheduleEntry) error {
	const query = `INSERT INTO timetable_entries (` + entryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i, entry := range entries {
		if _, err := exec.ExecContext(ctx, query,
			timetableID, entry.ID, i, entry.CourseID, entry.FacultyID, entry.RoomID, entry.Day, entry.StartTime, entry.EndTime,
		); err != nil {
			return fmt.Errorf("insert timetable entry %s: %w", entry.ID, err)
		}
	}
	return nil
}

func (r *TimetableRepository) listEntries(ctx context.Context, timetableID string) ([]models.ScheduleEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM timetable_entries WHERE timetable_id = $1 ORDER BY position`
	entries := make([]models.ScheduleEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

func requireAffected(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if affected == 0 {
		return ErrVersionMismatch
	}
	return nil
}
