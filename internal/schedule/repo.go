package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for schedules, students and
// attendance rows. RunInTx executes fn against a repository bound to one
// transaction; every multi-row write sequence in the service goes through
// it so a partially materialized roster is never observable.
type Repository interface {
	RunInTx(ctx context.Context, fn func(Repository) error) error

	InsertSchedule(ctx context.Context, sch Schedule) (Schedule, error)
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	ScheduleExists(ctx context.Context, id string) (bool, error)
	UpdateSchedule(ctx context.Context, sch Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
	ListSchedules(ctx context.Context) ([]Schedule, error)
	ListSchedulesByLocation(ctx context.Context, location string) ([]Schedule, error)
	ListSchedulesByBranch(ctx context.Context, branch string) ([]Schedule, error)
	ListSchedulesForSlot(ctx context.Context, location string, date time.Time, excludeID string) ([]Schedule, error)

	ListStudentsByBranchYear(ctx context.Context, branches []string, year string) ([]StudentDetails, error)
	GetStudentByEmail(ctx context.Context, email string) (*StudentDetails, error)

	InsertAttendanceBatch(ctx context.Context, rows []StudentAttendance) error
	GetAttendance(ctx context.Context, scheduleID, email string) (*StudentAttendance, error)
	GetAttendanceByTime(ctx context.Context, email string, date, from time.Time) (*StudentAttendance, error)
	UpdateAttendance(ctx context.Context, row StudentAttendance) error
	ListAttendanceBySchedule(ctx context.Context, scheduleID string) ([]StudentAttendance, error)
	ListAttendanceByPresence(ctx context.Context, scheduleID string, present bool) ([]StudentAttendance, error)
	DeleteAttendanceBySchedule(ctx context.Context, scheduleID string) error
	DistinctAttendanceDates(ctx context.Context) ([]time.Time, error)
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRepository persists schedule data in Postgres.
type PostgresRepository struct {
	db *sql.DB
	q  dbtx
}

// NewPostgresRepository creates a repo over an open connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, q: db}
}

// RunInTx runs fn inside a transaction. A repository already bound to a
// transaction reuses it, so nested calls share one commit point.
func (r *PostgresRepository) RunInTx(ctx context.Context, fn func(Repository) error) error {
	if _, inTx := r.q.(*sql.Tx); inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&PostgresRepository{db: r.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const scheduleColumns = `id, location, room_no, date, from_time, to_time, student_branch, year, mark, created_at`

func scanSchedule(row interface{ Scan(...any) error }) (Schedule, error) {
	var sch Schedule
	err := row.Scan(&sch.ID, &sch.Location, &sch.RoomNo, &sch.Date, &sch.FromTime,
		&sch.ToTime, &sch.StudentBranch, &sch.Year, &sch.Mark, &sch.CreatedAt)
	return sch, err
}

// InsertSchedule writes a new schedule, generating its id when absent.
func (r *PostgresRepository) InsertSchedule(ctx context.Context, sch Schedule) (Schedule, error) {
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO schedules (id, location, room_no, date, from_time, to_time, student_branch, year, mark)
		VALUES ($1,$2,$3,$4::date,$5::time,$6::time,$7,$8,$9)
		RETURNING created_at
	`, sch.ID, sch.Location, sch.RoomNo, sch.Date.Format(DateLayout),
		sch.FromTime.Format(TimeLayout), sch.ToTime.Format(TimeLayout),
		sch.StudentBranch, sch.Year, sch.Mark)
	if err := row.Scan(&sch.CreatedAt); err != nil {
		return Schedule{}, err
	}
	return sch, nil
}

// GetSchedule returns a schedule by id, or nil when absent.
func (r *PostgresRepository) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE id = $1
	`, id)
	sch, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sch, nil
}

// ScheduleExists reports whether a schedule row exists.
func (r *PostgresRepository) ScheduleExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// UpdateSchedule overwrites all mutable schedule fields.
func (r *PostgresRepository) UpdateSchedule(ctx context.Context, sch Schedule) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE schedules
		SET location = $2, room_no = $3, date = $4::date, from_time = $5::time,
		    to_time = $6::time, student_branch = $7, year = $8, mark = $9
		WHERE id = $1
	`, sch.ID, sch.Location, sch.RoomNo, sch.Date.Format(DateLayout),
		sch.FromTime.Format(TimeLayout), sch.ToTime.Format(TimeLayout),
		sch.StudentBranch, sch.Year, sch.Mark)
	return err
}

// DeleteSchedule removes the schedule row only; the service deletes the
// owned attendance rows first inside the same transaction.
func (r *PostgresRepository) DeleteSchedule(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) querySchedules(ctx context.Context, query string, args ...any) ([]Schedule, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, sch)
	}
	return res, rows.Err()
}

// ListSchedules returns every schedule, newest date first.
func (r *PostgresRepository) ListSchedules(ctx context.Context) ([]Schedule, error) {
	return r.querySchedules(ctx, `
		SELECT `+scheduleColumns+` FROM schedules ORDER BY date DESC, from_time
	`)
}

// ListSchedulesByLocation returns schedules at an exact location.
func (r *PostgresRepository) ListSchedulesByLocation(ctx context.Context, location string) ([]Schedule, error) {
	return r.querySchedules(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE location = $1 ORDER BY date DESC, from_time
	`, location)
}

// ListSchedulesByBranch matches the stored branch list by substring, so a
// query for "CSE" finds schedules targeting "CSE,ECE".
func (r *PostgresRepository) ListSchedulesByBranch(ctx context.Context, branch string) ([]Schedule, error) {
	return r.querySchedules(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE student_branch LIKE '%' || $1 || '%' ORDER BY date DESC, from_time
	`, branch)
}

// ListSchedulesForSlot returns schedules sharing a location and date,
// optionally excluding one id (so an update does not conflict with itself).
func (r *PostgresRepository) ListSchedulesForSlot(ctx context.Context, location string, date time.Time, excludeID string) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE location = $1 AND date = $2::date`
	args := []any{location, date.Format(DateLayout)}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	return r.querySchedules(ctx, query+` ORDER BY from_time`, args...)
}

// ListStudentsByBranchYear returns students whose branch is in the given
// set and whose year matches exactly.
func (r *PostgresRepository) ListStudentsByBranchYear(ctx context.Context, branches []string, year string) ([]StudentDetails, error) {
	if len(branches) == 0 {
		return nil, nil
	}
	query := `SELECT id, email, name, branch, year FROM student_details WHERE year = $1 AND branch IN (`
	args := []any{year}
	for i, b := range branches {
		if i > 0 {
			query += ","
		}
		query += fmt.Sprintf("$%d", len(args)+1)
		args = append(args, b)
	}
	query += `) ORDER BY email`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StudentDetails
	for rows.Next() {
		var st StudentDetails
		if err := rows.Scan(&st.ID, &st.Email, &st.Name, &st.Branch, &st.Year); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

// GetStudentByEmail looks a student up case-insensitively, nil when absent.
func (r *PostgresRepository) GetStudentByEmail(ctx context.Context, email string) (*StudentDetails, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, email, name, branch, year FROM student_details WHERE LOWER(email) = LOWER($1)
	`, email)
	var st StudentDetails
	if err := row.Scan(&st.ID, &st.Email, &st.Name, &st.Branch, &st.Year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

const attendanceColumns = `id, schedule_id, email, date, from_time, to_time, present`

func scanAttendance(row interface{ Scan(...any) error }) (StudentAttendance, error) {
	var a StudentAttendance
	err := row.Scan(&a.ID, &a.ScheduleID, &a.Email, &a.Date, &a.FromTime, &a.ToTime, &a.Present)
	return a, err
}

// InsertAttendanceBatch writes roster rows, generating ids when absent.
func (r *PostgresRepository) InsertAttendanceBatch(ctx context.Context, rows []StudentAttendance) error {
	for _, a := range rows {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO student_attendance (id, schedule_id, email, date, from_time, to_time, present)
			VALUES ($1,$2,$3,$4::date,$5::time,$6::time,$7)
		`, a.ID, a.ScheduleID, a.Email, a.Date.Format(DateLayout),
			a.FromTime.Format(TimeLayout), a.ToTime.Format(TimeLayout), a.Present)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetAttendance returns the row for (schedule, email), nil when absent.
func (r *PostgresRepository) GetAttendance(ctx context.Context, scheduleID, email string) (*StudentAttendance, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+attendanceColumns+` FROM student_attendance WHERE schedule_id = $1 AND email = $2
	`, scheduleID, email)
	a, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// GetAttendanceByTime is the legacy lookup keyed by email, date and start
// time instead of the owning schedule id.
func (r *PostgresRepository) GetAttendanceByTime(ctx context.Context, email string, date, from time.Time) (*StudentAttendance, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+attendanceColumns+` FROM student_attendance
		WHERE email = $1 AND date = $2::date AND from_time = $3::time
	`, email, date.Format(DateLayout), from.Format(TimeLayout))
	a, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// UpdateAttendance overwrites the mutable fields of one roster row.
func (r *PostgresRepository) UpdateAttendance(ctx context.Context, a StudentAttendance) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE student_attendance
		SET date = $2::date, from_time = $3::time, to_time = $4::time, present = $5
		WHERE id = $1
	`, a.ID, a.Date.Format(DateLayout), a.FromTime.Format(TimeLayout),
		a.ToTime.Format(TimeLayout), a.Present)
	return err
}

func (r *PostgresRepository) queryAttendance(ctx context.Context, query string, args ...any) ([]StudentAttendance, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StudentAttendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ListAttendanceBySchedule returns the full roster for a schedule.
func (r *PostgresRepository) ListAttendanceBySchedule(ctx context.Context, scheduleID string) ([]StudentAttendance, error) {
	return r.queryAttendance(ctx, `
		SELECT `+attendanceColumns+` FROM student_attendance WHERE schedule_id = $1 ORDER BY email
	`, scheduleID)
}

// ListAttendanceByPresence filters a roster by present flag.
func (r *PostgresRepository) ListAttendanceByPresence(ctx context.Context, scheduleID string, present bool) ([]StudentAttendance, error) {
	return r.queryAttendance(ctx, `
		SELECT `+attendanceColumns+` FROM student_attendance WHERE schedule_id = $1 AND present = $2 ORDER BY email
	`, scheduleID, present)
}

// DeleteAttendanceBySchedule removes every roster row a schedule owns.
func (r *PostgresRepository) DeleteAttendanceBySchedule(ctx context.Context, scheduleID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM student_attendance WHERE schedule_id = $1`, scheduleID)
	return err
}

// DistinctAttendanceDates returns the sorted set of dates that have any
// attendance row.
func (r *PostgresRepository) DistinctAttendanceDates(ctx context.Context) ([]time.Time, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT date FROM student_attendance ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}
