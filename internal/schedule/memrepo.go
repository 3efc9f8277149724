package schedule

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemRepository is an in-memory Repository used by tests and by local
// development without Postgres. RunInTx serializes the callback but does
// not roll partial writes back; tests that exercise atomicity assert on
// the error path before any write happens.
type MemRepository struct {
	mu         sync.RWMutex
	schedules  map[string]Schedule
	students   map[string]StudentDetails
	attendance map[string]StudentAttendance
}

// NewMemRepository creates an empty in-memory repository.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		schedules:  make(map[string]Schedule),
		students:   make(map[string]StudentDetails),
		attendance: make(map[string]StudentAttendance),
	}
}

// SeedStudents loads student lookup records, assigning ids when missing.
func (m *MemRepository) SeedStudents(students ...StudentDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range students {
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		m.students[st.ID] = st
	}
}

// RunInTx runs fn against the same repository.
func (m *MemRepository) RunInTx(ctx context.Context, fn func(Repository) error) error {
	return fn(m)
}

func (m *MemRepository) InsertSchedule(ctx context.Context, sch Schedule) (Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	if sch.CreatedAt.IsZero() {
		sch.CreatedAt = time.Now().UTC()
	}
	m.schedules[sch.ID] = sch
	return sch, nil
}

func (m *MemRepository) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sch, ok := m.schedules[id]
	if !ok {
		return nil, nil
	}
	return &sch, nil
}

func (m *MemRepository) ScheduleExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.schedules[id]
	return ok, nil
}

func (m *MemRepository) UpdateSchedule(ctx context.Context, sch Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.schedules[sch.ID]; ok {
		sch.CreatedAt = existing.CreatedAt
		m.schedules[sch.ID] = sch
	}
	return nil
}

func (m *MemRepository) DeleteSchedule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	return nil
}

func (m *MemRepository) listSchedules(match func(Schedule) bool) []Schedule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Schedule
	for _, sch := range m.schedules {
		if match(sch) {
			res = append(res, sch)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Date.Equal(res[j].Date) {
			return res[i].Date.After(res[j].Date)
		}
		return res[i].FromTime.Before(res[j].FromTime)
	})
	return res
}

func (m *MemRepository) ListSchedules(ctx context.Context) ([]Schedule, error) {
	return m.listSchedules(func(Schedule) bool { return true }), nil
}

func (m *MemRepository) ListSchedulesByLocation(ctx context.Context, location string) ([]Schedule, error) {
	return m.listSchedules(func(s Schedule) bool { return s.Location == location }), nil
}

func (m *MemRepository) ListSchedulesByBranch(ctx context.Context, branch string) ([]Schedule, error) {
	return m.listSchedules(func(s Schedule) bool { return strings.Contains(s.StudentBranch, branch) }), nil
}

func (m *MemRepository) ListSchedulesForSlot(ctx context.Context, location string, date time.Time, excludeID string) ([]Schedule, error) {
	res := m.listSchedules(func(s Schedule) bool {
		return s.Location == location && s.Date.Equal(date) && s.ID != excludeID
	})
	sort.Slice(res, func(i, j int) bool { return res[i].FromTime.Before(res[j].FromTime) })
	return res, nil
}

func (m *MemRepository) ListStudentsByBranchYear(ctx context.Context, branches []string, year string) ([]StudentDetails, error) {
	set := make(map[string]bool, len(branches))
	for _, b := range branches {
		set[b] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []StudentDetails
	for _, st := range m.students {
		if set[st.Branch] && st.Year == year {
			res = append(res, st)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Email < res[j].Email })
	return res, nil
}

func (m *MemRepository) GetStudentByEmail(ctx context.Context, email string) (*StudentDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, st := range m.students {
		if strings.EqualFold(st.Email, email) {
			out := st
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemRepository) InsertAttendanceBatch(ctx context.Context, rows []StudentAttendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range rows {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		m.attendance[a.ID] = a
	}
	return nil
}

func (m *MemRepository) GetAttendance(ctx context.Context, scheduleID, email string) (*StudentAttendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attendance {
		if a.ScheduleID == scheduleID && a.Email == email {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemRepository) GetAttendanceByTime(ctx context.Context, email string, date, from time.Time) (*StudentAttendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attendance {
		if a.Email == email && a.Date.Equal(date) && a.FromTime.Equal(from) {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemRepository) UpdateAttendance(ctx context.Context, row StudentAttendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attendance[row.ID]; ok {
		m.attendance[row.ID] = row
	}
	return nil
}

func (m *MemRepository) listAttendance(match func(StudentAttendance) bool) []StudentAttendance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []StudentAttendance
	for _, a := range m.attendance {
		if match(a) {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Email < res[j].Email })
	return res
}

func (m *MemRepository) ListAttendanceBySchedule(ctx context.Context, scheduleID string) ([]StudentAttendance, error) {
	return m.listAttendance(func(a StudentAttendance) bool { return a.ScheduleID == scheduleID }), nil
}

func (m *MemRepository) ListAttendanceByPresence(ctx context.Context, scheduleID string, present bool) ([]StudentAttendance, error) {
	return m.listAttendance(func(a StudentAttendance) bool {
		return a.ScheduleID == scheduleID && a.Present == present
	}), nil
}

func (m *MemRepository) DeleteAttendanceBySchedule(ctx context.Context, scheduleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.attendance {
		if a.ScheduleID == scheduleID {
			delete(m.attendance, id)
		}
	}
	return nil
}

func (m *MemRepository) DistinctAttendanceDates(ctx context.Context) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]time.Time)
	for _, a := range m.attendance {
		seen[a.Date.Format(DateLayout)] = a.Date
	}
	var res []time.Time
	for _, d := range seen {
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Before(res[j]) })
	return res, nil
}

var _ Repository = (*MemRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)
