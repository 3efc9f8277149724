package schedule

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ScheduleInput carries the raw create/update fields as the router
// delivers them. Date is YYYY-MM-DD, times are HH:MM, Year is a roman
// numeral code (I..IV).
type ScheduleInput struct {
	Location      string
	RoomNo        string
	Date          string
	FromTime      string
	ToTime        string
	StudentBranch string
	Year          string
	Mark          bool
}

// MarkResult reports the outcome of one email inside a batch marking.
type MarkResult struct {
	Email  string
	Marked bool
	Error  string
}

// SlotGuard decides whether a time window may be admitted at a location on
// a date. The default implementation is a plain read with no lock between
// the check and the caller's subsequent insert; a serializing guard can be
// swapped in without touching callers.
type SlotGuard interface {
	Available(ctx context.Context, location string, date, from, to time.Time, excludeID string) (bool, error)
}

// Service owns the schedule lifecycle: conflict checking, roster
// materialization and repair, and the attendance marking guard.
type Service struct {
	repo       Repository
	guard      SlotGuard
	yearLabels map[string]string
}

// Option customizes a Service.
type Option func(*Service)

// WithSlotGuard replaces the default read-only availability check.
func WithSlotGuard(g SlotGuard) Option {
	return func(s *Service) { s.guard = g }
}

// WithYearLabels replaces the year-code mapping.
func WithYearLabels(labels map[string]string) Option {
	return func(s *Service) {
		m := make(map[string]string, len(labels))
		for k, v := range labels {
			m[k] = v
		}
		s.yearLabels = m
	}
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, yearLabels: DefaultYearLabels}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = repoSlotGuard{repo: repo}
	}
	return s
}

// overlaps reports whether [aFrom,aTo) and [bFrom,bTo) intersect.
// Half-open semantics: a window ending exactly when another begins is not
// a conflict.
func overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return aTo.After(bFrom) && aFrom.Before(bTo)
}

// repoSlotGuard checks availability with a plain read. The read and the
// caller's subsequent insert are not serialized, so two concurrent
// creations can both pass; that matches the accepted design limitation.
type repoSlotGuard struct {
	repo Repository
}

func (g repoSlotGuard) Available(ctx context.Context, location string, date, from, to time.Time, excludeID string) (bool, error) {
	existing, err := g.repo.ListSchedulesForSlot(ctx, location, date, excludeID)
	if err != nil {
		return false, err
	}
	for _, sch := range existing {
		if overlaps(from, to, sch.FromTime, sch.ToTime) {
			return false, nil
		}
	}
	return true, nil
}

// IsTimeSlotAvailable reports whether [from,to) is free at location on
// date. excludeID, when non-empty, ignores one schedule so an update does
// not conflict with itself.
func (s *Service) IsTimeSlotAvailable(ctx context.Context, location string, date, from, to time.Time, excludeID string) (bool, error) {
	return s.guard.Available(ctx, location, date, from, to, excludeID)
}

// OverlappingSchedules returns the schedules that collide with the window.
func (s *Service) OverlappingSchedules(ctx context.Context, location string, date, from, to time.Time, excludeID string) ([]Schedule, error) {
	existing, err := s.repo.ListSchedulesForSlot(ctx, location, date, excludeID)
	if err != nil {
		return nil, err
	}
	var res []Schedule
	for _, sch := range existing {
		if overlaps(from, to, sch.FromTime, sch.ToTime) {
			res = append(res, sch)
		}
	}
	return res, nil
}

func (s *Service) mapYear(code string) string {
	// An unrecognized code resolves to an empty year rather than failing;
	// downstream the roster simply matches no students.
	return s.yearLabels[code]
}

func parseInput(in ScheduleInput) (date, from, to time.Time, err error) {
	if date, err = ParseDate(in.Date); err != nil {
		return
	}
	if from, err = ParseTimeOfDay(in.FromTime); err != nil {
		return
	}
	to, err = ParseTimeOfDay(in.ToTime)
	return
}

// CreateSchedule validates the input, persists the schedule and
// materializes its roster, all inside one transaction. Conflict checking
// is the caller's responsibility via IsTimeSlotAvailable.
func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (Schedule, error) {
	date, from, to, err := parseInput(in)
	if err != nil {
		return Schedule{}, err
	}

	sch := Schedule{
		Location:      in.Location,
		RoomNo:        in.RoomNo,
		Date:          date,
		FromTime:      from,
		ToTime:        to,
		StudentBranch: in.StudentBranch,
		Year:          s.mapYear(in.Year),
		Mark:          in.Mark,
	}

	err = s.repo.RunInTx(ctx, func(tx Repository) error {
		saved, err := tx.InsertSchedule(ctx, sch)
		if err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		sch = saved
		return insertRoster(ctx, tx, saved)
	})
	if err != nil {
		return Schedule{}, err
	}
	return sch, nil
}

// insertRoster creates one attendance row per student matching the
// schedule's branch set and year. An empty match is not an error.
func insertRoster(ctx context.Context, repo Repository, sch Schedule) error {
	branches := SplitBranches(sch.StudentBranch)
	students, err := repo.ListStudentsByBranchYear(ctx, branches, sch.Year)
	if err != nil {
		return fmt.Errorf("lookup students: %w", err)
	}
	if len(students) == 0 {
		log.Printf("warning: no students matched branches %v year %q for schedule %s", branches, sch.Year, sch.ID)
		return nil
	}
	rows := make([]StudentAttendance, 0, len(students))
	for _, st := range students {
		rows = append(rows, StudentAttendance{
			ScheduleID: sch.ID,
			Email:      st.Email,
			Date:       sch.Date,
			FromTime:   sch.FromTime,
			ToTime:     sch.ToTime,
			Present:    false,
		})
	}
	if err := repo.InsertAttendanceBatch(ctx, rows); err != nil {
		return fmt.Errorf("insert roster: %w", err)
	}
	return nil
}

// UpdateSchedule overwrites a schedule's fields and re-stamps the
// date/time columns on every attendance row it owns, atomically. The year
// is intentionally left as stored, and roster membership is not
// recomputed even when the branch list changes; only the denormalized
// time fields are repaired. Returns nil when the id does not exist.
func (s *Service) UpdateSchedule(ctx context.Context, id string, in ScheduleInput) (*Schedule, error) {
	existing, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	date, from, to, err := parseInput(in)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Location = in.Location
	updated.RoomNo = in.RoomNo
	updated.Date = date
	updated.FromTime = from
	updated.ToTime = to
	updated.StudentBranch = in.StudentBranch

	err = s.repo.RunInTx(ctx, func(tx Repository) error {
		if err := tx.UpdateSchedule(ctx, updated); err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		rows, err := tx.ListAttendanceBySchedule(ctx, id)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		for _, row := range rows {
			row.Date = updated.Date
			row.FromTime = updated.FromTime
			row.ToTime = updated.ToTime
			if err := tx.UpdateAttendance(ctx, row); err != nil {
				return fmt.Errorf("repair roster row %s: %w", row.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSchedule removes a schedule and its roster inside one
// transaction, rows first. Returns false when the id does not exist.
func (s *Service) DeleteSchedule(ctx context.Context, id string) (bool, error) {
	exists, err := s.repo.ScheduleExists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	err = s.repo.RunInTx(ctx, func(tx Repository) error {
		if err := tx.DeleteAttendanceBySchedule(ctx, id); err != nil {
			return fmt.Errorf("delete roster: %w", err)
		}
		if err := tx.DeleteSchedule(ctx, id); err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateMarkStatus flips only the mark flag. Returns nil when absent.
func (s *Service) UpdateMarkStatus(ctx context.Context, id string, mark bool) (*Schedule, error) {
	sch, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if sch == nil {
		return nil, nil
	}
	sch.Mark = mark
	if err := s.repo.UpdateSchedule(ctx, *sch); err != nil {
		return nil, err
	}
	return sch, nil
}

// markRow applies the Unmarked→Present transition to a looked-up row.
func markRow(ctx context.Context, repo Repository, row *StudentAttendance) error {
	if row == nil {
		return ErrNotFound
	}
	if row.Present {
		return ErrAlreadyMarked
	}
	row.Present = true
	return repo.UpdateAttendance(ctx, *row)
}

// MarkAttendanceByScheduleID marks the (schedule, email) row present.
// Fails with ErrNotFound when no row exists and ErrAlreadyMarked when the
// row is already present; the stored Present state is never reverted.
func (s *Service) MarkAttendanceByScheduleID(ctx context.Context, scheduleID, email string) error {
	row, err := s.repo.GetAttendance(ctx, scheduleID, email)
	if err != nil {
		return err
	}
	return markRow(ctx, s.repo, row)
}

// MarkAttendancePresent is the legacy marking path keyed by email, date
// and start time.
func (s *Service) MarkAttendancePresent(ctx context.Context, email string, date, from time.Time) error {
	row, err := s.repo.GetAttendanceByTime(ctx, email, date, from)
	if err != nil {
		return err
	}
	return markRow(ctx, s.repo, row)
}

// MarkAttendanceForStudents marks several emails against one schedule.
// Each email is guarded independently: a not-found or already-marked
// failure is recorded and the loop continues. The returned count holds
// only newly marked students; the result list carries the per-email
// outcome for callers that need to tell the failure modes apart.
func (s *Service) MarkAttendanceForStudents(ctx context.Context, scheduleID string, emails []string) (int, []MarkResult, error) {
	marked := 0
	results := make([]MarkResult, 0, len(emails))
	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		for _, email := range emails {
			row, err := tx.GetAttendance(ctx, scheduleID, email)
			if err == nil {
				err = markRow(ctx, tx, row)
			}
			if err != nil {
				log.Printf("mark attendance for %s in schedule %s: %v", email, scheduleID, err)
				results = append(results, MarkResult{Email: email, Error: err.Error()})
				continue
			}
			marked++
			results = append(results, MarkResult{Email: email, Marked: true})
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return marked, results, nil
}

// Read-only query surface.

// Schedules returns every schedule.
func (s *Service) Schedules(ctx context.Context) ([]Schedule, error) {
	return s.repo.ListSchedules(ctx)
}

// ScheduleByID returns one schedule, nil when absent.
func (s *Service) ScheduleByID(ctx context.Context, id string) (*Schedule, error) {
	return s.repo.GetSchedule(ctx, id)
}

// SchedulesByLocation returns schedules at an exact location.
func (s *Service) SchedulesByLocation(ctx context.Context, location string) ([]Schedule, error) {
	return s.repo.ListSchedulesByLocation(ctx, location)
}

// SchedulesByBranch returns schedules whose branch list contains branch.
func (s *Service) SchedulesByBranch(ctx context.Context, branch string) ([]Schedule, error) {
	return s.repo.ListSchedulesByBranch(ctx, branch)
}

// Roster returns the full attendance list for a schedule.
func (s *Service) Roster(ctx context.Context, scheduleID string) ([]StudentAttendance, error) {
	return s.repo.ListAttendanceBySchedule(ctx, scheduleID)
}

// PresentStudents returns the roster rows already marked present.
func (s *Service) PresentStudents(ctx context.Context, scheduleID string) ([]StudentAttendance, error) {
	return s.repo.ListAttendanceByPresence(ctx, scheduleID, true)
}

// AbsentStudents returns the roster rows not yet marked present.
func (s *Service) AbsentStudents(ctx context.Context, scheduleID string) ([]StudentAttendance, error) {
	return s.repo.ListAttendanceByPresence(ctx, scheduleID, false)
}

// AvailableDates returns the distinct dates carrying attendance rows.
func (s *Service) AvailableDates(ctx context.Context) ([]time.Time, error) {
	return s.repo.DistinctAttendanceDates(ctx)
}

// StudentByEmail looks up a student case-insensitively, nil when absent.
func (s *Service) StudentByEmail(ctx context.Context, email string) (*StudentDetails, error) {
	return s.repo.GetStudentByEmail(ctx, email)
}
