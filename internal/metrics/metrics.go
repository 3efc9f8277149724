package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the schedule lifecycle and attendance marking, exposed on
// /metrics next to the default process collectors.
var (
	SchedulesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_schedules_created_total",
		Help: "Schedules created.",
	})
	SchedulesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_schedules_updated_total",
		Help: "Schedules updated.",
	})
	SchedulesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_schedules_deleted_total",
		Help: "Schedules deleted with their rosters.",
	})
	SlotConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_slot_conflicts_total",
		Help: "Create/update requests rejected for an overlapping time slot.",
	})
	AttendanceMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_attendance_marked_total",
		Help: "Attendance rows newly marked present.",
	})
	AttendanceRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_attendance_rejected_total",
		Help: "Marking attempts rejected (missing row or already marked).",
	})
)
