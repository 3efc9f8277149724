package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/metrics"
	"classtrack/internal/schedule"
	"classtrack/internal/store"
)

// Handler exposes the schedule service over HTTP.
type Handler struct {
	svc      *schedule.Service
	cache    *store.Redis
	cacheTTL time.Duration
}

// NewHandler wires the service and the optional dates cache.
func NewHandler(svc *schedule.Service, cache *store.Redis, cacheTTL time.Duration) *Handler {
	return &Handler{svc: svc, cache: cache, cacheTTL: cacheTTL}
}

// Register attaches all API routes under /api.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/schedules", h.createSchedule)
	api.GET("/schedules", h.listSchedules)
	api.GET("/schedules/availability", h.checkAvailability)
	api.GET("/schedules/location/:location", h.listSchedulesByLocation)
	api.GET("/schedules/branch/:branch", h.listSchedulesByBranch)
	api.GET("/schedules/:id", h.getSchedule)
	api.PUT("/schedules/:id", h.updateSchedule)
	api.DELETE("/schedules/:id", h.deleteSchedule)
	api.PATCH("/schedules/:id/mark", h.updateMarkStatus)
	api.GET("/schedules/:id/attendance", h.listAttendance)
	api.GET("/schedules/:id/attendance/present", h.listPresent)
	api.GET("/schedules/:id/attendance/absent", h.listAbsent)

	api.POST("/attendance/mark", h.markAttendance)
	api.POST("/attendance/mark/batch", h.markAttendanceBatch)
	api.POST("/attendance/present", h.markAttendancePresent)

	api.POST("/students/details", h.studentDetails)
	api.GET("/students/dates", h.availableDates)
}

// fail maps service failures onto status codes.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, schedule.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, schedule.ErrAlreadyMarked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) createSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		fail(c, err)
		return
	}
	from, err := schedule.ParseTimeOfDay(req.FromTime)
	if err != nil {
		fail(c, err)
		return
	}
	to, err := schedule.ParseTimeOfDay(req.ToTime)
	if err != nil {
		fail(c, err)
		return
	}

	available, err := h.svc.IsTimeSlotAvailable(c.Request.Context(), req.Location, date, from, to, "")
	if err != nil {
		fail(c, err)
		return
	}
	if !available {
		metrics.SlotConflicts.Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "time slot not available for this location and date"})
		return
	}

	sch, err := h.svc.CreateSchedule(c.Request.Context(), req.toInput())
	if err != nil {
		fail(c, err)
		return
	}
	metrics.SchedulesCreated.Inc()
	h.cache.InvalidateDates(c.Request.Context())
	c.JSON(http.StatusCreated, toScheduleResponse(sch))
}

func (h *Handler) updateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		fail(c, err)
		return
	}
	from, err := schedule.ParseTimeOfDay(req.FromTime)
	if err != nil {
		fail(c, err)
		return
	}
	to, err := schedule.ParseTimeOfDay(req.ToTime)
	if err != nil {
		fail(c, err)
		return
	}

	available, err := h.svc.IsTimeSlotAvailable(c.Request.Context(), req.Location, date, from, to, id)
	if err != nil {
		fail(c, err)
		return
	}
	if !available {
		metrics.SlotConflicts.Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "time slot not available for this location and date"})
		return
	}

	sch, err := h.svc.UpdateSchedule(c.Request.Context(), id, req.toInput())
	if err != nil {
		fail(c, err)
		return
	}
	if sch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	metrics.SchedulesUpdated.Inc()
	h.cache.InvalidateDates(c.Request.Context())
	c.JSON(http.StatusOK, toScheduleResponse(*sch))
}

func (h *Handler) deleteSchedule(c *gin.Context) {
	deleted, err := h.svc.DeleteSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	metrics.SchedulesDeleted.Inc()
	h.cache.InvalidateDates(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) updateMarkStatus(c *gin.Context) {
	var req markStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sch, err := h.svc.UpdateMarkStatus(c.Request.Context(), c.Param("id"), *req.Mark)
	if err != nil {
		fail(c, err)
		return
	}
	if sch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(*sch))
}

func (h *Handler) getSchedule(c *gin.Context) {
	sch, err := h.svc.ScheduleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if sch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	c.JSON(http.StatusOK, toScheduleResponse(*sch))
}

func (h *Handler) listSchedules(c *gin.Context) {
	schedules, err := h.svc.Schedules(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": toScheduleResponses(schedules)})
}

func (h *Handler) listSchedulesByLocation(c *gin.Context) {
	schedules, err := h.svc.SchedulesByLocation(c.Request.Context(), c.Param("location"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": toScheduleResponses(schedules)})
}

func (h *Handler) listSchedulesByBranch(c *gin.Context) {
	schedules, err := h.svc.SchedulesByBranch(c.Request.Context(), c.Param("branch"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": toScheduleResponses(schedules)})
}

func (h *Handler) checkAvailability(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
		return
	}
	date, err := schedule.ParseDate(c.Query("date"))
	if err != nil {
		fail(c, err)
		return
	}
	from, err := schedule.ParseTimeOfDay(c.Query("from"))
	if err != nil {
		fail(c, err)
		return
	}
	to, err := schedule.ParseTimeOfDay(c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}
	available, err := h.svc.IsTimeSlotAvailable(c.Request.Context(), location, date, from, to, c.Query("exclude_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

func (h *Handler) listAttendance(c *gin.Context) {
	rows, err := h.svc.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": toAttendanceResponses(rows)})
}

func (h *Handler) listPresent(c *gin.Context) {
	rows, err := h.svc.PresentStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": toAttendanceResponses(rows)})
}

func (h *Handler) listAbsent(c *gin.Context) {
	rows, err := h.svc.AbsentStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": toAttendanceResponses(rows)})
}

func (h *Handler) markAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.MarkAttendanceByScheduleID(c.Request.Context(), req.ScheduleID, req.Email); err != nil {
		metrics.AttendanceRejected.Inc()
		fail(c, err)
		return
	}
	metrics.AttendanceMarked.Inc()
	c.JSON(http.StatusOK, gin.H{"marked": true})
}

func (h *Handler) markAttendanceBatch(c *gin.Context) {
	var req batchMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, results, err := h.svc.MarkAttendanceForStudents(c.Request.Context(), req.ScheduleID, req.Emails)
	if err != nil {
		fail(c, err)
		return
	}
	metrics.AttendanceMarked.Add(float64(count))
	out := make([]markResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, markResultResponse{Email: r.Email, Marked: r.Marked, Error: r.Error})
	}
	c.JSON(http.StatusOK, gin.H{"marked_count": count, "results": out})
}

func (h *Handler) markAttendancePresent(c *gin.Context) {
	var req presentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		fail(c, err)
		return
	}
	from, err := schedule.ParseTimeOfDay(req.FromTime)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.MarkAttendancePresent(c.Request.Context(), req.Email, date, from); err != nil {
		metrics.AttendanceRejected.Inc()
		fail(c, err)
		return
	}
	metrics.AttendanceMarked.Inc()
	c.JSON(http.StatusOK, gin.H{"marked": true})
}

func (h *Handler) studentDetails(c *gin.Context) {
	var req studentLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.svc.StudentByEmail(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":   st.Name,
		"branch": st.Branch,
		"year":   st.Year,
		"email":  st.Email,
	})
}

func (h *Handler) availableDates(c *gin.Context) {
	ctx := c.Request.Context()
	if dates, ok := h.cache.CachedDates(ctx); ok {
		c.JSON(http.StatusOK, gin.H{"dates": dates})
		return
	}
	raw, err := h.svc.AvailableDates(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	dates := make([]string, 0, len(raw))
	for _, d := range raw {
		dates = append(dates, d.Format(schedule.DateLayout))
	}
	h.cache.StoreDates(ctx, dates, h.cacheTTL)
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}
