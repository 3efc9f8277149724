package httpapi

import (
	"classtrack/internal/schedule"
)

type scheduleRequest struct {
	Location      string `json:"location" binding:"required"`
	RoomNo        string `json:"room_no" binding:"required"`
	Date          string `json:"date" binding:"required"`
	FromTime      string `json:"from_time" binding:"required"`
	ToTime        string `json:"to_time" binding:"required"`
	StudentBranch string `json:"student_branch" binding:"required"`
	Year          string `json:"year"`
	Mark          bool   `json:"mark"`
}

func (r scheduleRequest) toInput() schedule.ScheduleInput {
	return schedule.ScheduleInput{
		Location:      r.Location,
		RoomNo:        r.RoomNo,
		Date:          r.Date,
		FromTime:      r.FromTime,
		ToTime:        r.ToTime,
		StudentBranch: r.StudentBranch,
		Year:          r.Year,
		Mark:          r.Mark,
	}
}

type scheduleResponse struct {
	ID            string `json:"id"`
	Location      string `json:"location"`
	RoomNo        string `json:"room_no"`
	Date          string `json:"date"`
	FromTime      string `json:"from_time"`
	ToTime        string `json:"to_time"`
	StudentBranch string `json:"student_branch"`
	Year          string `json:"year"`
	Mark          bool   `json:"mark"`
}

func toScheduleResponse(s schedule.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:            s.ID,
		Location:      s.Location,
		RoomNo:        s.RoomNo,
		Date:          s.Date.Format(schedule.DateLayout),
		FromTime:      s.FromTime.Format(schedule.TimeLayout),
		ToTime:        s.ToTime.Format(schedule.TimeLayout),
		StudentBranch: s.StudentBranch,
		Year:          s.Year,
		Mark:          s.Mark,
	}
}

func toScheduleResponses(schedules []schedule.Schedule) []scheduleResponse {
	res := make([]scheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		res = append(res, toScheduleResponse(s))
	}
	return res
}

type attendanceResponse struct {
	ID         string `json:"id"`
	ScheduleID string `json:"schedule_id"`
	Email      string `json:"email"`
	Date       string `json:"date"`
	FromTime   string `json:"from_time"`
	ToTime     string `json:"to_time"`
	Present    bool   `json:"present"`
}

func toAttendanceResponses(rows []schedule.StudentAttendance) []attendanceResponse {
	res := make([]attendanceResponse, 0, len(rows))
	for _, a := range rows {
		res = append(res, attendanceResponse{
			ID:         a.ID,
			ScheduleID: a.ScheduleID,
			Email:      a.Email,
			Date:       a.Date.Format(schedule.DateLayout),
			FromTime:   a.FromTime.Format(schedule.TimeLayout),
			ToTime:     a.ToTime.Format(schedule.TimeLayout),
			Present:    a.Present,
		})
	}
	return res
}

type markRequest struct {
	ScheduleID string `json:"schedule_id" binding:"required"`
	Email      string `json:"email" binding:"required"`
}

type batchMarkRequest struct {
	ScheduleID string   `json:"schedule_id" binding:"required"`
	Emails     []string `json:"emails" binding:"required"`
}

type markResultResponse struct {
	Email  string `json:"email"`
	Marked bool   `json:"marked"`
	Error  string `json:"error,omitempty"`
}

type presentRequest struct {
	Email    string `json:"email" binding:"required"`
	Date     string `json:"date" binding:"required"`
	FromTime string `json:"from_time" binding:"required"`
}

type markStatusRequest struct {
	Mark *bool `json:"mark" binding:"required"`
}

type studentLookupRequest struct {
	Email string `json:"email" binding:"required"`
}
