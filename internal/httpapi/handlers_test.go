package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/schedule"
)

func newTestRouter(t *testing.T) (*gin.Engine, *schedule.MemRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := schedule.NewMemRepository()
	repo.SeedStudents(
		schedule.StudentDetails{Email: "alice@college.edu", Name: "Alice", Branch: "CSE", Year: "second"},
		schedule.StudentDetails{Email: "bob@college.edu", Name: "Bob", Branch: "ECE", Year: "second"},
	)
	svc := schedule.NewService(repo)
	h := NewHandler(svc, nil, time.Minute)

	r := gin.New()
	h.Register(r)
	return r, repo
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validSchedule() map[string]any {
	return map[string]any{
		"location":       "Main Block",
		"room_no":        "101",
		"date":           "2026-09-14",
		"from_time":      "09:00",
		"to_time":        "10:00",
		"student_branch": "CSE,ECE",
		"year":           "II",
	}
}

func createSchedule(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/schedules", validSchedule())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestCreateSchedule(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/schedules", validSchedule())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp scheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "second", resp.Year)
	assert.Equal(t, "09:00", resp.FromTime)
	assert.False(t, resp.Mark)
}

func TestCreateScheduleConflict(t *testing.T) {
	r, _ := newTestRouter(t)
	createSchedule(t, r)

	overlap := validSchedule()
	overlap["from_time"] = "09:30"
	overlap["to_time"] = "10:30"
	w := doJSON(t, r, http.MethodPost, "/api/schedules", overlap)
	assert.Equal(t, http.StatusConflict, w.Code)

	// touching windows are admitted
	touching := validSchedule()
	touching["from_time"] = "10:00"
	touching["to_time"] = "11:00"
	w = doJSON(t, r, http.MethodPost, "/api/schedules", touching)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateScheduleBadInput(t *testing.T) {
	r, _ := newTestRouter(t)

	missing := validSchedule()
	delete(missing, "location")
	w := doJSON(t, r, http.MethodPost, "/api/schedules", missing)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	badDate := validSchedule()
	badDate["date"] = "14/09/2026"
	w = doJSON(t, r, http.MethodPost, "/api/schedules", badDate)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetScheduleNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/schedules/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateSchedule(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSchedule(t, r)

	upd := validSchedule()
	upd["date"] = "2026-09-21"
	upd["from_time"] = "14:00"
	upd["to_time"] = "15:00"
	w := doJSON(t, r, http.MethodPut, "/api/schedules/"+id, upd)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// roster rows follow the new window
	w = doJSON(t, r, http.MethodGet, "/api/schedules/"+id+"/attendance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Attendance []attendanceResponse `json:"attendance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Attendance, 2)
	for _, row := range resp.Attendance {
		assert.Equal(t, "2026-09-21", row.Date)
		assert.Equal(t, "14:00", row.FromTime)
		assert.Equal(t, "15:00", row.ToTime)
	}

	w = doJSON(t, r, http.MethodPut, "/api/schedules/unknown", validSchedule())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSchedule(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSchedule(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/schedules/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/schedules/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/schedules/"+id+"/attendance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Attendance []attendanceResponse `json:"attendance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Attendance)
}

func TestMarkAttendanceTwice(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSchedule(t, r)

	body := map[string]any{"schedule_id": id, "email": "alice@college.edu"}
	w := doJSON(t, r, http.MethodPost, "/api/attendance/mark", body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/attendance/mark", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	missing := map[string]any{"schedule_id": id, "email": "ghost@college.edu"}
	w = doJSON(t, r, http.MethodPost, "/api/attendance/mark", missing)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAttendanceBatch(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSchedule(t, r)

	// pre-mark bob
	w := doJSON(t, r, http.MethodPost, "/api/attendance/mark", map[string]any{"schedule_id": id, "email": "bob@college.edu"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/attendance/mark/batch", map[string]any{
		"schedule_id": id,
		"emails":      []string{"alice@college.edu", "ghost@college.edu", "bob@college.edu"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		MarkedCount int                  `json:"marked_count"`
		Results     []markResultResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.MarkedCount)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Marked)
	assert.False(t, resp.Results[1].Marked)
	assert.NotEmpty(t, resp.Results[1].Error)
	assert.False(t, resp.Results[2].Marked)
	assert.NotEmpty(t, resp.Results[2].Error)
}

func TestMarkAttendancePresentLegacy(t *testing.T) {
	r, _ := newTestRouter(t)
	createSchedule(t, r)

	body := map[string]any{"email": "alice@college.edu", "date": "2026-09-14", "from_time": "09:00"}
	w := doJSON(t, r, http.MethodPost, "/api/attendance/present", body)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/attendance/present", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	createSchedule(t, r)

	check := func(from, to string) bool {
		t.Helper()
		path := fmt.Sprintf("/api/schedules/availability?location=Main%%20Block&date=2026-09-14&from=%s&to=%s", from, to)
		w := doJSON(t, r, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Available bool `json:"available"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Available
	}

	assert.False(t, check("09:30", "10:30"))
	assert.True(t, check("10:00", "11:00"))

	w := doJSON(t, r, http.MethodGet, "/api/schedules/availability?location=Main%20Block&date=bad&from=09:00&to=10:00", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPresentAbsentLists(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSchedule(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/attendance/mark", map[string]any{"schedule_id": id, "email": "alice@college.edu"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Attendance []attendanceResponse `json:"attendance"`
	}

	w = doJSON(t, r, http.MethodGet, "/api/schedules/"+id+"/attendance/present", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Attendance, 1)
	assert.Equal(t, "alice@college.edu", resp.Attendance[0].Email)

	w = doJSON(t, r, http.MethodGet, "/api/schedules/"+id+"/attendance/absent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Attendance, 1)
	assert.Equal(t, "bob@college.edu", resp.Attendance[0].Email)
}

func TestStudentDetails(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/students/details", map[string]any{"email": "Alice@College.EDU"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Alice", resp["name"])
	assert.Equal(t, "CSE", resp["branch"])

	w = doJSON(t, r, http.MethodPost, "/api/students/details", map[string]any{"email": "nobody@college.edu"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAvailableDates(t *testing.T) {
	r, _ := newTestRouter(t)
	createSchedule(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/students/dates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Dates []string `json:"dates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"2026-09-14"}, resp.Dates)
}

func TestUpdateMarkStatusEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSchedule(t, r)

	w := doJSON(t, r, http.MethodPatch, "/api/schedules/"+id+"/mark", map[string]any{"mark": true})
	require.Equal(t, http.StatusOK, w.Code)
	var resp scheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Mark)

	w = doJSON(t, r, http.MethodPatch, "/api/schedules/unknown/mark", map[string]any{"mark": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
