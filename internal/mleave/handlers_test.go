package mleave

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/authmw"
	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/gin-gonic/gin"
)

type fakeStore struct {
	leaves      map[int64]*LeaveRequest
	holidays    []Holiday
	allocations map[int64]Allocation
	names       map[int64]string
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leaves:      map[int64]*LeaveRequest{},
		allocations: map[int64]Allocation{},
		names:       map[int64]string{7: "Ana Staff", 8: "Bo Staff", 1: "Root Admin"},
	}
}

func (s *fakeStore) CreateLeave(_ context.Context, staffID int64, d LeaveDraft) (int64, error) {
	s.nextID++
	s.leaves[s.nextID] = &LeaveRequest{
		ID: s.nextID, StaffID: staffID, LeaveType: d.LeaveType, Category: d.Category, HalfTime: d.HalfTime,
		LeaveDate: utils.NewDate(d.LeaveDate), EndDate: utils.NewDate(d.EndDate), Status: StatusPending,
	}
	return s.nextID, nil
}

func (s *fakeStore) GetLeave(_ context.Context, id int64) (*LeaveRequest, error) {
	r, ok := s.leaves[id]
	if !ok {
		return nil, apperr.NotFound("leave request")
	}
	return r, nil
}

func (s *fakeStore) ListLeaves(_ context.Context, f ListFilter) ([]LeaveRequest, error) {
	out := []LeaveRequest{}
	for _, r := range s.leaves {
		if f.StaffID > 0 && r.StaffID != f.StaffID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *fakeStore) editable(id, ownerID int64) (*LeaveRequest, error) {
	r, ok := s.leaves[id]
	if !ok {
		return nil, apperr.NotFound("leave request")
	}
	if err := CheckEditable(r.StaffID, ownerID, r.Status); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *fakeStore) UpdateLeave(_ context.Context, id, ownerID int64, d LeaveDraft) error {
	r, err := s.editable(id, ownerID)
	if err != nil {
		return err
	}
	r.LeaveType, r.Category = d.LeaveType, d.Category
	r.LeaveDate, r.EndDate = utils.NewDate(d.LeaveDate), utils.NewDate(d.EndDate)
	return nil
}

func (s *fakeStore) DeleteLeave(_ context.Context, id, ownerID, _ int64) error {
	if _, err := s.editable(id, ownerID); err != nil {
		return err
	}
	delete(s.leaves, id)
	return nil
}

func (s *fakeStore) Decide(_ context.Context, id int64, to Status, actorID int64) (*LeaveRequest, error) {
	r, ok := s.leaves[id]
	if !ok {
		return nil, apperr.NotFound("leave request")
	}
	if err := CanTransition(r.Status, to); err != nil {
		return nil, err
	}
	r.Status = to
	r.DecidedBy = &actorID
	return r, nil
}

func (s *fakeStore) LeavesForYear(ctx context.Context, staffID int64, year int) ([]LeaveRequest, error) {
	from, to := yearBounds(year)
	return s.LeavesBetween(ctx, staffID, from, to)
}

func (s *fakeStore) LeavesBetween(_ context.Context, staffID int64, from, to time.Time) ([]LeaveRequest, error) {
	out := []LeaveRequest{}
	for _, r := range s.leaves {
		if r.StaffID == staffID && utils.Overlaps(r.LeaveDate.Time, r.EndDate.Time, from, to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) Allocation(_ context.Context, staffID int64, year int) (Allocation, error) {
	a, ok := s.allocations[staffID]
	if !ok || a.Year != year {
		return Allocation{StaffID: staffID, Year: year}, nil
	}
	return a, nil
}

func (s *fakeStore) SetAllocation(_ context.Context, a Allocation) error {
	s.allocations[a.StaffID] = a
	return nil
}

func (s *fakeStore) StaffName(_ context.Context, staffID int64) (string, error) {
	n, ok := s.names[staffID]
	if !ok {
		return "", apperr.NotFound("staff")
	}
	return n, nil
}

func (s *fakeStore) ManagerOf(context.Context, int64) (int64, error) { return 0, nil }

func (s *fakeStore) YearSummaries(ctx context.Context, year int) ([]Summary, error) {
	out := []Summary{}
	for id, name := range s.names {
		reqs, _ := s.LeavesForYear(ctx, id, year)
		alloc, _ := s.Allocation(ctx, id, year)
		out = append(out, Summarize(id, name, year, reqs, alloc))
	}
	return out, nil
}

func (s *fakeStore) RecomputeYear(context.Context, int) (int, error) { return len(s.names), nil }

func (s *fakeStore) CreateHoliday(_ context.Context, d time.Time, name, desc string) (int64, error) {
	id := int64(len(s.holidays) + 1)
	s.holidays = append(s.holidays, Holiday{ID: id, Date: utils.NewDate(d), Name: name, Description: desc})
	return id, nil
}

func (s *fakeStore) UpdateHoliday(_ context.Context, id int64, d time.Time, name, desc string) error {
	for i := range s.holidays {
		if s.holidays[i].ID == id {
			s.holidays[i] = Holiday{ID: id, Date: utils.NewDate(d), Name: name, Description: desc}
			return nil
		}
	}
	return apperr.NotFound("holiday")
}

func (s *fakeStore) DeleteHoliday(_ context.Context, id, _ int64) error {
	for i := range s.holidays {
		if s.holidays[i].ID == id {
			s.holidays = append(s.holidays[:i], s.holidays[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("holiday")
}

func (s *fakeStore) HolidaysBetween(_ context.Context, from, to time.Time) ([]Holiday, error) {
	out := []Holiday{}
	for _, h := range s.holidays {
		if !h.Date.Before(from) && !h.Date.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func testIdentity(c *gin.Context) {
	id, _ := strconv.ParseInt(c.GetHeader("X-Staff-ID"), 10, 64)
	authmw.SetIdentity(c, "user"+c.GetHeader("X-Staff-ID"), id, strings.Split(c.GetHeader("X-Roles"), ",")...)
	c.Next()
}

func newTestRouter(store Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(store, nil, "maintenance")
	h.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	h.Register(r.Group("/auth", testIdentity), r.Group("/admin", testIdentity))
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any, staffID int64, roles string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Staff-ID", strconv.FormatInt(staffID, 10))
	req.Header.Set("X-Roles", roles)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out.Code
}

func TestLeaveRoundTripApproveAndSummarize(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPost, "/auth/leaves", map[string]any{
		"leaveType":   "fullday",
		"category":    "Leave",
		"leaveDate":   "2025-03-10",
		"endDate":     "2025-03-12",
		"description": "family trip",
	}, 7, "staff")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	// pending requests do not count yet
	w = doRequest(t, r, http.MethodGet, "/auth/leaves/summary?year=2025", nil, 7, "staff")
	var s Summary
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.TotalLeave != 0 {
		t.Fatalf("pending counted: %v", s.TotalLeave)
	}

	w = doRequest(t, r, http.MethodPost, "/admin/leaves/1/decision", map[string]any{"status": "Approve"}, 1, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("decide: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/auth/leaves/summary?year=2025", nil, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.StaffName != "Ana Staff" || s.AllocationYear != 2025 {
		t.Fatalf("summary header = %+v", s)
	}
	if s.MonthlySummary[2].Month != 3 || s.MonthlySummary[2].Leave != 3 || s.TotalLeave != 3 {
		t.Fatalf("march = %+v total = %v", s.MonthlySummary[2], s.TotalLeave)
	}

	// a second decision on the same request is a conflict
	w = doRequest(t, r, http.MethodPost, "/admin/leaves/1/decision", map[string]any{"status": "Reject"}, 1, "admin")
	if w.Code != http.StatusConflict {
		t.Fatalf("re-decide: %d", w.Code)
	}
}

func TestLeaveDateOrderRejected(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	bad := map[string]any{"leaveType": "fullday", "category": "Leave", "leaveDate": "2025-03-12", "endDate": "2025-03-10"}

	w := doRequest(t, r, http.MethodPost, "/auth/leaves", bad, 7, "staff")
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "date_order" {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	if len(store.leaves) != 0 {
		t.Fatal("invalid request was stored")
	}

	id, _ := store.CreateLeave(context.Background(), 7, LeaveDraft{
		LeaveType: TypeFullDay, Category: CategoryLeave,
		LeaveDate: date(t, "2025-03-10").Time, EndDate: date(t, "2025-03-10").Time,
	})

	w = doRequest(t, r, http.MethodPut, "/auth/leaves/"+strconv.FormatInt(id, 10), bad, 7, "staff")
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "date_order" {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	if !store.leaves[id].EndDate.Equal(store.leaves[id].LeaveDate.Time) {
		t.Fatal("invalid update was applied")
	}
}

func TestDecidedLeaveIsImmutable(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	id, _ := store.CreateLeave(context.Background(), 7, LeaveDraft{
		LeaveType: TypeFullDay, Category: CategoryLeave,
		LeaveDate: date(t, "2025-04-01").Time, EndDate: date(t, "2025-04-01").Time,
	})
	store.leaves[id].Status = StatusApprove

	path := "/auth/leaves/" + strconv.FormatInt(id, 10)
	edit := map[string]any{"leaveType": "morning", "category": "Leave", "leaveDate": "2025-04-02"}

	w := doRequest(t, r, http.MethodPut, path, edit, 7, "staff")
	if w.Code != http.StatusConflict || errorCode(t, w) != "conflict" {
		t.Fatalf("edit approved: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodDelete, path, nil, 7, "staff")
	if w.Code != http.StatusConflict {
		t.Fatalf("delete approved: %d", w.Code)
	}

	// admins are bound by the same rule
	w = doRequest(t, r, http.MethodPut, path, edit, 1, "admin")
	if w.Code != http.StatusConflict {
		t.Fatalf("admin edit approved: %d", w.Code)
	}
}

func TestLeaveOwnership(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	id, _ := store.CreateLeave(context.Background(), 7, LeaveDraft{
		LeaveType: TypeFullDay, Category: CategoryLeave,
		LeaveDate: date(t, "2025-04-01").Time, EndDate: date(t, "2025-04-01").Time,
	})

	w := doRequest(t, r, http.MethodDelete, "/auth/leaves/"+strconv.FormatInt(id, 10), nil, 8, "staff")
	if w.Code != http.StatusForbidden {
		t.Fatalf("delete someone else's leave: %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/auth/leaves/summary?staffId=7", nil, 8, "staff")
	if w.Code != http.StatusForbidden {
		t.Fatalf("peek at someone else's summary: %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/auth/leaves/summary?staffId=7", nil, 1, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("admin summary: %d", w.Code)
	}
}

func TestSummaryForEmptyYear(t *testing.T) {
	r := newTestRouter(newFakeStore())

	w := doRequest(t, r, http.MethodGet, "/auth/leaves/summary?year=2025", nil, 8, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}

	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"staffName", "allocationYear", "totalLeave", "allocatedLeaves", "totalWFH", "allocatedWFH", "monthlySummary"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("summary misses %q", k)
		}
	}
	months, _ := raw["monthlySummary"].([]any)
	if len(months) != 12 || raw["totalLeave"] != 0.0 || raw["totalWFH"] != 0.0 {
		t.Fatalf("summary = %s", w.Body.String())
	}
}

func TestCalendarEndpoint(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPost, "/admin/holidays", map[string]any{
		"date": "2025-08-16", "name": "Shutdown", "description": "Planned Maintenance",
	}, 1, "admin")
	if w.Code != http.StatusCreated {
		t.Fatalf("holiday: %d %s", w.Code, w.Body.String())
	}

	id, _ := store.CreateLeave(context.Background(), 7, LeaveDraft{
		LeaveType: TypeFullDay, Category: CategoryLeave,
		LeaveDate: date(t, "2025-08-16").Time, EndDate: date(t, "2025-08-16").Time,
	})
	store.leaves[id].Status = StatusApprove

	w = doRequest(t, r, http.MethodGet, "/auth/calendar?year=2025&month=8", nil, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("calendar: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Days []Day `json:"days"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Days) != 31 {
		t.Fatalf("days = %d", len(resp.Days))
	}
	d := resp.Days[15]
	if utils.FormatDate(d.Date.Time) != "2025-08-16" || d.Kind != DayMaintenance || len(d.Leaves) != 1 {
		t.Fatalf("2025-08-16 = %+v", d)
	}

	w = doRequest(t, r, http.MethodGet, "/auth/calendar?year=2025&month=13", nil, 7, "staff")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad month: %d", w.Code)
	}
}

func TestSetAllocationOnlyConfiguresAllotment(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	w := doRequest(t, r, http.MethodPut, "/admin/leaves/allocations", map[string]any{
		"staffId": 7, "allocationYear": 2025, "allocatedLeaves": 18, "allocatedWFH": 30,
	}, 1, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("allocation: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/auth/leaves/summary", nil, 7, "staff")
	var s Summary
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.AllocatedLeaves != 18 || s.AllocatedWFH != 30 || s.TotalLeave != 0 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestListLeavesRejectsMalformedLimit(t *testing.T) {
	r := newTestRouter(newFakeStore())

	w := doRequest(t, r, http.MethodGet, "/auth/leaves?limit=x", nil, 7, "staff")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("own list: %d", w.Code)
	}
	w = doRequest(t, r, http.MethodGet, "/admin/leaves?limit=1e3", nil, 1, "admin")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("admin list: %d", w.Code)
	}
	w = doRequest(t, r, http.MethodGet, "/auth/leaves?limit=5", nil, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("valid limit: %d %s", w.Code, w.Body.String())
	}
}
