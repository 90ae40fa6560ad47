package mtask

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
	"kyri56xcaesar/opscrm/internal/notify"

	"github.com/gin-gonic/gin"
)

type fakeStore struct {
	tasks      map[int64]*Task
	checklists map[string]*Checklist
	writes     int
	nextID     int64
}

func newFakeStore(tasks ...Task) *fakeStore {
	s := &fakeStore{tasks: map[int64]*Task{}, checklists: map[string]*Checklist{}, nextID: 100}
	for i := range tasks {
		t := tasks[i]
		s.tasks[t.ID] = &t
	}
	return s
}

func (s *fakeStore) get(id int64) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task")
	}
	return t, nil
}

func (s *fakeStore) touch(t *Task) {
	s.writes++
	t.UpdatedAt = t.UpdatedAt.Add(time.Second)
}

func (s *fakeStore) CreateTask(_ context.Context, nt NewTask) (int64, error) {
	s.nextID++
	s.tasks[s.nextID] = &Task{ID: s.nextID, AssignedTo: nt.AssignedTo, Requirement: nt.Requirement, Stage: StageNotStarted}
	return s.nextID, nil
}

func (s *fakeStore) GetTask(_ context.Context, id int64) (*Task, error) {
	t, err := s.get(id)
	if err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) ListTasks(_ context.Context, f ListFilter) ([]Task, error) {
	out := []Task{}
	for _, t := range s.tasks {
		if f.AssignedTo > 0 && t.AssignedTo != f.AssignedTo {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeStore) UpdateTask(_ context.Context, id int64, req UpdateTaskRequest) error {
	t, err := s.get(id)
	if err != nil {
		return err
	}
	if req.AssignedTo != nil {
		t.AssignedTo = *req.AssignedTo
	}
	s.touch(t)
	return nil
}

func (s *fakeStore) UpdateStageNotes(_ context.Context, id int64, stage Stage, notes string) error {
	t, err := s.get(id)
	if err != nil {
		return err
	}
	t.Stage, t.Notes = stage, notes
	s.touch(t)
	return nil
}

func (s *fakeStore) SetStage(_ context.Context, id int64, stage Stage) error {
	t, err := s.get(id)
	if err != nil {
		return err
	}
	t.Stage = stage
	s.touch(t)
	return nil
}

func (s *fakeStore) SetFlags(_ context.Context, id int64, rework, newUpdate bool) error {
	t, err := s.get(id)
	if err != nil {
		return err
	}
	t.Rework, t.NewUpdate = rework, newUpdate
	s.touch(t)
	return nil
}

func (s *fakeStore) FlagRework(_ context.Context, id int64) (int64, error) {
	t, err := s.get(id)
	if err != nil {
		return 0, err
	}
	t.Rework = true
	s.touch(t)
	return t.AssignedTo, nil
}

func (s *fakeStore) AppendTeamWork(_ context.Context, id int64, entry string) error {
	t, err := s.get(id)
	if err != nil {
		return err
	}
	t.TeamWork = append(t.TeamWork, entry)
	s.touch(t)
	return nil
}

func (s *fakeStore) DeleteTask(_ context.Context, id, _ int64) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	delete(s.tasks, id)
	return nil
}

func checklistKey(taskID int64, role string) string {
	return strconv.FormatInt(taskID, 10) + "/" + role
}

func (s *fakeStore) GetChecklist(_ context.Context, taskID int64, role string) (*Checklist, error) {
	if cl, ok := s.checklists[checklistKey(taskID, role)]; ok {
		return cl, nil
	}
	return NewChecklist(taskID, role), nil
}

func (s *fakeStore) MutateChecklist(_ context.Context, taskID int64, role string, fn func(*Checklist) error) (*Checklist, error) {
	cl, ok := s.checklists[checklistKey(taskID, role)]
	if !ok {
		cl = NewChecklist(taskID, role)
	}
	cp := *cl
	cp.NotChecked = append([]string{}, cl.NotChecked...)
	cp.Checked = append([]string{}, cl.Checked...)
	if err := fn(&cp); err != nil {
		return nil, err
	}
	s.checklists[checklistKey(taskID, role)] = &cp
	return &cp, nil
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	r.events = append(r.events, ev)
}

// identity is taken from X-Staff-ID / X-Roles so one router serves every caller.
func testIdentity(c *gin.Context) {
	id, _ := strconv.ParseInt(c.GetHeader("X-Staff-ID"), 10, 64)
	authmw.SetIdentity(c, "user"+c.GetHeader("X-Staff-ID"), id, strings.Split(c.GetHeader("X-Roles"), ",")...)
	c.Next()
}

func newTestRouter(store Repository, n notify.Notifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(store, n)
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

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestStageNotesUpdate(t *testing.T) {
	store := newFakeStore(Task{ID: 1, AssignedTo: 7, Stage: StageNotStarted})
	r := newTestRouter(store, nil)

	body := map[string]any{"stages": 3, "notes": "waiting on client", "id": 1}

	w := doRequest(t, r, http.MethodPut, "/auth/tasks/stage", body, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("first update: %d %s", w.Code, w.Body.String())
	}
	first := *store.tasks[1]

	w = doRequest(t, r, http.MethodPut, "/auth/tasks/stage", body, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("second update: %d %s", w.Code, w.Body.String())
	}
	second := *store.tasks[1]

	if second.Stage != StageReview || second.Notes != "waiting on client" {
		t.Fatalf("task = %+v", second)
	}
	if first.Stage != second.Stage || first.Notes != second.Notes || first.Rework != second.Rework {
		t.Fatalf("repeating the update changed the task: %+v -> %+v", first, second)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updatedAt was not bumped")
	}
}

func TestStageNotesRejections(t *testing.T) {
	store := newFakeStore(Task{ID: 1, AssignedTo: 7, Stage: StageOngoing})
	r := newTestRouter(store, nil)

	tests := []struct {
		name    string
		body    map[string]any
		staffID int64
		roles   string
		want    int
		code    string
	}{
		{"missing id", map[string]any{"stages": 2, "notes": "x"}, 7, "staff", http.StatusBadRequest, "validation"},
		{"stage out of range", map[string]any{"stages": 5, "notes": "x", "id": 1}, 7, "staff", http.StatusBadRequest, "validation"},
		{"unknown task", map[string]any{"stages": 2, "notes": "x", "id": 99}, 7, "staff", http.StatusNotFound, "not_found"},
		{"someone else's task", map[string]any{"stages": 2, "notes": "x", "id": 1}, 8, "staff", http.StatusForbidden, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, r, http.MethodPut, "/auth/tasks/stage", tt.body, tt.staffID, tt.roles)
			if w.Code != tt.want {
				t.Fatalf("got %d want %d: %s", w.Code, tt.want, w.Body.String())
			}
			if got := decode(t, w)["code"]; got != tt.code {
				t.Fatalf("code = %v, want %s", got, tt.code)
			}
		})
	}

	if store.writes != 0 {
		t.Fatalf("rejected requests wrote %d times", store.writes)
	}

	// admins may update any task
	w := doRequest(t, r, http.MethodPut, "/auth/tasks/stage", map[string]any{"stages": 4, "notes": "", "id": 1}, 1, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("admin update: %d %s", w.Code, w.Body.String())
	}
}

func TestToggleStageEndpoint(t *testing.T) {
	store := newFakeStore(Task{ID: 3, AssignedTo: 7, Stage: StageCompleted})
	r := newTestRouter(store, nil)

	w := doRequest(t, r, http.MethodPatch, "/auth/tasks/3/stage", map[string]any{"stage": 2, "checked": false}, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: %d %s", w.Code, w.Body.String())
	}
	if store.tasks[3].Stage != StageNotStarted {
		t.Fatalf("stage = %d", store.tasks[3].Stage)
	}

	w = doRequest(t, r, http.MethodPatch, "/auth/tasks/3/stage", map[string]any{"stage": 6, "checked": true}, 7, "staff")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out of range toggle: %d", w.Code)
	}
}

func TestReworkFlow(t *testing.T) {
	store := newFakeStore(Task{ID: 5, AssignedTo: 7, Stage: StageCompleted})
	n := &recordingNotifier{}
	r := newTestRouter(store, n)

	// completing rework on a task that is not in rework is a conflict
	w := doRequest(t, r, http.MethodPost, "/auth/tasks/5/rework/complete", nil, 7, "staff")
	if w.Code != http.StatusConflict {
		t.Fatalf("complete without rework: %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/admin/tasks/5/rework", nil, 1, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("flag rework: %d %s", w.Code, w.Body.String())
	}
	if !store.tasks[5].Rework || store.tasks[5].Stage != StageCompleted {
		t.Fatalf("after flag: %+v", store.tasks[5])
	}
	if len(n.events) != 1 || n.events[0].StaffID != 7 || n.events[0].Kind != notify.KindTaskRework {
		t.Fatalf("events = %+v", n.events)
	}

	w = doRequest(t, r, http.MethodPost, "/auth/tasks/5/rework/complete", nil, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("complete rework: %d %s", w.Code, w.Body.String())
	}
	if store.tasks[5].Rework || !store.tasks[5].NewUpdate {
		t.Fatalf("after complete: %+v", store.tasks[5])
	}

	w = doRequest(t, r, http.MethodPost, "/admin/tasks/5/acknowledge", nil, 1, "admin")
	if w.Code != http.StatusOK || store.tasks[5].NewUpdate {
		t.Fatalf("acknowledge: %d %+v", w.Code, store.tasks[5])
	}
}

func TestChecklistEndpoints(t *testing.T) {
	store := newFakeStore(Task{ID: 2, AssignedTo: 7, Stage: StageOngoing})
	r := newTestRouter(store, nil)

	for _, item := range []string{"site visit", "estimate"} {
		w := doRequest(t, r, http.MethodPost, "/auth/tasks/2/subtasks/staff/items", map[string]any{"item": item}, 7, "staff")
		if w.Code != http.StatusOK {
			t.Fatalf("add %q: %d %s", item, w.Code, w.Body.String())
		}
	}

	w := doRequest(t, r, http.MethodPost, "/auth/tasks/2/subtasks/staff/check", map[string]any{"item": "estimate"}, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("check: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodPost, "/auth/tasks/2/subtasks/staff/check", map[string]any{"item": "estimate"}, 7, "staff")
	if w.Code != http.StatusConflict {
		t.Fatalf("double check: %d", w.Code)
	}

	// the admin checklist on the same task is independent and read only for staff
	w = doRequest(t, r, http.MethodGet, "/auth/tasks/2/subtasks/admin", nil, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("get admin list: %d", w.Code)
	}
	var cl Checklist
	if err := json.Unmarshal(w.Body.Bytes(), &cl); err != nil {
		t.Fatal(err)
	}
	if len(cl.Items()) != 0 {
		t.Fatalf("admin checklist leaked staff items: %+v", cl)
	}

	w = doRequest(t, r, http.MethodPost, "/auth/tasks/2/subtasks/admin/items", map[string]any{"item": "sign off"}, 7, "staff")
	if w.Code != http.StatusForbidden {
		t.Fatalf("staff writing admin checklist: %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/auth/tasks/2/subtasks/boss", nil, 7, "staff")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad role: %d", w.Code)
	}

	staffList := store.checklists[checklistKey(2, "staff")]
	if len(staffList.Checked) != 1 || len(staffList.NotChecked) != 1 {
		t.Fatalf("staff checklist = %+v", staffList)
	}
}

func TestCreateTaskNotifiesAssignee(t *testing.T) {
	store := newFakeStore()
	n := &recordingNotifier{}
	r := newTestRouter(store, n)

	w := doRequest(t, r, http.MethodPost, "/admin/tasks", map[string]any{
		"assignedTo":  7,
		"requirement": "prepare proposal",
		"priority":    "High",
		"finishBy":    "2025-04-01",
	}, 1, "admin")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	if len(n.events) != 1 || n.events[0].StaffID != 7 || n.events[0].Kind != notify.KindTaskAssigned {
		t.Fatalf("events = %+v", n.events)
	}

	w = doRequest(t, r, http.MethodPost, "/admin/tasks", map[string]any{
		"assignedTo":  7,
		"requirement": "prepare proposal",
		"finishBy":    "01/04/2025",
	}, 1, "admin")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed date: %d", w.Code)
	}
}

func TestListTasksScopesStaffToOwnTasks(t *testing.T) {
	store := newFakeStore(
		Task{ID: 1, AssignedTo: 7},
		Task{ID: 2, AssignedTo: 8},
	)
	r := newTestRouter(store, nil)

	w := doRequest(t, r, http.MethodGet, "/auth/tasks?assignedTo=8", nil, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var resp struct {
		Items []Task `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != 1 {
		t.Fatalf("staff saw %+v", resp.Items)
	}

	w = doRequest(t, r, http.MethodGet, "/auth/tasks", nil, 1, "admin")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("admin saw %d tasks", len(resp.Items))
	}
}

func TestListTasksRejectsMalformedQuery(t *testing.T) {
	r := newTestRouter(newFakeStore(Task{ID: 1, AssignedTo: 7}), nil)

	for _, q := range []string{"stage=abc", "stage=9", "limit=x"} {
		w := doRequest(t, r, http.MethodGet, "/auth/tasks?"+q, nil, 7, "staff")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, w.Code)
		}
	}

	w := doRequest(t, r, http.MethodGet, "/auth/tasks?stage=2&limit=10", nil, 7, "staff")
	if w.Code != http.StatusOK {
		t.Fatalf("valid filters: %d %s", w.Code, w.Body.String())
	}
}

func TestFlagReworkLeavesNewUpdateAlone(t *testing.T) {
	store := newFakeStore(Task{ID: 5, AssignedTo: 7, Stage: StageReview, NewUpdate: true})
	n := &recordingNotifier{}
	r := newTestRouter(store, n)

	w := doRequest(t, r, http.MethodPost, "/admin/tasks/5/rework", nil, 1, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("flag rework: %d %s", w.Code, w.Body.String())
	}
	got := store.tasks[5]
	if !got.Rework || !got.NewUpdate || got.Stage != StageReview {
		t.Fatalf("after flag: %+v", got)
	}
	if len(n.events) != 1 || n.events[0].StaffID != 7 {
		t.Fatalf("events = %+v", n.events)
	}

	w = doRequest(t, r, http.MethodPost, "/admin/tasks/99/rework", nil, 1, "admin")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing task: %d", w.Code)
	}
}
