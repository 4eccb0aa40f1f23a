package task

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/entity"
)

// callerHeader stands in for the auth gate in these tests.
const callerHeader = "X-Test-Caller"

func newTestMux(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	h := NewHandler(f.svc, zaptest.NewLogger(t).Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", h.List)
	mux.HandleFunc("POST /tasks", h.Create)
	mux.HandleFunc("PUT /tasks/{id}", h.Update)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.Header.Get(callerHeader); v != "" {
			id, _ := strconv.ParseInt(v, 10, 64)
			r = r.WithContext(auth.WithClaims(r.Context(), &auth.Claims{UserID: id}))
		}
		mux.ServeHTTP(w, r)
	})
}

func do(t *testing.T, h http.Handler, method, path, body string, caller int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if caller != 0 {
		req.Header.Set(callerHeader, strconv.FormatInt(caller, 10))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) *entity.Task {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Task == nil {
		t.Fatalf("body = %s (%v)", rec.Body, err)
	}
	return resp.Task
}

func TestHTTP_SpoofedIDsAreIgnored(t *testing.T) {
	f := newFixture(t, Config{})
	mux := newTestMux(t, f)
	boss := f.identity(t, "boss", nil)
	worker := f.identity(t, "worker", &boss.ID)

	body := `{"title":"Audit","dueDate":"2026-03-15","priority":"high","status":"todo","assignee":"worker",` +
		`"creatorId":` + strconv.FormatInt(boss.ID, 10) + `,"assigneeId":` + strconv.FormatInt(boss.ID, 10) + `}`
	rec := do(t, mux, http.MethodPost, "/tasks", body, worker.ID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	created := decodeTask(t, rec)
	if created.CreatorID != worker.ID || created.AssigneeID != worker.ID {
		t.Fatalf("creator/assignee = %d/%d, want worker %d", created.CreatorID, created.AssigneeID, worker.ID)
	}

	rec = do(t, mux, http.MethodGet, "/tasks", "", boss.ID)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("boss list = %d %s, want empty array", rec.Code, rec.Body)
	}
	rec = do(t, mux, http.MethodGet, "/tasks", "", worker.ID)
	var list []entity.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("worker list = %s (%v)", rec.Body, err)
	}

	path := "/tasks/" + strconv.FormatInt(created.ID, 10)
	rec = do(t, mux, http.MethodPut, path,
		`{"title":"Audit v2","dueDate":"2026-03-16","priority":"low","status":"done","assignee":"boss","creatorId":1}`, worker.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body)
	}
	updated := decodeTask(t, rec)
	if updated.CreatorID != worker.ID || updated.AssigneeID != boss.ID || updated.Status != entity.StatusDone {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestHTTP_ErrorStatuses(t *testing.T) {
	f := newFixture(t, Config{StrictUpdate: true})
	mux := newTestMux(t, f)
	boss := f.identity(t, "boss", nil)
	outsider := f.identity(t, "outsider", nil)

	valid := `{"title":"T","dueDate":"2026-03-15","priority":"medium","status":"todo","assignee":"boss"}`
	if rec := do(t, mux, http.MethodGet, "/tasks", "", 0); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no caller = %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodPost, "/tasks", valid, 999999); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown caller = %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodPost, "/tasks", `{"title":""}`, boss.ID); rec.Code != http.StatusBadRequest ||
		!strings.Contains(rec.Body.String(), `"errors"`) {
		t.Fatalf("invalid body = %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, mux, http.MethodPost, "/tasks", `{oops`, boss.ID); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json = %d", rec.Code)
	}
	rec := do(t, mux, http.MethodPost, "/tasks", strings.Replace(valid, `"boss"`, `"nobody"`, 1), boss.ID)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "assignee not found") {
		t.Fatalf("unknown assignee = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, mux, http.MethodPost, "/tasks", valid, boss.ID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}
	path := "/tasks/" + strconv.FormatInt(decodeTask(t, rec).ID, 10)

	if rec := do(t, mux, http.MethodPut, path, valid, outsider.ID); rec.Code != http.StatusForbidden {
		t.Fatalf("outsider update = %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodPut, "/tasks/123", valid, boss.ID); rec.Code != http.StatusNotFound {
		t.Fatalf("missing task = %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodPut, "/tasks/abc", valid, boss.ID); rec.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id = %d", rec.Code)
	}
}
