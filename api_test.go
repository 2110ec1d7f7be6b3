package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"taskassign/config"
	"taskassign/models"
	"taskassign/routes"
	"taskassign/services"
	"taskassign/store"
	"taskassign/utils"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	issuer *utils.TokenIssuer

	alice models.User // admin
	carol models.User // admin
	bob   models.User // member
	dave  models.User // member
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := openTestDB(t)
	gs := store.NewGormStore(db)
	issuer := utils.NewTokenIssuer("test-secret", 15*time.Minute, time.Hour)

	router := routes.SetupRouter(routes.Deps{
		Auth:  services.NewAuthService(gs, issuer, store.NewMemoryDenylist()),
		Tasks: services.NewTaskService(gs, gs),
		Users: gs,
	})

	env := &testEnv{router: router, db: db, issuer: issuer}
	seed := []struct {
		dst     *models.User
		name    string
		isAdmin bool
	}{
		{&env.alice, "alice", true},
		{&env.carol, "carol", true},
		{&env.bob, "bob", false},
		{&env.dave, "dave", false},
	}
	for _, s := range seed {
		h, err := utils.HashPassword("pass1234")
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		*s.dst = models.User{Username: s.name, PasswordHash: h, IsAdmin: s.isAdmin}
		if err := db.Create(s.dst).Error; err != nil {
			t.Fatalf("seed user %s: %v", s.name, err)
		}
	}
	return env
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
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
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (env *testEnv) authFor(t *testing.T, u models.User) map[string]string {
	t.Helper()
	tok, err := env.issuer.IssueAccess(u.Username, u.IsAdmin)
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + tok}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int, what string) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("%s: expected %d got=%d body=%s", what, want, w.Code, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %s: %v", w.Body.String(), err)
	}
	return v
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestAuth_RegisterLoginRefreshLogout(t *testing.T) {
	env := setupTestEnv(t)

	regBody := map[string]any{"username": "erin", "password": "pass1234"}
	w := doRequest(t, env.router, http.MethodPost, "/auth/register", regBody, nil)
	expectStatus(t, w, http.StatusCreated, "register")

	w = doRequest(t, env.router, http.MethodPost, "/auth/register", regBody, nil)
	expectStatus(t, w, http.StatusConflict, "duplicate register")

	w = doRequest(t, env.router, http.MethodPost, "/auth/register", map[string]any{"username": "x"}, nil)
	expectStatus(t, w, http.StatusBadRequest, "register without password")

	w = doRequest(t, env.router, http.MethodPost, "/auth/login", map[string]any{"username": "erin", "password": "nope"}, nil)
	expectStatus(t, w, http.StatusUnauthorized, "bad password")
	badPass := w.Body.String()
	w = doRequest(t, env.router, http.MethodPost, "/auth/login", map[string]any{"username": "ghost", "password": "nope"}, nil)
	expectStatus(t, w, http.StatusUnauthorized, "unknown user")
	if w.Body.String() != badPass {
		t.Fatalf("login failures differ: %s vs %s", badPass, w.Body.String())
	}

	w = doRequest(t, env.router, http.MethodPost, "/auth/login", regBody, nil)
	expectStatus(t, w, http.StatusOK, "login")
	pair := decode[services.TokenPair](t, w)
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "bearer" {
		t.Fatalf("expected tokens in response: %+v", pair)
	}

	// erin registered without is_admin, so she is a member
	w = doRequest(t, env.router, http.MethodGet, "/tasks/pending", nil,
		map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	expectStatus(t, w, http.StatusOK, "pending as new member")

	w = doRequest(t, env.router, http.MethodPost, "/auth/refresh", map[string]any{"refresh_token": pair.AccessToken}, nil)
	expectStatus(t, w, http.StatusUnauthorized, "refresh with access token")

	w = doRequest(t, env.router, http.MethodPost, "/auth/refresh", map[string]any{"refresh_token": pair.RefreshToken}, nil)
	expectStatus(t, w, http.StatusOK, "refresh")
	refreshed := decode[services.TokenPair](t, w)
	if refreshed.AccessToken == "" {
		t.Fatalf("expected access token: %s", w.Body.String())
	}

	w = doRequest(t, env.router, http.MethodPost, "/auth/refresh", nil,
		map[string]string{"Authorization": "Bearer " + pair.RefreshToken})
	expectStatus(t, w, http.StatusOK, "refresh via bearer header")

	w = doRequest(t, env.router, http.MethodPost, "/auth/logout", map[string]any{"refresh_token": pair.RefreshToken}, nil)
	expectStatus(t, w, http.StatusOK, "logout")

	w = doRequest(t, env.router, http.MethodPost, "/auth/refresh", map[string]any{"refresh_token": pair.RefreshToken}, nil)
	expectStatus(t, w, http.StatusUnauthorized, "refresh after logout")
}

func TestAuth_Middleware(t *testing.T) {
	env := setupTestEnv(t)

	w := doRequest(t, env.router, http.MethodGet, "/tasks/", nil, nil)
	expectStatus(t, w, http.StatusUnauthorized, "no header")

	w = doRequest(t, env.router, http.MethodGet, "/tasks/", nil, map[string]string{"Authorization": "Token abc"})
	expectStatus(t, w, http.StatusUnauthorized, "wrong scheme")

	w = doRequest(t, env.router, http.MethodGet, "/tasks/", nil, map[string]string{"Authorization": "Bearer garbage"})
	expectStatus(t, w, http.StatusUnauthorized, "garbage token")

	other := utils.NewTokenIssuer("other-secret", time.Minute, time.Hour)
	forged, _ := other.IssueAccess("alice", true)
	w = doRequest(t, env.router, http.MethodGet, "/tasks/", nil, map[string]string{"Authorization": "Bearer " + forged})
	expectStatus(t, w, http.StatusUnauthorized, "forged token")

	ghost, _ := env.issuer.IssueAccess("ghost", true)
	w = doRequest(t, env.router, http.MethodGet, "/tasks/", nil, map[string]string{"Authorization": "Bearer " + ghost})
	expectStatus(t, w, http.StatusUnauthorized, "unknown subject")

	// the admin flag is read from the user record, not trusted from the token
	lying, _ := env.issuer.IssueAccess("bob", true)
	w = doRequest(t, env.router, http.MethodPost, "/tasks/",
		map[string]any{"title": "x", "assigned_to_id": env.dave.ID},
		map[string]string{"Authorization": "Bearer " + lying})
	expectStatus(t, w, http.StatusForbidden, "member with admin claim")

	w = doRequest(t, env.router, http.MethodGet, "/healthz", nil, nil)
	expectStatus(t, w, http.StatusOK, "healthz")
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestUsers_AdminOnly(t *testing.T) {
	env := setupTestEnv(t)

	w := doRequest(t, env.router, http.MethodGet, "/users/", nil, env.authFor(t, env.alice))
	expectStatus(t, w, http.StatusOK, "GET /users/ as admin")
	users := decode[[]map[string]any](t, w)
	if len(users) != 4 {
		t.Fatalf("expected 4 users, got %v", users)
	}
	for _, u := range users {
		if _, leaked := u["password_hash"]; leaked {
			t.Fatalf("password hash leaked: %v", u)
		}
	}

	w = doRequest(t, env.router, http.MethodGet, "/users/", nil, env.authFor(t, env.bob))
	expectStatus(t, w, http.StatusForbidden, "GET /users/ as member")

	w = doRequest(t, env.router, http.MethodGet, "/users/non_admin_usernames", nil, env.authFor(t, env.alice))
	expectStatus(t, w, http.StatusOK, "non_admin_usernames")
	names := decode[[]struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	}](t, w)
	if len(names) != 2 || names[0].Username != "bob" || names[1].Username != "dave" {
		t.Fatalf("unexpected non-admin users: %+v", names)
	}
}

func TestTasks_Scenario(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.authFor(t, env.alice)
	bob := env.authFor(t, env.bob)

	create := map[string]any{
		"title":          "Write report",
		"assigned_to_id": env.bob.ID,
		"priority":       "High",
	}
	w := doRequest(t, env.router, http.MethodPost, "/tasks/", create, bob)
	expectStatus(t, w, http.StatusForbidden, "POST /tasks/ as member")

	w = doRequest(t, env.router, http.MethodPost, "/tasks/", create, alice)
	expectStatus(t, w, http.StatusCreated, "POST /tasks/")
	created := decode[models.Task](t, w)
	if created.Status != "Pending" || created.AcceptanceStatus != "Pending" || created.Priority != "High" {
		t.Fatalf("unexpected created task: %+v", created)
	}

	w = doRequest(t, env.router, http.MethodGet, "/tasks/", nil, bob)
	expectStatus(t, w, http.StatusOK, "GET /tasks/ as bob")
	if got := decode[[]models.Task](t, w); len(got) != 0 {
		t.Fatalf("bob should not see unaccepted tasks: %+v", got)
	}

	w = doRequest(t, env.router, http.MethodGet, "/tasks/pending", nil, bob)
	expectStatus(t, w, http.StatusOK, "GET /tasks/pending")
	if got := decode[[]models.Task](t, w); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("expected one pending task: %+v", got)
	}

	w = doRequest(t, env.router, http.MethodGet, "/tasks/pending", nil, alice)
	expectStatus(t, w, http.StatusForbidden, "GET /tasks/pending as admin")

	w = doRequest(t, env.router, http.MethodPut, "/tasks/accept/"+itoa(created.ID), nil, alice)
	expectStatus(t, w, http.StatusForbidden, "accept as admin")

	w = doRequest(t, env.router, http.MethodPut, "/tasks/accept/"+itoa(created.ID), nil, bob)
	expectStatus(t, w, http.StatusOK, "accept")
	if got := decode[models.Task](t, w); got.AcceptanceStatus != "Accepted" {
		t.Fatalf("expected Accepted: %+v", got)
	}

	w = doRequest(t, env.router, http.MethodPut, "/tasks/accept/"+itoa(created.ID), nil, bob)
	expectStatus(t, w, http.StatusConflict, "accept twice")

	w = doRequest(t, env.router, http.MethodGet, "/tasks/", nil, bob)
	if got := decode[[]models.Task](t, w); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("bob should see accepted task: %+v", got)
	}
	w = doRequest(t, env.router, http.MethodGet, "/tasks/", nil, alice)
	if got := decode[[]models.Task](t, w); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("alice should see her task: %+v", got)
	}

	w = doRequest(t, env.router, http.MethodGet, "/tasks/"+itoa(created.ID), nil, bob)
	expectStatus(t, w, http.StatusOK, "GET /tasks/:id")
	detail := decode[models.Task](t, w)
	if len(detail.AuditTrail) != 2 || detail.AuditTrail[1].Action != "accepted" {
		t.Fatalf("unexpected audit trail: %+v", detail.AuditTrail)
	}

	w = doRequest(t, env.router, http.MethodPut, "/tasks/reject/"+itoa(created.ID), nil, bob)
	expectStatus(t, w, http.StatusOK, "reject after accept")

	w = doRequest(t, env.router, http.MethodDelete, "/tasks/"+itoa(created.ID), nil, bob)
	expectStatus(t, w, http.StatusForbidden, "delete as member")

	w = doRequest(t, env.router, http.MethodDelete, "/tasks/"+itoa(created.ID), nil, alice)
	expectStatus(t, w, http.StatusOK, "delete")

	w = doRequest(t, env.router, http.MethodDelete, "/tasks/"+itoa(created.ID), nil, alice)
	expectStatus(t, w, http.StatusNotFound, "delete twice")
}

func TestTasks_CreateValidation(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.authFor(t, env.alice)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"assign to admin", map[string]any{"title": "x", "assigned_to_id": env.carol.ID}, http.StatusBadRequest},
		{"unknown assignee", map[string]any{"title": "x", "assigned_to_id": 999}, http.StatusNotFound},
		{"zero assignee", map[string]any{"title": "x", "assigned_to_id": 0}, http.StatusNotFound},
		{"missing assignee", map[string]any{"title": "x"}, http.StatusNotFound},
		{"missing title", map[string]any{"assigned_to_id": env.bob.ID}, http.StatusBadRequest},
		{"bad priority", map[string]any{"title": "x", "assigned_to_id": env.bob.ID, "priority": "Urgent"}, http.StatusBadRequest},
		{"default priority", map[string]any{"title": "x", "assigned_to_id": env.bob.ID}, http.StatusCreated},
	}
	messages := map[string]string{
		"zero assignee":    "Assigned user not found",
		"missing assignee": "Assigned user not found",
		"missing title":    "title is required",
		"bad priority":     "priority must be one of High, Medium, Low",
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, env.router, http.MethodPost, "/tasks/", tc.body, alice)
			expectStatus(t, w, tc.want, tc.name)
			if want, ok := messages[tc.name]; ok {
				if got := decode[map[string]string](t, w)["error"]; got != want {
					t.Fatalf("expected error %q, got %q", want, got)
				}
			}
			if tc.want == http.StatusCreated {
				if got := decode[models.Task](t, w); got.Priority != "Medium" {
					t.Fatalf("expected Medium priority: %+v", got)
				}
			}
		})
	}
}

func TestTasks_Update(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.authFor(t, env.alice)
	bob := env.authFor(t, env.bob)
	dave := env.authFor(t, env.dave)

	w := doRequest(t, env.router, http.MethodPost, "/tasks/",
		map[string]any{"title": "T1", "description": "D1", "assigned_to_id": env.bob.ID}, alice)
	expectStatus(t, w, http.StatusCreated, "create")
	task := decode[models.Task](t, w)
	path := "/tasks/" + itoa(task.ID)

	w = doRequest(t, env.router, http.MethodPut, path, map[string]any{"status": "In progress"}, dave)
	expectStatus(t, w, http.StatusForbidden, "update by non-assignee")

	w = doRequest(t, env.router, http.MethodPut, path, map[string]any{"title": "Mine now"}, bob)
	expectStatus(t, w, http.StatusForbidden, "member update without status")

	w = doRequest(t, env.router, http.MethodPut, path,
		map[string]any{"status": "In progress", "title": "Mine now", "assigned_to_id": env.dave.ID}, bob)
	expectStatus(t, w, http.StatusOK, "member status update")
	got := decode[models.Task](t, w)
	if got.Status != "In progress" || got.Title != "T1" || got.AssignedToID != env.bob.ID {
		t.Fatalf("member update should only change status: %+v", got)
	}
	if !got.UpdatedAt.After(task.UpdatedAt) && !got.UpdatedAt.Equal(task.UpdatedAt) {
		t.Fatalf("updated_at went backwards: %v -> %v", task.UpdatedAt, got.UpdatedAt)
	}

	w = doRequest(t, env.router, http.MethodPut, path, map[string]any{"status": "Done", "priority": "Urgent"}, bob)
	expectStatus(t, w, http.StatusOK, "member update with ignored priority")
	got = decode[models.Task](t, w)
	if got.Status != "Done" || got.Priority != "Medium" {
		t.Fatalf("member priority should be ignored: %+v", got)
	}

	w = doRequest(t, env.router, http.MethodPut, path,
		map[string]any{"title": "T1 v2", "priority": "Low", "assigned_to_id": env.carol.ID}, alice)
	expectStatus(t, w, http.StatusOK, "admin update")
	got = decode[models.Task](t, w)
	if got.Title != "T1 v2" || got.Priority != "Low" || got.AssignedToID != env.carol.ID ||
		got.Description != "D1" || got.Status != "Done" {
		t.Fatalf("unexpected admin update result: %+v", got)
	}

	w = doRequest(t, env.router, http.MethodPut, path, map[string]any{"priority": "Urgent"}, alice)
	expectStatus(t, w, http.StatusBadRequest, "admin update bad priority")
	if msg := decode[map[string]string](t, w)["error"]; msg != `Invalid priority "Urgent"` {
		t.Fatalf("unexpected message %q", msg)
	}

	w = doRequest(t, env.router, http.MethodPut, "/tasks/999", map[string]any{"status": "x"}, alice)
	expectStatus(t, w, http.StatusNotFound, "update missing task")

	w = doRequest(t, env.router, http.MethodPut, "/tasks/abc", map[string]any{"status": "x"}, alice)
	expectStatus(t, w, http.StatusBadRequest, "update bad id")
}

func TestCORS(t *testing.T) {
	env := setupTestEnv(t)
	h := withCORS(config.Config{CORSOrigins: []string{"http://localhost:3000"}}, env.router)

	req := httptest.NewRequest(http.MethodOptions, "/tasks/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q (status %d)", got, w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allowed origin %q", got)
	}
}
