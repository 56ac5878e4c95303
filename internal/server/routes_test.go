package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denny0223/todo-api/internal/domain"
	"github.com/denny0223/todo-api/internal/service"
	"github.com/denny0223/todo-api/internal/storage"
)

func newTestHandler(t *testing.T) (http.Handler, storage.Service) {
	t.Helper()
	store := storage.NewWithPath(filepath.Join(t.TempDir(), "todos.json"))
	appServer := &Server{
		port:        8080,
		todoService: service.NewTodoService(store),
		store:       store,
	}
	return appServer.RegisterRoutes(), store
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func strPtr(s string) *string { return &s }

func TestWelcome(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Todo API. Use /docs for API documentation.", decodeBody(t, rec)["message"])
}

func TestHealth(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up", decodeBody(t, rec)["status"])
}

// Walks the full lifecycle: create for alice, list, rename to bob, verify
// the bucket moved wholesale.
func TestCreateListRenameScenario(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{"title": "Buy milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, "Buy milk", created["title"])
	assert.Equal(t, false, created["completed"])
	require.Contains(t, created, "description")
	assert.Nil(t, created["description"])

	rec = doRequest(t, handler, http.MethodGet, "/users/alice/todos/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var todos []domain.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todos))
	require.Len(t, todos, 1)

	rec = doRequest(t, handler, http.MethodPut, "/users/alice/rename/bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Username renamed successfully", decodeBody(t, rec)["message"])

	rec = doRequest(t, handler, http.MethodGet, "/users/alice/todos/", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["detail"])

	rec = doRequest(t, handler, http.MethodGet, "/users/bob/todos/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bobTodos []domain.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bobTodos))
	require.Len(t, bobTodos, 1)
	assert.Equal(t, todos[0], bobTodos[0])
}

func TestCreateTodoValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{"title": ""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{"description": "no title"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateTodoBadJSON(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{"title": "x", "bogus": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutesWorkWithoutTrailingSlash(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/users/alice/todos", `{"title": "Task"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/users/alice/todos", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListUnknownUser(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/users/ghost/todos/", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["detail"])
}

func TestListEmptiedBucketReturnsEmptyArray(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{"title": "Task"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = doRequest(t, handler, http.MethodDelete, "/users/alice/todos/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Todo deleted successfully", decodeBody(t, rec)["message"])

	rec = doRequest(t, handler, http.MethodGet, "/users/alice/todos/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetTodoNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{"title": "Task"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/users/alice/todos/unknown-id", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Todo not found", decodeBody(t, rec)["detail"])

	rec = doRequest(t, handler, http.MethodGet, "/users/ghost/todos/unknown-id", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["detail"])
}

func TestUpdateTodoMerge(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/users/alice/todos/",
		`{"title": "Buy milk", "description": "2 liters"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = doRequest(t, handler, http.MethodPut, "/users/alice/todos/"+id, `{"completed": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody(t, rec)
	assert.Equal(t, "Buy milk", updated["title"])
	assert.Equal(t, "2 liters", updated["description"])
	assert.Equal(t, true, updated["completed"])
}

func TestUpdateTodoNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{"title": "Task"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, handler, http.MethodPut, "/users/alice/todos/unknown-id", `{"completed": true}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Todo not found", decodeBody(t, rec)["detail"])
}

func TestDeleteTodoNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodDelete, "/users/ghost/todos/unknown-id", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["detail"])
}

func TestRenameUserNotFound(t *testing.T) {
	handler, store := newTestHandler(t)
	require.NoError(t, store.Save(domain.Dataset{"user1": {}}))

	rec := doRequest(t, handler, http.MethodPut, "/users/nonexistentuser/rename/newname", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["detail"])

	current := store.Load()
	assert.NotContains(t, current, "nonexistentuser")
	assert.NotContains(t, current, "newname")
	assert.Contains(t, current, "user1")
}

func TestRenameUserConflict(t *testing.T) {
	handler, store := newTestHandler(t)
	initial := domain.Dataset{
		"userA": {{ID: "todoA1", Title: "Task A1", Description: strPtr("Desc A1"), Completed: false}},
		"userB": {{ID: "todoB1", Title: "Task B1", Description: strPtr("Desc B1"), Completed: true}},
	}
	require.NoError(t, store.Save(initial))

	rec := doRequest(t, handler, http.MethodPut, "/users/userA/rename/userB", "")

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "New username already exists", decodeBody(t, rec)["detail"])
	assert.Equal(t, initial, store.Load())
}

func TestMalformedDataFileRecoversAsEmpty(t *testing.T) {
	handler, store := newTestHandler(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{corrupt"), 0o644))

	rec := doRequest(t, handler, http.MethodGet, "/users/alice/todos/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Writes still work and replace the corrupt file.
	rec = doRequest(t, handler, http.MethodPost, "/users/alice/todos/", `{"title": "Task"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/users/alice/todos/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
