package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-guard/internal/engine"
	"github.com/celerix-dev/celerix-guard/internal/users"
	"github.com/celerix-dev/celerix-guard/pkg/policy"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, err := users.NewService(engine.NewMemStore(nil, nil))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	h := &Handler{Users: svc}
	r := gin.Default()

	// Principal from test headers, mirroring the server middleware.
	r.Use(func(c *gin.Context) {
		if actor := c.GetHeader("X-Guard-Actor"); actor != "" {
			p := policy.Principal{ID: actor, Authenticated: true}
			if c.GetHeader("X-Guard-Groups") != "" {
				p.Groups = []string{c.GetHeader("X-Guard-Groups")}
			}
			c.Set(PrincipalKey, p)
		}
		c.Next()
	})

	r.POST("/users", h.CreateUser)
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	r.PATCH("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
	r.POST("/users/:id/confirm", h.ConfirmKey)

	return r
}

func doJSON(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createAlice(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(r, "POST", "/users", map[string]any{
		"username": "alice",
		"password": "longenough1",
		"email":    "a@x.com",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.ID == "" {
		t.Fatal("Expected an id in the create response")
	}
	return out.ID
}

func TestCreateAndGetUser(t *testing.T) {
	r := setupTestRouter(t)
	id := createAlice(t, r)

	// Self sees username but never password or secret.
	w := doJSON(r, "GET", "/users/"+id, nil, map[string]string{"X-Guard-Actor": id})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var view map[string]any
	json.Unmarshal(w.Body.Bytes(), &view)
	if view["username"] != "alice" {
		t.Errorf("Expected alice, got %v", view["username"])
	}
	for _, hidden := range []string{"password", "secret"} {
		if _, ok := view[hidden]; ok {
			t.Errorf("Field %q must never be readable", hidden)
		}
	}

	// An unrelated principal gets an empty view.
	w = doJSON(r, "GET", "/users/"+id, nil, map[string]string{"X-Guard-Actor": "stranger"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	view = nil
	json.Unmarshal(w.Body.Bytes(), &view)
	if len(view) != 0 {
		t.Errorf("Expected empty view for unrelated principal, got %v", view)
	}

	// Unauthenticated reads are denied.
	w = doJSON(r, "GET", "/users/"+id, nil, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(r, "POST", "/users", map[string]any{
		"username": "alice",
		"password": "short",
		"email":    "a@x.com",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for short password, got %d", w.Code)
	}

	w = doJSON(r, "POST", "/users", map[string]any{"username": "alice"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing fields, got %d", w.Code)
	}
}

func TestCreateDuplicateConflict(t *testing.T) {
	r := setupTestRouter(t)
	createAlice(t, r)

	w := doJSON(r, "POST", "/users", map[string]any{
		"username": "alice",
		"password": "longenough1",
		"email":    "other@x.com",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateAuthorization(t *testing.T) {
	r := setupTestRouter(t)
	id := createAlice(t, r)

	// A stranger cannot touch the record.
	w := doJSON(r, "PATCH", "/users/"+id, map[string]any{"email": "b@x.com"},
		map[string]string{"X-Guard-Actor": "stranger"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}

	// Self cannot grant groups.
	w = doJSON(r, "PATCH", "/users/"+id, map[string]any{"groups": []string{"administrators"}},
		map[string]string{"X-Guard-Actor": id})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}

	// Self may change email.
	w = doJSON(r, "PATCH", "/users/"+id, map[string]any{"email": "b@x.com"},
		map[string]string{"X-Guard-Actor": id})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestConfirmKeyEndpoint(t *testing.T) {
	r := setupTestRouter(t)
	id := createAlice(t, r)
	self := map[string]string{"X-Guard-Actor": id}

	w := doJSON(r, "POST", "/users/"+id+"/confirm", map[string]any{"key": "None"}, self)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for no-op key, got %d", w.Code)
	}

	w = doJSON(r, "POST", "/users/"+id+"/confirm", map[string]any{"key": "wrong"}, self)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for invalid key, got %d", w.Code)
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	r := setupTestRouter(t)
	id := createAlice(t, r)

	w := doJSON(r, "GET", "/users", nil, map[string]string{"X-Guard-Actor": id})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-admin list, got %d", w.Code)
	}

	w = doJSON(r, "GET", "/users", nil, map[string]string{
		"X-Guard-Actor":  "root",
		"X-Guard-Groups": "administrators",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var views map[string]map[string]any
	json.Unmarshal(w.Body.Bytes(), &views)
	if views[id]["email"] != "a@x.com" {
		t.Errorf("Expected a@x.com in admin view, got %v", views[id])
	}
}

func TestDeleteUser(t *testing.T) {
	r := setupTestRouter(t)
	id := createAlice(t, r)

	w := doJSON(r, "DELETE", "/users/"+id, nil, map[string]string{"X-Guard-Actor": id})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = doJSON(r, "GET", "/users/"+id, nil, map[string]string{"X-Guard-Actor": id})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}
