package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	svc := newTestService(t)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(server.Close)
	return server, svc
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func login(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/session/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "hunter2!",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestHealthAndReady(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK || body["ok"] != true {
		t.Fatalf("health = %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/ready", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready = %d %v", resp.StatusCode, body)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	server, _ := newTestServer(t)

	for _, route := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/admin/projects"},
		{http.MethodDelete, "/api/admin/posts/p1"},
		{http.MethodPost, "/api/admin/reorder/projects"},
		{http.MethodGet, "/api/admin/snapshots"},
	} {
		resp, body := doJSON(t, route.method, server.URL+route.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s = %d, want 401 (%v)", route.method, route.path, resp.StatusCode, body)
		}
		if body["code"] != "UNAUTHORIZED" {
			t.Fatalf("%s %s code = %v", route.method, route.path, body["code"])
		}
	}

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/admin/projects", "garbage-token", map[string]string{"title": "X"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token = %d, want 401", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	server, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/session/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "nope",
	})
	if resp.StatusCode != http.StatusUnauthorized || body["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("login = %d %v", resp.StatusCode, body)
	}
}

func TestSessionEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/session", "", nil)
	if resp.StatusCode != http.StatusOK || body["authenticated"] != false {
		t.Fatalf("anonymous session = %d %v", resp.StatusCode, body)
	}

	token := login(t, server)
	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/session", token, nil)
	if resp.StatusCode != http.StatusOK || body["authenticated"] != true {
		t.Fatalf("authenticated session = %d %v", resp.StatusCode, body)
	}
	if body["email"] != "admin@example.com" {
		t.Fatalf("email = %v", body["email"])
	}
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	token := login(t, server)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/admin/projects", token, map[string]any{
		"title":       "Widget Builder",
		"description": "A builder of widgets",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save project = %d %v", resp.StatusCode, body)
	}
	project, _ := body["project"].(map[string]any)
	if project == nil {
		t.Fatalf("missing project in %v", body)
	}
	id, _ := project["id"].(string)
	if id != "widget-builder" {
		t.Fatalf("project id = %q, want slug widget-builder", id)
	}
	if _, ok := body["sync"]; !ok {
		t.Fatal("save response should carry the sync report")
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/projects", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list projects = %d", resp.StatusCode)
	}
	projects, _ := body["projects"].([]any)
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/projects/widget-builder", "", nil)
	if resp.StatusCode != http.StatusOK || body["title"] != "Widget Builder" {
		t.Fatalf("get project = %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/projects/ghost", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing project = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/admin/projects/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete project = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/projects/widget-builder", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted project still served, status %d", resp.StatusCode)
	}
}

func TestPostValidationOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	token := login(t, server)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/admin/posts", token, map[string]any{
		"title": "No slug here",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity || body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("post without slug = %d %v", resp.StatusCode, body)
	}
}

func TestRecommendationFlowOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	token := login(t, server)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/recommendations", "", map[string]string{
		"name":    "Dana",
		"thought": "Great portfolio",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit = %d %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("submit returned no id")
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/recommendations", "", nil)
	if items, _ := body["recommendations"].([]any); len(items) != 0 {
		t.Fatalf("draft should be hidden from public list, got %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/admin/recommendations", token, nil)
	if items, _ := body["recommendations"].([]any); len(items) != 1 {
		t.Fatalf("admin list should include drafts, got %v", body)
	}

	path := fmt.Sprintf("%s/api/admin/recommendations/%s/status", server.URL, id)
	resp, body = doJSON(t, http.MethodPost, path, token, map[string]string{"status": "published"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish = %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/recommendations", "", nil)
	if items, _ := body["recommendations"].([]any); len(items) != 1 {
		t.Fatalf("published recommendation missing, got %v", body)
	}
}

func TestReorderOverHTTP(t *testing.T) {
	server, svc := newTestServer(t)
	token := login(t, server)

	for _, title := range []string{"Alpha", "Beta"} {
		resp, body := doJSON(t, http.MethodPost, server.URL+"/api/admin/projects", token, map[string]any{"title": title})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("save %s = %d %v", title, resp.StatusCode, body)
		}
	}

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/admin/reorder/projects", token, map[string]any{
		"items": []map[string]any{
			{"id": "alpha", "sortOrder": 1},
			{"id": "beta", "sortOrder": 0},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reorder = %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/admin/reorder/posts", token, map[string]any{
		"items": []map[string]any{{"id": "x", "sortOrder": 0}},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("reorder posts = %d, want 422", resp.StatusCode)
	}

	projects, err := svc.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != "beta" {
		t.Fatalf("expected beta first after reorder, got %+v", projects)
	}
}

func TestSearchQueryValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/search?q=go&limit=nope", "", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity || body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("bad limit = %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/search?q=go", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search = %d %v", resp.StatusCode, body)
	}
	if _, ok := body["results"]; !ok {
		t.Fatalf("search response missing results: %v", body)
	}
}

func TestSnapshotsUnavailableOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	token := login(t, server)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/admin/snapshots", token, map[string]string{"message": "export"})
	if resp.StatusCode != http.StatusServiceUnavailable || body["code"] != "SNAPSHOTS_UNAVAILABLE" {
		t.Fatalf("snapshot = %d %v", resp.StatusCode, body)
	}
}

func TestPreflightHasNoBody(t *testing.T) {
	server, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/projects", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(body) != 0 {
		t.Fatalf("204 response carries a body: %q", body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("preflight missing CORS headers")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/nonsense", "", nil)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("unknown route = %d %v", resp.StatusCode, body)
	}
}
