package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"hal9001.dev/internal/access"
	"hal9001.dev/internal/auth"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	hash, err := auth.HashPassword("open-the-pod-bay-doors")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	store := access.NewInMemory(
		&access.User{ID: "usr_001", Name: "Dave Bowman", Role: "Data Editor", Email: "d.bowman@discovery.co", CredentialHash: hash},
		&access.User{ID: "usr_002", Name: "Frank Poole", Role: "Data Viewer", Email: "f.poole@discovery.co", CredentialHash: hash},
	)

	tokens, err := auth.NewTokenService("test-secret", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	gate := auth.NewGate(store, tokens)

	api := New(ReadyProbe{}, "test", gate, store)
	api.RateBurst = 100
	api.RatePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) postForm(path string, form url.Values) *http.Response {
	c.t.Helper()
	resp, err := c.client.Post(c.baseURL+path, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		c.t.Fatalf("post form: %v", err)
	}
	return resp
}

func (c *apiClient) postJSON(path string, body string, headers map[string]string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, headers map[string]string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) obtainToken(username, password string) string {
	c.t.Helper()
	resp := c.postForm("/api/v1/auth/token", url.Values{
		"username": {username},
		"password": {password},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.TokenType != "bearer" {
		c.t.Fatalf("unexpected token type: %s", payload.TokenType)
	}
	return payload.AccessToken
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestTokenEndpointIssuesBearer(t *testing.T) {
	api := newTestAPI(t)
	token := api.obtainToken("d.bowman@discovery.co", "open-the-pod-bay-doors")
	if token == "" {
		t.Fatal("expected non-empty access token")
	}
}

func TestTokenEndpointRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)
	cases := map[string]url.Values{
		"wrong password": {"username": {"d.bowman@discovery.co"}, "password": {"im-sorry-dave"}},
		"unknown user":   {"username": {"hal@discovery.co"}, "password": {"open-the-pod-bay-doors"}},
	}
	for name, form := range cases {
		resp := api.postForm("/api/v1/auth/token", form)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, resp.StatusCode)
		}
		if resp.Header.Get("WWW-Authenticate") != "Bearer" {
			t.Fatalf("%s: expected bearer challenge header", name)
		}
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{
		"/api/v1/admin/users",
		"/api/v1/admin/tables",
		"/api/v1/admin/permissions/usr_001",
	} {
		resp := api.get(path, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
		if resp.Header.Get("WWW-Authenticate") != "Bearer" {
			t.Fatalf("%s: expected bearer challenge header", path)
		}
	}
}

func TestListUsersOmitsCredentialHash(t *testing.T) {
	api := newTestAPI(t)
	token := api.obtainToken("d.bowman@discovery.co", "open-the-pod-bay-doors")

	resp := api.get("/api/v1/admin/users", bearer(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "credential_hash") || strings.Contains(string(body), "$2a$") {
		t.Fatalf("credential material leaked: %s", body)
	}
	var users []map[string]any
	if err := json.Unmarshal(body, &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestListTables(t *testing.T) {
	api := newTestAPI(t)
	token := api.obtainToken("d.bowman@discovery.co", "open-the-pod-bay-doors")

	resp := api.get("/api/v1/admin/tables", bearer(token))
	defer resp.Body.Close()
	var tables []string
	if err := json.NewDecoder(resp.Body).Decode(&tables); err != nil {
		t.Fatalf("decode tables: %v", err)
	}
	if len(tables) != len(access.ManagedResources) {
		t.Fatalf("expected %d tables, got %d", len(access.ManagedResources), len(tables))
	}
}

func TestReplaceThenGetPermissions(t *testing.T) {
	api := newTestAPI(t)
	token := api.obtainToken("d.bowman@discovery.co", "open-the-pod-bay-doors")

	resp := api.postJSON("/api/v1/admin/permissions",
		`{"user_id":"usr_002","permissions":{"crew_vitals_log":{"can_select":true,"can_insert":false,"can_update":false,"can_delete":false}}}`,
		bearer(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var envelope replacePermissionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Status != "success" || envelope.UserID != "usr_002" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if len(envelope.UpdatedResources) != 1 || envelope.UpdatedResources[0] != "crew_vitals_log" {
		t.Fatalf("unexpected updated resources: %v", envelope.UpdatedResources)
	}

	getResp := api.get("/api/v1/admin/permissions/usr_002", bearer(token))
	defer getResp.Body.Close()
	var grants access.GrantSet
	if err := json.NewDecoder(getResp.Body).Decode(&grants); err != nil {
		t.Fatalf("decode grants: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected exactly one grant, got %+v", grants)
	}
	g := grants["crew_vitals_log"]
	if !g.CanSelect || g.CanInsert || g.CanUpdate || g.CanDelete {
		t.Fatalf("unexpected grant flags: %+v", g)
	}
}

func TestReplaceDropsOmittedResources(t *testing.T) {
	api := newTestAPI(t)
	token := api.obtainToken("d.bowman@discovery.co", "open-the-pod-bay-doors")

	first := api.postJSON("/api/v1/admin/permissions",
		`{"user_id":"usr_001","permissions":{"crew_vitals_log":{"can_select":true}}}`,
		bearer(token))
	first.Body.Close()
	second := api.postJSON("/api/v1/admin/permissions",
		`{"user_id":"usr_001","permissions":{"pod_bay_doors_status":{"can_select":true}}}`,
		bearer(token))
	second.Body.Close()

	resp := api.get("/api/v1/admin/permissions/usr_001", bearer(token))
	defer resp.Body.Close()
	var grants access.GrantSet
	if err := json.NewDecoder(resp.Body).Decode(&grants); err != nil {
		t.Fatalf("decode grants: %v", err)
	}
	if _, ok := grants["crew_vitals_log"]; ok {
		t.Fatal("crew_vitals_log should have been dropped by the replace")
	}
	if _, ok := grants["pod_bay_doors_status"]; !ok {
		t.Fatalf("expected pod_bay_doors_status grant, got %+v", grants)
	}
}

func TestReplacePermissionsValidation(t *testing.T) {
	api := newTestAPI(t)
	token := api.obtainToken("d.bowman@discovery.co", "open-the-pod-bay-doors")

	cases := map[string]struct {
		body string
		want int
	}{
		"unknown resource": {
			body: `{"user_id":"usr_001","permissions":{"shuttle_manifest":{"can_select":true}}}`,
			want: http.StatusBadRequest,
		},
		"non-boolean flag": {
			body: `{"user_id":"usr_001","permissions":{"crew_vitals_log":{"can_select":"yes"}}}`,
			want: http.StatusBadRequest,
		},
		"unknown flag": {
			body: `{"user_id":"usr_001","permissions":{"crew_vitals_log":{"can_fly":true}}}`,
			want: http.StatusBadRequest,
		},
		"missing user": {
			body: `{"permissions":{"crew_vitals_log":{"can_select":true}}}`,
			want: http.StatusBadRequest,
		},
		"nonexistent user": {
			body: `{"user_id":"usr_404","permissions":{"crew_vitals_log":{"can_select":true}}}`,
			want: http.StatusNotFound,
		},
	}
	for name, tc := range cases {
		resp := api.postJSON("/api/v1/admin/permissions", tc.body, bearer(token))
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %d", name, tc.want, resp.StatusCode)
		}
	}
}

func TestGetPermissionsForUserWithoutGrants(t *testing.T) {
	api := newTestAPI(t)
	token := api.obtainToken("d.bowman@discovery.co", "open-the-pod-bay-doors")

	resp := api.get("/api/v1/admin/permissions/usr_001", bearer(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "{}" {
		t.Fatalf("expected empty object, got %s", body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/health", "/healthz", "/readyz"} {
		resp := api.get(path, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}
