package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                        "/",
		"/metrics":                                "/metrics",
		"/api/health":                             "/api/health",
		"/api/v1/auth/token":                      "/api/v1/auth/token",
		"/api/v1/admin/users":                     "/api/v1/admin/users",
		"/api/v1/admin/permissions":               "/api/v1/admin/permissions",
		"/api/v1/admin/permissions/usr_001":       "/api/v1/admin/permissions/:user_id",
		"/api/v1/admin/permissions/usr_002?x=1":   "/api/v1/admin/permissions/:user_id",
		"/api/v1/admin/permissions/usr_001/extra": "/api/v1/admin/permissions/usr_001/extra",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
