package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticator_IssueAndParse(t *testing.T) {
	a := NewAuthenticator("test-secret", "hr")

	token, err := a.Issue("kiosk-1", RoleKiosk, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := a.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "kiosk-1" || claims.Role != RoleKiosk {
		t.Errorf("claims = %+v", claims)
	}
}

func TestAuthenticator_Rejects(t *testing.T) {
	a := NewAuthenticator("test-secret", "hr")

	expired, _ := a.Issue("u", RoleManager, -time.Minute)
	otherSecret, _ := NewAuthenticator("other", "hr").Issue("u", RoleManager, time.Hour)
	otherIssuer, _ := NewAuthenticator("test-secret", "payroll").Issue("u", RoleManager, time.Hour)
	noSubject, _ := a.Issue("", RoleManager, time.Hour)
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		Role:             RoleManager,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "hr"},
	}).SignedString([]byte("test-secret"))

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": otherSecret,
		"wrong issuer": otherIssuer,
		"no subject":   noSubject,
		"wrong method": hs512,
		"not a jwt":    "abc.def",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Parse(token); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	a := NewAuthenticator("test-secret", "")
	token, _ := a.Issue("alice", RoleManager, time.Hour)

	var seen *Claims
	handler := RequireAuth(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && (seen == nil || seen.Subject != "alice") {
				t.Errorf("claims not in context: %+v", seen)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleManager)(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{"no claims", nil, http.StatusForbidden},
		{"kiosk", &Claims{Role: RoleKiosk}, http.StatusForbidden},
		{"manager", &Claims{Role: RoleManager}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(SetClaimsInContext(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
