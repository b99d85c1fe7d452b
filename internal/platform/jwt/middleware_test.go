package jwtmw

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func runAuth(header string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		c.Request.Header.Set("Authorization", header)
	}
	AuthRequired()(c)
	return w, c
}

func mustToken(t *testing.T, secret string, userID uint) string {
	t.Helper()
	token, err := NewGenerator(secret, time.Hour).GenerateToken(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return token
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	const secret = "middleware-secret"
	t.Setenv(EnvKeyJWTSecret, secret)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   uint
	}{
		{"no header", "", http.StatusUnauthorized, 0},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0},
		{"garbage", "Bearer randomstring", http.StatusUnauthorized, 0},
		{"wrong secret", "Bearer " + mustToken(t, "other", 1), http.StatusUnauthorized, 0},
		{"valid", "Bearer " + mustToken(t, secret, 42), http.StatusOK, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c := runAuth(tt.header)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantUser == 0 {
				if !c.IsAborted() {
					t.Error("expected request to be aborted")
				}
				return
			}
			if c.IsAborted() {
				t.Fatalf("unexpected abort: %s", w.Body.String())
			}
			if got := c.GetUint(ContextUserID); got != tt.wantUser {
				t.Errorf("expected user %d in context, got %d", tt.wantUser, got)
			}
		})
	}
}

func TestAuthRequired_MissingJWTSecret(t *testing.T) {
	t.Setenv(EnvKeyJWTSecret, "")

	w, c := runAuth("Bearer sometoken")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if !c.IsAborted() {
		t.Error("expected request to be aborted")
	}
}

func TestRequireUsers(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []uint
		userID     any
		wantStatus int
		wantAbort  bool
	}{
		{"allowed user", []uint{1, 2}, uint(2), http.StatusOK, false},
		{"other user", []uint{1, 2}, uint(3), http.StatusForbidden, true},
		{"empty list", nil, uint(1), http.StatusForbidden, true},
		{"no user in context", []uint{1}, nil, http.StatusForbidden, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.userID != nil {
				c.Set(ContextUserID, tt.userID)
			}

			RequireUsers(tt.allowed)(c)

			if c.IsAborted() != tt.wantAbort {
				t.Errorf("expected aborted=%v, got %v", tt.wantAbort, c.IsAborted())
			}
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestEnvVerifier(t *testing.T) {
	const secret = "verifier-secret"
	t.Setenv(EnvKeyJWTSecret, secret)

	verify := EnvVerifier()
	id, err := verify(mustToken(t, secret, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 9 {
		t.Errorf("expected user 9, got %d", id)
	}

	if _, err := verify(mustToken(t, "other", 9)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}

	t.Setenv(EnvKeyJWTSecret, "")
	if _, err := verify("anything"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken without secret, got %v", err)
	}
}
