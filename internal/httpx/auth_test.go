package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret []byte, subject string, expiresIn time.Duration) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuth(t *testing.T) {
	secret := []byte("test-secret")

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Owner", GetOwnerID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes and sets owner id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/analytics/overall", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "user-123", time.Hour))
		rr := httptest.NewRecorder()

		Auth(secret)(okHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		if got := rr.Header().Get("X-Owner"); got != "user-123" {
			t.Errorf("owner id = %q, want %q", got, "user-123")
		}
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/analytics/overall", nil)
		rr := httptest.NewRecorder()

		Auth(secret)(okHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/analytics/overall", nil)
		req.Header.Set("Authorization", "InvalidTokenFormat")
		rr := httptest.NewRecorder()

		Auth(secret)(okHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}

		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Message != "Invalid token format" {
			t.Errorf("message = %q, want %q", resp.Message, "Invalid token format")
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/analytics/overall", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "user-123", -time.Minute))
		rr := httptest.NewRecorder()

		Auth(secret)(okHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}

		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Message != "Token expired" {
			t.Errorf("message = %q, want %q", resp.Message, "Token expired")
		}
	})

	t.Run("token signed with wrong secret is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/analytics/overall", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, []byte("other-secret"), "user-123", time.Hour))
		rr := httptest.NewRecorder()

		Auth(secret)(okHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("token without subject is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/analytics/overall", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "", time.Hour))
		rr := httptest.NewRecorder()

		Auth(secret)(okHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})
}

func TestGetOwnerID(t *testing.T) {
	t.Run("returns empty string when unset", func(t *testing.T) {
		if got := GetOwnerID(context.Background()); got != "" {
			t.Errorf("GetOwnerID() = %q, want empty", got)
		}
	})

	t.Run("round-trips through WithOwnerID", func(t *testing.T) {
		ctx := WithOwnerID(context.Background(), "user-456")
		if got := GetOwnerID(ctx); got != "user-456" {
			t.Errorf("GetOwnerID() = %q, want %q", got, "user-456")
		}
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "203.0.113.7:52110",
			want:       "203.0.113.7",
		},
		{
			name:       "single forwarded address wins",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.4"},
			want:       "198.51.100.4",
		},
		{
			name:       "first entry of comma-separated list",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.2, 10.0.0.3"},
			want:       "198.51.100.4",
		},
		{
			name:       "real-ip used when forwarded absent",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "192.0.2.33"},
			want:       "192.0.2.33",
		},
		{
			name:       "unparseable remote addr returned as-is",
			remoteAddr: "not-an-addr",
			want:       "not-an-addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/abc123", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
