package security

import (
	"crypto/tls"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHashPassword(t *testing.T) {
	password := "testPassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == password {
		t.Errorf("HashPassword() returned %q", hash)
	}

	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashPassword() should produce different hashes due to salt")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "mySecurePassword"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "correct password", password: password, hash: hash, want: true},
		{name: "incorrect password", password: "wrongPassword", hash: hash, want: false},
		{name: "empty password", password: "", hash: hash, want: false},
		{name: "garbage hash", password: password, hash: "not-a-hash", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCSRFGenerator(t *testing.T) {
	gen := NewCSRFGenerator("secret")

	token, err := gen.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !gen.ValidateToken("session-1", token) {
		t.Error("token should validate for its own session")
	}
	if gen.ValidateToken("session-2", token) {
		t.Error("token should not validate for another session")
	}
	if gen.ValidateToken("session-1", "") {
		t.Error("empty token should not validate")
	}
	if NewCSRFGenerator("other").ValidateToken("session-1", token) {
		t.Error("token should not validate under another secret")
	}
	if _, err := gen.GenerateToken(""); err == nil {
		t.Error("GenerateToken(\"\") should fail")
	}
}

func TestRememberTokenRoundTrip(t *testing.T) {
	issuer := NewRememberTokenIssuer("remember-secret", time.Hour)

	token, expiresAt, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expiresAt) <= 59*time.Minute {
		t.Errorf("expiresAt %v should be about an hour away", expiresAt)
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != 42 {
		t.Errorf("Verify() = %d, want 42", userID)
	}
}

func TestRememberTokenRejected(t *testing.T) {
	issuer := NewRememberTokenIssuer("remember-secret", time.Hour)
	token, _, err := issuer.Issue(7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired := NewRememberTokenIssuer("remember-secret", -time.Minute)
	expiredToken, _, err := expired.Issue(7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name   string
		issuer *RememberTokenIssuer
		token  string
	}{
		{name: "wrong secret", issuer: NewRememberTokenIssuer("other", time.Hour), token: token},
		{name: "expired", issuer: issuer, token: expiredToken},
		{name: "garbage", issuer: issuer, token: "not.a.jwt"},
		{name: "tampered", issuer: issuer, token: token + "x"},
		{name: "empty secret", issuer: NewRememberTokenIssuer("", time.Hour), token: token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Verify(tt.token); err != ErrInvalidRememberToken {
				t.Errorf("Verify() error = %v, want ErrInvalidRememberToken", err)
			}
		})
	}
}

func TestRememberTokenIssueWithoutSecret(t *testing.T) {
	if _, _, err := NewRememberTokenIssuer("", time.Hour).Issue(1); err == nil {
		t.Error("Issue() should fail without a secret")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 7, 14, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute, func() time.Time { return now })

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request in the window should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients should not share the budget")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("request after the window should be allowed")
	}

	now = now.Add(3 * time.Minute)
	rl.sweep()
	if len(rl.visitors) != 0 {
		t.Errorf("sweep should remove idle visitors, %d left", len(rl.visitors))
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.1:5555", want: "10.0.0.1"},
		{name: "forwarded for", remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"}, want: "203.0.113.9"},
		{name: "real ip", remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, want: "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateSessionCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	cookie := CreateSessionCookie(r, "session_id", "abc", time.Now().Add(time.Hour))
	if !cookie.HttpOnly || cookie.Secure {
		t.Errorf("plain HTTP cookie flags: HttpOnly=%v Secure=%v", cookie.HttpOnly, cookie.Secure)
	}

	r.TLS = &tls.ConnectionState{}
	if !CreateSessionCookie(r, "session_id", "abc", time.Now()).Secure {
		t.Error("cookie over TLS should be Secure")
	}

	del := CreateDeleteCookie(r, "session_id")
	if del.MaxAge != -1 || del.Value != "" {
		t.Errorf("delete cookie = %+v", del)
	}
}

func TestGenerateSessionID(t *testing.T) {
	a, b := GenerateSessionID(), GenerateSessionID()
	if a == b {
		t.Error("session ids should be unique")
	}
	if len(a) != 36 || strings.Count(a, "-") != 4 {
		t.Errorf("session id %q is not a UUID", a)
	}
}
