package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyDeepLinkSendsBotToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/api/internal/verify-deep-link/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Bot-Token"); got != "bot-secret" {
			t.Errorf("unexpected bot token %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["token"] != "1_100_abc" {
			t.Errorf("unexpected token %v", req["token"])
		}
		if req["chat_id"] != float64(555) {
			t.Errorf("unexpected chat_id %v", req["chat_id"])
		}

		_, _ = w.Write([]byte(`{"success":true,"otp_code":"123456","expires_in":30,"user_name":"Aziza"}`))
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL, "bot-secret")

	result, err := backend.VerifyDeepLink(context.Background(), "1_100_abc", 555, "+998901234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OTPCode != "123456" || result.ExpiresIn != 30 || result.UserName != "Aziza" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestVerifyDeepLinkErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusBadRequest, `{"success":false,"error":"invalid_token"}`, ErrInvalidToken},
		{http.StatusBadRequest, `{"success":false,"error":"phone_mismatch"}`, ErrPhoneMismatch},
		{http.StatusNotFound, `{"success":false,"error":"user_not_found"}`, ErrUserNotFound},
		{http.StatusUnauthorized, `{"success":false,"error":"unauthorized"}`, ErrUnauthorized},
	}

	for _, c := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
		}))

		backend := NewHTTPBackend(server.URL, "bot-secret")
		_, err := backend.VerifyDeepLink(context.Background(), "tok", 1, "+998901234567")
		if !errors.Is(err, c.want) {
			t.Errorf("status %d body %s: got %v, want %v", c.status, c.body, err, c.want)
		}
		server.Close()
	}
}

func TestCheckUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/api/internal/check-user/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"exists":true,"user":{"full_name":"Aziza Karimova","role":"student"}}`))
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL, "bot-secret")

	check, err := backend.CheckUser(context.Background(), 555)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !check.Exists || check.FullName != "Aziza Karimova" || check.Role != "student" {
		t.Errorf("unexpected check result %+v", check)
	}
}

func TestResendOTPUnknownChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"user_not_found"}`))
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL, "bot-secret")

	if _, err := backend.ResendOTP(context.Background(), 31337); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
