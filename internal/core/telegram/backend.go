package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Relay-side views of the platform's internal auth API responses.
type AuthResult struct {
	OTPCode   string `json:"otp_code"`
	ExpiresIn int    `json:"expires_in"`
	UserName  string `json:"user_name"`
}

type UserCheck struct {
	Exists   bool
	FullName string
	Role     string
}

var (
	ErrInvalidToken  = errors.New("deep link token rejected")
	ErrPhoneMismatch = errors.New("phone number mismatch")
	ErrUserNotFound  = errors.New("user not found")
	ErrUnauthorized  = errors.New("backend rejected bot token")
)

// Backend is the platform's internal auth API as seen from the bot.
type Backend interface {
	VerifyDeepLink(ctx context.Context, token string, chatID int64, phoneNumber string) (*AuthResult, error)
	CheckUser(ctx context.Context, chatID int64) (*UserCheck, error)
	ResendOTP(ctx context.Context, chatID int64) (*AuthResult, error)
}

// HTTPBackend talks to the platform over the X-Bot-Token guarded API.
type HTTPBackend struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func NewHTTPBackend(baseURL, botToken string) *HTTPBackend {
	return &HTTPBackend{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		botToken: strings.TrimSpace(botToken),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type verifyDeepLinkRequest struct {
	Token       string `json:"token"`
	ChatID      int64  `json:"chat_id"`
	PhoneNumber string `json:"phone_number"`
}

type chatRequest struct {
	ChatID int64 `json:"chat_id"`
}

type checkUserResponse struct {
	Exists bool `json:"exists"`
	User   struct {
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	} `json:"user"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b *HTTPBackend) VerifyDeepLink(ctx context.Context, token string, chatID int64, phoneNumber string) (*AuthResult, error) {
	var result AuthResult
	err := b.post(ctx, "/auth/api/internal/verify-deep-link/", verifyDeepLinkRequest{
		Token:       token,
		ChatID:      chatID,
		PhoneNumber: phoneNumber,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *HTTPBackend) CheckUser(ctx context.Context, chatID int64) (*UserCheck, error) {
	var parsed checkUserResponse
	if err := b.post(ctx, "/auth/api/internal/check-user/", chatRequest{ChatID: chatID}, &parsed); err != nil {
		return nil, err
	}
	return &UserCheck{
		Exists:   parsed.Exists,
		FullName: parsed.User.FullName,
		Role:     parsed.User.Role,
	}, nil
}

func (b *HTTPBackend) ResendOTP(ctx context.Context, chatID int64) (*AuthResult, error) {
	var result AuthResult
	if err := b.post(ctx, "/auth/api/internal/resend-otp/", chatRequest{ChatID: chatID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Bot-Token", b.botToken)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return mapAPIError(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapAPIError(status int, payload []byte) error {
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var parsed apiError
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return fmt.Errorf("auth api error: status %d", status)
	}

	switch parsed.Error {
	case "invalid_token":
		return ErrInvalidToken
	case "phone_mismatch":
		return ErrPhoneMismatch
	case "user_not_found":
		return ErrUserNotFound
	default:
		return fmt.Errorf("auth api error: %s", parsed.Error)
	}
}
