package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AsliddinWeb/online-course-platform/internal/core/deeplink"
	"github.com/AsliddinWeb/online-course-platform/internal/core/otp"
	"github.com/AsliddinWeb/online-course-platform/internal/core/platform"
	"github.com/AsliddinWeb/online-course-platform/internal/core/users"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[int64]*users.User
	byPhone map[string]*users.User
	byChat  map[int64]*users.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:    make(map[int64]*users.User),
		byPhone: make(map[string]*users.User),
		byChat:  make(map[int64]*users.User),
	}
}

func (s *fakeUserStore) add(u *users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = u
	s.byPhone[u.PhoneNumber] = u
	if u.TelegramChatID != nil {
		s.byChat[*u.TelegramChatID] = u
	}
}

func (s *fakeUserStore) GetByPhone(ctx context.Context, phone string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byPhone[phone]
	if u != nil && !u.IsActive {
		return nil, nil
	}
	return u, nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byID[id]
	if u != nil && !u.IsActive {
		return nil, nil
	}
	return u, nil
}

func (s *fakeUserStore) GetByChatID(ctx context.Context, chatID int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byChat[chatID]
	if u != nil && !u.IsActive {
		return nil, nil
	}
	return u, nil
}

func (s *fakeUserStore) BindChat(ctx context.Context, userID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byID[userID]
	if u == nil {
		return errors.New("user not found")
	}
	u.TelegramChatID = &chatID
	s.byChat[chatID] = u
	return nil
}

// fakeOTPStore mirrors the transactional invalidate-then-create semantics of
// the real store.
type fakeOTPStore struct {
	mu      sync.Mutex
	clock   *fakeClock
	expiry  time.Duration
	records []*otp.OTP
	seq     int
}

func newFakeOTPStore(clock *fakeClock, expiry time.Duration) *fakeOTPStore {
	return &fakeOTPStore{clock: clock, expiry: expiry}
}

func (s *fakeOTPStore) Issue(ctx context.Context, userID int64) (*otp.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.UserID == userID {
			rec.IsUsed = true
		}
	}
	s.seq++
	code, err := otp.GenerateCode()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	rec := &otp.OTP{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *fakeOTPStore) Active(ctx context.Context, userID int64) (*otp.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID && !s.records[i].IsUsed {
			return s.records[i], nil
		}
	}
	return nil, nil
}

func (s *fakeOTPStore) Consume(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			rec.IsUsed = true
		}
	}
	return nil
}

func (s *fakeOTPStore) Expiry() time.Duration {
	return s.expiry
}

func (s *fakeOTPStore) unusedFor(userID int64) []*otp.OTP {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*otp.OTP
	for _, rec := range s.records {
		if rec.UserID == userID && !rec.IsUsed {
			result = append(result, rec)
		}
	}
	return result
}

const (
	testPhone = "+998901234567"
	testChat  = int64(555001)
)

func newTestService(t *testing.T) (*Service, *fakeUserStore, *fakeOTPStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	userStore := newFakeUserStore()
	userStore.add(&users.User{
		ID:          1,
		PhoneNumber: testPhone,
		FullName:    "Aziza Karimova",
		Role:        users.RoleStudent,
		IsActive:    true,
	})
	otpStore := newFakeOTPStore(clock, 30*time.Second)
	codec := deeplink.NewCodec("test-secret", clock)
	svc := NewService(userStore, otpStore, codec, "eduplatform_bot", deeplink.DefaultMaxAge, clock, slog.New(slog.DiscardHandler))
	return svc, userStore, otpStore, clock
}

func TestInitiateLogin(t *testing.T) {
	svc, _, otpStore, _ := newTestService(t)

	result, err := svc.InitiateLogin(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("InitiateLogin: %v", err)
	}
	if result.UserID != 1 {
		t.Fatalf("UserID = %d, want 1", result.UserID)
	}
	if !strings.HasPrefix(result.DeepLink, "https://t.me/eduplatform_bot?start=") {
		t.Fatalf("unexpected deep link %q", result.DeepLink)
	}
	if result.MaskedPhone != "+998***4567" {
		t.Fatalf("MaskedPhone = %q, want +998***4567", result.MaskedPhone)
	}
	// No code is generated until the user actually opens the bot link.
	if n := len(otpStore.unusedFor(1)); n != 0 {
		t.Fatalf("InitiateLogin issued %d OTPs, want 0", n)
	}
}

func TestInitiateLoginUnknownPhone(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.InitiateLogin(context.Background(), "+998900000000")
	if !errors.Is(err, platform.ErrUserNotFound) {
		t.Fatalf("err = %v, want user_not_found", err)
	}
}

func TestVerifyDeepLinkIssuesOTPAndBindsChat(t *testing.T) {
	svc, userStore, _, _ := newTestService(t)

	login, err := svc.InitiateLogin(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("InitiateLogin: %v", err)
	}
	token := strings.TrimPrefix(login.DeepLink, "https://t.me/eduplatform_bot?start=")

	result, err := svc.VerifyDeepLink(context.Background(), token, testChat, testPhone)
	if err != nil {
		t.Fatalf("VerifyDeepLink: %v", err)
	}
	if len(result.OTPCode) != otp.CodeLength {
		t.Fatalf("OTPCode = %q, want %d digits", result.OTPCode, otp.CodeLength)
	}
	if result.ExpiresIn != 30 {
		t.Fatalf("ExpiresIn = %d, want 30", result.ExpiresIn)
	}
	if result.UserName != "Aziza Karimova" {
		t.Fatalf("UserName = %q", result.UserName)
	}

	bound, _ := userStore.GetByChatID(context.Background(), testChat)
	if bound == nil || bound.ID != 1 {
		t.Fatal("chat was not bound to the user")
	}
}

func TestVerifyDeepLinkInvalidToken(t *testing.T) {
	svc, _, otpStore, _ := newTestService(t)

	_, err := svc.VerifyDeepLink(context.Background(), "1_12345_deadbeefdeadbeef", testChat, testPhone)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want invalid_token", err)
	}
	if n := len(otpStore.unusedFor(1)); n != 0 {
		t.Fatalf("invalid token issued %d OTPs", n)
	}
}

func TestVerifyDeepLinkPhoneMismatch(t *testing.T) {
	svc, userStore, otpStore, _ := newTestService(t)

	login, err := svc.InitiateLogin(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("InitiateLogin: %v", err)
	}
	token := strings.TrimPrefix(login.DeepLink, "https://t.me/eduplatform_bot?start=")

	_, err = svc.VerifyDeepLink(context.Background(), token, testChat, "+998904445566")
	if !errors.Is(err, ErrPhoneMismatch) {
		t.Fatalf("err = %v, want phone_mismatch", err)
	}

	// Neither side effect happened.
	if n := len(otpStore.unusedFor(1)); n != 0 {
		t.Fatalf("phone mismatch issued %d OTPs", n)
	}
	if bound, _ := userStore.GetByChatID(context.Background(), testChat); bound != nil {
		t.Fatal("phone mismatch bound the chat")
	}
}

func TestSingleActiveOTPInvariant(t *testing.T) {
	svc, _, otpStore, _ := newTestService(t)

	first, err := svc.CreateOTPForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.CreateOTPForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	unused := otpStore.unusedFor(1)
	if len(unused) != 1 {
		t.Fatalf("%d unused OTPs after two issues, want 1", len(unused))
	}
	if unused[0].ID != second.ID {
		t.Fatal("the surviving unused OTP is not the second one")
	}
	if unused[0].ID == first.ID {
		t.Fatal("first OTP is still active")
	}
}

func TestVerifyOTPConsumesCode(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	issued, err := svc.CreateOTPForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	user, err := svc.VerifyOTP(context.Background(), 1, issued.Code)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("authenticated user %d, want 1", user.ID)
	}

	// Re-submitting the same code is an explicit failure, not a repeat success.
	_, err = svc.VerifyOTP(context.Background(), 1, issued.Code)
	if !errors.Is(err, &platform.Error{Code: platform.CodeInvalidOTP}) {
		t.Fatalf("second submit err = %v, want invalid_otp", err)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	issued, err := svc.CreateOTPForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	wrong := "000000"
	if wrong == issued.Code {
		wrong = "000001"
	}
	_, err = svc.VerifyOTP(context.Background(), 1, wrong)
	if !errors.Is(err, &platform.Error{Code: platform.CodeInvalidOTP}) {
		t.Fatalf("err = %v, want invalid_otp", err)
	}

	// The code survives a wrong guess and still works afterwards.
	if _, err := svc.VerifyOTP(context.Background(), 1, issued.Code); err != nil {
		t.Fatalf("correct code after wrong guess: %v", err)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	svc, _, _, clock := newTestService(t)

	issued, err := svc.CreateOTPForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = clock.now.Add(31 * time.Second)
	_, err = svc.VerifyOTP(context.Background(), 1, issued.Code)
	if !errors.Is(err, platform.ErrOTPExpired) {
		t.Fatalf("err = %v, want otp_expired", err)
	}
}

func TestVerifyOTPNoActiveCode(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.VerifyOTP(context.Background(), 1, "123456")
	if !errors.Is(err, &platform.Error{Code: platform.CodeInvalidOTP}) {
		t.Fatalf("err = %v, want invalid_otp", err)
	}
}

func TestResendOTPInvalidatesPrevious(t *testing.T) {
	svc, _, otpStore, _ := newTestService(t)

	login, _ := svc.InitiateLogin(context.Background(), testPhone)
	token := strings.TrimPrefix(login.DeepLink, "https://t.me/eduplatform_bot?start=")
	first, err := svc.VerifyDeepLink(context.Background(), token, testChat, testPhone)
	if err != nil {
		t.Fatalf("VerifyDeepLink: %v", err)
	}

	resent, err := svc.ResendOTP(context.Background(), testChat)
	if err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}

	if _, err := svc.VerifyOTP(context.Background(), 1, first.OTPCode); err == nil {
		t.Fatal("first code still redeemable after resend")
	}
	if _, err := svc.VerifyOTP(context.Background(), 1, resent.OTPCode); err != nil {
		t.Fatalf("resent code failed: %v", err)
	}
	if n := len(otpStore.unusedFor(1)); n != 0 {
		t.Fatalf("%d unused OTPs left after redeeming", n)
	}
}

func TestResendOTPUnknownChat(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.ResendOTP(context.Background(), 404404)
	if !errors.Is(err, platform.ErrUserNotFound) {
		t.Fatalf("err = %v, want user_not_found", err)
	}
}

func TestLoginEndToEnd(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	login, err := svc.InitiateLogin(ctx, testPhone)
	if err != nil {
		t.Fatalf("InitiateLogin: %v", err)
	}
	token := strings.TrimPrefix(login.DeepLink, "https://t.me/eduplatform_bot?start=")
	if token == login.DeepLink {
		t.Fatalf("deep link %q carries no start token", login.DeepLink)
	}

	handshake, err := svc.VerifyDeepLink(ctx, token, testChat, testPhone)
	if err != nil {
		t.Fatalf("VerifyDeepLink: %v", err)
	}
	if len(handshake.OTPCode) != 6 {
		t.Fatalf("otp code %q is not 6 digits", handshake.OTPCode)
	}

	user, err := svc.VerifyOTP(ctx, login.UserID, handshake.OTPCode)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if user.PhoneNumber != testPhone {
		t.Fatalf("authenticated wrong user: %+v", user)
	}

	if _, err := svc.VerifyOTP(ctx, login.UserID, handshake.OTPCode); err == nil {
		t.Fatal("replayed OTP succeeded")
	} else if fmt.Sprint(platform.CodeOf(err)) != platform.CodeInvalidOTP {
		t.Fatalf("replay err code = %s, want invalid_otp", platform.CodeOf(err))
	}
}
