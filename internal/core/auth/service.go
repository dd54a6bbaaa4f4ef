package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/AsliddinWeb/online-course-platform/internal/core/deeplink"
	"github.com/AsliddinWeb/online-course-platform/internal/core/otp"
	"github.com/AsliddinWeb/online-course-platform/internal/core/platform"
	"github.com/AsliddinWeb/online-course-platform/internal/core/users"
)

var tracer = otel.Tracer("auth-service")

// Failure codes specific to the deep-link handshake, on top of the shared
// platform taxonomy.
const (
	CodeInvalidToken  = "invalid_token"
	CodePhoneMismatch = "phone_mismatch"
)

var (
	ErrInvalidToken  = platform.NewError(CodeInvalidToken, "deep link token is invalid or expired")
	ErrPhoneMismatch = platform.NewError(CodePhoneMismatch, "phone number does not match this account")
)

// UserStore is the slice of the users service the orchestrator needs.
type UserStore interface {
	GetByPhone(ctx context.Context, phoneNumber string) (*users.User, error)
	GetByID(ctx context.Context, userID int64) (*users.User, error)
	GetByChatID(ctx context.Context, chatID int64) (*users.User, error)
	BindChat(ctx context.Context, userID int64, chatID int64) error
}

// OTPStore issues and redeems one-time codes.
type OTPStore interface {
	Issue(ctx context.Context, userID int64) (*otp.OTP, error)
	Active(ctx context.Context, userID int64) (*otp.OTP, error)
	Consume(ctx context.Context, id uuid.UUID) error
	Expiry() time.Duration
}

// Service coordinates login initiation, deep-link verification and OTP
// verification across the web session and the bot channel.
type Service struct {
	userStore   UserStore
	otpStore    OTPStore
	codec       *deeplink.Codec
	botUsername string
	maxTokenAge time.Duration
	clock       platform.Clock
	logger      *slog.Logger
}

func NewService(userStore UserStore, otpStore OTPStore, codec *deeplink.Codec, botUsername string, maxTokenAge time.Duration, clock platform.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = platform.SystemClock()
	}
	return &Service{
		userStore:   userStore,
		otpStore:    otpStore,
		codec:       codec,
		botUsername: botUsername,
		maxTokenAge: maxTokenAge,
		clock:       clock,
		logger:      logger,
	}
}

// LoginInitiation is returned to the web login page.
type LoginInitiation struct {
	UserID      int64  `json:"user_id"`
	DeepLink    string `json:"deep_link"`
	MaskedPhone string `json:"masked_phone"`
}

// InitiateLogin looks up the active user behind the phone number and builds a
// deep link for them. No OTP is created yet: code generation is deferred to
// the bot-side callback so nothing is issued until the user actually opens
// the link.
func (s *Service) InitiateLogin(ctx context.Context, phoneNumber string) (*LoginInitiation, error) {
	ctx, span := tracer.Start(ctx, "auth.InitiateLogin")
	defer span.End()

	user, err := s.userStore.GetByPhone(ctx, phoneNumber)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if user == nil {
		return nil, platform.ErrUserNotFound
	}

	token := s.codec.Create(user.ID)

	s.logger.Info("login initiated",
		"component", "auth_service",
		"user_id", user.ID,
		"masked_phone", MaskPhone(phoneNumber))

	return &LoginInitiation{
		UserID:      user.ID,
		DeepLink:    deeplink.StartURL(s.botUsername, token),
		MaskedPhone: MaskPhone(phoneNumber),
	}, nil
}

// CreateOTPForUser issues a fresh code for the user, invalidating any
// previous one. Called by the bot relay after the deep link checks out.
func (s *Service) CreateOTPForUser(ctx context.Context, userID int64) (*otp.OTP, error) {
	ctx, span := tracer.Start(ctx, "auth.CreateOTPForUser")
	defer span.End()

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if user == nil {
		return nil, platform.ErrUserNotFound
	}

	return s.otpStore.Issue(ctx, user.ID)
}

// DeepLinkResult is what the bot relay shows to the end user.
type DeepLinkResult struct {
	OTPCode   string
	ExpiresIn int
	UserName  string
}

// VerifyDeepLink validates the token, requires the bot-reported phone number
// to exactly match the stored one, binds the chat and issues an OTP. The
// phone check defends against a stolen or guessed token being paired with
// the wrong account: neither channel alone is trusted for identity binding.
func (s *Service) VerifyDeepLink(ctx context.Context, token string, chatID int64, phoneNumber string) (*DeepLinkResult, error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyDeepLink")
	defer span.End()

	userID, ok := s.codec.Verify(token, s.maxTokenAge)
	if !ok {
		return nil, ErrInvalidToken
	}

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if user == nil {
		return nil, platform.ErrUserNotFound
	}

	if user.PhoneNumber != phoneNumber {
		s.logger.Warn("deep link phone mismatch",
			"component", "auth_service",
			"user_id", user.ID,
			"chat_id", chatID)
		return nil, ErrPhoneMismatch
	}

	if err := s.userStore.BindChat(ctx, user.ID, chatID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	issued, err := s.otpStore.Issue(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("deep link verified",
		"component", "auth_service",
		"user_id", user.ID,
		"chat_id", chatID)

	return &DeepLinkResult{
		OTPCode:   issued.Code,
		ExpiresIn: int(s.otpStore.Expiry().Seconds()),
		UserName:  user.FullName,
	}, nil
}

// ResendOTP re-issues a code for the user already bound to the chat,
// invalidating the previous one.
func (s *Service) ResendOTP(ctx context.Context, chatID int64) (*DeepLinkResult, error) {
	ctx, span := tracer.Start(ctx, "auth.ResendOTP")
	defer span.End()

	user, err := s.userStore.GetByChatID(ctx, chatID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if user == nil {
		return nil, platform.ErrUserNotFound
	}

	issued, err := s.otpStore.Issue(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &DeepLinkResult{
		OTPCode:   issued.Code,
		ExpiresIn: int(s.otpStore.Expiry().Seconds()),
		UserName:  user.FullName,
	}, nil
}

// CheckChat reports whether a user is already bound to the chat.
func (s *Service) CheckChat(ctx context.Context, chatID int64) (*users.User, error) {
	ctx, span := tracer.Start(ctx, "auth.CheckChat")
	defer span.End()

	return s.userStore.GetByChatID(ctx, chatID)
}

// VerifyOTP checks the submitted code against the user's active OTP and, on
// match, consumes it and returns the authenticated user. A consumed code can
// never be redeemed twice: once used it stops being "active", so a second
// attempt fails with InvalidOTP rather than silently succeeding.
func (s *Service) VerifyOTP(ctx context.Context, userID int64, code string) (*users.User, error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyOTP")
	defer span.End()

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if user == nil {
		return nil, platform.ErrUserNotFound
	}

	active, err := s.otpStore.Active(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if active == nil {
		return nil, platform.NewError(platform.CodeInvalidOTP, "code not found, request a new one")
	}

	if !active.Valid(s.clock.Now()) {
		return nil, platform.ErrOTPExpired
	}

	if active.Code != code {
		s.logger.Info("otp verification failed",
			"component", "auth_service",
			"user_id", user.ID)
		return nil, platform.NewError(platform.CodeInvalidOTP, "code is wrong")
	}

	if err := s.otpStore.Consume(ctx, active.ID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("otp verified",
		"component", "auth_service",
		"user_id", user.ID)

	return user, nil
}
