package server

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"

	"github.com/AsliddinWeb/online-course-platform/config"
	"github.com/AsliddinWeb/online-course-platform/internal/core/auth"
	"github.com/AsliddinWeb/online-course-platform/pkg/telemetry"
)

func registerAuthRoutes(app *fiber.App, cfg *config.Config, authService *auth.Service) {
	authGroup := app.Group("/auth")

	authGroup.Post("/login/", handleLogin(authService))
	authGroup.Post("/verify/", handleVerifyOTP(authService))

	// Bot-facing endpoints behind the shared token. The guard runs before
	// any body parsing, unauthenticated callers learn nothing about the
	// payload contract.
	botAPI := app.Group("/auth/api/internal", botTokenGuard(cfg.BotAPIToken))
	botAPI.Post("/verify-deep-link/", handleVerifyDeepLink(authService))
	botAPI.Post("/check-user/", handleCheckUser(authService))
	botAPI.Post("/resend-otp/", handleResendOTP(authService))
}

func botTokenGuard(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Bot-Token")
		if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
			})
		}
		return c.Next()
	}
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func handleLogin(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid_json")
		}
		if req.PhoneNumber == "" {
			return badRequest(c, "phone_number is required")
		}

		initiation, err := authService.InitiateLogin(c.UserContext(), auth.FormatPhone(req.PhoneNumber))
		if err != nil {
			if telemetry.LoginAttemptsTotal != nil {
				telemetry.LoginAttemptsTotal.Add(c.UserContext(), 1,
					api.WithAttributes(attribute.String("outcome", "rejected")))
			}
			return errorJSON(c, err)
		}

		if telemetry.LoginAttemptsTotal != nil {
			telemetry.LoginAttemptsTotal.Add(c.UserContext(), 1,
				api.WithAttributes(attribute.String("outcome", "initiated")))
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"user_id":      initiation.UserID,
			"deep_link":    initiation.DeepLink,
			"masked_phone": initiation.MaskedPhone,
		})
	}
}

type verifyOTPRequest struct {
	UserID  int64  `json:"user_id"`
	OTPCode string `json:"otp_code"`
}

func handleVerifyOTP(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyOTPRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid_json")
		}
		if req.UserID == 0 || req.OTPCode == "" {
			return badRequest(c, "user_id and otp_code are required")
		}

		user, err := authService.VerifyOTP(c.UserContext(), req.UserID, req.OTPCode)
		if err != nil {
			if telemetry.OTPFailedTotal != nil {
				telemetry.OTPFailedTotal.Add(c.UserContext(), 1,
					api.WithAttributes(attribute.String("channel", "web")))
			}
			return errorJSON(c, err)
		}

		if telemetry.OTPVerifiedTotal != nil {
			telemetry.OTPVerifiedTotal.Add(c.UserContext(), 1)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"user":    user,
		})
	}
}

type verifyDeepLinkRequest struct {
	Token       string `json:"token"`
	ChatID      int64  `json:"chat_id"`
	PhoneNumber string `json:"phone_number"`
}

func handleVerifyDeepLink(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyDeepLinkRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid_json")
		}
		if req.Token == "" || req.ChatID == 0 || req.PhoneNumber == "" {
			return badRequest(c, "token, chat_id and phone_number are required")
		}

		result, err := authService.VerifyDeepLink(c.UserContext(),
			req.Token, req.ChatID, auth.FormatPhone(req.PhoneNumber))
		if err != nil {
			if telemetry.DeepLinksVerifiedTotal != nil {
				telemetry.DeepLinksVerifiedTotal.Add(c.UserContext(), 1,
					api.WithAttributes(attribute.String("outcome", "rejected")))
			}
			return errorJSON(c, err)
		}

		if telemetry.DeepLinksVerifiedTotal != nil {
			telemetry.DeepLinksVerifiedTotal.Add(c.UserContext(), 1,
				api.WithAttributes(attribute.String("outcome", "verified")))
		}
		if telemetry.OTPIssuedTotal != nil {
			telemetry.OTPIssuedTotal.Add(c.UserContext(), 1)
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"otp_code":   result.OTPCode,
			"expires_in": result.ExpiresIn,
			"user_name":  result.UserName,
		})
	}
}

type chatRequest struct {
	ChatID int64 `json:"chat_id"`
}

func handleCheckUser(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req chatRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid_json")
		}
		if req.ChatID == 0 {
			return badRequest(c, "chat_id is required")
		}

		user, err := authService.CheckChat(c.UserContext(), req.ChatID)
		if err != nil {
			return errorJSON(c, err)
		}

		if user == nil {
			return c.JSON(fiber.Map{"success": true, "exists": false})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"exists":  true,
			"user": fiber.Map{
				"id":        user.ID,
				"full_name": user.FullName,
				"role":      user.Role,
			},
		})
	}
}

func handleResendOTP(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req chatRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid_json")
		}
		if req.ChatID == 0 {
			return badRequest(c, "chat_id is required")
		}

		result, err := authService.ResendOTP(c.UserContext(), req.ChatID)
		if err != nil {
			return errorJSON(c, err)
		}

		if telemetry.OTPIssuedTotal != nil {
			telemetry.OTPIssuedTotal.Add(c.UserContext(), 1)
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"otp_code":   result.OTPCode,
			"expires_in": result.ExpiresIn,
			"user_name":  result.UserName,
		})
	}
}
