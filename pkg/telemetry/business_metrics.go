package telemetry

import (
	"log/slog"

	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Business metrics for application-level monitoring
var (
	// Authentication metrics
	LoginAttemptsTotal     api.Int64Counter
	DeepLinksVerifiedTotal api.Int64Counter
	OTPIssuedTotal         api.Int64Counter
	OTPVerifiedTotal       api.Int64Counter
	OTPFailedTotal         api.Int64Counter

	// Telegram Bot metrics
	TelegramMessagesTotal api.Int64Counter
	TelegramCommandsTotal api.Int64Counter
	TelegramErrorsTotal   api.Int64Counter

	// Learning metrics
	LessonViewsTotal      api.Int64Counter
	VideoProgressUpdates  api.Int64Counter
	LessonsCompletedTotal api.Int64Counter
	QuizAttemptsTotal     api.Int64Counter

	// Error tracking
	ApplicationErrorsTotal api.Int64Counter
	DatabaseErrorsTotal    api.Int64Counter
)

// InitBusinessMetrics initializes all business-level metrics
func InitBusinessMetrics(provider *metric.MeterProvider) error {
	meter := provider.Meter("business")

	var err error

	// Authentication metrics
	LoginAttemptsTotal, err = meter.Int64Counter("auth.login.attempts.total",
		api.WithDescription("Total login attempts by outcome"))
	if err != nil {
		return err
	}

	DeepLinksVerifiedTotal, err = meter.Int64Counter("auth.deeplinks.verified.total",
		api.WithDescription("Total deep link verifications by outcome"))
	if err != nil {
		return err
	}

	OTPIssuedTotal, err = meter.Int64Counter("auth.otp.issued.total",
		api.WithDescription("Total one-time codes issued"))
	if err != nil {
		return err
	}

	OTPVerifiedTotal, err = meter.Int64Counter("auth.otp.verified.total",
		api.WithDescription("Total one-time codes verified successfully"))
	if err != nil {
		return err
	}

	OTPFailedTotal, err = meter.Int64Counter("auth.otp.failed.total",
		api.WithDescription("Total failed code verifications by reason"))
	if err != nil {
		return err
	}

	// Telegram Bot Metrics
	TelegramMessagesTotal, err = meter.Int64Counter("telegram.messages.total",
		api.WithDescription("Total Telegram messages processed by type"))
	if err != nil {
		return err
	}

	TelegramCommandsTotal, err = meter.Int64Counter("telegram.commands.total",
		api.WithDescription("Total Telegram commands executed by command type"))
	if err != nil {
		return err
	}

	TelegramErrorsTotal, err = meter.Int64Counter("telegram.errors.total",
		api.WithDescription("Total Telegram bot errors by type"))
	if err != nil {
		return err
	}

	// Learning Metrics
	LessonViewsTotal, err = meter.Int64Counter("lessons.views.total",
		api.WithDescription("Total lesson views by lesson"))
	if err != nil {
		return err
	}

	VideoProgressUpdates, err = meter.Int64Counter("lessons.video.progress.updates.total",
		api.WithDescription("Total video progress updates"))
	if err != nil {
		return err
	}

	LessonsCompletedTotal, err = meter.Int64Counter("lessons.completed.total",
		api.WithDescription("Total lessons marked completed"))
	if err != nil {
		return err
	}

	QuizAttemptsTotal, err = meter.Int64Counter("quizzes.attempts.total",
		api.WithDescription("Total quiz attempts by outcome"))
	if err != nil {
		return err
	}

	// Error Metrics
	ApplicationErrorsTotal, err = meter.Int64Counter("application.errors.total",
		api.WithDescription("Total application errors by component and type"))
	if err != nil {
		return err
	}

	DatabaseErrorsTotal, err = meter.Int64Counter("database.errors.total",
		api.WithDescription("Total database errors by operation and type"))
	if err != nil {
		return err
	}

	slog.Info("Business metrics initialized successfully")
	return nil
}
