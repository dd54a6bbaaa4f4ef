package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogfiber "github.com/samber/slog-fiber"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"

	"github.com/AsliddinWeb/online-course-platform/config"
	"github.com/AsliddinWeb/online-course-platform/internal/core/auth"
	"github.com/AsliddinWeb/online-course-platform/internal/core/kinescope"
	"github.com/AsliddinWeb/online-course-platform/internal/core/platform"
	"github.com/AsliddinWeb/online-course-platform/pkg/telemetry"
)

func initGlobalMiddlewares(app *fiber.App, cfg *config.Config) {
	app.Use(
		compress.New(compress.Config{
			Level: compress.LevelDefault,
		}),

		slogfiber.NewWithFilters(slog.Default(), slogfiber.IgnorePath("/health")),

		cors.New(cors.Config{
			AllowOrigins: "*", // TODO - add allowed origins
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		}),

		favicon.New(),
		limiter.New(limiter.Config{
			Max:               cfg.RateLimitMax,
			Expiration:        time.Duration(cfg.RateLimitWindow) * time.Second,
			LimiterMiddleware: limiter.SlidingWindow{},
		}),
	)

	app.Use(otelfiber.Middleware())
}

// statusForCode maps the closed error taxonomy to HTTP statuses. Anything
// outside the taxonomy is an internal error and stays opaque to the caller.
func statusForCode(code string) int {
	switch code {
	case platform.CodeUserNotFound:
		return fiber.StatusNotFound
	case platform.CodeInvalidOTP, platform.CodeOTPExpired,
		auth.CodeInvalidToken, auth.CodePhoneMismatch:
		return fiber.StatusBadRequest
	case platform.CodeAccessDenied, platform.CodeLessonLocked:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	code := platform.CodeOf(err)
	status := statusForCode(code)

	message := ""
	var typed *platform.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
		message = ""
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   code,
		"message": message,
	})
}

func badRequest(c *fiber.Ctx, code string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   code,
	})
}

func registerHttpRoutes(app *fiber.App, s *Server) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().Unix()})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiRoutes := app.Group("/v1")

	apiRoutes.Get("/group-types/", s.handleListGroupTypes)
	apiRoutes.Get("/group-types/:id/groups/", s.handleListGroups)
	apiRoutes.Get("/lessons/", s.handleListLessons)
	apiRoutes.Get("/lessons/:id", s.handleGetLesson)
	apiRoutes.Post("/progress/", s.handleVideoProgress)
	apiRoutes.Post("/progress/complete/", s.handleCompleteLesson)
	apiRoutes.Post("/quizzes/:id/submit/", s.handleSubmitQuiz)
}

func (s *Server) handleListGroupTypes(c *fiber.Ctx) error {
	groupTypes, err := s.groupsService.ListGroupTypes(c.UserContext())
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "group_types": groupTypes})
}

func (s *Server) handleListGroups(c *fiber.Ctx) error {
	groupTypeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid_group_type_id")
	}

	list, err := s.groupsService.ListGroups(c.UserContext(), groupTypeID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "groups": list})
}

func (s *Server) handleListLessons(c *fiber.Ctx) error {
	groupTypeID, err := uuid.Parse(c.Query("group_type_id"))
	if err != nil {
		return badRequest(c, "group_type_id_required")
	}

	lessons, err := s.coursesService.AvailableLessons(c.UserContext(), groupTypeID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "lessons": lessons})
}

func (s *Server) handleGetLesson(c *fiber.Ctx) error {
	lessonID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid_lesson_id")
	}
	groupTypeID, err := uuid.Parse(c.Query("group_type_id"))
	if err != nil {
		return badRequest(c, "group_type_id_required")
	}

	ctx := c.UserContext()

	if err := s.coursesService.CheckAccess(ctx, lessonID, groupTypeID); err != nil {
		return errorJSON(c, err)
	}

	lesson, err := s.coursesService.GetLesson(ctx, lessonID)
	if err != nil {
		return errorJSON(c, err)
	}
	if lesson == nil {
		return errorJSON(c, platform.ErrLessonLocked)
	}

	if telemetry.LessonViewsTotal != nil {
		telemetry.LessonViewsTotal.Add(ctx, 1,
			api.WithAttributes(attribute.String("lesson_id", lessonID.String())))
	}

	response := fiber.Map{"success": true, "lesson": lesson}

	if lesson.KinescopeVideoID != "" {
		response["embed_url"] = kinescope.EmbedURL(lesson.KinescopeVideoID)
	}

	// Page content is best effort, a Notion outage must not lock the lesson.
	if s.notionClient != nil && s.notionClient.Enabled() && lesson.NotionPageID != "" {
		content, err := s.notionClient.GetPageContent(ctx, lesson.NotionPageID)
		if err != nil {
			slog.Warn("failed to fetch lesson content",
				slog.String("lesson_id", lessonID.String()),
				slog.String("error", err.Error()))
		} else {
			response["content"] = content
		}
	}

	return c.JSON(response)
}

type progressRequest struct {
	UserID   int64     `json:"user_id"`
	LessonID uuid.UUID `json:"lesson_id"`
	Seconds  int       `json:"seconds"`
}

func (s *Server) handleVideoProgress(c *fiber.Ctx) error {
	var req progressRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_json")
	}
	if req.UserID == 0 || req.LessonID == uuid.Nil {
		return badRequest(c, "user_id and lesson_id are required")
	}

	record, err := s.progressService.UpdateVideoProgress(c.UserContext(), req.UserID, req.LessonID, req.Seconds)
	if err != nil {
		return errorJSON(c, err)
	}

	if telemetry.VideoProgressUpdates != nil {
		telemetry.VideoProgressUpdates.Add(c.UserContext(), 1)
	}

	return c.JSON(fiber.Map{"success": true, "progress": record})
}

func (s *Server) handleCompleteLesson(c *fiber.Ctx) error {
	var req progressRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_json")
	}
	if req.UserID == 0 || req.LessonID == uuid.Nil {
		return badRequest(c, "user_id and lesson_id are required")
	}

	record, err := s.progressService.MarkCompleted(c.UserContext(), req.UserID, req.LessonID)
	if err != nil {
		return errorJSON(c, err)
	}

	if telemetry.LessonsCompletedTotal != nil {
		telemetry.LessonsCompletedTotal.Add(c.UserContext(), 1,
			api.WithAttributes(attribute.String("lesson_id", req.LessonID.String())))
	}

	return c.JSON(fiber.Map{"success": true, "progress": record})
}

type submitQuizRequest struct {
	UserID  int64             `json:"user_id"`
	Answers map[string]string `json:"answers"`
}

func (s *Server) handleSubmitQuiz(c *fiber.Ctx) error {
	quizID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid_quiz_id")
	}

	var req submitQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_json")
	}
	if req.UserID == 0 {
		return badRequest(c, "user_id is required")
	}

	submitted := make(map[uuid.UUID]uuid.UUID, len(req.Answers))
	for questionID, answerID := range req.Answers {
		qid, err := uuid.Parse(questionID)
		if err != nil {
			return badRequest(c, "invalid_question_id")
		}
		aid, err := uuid.Parse(answerID)
		if err != nil {
			return badRequest(c, "invalid_answer_id")
		}
		submitted[qid] = aid
	}

	attempt, err := s.quizzesService.SubmitAttempt(c.UserContext(), req.UserID, quizID, submitted)
	if err != nil {
		return errorJSON(c, err)
	}

	if telemetry.QuizAttemptsTotal != nil {
		outcome := "failed"
		if attempt.IsPassed {
			outcome = "passed"
		}
		telemetry.QuizAttemptsTotal.Add(c.UserContext(), 1,
			api.WithAttributes(attribute.String("outcome", outcome)))
	}

	return c.JSON(fiber.Map{"success": true, "attempt": attempt})
}
