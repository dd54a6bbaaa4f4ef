package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"google.golang.org/grpc"

	"github.com/AsliddinWeb/online-course-platform/config"
	"github.com/AsliddinWeb/online-course-platform/internal/core/auth"
	"github.com/AsliddinWeb/online-course-platform/internal/core/courses"
	"github.com/AsliddinWeb/online-course-platform/internal/core/deeplink"
	"github.com/AsliddinWeb/online-course-platform/internal/core/groups"
	"github.com/AsliddinWeb/online-course-platform/internal/core/kinescope"
	"github.com/AsliddinWeb/online-course-platform/internal/core/notion"
	"github.com/AsliddinWeb/online-course-platform/internal/core/otp"
	"github.com/AsliddinWeb/online-course-platform/internal/core/platform"
	"github.com/AsliddinWeb/online-course-platform/internal/core/progress"
	"github.com/AsliddinWeb/online-course-platform/internal/core/quizzes"
	"github.com/AsliddinWeb/online-course-platform/internal/core/storage"
	"github.com/AsliddinWeb/online-course-platform/internal/core/users"
	"github.com/AsliddinWeb/online-course-platform/internal/infra/postgres"
	"github.com/AsliddinWeb/online-course-platform/pkg/telemetry"
)

type Server struct {
	cfg            *config.Config
	app            *fiber.App
	db             postgres.DB
	redisClient    *redis.Client
	traceProvider  *sdktrace.TracerProvider
	metricProvider *metric.MeterProvider
	loggerProvider interface{ Shutdown(context.Context) error } // log.LoggerProvider interface

	usersService    *users.Service
	authService     *auth.Service
	groupsService   *groups.Service
	coursesService  *courses.Service
	progressService *progress.Service
	quizzesService  *quizzes.Service
	notionClient    *notion.Client
	kinescopeClient *kinescope.Client
	storageService  *storage.Service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var tracer = otel.Tracer("server")

func New(ctx context.Context, cfg *config.Config, dbConn *pgxpool.Pool) *Server {
	traceExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		slog.Error("failed to initialize jaeger exporter", slog.String("error", err.Error()))
		return nil
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OtlpEndpoint),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithDialOption(grpc.WithUserAgent("course-platform")),
	)
	if err != nil {
		slog.Error("failed to initialize otlp exporter", slog.String("error", err.Error()))
		return nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNameKey.String("course-platform"),
			)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	provider := metric.NewMeterProvider(metric.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("course-platform"),
	)), metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(15*time.Second))))

	otel.SetMeterProvider(provider)

	err = telemetry.InitTelemetry(provider, dbConn)
	if err != nil {
		slog.Error("failed to initialize telemetry", slog.String("error", err.Error()))
		return nil
	}

	instrumentedConn, err := telemetry.NewInstrumentedPool(provider, dbConn)
	if err != nil {
		slog.Error("failed to create instrumented pool", slog.String("error", err.Error()))
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Username: cfg.RedisUser,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDb,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, content cache disabled", slog.String("error", err.Error()))
		_ = redisClient.Close()
		redisClient = nil
	}

	app := fiber.New(cfg.Fiber())

	serverCtx, cancel := context.WithCancel(ctx)

	clock := platform.SystemClock()
	usersService := users.NewService(instrumentedConn)
	otpStore := otp.NewStore(instrumentedConn, clock, cfg.OTPExpiry())
	codec := deeplink.NewCodec(cfg.SecretKey, clock)
	authService := auth.NewService(usersService, otpStore, codec,
		cfg.TelegramBotUsername, cfg.DeepLinkMaxAge(), clock, slog.Default())
	groupsService := groups.NewService(instrumentedConn)
	coursesService := courses.NewService(instrumentedConn, clock)
	progressService := progress.NewService(instrumentedConn)
	quizzesService := quizzes.NewService(instrumentedConn)

	notionClient := notion.NewClient(cfg.GetNotionConfig(), redisClient, slog.Default())
	kinescopeClient := kinescope.NewClient(cfg.GetKinescopeConfig())

	var storageService *storage.Service
	if cfg.AzureStorageAccountName != "" || cfg.AzureStorageConnectionString != "" {
		storageService, err = storage.NewService(cfg.GetCloudConfig(), slog.Default())
		if err != nil {
			slog.Error("failed to initialize storage service", slog.String("error", err.Error()))
			cancel()
			return nil
		}
	} else {
		slog.Info("blob storage not configured, lesson material uploads disabled")
	}

	return &Server{
		cfg:            cfg,
		app:            app,
		db:             instrumentedConn,
		redisClient:    redisClient,
		traceProvider:  tp,
		metricProvider: provider,

		usersService:    usersService,
		authService:     authService,
		groupsService:   groupsService,
		coursesService:  coursesService,
		progressService: progressService,
		quizzesService:  quizzesService,
		notionClient:    notionClient,
		kinescopeClient: kinescopeClient,
		storageService:  storageService,

		ctx:    serverCtx,
		cancel: cancel,
	}
}

// SetLoggerProvider hands the OTLP log provider over for shutdown.
func (s *Server) SetLoggerProvider(lp interface{ Shutdown(context.Context) error }) {
	s.loggerProvider = lp
}

func (s *Server) Start() {
	initGlobalMiddlewares(s.app, s.cfg)
	registerHttpRoutes(s.app, s)
	registerAuthRoutes(s.app, s.cfg, s.authService)

	slog.Info("Starting HTTP server", slog.String("address", s.cfg.ServerAddress))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.app.Listen(s.cfg.ServerAddress); err != nil {
			slog.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()
}

func (s *Server) Shutdown() {
	slog.Info("Shutting down server")

	s.cancel()

	if err := s.app.Shutdown(); err != nil {
		slog.Error("Error shutting down HTTP server", slog.String("error", err.Error()))
	}

	s.wg.Wait()

	if err := s.traceProvider.Shutdown(context.Background()); err != nil {
		slog.Error("Error shutting down trace provider", slog.String("error", err.Error()))
	}

	if err := s.metricProvider.Shutdown(context.Background()); err != nil {
		slog.Error("Error shutting down metric provider", slog.String("error", err.Error()))
	}

	if s.loggerProvider != nil {
		if err := s.loggerProvider.Shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down log provider", slog.String("error", err.Error()))
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			slog.Error("Error closing redis client", slog.String("error", err.Error()))
		}
	}

	s.db.Close()

	slog.Info("Server shut down successfully")
}
