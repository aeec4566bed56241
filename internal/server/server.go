package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/config"
	"github.com/smartassist/apiserver/internal/ai"
	"github.com/smartassist/apiserver/internal/auth"
	"github.com/smartassist/apiserver/internal/db"
	"github.com/smartassist/apiserver/internal/events"
	"github.com/smartassist/apiserver/internal/handlers"
	"github.com/smartassist/apiserver/internal/mq"
	"github.com/smartassist/apiserver/internal/observability"
	"github.com/smartassist/apiserver/internal/ratelimit"
	"github.com/smartassist/apiserver/internal/services"
	"github.com/smartassist/apiserver/internal/storage"
	"github.com/smartassist/apiserver/internal/store"
)

const (
	requestTimeout  = 60 * time.Second
	rateLimitWindow = time.Minute
	faqCacheSize    = 256
	faqCacheTTL     = 10 * time.Minute
)

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     logrus.FieldLogger
	closers    []func() error
}

// Dependencies are the wired components the router serves. Storage is
// optional; resume routes are only mounted when it is set.
type Dependencies struct {
	Logger     logrus.FieldLogger
	Metrics    *observability.Metrics
	DB         handlers.Pinger
	Middleware *handlers.AuthMiddleware
	Throttle   func(http.Handler) http.Handler
	Accounts   *services.AccountService
	FAQs       *services.FAQService
	Chatbot    *services.ChatbotService
	Resumes    *services.ResumeService
	Symptoms   *services.SymptomService
	MaxUpload  int64

	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For/X-Real-IP.
	TrustProxyHeaders bool
}

// New connects every backend named by cfg and builds the router. Optional
// backends (redis, object storage, message queue, AI providers) are skipped
// when unconfigured.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{logger: logger}
	deps, err := s.wire(ctx, cfg, logger)
	if err != nil {
		_ = s.closeAll()
		return nil, err
	}

	s.router = NewRouter(deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) wire(ctx context.Context, cfg config.Config, logger *logrus.Logger) (Dependencies, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return Dependencies{}, fmt.Errorf("database: %w", err)
	}
	s.closers = append(s.closers, dbConn.Close)

	userRepo := store.NewUserRepository(dbConn)
	faqRepo := store.NewFAQRepository(dbConn)
	chatRepo := store.NewChatRepository(dbConn)
	resumeRepo := store.NewResumeRepository(dbConn)
	symptomRepo := store.NewSymptomRepository(dbConn)

	passwords, err := auth.NewPasswordManager(cfg.Auth.BcryptCost)
	if err != nil {
		return Dependencies{}, err
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    cfg.Auth.JWTSecret,
		Algorithm: cfg.Auth.JWTAlgorithm,
		TTL:       time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
	})
	if err != nil {
		return Dependencies{}, err
	}
	guard := auth.NewGuard(auth.NewResolver(tokens, userRepo, logger))

	emitter, err := s.newEmitter(ctx, cfg.MQ, logger)
	if err != nil {
		return Dependencies{}, err
	}

	accounts := services.NewAccountService(userRepo, passwords, tokens, emitter, metrics, logger)
	accounts.SetPagination(services.Pagination{
		DefaultPageSize: cfg.Pagination.DefaultPageSize,
		MaxPageSize:     cfg.Pagination.MaxPageSize,
	})

	faqs := services.NewFAQService(faqRepo, metrics, faqCacheSize, faqCacheTTL)

	chain, err := s.newAIChain(ctx, cfg.AI, metrics, logger)
	if err != nil {
		return Dependencies{}, err
	}
	chatbot := services.NewChatbotService(chatRepo, faqs, chain, logger)

	deps := Dependencies{
		Logger:     logger,
		Metrics:    metrics,
		DB:         dbConn,
		Middleware: handlers.NewAuthMiddleware(guard, metrics, logger),
		Accounts:   accounts,
		FAQs:       faqs,
		Chatbot:    chatbot,
		Symptoms:   services.NewSymptomService(symptomRepo, chain, logger),
		MaxUpload:  cfg.Upload.MaxBytes,

		TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
	}

	objects, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return Dependencies{}, fmt.Errorf("storage: %w", err)
	}
	if objects != nil {
		s.closers = append(s.closers, objects.Close)
		deps.Resumes = services.NewResumeService(resumeRepo, objects, services.UploadPolicy{
			MaxBytes:          cfg.Upload.MaxBytes,
			AllowedExtensions: cfg.Upload.AllowedExtensions,
		}, logger)
		accounts.SetResumePurger(deps.Resumes)
		logger.WithField("backend", cfg.Storage.Backend).Info("resume uploads enabled")
	}

	if cfg.RateLimit.Enabled {
		client, err := ratelimit.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return Dependencies{}, fmt.Errorf("redis: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		limiter := ratelimit.New(client, cfg.RateLimit.PerMinute, rateLimitWindow, "smartassist:ratelimit")
		deps.Throttle = limiter.Middleware("auth", logger, metrics.RecordRateLimited)
		logger.WithField("per_minute", cfg.RateLimit.PerMinute).Info("rate limiting enabled")
	}

	return deps, nil
}

func (s *Server) newEmitter(ctx context.Context, cfg config.MQConfig, logger *logrus.Logger) (*events.Emitter, error) {
	queue, err := mq.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("mq: %w", err)
	}
	if queue == nil {
		return events.NewEmitter(nil, cfg.EventsChannel, logger), nil
	}
	s.closers = append(s.closers, queue.Close)
	logger.WithField("backend", cfg.Backend).Info("account events enabled")
	return events.NewEmitter(queue, cfg.EventsChannel, logger), nil
}

func (s *Server) newAIChain(ctx context.Context, cfg config.AIConfig, metrics *observability.Metrics, logger *logrus.Logger) (*ai.Chain, error) {
	var providers []ai.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{APIKey: cfg.GeminiAPIKey, ModelName: cfg.GeminiModel})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		s.closers = append(s.closers, gemini.Close)
		providers = append(providers, gemini)
	}
	if cfg.GroqAPIKey != "" {
		groq, err := ai.NewGroqClient(ai.GroqConfig{APIKey: cfg.GroqAPIKey, ModelName: cfg.GroqModel, BaseURL: cfg.GroqBaseURL})
		if err != nil {
			return nil, fmt.Errorf("groq: %w", err)
		}
		providers = append(providers, groq)
	}
	if len(providers) == 0 {
		logger.Warn("no AI providers configured, chatbot answers come from the FAQ and symptom checks are unavailable")
	}
	return ai.NewChain(logger, metrics, providers...), nil
}

// NewRouter mounts every route on a fresh chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if deps.TrustProxyHeaders {
		router.Use(middleware.RealIP)
	}
	router.Use(
		middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}),
		middleware.Recoverer,
	)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}
	router.Use(middleware.Timeout(requestTimeout))

	router.Get("/healthz", handlers.Healthz(deps.DB))
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, deps.Accounts, deps.Middleware, deps.Throttle, logger)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, deps.Accounts, deps.Middleware, logger)
		})
		r.Route("/faqs", func(r chi.Router) {
			handlers.FAQRouter(r, deps.FAQs, deps.Middleware, logger)
		})
		r.Route("/chatbot", func(r chi.Router) {
			handlers.ChatbotRouter(r, deps.Chatbot, deps.Middleware, logger)
		})
		if deps.Symptoms != nil {
			r.Route("/symptoms", func(r chi.Router) {
				handlers.SymptomRouter(r, deps.Symptoms, deps.Middleware, logger)
			})
		}
		if deps.Resumes != nil {
			r.Route("/resumes", func(r chi.Router) {
				handlers.ResumeRouter(r, deps.Resumes, deps.Middleware, deps.MaxUpload, logger)
			})
		}
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes every backend connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.closeAll())
}

func (s *Server) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

var _ handlers.Pinger = (*sql.DB)(nil)
