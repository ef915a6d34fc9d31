package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/danghamo/stride/docs"
	"github.com/danghamo/stride/internal/api/handlers"
	"github.com/danghamo/stride/internal/api/jsonrpcx"
	"github.com/danghamo/stride/internal/api/middleware"
	"github.com/danghamo/stride/internal/app/service"
	cqrsevents "github.com/danghamo/stride/internal/cqrs"
	cqrshandlers "github.com/danghamo/stride/internal/cqrs/handlers"
	"github.com/danghamo/stride/internal/domain/account"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/pkg/autorouter"
	"github.com/danghamo/stride/pkg/config"
	"github.com/danghamo/stride/pkg/logger"
	"github.com/danghamo/stride/pkg/redisx"
	"github.com/danghamo/stride/pkg/sse"
)

// MethodSessionSync is pushed to a stream client on connect while its
// user has a session running
const MethodSessionSync = "session.sync"

// StreamPath is the SSE endpoint for live session updates
const StreamPath = "/api/v1/stream/session"

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	logger         *logger.Logger
	redisClient    *redisx.Client
	mux            *http.ServeMux
	authMiddleware *middleware.AuthMiddleware
	sseBroadcaster *sse.SSEBroadcaster
	sessions       *service.SessionService
	reaper         *service.SessionReaper
	routes         []autorouter.HandlerInfo
	// Watermill CQRS components
	eventBus        *cqrs.EventBus
	eventProcessor  *cqrs.EventProcessor
	router          *message.Router
	sseEventHandler *cqrshandlers.SSEEventHandler
}

// NewServer wires repositories, services, the event bus and the HTTP routes
func NewServer(cfg *config.Config, version string, log *logger.Logger, redisClient *redisx.Client) (*Server, error) {
	mux := http.NewServeMux()
	apiLogger := log.WithComponent("api")

	// Repositories
	activityRepo := activity.NewRedisRepository(redisClient.Client)
	accountRepo := account.NewRedisRepository(redisClient.Client)

	jwtService := account.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiration)
	authMiddleware := middleware.NewAuthMiddleware(jwtService, apiLogger)

	// Every instance reads every event, so each gets its own consumer group
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	serverID := fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())

	watermillLogger := logger.NewWatermillAdapter(log)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client:  redisClient.Client,
			Maxlens: streamMaxlens(cfg.Events),
		},
		watermillLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	subscriber, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        redisClient.Client,
			ConsumerGroup: fmt.Sprintf("%s-%s", cfg.Events.ConsumerGroup, serverID),
		},
		watermillLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 5 * time.Second,
	}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	eventBus, err := cqrsevents.NewEventBus(publisher, cfg.Events.TopicPrefix, watermillLogger)
	if err != nil {
		return nil, err
	}

	eventProcessor, err := cqrsevents.NewEventProcessor(router, subscriber, cfg.Events.TopicPrefix, watermillLogger)
	if err != nil {
		return nil, err
	}

	// Services
	states := service.NewStateRegistry(activityRepo, apiLogger)
	gateway := service.NewActivityGateway(activityRepo, accountRepo, apiLogger)
	reaper := service.NewSessionReaper(redisClient.Client, cfg.Tracking.SessionTTL, cfg.Tracking.ReapInterval, apiLogger)
	sessions := service.NewSessionService(
		service.SessionConfig{
			TickInterval:   cfg.Tracking.TickInterval,
			ActivityType:   activity.Type(cfg.Tracking.ActivityType),
			SamplerOptions: cfg.Tracking.Sampler,
		},
		states,
		gateway,
		eventBus,
		reaper,
		apiLogger,
	)
	accounts := service.NewAccountService(accountRepo, jwtService, states, sessions, apiLogger)
	activities := service.NewActivityService(activityRepo, states, cqrsevents.NewSSENotifier(eventBus), apiLogger)
	profiles := service.NewProfileService(accounts, states)

	// SSE
	sseBroadcaster := sse.NewSSEBroadcaster(apiLogger).WithSync(func(userID string) (jsonrpcx.JsonRpcNotification, bool) {
		status := sessions.Status(userID)
		if status.SessionID == "" {
			return jsonrpcx.JsonRpcNotification{}, false
		}
		return jsonrpcx.NewNotification(MethodSessionSync, status), true
	})
	sseEventHandler := cqrshandlers.NewSSEEventHandler(sseBroadcaster, apiLogger)

	err = eventProcessor.AddHandlers(
		cqrs.NewEventHandler("SessionStartedEvent", sseEventHandler.HandleSessionStartedEvent),
		cqrs.NewEventHandler("SessionProgressEvent", sseEventHandler.HandleSessionProgressEvent),
		cqrs.NewEventHandler("SessionStoppedEvent", sseEventHandler.HandleSessionStoppedEvent),
		cqrs.NewEventHandler("ActivityRecordedEvent", sseEventHandler.HandleActivityRecordedEvent),
		cqrs.NewEventHandler("SSENotificationEvent", sseEventHandler.HandleSSENotificationEvent),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}

	server := &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.GetServerAddr(),
			Handler:      mux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		logger:          apiLogger,
		redisClient:     redisClient,
		mux:             mux,
		authMiddleware:  authMiddleware,
		sseBroadcaster:  sseBroadcaster,
		sessions:        sessions,
		reaper:          reaper,
		eventBus:        eventBus,
		eventProcessor:  eventProcessor,
		router:          router,
		sseEventHandler: sseEventHandler,
	}

	set := &handlers.Set{
		Auth:     handlers.NewAuthHandler(apiLogger, accounts),
		Account:  handlers.NewAccountHandler(apiLogger, accounts),
		Session:  handlers.NewSessionHandler(apiLogger, sessions),
		Activity: handlers.NewActivityHandler(apiLogger, activities),
		Profile:  handlers.NewProfileHandler(profiles),
		Server:   handlers.NewServerHandler(version, cfg.Server.Environment, reaper, sseBroadcaster),
	}

	var fixLimit autorouter.Middleware
	if cfg.RateLimit.Enabled {
		fixLimit = autorouter.Middleware(middleware.RateLimit(apiLogger, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			IdleTimeout:       cfg.RateLimit.IdleTimeout,
		}))
	}

	if err := server.setupRoutes(set, fixLimit); err != nil {
		return nil, err
	}
	server.setupMiddleware()

	return server, nil
}

// streamMaxlens caps every event stream at the configured length
func streamMaxlens(cfg config.EventsConfig) map[string]int64 {
	if cfg.MaxLen <= 0 {
		return nil
	}
	events := []interface{}{
		cqrsevents.SessionStartedEvent{},
		cqrsevents.SessionProgressEvent{},
		cqrsevents.SessionStoppedEvent{},
		cqrsevents.ActivityRecordedEvent{},
		cqrsevents.SSENotificationEvent{},
	}
	maxlens := make(map[string]int64, len(events))
	for _, e := range events {
		maxlens[cqrsevents.TopicName(cfg.TopicPrefix, cqrsevents.Marshaler.Name(e))] = cfg.MaxLen
	}
	return maxlens
}

// setupRoutes configures the server routes
func (s *Server) setupRoutes(set *handlers.Set, fixLimit autorouter.Middleware) error {
	s.mux.HandleFunc("/health", s.healthCheckHandler)
	s.mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	routes, err := set.Register(s.mux, handlers.RouteOptions{
		Prefix:   "/api/v1/",
		Auth:     s.authMiddleware.RequireAuth,
		FixLimit: fixLimit,
		Logger:   s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to register JSON-RPC routes: %w", err)
	}
	s.routes = routes

	s.mux.Handle(StreamPath, s.authMiddleware.RequireSSEAuth(http.HandlerFunc(s.sseBroadcaster.HandleSSE)))

	s.logger.Info("Routes registered", zap.Int("jsonrpc_methods", len(routes)))
	return nil
}

// setupMiddleware applies middleware to all routes
func (s *Server) setupMiddleware() {
	middlewareChain := middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.ErrorAdapter(s.logger),
		middleware.CORS(),
		middleware.Logging(s.logger),
	)

	s.httpServer.Handler = middlewareChain(s.mux)
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Routes lists the registered JSON-RPC routes
func (s *Server) Routes() []autorouter.HandlerInfo {
	return s.routes
}

// Start runs the event router, the session reaper and the HTTP server until
// ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.httpServer.Addr))

	go func() {
		if err := s.router.Run(ctx); err != nil {
			s.logger.Error("Watermill router error", zap.Error(err))
		}
	}()

	s.reaper.Start(ctx, s.sessions)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = s.Shutdown()
		return err
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down HTTP server")

	// Close stream clients first so Shutdown does not wait on them
	s.sseBroadcaster.Close()
	s.reaper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown error", zap.Error(err))
		return err
	}

	// Running sessions cannot outlive the process
	s.sessions.Close()

	if s.router != nil {
		s.logger.Info("Closing Watermill router")
		if err := s.router.Close(); err != nil {
			s.logger.Error("Router shutdown error", zap.Error(err))
			return err
		}
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// GetAddr returns the server address
func (s *Server) GetAddr() string {
	return s.httpServer.Addr
}

type healthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]healthCheck `json:"checks"`
}

// healthCheckHandler handles GET /health
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "healthy",
		Checks: map[string]healthCheck{"redis": {Status: "up"}},
	}
	code := http.StatusOK

	if err := s.redisClient.HealthCheck(r.Context()); err != nil {
		s.logger.Error("Redis health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Checks["redis"] = healthCheck{Status: "down", Error: err.Error()}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
