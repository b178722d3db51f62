package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/fittracker/internal/apierr"
	"github.com/2beens/fittracker/internal/auth"
	"github.com/2beens/fittracker/internal/config"
	"github.com/2beens/fittracker/internal/db"
	"github.com/2beens/fittracker/internal/gymstats/history"
	"github.com/2beens/fittracker/internal/gymstats/weight"
	"github.com/2beens/fittracker/internal/gymstats/workouts"
	"github.com/2beens/fittracker/internal/middleware"
	"github.com/2beens/fittracker/internal/telemetry/metrics"
	"github.com/2beens/fittracker/internal/telemetry/tracing"
	"github.com/2beens/fittracker/pkg"
)

const healthPath = "/api/health"

type sessionsCleaner interface {
	ScanAndClean(ctx context.Context)
}

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	errs        apierr.Responder
	dbPool      *pgxpool.Pool
	readiness   *db.ReadinessMonitor
	redisClient *redis.Client
	rateLimiter middleware.RequestRateLimiter
	sessions    sessionsCleaner

	authMiddleware  *middleware.AuthMiddlewareHandler
	authHandler     *auth.Handler
	workoutsHandler *workouts.Handler
	weightHandler   *weight.Handler
	historyHandler  *history.Handler

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	DBPassword              string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

type HealthResponse struct {
	Message   string    `json:"message"`
	Database  string    `json:"database"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	dbParams := db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.DBPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	}

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(dbParams.URL()); err != nil {
			return nil, fmt.Errorf("migrate db: %w", err)
		}
	}

	dbPool, err := db.NewDBPool(ctx, dbParams)
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	readiness := db.NewReadinessMonitor(dbPool, cfg.DBReadinessCheckInterval.Duration, func(ready bool) {
		if ready {
			metricsManager.GaugeDBReady.Set(1)
		} else {
			metricsManager.GaugeDBReady.Set(0)
		}
	})
	if !readiness.Check(ctx) {
		log.Warnln("database not reachable yet, requests will get 503 until it is")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fittracker-backend", rdb)
	if err != nil {
		return nil, err
	}

	errs := apierr.Responder{Development: cfg.IsDevelopment()}
	usersRepo := auth.NewUsersRepo(dbPool)
	workoutsRepo := workouts.NewRepo(dbPool)
	weightRepo := weight.NewRepo(dbPool)
	authService := auth.NewService(cfg.SessionTTL.Duration, rdb)
	loginChecker := auth.NewLoginChecker(cfg.SessionTTL.Duration, auth.DefaultCacheTTL, rdb)

	return &Server{
		versionInfo: params.VersionInfo,
		config:      cfg,
		errs:        errs,
		dbPool:      dbPool,
		readiness:   readiness,
		redisClient: rdb,
		rateLimiter: redis_rate.NewLimiter(rdb),
		sessions:    authService,

		authMiddleware:  middleware.NewAuthMiddlewareHandler(loginChecker, usersRepo, errs),
		authHandler:     auth.NewHandler(usersRepo, authService, loginChecker, metricsManager, errs),
		workoutsHandler: workouts.NewHandler(workoutsRepo, metricsManager, errs),
		weightHandler:   weight.NewHandler(weightRepo, metricsManager, errs),
		historyHandler:  history.NewHandler(workoutsRepo, weightRepo, errs),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS").Name("health")

	authRateLimit := middleware.RateLimit(s.rateLimiter, "auth", s.config.AuthRateLimitAllowedPerMin, s.metricsManager)
	api.Handle("/auth/register", authRateLimit(http.HandlerFunc(s.authHandler.HandleRegister))).Methods("POST", "OPTIONS").Name("register")
	api.Handle("/auth/login", authRateLimit(http.HandlerFunc(s.authHandler.HandleLogin))).Methods("POST", "OPTIONS").Name("login")
	api.HandleFunc("/auth/logout", s.authHandler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")
	api.HandleFunc("/auth/profile", s.authHandler.HandleGetProfile).Methods("GET", "OPTIONS").Name("get-profile")
	api.HandleFunc("/auth/profile", s.authHandler.HandleUpdateProfile).Methods("PUT", "OPTIONS").Name("update-profile")
	api.HandleFunc("/auth/change-password", s.authHandler.HandleChangePassword).Methods("POST", "OPTIONS").Name("change-password")

	// stats before {id}, otherwise "stats" is taken for an id
	api.HandleFunc("/workouts", s.workoutsHandler.HandleCreate).Methods("POST", "OPTIONS").Name("new-workout")
	api.HandleFunc("/workouts", s.workoutsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	api.HandleFunc("/workouts/stats", s.workoutsHandler.HandleStats).Methods("GET", "OPTIONS").Name("workout-stats")
	api.HandleFunc("/workouts/{id}", s.workoutsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
	api.HandleFunc("/workouts/{id}", s.workoutsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-workout")
	api.HandleFunc("/workouts/{id}", s.workoutsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")

	api.HandleFunc("/weight", s.weightHandler.HandleCreate).Methods("POST", "OPTIONS").Name("new-weight-entry")
	api.HandleFunc("/weight", s.weightHandler.HandleList).Methods("GET", "OPTIONS").Name("list-weight-entries")
	api.HandleFunc("/weight/stats", s.weightHandler.HandleStats).Methods("GET", "OPTIONS").Name("weight-stats")
	api.HandleFunc("/weight/progress", s.weightHandler.HandleProgress).Methods("GET", "OPTIONS").Name("weight-progress")
	api.HandleFunc("/weight/{id}", s.weightHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-weight-entry")
	api.HandleFunc("/weight/{id}", s.weightHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-weight-entry")
	api.HandleFunc("/weight/{id}", s.weightHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-weight-entry")

	api.HandleFunc("/history", s.historyHandler.HandleList).Methods("GET", "OPTIONS").Name("history")

	api.Use(middleware.PanicRecovery(s.metricsManager, s.errs))
	api.Use(middleware.LogRequest())
	api.Use(middleware.RequestMetrics(s.metricsManager))
	api.Use(middleware.Cors(s.config.AllowedOrigins))
	api.Use(middleware.RateLimit(s.rateLimiter, "api", s.config.RequestsRateLimitAllowedPerMin, s.metricsManager))
	api.Use(middleware.DBCheck(s.readiness, s.errs, healthPath))
	api.Use(s.authMiddleware.AuthCheck())
	api.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	database := "disconnected"
	if s.readiness.IsReady() {
		database = "connected"
	}
	pkg.WriteJSONResponseOK(w, HealthResponse{
		Message:   "Server is running",
		Database:  database,
		Version:   s.versionInfo,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	log.Tracef("unhandled path: [%s] %s", r.Method, r.URL.Path)
	s.errs.Write(w, apierr.NotFound("Route not found"))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	log.Tracef("method not allowed: [%s] %s", r.Method, r.URL.Path)
	s.errs.Write(w, &apierr.Error{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"})
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	go s.readiness.Run(ctx)
	go s.cleanSessions(ctx)

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		"metrics",
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

// cleanSessions removes expired sessions from redis until ctx is done.
func (s *Server) cleanSessions(ctx context.Context) {
	ticker := time.NewTicker(s.config.SessionsCleanupInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugln("sessions cleanup stopped")
			return
		case <-ticker.C:
			s.sessions.ScanAndClean(ctx)
		}
	}
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the stores go away
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}
