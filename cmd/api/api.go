package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/KAsare1/Dentora-server/cmd/config"
	"github.com/KAsare1/Dentora-server/cmd/logging"
	"github.com/KAsare1/Dentora-server/cmd/utils"
	"github.com/KAsare1/Dentora-server/db"
	"github.com/KAsare1/Dentora-server/service/appointment"
	"github.com/KAsare1/Dentora-server/service/dashboard"
	"github.com/KAsare1/Dentora-server/service/doctor"
	"github.com/KAsare1/Dentora-server/service/notifications"
	"github.com/KAsare1/Dentora-server/service/user"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = time.Minute
	visitorTTL      = 10 * time.Minute
)

type APIServer struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *logging.SlogLogger
	mailer   notifications.Mailer
	identity user.ProfileFetcher
	replay   user.ReplayGuard
	limiter  *utils.RateLimiter
}

func NewApiServer(cfg *config.Config, db *gorm.DB, log *logging.SlogLogger, mailer notifications.Mailer) *APIServer {
	return &APIServer{
		cfg:     cfg,
		db:      db,
		log:     log,
		mailer:  mailer,
		limiter: utils.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

func (s *APIServer) WithIdentity(f user.ProfileFetcher) *APIServer {
	s.identity = f
	return s
}

func (s *APIServer) WithReplayGuard(g user.ReplayGuard) *APIServer {
	s.replay = g
	return s
}

// Handler wires every service onto one router and wraps it in the shared
// middleware chain.
func (s *APIServer) Handler() (http.Handler, error) {
	schedule, err := appointment.NewSchedule(s.cfg.SlotStart, s.cfg.SlotEnd, s.cfg.SlotInterval)
	if err != nil {
		return nil, err
	}
	verifier, err := user.NewWebhookVerifier(s.cfg.WebhookSecret)
	if err != nil {
		return nil, err
	}
	sessions, err := utils.NewSessionVerifier(s.cfg.SessionJWTKey, s.cfg.SessionSecret)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()
	adminRouter := router.PathPrefix("/admin/api").Subrouter()
	adminRouter.Use(user.RequireAdmin(s.db, s.cfg.AdminEmail, s.log))

	ledger := appointment.NewLedger(s.db, schedule, s.log)
	directory := doctor.NewDirectory(s.db, s.log)
	dispatcher := notifications.NewDispatcher(s.db, ledger, s.mailer, s.cfg.EmailFrom, s.log)

	userHandler := user.NewHandler(s.db, user.NewSyncer(s.db, s.log), verifier, s.log)
	if s.identity != nil {
		userHandler.WithIdentity(s.identity)
	}
	if s.replay != nil {
		userHandler.WithReplayGuard(s.replay)
	}
	userHandler.RegisterRoutes(apiRouter)

	doctorHandler := doctor.NewDoctorHandler(directory, s.log)
	doctorHandler.RegisterRoutes(apiRouter)
	doctorHandler.RegisterAdminRoutes(adminRouter)

	appointmentHandler := appointment.NewAppointmentHandler(ledger, s.log)
	appointmentHandler.RegisterRoutes(apiRouter)
	appointmentHandler.RegisterAdminRoutes(adminRouter)

	notificationHandler := notifications.NewNotificationHandler(dispatcher, s.log)
	notificationHandler.RegisterRoutes(apiRouter)
	notificationHandler.RegisterAdminRoutes(adminRouter)

	dashboard.NewDashboardHandler(s.db, s.log).RegisterRoutes(adminRouter)

	var h http.Handler = router
	h = s.limitWrites(h)
	h = utils.AccessGate("/admin", s.cfg.SignInURL)(h)
	h = utils.SessionMiddleware(sessions)(h)
	h = s.cors()(h)
	h = handlers.LoggingHandler(s.log.Writer(), h)
	if s.cfg.TrustProxy {
		h = handlers.ProxyHeaders(h)
	}
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true), handlers.RecoveryLogger(recoveryLogger{s.log}))(h)
	return h, nil
}

// limitWrites rate limits mutating /api calls per client IP. The identity
// webhook is exempt.
func (s *APIServer) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions ||
			!strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api/sync-user" {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *APIServer) cors() func(http.Handler) http.Handler {
	opts := []handlers.CORSOption{
		handlers.AllowedOrigins(s.cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	}
	if len(s.cfg.AllowedOrigins) > 0 && s.cfg.AllowedOrigins[0] != "*" {
		opts = append(opts, handlers.AllowCredentials())
	}
	return handlers.CORS(opts...)
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := db.HealthCheck(r.Context(), s.db, 2*time.Second); err != nil {
		s.log.Warn(r.Context(), "health check failed", "err", err)
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	h, err := s.Handler()
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	go s.limiter.Sweep(ctx, sweepInterval, visitorTTL)

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type recoveryLogger struct {
	log logging.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(context.Background(), "panic recovered", "panic", fmt.Sprint(v...))
}
