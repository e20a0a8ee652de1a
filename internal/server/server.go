package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/newdaybreak/careers/config"
	"github.com/newdaybreak/careers/internal/db"
	"github.com/newdaybreak/careers/internal/handlers"
	"github.com/newdaybreak/careers/internal/metrics"
	"github.com/newdaybreak/careers/internal/mq"
	"github.com/newdaybreak/careers/internal/notify"
	"github.com/newdaybreak/careers/internal/render"
	"github.com/newdaybreak/careers/internal/services"
	"github.com/newdaybreak/careers/internal/storage"
	"github.com/newdaybreak/careers/internal/store"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server, router and the notification relay.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	archive    *storage.Storage
	relay      *notify.Relay
	worker     *notify.Worker
	topic      string
	log        logrus.FieldLogger

	runCtx     context.Context
	background context.CancelFunc
	wg         sync.WaitGroup
}

// New constructs a Server with its dependencies wired from cfg.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (*Server, error) {
	tokens, err := services.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.AcceptLegacyTokens)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return nil, err
	}

	mailer, err := notify.NewMailer(cfg.Mail, log)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{db: dbConn, topic: cfg.MQ.NotificationTopic, log: log}

	s.queue, err = mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, err
	}

	s.archive, err = storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		s.close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	applicationRepo := store.NewApplicationRepository(dbConn)
	outboxRepo := store.NewOutboxRepository(dbConn)

	var dispatcher notify.Dispatcher
	if s.queue != nil {
		dispatcher = notify.NewQueueDispatcher(s.queue, s.topic)
		if s.queue.Name() == mq.BackendMemory {
			s.worker = notify.NewWorker(outboxRepo, mailer, log)
		}
	} else {
		dispatcher = notify.NewMailDispatcher(mailer, outboxRepo, log)
	}
	s.relay = notify.NewRelay(outboxRepo, dispatcher, cfg.Relay, log)

	var archive services.Archive
	if s.archive != nil {
		archive = s.archive
	}

	authService := services.NewAuthService(userRepo, tokens, log)
	applicationHandler := handlers.NewApplicationHandler(
		services.NewIntakeService(applicationRepo, log),
		services.NewReviewService(applicationRepo, s.relay, cfg.AgencyName, log),
		services.NewExportService(applicationRepo, renderer, archive, log),
		log,
	)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log, NoColor: true}),
		middleware.Recoverer,
		metrics.InstrumentHandler,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", metrics.Handler())
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, authService, log)
		handlers.ApplicationRouter(r, applicationHandler, handlers.RequireAuth(authService))
	})
	s.router = router
	s.runCtx, s.background = context.WithCancel(context.Background())

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"renderer": cfg.DocumentRenderer,
		"mq":       cfg.MQ.Backend,
		"storage":  cfg.Storage.Backend,
		"mail":     cfg.Mail.Transport,
	}).Info("server configured")
	return s, nil
}

func newRenderer(cfg config.Config) (services.DocumentRenderer, error) {
	switch cfg.DocumentRenderer {
	case "", "pdf":
		return render.NewPDFRenderer(cfg.AgencyName), nil
	case "none":
		return services.UnavailableRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown document renderer %q", cfg.DocumentRenderer)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the notification relay in the background and serves HTTP until
// Shutdown is called.
func (s *Server) Start() error {
	ctx := s.runCtx

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.relay.Run(ctx)
	}()

	if s.worker != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.worker.Run(ctx, s.queue, s.topic); err != nil {
				s.log.WithError(err).Error("in-process notifier stopped")
			}
		}()
	}

	s.log.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, then stops the relay and releases connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.background()
	s.wg.Wait()
	s.close()
	return err
}

func (s *Server) close() {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.archive != nil {
		_ = s.archive.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
