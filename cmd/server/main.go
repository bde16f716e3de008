package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mindfuleat/internal/catalog"
	"mindfuleat/internal/config"
	"mindfuleat/internal/crypto"
	"mindfuleat/internal/db"
	"mindfuleat/internal/handlers"
	"mindfuleat/internal/logging"
	"mindfuleat/internal/metrics"
	mw "mindfuleat/internal/middleware"
	"mindfuleat/internal/ready"
	"mindfuleat/internal/services"
	"mindfuleat/internal/store"
	"mindfuleat/internal/tipgen"
	"mindfuleat/internal/traits"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	dbConn, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()
	if err := dbConn.PingContext(startCtx); err != nil {
		return err
	}
	if err := db.RunMigrations(startCtx, dbConn); err != nil {
		return err
	}

	cipher, err := crypto.NewFieldCipher(cfg.GoalEncryptionKey)
	if err != nil {
		return err
	}
	if cipher == nil {
		logger.Warn("GOAL_ENCRYPTION_KEY not set; goal text is stored in plain text")
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Upstream calls are held until the remote services accept connections
	// or UpstreamWait runs out, whichever comes first.
	gate := ready.NewGate()
	upstreams := []string{cfg.TraitServerURL}
	if !cfg.Mock {
		upstreams = append(upstreams, cfg.TipLLMURL)
	}
	go func() {
		defer gate.Resolve()
		ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamWait)
		defer cancel()
		if err := ready.WaitReachable(ctx, time.Second, upstreams...); err != nil {
			logger.Warn("upstream services not reachable, calls will use fallbacks", zap.Error(err))
			return
		}
		logger.Info("upstream services reachable")
	}()
	predictor := traits.NewClient(traits.Config{URL: cfg.TraitServerURL, Timeout: cfg.TraitTimeout}, gate, logger.Named("traits"), m)
	generator := tipgen.NewClient(tipgen.Config{URL: cfg.TipLLMURL, Timeout: cfg.TipTimeout, Mock: cfg.Mock}, gate, logger.Named("tipgen"), m)

	st := store.New(dbConn, cipher)
	cal := services.NewCalendar(cfg.Location)

	scheduler := services.NewScheduler(cfg.TipWorkers, cfg.TipQueueSize, cfg.TraitTimeout+cfg.TipTimeout+10*time.Second, logger.Named("scheduler"), m)
	scheduler.Start(context.Background())

	tipService := services.NewTipService(st, predictor, generator, cal, logger.Named("tips"), m)
	profileService := services.NewTraitProfileService(st, predictor, scheduler, logger.Named("profiles"))
	goalService := services.NewGoalService(st, tipService, profileService, scheduler, cal, logger.Named("goals"))
	questionService := services.NewQuestionnaireService(cat, st)
	behaviorService := services.NewBehaviorService(cat, st)

	authHandler := handlers.NewAuthHandler(st.Users, []byte(cfg.JWTSecret), logger)
	questionHandler := handlers.NewQuestionHandler(questionService, profileService, logger)
	behaviorHandler := handlers.NewBehaviorHandler(behaviorService, profileService, logger)
	goalHandler := handlers.NewGoalHandler(goalService, logger)
	tipHandler := handlers.NewTipHandler(tipService, logger)
	bigFiveHandler := handlers.NewBigFiveHandler(profileService, logger)
	foodHandler := handlers.NewFoodHandler(st.Food, cfg.UploadDir, logger)
	dashboardHandler := handlers.NewDashboardHandler(st, cal, logger)
	adminHandler := handlers.NewAdminHandler(st, cal, logger)
	chatHandler := handlers.NewChatHandler(generator, logger)
	authMW := mw.NewAuthMiddleware([]byte(cfg.JWTSecret))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.ZapRequestLogger(logger.Named("http")))
	r.Use(mw.Instrument(m))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbConn.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/users/register", authHandler.Register)
		api.Post("/users/login", authHandler.Login)

		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)

			pr.Get("/users/profile-details", authHandler.Me)
			pr.Put("/users/update-profile", authHandler.UpdateMe)
			pr.Post("/users/chat", chatHandler.Chat)

			pr.Get("/questions/question-list", questionHandler.List)
			pr.Post("/questions/submit-answers", questionHandler.Submit)
			pr.Get("/questions/check-submission", questionHandler.CheckSubmission)
			pr.Get("/questions/get-answers", questionHandler.Answers)

			pr.Get("/behaviors/behavior-list", behaviorHandler.List)
			pr.Post("/behaviors/submit-behavior", behaviorHandler.Submit)
			pr.Get("/behaviors/check-behavior-submission", behaviorHandler.CheckSubmission)
			pr.Get("/behaviors/user-behaviors", behaviorHandler.Mine)

			pr.Post("/goals/submit-user-goal", goalHandler.Submit)
			pr.Get("/goals/get-user-goal", goalHandler.Today)

			pr.Post("/tips/submit-user-tips", tipHandler.Submit)
			pr.Get("/tips/get-user-tips", tipHandler.Today)

			pr.Get("/big-five/get-details", bigFiveHandler.Details)
			pr.Post("/big-five/rebuild", bigFiveHandler.Rebuild)

			pr.Post("/food/food-update", foodHandler.Create)
			pr.Get("/food/user-food-updates", foodHandler.List)
			pr.Get("/food/user-uploaded-images", foodHandler.Images)
			pr.Get("/food/food-update/{id}", foodHandler.Get)

			pr.Get("/dashboard", dashboardHandler.Get)

			pr.With(mw.RequireAdmin(adminHandler.IsAdmin)).Get("/admin/overview", adminHandler.Overview)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}
	logger.Info("shutdown initiated")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// Queued tips still get written before the database closes.
	if err := scheduler.Stop(ctx); err != nil {
		logger.Warn("scheduler stop", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
