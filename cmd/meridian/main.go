package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-sis/meridian-sis/internal/app"
	"github.com/meridian-sis/meridian-sis/internal/attendance"
	"github.com/meridian-sis/meridian-sis/internal/auth"
	"github.com/meridian-sis/meridian-sis/internal/employees"
	"github.com/meridian-sis/meridian-sis/internal/exams"
	"github.com/meridian-sis/meridian-sis/internal/fees"
	"github.com/meridian-sis/meridian-sis/internal/menu"
	"github.com/meridian-sis/meridian-sis/internal/observability"
	"github.com/meridian-sis/meridian-sis/internal/platform/cache"
	"github.com/meridian-sis/meridian-sis/internal/platform/db"
	"github.com/meridian-sis/meridian-sis/internal/rbac"
	"github.com/meridian-sis/meridian-sis/internal/roles"
	"github.com/meridian-sis/meridian-sis/internal/students"
	"github.com/meridian-sis/meridian-sis/internal/users"
	"github.com/meridian-sis/meridian-sis/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// A failed ping is not fatal: the client reconnects on its own and the
	// menu-view cache degrades to always-miss until redis is back.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)

	authService := auth.NewService(usersService, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authHandler := auth.NewHandler(logger, authService)

	menuRepo := menu.NewRepository(dbpool)
	menuService := menu.NewService(menuRepo)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo)

	grantRepo := rbac.NewGrantRepository(dbpool)
	assignmentRepo := rbac.NewAssignmentRepository(dbpool)
	rbacService := rbac.NewService(menuService, grantRepo, assignmentRepo, usersService)

	metrics := observability.NewMetrics()
	guard := rbac.Middleware{Service: rbacService, Logger: logger, Metrics: metrics}

	menuViewCache := rbac.NewMenuViewCache(redisClient, cfg.MenuCacheTTL)
	rbacHandler := rbac.NewHandler(logger, rbacService, menuViewCache, guard)

	menuHandler := menu.NewHandler(logger, menuService, guard, menuViewCache)
	rolesHandler := roles.NewHandler(logger, rolesService, guard, menuViewCache)
	usersHandler := users.NewHandler(logger, usersService, guard)

	studentsRepo := students.NewRepository(dbpool)
	studentsService := students.NewService(studentsRepo, usersService)
	studentsHandler := students.NewHandler(logger, studentsService, guard)

	employeesRepo := employees.NewRepository(dbpool)
	employeesService := employees.NewService(employeesRepo, usersService)
	employeesHandler := employees.NewHandler(logger, employeesService, guard)

	attendanceRepo := attendance.NewRepository(dbpool)
	attendanceService := attendance.NewService(attendanceRepo, usersService)
	attendanceHandler := attendance.NewHandler(logger, attendanceService, guard)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	feesRepo := fees.NewRepository(dbpool)
	feesService := fees.NewService(logger, feesRepo, studentsService, asynqClient)
	feesHandler := fees.NewHandler(logger, feesService, guard)

	examsRepo := exams.NewRepository(dbpool)
	examsService := exams.NewService(examsRepo, studentsService)
	examsHandler := exams.NewHandler(logger, examsService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authenticator:     authService.Authenticator,
		AuthHandler:       authHandler,
		MenuHandler:       menuHandler,
		RolesHandler:      rolesHandler,
		UsersHandler:      usersHandler,
		RBACHandler:       rbacHandler,
		StudentsHandler:   studentsHandler,
		EmployeesHandler:  employeesHandler,
		AttendanceHandler: attendanceHandler,
		FeesHandler:       feesHandler,
		ExamsHandler:      examsHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
