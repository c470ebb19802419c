package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "buildledger/api/swagger" // swagger docs
	"buildledger/internal/config"
	"buildledger/internal/database"
	"buildledger/internal/handler"
	"buildledger/internal/lock"
	"buildledger/internal/logger"
	"buildledger/internal/middleware"
	"buildledger/internal/repository"
	"buildledger/internal/service"
	"buildledger/internal/telemetry"
	"buildledger/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// @title           Buildledger API
// @version         1.0
// @description     Construction project accounting: income, expenses, vendor payments, loans and cash position.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	db, err := database.NewConnection(cfg.Database, cfg.Log.Level, zapLogger)
	if err != nil {
		zapLogger.Fatal("Database connection failed", zap.Error(err))
	}
	zapLogger.Info("Connected to PostgreSQL successfully")

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			zapLogger.Fatal("Database migration failed", zap.Error(err))
		}
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db, cfg.Telemetry.DBLogFullSQL, zapLogger); err != nil {
			zapLogger.Warn("Database tracing disabled", zap.Error(err))
		}
	}

	locker, err := lock.New(cfg.Lock, cfg.Redis, cfg.App.IsProduction(), zapLogger)
	if err != nil {
		zapLogger.Fatal("Lock backend unavailable", zap.Error(err))
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zapLogger)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	projectRepo := repository.NewProjectRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	contractorRepo := repository.NewContractorRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	paymentRepo := repository.NewVendorPaymentRepository(db)
	historyRepo := repository.NewPaymentHistoryRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	requestRepo := repository.NewEditRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	txManager := repository.NewTransactionManager(db)

	userService := service.NewUserService(userRepo, cfg.JWT)
	projectService := service.NewProjectService(projectRepo, vendorRepo, contractorRepo, auditRepo, txManager)
	vendorService := service.NewVendorService(projectRepo, vendorRepo, expenseRepo, paymentRepo, auditRepo, txManager)
	contractorService := service.NewContractorService(projectRepo, contractorRepo, expenseRepo, auditRepo, txManager)
	incomeService := service.NewIncomeService(projectRepo, incomeRepo, auditRepo, txManager, wsHub)
	expenseService := service.NewExpenseService(projectRepo, vendorRepo, contractorRepo, expenseRepo,
		paymentRepo, historyRepo, auditRepo, txManager, wsHub)
	paymentService := service.NewVendorPaymentService(vendorRepo, expenseRepo, paymentRepo, historyRepo,
		auditRepo, txManager, locker, wsHub)
	loanService := service.NewLoanService(projectRepo, loanRepo, auditRepo, txManager, wsHub)
	summaryService := service.NewSummaryService(projectRepo, incomeRepo, expenseRepo, loanRepo)
	requestService := service.NewEditRequestService(requestRepo, incomeRepo, expenseRepo, loanRepo, auditRepo, txManager,
		service.EditTargets{Expense: expenseService, Income: incomeService, Loan: loanService}, wsHub)
	auditService := service.NewAuditService(auditRepo)

	if err := handler.RegisterValidators(); err != nil {
		zapLogger.Fatal("Failed to register validators", zap.Error(err))
	}
	auth := middleware.NewAuth(cfg.JWT, cfg.Cookie)

	// Set up Gin Router
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.GinMiddleware(zapLogger), logger.Recovery(zapLogger))
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	router.Use(cors.New(corsConfig))

	if cfg.Swagger.Enabled {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", wsHub.Handler(cfg.JWT))

	api := router.Group("")
	handler.NewAuthHandler(userService, auth).RegisterRoutes(api)
	handler.NewProjectHandler(projectService).RegisterRoutes(api, auth)
	handler.NewVendorHandler(vendorService).RegisterRoutes(api, auth)
	handler.NewContractorHandler(contractorService).RegisterRoutes(api, auth)
	handler.NewIncomeHandler(incomeService).RegisterRoutes(api, auth)
	handler.NewExpenseHandler(expenseService).RegisterRoutes(api, auth)
	handler.NewVendorPaymentHandler(paymentService).RegisterRoutes(api, auth)
	handler.NewLoanHandler(loanService).RegisterRoutes(api, auth)
	handler.NewSummaryHandler(summaryService).RegisterRoutes(api, auth)
	handler.NewEditRequestHandler(requestService).RegisterRoutes(api, auth)
	handler.NewAuditHandler(auditService).RegisterRoutes(api, auth)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		zapLogger.Info("Server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
