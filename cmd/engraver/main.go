// cmd/engraver/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "quadica-engraving-core/docs"
	"quadica-engraving-core/internal/config"
	"quadica-engraving-core/internal/configstore"
	"quadica-engraving-core/internal/database"
	"quadica-engraving-core/internal/engrave"
	"quadica-engraving-core/internal/handler"
	"quadica-engraving-core/internal/lifecycle"
	"quadica-engraving-core/internal/middleware"
	"quadica-engraving-core/internal/render"
	"quadica-engraving-core/internal/repository"
	"quadica-engraving-core/internal/sku"
	"quadica-engraving-core/internal/utils"

	"github.com/shopspring/decimal"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	// Repositories
	configRepo  repository.ConfigRepository
	mappingRepo repository.MappingRepository
	batchRepo   repository.BatchRepository
	rowRepo     repository.RowRepository
	serialRepo  repository.SerialRepository

	// Domain components
	configStore *configstore.Store
	resolver    *sku.Resolver
	stateMachine *lifecycle.StateMachine
	assembler   *render.Assembler
	engraver    *engrave.Engraver
}

// @title Engraver Service API
// @version 1.0.0
// @description UV-laser vector engraving service for LED module batches: Micro-ID encoding, SVG array assembly, and batch/row lifecycle management.
// @termsOfService http://swagger.io/terms/

// @contact.name Engraver Service API Support
// @contact.email support@engraverservice.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8090
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "engraver")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := app.initializeDomain(); err != nil {
		return nil, fmt.Errorf("failed to initialize domain components: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeDatabase sets up the database connection.
func (app *Application) initializeDatabase() error {
	db, err := database.NewConnection(&app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	app.database = db

	// Run migrations TODO: wire a startup flag once the operator wants it
	// migrator := database.NewMigrator(db, app.logger, &app.config.Database)
	// if err := migrator.Up(); err != nil {
	// 	return fmt.Errorf("failed to run database migrations: %w", err)
	// }

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() error {
	app.configRepo = repository.NewConfigRepository(app.database, app.logger)
	app.mappingRepo = repository.NewMappingRepository(app.database, app.logger)
	app.batchRepo = repository.NewBatchRepository(app.database, app.logger)
	app.rowRepo = repository.NewRowRepository(app.database, app.logger)
	app.serialRepo = repository.NewSerialRepository(app.database, app.logger)

	app.logger.Info("Repositories initialized successfully")
	return nil
}

// initializeDomain wires the config store, SKU resolver, lifecycle
// state machine, SVG assembler, and engrave entry point together.
func (app *Application) initializeDomain() error {
	app.configStore = configstore.NewStore(app.configRepo, app.logger)
	app.resolver = sku.NewResolver(app.mappingRepo, app.logger)
	app.stateMachine = lifecycle.NewStateMachine(app.rowRepo, app.serialRepo, app.batchRepo, app.logger)

	app.assembler = render.NewAssembler(app.configStore, render.CanvasSize{
		WidthMM:  decimal.NewFromFloat(app.config.Engrave.CanvasWidthMM),
		HeightMM: decimal.NewFromFloat(app.config.Engrave.CanvasHeightMM),
	})

	var sink engrave.ArtifactSink
	if app.config.Artifact.Enabled {
		fileSink, err := engrave.NewLocalFileSink(app.config.Artifact.BaseDir)
		if err != nil {
			return fmt.Errorf("failed to initialize artifact sink: %w", err)
		}
		sink = fileSink
	} else {
		sink = engrave.NoopSink{}
	}

	app.engraver = engrave.NewEngraver(
		app.rowRepo,
		app.resolver,
		app.stateMachine,
		app.assembler,
		sink,
		app.config.Engrave.DefaultRotationDeg,
		app.config.Engrave.CalibrationOffsetXMM,
		app.config.Engrave.CalibrationOffsetYMM,
		app.logger,
	)

	app.logger.Info("Domain components initialized successfully")
	return nil
}

// initializeServer sets up the HTTP server and routes
func (app *Application) initializeServer() error {
	if app.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	app.addMiddleware(router)
	app.addRoutes(router)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)

	return nil
}

// addMiddleware adds middleware to the router
func (app *Application) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(app.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(app.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&app.config.Security))

	app.logger.Info("Middleware configured")
}

// addRoutes adds all routes to the router
func (app *Application) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(app.database, app.config, app.logger)
	healthHandler.RegisterRoutes(router.Group(""))

	api := router.Group("/api/v1")

	lifecycleHandler := handler.NewLifecycleHandler(app.stateMachine, app.logger)
	lifecycleHandler.RegisterRoutes(api)

	engraveHandler := handler.NewEngraveHandler(app.engraver, app.logger)
	engraveHandler.RegisterRoutes(api)

	designHandler := handler.NewDesignHandler(app.configStore, app.logger)
	designHandler.RegisterRoutes(api)

	mappingHandler := handler.NewMappingHandler(app.mappingRepo, app.resolver, app.logger)
	mappingHandler.RegisterRoutes(api)

	wsHandler := handler.NewWebSocketHandler(app.rowRepo, app.batchRepo, app.logger)
	wsHandler.RegisterRoutes(router.Group("/ws"))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	app.logger.Info("Routes configured including Swagger documentation")
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "engraver")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}

	app.logger.Info("Application shutdown completed")
}

// Start starts the HTTP server and blocks until shutdown.
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.waitForShutdown()

	return nil
}
