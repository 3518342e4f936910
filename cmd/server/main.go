package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/alertas"
	"github.com/stanstork/taller-api/internal/authz"
	"github.com/stanstork/taller-api/internal/config"
	"github.com/stanstork/taller-api/internal/events"
	"github.com/stanstork/taller-api/internal/events/rabbit"
	"github.com/stanstork/taller-api/internal/handlers"
	"github.com/stanstork/taller-api/internal/middleware"
	"github.com/stanstork/taller-api/internal/migration"
	"github.com/stanstork/taller-api/internal/notification"
	"github.com/stanstork/taller-api/internal/orden"
	"github.com/stanstork/taller-api/internal/repository"
	"github.com/stanstork/taller-api/internal/routes"
	"github.com/stanstork/taller-api/internal/temporal"
	"github.com/stanstork/taller-api/internal/temporal/activities"
	"github.com/stanstork/taller-api/internal/temporal/workflows"
	scanworker "github.com/stanstork/taller-api/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type application struct {
	config        *config.Config
	db            *sql.DB
	logger        zerolog.Logger
	notifications notification.Service
	ordenes       *orden.Service
	scanner       alertas.Scanner
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	if err := migration.RunMigrations(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	app := &application{config: cfg, db: db, logger: logger}

	closeSinks := app.initServices()
	defer closeSinks()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Start the alert scheduler in the background.
	stopScheduler := app.startScheduler(ctx)

	// Initialize the HTTP router and middleware.
	router := app.initRouter()
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.CORSOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PATCH", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler)

	stop()
	stopScheduler()
	logger.Info().Msg("Application terminated.")
}

// initServices builds the domain services and their event sinks. The returned
// func closes any broker connection that was opened.
func (app *application) initServices() func() {
	policy := authz.NewRolePolicy()
	usuarios := repository.NewUsuarioRepository(app.db)
	ordenRepo := repository.NewOrdenRepository(app.db)
	notifRepo := repository.NewNotificacionRepository(app.db)

	var notifOpts []notification.Option
	if app.config.Email.Enabled {
		mailer, err := notification.NewEmailNotifier(app.config.Email, usuarios, app.logger)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("Failed to configure email notifier")
		}
		notifOpts = append(notifOpts, notification.WithNotifiers(mailer))
	}
	app.notifications = notification.NewService(notifRepo, policy, app.logger, notifOpts...)

	sinks := events.Multi{notification.NewTrigger(app.notifications, app.config.Alerts.FallbackUsuarioID, app.logger)}
	closer := func() {}
	if app.config.Rabbit.URL != "" {
		conn, err := rabbit.Dial(app.config.Rabbit.URL)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		publisher, err := rabbit.NewPublisher(conn.Channel(), app.config.Rabbit.Exchange, app.logger)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("Failed to declare event exchange")
		}
		sinks = append(sinks, publisher)
		closer = func() {
			if err := conn.Close(); err != nil {
				app.logger.Warn().Err(err).Msg("RabbitMQ close error")
			}
		}
	}

	app.ordenes = orden.NewService(ordenRepo, policy, sinks, app.logger)
	app.scanner = alertas.NewEngine(ordenRepo, notifRepo, app.notifications, alertas.Config{
		Cooldown:          app.config.Alerts.Cooldown,
		Inactivity:        app.config.Alerts.Inactivity,
		FallbackUsuarioID: app.config.Alerts.FallbackUsuarioID,
	}, app.logger)
	return closer
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter() http.Handler {
	authHandler := handlers.NewAuthHandler(repository.NewUsuarioRepository(app.db), app.config.JWTSecret, app.logger)
	ordenHandler := handlers.NewOrdenHandler(app.ordenes, app.logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, app.logger)
	alertasHandler := handlers.NewAlertasHandler(app.scanner, app.logger)

	return routes.NewRouter(handlers.HealthCheck(app.db), authHandler, ordenHandler, notificationHandler, alertasHandler)
}

// startScheduler runs the periodic alert scan either as a Temporal schedule or
// as an in-process ticker guarded by a Redis lock. The returned func stops it.
func (app *application) startScheduler(ctx context.Context) func() {
	if app.config.Alerts.Scheduler == config.SchedulerTemporal {
		return app.startTemporalWorker(ctx)
	}

	var locker scanworker.Locker
	var rdb *redis.Client
	if app.config.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     app.config.Redis.Address,
			Password: app.config.Redis.Password,
			DB:       app.config.Redis.DB,
		})
		locker = scanworker.NewRedisLocker(rdb)
	} else {
		app.logger.Warn().Msg("No Redis address configured, alert scans run without a lock")
	}

	w, err := scanworker.NewWorker(app.scanner, locker, scanworker.Config{
		Interval: app.config.Alerts.ScanInterval,
		LockTTL:  app.config.Redis.LockTTL,
	}, app.logger)
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Failed to configure alert worker")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.logger.Info().Dur("interval", app.config.Alerts.ScanInterval).Msg("Starting alert ticker...")
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error().Err(err).Msg("Alert ticker stopped")
		}
	}()

	return func() {
		<-done
		if rdb != nil {
			_ = rdb.Close()
		}
	}
}

func (app *application) startTemporalWorker(ctx context.Context) func() {
	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  app.config.Temporal.HostPort,
		Namespace: app.config.Temporal.Namespace,
		Logger:    temporal.NewZerologAdapter(app.logger),
	})
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}

	taskQueue := app.config.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = temporal.TaskQueueName
	}

	w := worker.New(temporalClient, taskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(workflows.AlertScanWorkflow, workflow.RegisterOptions{Name: temporal.AlertScanWorkflowName})
	w.RegisterActivity(&activities.Activities{Scanner: app.scanner})

	if err := temporal.EnsureSchedule(ctx, temporalClient.ScheduleClient(), temporal.ScheduleConfig{
		Interval:  app.config.Alerts.ScanInterval,
		TaskQueue: taskQueue,
	}, app.logger); err != nil {
		app.logger.Fatal().Err(err).Msg("Unable to register alert scan schedule")
	}

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		app.logger.Info().Str("task_queue", taskQueue).Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			app.logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return func() {
		app.logger.Info().Msg("Stopping Temporal worker...")
		w.Stop()
		temporalClient.Close()
		app.logger.Info().Msg("Temporal worker stopped.")
	}
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler) {
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		app.logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		app.logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		app.logger.Error().Err(err).Msg("Server error occurred")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		app.logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		app.logger.Info().Msg("HTTP server shutdown complete.")
	}
}
