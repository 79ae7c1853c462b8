package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/formatrack/internal/app/controllers"
	"github.com/yigit/formatrack/internal/app/jobs"
	appMigrations "github.com/yigit/formatrack/internal/app/migrations"
	appRepos "github.com/yigit/formatrack/internal/app/repositories"
	appRoutes "github.com/yigit/formatrack/internal/app/routes"
	appServices "github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/config"
	"github.com/yigit/formatrack/internal/db"
	appMiddleware "github.com/yigit/formatrack/internal/middleware"
	pkgAuth "github.com/yigit/formatrack/internal/pkg/auth"
	"github.com/yigit/formatrack/internal/pkg/email"
	"github.com/yigit/formatrack/internal/pkg/filestorage"
	"github.com/yigit/formatrack/internal/pkg/logger"
	"github.com/yigit/formatrack/internal/pkg/metrics"
	"github.com/yigit/formatrack/internal/pkg/realtime"
	"github.com/yigit/formatrack/internal/pkg/retry"
	"github.com/yigit/formatrack/internal/pkg/video"
	"github.com/yigit/formatrack/internal/seed"
)

const staleClaimAfter = 10 * time.Minute

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos      *appRepos.Repositories
	JWTService *pkgAuth.JWTService
	Logger     zerolog.Logger

	Broker      realtime.Broker
	Hub         *realtime.Hub
	FileStorage *filestorage.LocalStorage
	Notifier    *email.Notifier
	Video       video.Provider
	Delivery    *appServices.Delivery

	EstablishmentService appServices.EstablishmentService
	UserService          appServices.UserService
	FormationService     appServices.FormationService
	ScheduleService      appServices.ScheduleService
	MessagingService     appServices.MessagingService
	AssignmentService    appServices.AssignmentService
	MeetingService       appServices.MeetingService
	SignalingService     appServices.SignalingService
	VirtualClassService  appServices.VirtualClassService
	Dispatcher           *appServices.Dispatcher

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	RateLimiter    *appMiddleware.RateLimiter // nil when disabled
	Scheduler      *jobs.Scheduler            // nil when disabled

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
// CONFIG_PATH overrides the default configs/config.yaml.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join("configs", "config.yaml")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	format := strings.ToLower(cfg.Logging.Format)
	lgr := logger.Configure(logger.Config{
		Level:   logger.ParseLevel(cfg.Logging.Level),
		Pretty:  format == "text" || format == "pretty",
		Service: "formatrack",
	})

	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, applies the embedded
// migrations and seeds development databases.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if cfg.Database.RunMigrations {
		lgr.Info().Msg("Running database migrations...")
		migrator := appMigrations.NewMigrator(database.Pool, appMigrations.Files(), lgr)
		if err := migrator.Up(ctx); err != nil {
			lgr.Error().Err(err).Msg("Database migration error")
			database.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")
	}

	if !cfg.IsProduction() {
		if err := seed.CreateDefaultData(ctx, appRepos.NewRepositories(database.Pool), lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return database.Pool, nil
}

// RetryConfig maps the retry section onto the retry helper
func RetryConfig(cfg *config.Config) retry.Config {
	rc := retry.DefaultConfig()
	if cfg.Retry.MaxAttempts > 0 {
		rc.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelay > 0 {
		rc.BaseDelay = cfg.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay > 0 {
		rc.MaxDelay = cfg.Retry.MaxDelay
	}
	if cfg.Retry.Jitter > 0 {
		rc.Jitter = cfg.Retry.Jitter
	}
	if len(cfg.Retry.Patterns) > 0 {
		rc = rc.WithExtraPatterns(cfg.Retry.Patterns...)
	}
	return rc
}

// NewBroker returns the redis broker when enabled, the in-process one otherwise
func NewBroker(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (realtime.Broker, error) {
	if !cfg.Redis.Enabled {
		return realtime.NewLocalBroker(lgr), nil
	}
	broker, err := realtime.NewRedisBroker(ctx, realtime.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return broker, nil
}

// NewNotifier builds the email sender configured in cfg
func NewNotifier(cfg *config.Config, lgr zerolog.Logger) (*email.Notifier, error) {
	sender, err := email.NewSender(email.Config{
		Provider:       cfg.Email.Provider,
		FromName:       cfg.Email.FromName,
		FromEmail:      cfg.Email.FromEmail,
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		SMTP: email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			UseTLS:   cfg.Email.SMTPUseTLS,
		},
	}, RetryConfig(cfg), lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email sender: %w", err)
	}
	return email.NewNotifier(sender, cfg.Email.AppBaseURL), nil
}

// NewDispatcher builds the scheduled message dispatcher
func NewDispatcher(cfg *config.Config, repos *appRepos.Repositories, publisher realtime.Publisher, notifier *email.Notifier, lgr zerolog.Logger) *appServices.Dispatcher {
	resolver := appServices.NewRecipientResolver(repos.UserRepository, repos.FormationRepository)
	delivery := appServices.NewDelivery(publisher, notifier, lgr)
	return appServices.NewDispatcher(
		repos.MessageRepository,
		repos.UserRepository,
		resolver,
		delivery,
		appServices.DispatcherConfig{BatchSize: cfg.Scheduler.BatchSize, StaleAfter: staleClaimAfter},
		lgr,
	)
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	var err error

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.JWT.AccessTokenExpiration,
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.Broker, err = NewBroker(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize realtime broker")
		return nil, err
	}
	deps.Hub = realtime.NewHub(lgr.With().Str("component", "hub").Logger())

	deps.FileStorage, err = filestorage.NewLocalStorage(
		cfg.Storage.Path,
		strings.TrimRight(cfg.Server.PublicBaseURL, "/")+"/uploads",
		cfg.MaxUploadBytes(),
		filestorage.DefaultAllowedExtensions,
		lgr,
	)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.Notifier, err = NewNotifier(cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize notifier")
		return nil, err
	}

	deps.Video, err = video.NewProvider(video.Config{
		Provider:      cfg.Video.Provider,
		APIBaseURL:    cfg.Video.APIBaseURL,
		APIKey:        cfg.Video.APIKey,
		RoomExpiry:    cfg.Video.RoomExpiry,
		PublicBaseURL: cfg.Server.PublicBaseURL,
	}, RetryConfig(cfg), lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize video provider")
		return nil, fmt.Errorf("failed to initialize video provider: %w", err)
	}

	repos := deps.Repos
	resolver := appServices.NewRecipientResolver(repos.UserRepository, repos.FormationRepository)
	deps.Delivery = appServices.NewDelivery(deps.Broker, deps.Notifier, lgr)

	deps.EstablishmentService = appServices.NewEstablishmentService(repos.EstablishmentRepository, lgr)
	deps.UserService = appServices.NewUserService(repos.UserRepository, lgr)
	deps.FormationService = appServices.NewFormationService(repos.FormationRepository, repos.UserRepository, lgr)
	deps.ScheduleService = appServices.NewScheduleService(repos.ScheduleRepository, repos.FormationRepository, repos.UserRepository, repos.MeetingRepository, lgr)
	deps.MeetingService = appServices.NewMeetingService(repos.MeetingRepository, repos.FormationRepository, lgr)
	deps.MessagingService = appServices.NewMessagingService(repos.MessageRepository, repos.UserRepository, resolver, deps.Delivery, lgr)
	deps.AssignmentService = appServices.NewAssignmentService(
		repos.AssignmentRepository,
		repos.FormationRepository,
		repos.UserRepository,
		deps.FileStorage,
		deps.Broker,
		deps.Notifier,
		lgr,
	)
	deps.SignalingService = appServices.NewSignalingService(repos.SignalingRepository, deps.Broker, appServices.SignalingConfig{
		PeerTimeout:     cfg.Scheduler.PeerTimeout,
		SignalRetention: cfg.Scheduler.SignalRetention,
	}, lgr)
	deps.VirtualClassService = appServices.NewVirtualClassService(
		repos.VirtualClassRepository,
		repos.FormationRepository,
		deps.Video,
		deps.SignalingService,
		deps.Notifier,
		lgr,
	)
	deps.Dispatcher = NewDispatcher(cfg, repos, deps.Broker, deps.Notifier, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	if cfg.RateLimit.Enabled {
		deps.RateLimiter = appMiddleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, lgr)
	}

	deps.Controllers = appRoutes.Controllers{
		Establishment: appControllers.NewEstablishmentController(deps.EstablishmentService),
		User:          appControllers.NewUserController(deps.UserService),
		Formation:     appControllers.NewFormationController(deps.FormationService),
		Schedule:      appControllers.NewScheduleController(deps.ScheduleService),
		Message:       appControllers.NewMessageController(deps.MessagingService),
		Assignment:    appControllers.NewAssignmentController(deps.AssignmentService),
		Meeting:       appControllers.NewMeetingController(deps.MeetingService),
		VirtualClass:  appControllers.NewVirtualClassController(deps.VirtualClassService, deps.SignalingService),
		Realtime:      realtime.NewHandler(deps.Hub, lgr),
	}

	if cfg.Scheduler.Enabled {
		deps.Scheduler = jobs.NewScheduler(lgr)
		if err := jobs.Register(deps.Scheduler, jobs.Specs{
			Dispatch: cfg.Scheduler.DispatchSpec,
			Sweep:    cfg.Scheduler.SweepSpec,
		}, deps.Dispatcher, deps.SignalingService); err != nil {
			lgr.Error().Err(err).Msg("Failed to register scheduled jobs")
			return nil, fmt.Errorf("failed to register scheduled jobs: %w", err)
		}
	}

	return deps, nil
}

// Start launches the hub, the broker subscription, the scheduler and the
// rate limiter cleanup. They run until Stop.
func (d *Dependencies) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Hub.Run(ctx)
	}()
	if err := d.Broker.Subscribe(ctx, realtime.HubDeliverer(d.Hub, d.Logger)); err != nil {
		d.cancel()
		d.wg.Wait()
		return fmt.Errorf("failed to subscribe to realtime events: %w", err)
	}

	if d.RateLimiter != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					d.RateLimiter.Cleanup(now)
				}
			}
		}()
	}

	if d.Scheduler != nil {
		d.Scheduler.Start()
	}
	return nil
}

// Stop waits for running jobs, then stops the background goroutines
func (d *Dependencies) Stop(ctx context.Context) error {
	var stopErr error
	if d.Scheduler != nil {
		if err := d.Scheduler.Stop(ctx); err != nil {
			d.Logger.Error().Err(err).Msg("Scheduler did not stop cleanly")
			stopErr = err
		}
	}
	if d.Delivery != nil {
		done := make(chan struct{})
		go func() {
			d.Delivery.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			d.Logger.Warn().Msg("Pending message notifications abandoned at shutdown")
			stopErr = ctx.Err()
		}
	}
	if d.cancel != nil {
		d.cancel()
	}
	if err := d.Broker.Close(); err != nil {
		d.Logger.Error().Err(err).Msg("Failed to close realtime broker")
		stopErr = err
	}
	d.wg.Wait()
	return stopErr
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))
	if cfg.Metrics.Enabled {
		router.Use(appMiddleware.Metrics())
		router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	appRoutes.SetupSwagger(router)

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbPool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.Static("/uploads", cfg.Storage.Path)

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.RateLimiter)

	return router, nil
}
