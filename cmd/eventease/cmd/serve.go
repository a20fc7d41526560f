package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventease/config"
	_ "eventease/docs"
	"eventease/internal/adapters/auth"
	"eventease/internal/adapters/email"
	"eventease/internal/adapters/ratelimit"
	httpdelivery "eventease/internal/delivery/http"
	"eventease/internal/delivery/http/controllers"
	"eventease/internal/delivery/http/middleware"
	"eventease/internal/repository/postgres"
	"eventease/internal/services"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	servePort    string
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server and serve until SIGINT or SIGTERM.

Configuration comes from the environment (and .env outside production).
Pending migrations are applied first when AUTO_MIGRATE=true or --migrate is set.

Examples:
  eventease serve
  eventease serve --port 9090 --migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default: PORT or 8080)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
}

func runServer(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	logger := config.NewLogger()
	logger.Info("starting eventease", "env", cfg.Environment)

	if cfg.AutoMigrate || serveMigrate {
		if err := postgres.MigrateUp(cfg.DBUrl); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	var limiter middleware.Limiter
	if cfg.RateLimitPerMinute > 0 {
		bucket := ratelimit.NewTokenBucket(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
		defer bucket.Close()
		limiter = bucket
	}

	handler, err := newHandler(cfg, db, limiter, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// mailerConfig maps the environment email settings onto the mail adapter.
func mailerConfig(cfg *config.Config) email.MailerConfig {
	return email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			EndpointURL:        cfg.Email.AWSEndpointURL,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
		ResendAPIKey: cfg.Email.ResendAPIKey,
	}
}

// newHandler wires repositories, services and controllers into the router.
func newHandler(cfg *config.Config, db *sql.DB, limiter middleware.Limiter, logger *slog.Logger) (http.Handler, error) {
	mailer, err := email.NewMailer(mailerConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}

	userRepo := postgres.NewUserRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	registrationRepo := postgres.NewRegistrationRepository(db)
	feedbackRepo := postgres.NewFeedbackRepository(db)

	tokens := auth.NewJWTManager(cfg.JWTSecret)
	notifier := services.NewNotificationService(mailer, email.NewTemplateRenderer(), logger)

	userService := services.NewUserService(userRepo, auth.NewBcryptHasher(bcrypt.DefaultCost), tokens, cfg.JWTExpiry, cfg.ContextTimeout)
	eventService := services.NewEventService(eventRepo, cfg.ContextTimeout)
	registrationService := services.NewRegistrationService(registrationRepo, eventRepo, userRepo, notifier, logger, cfg.ContextTimeout, cfg.NotifyTimeout)
	feedbackService := services.NewFeedbackService(feedbackRepo, registrationRepo, eventRepo, cfg.ContextTimeout)

	return httpdelivery.NewRouter(httpdelivery.RouterDeps{
		Logger:         logger,
		Resolver:       services.NewIdentityResolver(tokens, userRepo),
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Health:         db.PingContext,
		Auth:           controllers.NewAuthController(logger, userService),
		Users:          controllers.NewUserController(logger, userService),
		Events:         controllers.NewEventController(logger, eventService),
		Registrations:  controllers.NewRegistrationController(logger, registrationService),
		Feedback:       controllers.NewFeedbackController(logger, feedbackService),
	}), nil
}
