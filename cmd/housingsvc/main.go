package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/housing-portal/internal/infra/config"
	"github.com/mkrupp/housing-portal/internal/infra/logging"
	"github.com/mkrupp/housing-portal/internal/infra/sqlite"
	http_ "github.com/mkrupp/housing-portal/internal/infra/transport/http"
	"github.com/mkrupp/housing-portal/internal/repo/application"
	"github.com/mkrupp/housing-portal/internal/repo/document"
	"github.com/mkrupp/housing-portal/internal/repo/user"
	"github.com/mkrupp/housing-portal/internal/svc/applicationsvc"
	"github.com/mkrupp/housing-portal/internal/svc/authsvc"
	"github.com/mkrupp/housing-portal/internal/svc/webhooksvc"
)

const (
	appName = "housing"
	svcName = "housingsvc"
)

type Config struct {
	config.EnvConfig

	Log         logging.LoggerConfig                        `envPrefix:"LOG_"`
	HTTP        http_.HTTPTransportConfig                   `envPrefix:"HTTP_"`
	DB          sqlite.Config                               `envPrefix:"DB_"`
	Auth        authsvc.AuthConfig                          `envPrefix:"AUTH_"`
	AuthHTTP    authsvc.HTTPTransportConfig                 `envPrefix:"AUTH_HTTP_"`
	Document    document.FileSystemDocumentRepositoryConfig `envPrefix:"DOCUMENT_"`
	Webhook     webhooksvc.WebhookConfig
	Application applicationsvc.ApplicationConfig            `envPrefix:"APPLICATION_"`
	AppHTTP     applicationsvc.HTTPTransportConfig          `envPrefix:"APPLICATION_HTTP_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.housingsvc")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	db, err := sqlite.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	userRepo, err := user.NewSQLiteUserRepository(db)
	if err != nil {
		return fmt.Errorf("new user repository: %w", err)
	}

	appRepo, err := application.NewSQLiteApplicationRepository(db)
	if err != nil {
		return fmt.Errorf("new application repository: %w", err)
	}

	docRepo, err := document.FileSystemDocumentRepositoryFactory(cfg.Document)(ctx)
	if err != nil {
		return fmt.Errorf("new document repository: %w", err)
	}

	authSvc := authsvc.NewAuthService(userRepo, cfg.Auth)
	notifier := webhooksvc.NewHTTPNotifier(cfg.Webhook, nil)
	appSvc := applicationsvc.NewApplicationService(appRepo, docRepo, notifier, cfg.Application)

	authTransport := authsvc.NewHTTPTransport(authSvc, cfg.AuthHTTP)
	appTransport := applicationsvc.NewHTTPTransport(appSvc, authSvc, cfg.AppHTTP)

	mux := http.NewServeMux()
	mux.Handle("/auth/", authTransport)
	mux.Handle("/applications", appTransport)
	mux.Handle("/applications/", appTransport)

	if err := http_.ListenAndServe(ctx, mux, cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
