package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/subscribeto/subscribeto"
)

type App struct {
	config *subscribeto.Config
	bunDB  *bun.DB
	repo   subscribeto.RepositoryManager
	cipher *subscribeto.Cipher
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	_ = godotenv.Load()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("subscribeto"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := subscribeto.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(cfg))
		fmt.Println("============")
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithCipher(app); err != nil {
		log.Fatal(err)
	}

	if err := WithHTTPServer(app); err != nil {
		log.Fatal(err)
	}

	app.srv.Serve(cfg.HTTPAddr)

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.config.DSN)
	if err != nil {
		return err
	}

	app.bunDB = bun.NewDB(db, sqlitedialect.New())

	if err := subscribeto.RunMigrations(ctx, app.bunDB, app.GetLogger("migrations")); err != nil {
		return err
	}

	app.repo = subscribeto.NewRepositoryManager(app.bunDB)
	return app.repo.Validate()
}

func WithCipher(app *App) error {
	cipher, err := subscribeto.NewCipher(app.config.CipherSecret)
	if err != nil {
		return err
	}
	app.cipher = cipher
	return nil
}

func WithHTTPServer(app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	codec := subscribeto.NewChallengeCodec(app.cipher)
	messenger := subscribeto.NewLogMessenger(app.GetLogger("messenger"))
	validator := subscribeto.NewSessionValidator(app.repo.Admins())

	srv.Router().Use(subscribeto.SessionLoader(app.repo, app.GetLogger("session")))

	authController := subscribeto.NewAuthController(
		subscribeto.NewRequestSignUpHandler(app.repo, codec, messenger).WithLogger(app.GetLogger("sign-up")),
		subscribeto.NewFinalizeSignUpHandler(app.repo, codec).WithLogger(app.GetLogger("sign-up")),
		subscribeto.NewSignInHandler(app.repo, codec, messenger).WithLogger(app.GetLogger("sign-in")),
		subscribeto.NewSignInTOTPHandler(app.repo, codec).WithLogger(app.GetLogger("sign-in")),
		subscribeto.NewSignInSMSHandler(app.repo, codec).WithLogger(app.GetLogger("sign-in")),
	).WithLogger(app.GetLogger("auth"))
	authController.RegisterRoutes(srv.Router().Group("/auth"))

	accountController := subscribeto.NewAccountController(
		app.repo,
		subscribeto.NewSecurityHandler(app.repo, codec, messenger).WithLogger(app.GetLogger("security")),
		subscribeto.NewTwoFactorHandler(app.repo, codec, messenger).WithLogger(app.GetLogger("two-factor")),
		validator,
	).WithLogger(app.GetLogger("account"))
	accountController.RegisterRoutes(srv.Router().Group("/account"))

	sessionHandler := subscribeto.NewSessionHandler(app.repo).WithLogger(app.GetLogger("session"))

	sessionController := subscribeto.NewSessionController(sessionHandler, validator).
		WithLogger(app.GetLogger("session"))
	sessionController.RegisterRoutes(srv.Router().Group("/"))

	commerceController := subscribeto.NewCommerceController(
		app.repo,
		subscribeto.NewCommerceHandler(app.repo).WithLogger(app.GetLogger("commerce")),
		validator,
	).WithLogger(app.GetLogger("commerce"))
	commerceController.RegisterRoutes(srv.Router().Group("/"))

	adminController := subscribeto.NewAdminController(app.repo, sessionHandler, validator).
		WithLogger(app.GetLogger("admin"))
	adminController.RegisterRoutes(srv.Router().Group("/admin"))

	app.srv = srv
	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
