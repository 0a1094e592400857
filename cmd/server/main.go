package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/chatvault/chatvault/auth"
	"github.com/chatvault/chatvault/chat"
	"github.com/chatvault/chatvault/config"
)

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	bunDB    *bun.DB
	logger   *glog.BaseLogger
	repo     auth.RepositoryManager
	tokens   *auth.TokenManager
	auther   auth.Authenticator
	httpAuth *auth.RouteAuthenticator
	srv      router.Server[*fiber.App]
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("chatvault"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithChat(ctx, app); err != nil {
		panic(err)
	}

	StartSweeper(ctx, app)

	app.srv.Serve(app.Config().GetServer().GetAddress())

	WaitExitSignal()
	cancel()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*auth.User)(nil))
	persistence.RegisterModel((*auth.ActionToken)(nil))
	persistence.RegisterModel((*chat.Conversation)(nil))
	persistence.RegisterModel((*chat.ModelInfo)(nil))
	persistence.RegisterModel((*chat.SystemMessage)(nil))

	client, err := persistence.New(pcfg, db, sqlitedialect.New())
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	if err := bootstrapTables(ctx, client.DB()); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = auth.NewRepositoryManager(client.DB())

	return app.repo.Validate()
}

// bootstrapTables creates the schema on first run. sqlite is the only
// supported dialect so CreateTable covers what a migration set would.
func bootstrapTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*auth.User)(nil),
		(*auth.ActionToken)(nil),
		(*chat.Conversation)(nil),
		(*chat.ModelInfo)(nil),
		(*chat.SystemMessage)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	engine := django.New("./views", ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		f := fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		})

		f.Static("/public", "./public")

		return router.DefaultFiberOptions(f)
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Render("index", router.ViewContext{
			"title": app.Config().GetApp().GetName(),
		})
	})

	app.srv = srv

	return nil
}

func WithAuth(_ context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	tokenService := auth.NewTokenService(
		[]byte(acfg.GetSigningKey()),
		acfg.GetTokenExpiration(),
		acfg.GetIssuer(),
		acfg.GetAudience(),
		app.GetLogger("auth:jwt"),
	)

	app.tokens = auth.NewTokenManager(
		app.repo.ActionTokens(),
		auth.WithTokenLogger(app.GetLogger("auth:tokens")),
	)

	authenticator := auth.NewAuthenticator(app.repo.Users(), tokenService).
		WithLogger(app.GetLogger("auth:authn"))
	app.auther = authenticator

	httpAuth, err := auth.NewHTTPAuthenticator(authenticator, acfg)
	if err != nil {
		return err
	}
	httpAuth.Logger = app.GetLogger("auth:http")
	app.httpAuth = httpAuth

	app.srv.Router().Use(httpAuth.Gate())

	notifier := auth.LogNotifier{
		BaseURL: app.Config().GetServer().GetBaseURL(),
		Logger:  app.GetLogger("auth:notify"),
	}

	auth.RegisterAuthRoutes(app.srv.Router().Group("/"),
		auth.WithControllerRepo(app.repo),
		auth.WithControllerTokens(app.tokens),
		auth.WithControllerAuther(httpAuth),
		auth.WithControllerNotifier(notifier),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithControllerDebug(app.Config().GetApp().GetDebug()),
	)

	return nil
}

func WithChat(_ context.Context, app *App) error {
	conversations := chat.NewConversationsRepository(app.bunDB)

	resolver := chat.NewResolver(
		conversations,
		chat.WithResolverLogger(app.GetLogger("chat:resolver")),
	)

	chat.RegisterChatRoutes(app.srv.Router().Group("/"),
		chat.WithChatResolver(resolver),
		chat.WithChatCatalog(chat.NewCatalog(app.bunDB)),
		chat.WithChatLogger(app.GetLogger("chat:ctrl")),
	)

	return nil
}

func StartSweeper(ctx context.Context, app *App) {
	scfg := app.Config().GetSweeper()

	sweeper := auth.NewSweeper(
		app.repo.ActionTokens(),
		auth.WithSweepInterval(scfg.GetInterval(), scfg.GetBackoff()),
		auth.WithSweeperLogger(app.GetLogger("auth:sweeper")),
	)

	go sweeper.Run(ctx)
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
