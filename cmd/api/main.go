package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ariefcatur/go-parts-shop/internal/auth"
	"github.com/ariefcatur/go-parts-shop/internal/config"
	"github.com/ariefcatur/go-parts-shop/internal/logging"
	"github.com/ariefcatur/go-parts-shop/internal/postgres"
	"github.com/ariefcatur/go-parts-shop/internal/users"
)

func main() {
	app := &cli.App{
		Name:           "parts-shop-api",
		Usage:          "parts shop HTTP API",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: func(c *cli.Context) error { return serve(c.Context) },
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: migrateAction,
			},
			{
				Name:  "token",
				Usage: "issue a bearer token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.StringFlag{Name: "role", Value: auth.RoleUser},
				},
				Action: tokenAction,
			},
			{
				Name:  "create-admin",
				Usage: "create an administrator account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
					&cli.StringFlag{Name: "name"},
				},
				Action: createAdminAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("parts-shop-api")
	}
}

func migrateAction(_ *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lg := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		return err
	}
	lg.Info("migrations applied")
	return nil
}

func tokenAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, logging.New(cfg.ServiceName, cfg.LogLevel))
	tok, err := tokens.Issue(auth.Identity{UserID: c.String("user"), Role: c.String("role")})
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write([]byte(tok + "\n"))
	return err
}

func createAdminAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lg := logging.New(cfg.ServiceName, cfg.LogLevel)
	pool, err := postgres.Connect(c.Context, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := &users.Service{Store: &users.Repo{DB: pool}, Tokens: auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, lg)}
	u, err := svc.CreateAdmin(c.Context, c.String("email"), c.String("password"), c.String("name"))
	if err != nil {
		return err
	}
	lg.WithField("user_id", u.ID).Info("admin created")
	return nil
}
