package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/iliyamo/auditorium-booking/internal/config"
	"github.com/iliyamo/auditorium-booking/internal/database"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/repository"
)

func connect() (config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	db, err := database.Open(cfg.DB)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, db, nil
}

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "Manage the auditorium booking schema",
		Commands: []*cli.Command{
			{
				Name:  "apply",
				Usage: "create missing tables",
				Action: func(c *cli.Context) error {
					_, db, err := connect()
					if err != nil {
						return err
					}
					defer db.Close()

					if err := database.InitializeSchema(c.Context, db); err != nil {
						return err
					}
					fmt.Println("schema up to date")
					return nil
				},
			},
			{
				Name:  "seed-admin",
				Usage: "create an ADMIN user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"SEED_ADMIN_PASSWORD"}},
					&cli.StringFlag{Name: "name", Value: "Administrator"},
				},
				Action: func(c *cli.Context) error {
					if len(c.String("password")) < 8 {
						return errors.New("password must be at least 8 characters")
					}
					cfg, db, err := connect()
					if err != nil {
						return err
					}
					defer db.Close()

					if err := database.InitializeSchema(c.Context, db); err != nil {
						return err
					}
					users := repository.NewUserRepo(db)
					email := strings.ToLower(strings.TrimSpace(c.String("email")))
					u, err := users.Create(c.Context, email, c.String("name"), c.String("password"), model.RoleAdmin, cfg.Auth.BcryptCost)
					if errors.Is(err, repository.ErrEmailExists) {
						fmt.Printf("%s already exists\n", email)
						return nil
					}
					if err != nil {
						return err
					}
					fmt.Printf("created admin %s\t%s\n", u.ID, u.Email)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
