package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"annotate/internal/datastore"
	"annotate/internal/interfaces"
	"annotate/internal/models"
	"annotate/internal/services"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "export",
		Commands: []*cli.Command{
			commandExport(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandExport() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write scavenger hunt submissions of a workspace as xlsx files",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "workspace", Required: true},
			&cli.Int64Flag{Name: "assignment", Usage: "export a single submission"},
			&cli.StringFlag{Name: "out", Value: "."},
		},
		Action: func(c *cli.Context) error {
			vs, err := env.EnvsRequired(
				"DB_DSN",
			)
			if err != nil {
				return err
			}

			sqldb := sql.OpenDB(pgdriver.NewConnector(
				pgdriver.WithDSN(vs["DB_DSN"]),
				pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
			))
			db := bun.NewDB(sqldb, pgdialect.New())
			defer db.Close()

			injector := do.New()
			do.ProvideValue[interfaces.Repository](injector, datastore.NewStore(db))
			do.Provide(injector, services.NewServiceExport)
			service := do.MustInvoke[*services.ServiceExport](injector)

			// exports run with admin rights over the requested workspace
			actor := &models.User{Name: "export", Role: models.RoleAdmin, WorkspaceID: c.Int64("workspace")}

			ids := []int64{}
			if id := c.Int64("assignment"); id > 0 {
				ids = append(ids, id)
			} else {
				submissions, err := service.ListSubmissions(c.Context, actor)
				if err != nil {
					return err
				}
				for _, submission := range submissions {
					ids = append(ids, submission.AssignmentID)
				}
			}

			if err := os.MkdirAll(c.String("out"), 0o755); err != nil {
				return err
			}

			for _, id := range ids {
				f, filename, err := service.ExportSubmission(c.Context, actor, id)
				if err != nil {
					fmt.Printf("%d: %v\n", id, err)
					continue
				}

				path := filepath.Join(c.String("out"), filename)
				err = f.SaveAs(path)
				f.Close() //nolint:errcheck
				if err != nil {
					return err
				}
				fmt.Println(path)
			}

			fmt.Printf("DONE, %d submissions\n", len(ids))
			return nil
		},
	}
}
