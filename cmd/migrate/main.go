package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

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
	"annotate/internal/pkg/caching"
	"annotate/internal/pkg/limiter"
	"annotate/internal/pkg/locking"
	"annotate/internal/pkg/objectstore"
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
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandAddWorkspace(),
			commandAddUser(),
			commandImportHunt(),
			commandImportLLMAnnotations(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create tables and indexes",
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := datastore.CreateTables(c.Context, db); err != nil {
				return err
			}
			log.Println("tables created")
			return nil
		},
	}
}

func commandAddWorkspace() *cli.Command {
	return &cli.Command{
		Name: "add-workspace",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
		},
		Action: func(c *cli.Context) error {
			container, err := newContainer()
			if err != nil {
				return err
			}
			defer container.Shutdown() //nolint:errcheck

			service := do.MustInvoke[*services.ServiceUser](container)
			workspace, err := service.AddWorkspace(c.Context, c.String("name"))
			if err != nil {
				return err
			}
			fmt.Printf("workspace %d: %s\n", workspace.ID, workspace.Name)
			return nil
		},
	}
}

func commandAddUser() *cli.Command {
	return &cli.Command{
		Name: "add-user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "clerk-id", Required: true},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "role", Value: string(models.RoleAnnotator), Usage: "admin or annotator"},
			&cli.Int64Flag{Name: "workspace", Required: true},
		},
		Action: func(c *cli.Context) error {
			container, err := newContainer()
			if err != nil {
				return err
			}
			defer container.Shutdown() //nolint:errcheck

			user := &models.User{
				ClerkID:     c.String("clerk-id"),
				Name:        c.String("name"),
				Email:       c.String("email"),
				Role:        models.Role(c.String("role")),
				WorkspaceID: c.Int64("workspace"),
			}
			service := do.MustInvoke[*services.ServiceUser](container)
			if err := service.AddUser(c.Context, user); err != nil {
				return err
			}
			fmt.Printf("user %d: %s (%s)\n", user.ID, user.Name, user.Role)
			return nil
		},
	}
}

func commandImportHunt() *cli.Command {
	return &cli.Command{
		Name:  "import-hunt",
		Usage: "create the scavenger hunt of a transcript from a question list",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "transcript", Required: true},
			&cli.StringFlag{
				Name:  "input",
				Value: "./questions.csv",
				Usage: "csv with a question column, or a text file with one question per line",
			},
		},
		Action: func(c *cli.Context) error {
			f, err := os.Open(c.String("input"))
			if err != nil {
				return err
			}
			defer f.Close()

			questions, err := readQuestions(c.String("input"), f)
			if err != nil {
				return err
			}

			container, err := newContainer()
			if err != nil {
				return err
			}
			defer container.Shutdown() //nolint:errcheck

			service := do.MustInvoke[*services.ServiceScavenger](container)
			hunt, err := service.ImportHunt(c.Context, c.Int64("transcript"), questions)
			if err != nil {
				return err
			}
			fmt.Printf("hunt %d: %d questions\n", hunt.ID, len(questions))
			return nil
		},
	}
}

func commandImportLLMAnnotations() *cli.Command {
	return &cli.Command{
		Name:  "import-llm-annotations",
		Usage: "attach model generated annotations to the lines of a transcript",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "transcript", Required: true},
			&cli.StringFlag{Name: "input", Value: "./annotations.csv", Usage: "csv or xlsx with line, category and content columns"},
		},
		Action: func(c *cli.Context) error {
			f, err := os.Open(c.String("input"))
			if err != nil {
				return err
			}
			defer f.Close()

			container, err := newContainer()
			if err != nil {
				return err
			}
			defer container.Shutdown() //nolint:errcheck

			service := do.MustInvoke[*services.ServiceTranscript](container)
			n, err := service.ImportLLMAnnotations(c.Context, c.Int64("transcript"), filepath.Base(c.String("input")), f)
			if err != nil {
				return err
			}
			fmt.Printf("%d annotations imported\n", n)
			return nil
		},
	}
}

// readQuestions accepts a csv with a "question" header or plain lines of text.
func readQuestions(filename string, r io.Reader) ([]string, error) {
	questions := []string{}

	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, errors.New("empty input")
		}

		column := -1
		for i, cell := range records[0] {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")), "question") {
				column = i
				break
			}
		}
		if column < 0 {
			return nil, errors.New("missing question column")
		}

		for _, record := range records[1:] {
			if column < len(record) {
				if q := strings.TrimSpace(record[column]); q != "" {
					questions = append(questions, q)
				}
			}
		}
		return questions, nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" {
			questions = append(questions, q)
		}
	}
	return questions, scanner.Err()
}

func newContainer() (*do.Injector, error) {
	if _, err := env.EnvsRequired("DB_DSN"); err != nil {
		return nil, err
	}

	db, err := getDb()
	if err != nil {
		return nil, err
	}

	injector := do.New()
	do.ProvideValue(injector, db)
	do.ProvideValue[interfaces.Repository](injector, datastore.NewStore(db))
	do.ProvideValue[caching.Cache](injector, caching.Noop{})
	do.ProvideValue[interfaces.Limiter](injector, limiter.Unlimited{})
	do.ProvideValue[interfaces.Locker](injector, locking.NewLocal())
	do.ProvideValue(injector, services.DefaultConfig())

	do.Provide(injector, func(i *do.Injector) (interfaces.ObjectStore, error) {
		bucket := os.Getenv("GCS_BUCKET")
		if bucket == "" {
			// imports never touch video objects
			return objectstore.NewMemory(), nil
		}
		store, err := objectstore.NewGCS(context.Background(), bucket, os.Getenv("GCS_CREDENTIALS_FILE"))
		if err != nil {
			return nil, err
		}
		return store, nil
	})

	do.Provide(injector, services.NewServiceUser)
	do.Provide(injector, services.NewServiceTranscript)
	do.Provide(injector, services.NewServiceScavenger)
	return injector, nil
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
