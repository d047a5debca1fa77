package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"annotate/internal/api/handler"
	"annotate/internal/datastore"
	"annotate/internal/interfaces"
	"annotate/internal/pkg/caching"
	"annotate/internal/pkg/limiter"
	"annotate/internal/pkg/locking"
	"annotate/internal/pkg/objectstore"
	"annotate/internal/services"

	"github.com/getsentry/sentry-go"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
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
	vs, err := env.EnvsRequired(
		"DB_DSN",
		"CLERK_JWT_KEY",
		"GCS_BUCKET",
	)
	if err != nil {
		log.Fatal(err)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: os.Getenv("SENTRY_ENVIRONMENT"),
		})
		if err != nil {
			log.Fatal(err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	container := NewContainer(vs)

	app := &cli.App{
		Name: "api",
		Commands: []*cli.Command{
			commandServer(container),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandServer(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "start the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "0.0.0.0:8080",
				Usage: "serve address",
			},
		},
		Action: func(c *cli.Context) error {
			vs := do.MustInvokeNamed[map[string]string](container, "envs")
			router, err := handler.New(&handler.Config{
				Container: container,
				Mode:      vs["API_MODE"],
				Origins:   strings.Split(vs["API_ORIGINS"], ","),
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:    c.String("addr"),
				Handler: router,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				log.Printf("ListenAndServe: %s (%s)\n", c.String("addr"), vs["API_MODE"])
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})

			errWg.Go(func() error {
				<-errCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			err = errWg.Wait()
			if shutdownErr := container.Shutdown(); shutdownErr != nil {
				log.Println(shutdownErr)
			}
			return err
		},
	}
}

// redisFromEnv returns nil when neither the cluster nor the single node url is set.
func redisFromEnv(clusterKey, urlKey string) (redis.UniversalClient, error) {
	if clusterURL := os.Getenv(clusterKey); clusterURL != "" {
		clusterOpts, err := redis.ParseClusterURL(clusterURL)
		if err != nil {
			return nil, err
		}
		return redis.NewClusterClient(clusterOpts), nil
	}

	url := os.Getenv(urlKey)
	if url == "" {
		return nil, nil
	}
	return db.InitRedis(&db.RedisConfig{
		URL: url,
	})
}

func NewContainer(vs map[string]string) *do.Injector {
	injector := do.New()
	vs["API_MODE"] = os.Getenv("API_MODE")
	vs["API_ORIGINS"] = os.Getenv("API_ORIGINS")
	vs["CLERK_AUTHORIZED_PARTIES"] = os.Getenv("CLERK_AUTHORIZED_PARTIES")
	vs["GCS_CREDENTIALS_FILE"] = os.Getenv("GCS_CREDENTIALS_FILE")

	if vs["API_MODE"] == "" {
		vs["API_MODE"] = "production"
	}
	if vs["API_ORIGINS"] == "" {
		vs["API_ORIGINS"] = "*"
	}

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(vs["DB_DSN"]),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
		))

		db := bun.NewDB(sqldb, pgdialect.New())
		return db, nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Repository, error) {
		db, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}
		return datastore.NewStore(db), nil
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := redisFromEnv("CLUSTER_REDIS_CACHE", "REDIS_CACHE")
		if err != nil {
			return nil, err
		}
		if dbRedis == nil {
			log.Println("REDIS_CACHE is not set, caching disabled")
			return caching.Noop{}, nil
		}

		return caching.NewCacheRedis(dbRedis, true)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := redisFromEnv("CLUSTER_REDIS_LIMITER", "REDIS_LIMITER")
		if err != nil {
			return nil, err
		}
		if dbRedis == nil {
			log.Println("REDIS_LIMITER is not set, using in-process limiter")
			return limiter.NewLocal(), nil
		}

		l, err := limiter.NewRedis(dbRedis)
		if err != nil {
			return nil, err
		}
		return l, nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Locker, error) {
		dbRedis, err := redisFromEnv("CLUSTER_REDIS_MUTEX", "REDIS_MUTEX")
		if err != nil {
			return nil, err
		}
		if dbRedis == nil {
			log.Println("REDIS_MUTEX is not set, using in-process locks")
			return locking.NewLocal(), nil
		}

		pool := goredis.NewPool(dbRedis)
		rs := redsync.New(pool)
		return locking.NewRedsync(rs), nil
	})

	do.Provide(injector, func(i *do.Injector) (*objectstore.GCS, error) {
		return objectstore.NewGCS(context.Background(), vs["GCS_BUCKET"], vs["GCS_CREDENTIALS_FILE"])
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.ObjectStore, error) {
		store, err := do.Invoke[*objectstore.GCS](i)
		if err != nil {
			return nil, err
		}
		return store, nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.Config, error) {
		return services.ConfigFromEnv()
	})

	do.Provide(injector, func(i *do.Injector) (*services.Authentication, error) {
		var parties []string
		for _, party := range strings.Split(vs["CLERK_AUTHORIZED_PARTIES"], ",") {
			if party = strings.TrimSpace(party); party != "" {
				parties = append(parties, party)
			}
		}
		return services.NewAuthentication(vs["CLERK_JWT_KEY"], parties)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceUser, error) {
		return services.NewServiceUser(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceTranscript, error) {
		return services.NewServiceTranscript(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceAssignment, error) {
		return services.NewServiceAssignment(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceAnnotation, error) {
		return services.NewServiceAnnotation(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceScavenger, error) {
		return services.NewServiceScavenger(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceExport, error) {
		return services.NewServiceExport(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceVideo, error) {
		return services.NewServiceVideo(injector)
	})

	return injector
}
