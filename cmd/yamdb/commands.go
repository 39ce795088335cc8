package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yamdb/yamdb-api/internal/api"
	"github.com/yamdb/yamdb-api/internal/api/handler"
	"github.com/yamdb/yamdb-api/internal/core/ports"
	"github.com/yamdb/yamdb-api/internal/core/service"
	mongodb "github.com/yamdb/yamdb-api/internal/infrastructure/db/mongo"
	redisdb "github.com/yamdb/yamdb-api/internal/infrastructure/db/redis"
	"github.com/yamdb/yamdb-api/internal/infrastructure/mail"
	"github.com/yamdb/yamdb-api/internal/pkg/config"
	"github.com/yamdb/yamdb-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, log := bootstrap()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, db, err := connectMongo(ctx, cfg)
			if err != nil {
				return err
			}
			defer disconnect(client, log)

			if err := mongodb.EnsureIndexes(ctx, db); err != nil {
				return err
			}

			var rdb *goredis.Client
			var limiter service.AttemptLimiter
			if cfg.Redis.Addr != "" {
				rdb, err = redisdb.Connect(ctx, redisdb.Config{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				if err != nil {
					return err
				}
				defer rdb.Close()

				attempts, err := redisdb.NewAttemptLimiter(rdb, "", cfg.Auth.MaxCodeAttempts, cfg.Auth.CodeAttemptWindow)
				if err != nil {
					return err
				}
				limiter = attempts
			} else {
				log.Warn().Msg("REDIS_ADDR is empty, confirmation attempts are not throttled")
			}

			mailer, closeMailer, err := newMailer(cfg, log)
			if err != nil {
				return err
			}
			defer closeMailer()

			services, err := buildServices(cfg, db, mailer, limiter, log)
			if err != nil {
				return err
			}

			e := api.NewRouter(services, handler.NewHealthDependenciesHandler(db, rdb), log)

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
				if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}

func ensureIndexesCommand() *cli.Command {
	return &cli.Command{
		Name:  "ensure-indexes",
		Usage: "create the MongoDB indexes",
		Action: func(c *cli.Context) error {
			cfg, log := bootstrap()

			client, db, err := connectMongo(c.Context, cfg)
			if err != nil {
				return err
			}
			defer disconnect(client, log)

			if err := mongodb.EnsureIndexes(c.Context, db); err != nil {
				return err
			}
			log.Info().Str("database", cfg.Mongo.Database).Msg("indexes ensured")
			return nil
		},
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "create a privileged administrator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, log := bootstrap()

			client, db, err := connectMongo(c.Context, cfg)
			if err != nil {
				return err
			}
			defer disconnect(client, log)

			if err := mongodb.EnsureIndexes(c.Context, db); err != nil {
				return err
			}

			reviewRepo := mongodb.NewReviewRepository(db)
			users := service.NewUserService(
				mongodb.NewUserRepository(db),
				reviewRepo,
				mongodb.NewCommentRepository(db),
				service.NewReviewService(mongodb.NewWorkRepository(db), reviewRepo, log),
				log,
			)
			if _, err := users.CreateAdmin(c.Context, c.String("username"), c.String("email")); err != nil {
				return fmt.Errorf("create-admin: %w", err)
			}
			return nil
		},
	}
}

func bootstrap() (*config.Config, zerolog.Logger) {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "yamdb-api",
		Env:     cfg.Env,
	})
	return cfg, log
}

func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	return mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
}

func disconnect(client *mongo.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("mongo disconnect")
	}
}

// newMailer builds the configured delivery backend. The returned func
// releases its resources.
func newMailer(cfg *config.Config, log zerolog.Logger) (ports.Mailer, func(), error) {
	noop := func() {}
	switch cfg.Mail.Backend {
	case mail.BackendSMTP:
		smtp, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
		})
		if err != nil {
			return nil, noop, err
		}
		return mail.Instrument(smtp, mail.BackendSMTP, cfg.Mail.Timeout), noop, nil
	case mail.BackendAMQP:
		amqp, err := mail.DialAMQP(cfg.Mail.AMQP.URL, cfg.Mail.AMQP.Queue)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() {
			if err := amqp.Close(); err != nil {
				log.Warn().Err(err).Msg("amqp close")
			}
		}
		return mail.Instrument(amqp, mail.BackendAMQP, cfg.Mail.Timeout), closeFn, nil
	default:
		return mail.Instrument(mail.NewLogMailer(log), mail.BackendLog, cfg.Mail.Timeout), noop, nil
	}
}

func buildServices(
	cfg *config.Config,
	db *mongo.Database,
	mailer ports.Mailer,
	limiter service.AttemptLimiter,
	log zerolog.Logger,
) (api.Services, error) {
	codes, err := service.NewCodeIssuer(cfg.SecretKey, cfg.Auth.ConfirmationCodeTTL)
	if err != nil {
		return api.Services{}, err
	}
	tokens, err := service.NewTokenIssuer(cfg.JWTSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return api.Services{}, err
	}

	users := mongodb.NewUserRepository(db)
	categories := mongodb.NewCategoryRepository(db)
	genres := mongodb.NewGenreRepository(db)
	works := mongodb.NewWorkRepository(db)
	reviewRepo := mongodb.NewReviewRepository(db)
	commentRepo := mongodb.NewCommentRepository(db)

	reviews := service.NewReviewService(works, reviewRepo, log)

	return api.Services{
		Auth:     service.NewAuthService(users, codes, tokens, mailer, limiter, cfg.Mail.From, log),
		Users:    service.NewUserService(users, reviewRepo, commentRepo, reviews, log),
		Catalog:  service.NewCatalogService(categories, genres, works, log),
		Reviews:  reviews,
		Comments: service.NewCommentService(reviews, commentRepo, log),
	}, nil
}
