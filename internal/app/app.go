// Package app assembles the kanban services from configuration. The HTTP
// server and every CLI command build on the same App.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/clikanban/kanban/config"
	"github.com/clikanban/kanban/internal/archive"
	"github.com/clikanban/kanban/internal/db"
	"github.com/clikanban/kanban/internal/docstore"
	"github.com/clikanban/kanban/internal/events"
	"github.com/clikanban/kanban/internal/metrics"
	"github.com/clikanban/kanban/internal/mq"
	"github.com/clikanban/kanban/internal/services"
	"github.com/clikanban/kanban/internal/session"
	"github.com/clikanban/kanban/internal/storage"
	"github.com/clikanban/kanban/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// App holds the wired services and the connections behind them.
type App struct {
	Config config.Config

	Licences *services.LicenceService
	Auth     *services.AuthService
	Users    *services.UserService
	Boards   *services.BoardService
	Tasks    *services.TaskService

	Issuer  *session.Issuer
	Metrics *metrics.Metrics
	Queue   *mq.MQ

	docs    docstore.Store
	redis   *redis.Client
	objects *storage.Storage
}

// Option adjusts how New wires the App.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	store      docstore.Store
	queue      *mq.MQ
	objects    *storage.Storage
}

// WithRegisterer records service metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithStore uses ds instead of the store selected by configuration.
func WithStore(ds docstore.Store) Option {
	return func(o *options) { o.store = ds }
}

// WithQueue publishes events to q instead of the configured broker.
func WithQueue(q *mq.MQ) Option {
	return func(o *options) { o.queue = q }
}

// WithObjectStorage archives boards to s instead of the configured backend.
func WithObjectStorage(s *storage.Storage) Option {
	return func(o *options) { o.objects = s }
}

// New connects every backend named by cfg and wires the services. On error
// everything opened so far is closed again.
func New(ctx context.Context, cfg config.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if o.registerer != nil {
		a.Metrics = metrics.New(o.registerer)
	}

	a.docs = o.store
	if a.docs == nil {
		if a.docs, err = openStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	userRepo := store.NewUserRepository(a.docs)
	licenceRepo := store.NewLicenceRepository(a.docs)
	boardRepo := store.NewBoardRepository(a.docs)
	taskRepo := store.NewTaskRepository(a.docs)
	for _, repo := range []interface {
		EnsureIndexes(context.Context) error
	}{userRepo, licenceRepo, boardRepo, taskRepo} {
		if err = repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
	}

	var revoker session.Revoker
	if cfg.Redis.URL != "" {
		redisOpts, perr := redis.ParseURL(cfg.Redis.URL)
		if perr != nil {
			return nil, fmt.Errorf("parse redis url: %w", perr)
		}
		a.redis = redis.NewClient(redisOpts)
		if err = a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		revoker = session.NewRedisRevoker(a.redis)
	}
	if a.Issuer, err = session.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, revoker); err != nil {
		return nil, err
	}

	a.Queue = o.queue
	if a.Queue == nil {
		if a.Queue, err = mq.Open(ctx, cfg.MQ); err != nil {
			return nil, err
		}
	}
	var publisher events.Publisher = events.Nop{}
	if a.Queue != nil {
		publisher = events.NewBus(a.Queue, cfg.MQ.Topic, a.Metrics)
	}

	a.objects = o.objects
	if a.objects == nil {
		if a.objects, err = storage.Open(ctx, cfg.ObjectStorage); err != nil {
			return nil, err
		}
	}
	boardOpts := []services.BoardOption{
		services.WithBoardEvents(publisher),
		services.WithBoardMetrics(a.Metrics),
	}
	if a.objects != nil {
		boardOpts = append(boardOpts, services.WithArchiver(archive.New(a.objects), cfg.ObjectStorage.ArchiveOnDelete))
	}

	a.Licences = services.NewLicenceService(licenceRepo)
	a.Auth = services.NewAuthService(userRepo, a.Licences, publisher, a.Metrics)
	a.Users = services.NewUserService(userRepo)
	a.Boards = services.NewBoardService(boardRepo, taskRepo, userRepo, boardOpts...)
	a.Tasks = services.NewTaskService(taskRepo, boardRepo, publisher, a.Metrics)

	log.WithFields(log.Fields{
		"store":   cfg.StoreBackend,
		"mq":      cfg.MQ.Backend,
		"storage": cfg.ObjectStorage.Backend,
	}).Debug("services wired")
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		return docstore.NewMemory(), nil
	case "", config.StoreBackendPostgres:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return docstore.NewPostgres(conn), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Close releases every connection the App opened.
func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.objects != nil {
		errs = append(errs, a.objects.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.docs != nil {
		errs = append(errs, a.docs.Close())
	}
	return errors.Join(errs...)
}
