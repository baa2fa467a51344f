package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	appsvc "researchhub/internal/app"
	"researchhub/internal/ai"
	"researchhub/internal/cache"
	"researchhub/internal/config"
	"researchhub/internal/embedding"
	"researchhub/internal/pkg/pdfextract"
	"researchhub/internal/platform/logger"
	"researchhub/internal/platform/objectstore"
	postgresClient "researchhub/internal/platform/postgres"
	rabbitmqClient "researchhub/internal/platform/rabbitmq"
	redisClient "researchhub/internal/platform/redis"
	"researchhub/internal/repository"
	"researchhub/internal/repository/memory"
	"researchhub/internal/search/arxiv"
)

// DependencyCheck is one readiness probe for an external dependency.
type DependencyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type App struct {
	Config *config.Config
	Logger *logrus.Logger

	Postgres  *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Events    *rabbitmqClient.EventPublisher
	Archive   *objectstore.MinIOStore
	Extractor *pdfextract.Extractor
	Embedder  embedding.Generator

	Auth       *appsvc.AuthService
	Workspaces *appsvc.WorkspaceService
	Research   *appsvc.ResearchService
	Search     *appsvc.SearchService

	StartedAt time.Time
}

type stores struct {
	users      appsvc.UserStore
	workspaces appsvc.WorkspaceStore
	papers     appsvc.PaperStore
	messages   appsvc.MessageStore
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return Build(ctx, cfg, logger.New(cfg.App.LogLevel, cfg.App.LogFormat))
}

// Build connects the configured backends and wires the services. Redis,
// RabbitMQ and MinIO are skipped when their address is empty.
func Build(ctx context.Context, cfg *config.Config, log *logrus.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	var history appsvc.HistoryCache
	if cfg.Redis.Addr != "" {
		if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
			return nil, err
		}
		history = cache.NewHistoryCache(a.Redis, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second)
	}

	var events appsvc.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		if a.MQConn, err = rabbitmqClient.New(cfg.RabbitMQ.URL); err != nil {
			return nil, err
		}
		if a.Events, err = rabbitmqClient.NewEventPublisher(a.MQConn, cfg.RabbitMQ.Exchange); err != nil {
			return nil, err
		}
		events = a.Events
	}

	var archive appsvc.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		if a.Archive, err = objectstore.New(ctx, cfg.MinIO); err != nil {
			return nil, err
		}
		archive = a.Archive
	}

	if a.Extractor, err = pdfextract.New(cfg.PDF.ErrorLogPath, log); err != nil {
		return nil, err
	}
	if a.Embedder, err = embedding.New(cfg.Embedding, log); err != nil {
		return nil, fmt.Errorf("init embedding generator failed: %w", err)
	}

	responder := ai.NewChatResponder(
		ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		ai.ChatConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		},
	)

	arxivOpts := []arxiv.ClientOption{
		arxiv.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Arxiv.TimeoutSeconds) * time.Second}),
		arxiv.WithMinInterval(time.Duration(cfg.Arxiv.MinIntervalMS) * time.Millisecond),
	}
	if cfg.Arxiv.BaseURL != "" {
		arxivOpts = append(arxivOpts, arxiv.WithBaseURL(cfg.Arxiv.BaseURL))
	}

	conversation := appsvc.NewConversation(st.messages, history, log)
	a.Auth = appsvc.NewAuthService(st.users, cfg.Auth.JWTSecret, cfg.JWTExpiration())
	a.Workspaces = appsvc.NewWorkspaceService(st.workspaces, conversation, events, log)
	a.Search = appsvc.NewSearchService(arxiv.NewClient(arxivOpts...), log)
	a.Research = appsvc.NewResearchService(appsvc.ResearchDeps{
		Papers:       st.papers,
		Workspaces:   a.Workspaces,
		Conversation: conversation,
		Extractor:    a.Extractor,
		Embedder:     a.Embedder,
		Responder:    responder,
		Archive:      archive,
		Events:       events,
		Logger:       log,
	}, appsvc.ResearchConfig{
		AbstractChars:     cfg.PDF.AbstractChars,
		EmbeddingMaxChars: cfg.Embedding.MaxInputChars,
		ContextPapers:     cfg.LLM.ContextPapers,
		HistoryWindow:     cfg.LLM.HistoryWindow,
		MaxUploadBytes:    cfg.MaxUploadBytes(),
		DownloadTimeout:   time.Duration(cfg.PDF.DownloadTimeoutSeconds) * time.Second,
	})

	log.WithFields(logrus.Fields{
		"storage":   cfg.Storage.Driver,
		"embedding": a.Embedder.ModelName(),
		"redis":     a.Redis != nil,
		"rabbitmq":  a.MQConn != nil,
		"minio":     a.Archive != nil,
	}).Info("application wired")
	return a, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	cfg := a.Config
	if cfg.Storage.Driver == config.StorageDriverMemory {
		a.Logger.Warn("using in-memory storage, data is lost on restart")
		mem := memory.NewStore(cfg.Embedding.Dimensions)
		return stores{
			users:      mem.Users(),
			workspaces: mem.Workspaces(),
			papers:     mem.Papers(),
			messages:   mem.Messages(),
		}, nil
	}

	db, err := postgresClient.New(ctx, cfg.PostgresDSN())
	if err != nil {
		return stores{}, err
	}
	a.Postgres = db
	if err := postgresClient.Migrate(ctx, db, cfg.Embedding.Dimensions); err != nil {
		return stores{}, err
	}
	return stores{
		users:      repository.NewUserRepository(db),
		workspaces: repository.NewWorkspaceRepository(db),
		papers:     repository.NewPaperRepository(db, cfg.Embedding.Dimensions),
		messages:   repository.NewMessageRepository(db),
	}, nil
}

// DependencyChecks lists a probe for every configured backend.
func (a *App) DependencyChecks() []DependencyCheck {
	var checks []DependencyCheck
	if a.Postgres != nil {
		checks = append(checks, DependencyCheck{Name: "postgres", Ping: func(ctx context.Context) error {
			sqlDB, err := a.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	if a.Redis != nil {
		checks = append(checks, DependencyCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}})
	}
	if a.MQConn != nil {
		checks = append(checks, DependencyCheck{Name: "rabbitmq", Ping: func(context.Context) error {
			if a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}})
	}
	if a.Archive != nil {
		checks = append(checks, DependencyCheck{Name: "minio", Ping: a.Archive.Ping})
	}
	return checks
}

func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		errs = append(errs, a.MQConn.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if closer, ok := a.Embedder.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if a.Extractor != nil {
		errs = append(errs, a.Extractor.Close())
	}
	if a.Postgres != nil {
		if sqlDB, err := a.Postgres.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
