package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/blob"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/identity"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/lock/local"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/lock/redis"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/resilience"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/pdfchat/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/pdfchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/core/services"
	"github.com/custodia-labs/pdfchat/internal/logger"
	"github.com/custodia-labs/pdfchat/internal/normalisers"
	"github.com/custodia-labs/pdfchat/internal/postprocessors/chunker"
)

// stores groups the persistence ports picked by vector.backend.
type stores struct {
	docs       driven.DocumentStore
	messages   driven.MessageStore
	states     driven.IndexStateStore
	namespaces driven.NamespaceStore
}

// app owns everything main builds and closes it in reverse order.
type app struct {
	services *cli.Services
	closers  []func() error
}

// Close releases stores, locks and provider clients.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

// newApp wires every adapter into the core services. dir defaults to
// ~/.pdfchat. Chat and indexing stay nil until both AI providers are
// configured; the config commands still work in that state.
func newApp(ctx context.Context, dir string) (*app, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".pdfchat")
	}

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := configStore.ApplyEnv(".env", filepath.Join(dir, ".env")); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	settingsSvc := services.NewSettingsService(configStore, nil)
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	factory := ai.NewFactory(settings.Transport)
	settingsSvc = services.NewSettingsService(configStore, ai.NewConfigValidator(factory))

	a := &app{}
	st, err := a.openStores(settings, dir)
	if err != nil {
		a.Close()
		return nil, err
	}

	ids := identity.Chain{identity.Context{}, identity.Static(settings.Identity.UserID)}
	history := services.NewHistoryService(st.messages, ids)

	a.services = &cli.Services{
		Document: services.NewDocumentService(st.docs, ids),
		Settings: settingsSvc,
		History:  history,
	}
	a.services.RemoteDocument = services.NewDocumentService(st.docs, ids,
		services.WithSourceSchemes("https", "s3"),
		services.WithPublicHostsOnly(nil),
	)
	if settings.Identity.JWTSecret != "" {
		a.services.Tokens = identity.NewJWTValidator(settings.Identity.JWTSecret, settings.Identity.JWTIssuer)
	}

	providers, err := factory.CreateServices(settings)
	if err != nil {
		logger.Debug("AI providers unavailable: %v", err)
		return a, nil
	}
	a.closers = append(a.closers, func() error { providers.Close(); return nil })

	fetcher := blob.Defaults(resilience.NewClient(settings.Transport, time.Minute), blob.DefaultMaxBytes)
	if s3, err := blob.NewS3Fetcher(ctx, blob.S3Config{
		Region:   settings.Blob.S3Region,
		Endpoint: settings.Blob.S3Endpoint,
	}); err != nil {
		logger.Warn("s3:// sources disabled: %v", err)
	} else {
		fetcher.Handle(s3, "s3")
	}

	indexing := services.NewIndexingService(
		st.docs, st.states, st.namespaces,
		fetcher,
		normalisers.Defaults(),
		chunker.FromSettings(settings.Chunking),
		providers.Embedding,
		ids,
		services.IndexingOptions{BatchSize: settings.Embedding.BatchSize},
	)
	locker, err := a.openLocker(ctx, settings.Lock)
	if err != nil {
		a.Close()
		return nil, err
	}
	if locker != nil {
		indexing.SetLocker(locker)
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.services.Indexing = indexing
	a.services.Chat = services.NewChatService(
		indexing,
		st.docs,
		history,
		services.NewQueryRephraser(providers.LLM, prompts),
		services.NewRetriever(providers.Embedding, st.namespaces, settings.Retrieval.TopK),
		services.NewAnswerGenerator(providers.LLM, prompts),
		ids,
		settings.Chat,
	)
	return a, nil
}

func (a *app) openStores(settings *domain.AppSettings, dir string) (*stores, error) {
	switch settings.Vector.Backend {
	case domain.VectorBackendMemory:
		return &stores{
			docs:       memory.NewDocumentStore(),
			messages:   memory.NewMessageStore(),
			states:     memory.NewIndexStateStore(),
			namespaces: memory.NewNamespaceStore(),
		}, nil

	case domain.VectorBackendSQLite, domain.VectorBackendQdrant:
		db, err := sqlite.NewStore(filepath.Join(dir, "data"))
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		st := &stores{
			docs:       db.DocumentStore(),
			messages:   db.MessageStore(),
			states:     db.IndexStateStore(),
			namespaces: db.NamespaceStore(),
		}
		if settings.Vector.Backend == domain.VectorBackendQdrant {
			q := qdrant.New(qdrant.Config{
				URL:              settings.Vector.QdrantURL,
				APIKey:           settings.Vector.QdrantAPIKey,
				CollectionPrefix: settings.Vector.CollectionPrefix,
				HTTPClient:       resilience.NewClient(settings.Transport, 0),
			})
			a.closers = append(a.closers, q.Close)
			st.namespaces = q
		}
		return st, nil

	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrUnsupportedType, settings.Vector.Backend)
	}
}

func (a *app) openLocker(ctx context.Context, cfg domain.LockSettings) (driven.Locker, error) {
	switch cfg.Backend {
	case domain.LockBackendNone:
		return nil, nil
	case domain.LockBackendLocal, "":
		return local.New(cfg.Wait), nil
	case domain.LockBackendRedis:
		l, err := redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.TTL,
			Wait:     cfg.Wait,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, l.Close)
		return l, nil
	default:
		return nil, errors.Join(domain.ErrUnsupportedType, fmt.Errorf("lock backend %q", cfg.Backend))
	}
}
