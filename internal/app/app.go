package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	config "github.com/manvue/go-backend/internal/cfg"
	v1Http "github.com/manvue/go-backend/internal/delivery/v1/http"
	"github.com/manvue/go-backend/internal/index"
	"github.com/manvue/go-backend/internal/infrastructure/imaging"
	"github.com/manvue/go-backend/internal/infrastructure/kafka"
	minioInfra "github.com/manvue/go-backend/internal/infrastructure/minio"
	"github.com/manvue/go-backend/internal/infrastructure/mlservice"
	s3Repo "github.com/manvue/go-backend/internal/repository/minio"
	"github.com/manvue/go-backend/internal/repository/pgdb"
	qdrantRepo "github.com/manvue/go-backend/internal/repository/qdrant"
	"github.com/manvue/go-backend/internal/repository/redis"
	redisConv "github.com/manvue/go-backend/internal/repository/redis/converter"
	"github.com/manvue/go-backend/internal/usecase"
	"github.com/manvue/go-backend/pkg/clients"
	"github.com/manvue/go-backend/pkg/closer"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
	"github.com/manvue/go-backend/pkg/postgres"
)

// App связывает все слои приложения: клиенты внешних систем, репозитории,
// сценарии и HTTP-доставку.
type App struct {
	cfg    *config.Config
	logger logger.Logger

	db           *postgres.PgDatabase
	redisClient  *clients.RedisClient
	qdrantClient *clients.QdrantClient
	producer     *kafka.Producer

	searchSvc   *usecase.SearchService
	ingestUC    usecase.IngestUC
	queryImages *minioInfra.QueryImageInfrastructure
	store       *index.Catalog

	httpSrv *v1Http.Server

	closer         *closer.Closer
	shutdownCancel context.CancelFunc
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	db, err := initPGDB(log, cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	catalogRepo := pgdb.NewCatalogRepo(db.Pool)
	queryLogRepo := pgdb.NewQueryLogRepo(db.Pool)
	versionRepo := pgdb.NewEmbeddingVersionRepo(db.Pool)

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName)
	minioCancel()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	imageRepo := s3Repo.NewImageRepo(minioClient, cfg.Minio)

	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrantCtx, qdrantCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = clients.EnsureCollection(qdrantCtx, qdrantClient)
	qdrantCancel()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	embRepo := qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant)

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(redisCtx)
	redisCancel()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cacheRepo := redis.NewCacheRepo(redisClient, &redisConv.ProductInfoConverterImpl{}, cfg.Redis, log)

	producer, err := kafka.NewProducer(log, cfg.Kafka)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := producer.EnsureTopic(10 * time.Second); err != nil {
		// Журнал аналитики не должен блокировать запуск поиска.
		log.Warnf("failed to ensure kafka topic: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	ml := mlservice.NewMLService(cfg.Ml, log)
	decoder := imaging.NewDecoder()
	queryImages := minioInfra.NewQueryImageInfrastructure(imageRepo, cfg.Minio, log, shutdownCtx)

	store := index.NewCatalog()

	outfitSvc := usecase.NewOutfitService(catalogRepo, cacheRepo, usecase.NewRandomPicker(), cfg.Search, log)
	searchSvc := usecase.NewSearchService(
		usecase.NewRealBackend(ml, store),
		usecase.NewDemoBackend(),
		decoder,
		outfitSvc,
		queryLogRepo,
		queryImages,
		producer,
		cfg.Search,
		log,
	)
	ingestSvc := usecase.NewIngestService(
		catalogRepo,
		embRepo,
		versionRepo,
		ml,
		decoder,
		db.Pool,
		store,
		cacheRepo,
		cfg.Ml,
		cfg.Index,
		log,
	)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(searchSvc, outfitSvc, ingestSvc, func() (bool, int) {
		pair, err := store.Snapshot()
		if err != nil {
			return false, 0
		}
		return true, pair.Index.Size()
	})

	app := &App{
		cfg:            cfg,
		logger:         log,
		db:             db,
		redisClient:    redisClient,
		qdrantClient:   qdrantClient,
		producer:       producer,
		searchSvc:      searchSvc,
		ingestUC:       ingestSvc,
		queryImages:    queryImages,
		store:          store,
		httpSrv:        v1Http.NewServer(r, cfg.Http),
		closer:         closer.NewCloser(2 * time.Second),
		shutdownCancel: shutdownCancel,
	}
	app.registerClosers()

	return app, nil
}

// registerClosers выстраивает порядок останова: closer идёт LIFO, поэтому
// сервер и фоновые задачи закрываются раньше клиентов внешних систем.
func (a *App) registerClosers() {
	a.closer.Add(func(ctx context.Context) error {
		a.db.Close()
		return nil
	})
	a.closer.Add(func(ctx context.Context) error {
		return a.redisClient.Client.Close()
	})
	a.closer.Add(func(ctx context.Context) error {
		return a.qdrantClient.Client.Close()
	})
	a.closer.Add(func(ctx context.Context) error {
		return a.producer.Close()
	})
	a.closer.Add(func(ctx context.Context) error {
		a.shutdownCancel()
		return nil
	})
	a.closer.Add(func(ctx context.Context) error {
		return a.queryImages.WaitForCleanup(ctx)
	})
	a.closer.Add(func(ctx context.Context) error {
		return a.searchSvc.WaitForAudit(ctx)
	})
	a.closer.Add(func(ctx context.Context) error {
		return a.httpSrv.Stop(ctx)
	})
}

// Run поднимает пару (индекс, метаданные), запускает HTTP-сервер и блокируется
// до сигнала останова или фатальной ошибки сервера.
func (a *App) Run() error {
	startCtx, startCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	err := a.ingestUC.LoadOrRebuild(startCtx)
	startCancel()
	if err != nil {
		// Поиск без индекса бессмысленен: без пары приложение не стартует.
		a.logger.Errorf(err, "failed to load or rebuild index")
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed: %v", err)
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	a.stop()
	a.logger.Infof("Application shutdown complete")

	return appErr
}

// stop выполняет graceful shutdown: сервер, фоновый аудит, очистка blob,
// клиенты внешних систем — в порядке, заданном registerClosers.
func (a *App) stop() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("%v", err)
	}
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
