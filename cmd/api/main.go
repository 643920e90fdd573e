package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	redisCache "github.com/aniladanir/file-relay-service/internal/cache/redis"
	"github.com/aniladanir/file-relay-service/internal/dispatch"
	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/events"
	httpHandler "github.com/aniladanir/file-relay-service/internal/handler/http"
	"github.com/aniladanir/file-relay-service/internal/persistant/postgresql"
	companyRepo "github.com/aniladanir/file-relay-service/internal/repository/company"
	messageRepo "github.com/aniladanir/file-relay-service/internal/repository/message"
	sourceRepo "github.com/aniladanir/file-relay-service/internal/repository/source"
	userRepo "github.com/aniladanir/file-relay-service/internal/repository/user"
	"github.com/aniladanir/file-relay-service/internal/service"
	"github.com/aniladanir/file-relay-service/internal/storage"
	"github.com/aniladanir/file-relay-service/internal/storage/gdrive"
	"github.com/aniladanir/file-relay-service/internal/strategy"
	"gorm.io/gorm"
)

var (
	configFile = flag.String("config", "config.json", "config file path")
)

func main() {
	// create root context
	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	// listen for terminate signal
	notifyCtx, stop := signal.NotifyContext(appCtx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// parse flags
	flag.Parse()

	// parse config
	config, err := ReadConfigJson(*configFile)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// initialize external dependencies
	deps, err := initExternalDependencies(notifyCtx, config, logger)
	if err != nil {
		log.Fatalf("failed to initialize external dependencies: %v", err)
	}

	// init repositories
	sources := sourceRepo.NewSourceRepository(deps.db)
	companies := companyRepo.NewCompanyRepository(deps.db)
	users := userRepo.NewUserRepository(deps.db)
	messages := messageRepo.NewMessageRepository(deps.db)

	// populate database with configured sources, companies and users
	if err := seedDatabase(notifyCtx, seedRepos{sources: sources, companies: companies, users: users}, config.Seed, logger); err != nil {
		log.Fatalf("failed to seed db: %v", err)
	}

	// init services
	directory := service.NewDirectory(users, companies, config.DefaultCompanyName, logger.With(slog.String("component", "directory")))

	storageOpts := []storage.Option{}
	if deps.cache != nil {
		storageOpts = append(storageOpts, storage.WithFolderCache(deps.cache, config.FolderCacheTTL))
	}
	storageClient := storage.NewClient(deps.drive, logger.With(slog.String("component", "storage")), storageOpts...)

	storageSvc := service.NewStorageService(directory, storageClient, config.DriveRootFolderID, logger.With(slog.String("component", "storageService")))
	messageSvc := service.NewMessageService(messages, directory, deps.publisher, logger.With(slog.String("component", "messageService")))
	sourceRegistry := service.NewSourceRegistry(sources)

	// init platform pipeline
	httpClient := &http.Client{Timeout: config.HttpTimeout}
	downloader, err := strategy.NewDownloader(httpClient, config.DownloadMaxAttempts, 0, logger.With(slog.String("component", "downloader")))
	if err != nil {
		log.Fatalf("failed to initiate downloader: %v", err)
	}

	dispatcher := dispatch.NewDispatcher(sourceRegistry, strategy.Deps{
		Storage:              storageSvc,
		Messages:             messageSvc,
		Downloader:           downloader,
		HTTPClient:           httpClient,
		TwilioAPIBase:        config.TwilioAPIBase,
		TelegramAPIEndpoint:  config.TelegramAPIEndpoint,
		TelegramFileEndpoint: config.TelegramFileEndpoint,
		Logger:               logger.With(slog.String("component", "strategy")),
	}, logger.With(slog.String("component", "dispatcher")))

	// init http handler
	httpHandler := httpHandler.NewHttpHandler(
		fmt.Sprintf(":%d", config.HttpPort),
		dispatcher,
		sourceRegistry,
		messageSvc,
		httpHandler.ServiceInfo{Name: config.ServiceName, Version: config.ServiceVersion},
		logger.With(slog.String("component", "httpHandler")),
	)

	wg := sync.WaitGroup{}
	// run http handler
	wg.Go(func() {
		logger.Info("http server listening", "port", config.HttpPort)
		if err := httpHandler.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server encountered with an error and closed", "error", err.Error())
		}
		// cancel app context if http handler fails
		appCtxCancel()
	})

	// graceful shutdown
	wg.Go(func() {
		<-notifyCtx.Done()
		logger.Info("application shutting down...")

		shutDownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		httpHandler.Shutdown(shutDownCtx)
		deps.close(logger)
	})

	wg.Wait()
	os.Exit(0)
}

type externalDependencies struct {
	db        *gorm.DB
	cache     *redisCache.RedisCache
	drive     *gdrive.Backend
	publisher events.Publisher
}

func initExternalDependencies(ctx context.Context, config *Config, logger *slog.Logger) (*externalDependencies, error) {
	deps := &externalDependencies{publisher: events.Nop{}}

	// initialize database
	db, err := postgresql.Initialize(config.DbConnString, domain.Models(), logger.With(slog.String("component", "postgres")))
	if err != nil {
		return nil, err
	}
	deps.db = db

	// initialize folder cache, only when it is enabled
	if config.RedisAddr != "" && config.FolderCacheTTL > 0 {
		if deps.cache, err = redisCache.NewRedisCache(ctx, config.RedisAddr); err != nil {
			deps.close(logger)
			return nil, err
		}
	}

	// initialize drive, authenticated once and shared
	if config.DriveCredentialsFile != "" {
		deps.drive, err = gdrive.NewServiceAccountBackend(ctx, config.DriveCredentialsFile)
	} else {
		deps.drive, err = gdrive.NewBackend(ctx)
	}
	if err != nil {
		deps.close(logger)
		return nil, err
	}

	// initialize event publisher
	if config.AmqpURL != "" {
		publisher, err := events.NewRabbitPublisher(config.AmqpURL, config.AmqpExchange, logger.With(slog.String("component", "events")))
		if err != nil {
			deps.close(logger)
			return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
		}
		deps.publisher = publisher
	}

	return deps, nil
}

func (d *externalDependencies) close(logger *slog.Logger) {
	if err := d.publisher.Close(); err != nil {
		logger.Warn("failed to close event publisher", "error", err.Error())
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			logger.Warn("failed to close redis", "error", err.Error())
		}
	}
	if d.db != nil {
		if err := postgresql.Close(d.db); err != nil {
			logger.Warn("failed to close postgres", "error", err.Error())
		}
	}
}
