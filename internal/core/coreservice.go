package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jo-hoe/imagecompressor/internal/backend/archive"
	"github.com/jo-hoe/imagecompressor/internal/backend/auth"
	"github.com/jo-hoe/imagecompressor/internal/backend/database"
	"github.com/jo-hoe/imagecompressor/internal/backend/imageprocessing"
	"github.com/jo-hoe/imagecompressor/internal/backend/mail"
	"github.com/jo-hoe/imagecompressor/internal/backend/session"
	"github.com/jo-hoe/imagecompressor/internal/backend/storage"
	"github.com/jo-hoe/imagecompressor/internal/common"
)

// CoreService owns every long-lived dependency and exposes the operations
// the HTTP and CLI front ends need.
type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	sessions        session.Store
	storage         storage.Storage
	processor       *imageprocessing.Processor
	archives        *archive.Builder
	auth            *auth.Service
}

func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	databaseService, err := connectDatabase(ctx, config.Database)
	if err != nil {
		return nil, err
	}

	service, err := newCoreService(ctx, config, databaseService)
	if err != nil {
		_ = databaseService.Close()
		return nil, err
	}
	return service, nil
}

func newCoreService(ctx context.Context, config *ServiceConfig, databaseService database.DatabaseService) (*CoreService, error) {
	store, err := storage.NewStorage(ctx, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("storage initialized", "type", config.Storage.Type)

	archives, err := archive.NewBuilder(store, config.Storage.LockDir)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewStore(ctx, config.Sessions, databaseService.DB())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	slog.Info("session store initialized", "type", config.Sessions.Type, "ttl", config.Sessions.TTL)

	mailer, err := mail.NewSender(config.Mail)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mail sender: %w", err)
	}

	encoder := imageprocessing.NewEncoder(store, config.Images.Budget)
	processor := imageprocessing.NewProcessor(store, encoder, config.ResolutionPolicy(), config.Images.MaxFiles)

	return &CoreService{
		config:          config,
		databaseService: databaseService,
		sessions:        sessions,
		storage:         store,
		processor:       processor,
		archives:        archives,
		auth:            auth.NewService(databaseService, sessions, mailer, config.Auth.ResetBaseURL),
	}, nil
}

// connectDatabase opens the database, retrying a bounded number of times
// until it answers a ping.
func connectDatabase(ctx context.Context, cfg Database) (database.DatabaseService, error) {
	var lastErr error
	for attempt := 0; attempt <= cfg.ConnectRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying database connection", "attempt", attempt, "max_retries", cfg.ConnectRetries, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryDelay):
			}
		}

		databaseService, err := database.NewDatabase(cfg.Type, cfg.ConnectionString)
		if err != nil {
			lastErr = err
			continue
		}
		if !databaseService.DoesDatabaseExist() {
			_ = databaseService.Close()
			lastErr = errors.New("database did not answer ping")
			continue
		}

		slog.Info("database initialized successfully", "type", cfg.Type)
		return databaseService, nil
	}
	return nil, fmt.Errorf("failed to initialize database after %d attempts: %w", cfg.ConnectRetries+1, lastErr)
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Auth() *auth.Service {
	return service.auth
}

func (service *CoreService) ProcessBatch(ctx context.Context, req imageprocessing.BatchRequest) (*imageprocessing.BatchResult, error) {
	return service.processor.Process(ctx, req)
}

// OpenArchive returns the batch archive, building it on first access.
// Identifiers that were never allocated are reported as not found.
func (service *CoreService) OpenArchive(ctx context.Context, batchID string) (io.ReadCloser, storage.ObjectInfo, error) {
	if err := checkBatchID(batchID); err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	return service.archives.Open(ctx, batchID)
}

// RebuildArchive drops the cached archive of a batch and builds it again
func (service *CoreService) RebuildArchive(ctx context.Context, batchID string) (string, error) {
	if err := checkBatchID(batchID); err != nil {
		return "", err
	}
	if err := service.archives.Invalidate(ctx, batchID); err != nil {
		return "", err
	}
	return service.archives.GetOrBuild(ctx, batchID)
}

// BuildArchive builds the archive of a batch unless it exists
func (service *CoreService) BuildArchive(ctx context.Context, batchID string) (string, error) {
	if err := checkBatchID(batchID); err != nil {
		return "", err
	}
	return service.archives.GetOrBuild(ctx, batchID)
}

func checkBatchID(batchID string) error {
	if !imageprocessing.IsBatchID(batchID) {
		return &common.NotFoundError{Resource: "batch", ID: batchID}
	}
	return nil
}

func (service *CoreService) Close() error {
	var errs []error
	if closer, ok := service.sessions.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, service.databaseService.Close())
	return errors.Join(errs...)
}
