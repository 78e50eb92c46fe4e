// Package bootstrap wires configuration into stores, the change feed and the printer.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sangkips/tillpoint/internal/config"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
	"github.com/sangkips/tillpoint/internal/infrastructure/changefeed"
	"github.com/sangkips/tillpoint/internal/infrastructure/database"
	"github.com/sangkips/tillpoint/internal/infrastructure/memory"
	"github.com/sangkips/tillpoint/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint/pkg/printer"
)

// Stores are the repositories the services run on.
type Stores struct {
	Orders      domainRepo.OrderRepository
	Lines       domainRepo.OrderLineRepository
	Products    domainRepo.ProductRepository
	Idempotency domainRepo.IdempotencyRepository
	Settings    domainRepo.SettingsRepository

	close func() error
}

// Close releases the database connection, if any.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects to the configured database and migrates it. DB_DRIVER=memory
// keeps everything in process.
func OpenStores(cfg *config.Config, loc *time.Location, log zerolog.Logger) (*Stores, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("using the in-memory store, orders are lost on restart")
		store := memory.NewStore(loc)
		return &Stores{
			Orders:      store.Orders(),
			Lines:       store.Lines(),
			Products:    store.Products(),
			Idempotency: store.Idempotency(),
			Settings:    store.Settings(),
		}, nil
	}

	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug, log)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db, log); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}

	return &Stores{
		Orders:      repository.NewOrderRepository(db, loc, log),
		Lines:       repository.NewOrderLineRepository(db),
		Products:    repository.NewProductRepository(db, log),
		Idempotency: repository.NewIdempotencyRepository(db),
		Settings:    repository.NewSettingsRepository(db),
		close:       sqlDB.Close,
	}, nil
}

// OpenFeed connects the Redis change feed when REDIS_ADDR is set. Without it, or when
// Redis is unreachable, changes are only seen by this process.
func OpenFeed(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domainRepo.ChangeFeed, func()) {
	if cfg.Redis.Addr == "" {
		return changefeed.NewLocalFeed(), func() {}
	}
	client, err := database.NewRedisClient(ctx, &cfg.Redis, log)
	if err != nil {
		log.Error().Err(err).Msg("redis unavailable, falling back to the local change feed")
		return changefeed.NewLocalFeed(), func() {}
	}
	return changefeed.NewRedisFeed(client, cfg.Redis.Channel, log), func() { client.Close() }
}

// NewDispatcher builds the device session and host fallback from the printer config.
// The session is nil when PRINTER_TYPE is none.
func NewDispatcher(cfg *config.PrinterConfig, selector printer.DeviceSelector, log zerolog.Logger) (*printer.Dispatcher, error) {
	opener, err := printer.NewOpener(cfg.Type, cfg.BaudRate)
	if err != nil {
		return nil, err
	}

	var session *printer.Session
	if opener != nil {
		if selector == nil {
			selector = printer.RequestSelector{Fallback: printer.FixedSelector(cfg.Device)}
		}
		session = printer.NewSession(selector, opener, printer.SessionConfig{
			ChunkSize:  cfg.ChunkSize,
			ChunkDelay: cfg.ChunkDelay,
		}, log)
	}

	var host printer.HostPrinter
	if cfg.HostCommand != "" {
		host = &printer.CommandHostPrinter{
			Command:      cfg.HostCommand,
			Queue:        cfg.HostQueue,
			PaperWidthMM: cfg.PaperWidthMM,
			CloseDelay:   cfg.CloseDelay,
			Log:          log,
		}
	}

	return printer.NewDispatcher(session, host, log), nil
}
