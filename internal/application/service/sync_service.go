package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sangkips/tillpoint/internal/domain/repository"
	"github.com/sangkips/tillpoint/pkg/retry"
)

// SyncSettings control how the invoice book is kept current.
type SyncSettings struct {
	PollInterval time.Duration
	LoadTimeout  time.Duration
	LoadAttempts int
	LoadBackoff  time.Duration
}

// SyncService loads the invoice book at startup and refreshes it on change events
// from other tills and on a fixed poll.
type SyncService struct {
	book     *InvoiceBook
	feed     repository.ChangeFeed
	settings SyncSettings
	log      zerolog.Logger
}

func NewSyncService(book *InvoiceBook, feed repository.ChangeFeed, settings SyncSettings, log zerolog.Logger) *SyncService {
	return &SyncService{
		book:     book,
		feed:     feed,
		settings: settings,
		log:      log.With().Str("component", "sync").Logger(),
	}
}

// InitialLoad fills the book, retrying with a linear backoff under LoadTimeout. When
// every attempt fails the book stays empty and degraded; the error is returned for
// logging only.
func (s *SyncService) InitialLoad(ctx context.Context) error {
	if s.settings.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.LoadTimeout)
		defer cancel()
	}

	err := retry.Do(ctx, s.book.Refresh, retry.Config{
		MaxAttempts: s.settings.LoadAttempts,
		BackoffStrategy: &retry.LinearBackoff{
			InitialInterval: s.settings.LoadBackoff,
			Step:            s.settings.LoadBackoff,
			MaxInterval:     4 * s.settings.LoadBackoff,
		},
		Logger: s.log,
	})
	if err != nil {
		s.book.MarkDegraded(err)
		s.log.Error().Err(err).Msg("initial invoice load failed, starting with an empty list")
		return err
	}
	s.log.Info().Int("invoices", len(s.book.Snapshot().Invoices)).Msg("invoices loaded")
	return nil
}

// Run subscribes to order changes and polls until ctx is done.
func (s *SyncService) Run(ctx context.Context) error {
	events := make(chan struct{}, 1)
	if s.feed != nil {
		err := s.feed.Subscribe(ctx, repository.CollectionOrders, func() {
			select {
			case events <- struct{}{}:
			default:
				// a refresh is already pending
			}
		})
		if err != nil {
			s.log.Error().Err(err).Msg("change feed unavailable, polling only")
		}
	}

	var tick <-chan time.Time
	if s.settings.PollInterval > 0 {
		ticker := time.NewTicker(s.settings.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-events:
			s.refresh(ctx, "change event")
		case <-tick:
			s.refresh(ctx, "poll")
		}
	}
}

func (s *SyncService) refresh(ctx context.Context, reason string) {
	if err := s.book.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Str("reason", reason).Msg("invoice refresh failed")
	}
}
