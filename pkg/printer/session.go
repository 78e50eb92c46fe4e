package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionConfig tunes how bytes are pushed to the device.
type SessionConfig struct {
	ChunkSize  int
	ChunkDelay time.Duration
}

// Status describes the cached device link.
type Status struct {
	Connected bool   `json:"connected"`
	Device    string `json:"device,omitempty"`
}

// Session holds the process-wide device link. The device is selected and opened on
// the first write and reused until a write fails, the device disconnects or
// Invalidate is called; the next write then selects again.
type Session struct {
	selector DeviceSelector
	opener   DeviceOpener
	cfg      SessionConfig
	log      zerolog.Logger

	mu     sync.Mutex
	device Device
	name   string
	gen    uint64
}

// NewSession creates a session. No device is opened until the first write.
func NewSession(selector DeviceSelector, opener DeviceOpener, cfg SessionConfig, log zerolog.Logger) *Session {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}
	return &Session{
		selector: selector,
		opener:   opener,
		cfg:      cfg,
		log:      log.With().Str("component", "printer_session").Logger(),
	}
}

// Write sends data to the device in chunks. Only one write uses the device at a time.
func (s *Session) Write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(ctx); err != nil {
		return err
	}

	for off := 0; off < len(data); off += s.cfg.ChunkSize {
		end := off + s.cfg.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := s.device.Write(data[off:end]); err != nil {
			name := s.name
			s.invalidateLocked()
			return fmt.Errorf("%w: write to %s: %w", ErrChannel, name, err)
		}
		if end < len(data) && s.cfg.ChunkDelay > 0 {
			t := time.NewTimer(s.cfg.ChunkDelay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				// the printer holds part of a receipt; the next print starts on a fresh link
				s.invalidateLocked()
				return ctx.Err()
			}
		}
	}

	if d, ok := s.device.(drainer); ok {
		if err := d.Drain(); err != nil {
			s.log.Warn().Err(err).Str("device", s.name).Msg("drain failed")
		}
	}
	return nil
}

func (s *Session) connectLocked(ctx context.Context) error {
	if s.device != nil {
		return nil
	}

	name, err := s.selector.Select(ctx)
	if err != nil {
		return err
	}
	dev, err := s.opener.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChannel, err)
	}

	s.gen++
	s.device, s.name = dev, name
	s.log.Info().Str("device", name).Msg("printer connected")

	if r, ok := dev.(io.Reader); ok {
		go s.watch(r, s.gen)
	}
	return nil
}

// watch reads and discards printer output until the link fails, then drops the
// cached device if it is still the one being watched.
func (s *Session) watch(r io.Reader, gen uint64) {
	buf := make([]byte, 64)
	for {
		if _, err := r.Read(buf); err != nil {
			s.mu.Lock()
			if s.gen == gen && s.device != nil {
				if !errors.Is(err, io.EOF) {
					s.log.Warn().Err(err).Str("device", s.name).Msg("printer link lost")
				} else {
					s.log.Info().Str("device", s.name).Msg("printer disconnected")
				}
				s.invalidateLocked()
			}
			s.mu.Unlock()
			return
		}
	}
}

// Invalidate closes and forgets the cached device.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Session) invalidateLocked() {
	if s.device == nil {
		return
	}
	if err := s.device.Close(); err != nil {
		s.log.Debug().Err(err).Str("device", s.name).Msg("close device")
	}
	s.device, s.name = nil, ""
	s.gen++
}

// Status reports the cached device, if any.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Connected: s.device != nil, Device: s.name}
}
