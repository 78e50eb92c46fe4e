package printer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Channel names reported by Dispatcher.Send
const (
	ChannelDirect = "direct"
	ChannelHost   = "host"
)

// SendOptions describe the caller of a print request.
type SendOptions struct {
	// PreferDirect asks for the device link. It is used only when Trusted is also set.
	PreferDirect bool
	// Trusted marks a secure caller (TLS or loopback).
	Trusted bool
}

// Dispatcher routes a document to the device session or to the host print facility.
type Dispatcher struct {
	session *Session
	host    HostPrinter
	log     zerolog.Logger
}

// NewDispatcher creates a dispatcher. A nil session means the direct channel is
// unavailable; a nil host means there is no fallback.
func NewDispatcher(session *Session, host HostPrinter, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		session: session,
		host:    host,
		log:     log.With().Str("component", "printer_dispatcher").Logger(),
	}
}

// Session returns the device session, or nil when direct printing is unavailable.
func (d *Dispatcher) Session() *Session {
	return d.session
}

// Send prints doc and returns the channel that printed it. A device failure falls
// back to the host silently; a cancelled device selection is returned as is and
// nothing else is tried.
func (d *Dispatcher) Send(ctx context.Context, doc *Document, opts SendOptions) (string, error) {
	if !doc.HasCut() {
		return "", errors.New("printer: document is not terminated with a cut")
	}

	directErr := ErrNoCapability
	if d.session != nil && opts.PreferDirect && opts.Trusted {
		err := d.session.Write(ctx, doc.Bytes())
		if err == nil {
			return ChannelDirect, nil
		}
		if IsTerminal(err) {
			return "", err
		}
		d.log.Warn().Err(err).Msg("direct print failed, falling back to host print")
		directErr = err
	}

	if d.host == nil {
		return "", directErr
	}
	if err := d.host.Print(ctx, doc); err != nil {
		if errors.Is(directErr, ErrNoCapability) {
			return "", err
		}
		d.log.Error().Err(err).AnErr("direct_error", directErr).Msg("all print channels failed")
		return "", fmt.Errorf("%w; %w", directErr, err)
	}
	return ChannelHost, nil
}

// Disconnect drops the cached device so the next print selects again.
func (d *Dispatcher) Disconnect() {
	if d.session != nil {
		d.session.Invalidate()
	}
}

// Status reports the device link. Available is false when there is no direct channel.
func (d *Dispatcher) Status() (status Status, available bool) {
	if d.session == nil {
		return Status{}, false
	}
	return d.session.Status(), true
}
