package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/pkg/apperror"
	"github.com/sangkips/tillpoint/pkg/printer"
)

// PrinterSettings are the printer details the service reports and renders with.
type PrinterSettings struct {
	Type         string
	Device       string
	PaperWidthMM float64
	CloseDelay   time.Duration
}

// HeaderSource supplies the shop details printed at the top of receipts.
type HeaderSource interface {
	Header(ctx context.Context) entity.ReceiptHeader
}

// StaticHeader is a HeaderSource that never changes.
type StaticHeader entity.ReceiptHeader

// Header implements HeaderSource.
func (h StaticHeader) Header(context.Context) entity.ReceiptHeader {
	return entity.ReceiptHeader(h)
}

// PrinterService prints receipts through the dispatcher.
type PrinterService struct {
	dispatcher *printer.Dispatcher
	billing    *BillingService
	headers    HeaderSource
	loc        *time.Location
	settings   PrinterSettings
	log        zerolog.Logger
}

// NewPrinterService creates a new printer service.
func NewPrinterService(
	dispatcher *printer.Dispatcher,
	billing *BillingService,
	headers HeaderSource,
	loc *time.Location,
	settings PrinterSettings,
	log zerolog.Logger,
) *PrinterService {
	if settings.PaperWidthMM <= 0 {
		settings.PaperWidthMM = printer.DefaultPaperWidthMM
	}
	return &PrinterService{
		dispatcher: dispatcher,
		billing:    billing,
		headers:    headers,
		loc:        loc,
		settings:   settings,
		log:        log.With().Str("component", "printer").Logger(),
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
	Device     string `json:"device,omitempty"`
}

// PrintResult tells the caller which channel printed the receipt.
type PrintResult struct {
	Channel string `json:"channel"`
	OrderID int64  `json:"order_id,omitempty"`
	Ordinal int    `json:"ordinal,omitempty"`
}

// GetStatus returns printer connection status.
func (s *PrinterService) GetStatus() *PrinterStatus {
	status := &PrinterStatus{Type: s.settings.Type, Device: s.settings.Device}
	st, available := s.dispatcher.Status()
	status.Configured = available
	if available {
		status.Connected = st.Connected
		if st.Device != "" {
			status.Device = st.Device
		}
	}
	return status
}

// PrintInvoice prints the receipt of a stored invoice with its current ordinal.
func (s *PrinterService) PrintInvoice(ctx context.Context, orderID int64, opts printer.SendOptions) (*PrintResult, error) {
	inv, err := s.billing.Invoice(ctx, orderID)
	if err != nil {
		return nil, err
	}

	doc, err := BuildReceipt(ReceiptFromInvoice(*inv, s.headers.Header(ctx), s.loc))
	if err != nil {
		return nil, printError(err)
	}

	channel, err := s.dispatcher.Send(ctx, doc, opts)
	if err != nil {
		s.log.Error().Err(err).Int64("order_id", orderID).Msg("receipt not printed")
		return nil, printError(err)
	}

	s.log.Info().Int64("order_id", orderID).Int("ordinal", inv.Ordinal).Str("channel", channel).Msg("receipt printed")
	return &PrintResult{Channel: channel, OrderID: orderID, Ordinal: inv.Ordinal}, nil
}

// TestPrint sends a sample receipt to the printer.
func (s *PrinterService) TestPrint(ctx context.Context, opts printer.SendOptions) (*PrintResult, error) {
	doc, err := BuildReceipt(TestReceipt(s.headers.Header(ctx), time.Now().In(s.loc)))
	if err != nil {
		return nil, printError(err)
	}
	channel, err := s.dispatcher.Send(ctx, doc, opts)
	if err != nil {
		s.log.Error().Err(err).Msg("test print failed")
		return nil, printError(err)
	}
	return &PrintResult{Channel: channel}, nil
}

// ReceiptHTML writes the browser-print page of an invoice receipt.
func (s *PrinterService) ReceiptHTML(ctx context.Context, orderID int64, w io.Writer) error {
	inv, err := s.billing.Invoice(ctx, orderID)
	if err != nil {
		return err
	}
	doc, err := BuildReceipt(ReceiptFromInvoice(*inv, s.headers.Header(ctx), s.loc))
	if err != nil {
		return printError(err)
	}
	title := fmt.Sprintf("Invoice #%d %s", inv.Ordinal, inv.Day)
	return printer.RenderHTML(w, title, doc, s.settings.PaperWidthMM, s.settings.CloseDelay)
}

// Disconnect closes the device link.
func (s *PrinterService) Disconnect() {
	s.dispatcher.Disconnect()
	s.log.Info().Msg("printer disconnected")
}

// TestReceipt is the sample printed by a test print.
func TestReceipt(header entity.ReceiptHeader, now time.Time) *entity.Receipt {
	if header.ShopName == "" {
		header.ShopName = "PRINTER TEST"
	}
	lines := []entity.ReceiptLine{
		{Name: "Test item", Quantity: 1, Price: decimal.NewFromInt(10)},
		{Name: "Another test item with a long name", Quantity: 2, Price: decimal.NewFromInt(10)},
	}
	return &entity.Receipt{
		Header:  header,
		Ordinal: 0,
		Date:    now.Format("2006-01-02"),
		Time:    now.Format("15:04"),
		Lines:   lines,
		Total:   decimal.NewFromInt(20),
	}
}

func printError(err error) error {
	switch {
	case errors.Is(err, ErrEmptyReceipt):
		return &apperror.AppError{Code: http.StatusUnprocessableEntity, Message: "Invoice has no lines to print", Err: err}
	case errors.Is(err, printer.ErrUserCancelled):
		return &apperror.AppError{Code: http.StatusConflict, Message: "Printing cancelled, select a printer to print", Err: err}
	case errors.Is(err, printer.ErrNoDevice):
		return &apperror.AppError{Code: http.StatusConflict, Message: "No printer selected", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &apperror.AppError{Code: http.StatusRequestTimeout, Message: "Printing was interrupted", Err: err}
	case errors.Is(err, printer.ErrNoCapability):
		return &apperror.AppError{Code: http.StatusNotImplemented, Message: "No print channel is available", Err: err}
	case errors.Is(err, printer.ErrChannel), errors.Is(err, printer.ErrHostPrint):
		return &apperror.AppError{Code: http.StatusBadGateway, Message: "Receipt could not be printed", Err: err}
	}
	return err
}
