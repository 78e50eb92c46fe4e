package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/tillpoint/internal/application/service"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
	"github.com/sangkips/tillpoint/internal/presentation/http/dto/response"
	"github.com/sangkips/tillpoint/pkg/pagination"
)

// InvoiceHandler serves numbered invoices
type InvoiceHandler struct {
	billingService *service.BillingService
	printerService *service.PrinterService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(billingService *service.BillingService, printerService *service.PrinterService) *InvoiceHandler {
	return &InvoiceHandler{billingService: billingService, printerService: printerService}
}

// List returns the invoices of the days from..to (default today), numbered per day
// and paged afterwards
func (h *InvoiceHandler) List(c *gin.Context) {
	from, to, ok := h.dayRange(c)
	if !ok {
		return
	}
	invoices, err := h.billingService.Invoices(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	var params pagination.PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, "Invoices retrieved successfully", pagination.Paginate(invoices, &params))
}

func (h *InvoiceHandler) dayRange(c *gin.Context) (from, to invoice.DayKey, ok bool) {
	today := h.billingService.Today()
	from, to = today, today
	var err error
	if s := c.Query("from"); s != "" {
		if from, err = invoice.ParseDay(s); err != nil {
			response.BadRequest(c, "Invalid from date, use YYYY-MM-DD")
			return from, to, false
		}
		to = from
	}
	if s := c.Query("to"); s != "" {
		if to, err = invoice.ParseDay(s); err != nil {
			response.BadRequest(c, "Invalid to date, use YYYY-MM-DD")
			return from, to, false
		}
	}
	return from, to, true
}

// Recent returns the cached invoices of the recent window. Degraded is set in meta
// when the last refresh failed.
func (h *InvoiceHandler) Recent(c *gin.Context) {
	snap := h.billingService.Book()
	response.SuccessDegraded(c, "Recent invoices retrieved successfully", snap, snap.Degraded)
}

// NextNumber returns the number the next invoice of ?day= (default today) would get
func (h *InvoiceHandler) NextNumber(c *gin.Context) {
	day := h.billingService.Today()
	if s := c.Query("day"); s != "" {
		var err error
		if day, err = invoice.ParseDay(s); err != nil {
			response.BadRequest(c, "Invalid day, use YYYY-MM-DD")
			return
		}
	}
	next, err := h.billingService.NextInvoiceNumber(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Next invoice number", gin.H{"day": day.String(), "next": next})
}

// Orphans lists orders left behind by failed rollbacks
func (h *InvoiceHandler) Orphans(c *gin.Context) {
	response.OK(c, "Orphaned orders", h.billingService.Orphans())
}

// Get returns one invoice with its current ordinal
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	inv, err := h.billingService.Invoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Invoice retrieved successfully", inv)
}

// Edit opens a cart pre-filled with the invoice's lines
func (h *InvoiceHandler) Edit(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	cart, err := h.billingService.LoadForEdit(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Invoice opened for editing", cart)
}

// Delete removes an invoice. Later invoices of its day are renumbered.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	if err := h.billingService.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReceiptHTML serves the browser-print page of the invoice receipt
func (h *InvoiceHandler) ReceiptHTML(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.printerService.ReceiptHTML(c.Request.Context(), id, &buf); err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
