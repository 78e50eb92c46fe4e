package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sangkips/tillpoint/internal/application/service"
	"github.com/sangkips/tillpoint/internal/presentation/http/dto/request"
	"github.com/sangkips/tillpoint/internal/presentation/http/dto/response"
)

// PrinterHandler handles printer-related HTTP requests.
type PrinterHandler struct {
	printerService *service.PrinterService
}

// NewPrinterHandler creates a new printer handler.
func NewPrinterHandler(printerService *service.PrinterService) *PrinterHandler {
	return &PrinterHandler{printerService: printerService}
}

// GetStatus returns the current printer connection status.
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	response.OK(c, "Printer status retrieved", h.printerService.GetStatus())
}

// TestPrint sends a test page to the printer.
func (h *PrinterHandler) TestPrint(c *gin.Context) {
	var opts request.PrintOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			response.BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}
	ctx, sendOpts := printContext(c, opts)
	result, err := h.printerService.TestPrint(ctx, sendOpts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Test page sent to printer", result)
}

// PrintReceipt prints the receipt of an invoice.
func (h *PrinterHandler) PrintReceipt(c *gin.Context) {
	var req request.PrintReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	ctx, sendOpts := printContext(c, req.PrintOptions)
	result, err := h.printerService.PrintInvoice(ctx, req.OrderID, sendOpts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Receipt printed", result)
}

// Disconnect closes the device link; the next direct print selects a device again.
func (h *PrinterHandler) Disconnect(c *gin.Context) {
	h.printerService.Disconnect()
	response.OK(c, "Printer disconnected", h.printerService.GetStatus())
}
