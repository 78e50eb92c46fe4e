package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/tillpoint/internal/application/service"
)

// HealthHandler reports whether the till can serve invoices
type HealthHandler struct {
	appName        string
	billingService *service.BillingService
	printerService *service.PrinterService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(appName string, billingService *service.BillingService, printerService *service.PrinterService) *HealthHandler {
	return &HealthHandler{appName: appName, billingService: billingService, printerService: printerService}
}

// Check returns "degraded" while the invoice list could not be loaded, and always 200
// so a till keeps working with the data it has
func (h *HealthHandler) Check(c *gin.Context) {
	snap := h.billingService.Book()
	status := "ok"
	if snap.Degraded {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"service":      h.appName,
		"error":        snap.Error,
		"refreshed_at": snap.RefreshedAt,
		"invoices":     len(snap.Invoices),
		"orphans":      len(h.billingService.Orphans()),
		"printer":      h.printerService.GetStatus(),
	})
}
