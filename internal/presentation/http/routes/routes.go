package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sangkips/tillpoint/internal/config"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
	"github.com/sangkips/tillpoint/internal/presentation/http/handler"
	"github.com/sangkips/tillpoint/internal/presentation/http/middleware"
	"github.com/sangkips/tillpoint/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Health   *handler.HealthHandler
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Invoice  *handler.InvoiceHandler
	Printer  *handler.PrinterHandler
	Settings *handler.SettingsHandler
	WS       *handler.WSHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	Logger          zerolog.Logger
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))
	router.Use(middleware.TrustedOrigin())

	router.GET("/health", h.Health.Check)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTManager))

	rateLimiter := middleware.NewTerminalRateLimiter(
		middleware.RateLimiterConfigFor(deps.Cfg.RateLimit.Requests, deps.Cfg.RateLimit.Duration))
	v1.Use(rateLimiter.Middleware())

	registerProductRoutes(v1, h)
	registerCartRoutes(v1, h, deps)
	registerInvoiceRoutes(v1, h)
	registerPrinterRoutes(v1, h)

	v1.GET("/settings", h.Settings.GetSettings)
	v1.PUT("/settings", middleware.RequireRole(utils.RoleManager), h.Settings.UpdateSettings)
	v1.GET("/ws", h.WS.Serve)

	return router
}

func registerProductRoutes(v1 *gin.RouterGroup, h *Handlers) {
	products := v1.Group("/products")
	{
		products.GET("", h.Product.List)
		products.GET("/:id", h.Product.Get)
		products.POST("", middleware.RequireRole(utils.RoleManager), h.Product.Create)
	}
}

func registerCartRoutes(v1 *gin.RouterGroup, h *Handlers, deps *Deps) {
	carts := v1.Group("/carts")
	{
		carts.POST("", h.Cart.Create)
		carts.GET("", h.Cart.List)
		carts.GET("/:id", h.Cart.Get)
		carts.DELETE("/:id", h.Cart.Discard)
		carts.POST("/:id/items", h.Cart.AddItem)
		carts.PUT("/:id/items/:product_id", h.Cart.SetQuantity)
		carts.DELETE("/:id/items/:product_id", h.Cart.RemoveItem)
		carts.PUT("/:id/bill-date", h.Cart.SetBillDate)
		carts.POST("/:id/hold", h.Cart.Hold)
		carts.POST("/:id/resume", h.Cart.Resume)
		carts.POST("/:id/bill",
			middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo}),
			h.Cart.Bill)
	}
}

func registerInvoiceRoutes(v1 *gin.RouterGroup, h *Handlers) {
	invoices := v1.Group("/invoices")
	{
		invoices.GET("", h.Invoice.List)
		invoices.GET("/recent", h.Invoice.Recent)
		invoices.GET("/next-number", h.Invoice.NextNumber)
		invoices.GET("/orphans", middleware.RequireRole(utils.RoleManager), h.Invoice.Orphans)
		invoices.GET("/:id", h.Invoice.Get)
		invoices.GET("/:id/receipt.html", h.Invoice.ReceiptHTML)
		invoices.POST("/:id/edit", h.Invoice.Edit)
		invoices.DELETE("/:id", middleware.RequireRole(utils.RoleManager), h.Invoice.Delete)
	}
}

func registerPrinterRoutes(v1 *gin.RouterGroup, h *Handlers) {
	printer := v1.Group("/printer")
	{
		printer.GET("/status", h.Printer.GetStatus)
		printer.POST("/receipt", h.Printer.PrintReceipt)
		printer.POST("/test", h.Printer.TestPrint)
		printer.POST("/disconnect", h.Printer.Disconnect)
	}
}
