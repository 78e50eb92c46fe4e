package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sangkips/tillpoint/internal/application/cart"
	"github.com/sangkips/tillpoint/internal/application/service"
	"github.com/sangkips/tillpoint/internal/bootstrap"
	"github.com/sangkips/tillpoint/internal/config"
	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/logger"
	"github.com/sangkips/tillpoint/internal/presentation/http/handler"
	"github.com/sangkips/tillpoint/internal/presentation/http/middleware"
	"github.com/sangkips/tillpoint/internal/presentation/http/routes"
	"github.com/sangkips/tillpoint/internal/presentation/ws"
	"github.com/sangkips/tillpoint/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := logger.Setup(logger.LogConfig{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: time.RFC3339,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}
	mainLog := logger.WithComponent("main")

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Billing.Location()
	if err != nil {
		mainLog.Fatal().Err(err).Msg("invalid billing timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores and change feed
	stores, err := bootstrap.OpenStores(cfg, loc, logger.WithComponent("database"))
	if err != nil {
		mainLog.Fatal().Err(err).Msg("failed to open the order store")
	}
	defer stores.Close()

	feed, closeFeed := bootstrap.OpenFeed(ctx, cfg, logger.WithComponent("changefeed"))
	defer closeFeed()

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Services
	carts := cart.NewRegistry()
	book := service.NewInvoiceBook(stores.Orders, loc, cfg.Billing.WindowDays, log.Logger)
	billingService := service.NewBillingService(
		stores.Orders, stores.Lines, stores.Products,
		carts, book, feed, service.NewOrphanRegistry(), loc, log.Logger,
	)
	productService := service.NewProductService(stores.Products, log.Logger)
	cartService := service.NewCartService(carts, productService, log.Logger)

	dispatcher, err := bootstrap.NewDispatcher(&cfg.Printer, nil, log.Logger)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("invalid printer configuration")
	}
	settingsService := service.NewSettingsService(stores.Settings, entity.ShopSettings{
		Name:    cfg.Shop.Name,
		Address: cfg.Shop.Address,
		Phone:   cfg.Shop.Phone,
		Footer:  cfg.Shop.Footer,
	}, log.Logger)
	printerService := service.NewPrinterService(dispatcher, billingService, settingsService, loc, service.PrinterSettings{
		Type:         cfg.Printer.Type,
		Device:       cfg.Printer.Device,
		PaperWidthMM: cfg.Printer.PaperWidthMM,
		CloseDelay:   cfg.Printer.CloseDelay,
	}, log.Logger)

	// Push every new invoice list to connected tills
	hub := ws.NewHub(log.Logger)
	book.OnChange(func(snap service.InvoiceSnapshot) {
		hub.Broadcast(ws.Message{Type: ws.MessageInvoicesSnapshot, Data: snap})
	})
	go hub.Run(ctx)

	syncService := service.NewSyncService(book, feed, service.SyncSettings{
		PollInterval: cfg.Sync.PollInterval,
		LoadTimeout:  cfg.Sync.LoadTimeout,
		LoadAttempts: cfg.Sync.LoadAttempts,
		LoadBackoff:  cfg.Sync.LoadBackoff,
	}, log.Logger)
	if err := syncService.InitialLoad(ctx); err != nil {
		mainLog.Warn().Err(err).Msg("serving with a degraded invoice list")
	}
	go func() {
		if err := syncService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			mainLog.Error().Err(err).Msg("invoice sync stopped")
		}
	}()

	go middleware.PurgeExpiredKeys(ctx, stores.Idempotency, time.Hour)

	// Initialize handlers
	handlers := &routes.Handlers{
		Health:   handler.NewHealthHandler(cfg.App.Name, billingService, printerService),
		Product:  handler.NewProductHandler(productService),
		Cart:     handler.NewCartHandler(cartService, billingService),
		Invoice:  handler.NewInvoiceHandler(billingService, printerService),
		Printer:  handler.NewPrinterHandler(printerService),
		Settings: handler.NewSettingsHandler(settingsService),
		WS:       handler.NewWSHandler(hub, billingService, cfg.CORS.AllowedOrigins),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: stores.Idempotency,
		Logger:          logger.WithComponent("http"),
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		mainLog.Info().Str("port", port).Str("env", cfg.App.Env).Msgf("starting %s server", cfg.App.Name)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLog.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	mainLog.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	printerService.Disconnect()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}
	mainLog.Info().Msg("server exiting")
}
