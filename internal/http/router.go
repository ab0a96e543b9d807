package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/config"
	"github.com/57nyambu/dima-backend-sub000/internal/http/handlers"
	"github.com/57nyambu/dima-backend-sub000/internal/http/middleware"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/business"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/catalog"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/marketplace"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/notifications"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments/daraja"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/settlement"
)

// NewRouter wires the services and the event handlers that replace the old
// implicit signal dispatch: delivery triggers settlement, everything else
// goes to the notification log handler.
func NewRouter(logger *slog.Logger, db *gorm.DB, cfg config.Config) *gin.Engine {
	bus := notifications.NewBus(logger)
	bus.Subscribe(notifications.OrderPlaced{}.Name(), notifications.LogHandler(logger))
	bus.Subscribe(notifications.OrderConfirmed{}.Name(), notifications.LogHandler(logger))
	bus.Subscribe(notifications.PaymentFailed{}.Name(), notifications.LogHandler(logger))
	bus.Subscribe(notifications.SettlementReleased{}.Name(), notifications.LogHandler(logger))

	settings := marketplace.NewManager(db, marketplace.Defaults{
		CommissionRateBps: cfg.CommissionRateBps,
		ProcessingFeeBps:  cfg.ProcessingFeeBps,
		Currency:          cfg.Currency,
	})

	gateway := daraja.NewClient(daraja.Config{
		ConsumerKey:    cfg.Daraja.ConsumerKey,
		ConsumerSecret: cfg.Daraja.ConsumerSecret,
		Shortcode:      cfg.Daraja.Shortcode,
		Passkey:        cfg.Daraja.Passkey,
		BaseURL:        cfg.Daraja.BaseURL,
		CallbackURL:    cfg.Daraja.CallbackURL,
		Timeout:        cfg.Daraja.Timeout,
	})

	splitter := orders.NewSplitter(db, catalog.NewRepo(db), business.NewRepo(db), bus, logger)
	paySvc := payments.NewService(db, gateway, logger)
	webhookSvc := payments.NewWebhookService(db, bus, logger)
	lifecycle := orders.NewLifecycleService(db, bus, logger)
	settleSvc := settlement.NewService(db, settings, bus, logger)
	bus.Subscribe(notifications.OrderDelivered{}.Name(), settleSvc.DeliveredHandler())

	checkoutH := handlers.NewCheckoutHandler(splitter, paySvc, logger)
	paymentH := handlers.NewPaymentHandler(paySvc, webhookSvc, logger)
	orderH := handlers.NewOrderHandler(orders.NewRepo(db))
	adminH := handlers.NewAdminHandler(lifecycle, settings)

	r := gin.New()
	// ErrorHandler before Recovery: a recovered panic is recorded as a gin
	// error and still rendered by the error handler on the way out.
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.ErrorHandler(logger),
		middleware.Recovery(logger),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.POST("/checkout", checkoutH.Post)
	r.POST("/payments/initiate", paymentH.Initiate)
	r.POST("/payments/callback", paymentH.Callback)
	r.GET("/orders", orderH.List)
	r.GET("/orders/:id", orderH.Get)

	admin := r.Group("/admin")
	admin.POST("/orders/:id/transition", adminH.Transition)
	admin.PUT("/settings", adminH.UpdateSettings)

	return r
}
