package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Juanex7890/senalmaq2-sub000/internal/http/handlers"
	"github.com/Juanex7890/senalmaq2-sub000/internal/http/middleware"
	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/payments"
)

// Deps is everything the route table needs. A nil Bold verifier or
// IntegritySigner still mounts its route; the handler answers 500 so a
// missing secret is loud rather than silently unverified.
type Deps struct {
	Logger       *slog.Logger
	Ledger       *orders.Ledger
	Webhooks     *payments.WebhookService
	Bold         *payments.BoldVerifier
	Signer       *payments.IntegritySigner
	BoldEnabled  bool
	MPEnabled    bool
	SupportToken string
	Health       handlers.HealthInfo
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
	)

	r.GET("/healthz", handlers.Health(d.Health))

	wh := handlers.NewWebhookHandler(d.Logger, d.Bold, d.Webhooks)
	ordersH := handlers.NewOrdersHandler(d.Ledger)
	support := middleware.RequireSupportToken(d.SupportToken, d.Logger)

	api := r.Group("/api")
	{
		pay := api.Group("/payments")
		if d.BoldEnabled {
			pay.POST("/bold/webhook", wh.Bold)
			pay.POST("/bold/signature", middleware.NoCache(), handlers.NewSignatureHandler(d.Signer).Create)
			pay.GET("/bold/events", support, middleware.NoCache(), handlers.NewEventsHandler(d.Webhooks.Recorder()).List)
		}
		if d.MPEnabled {
			pay.POST("/mercadopago/webhook", wh.MercadoPago)
			pay.GET("/mercadopago/webhook", wh.MercadoPago)
		}

		ord := api.Group("/orders", middleware.NoCache())
		ord.GET("/status", ordersH.Status)
		// Verification codes are short enough to enumerate; lookup is a support tool.
		ord.GET("/lookup", support, ordersH.Lookup)
		ord.POST("/draft", support, ordersH.RegisterDraft)
	}

	return r
}
