package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Juanex7890/senalmaq2-sub000/internal/http/middleware"
	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/payments"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Logger       *slog.Logger
	BoldVerifier *payments.BoldVerifier
	Svc          *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, bold *payments.BoldVerifier, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, BoldVerifier: bold, Svc: svc}
}

// POST /api/payments/bold/webhook
// The signature is checked over the raw bytes before anything is parsed.
// After that the provider always gets a 200 so it does not retry-storm.
func (h *WebhookHandler) Bold(c *gin.Context) {
	rid := middleware.GetRequestID(c)
	log := h.Logger.With("provider", payments.ProviderBold, "request_id", rid)

	if !h.BoldVerifier.Configured() {
		log.ErrorContext(c.Request.Context(), "bold webhook secret not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if err := h.BoldVerifier.Verify(body, c.GetHeader(payments.BoldSignatureHeader)); err != nil {
		log.WarnContext(c.Request.Context(), "webhook signature rejected",
			"security", true,
			"reason", err.Error(),
			"client_ip", c.ClientIP(),
		)
		status := http.StatusBadRequest
		if errors.Is(err, payments.ErrSecretNotConfigured) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"ok": false, "error": "invalid signature"})
		return
	}

	out := h.Svc.HandleBold(c.Request.Context(), body, rid)
	c.JSON(http.StatusOK, gin.H{"ok": out.OK})
}

// POST|GET /api/payments/mercadopago/webhook
// Accepts the JSON notification body or the query-string form.
func (h *WebhookHandler) MercadoPago(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		b, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			h.Logger.WarnContext(c.Request.Context(), "webhook body unreadable",
				"provider", payments.ProviderMercadoPago, "err", err)
		}
		body = b
	}

	n := payments.ParseMercadoPagoNotification(c.Request.URL.Query(), body)
	n.RequestID = c.GetHeader(payments.MercadoPagoRequestIDHeader)
	n.Signature = c.GetHeader(payments.MercadoPagoSignatureHeader)

	out := h.Svc.HandleMercadoPago(c.Request.Context(), n, body, middleware.GetRequestID(c))
	c.JSON(http.StatusOK, gin.H{"received": true, "handled": out.Handled})
}
