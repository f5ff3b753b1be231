package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Juanex7890/senalmaq2-sub000/internal/http/middleware"
	"github.com/Juanex7890/senalmaq2-sub000/internal/http/validation"
	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/payments"
	"github.com/Juanex7890/senalmaq2-sub000/internal/shared/apperr"
)

type SignatureHandler struct {
	Signer *payments.IntegritySigner
}

func NewSignatureHandler(s *payments.IntegritySigner) *SignatureHandler {
	return &SignatureHandler{Signer: s}
}

type signatureRequest struct {
	OrderID  string `json:"orderId" binding:"required,max=128"`
	Amount   string `json:"amount" binding:"required,max=32"`
	Currency string `json:"currency" binding:"required"`
}

// POST /api/payments/bold/signature
func (h *SignatureHandler) Create(c *gin.Context) {
	if !h.Signer.Configured() {
		middleware.Fail(c, apperr.InternalErr("Payment signing is not available.", payments.ErrSecretNotConfigured))
		return
	}

	var req signatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid signature request.", validation.FromBindError(err, &req)))
		return
	}

	sig, err := h.Signer.Sign(payments.IntegrityRequest{
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, sig)
	case errors.Is(err, payments.ErrMissingOrderID):
		middleware.Fail(c, apperr.InvalidErr("Invalid signature request.", map[string]string{"orderId": "This field is required."}))
	case errors.Is(err, payments.ErrInvalidAmount):
		middleware.Fail(c, apperr.InvalidErr("Invalid signature request.", map[string]string{"amount": "Must be a non-negative amount with at most two decimals."}))
	case errors.Is(err, payments.ErrUnsupportedCurrency):
		middleware.Fail(c, apperr.InvalidErr("Invalid signature request.", map[string]string{"currency": "Must be one of: COP, USD."}))
	default:
		middleware.Fail(c, apperr.InternalErr("Payment signing is not available.", err))
	}
}
