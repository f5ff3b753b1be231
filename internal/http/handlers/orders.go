package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Juanex7890/senalmaq2-sub000/internal/http/middleware"
	"github.com/Juanex7890/senalmaq2-sub000/internal/http/validation"
	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
	"github.com/Juanex7890/senalmaq2-sub000/internal/shared/apperr"
)

type OrdersHandler struct {
	Ledger *orders.Ledger
}

func NewOrdersHandler(l *orders.Ledger) *OrdersHandler {
	return &OrdersHandler{Ledger: l}
}

type orderStatusResponse struct {
	OrderID          string                `json:"orderId"`
	Status           orders.Status         `json:"status"`
	UpdatedAt        *time.Time            `json:"updatedAt"`
	History          []orders.HistoryEntry `json:"history"`
	VerificationCode string                `json:"verificationCode"`
	Items            []string              `json:"items"`
}

func toStatusResponse(r orders.Record) orderStatusResponse {
	r = r.Clone()
	at := r.UpdatedAt
	return orderStatusResponse{
		OrderID:          r.Reference,
		Status:           r.Status,
		UpdatedAt:        &at,
		History:          r.History,
		VerificationCode: r.VerificationCode,
		Items:            r.Items,
	}
}

// GET /api/orders/status?orderId=
// An unknown order is simply one no webhook has reached yet.
func (h *OrdersHandler) Status(c *gin.Context) {
	ref := orders.NormalizeReference(c.Query("orderId"))
	if ref == "" {
		middleware.Fail(c, apperr.InvalidErr("orderId is required.", map[string]string{"orderId": "This field is required."}))
		return
	}

	rec, err := h.Ledger.GetByReference(c.Request.Context(), ref)
	if errors.Is(err, orders.ErrNotFound) {
		c.JSON(http.StatusOK, orderStatusResponse{
			OrderID: ref,
			Status:  orders.StatusPending,
			History: []orders.HistoryEntry{},
			Items:   []string{},
		})
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(rec))
}

// GET /api/orders/lookup?code=
func (h *OrdersHandler) Lookup(c *gin.Context) {
	code := orders.NormalizeCode(c.Query("code"))
	if code == "" {
		middleware.Fail(c, apperr.InvalidErr("code is required.", map[string]string{"code": "This field is required."}))
		return
	}

	rec, err := h.Ledger.GetByVerificationCode(c.Request.Context(), code)
	if errors.Is(err, orders.ErrNotFound) {
		middleware.Fail(c, apperr.NotFoundErr("No order matches that verification code."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(rec))
}

type draftRequest struct {
	Reference string   `json:"reference" binding:"required,max=191"`
	Items     []string `json:"items" binding:"max=100,dive,max=500"`
}

// POST /api/orders/draft
func (h *OrdersHandler) RegisterDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid draft.", validation.FromBindError(err, &req)))
		return
	}
	ref := orders.NormalizeReference(req.Reference)
	if ref == "" {
		middleware.Fail(c, apperr.InvalidErr("Invalid draft.", map[string]string{"reference": "This field is required."}))
		return
	}

	items := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if it = strings.TrimSpace(it); it != "" {
			items = append(items, it)
		}
	}

	rec, err := h.Ledger.RegisterDraft(c.Request.Context(), ref, items)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, toStatusResponse(rec))
}
