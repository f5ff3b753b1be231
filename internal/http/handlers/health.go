package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthInfo struct {
	Store       string `json:"store"`
	Archive     string `json:"archive"`
	Bold        bool   `json:"bold"`
	MercadoPago bool   `json:"mercadopago"`
	Notifier    string `json:"notifier"`
}

// Health reports static wiring; it does not call out to dependencies.
func Health(info HealthInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "components": info})
	}
}
