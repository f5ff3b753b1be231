package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/payments"
)

type EventsHandler struct {
	Recorder *payments.EventRecorder
}

func NewEventsHandler(r *payments.EventRecorder) *EventsHandler {
	return &EventsHandler{Recorder: r}
}

// GET /api/payments/bold/events?reference=
func (h *EventsHandler) List(c *gin.Context) {
	var events []payments.EventRecord
	if ref := strings.TrimSpace(c.Query("reference")); ref != "" {
		events = h.Recorder.ByReference(ref)
	} else {
		events = h.Recorder.List()
	}
	if events == nil {
		events = []payments.EventRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
