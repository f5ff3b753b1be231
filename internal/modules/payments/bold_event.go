package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
)

const (
	BoldSaleApproved = "SALE_APPROVED"
	BoldSaleRejected = "SALE_REJECTED"
	boldVoidPrefix   = "VOID_"
)

// extractor pulls one candidate string out of a decoded payload; "" means
// the field is absent.
type extractor func(payload map[string]any) string

// Bold payload shapes differ between event types. Each chain lists the
// places a field may live, most specific first.
var (
	boldTypeExtractors = []extractor{
		pathExtractor("type"),
		pathExtractor("action"),
		pathExtractor("data", "status"),
	}

	boldReferenceExtractors = []extractor{
		pathExtractor("data", "metadata", "reference"),
		pathExtractor("data", "metadata", "orderId"),
		pathExtractor("data", "metadata", "cartId"),
		pathExtractor("metadata", "reference"),
		pathExtractor("metadata", "orderId"),
		pathExtractor("metadata", "cartId"),
		pathExtractor("data", "reference"),
		pathExtractor("data", "orderId"),
		pathExtractor("data", "cartId"),
		pathExtractor("reference"),
	}

	boldEventIDExtractors = []extractor{
		pathExtractor("id"),
		pathExtractor("data", "payment_id"),
	}
)

// BoldEvent is a verified, decoded Bold notification.
type BoldEvent struct {
	ID        string
	Type      string
	Reference string
	Payload   map[string]any
}

func ParseBoldEvent(body []byte) (BoldEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return BoldEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload == nil {
		return BoldEvent{}, fmt.Errorf("%w: not a JSON object", ErrMalformedPayload)
	}

	return BoldEvent{
		ID:        firstMatch(payload, boldEventIDExtractors),
		Type:      firstMatch(payload, boldTypeExtractors),
		Reference: orders.NormalizeReference(firstMatch(payload, boldReferenceExtractors)),
		Payload:   payload,
	}, nil
}

// BoldStatus maps a Bold event type onto a ledger status. ok is false for
// types that only go to the audit log.
func BoldStatus(eventType string) (st orders.Status, ok bool) {
	t := strings.ToUpper(strings.TrimSpace(eventType))
	switch {
	case t == BoldSaleApproved:
		return orders.StatusPaid, true
	case t == BoldSaleRejected:
		return orders.StatusRejected, true
	case strings.HasPrefix(t, boldVoidPrefix):
		return orders.StatusVoided, true
	}
	return "", false
}

func firstMatch(payload map[string]any, chain []extractor) string {
	for _, ex := range chain {
		if v := ex(payload); v != "" {
			return v
		}
	}
	return ""
}

func pathExtractor(path ...string) extractor {
	return func(payload map[string]any) string {
		var cur any = payload
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				return ""
			}
			if cur, ok = m[key]; !ok {
				return ""
			}
		}
		return scalarString(cur)
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%v", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return ""
}
