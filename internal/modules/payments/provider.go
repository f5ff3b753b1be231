package payments

import (
	"context"

	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
)

const (
	ProviderBold        = "bold"
	ProviderMercadoPago = "mercadopago"
)

// Transitioner is the ledger surface reconciliation needs.
type Transitioner interface {
	Transition(ctx context.Context, ref string, st orders.Status) (orders.Record, bool, error)
}

// MercadoPagoAPI is the secondary-fetch surface of MercadoPagoClient.
type MercadoPagoAPI interface {
	FetchPayment(ctx context.Context, id string) (MercadoPagoPayment, error)
	FetchMerchantOrder(ctx context.Context, id string) (MercadoPagoMerchantOrder, error)
}

// Archiver keeps a copy of verified raw payloads.
type Archiver interface {
	Archive(ctx context.Context, provider string, body []byte) (string, error)
}
