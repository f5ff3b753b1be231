package payments

import (
	"context"
	"log/slog"

	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
)

// WebhookService turns authenticated provider notifications into ledger
// transitions. Its methods never return errors: every failure is logged
// and reported as a flag so the HTTP layer can still acknowledge the
// delivery and keep the provider from retry-storming.
type WebhookService struct {
	ledger   Transitioner
	recorder *EventRecorder
	mp       MercadoPagoAPI
	mpSig    *MercadoPagoSignatureVerifier
	archive  Archiver
	logger   *slog.Logger
}

func NewWebhookService(ledger Transitioner, recorder *EventRecorder) *WebhookService {
	return &WebhookService{ledger: ledger, recorder: recorder, logger: slog.Default()}
}

func (s *WebhookService) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *WebhookService) SetMercadoPago(api MercadoPagoAPI, sig *MercadoPagoSignatureVerifier) {
	s.mp = api
	s.mpSig = sig
}

func (s *WebhookService) SetArchive(a Archiver) { s.archive = a }

func (s *WebhookService) Recorder() *EventRecorder { return s.recorder }

// BoldOutcome summarizes one Bold delivery.
type BoldOutcome struct {
	OK           bool
	Event        BoldEvent
	Transitioned bool
	Status       orders.Status
}

// HandleBold processes a body whose signature has already been verified.
func (s *WebhookService) HandleBold(ctx context.Context, body []byte, requestID string) BoldOutcome {
	log := s.logger.With("provider", ProviderBold, "request_id", requestID)

	s.archiveBody(ctx, log, ProviderBold, body)

	ev, err := ParseBoldEvent(body)
	if err != nil {
		log.WarnContext(ctx, "webhook payload unparseable", "err", err, "bytes", len(body))
		return BoldOutcome{OK: false}
	}
	log = log.With("event_id", ev.ID, "event_type", ev.Type, "reference", ev.Reference)

	rec := s.recorder.Record(ev)
	log = log.With("audit_id", rec.ID)

	st, ok := BoldStatus(ev.Type)
	if !ok {
		log.InfoContext(ctx, "webhook unhandled type")
		return BoldOutcome{OK: true, Event: ev}
	}
	if ev.Reference == "" {
		log.WarnContext(ctx, "webhook event without order reference")
		return BoldOutcome{OK: true, Event: ev}
	}

	order, applied, err := s.ledger.Transition(ctx, ev.Reference, st)
	if err != nil {
		log.ErrorContext(ctx, "webhook transition failed", "status", st, "err", err)
		return BoldOutcome{OK: false, Event: ev}
	}
	log.InfoContext(ctx, "webhook transition applied", "status", st, "verification_code", order.VerificationCode)
	return BoldOutcome{OK: true, Event: ev, Transitioned: applied, Status: st}
}

// MercadoPagoOutcome summarizes one Mercado Pago delivery. Handled is true
// only when the ledger was changed.
type MercadoPagoOutcome struct {
	Handled   bool
	Reference string
	Status    string
}

func (s *WebhookService) HandleMercadoPago(ctx context.Context, n MercadoPagoNotification, rawBody []byte, requestID string) MercadoPagoOutcome {
	log := s.logger.With("provider", ProviderMercadoPago, "request_id", requestID,
		"kind", n.Kind, "action", n.Action, "event_id", n.ID)

	if s.mpSig.Configured() {
		if err := s.mpSig.Verify(n); err != nil {
			log.WarnContext(ctx, "webhook signature rejected", "security", true, "err", err)
			return MercadoPagoOutcome{}
		}
	}
	if s.mp == nil {
		log.ErrorContext(ctx, "mercadopago client not configured")
		return MercadoPagoOutcome{}
	}

	s.archiveBody(ctx, log, ProviderMercadoPago, rawBody)

	if n.ID == "" {
		log.WarnContext(ctx, "webhook notification without id")
		return MercadoPagoOutcome{}
	}

	switch n.Kind {
	case MercadoPagoKindPayment:
		return s.reconcilePayment(ctx, log, n.ID)
	case MercadoPagoKindMerchantOrder:
		mo, err := s.mp.FetchMerchantOrder(ctx, n.ID)
		if err != nil {
			log.ErrorContext(ctx, "merchant order fetch failed", "err", err)
			return MercadoPagoOutcome{}
		}
		log.InfoContext(ctx, "merchant order notification",
			"reference", mo.ExternalReference, "status", mo.Status, "order_status", mo.OrderStatus)
		return MercadoPagoOutcome{Reference: mo.ExternalReference, Status: mo.Status}
	default:
		log.InfoContext(ctx, "webhook unhandled kind")
		return MercadoPagoOutcome{}
	}
}

// reconcilePayment fetches before touching the ledger so no lock is held
// across the network call.
func (s *WebhookService) reconcilePayment(ctx context.Context, log *slog.Logger, id string) MercadoPagoOutcome {
	p, err := s.mp.FetchPayment(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "payment fetch failed", "err", err)
		return MercadoPagoOutcome{}
	}
	ref := orders.NormalizeReference(p.ExternalReference)
	log = log.With("reference", ref, "payment_status", p.Status, "status_detail", p.StatusDetail)

	if p.Status != MercadoPagoStatusApproved {
		log.InfoContext(ctx, "payment not approved")
		return MercadoPagoOutcome{Reference: ref, Status: p.Status}
	}
	if ref == "" {
		log.WarnContext(ctx, "approved payment without external reference")
		return MercadoPagoOutcome{Status: p.Status}
	}

	order, applied, err := s.ledger.Transition(ctx, ref, orders.StatusPaid)
	if err != nil {
		log.ErrorContext(ctx, "webhook transition failed", "err", err)
		return MercadoPagoOutcome{Reference: ref, Status: p.Status}
	}
	log.InfoContext(ctx, "webhook transition applied", "status", orders.StatusPaid, "verification_code", order.VerificationCode)
	return MercadoPagoOutcome{Handled: applied, Reference: ref, Status: p.Status}
}

func (s *WebhookService) archiveBody(ctx context.Context, log *slog.Logger, provider string, body []byte) {
	if s.archive == nil || len(body) == 0 {
		return
	}
	key, err := s.archive.Archive(ctx, provider, body)
	if err != nil {
		log.WarnContext(ctx, "webhook archive failed", "err", err)
		return
	}
	log.DebugContext(ctx, "webhook archived", "archive_key", key)
}
