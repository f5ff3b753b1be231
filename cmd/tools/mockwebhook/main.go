package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/payments"
)

type boldPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		PaymentID string `json:"payment_id"`
		Amount    struct {
			Total    int64  `json:"total"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Metadata struct {
			Reference string `json:"reference"`
		} `json:"metadata"`
	} `json:"data"`
}

type mercadoPagoPayload struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func main() {
	provider := flag.String("provider", payments.ProviderBold, "Provider (bold, mercadopago)")
	target := flag.String("url", "", "Webhook URL (default depends on provider)")
	secret := flag.String("secret", "", "Signing secret (default BOLD_WEBHOOK_SECRET / MERCADOPAGO_WEBHOOK_SECRET)")
	eventType := flag.String("type", payments.BoldSaleApproved, "Bold event type (SALE_APPROVED, SALE_REJECTED, VOID_APPROVED)")
	reference := flag.String("reference", "cart-"+uuid.NewString()[:8], "Order reference (Bold)")
	amount := flag.Int64("amount", 10000, "Amount (Bold)")
	currency := flag.String("currency", "COP", "Currency (Bold)")
	paymentID := flag.String("id", "", "Payment id (Mercado Pago)")
	dryRun := flag.Bool("dry-run", false, "Only print headers and body, don't send")

	flag.Parse()

	var (
		body    []byte
		headers = map[string]string{"Content-Type": "application/json"}
		err     error
	)

	switch *provider {
	case payments.ProviderBold:
		if *secret == "" {
			*secret = os.Getenv("BOLD_WEBHOOK_SECRET")
		}
		if *secret == "" {
			fail("secret not provided and BOLD_WEBHOOK_SECRET not set")
		}
		if *target == "" {
			*target = "http://localhost:8080/api/payments/bold/webhook"
		}

		p := boldPayload{ID: "evt_" + uuid.NewString(), Type: *eventType}
		p.Data.PaymentID = "pay_" + uuid.NewString()[:8]
		p.Data.Amount.Total = *amount
		p.Data.Amount.Currency = *currency
		p.Data.Metadata.Reference = *reference

		body, err = json.Marshal(p)
		if err != nil {
			fail("marshal payload: %v", err)
		}
		headers[payments.BoldSignatureHeader] = payments.SignBoldBody(*secret, body)

	case payments.ProviderMercadoPago:
		if *paymentID == "" {
			fail("-id is required for mercadopago")
		}
		if *target == "" {
			*target = "http://localhost:8080/api/payments/mercadopago/webhook"
		}

		p := mercadoPagoPayload{Type: payments.MercadoPagoKindPayment, Action: "payment.updated"}
		p.Data.ID = *paymentID
		body, err = json.Marshal(p)
		if err != nil {
			fail("marshal payload: %v", err)
		}

		if *secret == "" {
			*secret = os.Getenv("MERCADOPAGO_WEBHOOK_SECRET")
		}
		if *secret != "" {
			rid := uuid.NewString()
			headers[payments.MercadoPagoRequestIDHeader] = rid
			headers[payments.MercadoPagoSignatureHeader] = payments.SignMercadoPagoNotification(*secret, *paymentID, rid, time.Now().Unix())
		}

	default:
		fail("unknown provider %q", *provider)
	}

	for k, v := range headers {
		fmt.Printf("%s: %s\n", k, v)
	}
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *target)
	req, err := http.NewRequest(http.MethodPost, *target, bytes.NewReader(body))
	if err != nil {
		fail("create request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fail("send request: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
