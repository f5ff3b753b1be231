package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MercadoPagoSignatureHeader = "X-Signature"
	MercadoPagoRequestIDHeader = "X-Request-Id"

	MercadoPagoKindPayment       = "payment"
	MercadoPagoKindMerchantOrder = "merchant_order"

	MercadoPagoStatusApproved = "approved"
)

// MercadoPagoNotification is what the webhook tells us: only a kind and
// an id. The real state must be fetched.
type MercadoPagoNotification struct {
	Kind      string
	Action    string
	ID        string
	RequestID string
	Signature string
}

// ParseMercadoPagoNotification accepts both the JSON body form and the
// legacy query-string (IPN) form. Body fields win over query fields.
func ParseMercadoPagoNotification(query url.Values, body []byte) MercadoPagoNotification {
	var n MercadoPagoNotification

	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var payload map[string]any
		if err := dec.Decode(&payload); err == nil && payload != nil {
			n.Kind = firstMatch(payload, []extractor{pathExtractor("type"), pathExtractor("topic")})
			n.Action = firstMatch(payload, []extractor{pathExtractor("action")})
			n.ID = firstMatch(payload, []extractor{pathExtractor("data", "id"), pathExtractor("id")})
		}
	}

	if n.Kind == "" {
		n.Kind = firstNonEmpty(query.Get("type"), query.Get("topic"))
	}
	if n.Action == "" {
		n.Action = strings.TrimSpace(query.Get("action"))
	}
	if n.ID == "" {
		n.ID = firstNonEmpty(query.Get("data.id"), query.Get("id"))
	}
	if n.Kind == "" && n.Action != "" {
		// "payment.updated" -> "payment"
		n.Kind, _, _ = strings.Cut(n.Action, ".")
	}
	n.Kind = strings.ToLower(strings.TrimSpace(n.Kind))
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// MercadoPagoSignatureVerifier checks the optional x-signature header
// ("ts=<unix>,v1=<hex>") over the manifest "id:<id>;request-id:<rid>;ts:<ts>;".
type MercadoPagoSignatureVerifier struct {
	secret []byte
}

func NewMercadoPagoSignatureVerifier(secret string) *MercadoPagoSignatureVerifier {
	return &MercadoPagoSignatureVerifier{secret: []byte(secret)}
}

func (v *MercadoPagoSignatureVerifier) Configured() bool {
	return v != nil && len(v.secret) > 0
}

func (v *MercadoPagoSignatureVerifier) Verify(n MercadoPagoNotification) error {
	if !v.Configured() {
		return ErrSecretNotConfigured
	}
	ts, sig := parseSignatureHeader(n.Signature)
	if ts == "" || sig == "" {
		return ErrMissingSignature
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrMalformedSignature
	}
	want := computeHMAC(v.secret, []byte(mercadoPagoManifest(n.ID, n.RequestID, ts)))
	if len(got) != len(want) || !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}

// SignMercadoPagoNotification builds an x-signature header value.
func SignMercadoPagoNotification(secret, id, requestID string, ts int64) string {
	t := fmt.Sprintf("%d", ts)
	mac := computeHMAC([]byte(secret), []byte(mercadoPagoManifest(id, requestID, t)))
	return "ts=" + t + ",v1=" + hex.EncodeToString(mac)
}

func mercadoPagoManifest(id, requestID, ts string) string {
	var b strings.Builder
	if id != "" {
		b.WriteString("id:" + strings.ToLower(id) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func parseSignatureHeader(h string) (ts, v1 string) {
	for _, part := range strings.Split(h, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}

// MercadoPagoPayment is the part of GET /v1/payments/{id} we use.
type MercadoPagoPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
}

// MercadoPagoMerchantOrder is the part of GET /merchant_orders/{id} we log.
type MercadoPagoMerchantOrder struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	OrderStatus       string      `json:"order_status"`
	ExternalReference string      `json:"external_reference"`
}

type MercadoPagoConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// MercadoPagoClient performs the authenticated follow-up fetches.
type MercadoPagoClient struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

func NewMercadoPagoClient(cfg MercadoPagoConfig) *MercadoPagoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.mercadopago.com"
	}
	return &MercadoPagoClient{
		baseURL: strings.TrimRight(base, "/"),
		token:   cfg.AccessToken,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *MercadoPagoClient) FetchPayment(ctx context.Context, id string) (MercadoPagoPayment, error) {
	var p MercadoPagoPayment
	err := c.get(ctx, "/v1/payments/"+url.PathEscape(id), &p)
	return p, err
}

func (c *MercadoPagoClient) FetchMerchantOrder(ctx context.Context, id string) (MercadoPagoMerchantOrder, error) {
	var mo MercadoPagoMerchantOrder
	err := c.get(ctx, "/merchant_orders/"+url.PathEscape(id), &mo)
	return mo, err
}

func (c *MercadoPagoClient) get(ctx context.Context, path string, dst any) error {
	if c.token == "" {
		return ErrSecretNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("mercadopago GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("mercadopago GET %s: decode: %w", path, err)
	}
	return nil
}
