package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMercadoPagoNotification(t *testing.T) {
	cases := []struct {
		name  string
		query url.Values
		body  string
		want  MercadoPagoNotification
	}{
		{
			name: "json body",
			body: `{"action":"payment.updated","type":"payment","data":{"id":"999"}}`,
			want: MercadoPagoNotification{Kind: "payment", Action: "payment.updated", ID: "999"},
		},
		{
			name: "numeric data id",
			body: `{"type":"payment","data":{"id":123456789012}}`,
			want: MercadoPagoNotification{Kind: "payment", ID: "123456789012"},
		},
		{
			name:  "ipn query",
			query: url.Values{"topic": {"merchant_order"}, "id": {"555"}},
			want:  MercadoPagoNotification{Kind: "merchant_order", ID: "555"},
		},
		{
			name:  "webhook query",
			query: url.Values{"type": {"payment"}, "data.id": {"777"}},
			want:  MercadoPagoNotification{Kind: "payment", ID: "777"},
		},
		{
			name: "kind from action",
			body: `{"action":"payment.created","data":{"id":"1"}}`,
			want: MercadoPagoNotification{Kind: "payment", Action: "payment.created", ID: "1"},
		},
		{
			name:  "body wins over query",
			query: url.Values{"type": {"merchant_order"}, "id": {"2"}},
			body:  `{"type":"payment","data":{"id":"1"}}`,
			want:  MercadoPagoNotification{Kind: "payment", ID: "1"},
		},
		{
			name:  "garbage body falls back to query",
			query: url.Values{"topic": {"Payment"}, "id": {"3"}},
			body:  `not json`,
			want:  MercadoPagoNotification{Kind: "payment", ID: "3"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.query
			if q == nil {
				q = url.Values{}
			}
			assert.Equal(t, tc.want, ParseMercadoPagoNotification(q, []byte(tc.body)))
		})
	}
}

func TestMercadoPagoSignature(t *testing.T) {
	v := NewMercadoPagoSignatureVerifier("mp-secret")
	n := MercadoPagoNotification{Kind: "payment", ID: "ABC999", RequestID: "req-1"}
	n.Signature = SignMercadoPagoNotification("mp-secret", "ABC999", "req-1", 1704908010)

	require.NoError(t, v.Verify(n))

	tampered := n
	tampered.ID = "ABC998"
	assert.ErrorIs(t, v.Verify(tampered), ErrInvalidSignature)

	missing := n
	missing.Signature = ""
	assert.ErrorIs(t, v.Verify(missing), ErrMissingSignature)

	bad := n
	bad.Signature = "ts=1,v1=nothex"
	assert.ErrorIs(t, v.Verify(bad), ErrMalformedSignature)

	assert.ErrorIs(t, NewMercadoPagoSignatureVerifier("").Verify(n), ErrSecretNotConfigured)
}

func TestMercadoPagoClientFetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/payments/999":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":999,"status":"approved","status_detail":"accredited","external_reference":"cart-7"}`))
		case "/merchant_orders/555":
			_, _ = w.Write([]byte(`{"id":555,"status":"closed","order_status":"paid","external_reference":"cart-8"}`))
		default:
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewMercadoPagoClient(MercadoPagoConfig{BaseURL: srv.URL + "/", AccessToken: "tok", Timeout: time.Second})

	p, err := c.FetchPayment(context.Background(), "999")
	require.NoError(t, err)
	assert.Equal(t, "approved", p.Status)
	assert.Equal(t, "cart-7", p.ExternalReference)
	assert.Equal(t, "999", p.ID.String())

	mo, err := c.FetchMerchantOrder(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, "cart-8", mo.ExternalReference)

	_, err = c.FetchPayment(context.Background(), "404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestMercadoPagoClientTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewMercadoPagoClient(MercadoPagoConfig{BaseURL: srv.URL, AccessToken: "tok", Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := c.FetchPayment(context.Background(), "1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMercadoPagoClientWithoutToken(t *testing.T) {
	_, err := NewMercadoPagoClient(MercadoPagoConfig{}).FetchPayment(context.Background(), "1")
	assert.ErrorIs(t, err, ErrSecretNotConfigured)
}
