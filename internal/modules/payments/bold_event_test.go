package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
)

func TestParseBoldEventReferencePrecedence(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"data.metadata.reference wins", `{"reference":"top","data":{"reference":"d","metadata":{"reference":"m","orderId":"o"}}}`, "m"},
		{"data.metadata.orderId", `{"data":{"metadata":{"orderId":"o","cartId":"c"}}}`, "o"},
		{"data.metadata.cartId", `{"data":{"metadata":{"cartId":"c"}},"metadata":{"reference":"top-m"}}`, "c"},
		{"metadata.reference", `{"metadata":{"reference":"top-m"},"data":{"reference":"d"}}`, "top-m"},
		{"metadata.orderId", `{"metadata":{"orderId":"mo"}}`, "mo"},
		{"metadata.cartId", `{"metadata":{"cartId":"mc"},"data":{"orderId":"do"}}`, "mc"},
		{"data.reference", `{"data":{"reference":"d","orderId":"do"}}`, "d"},
		{"data.orderId", `{"data":{"orderId":"do","cartId":"dc"}}`, "do"},
		{"data.cartId", `{"data":{"cartId":"dc"},"reference":"top"}`, "dc"},
		{"bare reference", `{"reference":"  top  "}`, "top"},
		{"numeric id", `{"data":{"metadata":{"orderId":12345}}}`, "12345"},
		{"blank values skipped", `{"data":{"metadata":{"reference":"  "}},"reference":"top"}`, "top"},
		{"wrong shape skipped", `{"data":"oops","reference":"top"}`, "top"},
		{"nothing", `{"type":"SALE_APPROVED"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseBoldEvent([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev.Reference)
		})
	}
}

func TestParseBoldEventTypePrecedence(t *testing.T) {
	cases := map[string]string{
		`{"type":"SALE_APPROVED","action":"X","data":{"status":"Y"}}`: "SALE_APPROVED",
		`{"action":"SALE_REJECTED","data":{"status":"Y"}}`:            "SALE_REJECTED",
		`{"data":{"status":"VOID_APPROVED"}}`:                         "VOID_APPROVED",
		`{"data":{}}`:                                                 "",
	}
	for body, want := range cases {
		ev, err := ParseBoldEvent([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, want, ev.Type, body)
	}
}

func TestParseBoldEventID(t *testing.T) {
	ev, err := ParseBoldEvent([]byte(`{"id":"evt-1","data":{"payment_id":"pay-1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", ev.ID)

	ev, err = ParseBoldEvent([]byte(`{"data":{"payment_id":"pay-1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "pay-1", ev.ID)
}

func TestParseBoldEventMalformed(t *testing.T) {
	for _, body := range []string{``, `{`, `[1,2]`, `"str"`, `null`} {
		_, err := ParseBoldEvent([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedPayload, body)
	}
}

func TestBoldStatus(t *testing.T) {
	cases := []struct {
		in   string
		want orders.Status
		ok   bool
	}{
		{"SALE_APPROVED", orders.StatusPaid, true},
		{"sale_approved", orders.StatusPaid, true},
		{"SALE_REJECTED", orders.StatusRejected, true},
		{"VOID_APPROVED", orders.StatusVoided, true},
		{"VOID_REJECTED", orders.StatusVoided, true},
		{"FOO_BAR", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		st, ok := BoldStatus(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, st, tc.in)
	}
}
