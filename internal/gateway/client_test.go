package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"commerce-service/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSession(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1","amount_total":1150,"currency":"egp","client_reference_id":"42","customer_email":"buyer@example.com"}`))
	}))
	defer srv.Close()

	client := NewClient(config.GatewayConfig{
		SecretKey: "sk_test_123",
		BaseURL:   srv.URL,
		Currency:  "egp",
	})

	session, err := client.CreateCheckoutSession(context.Background(), SessionParams{
		AmountTotal:       1150,
		ProductName:       "Order for buyer@example.com",
		CustomerEmail:     "buyer@example.com",
		ClientReferenceID: "42",
		SuccessURL:        "http://localhost/orders",
		CancelURL:         "http://localhost/cart",
		Metadata: map[string]string{
			"user_id": "7",
			"city":    "Cairo",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, int64(1150), session.AmountTotal)

	assert.Equal(t, "payment", form["mode"][0])
	assert.Equal(t, "1150", form["line_items[0][price_data][unit_amount]"][0])
	assert.Equal(t, "42", form["client_reference_id"][0])

	// session metadata travels key-by-key; the cart owner rides along with
	// the shipping address
	assert.Equal(t, "7", form["metadata[user_id]"][0])
	assert.Equal(t, "Cairo", form["metadata[city]"][0])
}

func TestCreateCheckoutSessionGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"card declined"}}`))
	}))
	defer srv.Close()

	client := NewClient(config.GatewayConfig{BaseURL: srv.URL, Currency: "egp"})

	_, err := client.CreateCheckoutSession(context.Background(), SessionParams{AmountTotal: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
}
