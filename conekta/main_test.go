package conekta

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "application/vnd.conekta-v2.0.0+json", r.Header.Get("Accept"))

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_test", user)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MXN", body["currency"])

		charges := body["charges"].([]interface{})
		require.Len(t, charges, 1)
		method := charges[0].(map[string]interface{})["payment_method"].(map[string]interface{})
		assert.Equal(t, "oxxo_cash", method["type"])

		metadata := body["metadata"].(map[string]interface{})
		assert.Equal(t, "42", metadata["enrollment_id"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "ord_123",
			"payment_status": "pending_payment",
			"amount": 100000,
			"currency": "MXN",
			"charges": {
				"data": [
					{
						"id": "chrg_1",
						"status": "pending_payment",
						"payment_method": {
							"type": "oxxo_cash",
							"reference": "93000123456789"
						}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key_test", "secret")

	order, err := client.CreateOrder(&CreateOrderOpts{
		Amount:        100000,
		Currency:      "MXN",
		PaymentMethod: PaymentMethodOXXOCash,
		ExpiresAt:     time.Now().Add(72 * time.Hour),
		Description:   "Colegiatura Matemáticas",
		CustomerName:  "Ana García",
		CustomerEmail: "ana@test.mx",
		EnrollmentID:  42,
		TransactionID: "txn_abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "ord_123", order.ID)
	assert.Equal(t, "93000123456789", order.Reference())
}

func TestOrderReferencePrefersClabe(t *testing.T) {
	order := &Order{
		Charges: &Charges{
			Data: []Charge{
				{
					PaymentMethod: ChargePaymentMethod{
						Type:      PaymentMethodSPEI,
						Reference: "ref",
						Clabe:     "646180111812345678",
					},
				},
			},
		},
	}

	assert.Equal(t, "646180111812345678", order.Reference())
	assert.Equal(t, "", (&Order{}).Reference())
}

func TestRefundOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/ord_123/refunds", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(50000), body["amount"])
		assert.Equal(t, "requested_by_client", body["reason"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "ord_123"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key_test", "secret")

	err := client.RefundOrder("ord_123", 50000, "requested_by_client")
	require.NoError(t, err)
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"type": "processing_error", "details": [{"message": "The card was declined"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key_test", "secret")

	_, err := client.CreateOrder(&CreateOrderOpts{
		Amount:        100000,
		Currency:      "MXN",
		PaymentMethod: PaymentMethodSPEI,
		ExpiresAt:     time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The card was declined")
	assert.Contains(t, err.Error(), "402")
}

func TestVerifySignature(t *testing.T) {
	client := NewClient("", "key_test", "whsec_conekta")
	payload := []byte(`{"type": "charge.paid"}`)

	mac := hmac.New(sha256.New, []byte("whsec_conekta"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifySignature(payload, signature))
	assert.False(t, client.VerifySignature(payload, "bad"))
	assert.False(t, client.VerifySignature([]byte(`tampered`), signature))
	assert.False(t, client.VerifySignature(payload, ""))

	unconfigured := NewClient("", "key_test", "")
	assert.False(t, unconfigured.VerifySignature(payload, signature))
}
