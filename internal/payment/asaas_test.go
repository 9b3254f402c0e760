package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rmtpark-api/internal/model"
)

func TestCreateCharge(t *testing.T) {
	var gotValue float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("access_token"))
		switch r.URL.Path {
		case "/customers":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "cus_1"})
		case "/payments":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "cus_1", body["customer"])
			gotValue, _ = body["value"].(float64)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "pay_9", "status": "PENDING", "invoiceUrl": "https://inv/9"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAsaasClient(srv.URL, "key-123")
	ch, err := c.CreateCharge(context.Background(), &model.Tenant{ID: 4, Name: "Lot", CNPJ: "11222333000181", PlanTitle: "Basic"},
		decimal.RequireFromString("99.90"))
	require.NoError(t, err)
	assert.Equal(t, "pay_9", ch.ID)
	assert.Equal(t, "PENDING", ch.Status)
	assert.Equal(t, "https://inv/9", ch.Link)
	assert.InDelta(t, 99.90, gotValue, 0.001)
}

func TestCreateCharge_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"code":"invalid_cpfCnpj"}]}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewAsaasClient(srv.URL, "k").CreateCharge(context.Background(), &model.Tenant{ID: 1}, decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
