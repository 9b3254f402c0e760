// Package payment talks to the Asaas payment gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/service"
)

// DefaultBaseURL is the Asaas sandbox API.
const DefaultBaseURL = "https://sandbox.asaas.com/api/v3"

// dueInDays is how long the tenant has to pay a subscription charge.
const dueInDays = 5

// AsaasClient creates customers and charges on Asaas.
type AsaasClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewAsaasClient returns a client for baseURL (DefaultBaseURL when empty).
func NewAsaasClient(baseURL, apiKey string) *AsaasClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &AsaasClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type customerReq struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	CpfCnpj           string `json:"cpfCnpj"`
	ExternalReference string `json:"externalReference"`
}

type paymentReq struct {
	Customer          string      `json:"customer"`
	BillingType       string      `json:"billingType"`
	Value             json.Number `json:"value"`
	DueDate           string      `json:"dueDate"`
	Description       string      `json:"description"`
	ExternalReference string      `json:"externalReference"`
}

type idResp struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoiceUrl"`
}

// CreateCharge registers the tenant as a customer and opens a charge of
// amount for its plan.
func (c *AsaasClient) CreateCharge(ctx context.Context, t *model.Tenant, amount decimal.Decimal) (service.Charge, error) {
	ref := strconv.FormatUint(t.ID, 10)
	var cust idResp
	err := c.post(ctx, "/customers", customerReq{
		Name: t.Name, Email: t.Email, Phone: t.Phone, CpfCnpj: t.CNPJ, ExternalReference: ref,
	}, &cust)
	if err != nil {
		return service.Charge{}, fmt.Errorf("create customer: %w", err)
	}

	var pay idResp
	err = c.post(ctx, "/payments", paymentReq{
		Customer:          cust.ID,
		BillingType:       "UNDEFINED",
		Value:             json.Number(amount.StringFixed(2)),
		DueDate:           time.Now().AddDate(0, 0, dueInDays).Format("2006-01-02"),
		Description:       "Assinatura do plano " + t.PlanTitle,
		ExternalReference: ref,
	}, &pay)
	if err != nil {
		return service.Charge{}, fmt.Errorf("create payment: %w", err)
	}
	link := pay.InvoiceURL
	if link == "" {
		link = strings.Replace(c.baseURL, "/api/v3", "", 1) + "/i/" + pay.ID
	}
	return service.Charge{ID: pay.ID, Status: pay.Status, Link: link}, nil
}

func (c *AsaasClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("asaas %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}
