// Package clients holds thin clients for external collaborator services.
// Every call carries a bounded timeout; failures surface as dependency
// errors, never hung requests.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dErrors "mhreg/pkg/domain-errors"
)

// PaymentClient creates the filing invoice for a new registration. The
// gateway keeps the interface small so tests can stub quickly.
type PaymentClient interface {
	CreateInvoice(ctx context.Context, accountID, mhrNumber string) error
}

// HTTPPaymentClient calls the payment service over HTTP.
type HTTPPaymentClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPPaymentClient constructs a payment client with the given request
// timeout.
func NewHTTPPaymentClient(baseURL string, timeout time.Duration) *HTTPPaymentClient {
	return &HTTPPaymentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type invoiceRequest struct {
	AccountID  string `json:"accountId"`
	MHRNumber  string `json:"mhrNumber"`
	FilingType string `json:"filingType"`
}

func (c *HTTPPaymentClient) CreateInvoice(ctx context.Context, accountID, mhrNumber string) error {
	body, err := json.Marshal(invoiceRequest{
		AccountID:  accountID,
		MHRNumber:  mhrNumber,
		FilingType: "MHREG",
	})
	if err != nil {
		return fmt.Errorf("encode invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment-requests", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDependency, "payment service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dErrors.Newf(dErrors.CodeDependency, "payment service returned %d", resp.StatusCode)
	}
	return nil
}

// MockPaymentClient is a deterministic stand-in for development and tests.
type MockPaymentClient struct {
	Latency time.Duration
	// Fail makes every invoice attempt return a dependency error.
	Fail bool
}

func (c MockPaymentClient) CreateInvoice(_ context.Context, _, _ string) error {
	time.Sleep(c.Latency)
	if c.Fail {
		return dErrors.New(dErrors.CodeDependency, "mock payment failure")
	}
	return nil
}
