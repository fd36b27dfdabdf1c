package conekta

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.conekta.io"

	PaymentMethodOXXOCash = "oxxo_cash"
	PaymentMethodSPEI     = "spei"
)

type Client struct {
	BaseURL       string
	PrivateKey    string
	WebhookSecret string
	HTTPClient    *http.Client
}

func NewClient(baseURL, privateKey, webhookSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		BaseURL:       baseURL,
		PrivateKey:    privateKey,
		WebhookSecret: webhookSecret,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type CreateOrderOpts struct {
	Amount        int64
	Currency      string
	PaymentMethod string
	ExpiresAt     time.Time
	Description   string
	CustomerName  string
	CustomerEmail string
	EnrollmentID  int
	TransactionID string
}

type Order struct {
	ID            string   `json:"id"`
	PaymentStatus string   `json:"payment_status"`
	Amount        int64    `json:"amount"`
	Currency      string   `json:"currency"`
	Charges       *Charges `json:"charges"`
}

type Charges struct {
	Data []Charge `json:"data"`
}

type Charge struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	PaymentMethod ChargePaymentMethod `json:"payment_method"`
}

type ChargePaymentMethod struct {
	Type      string `json:"type"`
	Reference string `json:"reference"`
	Clabe     string `json:"clabe"`
	ExpiresAt int64  `json:"expires_at"`
}

// Reference returns the payable number the student takes to the counter or
// wires to: the OXXO barcode reference or the SPEI CLABE.
func (o *Order) Reference() string {
	if o.Charges == nil || len(o.Charges.Data) == 0 {
		return ""
	}

	method := o.Charges.Data[0].PaymentMethod
	if method.Clabe != "" {
		return method.Clabe
	}

	return method.Reference
}

type apiError struct {
	Type    string `json:"type"`
	Details []struct {
		Message string `json:"message"`
	} `json:"details"`
}

func (e *apiError) message() string {
	if len(e.Details) > 0 {
		return e.Details[0].Message
	}

	return e.Type
}

type orderRequest struct {
	Currency     string         `json:"currency"`
	CustomerInfo customerInfo   `json:"customer_info"`
	LineItems    []lineItem     `json:"line_items"`
	Charges      []chargeParams `json:"charges"`
	Metadata     metadata       `json:"metadata"`
}

type customerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type lineItem struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type chargeParams struct {
	PaymentMethod paymentMethodParams `json:"payment_method"`
}

type paymentMethodParams struct {
	Type      string `json:"type"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

type metadata struct {
	EnrollmentID  string `json:"enrollment_id"`
	TransactionID string `json:"transaction_id"`
}

func (c *Client) CreateOrder(opts *CreateOrderOpts) (*Order, error) {
	body := orderRequest{
		Currency: opts.Currency,
		CustomerInfo: customerInfo{
			Name:  opts.CustomerName,
			Email: opts.CustomerEmail,
		},
		LineItems: []lineItem{
			{
				Name:      opts.Description,
				UnitPrice: opts.Amount,
				Quantity:  1,
			},
		},
		Charges: []chargeParams{
			{
				PaymentMethod: paymentMethodParams{
					Type:      opts.PaymentMethod,
					ExpiresAt: opts.ExpiresAt.Unix(),
				},
			},
		},
		Metadata: metadata{
			EnrollmentID:  strconv.Itoa(opts.EnrollmentID),
			TransactionID: opts.TransactionID,
		},
	}

	var order Order
	if err := c.do(http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (c *Client) RefundOrder(orderID string, amount int64, reason string) error {
	body := refundRequest{
		Amount: amount,
		Reason: reason,
	}

	return c.do(http.MethodPost, fmt.Sprintf("/orders/%s/refunds", orderID), body, nil)
}

// VerifySignature checks the webhook digest header against an HMAC-SHA256 of
// the raw payload keyed with the webhook secret.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	if c.WebhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) do(method string, path string, body interface{}, response interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	req.SetBasicAuth(c.PrivateKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.conekta-v2.0.0+json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return errors.Errorf("unexpected status %d", resp.StatusCode)
		}

		return errors.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.message())
	}

	if response == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}

	return nil
}
