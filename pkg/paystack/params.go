package paystack

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// TransactionInitParams is the payload for a hosted checkout initialization.
type TransactionInitParams struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	Currency    string            `json:"currency,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (p TransactionInitParams) validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return errors.New("email is required")
	}
	if p.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if strings.TrimSpace(p.Reference) == "" {
		return errors.New("reference is required")
	}
	return nil
}

// TransactionInitData is the provider's answer to a successful initialization.
type TransactionInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransactionAuthorization captures the card details attached to a charge.
type TransactionAuthorization struct {
	AuthorizationCode string `json:"authorization_code"`
	Last4             string `json:"last4"`
	CardType          string `json:"card_type"`
	Brand             string `json:"brand"`
	ExpMonth          string `json:"exp_month"`
	ExpYear           string `json:"exp_year"`
	Channel           string `json:"channel"`
	Reusable          bool   `json:"reusable"`
}

// TransactionCustomer identifies the payer on a charge.
type TransactionCustomer struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	CustomerCode string `json:"customer_code"`
}

// TransactionData is the provider's view of a single transaction.
type TransactionData struct {
	ID            int64                    `json:"id"`
	Status        string                   `json:"status"`
	Reference     string                   `json:"reference"`
	Amount        int64                    `json:"amount"`
	Currency      string                   `json:"currency"`
	Channel       string                   `json:"channel"`
	GatewayResp   string                   `json:"gateway_response"`
	PaidAt        *time.Time               `json:"paid_at"`
	Authorization TransactionAuthorization `json:"authorization"`
	Customer      TransactionCustomer      `json:"customer"`
}

// Succeeded reports whether the provider settled the charge.
func (t TransactionData) Succeeded() bool {
	return strings.EqualFold(t.Status, "success")
}

// Event is the envelope Paystack delivers to webhook endpoints.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Webhook event types the reconciler understands.
const (
	EventChargeSuccess       = "charge.success"
	EventSubscriptionDisable = "subscription.disable"
	EventInvoiceFailed       = "invoice.payment_failed"
)
