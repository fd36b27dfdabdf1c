package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodStripe   = "stripe"
	PaymentMethodPaypal   = "paypal"
	PaymentMethodConekta  = "conekta"
)

const (
	GatewayMethodOXXO = "oxxo"
	GatewayMethodSPEI = "spei"
)

const (
	PaymentTypeFull        = "full"
	PaymentTypePartial     = "partial"
	PaymentTypeInstallment = "installment"
	PaymentTypeRefund      = "refund"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusCancelled  = "cancelled"
	PaymentStatusRefunded   = "refunded"
)

type Payment struct {
	ID                int              `json:"id,omitempty"`
	EnrollmentID      int              `json:"enrollment_id,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency,omitempty"`
	Method            string           `json:"method,omitempty"`
	Type              string           `json:"type,omitempty"`
	Status            string           `json:"status,omitempty"`
	TransactionID     string           `json:"transaction_id,omitempty"`
	ExternalPaymentID string           `json:"external_payment_id,omitempty"`
	ReceiptNumber     string           `json:"receipt_number,omitempty"`
	Reference         string           `json:"reference,omitempty"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
	RefundAmount      *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundReason      string           `json:"refund_reason,omitempty"`
	RefundedAt        *time.Time       `json:"refunded_at,omitempty"`
	User              *User            `json:"user,omitempty"`
	Created           time.Time        `json:"created"`
	Updated           time.Time        `json:"updated"`
}

// IsTerminal reports whether the payment can no longer change state through
// gateway notifications. Refunds go through their own entry point.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsGatewayBacked reports whether the payment has a live charge at an external
// processor, meaning refunds must be executed remotely before the local row moves.
func (p *Payment) IsGatewayBacked() bool {
	switch p.Method {
	case PaymentMethodCard, PaymentMethodStripe, PaymentMethodConekta, PaymentMethodPaypal:
		return p.ExternalPaymentID != ""
	}
	return false
}

type InsertPaymentOpts struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Method        string `json:"method"`
	GatewayMethod string `json:"gateway_method"`
	Type          string `json:"type"`
	CardToken     string `json:"card_token"`
}

var InsertPaymentRules = govalidator.MapData{
	"amount":         []string{"required", "money"},
	"currency":       []string{},
	"method":         []string{"required", "in:cash,card,transfer,stripe,paypal,conekta"},
	"gateway_method": []string{"in:oxxo,spei"},
	"type":           []string{"required", "in:full,partial,installment"},
	"card_token":     []string{},
}

type RefundPaymentOpts struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

var RefundPaymentRules = govalidator.MapData{
	"amount": []string{"required", "money"},
	"reason": []string{"required"},
}

type GetPaymentsOpts struct {
	CreatedFrom   string   `schema:"created_from"`
	CreatedTo     string   `schema:"created_to"`
	EnrollmentIDs []int    `schema:"enrollment_ids"`
	StudentIDs    []int    `schema:"student_ids"`
	Methods       []string `schema:"methods"`
	Statuses      []string `schema:"statuses"`
	LimitFrom     int      `schema:"limit_from"`
	LimitTo       int      `schema:"limit_to"`
}

var GetPaymentsRules = govalidator.MapData{
	"created_from":   []string{"date_ISO8601"},
	"created_to":     []string{"date_ISO8601"},
	"enrollment_ids": []string{"array_int"},
	"student_ids":    []string{"array_int"},
	"methods":        []string{"array_string"},
	"statuses":       []string{"array_string"},
	"limit_from":     []string{"numeric"},
	"limit_to":       []string{"numeric"},
}

type GetPaymentsStruct struct {
	Payments []Payment `json:"payments"`
	Total    int       `json:"total"`
}

// ChargeReceipt is what payment initiation returns to the caller: enough to
// show a reference even when the charge resolves later by webhook.
type ChargeReceipt struct {
	Payment    *Payment    `json:"payment"`
	Enrollment *Enrollment `json:"enrollment,omitempty"`
}
