package gateway

import (
	"time"

	"bitbucket.org/colegioandes/backend/models"
	"github.com/shopspring/decimal"
)

// Registry keys for charge adapters. The engine resolves the key from the
// requested payment method, never from free-form input.
const (
	KeyManual = "manual"
	KeyCard   = "card"
	KeyOXXO   = "oxxo"
	KeySPEI   = "spei"
)

type ChargeOpts struct {
	Enrollment    *models.Enrollment
	Amount        decimal.Decimal
	Currency      string
	TransactionID string
	CardToken     string
	Description   string
}

// ChargeResult is the adapter's answer to a charge attempt. Status is one of
// the models.PaymentStatus values: manual and synchronous card charges come
// back completed or failed, voucher methods come back pending with a payable
// reference and an expiry.
type ChargeResult struct {
	ExternalID string
	Status     string
	Reference  string
	ExpiresAt  *time.Time
}

type Adapter interface {
	Charge(opts *ChargeOpts) (*ChargeResult, error)
}

// Refunder executes the remote leg of a refund. Adapters without a remote leg
// (cash, transfer) simply do not register one.
type Refunder interface {
	Refund(externalID string, amount decimal.Decimal, reason string) error
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
