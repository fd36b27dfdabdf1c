package models

import (
	"github.com/shopspring/decimal"
)

const (
	EventChargeSucceeded = "charge_succeeded"
	EventChargeFailed    = "charge_failed"
	EventOrderExpired    = "order_expired"
)

// GatewayEvent is the processor-independent shape every webhook payload is
// normalized into before it touches the ledger. Amount and Currency are taken
// verbatim from the event payload: for externally initiated charges the event
// is the authoritative source.
type GatewayEvent struct {
	Kind         string          `json:"kind"`
	ExternalID   string          `json:"external_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Method       string          `json:"method"`
	EnrollmentID int             `json:"enrollment_id"`
}
