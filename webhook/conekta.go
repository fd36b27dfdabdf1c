package webhook

import (
	"encoding/json"
	"strconv"

	"bitbucket.org/colegioandes/backend/ledger"
	"bitbucket.org/colegioandes/backend/models"
	"github.com/shopspring/decimal"
)

type conektaEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			OrderID  string `json:"order_id"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Metadata struct {
				EnrollmentID string `json:"enrollment_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseConekta normalizes a Conekta webhook payload. Event types outside the
// charge lifecycle return a nil event and are acked without processing.
// Amounts come in cents.
func ParseConekta(payload []byte) (*models.GatewayEvent, error) {
	var raw conektaEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, ledger.WrapE(ledger.KindValidation, err, "malformed conekta payload")
	}

	var kind string
	switch raw.Type {
	case "charge.paid":
		kind = models.EventChargeSucceeded
	case "charge.declined", "charge.expired":
		kind = models.EventChargeFailed
	case "order.expired":
		kind = models.EventOrderExpired
	default:
		return nil, nil
	}

	externalID := raw.Data.Object.OrderID
	if externalID == "" {
		externalID = raw.Data.Object.ID
	}

	event := &models.GatewayEvent{
		Kind:       kind,
		ExternalID: externalID,
		Amount:     decimal.New(raw.Data.Object.Amount, -2),
		Currency:   raw.Data.Object.Currency,
		Method:     models.PaymentMethodConekta,
	}

	if raw.Data.Object.Metadata.EnrollmentID != "" {
		enrollmentID, err := strconv.Atoi(raw.Data.Object.Metadata.EnrollmentID)
		if err != nil {
			return nil, ledger.WrapE(ledger.KindValidation, err, "malformed enrollment reference in conekta payload")
		}
		event.EnrollmentID = enrollmentID
	}

	return event, nil
}
