package webhook

import (
	"encoding/json"
	"strconv"
	"strings"

	"bitbucket.org/colegioandes/backend/ledger"
	"bitbucket.org/colegioandes/backend/models"
	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v80"
	stripewebhook "github.com/stripe/stripe-go/v80/webhook"
)

// ParseStripe verifies the Stripe-Signature header and normalizes the event.
// Event types outside the payment intent lifecycle return a nil event.
func ParseStripe(payload []byte, signature string, secret string) (*models.GatewayEvent, error) {
	stripeEvent, err := stripewebhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return nil, ledger.WrapE(ledger.KindSignature, err, "stripe signature verification failed")
	}

	var kind string
	switch stripeEvent.Type {
	case "payment_intent.succeeded":
		kind = models.EventChargeSucceeded
	case "payment_intent.payment_failed":
		kind = models.EventChargeFailed
	case "payment_intent.canceled":
		kind = models.EventOrderExpired
	default:
		return nil, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(stripeEvent.Data.Raw, &intent); err != nil {
		return nil, ledger.WrapE(ledger.KindValidation, err, "malformed stripe payload")
	}

	event := &models.GatewayEvent{
		Kind:       kind,
		ExternalID: intent.ID,
		Amount:     decimal.New(intent.Amount, -2),
		Currency:   strings.ToUpper(string(intent.Currency)),
		Method:     models.PaymentMethodStripe,
	}

	if raw, ok := intent.Metadata["enrollment_id"]; ok && raw != "" {
		enrollmentID, err := strconv.Atoi(raw)
		if err != nil {
			return nil, ledger.WrapE(ledger.KindValidation, err, "malformed enrollment reference in stripe payload")
		}
		event.EnrollmentID = enrollmentID
	}

	return event, nil
}
