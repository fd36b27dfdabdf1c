package gateway

import (
	"strconv"
	"strings"

	"bitbucket.org/colegioandes/backend/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

// Card charges a tokenized card through Stripe. The charge is confirmed
// synchronously, a declined card is a failed result rather than an error.
type Card struct {
	api *client.API
}

func NewCard(api *client.API) *Card {
	return &Card{
		api: api,
	}
}

func (c *Card) Charge(opts *ChargeOpts) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toCents(opts.Amount)),
		Currency:           stripe.String(strings.ToLower(opts.Currency)),
		PaymentMethod:      stripe.String(opts.CardToken),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(opts.Description),
	}
	params.AddMetadata("enrollment_id", strconv.Itoa(opts.Enrollment.ID))
	params.AddMetadata("transaction_id", opts.TransactionID)

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Type == stripe.ErrorTypeCard {
			result := &ChargeResult{
				Status: models.PaymentStatusFailed,
			}
			if stripeErr.PaymentIntent != nil {
				result.ExternalID = stripeErr.PaymentIntent.ID
			}

			return result, nil
		}

		return nil, errors.Wrap(err, "stripe charge failed")
	}

	result := &ChargeResult{
		ExternalID: intent.ID,
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Status = models.PaymentStatusCompleted
	case stripe.PaymentIntentStatusProcessing:
		result.Status = models.PaymentStatusProcessing
	case stripe.PaymentIntentStatusCanceled:
		result.Status = models.PaymentStatusFailed
	default:
		result.Status = models.PaymentStatusPending
	}

	return result, nil
}

func (c *Card) Refund(externalID string, amount decimal.Decimal, reason string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(externalID),
		Amount:        stripe.Int64(toCents(amount)),
	}
	params.AddMetadata("reason", reason)

	if _, err := c.api.Refunds.New(params); err != nil {
		return errors.Wrap(err, "stripe refund failed")
	}

	return nil
}
