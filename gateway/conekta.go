package gateway

import (
	"time"

	"bitbucket.org/colegioandes/backend/conekta"
	"bitbucket.org/colegioandes/backend/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Voucher creates OXXO cash and SPEI transfer orders through Conekta. The
// charge never completes synchronously: the student gets a reference to pay
// against and the webhook settles the row later.
type Voucher struct {
	client        *conekta.Client
	paymentMethod string
	expiry        time.Duration
}

func NewOXXO(client *conekta.Client, expiry time.Duration) *Voucher {
	return &Voucher{
		client:        client,
		paymentMethod: conekta.PaymentMethodOXXOCash,
		expiry:        expiry,
	}
}

func NewSPEI(client *conekta.Client, expiry time.Duration) *Voucher {
	return &Voucher{
		client:        client,
		paymentMethod: conekta.PaymentMethodSPEI,
		expiry:        expiry,
	}
}

func (v *Voucher) Charge(opts *ChargeOpts) (*ChargeResult, error) {
	expiresAt := time.Now().Add(v.expiry)

	createOrderOpts := &conekta.CreateOrderOpts{
		Amount:        toCents(opts.Amount),
		Currency:      opts.Currency,
		PaymentMethod: v.paymentMethod,
		ExpiresAt:     expiresAt,
		Description:   opts.Description,
		EnrollmentID:  opts.Enrollment.ID,
		TransactionID: opts.TransactionID,
	}
	if opts.Enrollment.Student != nil {
		createOrderOpts.CustomerName = opts.Enrollment.Student.Firstname + " " + opts.Enrollment.Student.Lastname
		createOrderOpts.CustomerEmail = opts.Enrollment.Student.Email
	}

	order, err := v.client.CreateOrder(createOrderOpts)
	if err != nil {
		return nil, errors.Wrap(err, "conekta order failed")
	}

	return &ChargeResult{
		ExternalID: order.ID,
		Status:     models.PaymentStatusPending,
		Reference:  order.Reference(),
		ExpiresAt:  &expiresAt,
	}, nil
}

func (v *Voucher) Refund(externalID string, amount decimal.Decimal, reason string) error {
	if err := v.client.RefundOrder(externalID, toCents(amount), reason); err != nil {
		return errors.Wrap(err, "conekta refund failed")
	}

	return nil
}
