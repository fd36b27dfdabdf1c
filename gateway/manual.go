package gateway

import (
	"bitbucket.org/colegioandes/backend/models"
)

// Manual settles cash and bank-transfer payments taken at the cashier's desk.
// There is no external processor, so the charge completes on the spot.
type Manual struct{}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Charge(opts *ChargeOpts) (*ChargeResult, error) {
	return &ChargeResult{
		Status: models.PaymentStatusCompleted,
	}, nil
}
