package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentIsTerminal(t *testing.T) {
	terminal := []string{
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled,
		PaymentStatusRefunded,
	}
	for _, status := range terminal {
		assert.True(t, (&Payment{Status: status}).IsTerminal(), status)
	}

	open := []string{PaymentStatusPending, PaymentStatusProcessing}
	for _, status := range open {
		assert.False(t, (&Payment{Status: status}).IsTerminal(), status)
	}
}

func TestPaymentIsGatewayBacked(t *testing.T) {
	assert.True(t, (&Payment{Method: PaymentMethodStripe, ExternalPaymentID: "pi_1"}).IsGatewayBacked())
	assert.True(t, (&Payment{Method: PaymentMethodConekta, ExternalPaymentID: "ord_1"}).IsGatewayBacked())

	// No external charge id means nothing to reverse remotely.
	assert.False(t, (&Payment{Method: PaymentMethodStripe}).IsGatewayBacked())
	assert.False(t, (&Payment{Method: PaymentMethodCash, ExternalPaymentID: "x"}).IsGatewayBacked())
	assert.False(t, (&Payment{Method: PaymentMethodTransfer}).IsGatewayBacked())
}
