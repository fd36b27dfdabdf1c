package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDerivePaymentStatus(t *testing.T) {
	cases := []struct {
		name     string
		total    string
		discount string
		paid     string
		expected string
	}{
		{"nothing paid", "1000.00", "0", "0", EnrollmentPaymentStatusPending},
		{"partially paid", "1000.00", "0", "400.00", EnrollmentPaymentStatusPartial},
		{"fully paid", "1000.00", "0", "1000.00", EnrollmentPaymentStatusCompleted},
		{"overpaid", "1000.00", "0", "1200.00", EnrollmentPaymentStatusCompleted},
		{"discount covers balance", "1000.00", "1000.00", "0", EnrollmentPaymentStatusCompleted},
		{"discount plus partial payment", "1000.00", "200.00", "800.00", EnrollmentPaymentStatusCompleted},
		{"cent still owed", "1000.00", "0", "999.99", EnrollmentPaymentStatusPartial},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := DerivePaymentStatus(
				decimal.RequireFromString(tc.total),
				decimal.RequireFromString(tc.discount),
				decimal.RequireFromString(tc.paid),
			)
			assert.Equal(t, tc.expected, status)
		})
	}
}

func TestEnrollmentRemaining(t *testing.T) {
	enrollment := &Enrollment{
		TotalAmount:    decimal.RequireFromString("1000.00"),
		DiscountAmount: decimal.RequireFromString("100.00"),
		PaidAmount:     decimal.RequireFromString("250.50"),
	}

	assert.Equal(t, "649.50", enrollment.Remaining().StringFixed(2))
}
