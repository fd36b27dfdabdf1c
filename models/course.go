package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Course struct {
	ID       int             `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Capacity int             `json:"capacity,omitempty"`
	Enrolled int             `json:"enrolled,omitempty"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Created time.Time `json:"created,omitempty"`
	Updated time.Time `json:"updated,omitempty"`
	Active  bool      `json:"active"`
}

// HasCapacity reports whether the course can take one more non-cancelled enrollment.
func (c *Course) HasCapacity() bool {
	if c.Capacity <= 0 {
		return true
	}
	return c.Enrolled < c.Capacity
}
