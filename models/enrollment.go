package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

const (
	EnrollmentStatusPending   = "pending"
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusCancelled = "cancelled"
	EnrollmentStatusSuspended = "suspended"
)

const (
	EnrollmentPaymentStatusPending   = "pending"
	EnrollmentPaymentStatusPartial   = "partial"
	EnrollmentPaymentStatusCompleted = "completed"
	EnrollmentPaymentStatusOverdue   = "overdue"
)

type Enrollment struct {
	ID              int             `json:"id,omitempty"`
	Student         *User           `json:"student,omitempty"`
	Course          *Course         `json:"course,omitempty"`
	Teacher         *User           `json:"teacher,omitempty"`
	Status          string          `json:"status,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	PaymentStatus   string          `json:"payment_status,omitempty"`
	LastPaymentDate *time.Time      `json:"last_payment_date,omitempty"`
	NextPaymentDate *time.Time      `json:"next_payment_date,omitempty"`
	Payments        []Payment       `json:"payments,omitempty"`
	Created         time.Time       `json:"created"`
	Updated         time.Time       `json:"updated"`
}

// Remaining is the balance still owed under the enrollment's ledger.
func (e *Enrollment) Remaining() decimal.Decimal {
	return e.TotalAmount.Sub(e.DiscountAmount).Sub(e.PaidAmount)
}

// DerivePaymentStatus is the single definition of the payment-status formula:
// the status is a pure function of the price and what has been paid so far,
// never an incrementally maintained flag.
func DerivePaymentStatus(totalAmount, discountAmount, paidAmount decimal.Decimal) string {
	remaining := totalAmount.Sub(discountAmount).Sub(paidAmount)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return EnrollmentPaymentStatusCompleted
	}
	if paidAmount.GreaterThan(decimal.Zero) {
		return EnrollmentPaymentStatusPartial
	}
	return EnrollmentPaymentStatusPending
}

type InsertEnrollmentOpts struct {
	StudentID      int    `json:"student_id"`
	CourseID       int    `json:"course_id"`
	TeacherID      int    `json:"teacher_id"`
	TotalAmount    string `json:"total_amount"`
	DiscountAmount string `json:"discount_amount"`
}

var InsertEnrollmentRules = govalidator.MapData{
	"student_id":      []string{"required", "numeric"},
	"course_id":       []string{"required", "numeric"},
	"teacher_id":      []string{"required", "numeric"},
	"total_amount":    []string{"money"},
	"discount_amount": []string{"money"},
}

type UpdateEnrollmentStatusOpts struct {
	Status string `json:"status"`
}

var UpdateEnrollmentStatusRules = govalidator.MapData{
	"status": []string{"required", "in:active,completed,cancelled,suspended"},
}

type GetEnrollmentsOpts struct {
	CreatedFrom     string   `schema:"created_from"`
	CreatedTo       string   `schema:"created_to"`
	StudentIDs      []int    `schema:"student_ids"`
	CourseIDs       []int    `schema:"course_ids"`
	Statuses        []string `schema:"statuses"`
	PaymentStatuses []string `schema:"payment_statuses"`
	LimitFrom       int      `schema:"limit_from"`
	LimitTo         int      `schema:"limit_to"`
}

var GetEnrollmentsRules = govalidator.MapData{
	"created_from":     []string{"date_ISO8601"},
	"created_to":       []string{"date_ISO8601"},
	"student_ids":      []string{"array_int"},
	"course_ids":       []string{"array_int"},
	"statuses":         []string{"array_string"},
	"payment_statuses": []string{"array_string"},
	"limit_from":       []string{"numeric"},
	"limit_to":         []string{"numeric"},
}

type GetEnrollmentsStruct struct {
	Enrollments []Enrollment `json:"enrollments"`
	Total       int          `json:"total"`
}
