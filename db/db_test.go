package db

import (
	"testing"
	"time"

	"bitbucket.org/colegioandes/backend/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	wrapper, err := New(sqlx.NewDb(mockDB, "sqlmock"))
	require.NoError(t, err)

	return wrapper, mock
}

func enrollmentRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "status", "total_amount", "discount_amount", "paid_amount", "payment_status",
		"last_payment_date", "next_payment_date", "created", "updated",
		"student_id", "student_firstname", "student_lastname", "student_email",
		"teacher_id", "teacher_firstname", "teacher_lastname", "teacher_email",
		"course_id", "course_name", "course_price",
	}).AddRow(
		1, models.EnrollmentStatusActive, "1000.00", "0.00", "400.00", models.EnrollmentPaymentStatusPartial,
		nil, nil, now, now,
		10, "Ana", "García", "ana@test.mx",
		20, "Luis", "Pérez", "luis@test.mx",
		30, "Matemáticas", "1000.00",
	)
}

func TestReconcileEnrollmentRecomputesFromHistory(t *testing.T) {
	wrapper, mock := newMockDB(t)

	mock.ExpectBegin()

	lock := mock.ExpectPrepare("FOR UPDATE")
	lock.ExpectQuery().WithArgs(1).WillReturnRows(
		sqlmock.NewRows([]string{"total_amount", "discount_amount"}).AddRow("1000.00", "0.00"),
	)

	sum := mock.ExpectPrepare("SUM")
	sum.ExpectQuery().WithArgs(1).WillReturnRows(
		sqlmock.NewRows([]string{"paid"}).AddRow("400.00"),
	)

	update := mock.ExpectPrepare("UPDATE")
	update.ExpectExec().WithArgs("400.00", models.EnrollmentPaymentStatusPartial, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	get := mock.ExpectPrepare("INNER JOIN")
	get.ExpectQuery().WithArgs(1).WillReturnRows(enrollmentRows())

	enrollment, err := wrapper.ReconcileEnrollment(1)
	require.NoError(t, err)
	require.NotNil(t, enrollment)

	assert.Equal(t, models.EnrollmentPaymentStatusPartial, enrollment.PaymentStatus)
	assert.Equal(t, "400.00", enrollment.PaidAmount.StringFixed(2))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileEnrollmentNotFoundRollsBack(t *testing.T) {
	wrapper, mock := newMockDB(t)

	mock.ExpectBegin()

	lock := mock.ExpectPrepare("FOR UPDATE")
	lock.ExpectQuery().WithArgs(42).WillReturnRows(
		sqlmock.NewRows([]string{"total_amount", "discount_amount"}),
	)

	mock.ExpectRollback()

	_, err := wrapper.ReconcileEnrollment(42)
	assert.Equal(t, ErrEnrollmentNotFound, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEnrollmentRejectsDuplicate(t *testing.T) {
	wrapper, mock := newMockDB(t)

	mock.ExpectBegin()

	conflict := mock.ExpectPrepare("FOR UPDATE")
	conflict.ExpectQuery().WithArgs(10, 30).WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(7),
	)

	mock.ExpectRollback()

	_, err := wrapper.InsertEnrollment(&InsertEnrollmentOpts{
		StudentID: 10,
		CourseID:  30,
		TeacherID: 20,
	})
	assert.Equal(t, ErrDuplicateEnrollment, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPaymentByIDNotFound(t *testing.T) {
	wrapper, mock := newMockDB(t)

	get := mock.ExpectPrepare("FROM")
	get.ExpectQuery().WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	payment, err := wrapper.GetPaymentByID(99)
	require.NoError(t, err)
	assert.Nil(t, payment)

	require.NoError(t, mock.ExpectationsWereMet())
}
