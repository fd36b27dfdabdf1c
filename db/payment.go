package db

import (
	"database/sql"
	"time"

	"bitbucket.org/colegioandes/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentStorage interface {
	InsertPayment(opts *InsertPaymentOpts) (*models.Payment, error)
	GetPaymentByID(paymentID int) (*models.Payment, error)
	GetPaymentByExternalID(externalID string) (*models.Payment, error)
	GetPayments(opts *models.GetPaymentsOpts) (*models.GetPaymentsStruct, error)
	SettlePayment(opts *SettlePaymentOpts) (*models.Enrollment, error)
	RefundPayment(opts *RefundPaymentOpts) (*models.Enrollment, error)
	ExpirePendingPayments(now time.Time) (int, error)
}

type InsertPaymentOpts struct {
	EnrollmentID      int
	UserID            int
	Amount            decimal.Decimal
	Currency          string
	Method            string
	Type              string
	Status            string
	TransactionID     string
	ExternalPaymentID string
	ReceiptNumber     string
	Reference         string
	ExpiresAt         *time.Time
}

type SettlePaymentOpts struct {
	PaymentID         int
	EnrollmentID      int
	Status            string
	ExternalPaymentID string
}

type RefundPaymentOpts struct {
	PaymentID    int
	EnrollmentID int
	Amount       decimal.Decimal
	Reason       string
}

const (
	insertPayment = `
	INSERT
		payment
	SET
		enrollment_id = :enrollment_id,
		user_id = :user_id,
		amount = :amount,
		currency = :currency,
		method = :method,
		type = :type,
		status = :status,
		transaction_id = :transaction_id,
		external_payment_id = :external_payment_id,
		receipt_number = :receipt_number,
		reference = :reference,
		expires_at = :expires_at
	`

	getPayment = `
	SELECT
		payment.id,
		payment.enrollment_id,
		payment.amount,
		payment.currency,
		payment.method,
		payment.type,
		payment.status,
		payment.transaction_id,
		COALESCE(payment.external_payment_id, ''),
		COALESCE(payment.receipt_number, ''),
		COALESCE(payment.reference, ''),
		payment.expires_at,
		payment.refund_amount,
		COALESCE(payment.refund_reason, ''),
		payment.refunded_at,
		payment.created,
		payment.updated
	FROM
		payment
	`

	settlePayment = `
	UPDATE
		payment
	SET
		status = :status,
		external_payment_id = COALESCE(:external_payment_id, external_payment_id),
		updated = current_timestamp()
	WHERE
		id = :payment_id
	`

	refundPayment = `
	UPDATE
		payment
	SET
		status = 'refunded',
		refund_amount = :refund_amount,
		refund_reason = :refund_reason,
		refunded_at = current_timestamp(),
		updated = current_timestamp()
	WHERE
		id = :payment_id AND
		status = 'completed'
	`

	getExpiredPendingPayments = `
	SELECT
		payment.id,
		payment.enrollment_id
	FROM
		payment
	WHERE
		payment.method = 'conekta' AND
		payment.status IN ('pending', 'processing') AND
		payment.expires_at IS NOT NULL AND
		payment.expires_at < :now
	FOR UPDATE
	`

	failExpiredPayment = `
	UPDATE
		payment
	SET
		status = 'failed',
		updated = current_timestamp()
	WHERE
		id = :payment_id
	`
)

// InsertPayment persists a new payment row. When the row lands already
// completed (manual methods, synchronous card capture, lazy webhook creation)
// the owning enrollment is reconciled inside the same transaction.
func (db *DB) InsertPayment(opts *InsertPaymentOpts) (*models.Payment, error) {
	tx, err := db.NewTx()
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}

	id, err := db.insertPaymentTx(tx, opts)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if opts.Status == models.PaymentStatusCompleted {
		if err := db.reconcileEnrollmentTx(tx, opts.EnrollmentID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	return db.GetPaymentByID(id)
}

func (db *DB) insertPaymentTx(tx Tx, opts *InsertPaymentOpts) (int, error) {
	stmt, err := tx.PrepareNamed(insertPayment)
	if err != nil {
		return 0, err
	}

	args := map[string]interface{}{
		"enrollment_id":       opts.EnrollmentID,
		"user_id":             opts.UserID,
		"amount":              opts.Amount,
		"currency":            opts.Currency,
		"method":              opts.Method,
		"type":                opts.Type,
		"status":              opts.Status,
		"transaction_id":      opts.TransactionID,
		"external_payment_id": nullableString(opts.ExternalPaymentID),
		"receipt_number":      nullableString(opts.ReceiptNumber),
		"reference":           nullableString(opts.Reference),
		"expires_at":          opts.ExpiresAt,
	}

	result, err := stmt.Exec(args)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if int(rowsAffected) != 1 {
		return 0, errors.Errorf("expected %d and inserted %d", 1, rowsAffected)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	return int(id), nil
}

func (db *DB) GetPaymentByID(paymentID int) (*models.Payment, error) {
	return db.getPayment(getPayment+` WHERE payment.id = :id`, map[string]interface{}{
		"id": paymentID,
	})
}

func (db *DB) GetPaymentByExternalID(externalID string) (*models.Payment, error) {
	return db.getPayment(getPayment+` WHERE payment.external_payment_id = :external_payment_id`, map[string]interface{}{
		"external_payment_id": externalID,
	})
}

func (db *DB) getPayment(query string, args map[string]interface{}) (*models.Payment, error) {
	stmt, err := db.PrepareNamed(query)
	if err != nil {
		return nil, err
	}

	var payment models.Payment
	var refundAmount decimal.NullDecimal

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&payment.ID,
		&payment.EnrollmentID,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&payment.Type,
		&payment.Status,
		&payment.TransactionID,
		&payment.ExternalPaymentID,
		&payment.ReceiptNumber,
		&payment.Reference,
		&payment.ExpiresAt,
		&refundAmount,
		&payment.RefundReason,
		&payment.RefundedAt,
		&payment.Created,
		&payment.Updated,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if refundAmount.Valid {
		payment.RefundAmount = &refundAmount.Decimal
	}

	return &payment, nil
}

// SettlePayment moves a payment to a new status and reconciles the owning
// enrollment in the same transaction, so the balance recompute and the status
// change are atomic.
func (db *DB) SettlePayment(opts *SettlePaymentOpts) (*models.Enrollment, error) {
	tx, err := db.NewTx()
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}

	stmt, err := tx.PrepareNamed(settlePayment)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	result, err := stmt.Exec(map[string]interface{}{
		"payment_id":          opts.PaymentID,
		"status":              opts.Status,
		"external_payment_id": nullableString(opts.ExternalPaymentID),
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if int(rowsAffected) != 1 {
		tx.Rollback()
		return nil, ErrPaymentNotFound
	}

	if err := db.reconcileEnrollmentTx(tx, opts.EnrollmentID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	return db.GetEnrollmentByID(opts.EnrollmentID)
}

// RefundPayment marks a completed payment refunded, keeping the original row
// and netting refund_amount out of the balance recompute.
func (db *DB) RefundPayment(opts *RefundPaymentOpts) (*models.Enrollment, error) {
	tx, err := db.NewTx()
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}

	stmt, err := tx.PrepareNamed(refundPayment)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	result, err := stmt.Exec(map[string]interface{}{
		"payment_id":    opts.PaymentID,
		"refund_amount": opts.Amount,
		"refund_reason": opts.Reason,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if int(rowsAffected) != 1 {
		tx.Rollback()
		return nil, ErrPaymentNotFound
	}

	if err := db.reconcileEnrollmentTx(tx, opts.EnrollmentID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	return db.GetEnrollmentByID(opts.EnrollmentID)
}

// ExpirePendingPayments fails OXXO/SPEI charges whose voucher expired without
// a gateway notification, reconciling every touched enrollment.
func (db *DB) ExpirePendingPayments(now time.Time) (int, error) {
	tx, err := db.NewTx()
	if err != nil {
		return 0, errors.Wrap(err, "failed to start transaction")
	}

	stmt, err := tx.PrepareNamed(getExpiredPendingPayments)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	rows, err := stmt.Query(map[string]interface{}{
		"now": now,
	})
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	type expired struct {
		paymentID    int
		enrollmentID int
	}

	var expiredPayments []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.paymentID, &e.enrollmentID); err != nil {
			rows.Close()
			tx.Rollback()
			return 0, err
		}
		expiredPayments = append(expiredPayments, e)
	}
	rows.Close()

	enrollmentIDs := make(map[int]bool)
	for _, e := range expiredPayments {
		stmt, err := tx.PrepareNamed(failExpiredPayment)
		if err != nil {
			tx.Rollback()
			return 0, err
		}

		if _, err := stmt.Exec(map[string]interface{}{
			"payment_id": e.paymentID,
		}); err != nil {
			tx.Rollback()
			return 0, err
		}

		enrollmentIDs[e.enrollmentID] = true
	}

	for enrollmentID := range enrollmentIDs {
		if err := db.reconcileEnrollmentTx(tx, enrollmentID); err != nil {
			tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}

	return len(expiredPayments), nil
}

func (db *DB) GetPayments(opts *models.GetPaymentsOpts) (*models.GetPaymentsStruct, error) {
	query := getPayment + `
	INNER JOIN
		enrollment ON (enrollment.id = payment.enrollment_id)
	WHERE 1 = 1`

	var conditions []string
	var args []interface{}

	if opts.CreatedFrom != "" {
		conditions = append(conditions, "payment.created >= ?")
		args = append(args, opts.CreatedFrom)
	}
	if opts.CreatedTo != "" {
		conditions = append(conditions, "payment.created <= ?")
		args = append(args, opts.CreatedTo)
	}
	if len(opts.EnrollmentIDs) > 0 {
		conditions = append(conditions, "payment.enrollment_id IN (?)")
		args = append(args, opts.EnrollmentIDs)
	}
	if len(opts.StudentIDs) > 0 {
		conditions = append(conditions, "enrollment.student_id IN (?)")
		args = append(args, opts.StudentIDs)
	}
	if len(opts.Methods) > 0 {
		conditions = append(conditions, "payment.method IN (?)")
		args = append(args, opts.Methods)
	}
	if len(opts.Statuses) > 0 {
		conditions = append(conditions, "payment.status IN (?)")
		args = append(args, opts.Statuses)
	}

	for _, condition := range conditions {
		query += " AND " + condition
	}

	query += " ORDER BY payment.id DESC"

	if opts.LimitTo > 0 {
		query += " LIMIT ?, ?"
		args = append(args, opts.LimitFrom, opts.LimitTo)
	}

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(db.Rebind(query), inArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	response := models.GetPaymentsStruct{
		Payments: []models.Payment{},
	}

	for rows.Next() {
		var payment models.Payment
		var refundAmount decimal.NullDecimal

		if err := rows.Scan(
			&payment.ID,
			&payment.EnrollmentID,
			&payment.Amount,
			&payment.Currency,
			&payment.Method,
			&payment.Type,
			&payment.Status,
			&payment.TransactionID,
			&payment.ExternalPaymentID,
			&payment.ReceiptNumber,
			&payment.Reference,
			&payment.ExpiresAt,
			&refundAmount,
			&payment.RefundReason,
			&payment.RefundedAt,
			&payment.Created,
			&payment.Updated,
		); err != nil {
			return nil, err
		}

		if refundAmount.Valid {
			payment.RefundAmount = &refundAmount.Decimal
		}

		response.Payments = append(response.Payments, payment)
	}

	response.Total = len(response.Payments)

	return &response, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
