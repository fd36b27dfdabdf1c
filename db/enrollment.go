package db

import (
	"database/sql"
	"encoding/json"

	"bitbucket.org/colegioandes/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Sentinel conditions detected inside storage transactions. The ledger package
// maps them onto its error taxonomy.
var (
	ErrDuplicateEnrollment = errors.New("duplicate non-cancelled enrollment for student and course")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
)

type EnrollmentStorage interface {
	InsertEnrollment(opts *InsertEnrollmentOpts) (*models.Enrollment, error)
	GetEnrollmentByID(enrollmentID int) (*models.Enrollment, error)
	GetEnrollmentWithPayments(enrollmentID int) (*models.Enrollment, error)
	GetEnrollments(opts *models.GetEnrollmentsOpts) (*models.GetEnrollmentsStruct, error)
	UpdateEnrollmentStatus(enrollmentID int, status string) error
	ReconcileEnrollment(enrollmentID int) (*models.Enrollment, error)
}

type InsertEnrollmentOpts struct {
	StudentID      int
	CourseID       int
	TeacherID      int
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
}

const (
	getEnrollmentConflict = `
	SELECT
		enrollment.id
	FROM
		enrollment
	WHERE
		enrollment.student_id = :student_id AND
		enrollment.course_id = :course_id AND
		enrollment.status != 'cancelled'
	FOR UPDATE
	`

	insertEnrollment = `
	INSERT
		enrollment
	SET
		student_id = :student_id,
		course_id = :course_id,
		teacher_id = :teacher_id,
		status = 'active',
		total_amount = :total_amount,
		discount_amount = :discount_amount,
		paid_amount = 0,
		payment_status = 'pending'
	`

	getEnrollmentByID = `
	SELECT
		enrollment.id,
		enrollment.status,
		enrollment.total_amount,
		enrollment.discount_amount,
		enrollment.paid_amount,
		enrollment.payment_status,
		enrollment.last_payment_date,
		enrollment.next_payment_date,
		enrollment.created,
		enrollment.updated,
		student.id,
		student.firstname,
		student.lastname,
		student.email,
		teacher.id,
		teacher.firstname,
		teacher.lastname,
		teacher.email,
		course.id,
		course.name,
		course.price
	FROM
		enrollment
	INNER JOIN
		user student ON (student.id = enrollment.student_id)
	INNER JOIN
		user teacher ON (teacher.id = enrollment.teacher_id)
	INNER JOIN
		course ON (course.id = enrollment.course_id)
	WHERE
		enrollment.id = :enrollment_id
	`

	getEnrollmentPayments = `
	SELECT
		COALESCE(CONCAT('[', GROUP_CONCAT(
			JSON_OBJECT(
				'id', payment.id,
				'enrollment_id', payment.enrollment_id,
				'amount', payment.amount,
				'currency', payment.currency,
				'method', payment.method,
				'type', payment.type,
				'status', payment.status,
				'transaction_id', payment.transaction_id,
				'external_payment_id', COALESCE(payment.external_payment_id, ''),
				'receipt_number', COALESCE(payment.receipt_number, ''),
				'reference', COALESCE(payment.reference, ''),
				'refund_amount', payment.refund_amount,
				'refund_reason', COALESCE(payment.refund_reason, ''),
				'created', DATE_FORMAT(payment.created, :iso8601),
				'updated', DATE_FORMAT(payment.updated, :iso8601)
			)
			ORDER BY payment.id
		), ']'), '[]')
	FROM
		payment
	WHERE
		payment.enrollment_id = :enrollment_id
	`

	lockEnrollmentBalance = `
	SELECT
		enrollment.total_amount,
		enrollment.discount_amount
	FROM
		enrollment
	WHERE
		enrollment.id = :enrollment_id
	FOR UPDATE
	`

	sumEnrollmentPayments = `
	SELECT
		COALESCE(SUM(
			CASE
				WHEN payment.status = 'completed' THEN payment.amount
				WHEN payment.status = 'refunded' THEN payment.amount - COALESCE(payment.refund_amount, 0)
				ELSE 0
			END
		), 0)
	FROM
		payment
	WHERE
		payment.enrollment_id = :enrollment_id
	`

	updateEnrollmentBalance = `
	UPDATE
		enrollment
	SET
		paid_amount = :paid_amount,
		payment_status = :payment_status,
		last_payment_date = current_timestamp(),
		updated = current_timestamp()
	WHERE
		id = :enrollment_id
	`

	updateEnrollmentStatus = `
	UPDATE
		enrollment
	SET
		status = :status,
		updated = current_timestamp()
	WHERE
		id = :enrollment_id
	`
)

const iso8601JSONLayout = `%Y-%m-%dT%H:%i:%sZ`

func (db *DB) InsertEnrollment(opts *InsertEnrollmentOpts) (*models.Enrollment, error) {
	tx, err := db.NewTx()
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}

	id, err := db.insertEnrollmentTx(tx, opts)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	return db.GetEnrollmentByID(id)
}

func (db *DB) insertEnrollmentTx(tx Tx, opts *InsertEnrollmentOpts) (int, error) {
	stmt, err := tx.PrepareNamed(getEnrollmentConflict)
	if err != nil {
		return 0, err
	}

	args := map[string]interface{}{
		"student_id": opts.StudentID,
		"course_id":  opts.CourseID,
	}

	var existingID int
	if err := stmt.QueryRow(args).Scan(&existingID); err != nil {
		if err != sql.ErrNoRows {
			return 0, err
		}
	} else {
		return 0, ErrDuplicateEnrollment
	}

	stmt, err = tx.PrepareNamed(insertEnrollment)
	if err != nil {
		return 0, err
	}

	args = map[string]interface{}{
		"student_id":      opts.StudentID,
		"course_id":       opts.CourseID,
		"teacher_id":      opts.TeacherID,
		"total_amount":    opts.TotalAmount,
		"discount_amount": opts.DiscountAmount,
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

func (db *DB) GetEnrollmentByID(enrollmentID int) (*models.Enrollment, error) {
	stmt, err := db.PrepareNamed(getEnrollmentByID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"enrollment_id": enrollmentID,
	}

	var enrollment models.Enrollment
	var student, teacher models.User
	var course models.Course

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&enrollment.ID,
		&enrollment.Status,
		&enrollment.TotalAmount,
		&enrollment.DiscountAmount,
		&enrollment.PaidAmount,
		&enrollment.PaymentStatus,
		&enrollment.LastPaymentDate,
		&enrollment.NextPaymentDate,
		&enrollment.Created,
		&enrollment.Updated,
		&student.ID,
		&student.Firstname,
		&student.Lastname,
		&student.Email,
		&teacher.ID,
		&teacher.Firstname,
		&teacher.Lastname,
		&teacher.Email,
		&course.ID,
		&course.Name,
		&course.Price,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	enrollment.Student = &student
	enrollment.Teacher = &teacher
	enrollment.Course = &course

	return &enrollment, nil
}

func (db *DB) GetEnrollmentWithPayments(enrollmentID int) (*models.Enrollment, error) {
	enrollment, err := db.GetEnrollmentByID(enrollmentID)
	if err != nil {
		return nil, err
	}

	if enrollment == nil {
		return nil, nil
	}

	stmt, err := db.PrepareNamed(getEnrollmentPayments)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"enrollment_id": enrollmentID,
		"iso8601":       iso8601JSONLayout,
	}

	var paymentsBytes []byte
	if err := stmt.QueryRow(args).Scan(&paymentsBytes); err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := json.Unmarshal(paymentsBytes, &payments); err != nil {
		return nil, err
	}
	enrollment.Payments = payments

	return enrollment, nil
}

func (db *DB) UpdateEnrollmentStatus(enrollmentID int, status string) error {
	stmt, err := db.PrepareNamed(updateEnrollmentStatus)
	if err != nil {
		return err
	}

	args := map[string]interface{}{
		"enrollment_id": enrollmentID,
		"status":        status,
	}

	result, err := stmt.Exec(args)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if int(rowsAffected) != 1 {
		return ErrEnrollmentNotFound
	}

	return nil
}

// ReconcileEnrollment recomputes paid_amount and payment_status from the full
// payment history inside a single transaction, locking the enrollment row so
// concurrent settlements serialize. It never applies deltas, which makes
// re-running it after duplicate webhook deliveries harmless.
func (db *DB) ReconcileEnrollment(enrollmentID int) (*models.Enrollment, error) {
	tx, err := db.NewTx()
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}

	if err := db.reconcileEnrollmentTx(tx, enrollmentID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	return db.GetEnrollmentByID(enrollmentID)
}

func (db *DB) reconcileEnrollmentTx(tx Tx, enrollmentID int) error {
	stmt, err := tx.PrepareNamed(lockEnrollmentBalance)
	if err != nil {
		return err
	}

	args := map[string]interface{}{
		"enrollment_id": enrollmentID,
	}

	var totalAmount, discountAmount decimal.Decimal
	if err := stmt.QueryRow(args).Scan(&totalAmount, &discountAmount); err != nil {
		if err == sql.ErrNoRows {
			return ErrEnrollmentNotFound
		}
		return err
	}

	stmt, err = tx.PrepareNamed(sumEnrollmentPayments)
	if err != nil {
		return err
	}

	var totalPaid decimal.Decimal
	if err := stmt.QueryRow(args).Scan(&totalPaid); err != nil {
		return err
	}

	paymentStatus := models.DerivePaymentStatus(totalAmount, discountAmount, totalPaid)

	stmt, err = tx.PrepareNamed(updateEnrollmentBalance)
	if err != nil {
		return err
	}

	result, err := stmt.Exec(map[string]interface{}{
		"enrollment_id":  enrollmentID,
		"paid_amount":    totalPaid,
		"payment_status": paymentStatus,
	})
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if int(rowsAffected) != 1 {
		return errors.Errorf("expected %d and updated %d", 1, rowsAffected)
	}

	return nil
}

func (db *DB) GetEnrollments(opts *models.GetEnrollmentsOpts) (*models.GetEnrollmentsStruct, error) {
	query := `
	SELECT
		enrollment.id,
		enrollment.status,
		enrollment.total_amount,
		enrollment.discount_amount,
		enrollment.paid_amount,
		enrollment.payment_status,
		enrollment.created,
		enrollment.updated
	FROM
		enrollment
	WHERE 1 = 1`

	var conditions []string
	var args []interface{}

	if opts.CreatedFrom != "" {
		conditions = append(conditions, "enrollment.created >= ?")
		args = append(args, opts.CreatedFrom)
	}
	if opts.CreatedTo != "" {
		conditions = append(conditions, "enrollment.created <= ?")
		args = append(args, opts.CreatedTo)
	}
	if len(opts.StudentIDs) > 0 {
		conditions = append(conditions, "enrollment.student_id IN (?)")
		args = append(args, opts.StudentIDs)
	}
	if len(opts.CourseIDs) > 0 {
		conditions = append(conditions, "enrollment.course_id IN (?)")
		args = append(args, opts.CourseIDs)
	}
	if len(opts.Statuses) > 0 {
		conditions = append(conditions, "enrollment.status IN (?)")
		args = append(args, opts.Statuses)
	}
	if len(opts.PaymentStatuses) > 0 {
		conditions = append(conditions, "enrollment.payment_status IN (?)")
		args = append(args, opts.PaymentStatuses)
	}

	for _, condition := range conditions {
		query += " AND " + condition
	}

	query += " ORDER BY enrollment.id DESC"

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

	response := models.GetEnrollmentsStruct{
		Enrollments: []models.Enrollment{},
	}

	for rows.Next() {
		var enrollment models.Enrollment
		if err := rows.Scan(
			&enrollment.ID,
			&enrollment.Status,
			&enrollment.TotalAmount,
			&enrollment.DiscountAmount,
			&enrollment.PaidAmount,
			&enrollment.PaymentStatus,
			&enrollment.Created,
			&enrollment.Updated,
		); err != nil {
			return nil, err
		}
		response.Enrollments = append(response.Enrollments, enrollment)
	}

	response.Total = len(response.Enrollments)

	return &response, nil
}
