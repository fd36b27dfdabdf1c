package ledger

import (
	"testing"
	"time"

	"bitbucket.org/colegioandes/backend/db"
	"bitbucket.org/colegioandes/backend/gateway"
	"bitbucket.org/colegioandes/backend/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	enrollments   map[int]*models.Enrollment
	payments      map[int]*models.Payment
	nextPaymentID int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		enrollments:   make(map[int]*models.Enrollment),
		payments:      make(map[int]*models.Payment),
		nextPaymentID: 1,
	}
}

func (f *fakeStorage) addEnrollment(id int, status string, total string, discount string) *models.Enrollment {
	enrollment := &models.Enrollment{
		ID:             id,
		Status:         status,
		TotalAmount:    decimal.RequireFromString(total),
		DiscountAmount: decimal.RequireFromString(discount),
		PaidAmount:     decimal.Zero,
		PaymentStatus:  models.EnrollmentPaymentStatusPending,
		Student:        &models.User{ID: 100 + id, Email: "student@test.mx"},
		Course:         &models.Course{ID: 200 + id, Name: "Matemáticas"},
	}
	f.enrollments[id] = enrollment
	return enrollment
}

func (f *fakeStorage) reconcile(enrollmentID int) {
	enrollment, ok := f.enrollments[enrollmentID]
	if !ok {
		return
	}

	paid := decimal.Zero
	for _, p := range f.payments {
		if p.EnrollmentID != enrollmentID {
			continue
		}
		switch p.Status {
		case models.PaymentStatusCompleted:
			paid = paid.Add(p.Amount)
		case models.PaymentStatusRefunded:
			refund := decimal.Zero
			if p.RefundAmount != nil {
				refund = *p.RefundAmount
			}
			paid = paid.Add(p.Amount.Sub(refund))
		}
	}

	enrollment.PaidAmount = paid
	enrollment.PaymentStatus = models.DerivePaymentStatus(enrollment.TotalAmount, enrollment.DiscountAmount, paid)
}

func (f *fakeStorage) GetUserByID(userID int) (*models.User, error) {
	return nil, nil
}

func (f *fakeStorage) GetUserLoginByEmail(email string) (*models.User, error) {
	return nil, nil
}

func (f *fakeStorage) GetUsers(opts *models.GetUsersOpts) (*models.UsersStruct, error) {
	return nil, nil
}

func (f *fakeStorage) GetCourseByID(courseID int) (*models.Course, error) {
	return nil, nil
}

func (f *fakeStorage) InsertEnrollment(opts *db.InsertEnrollmentOpts) (*models.Enrollment, error) {
	return nil, nil
}

func (f *fakeStorage) GetEnrollmentByID(enrollmentID int) (*models.Enrollment, error) {
	return f.enrollments[enrollmentID], nil
}

func (f *fakeStorage) GetEnrollmentWithPayments(enrollmentID int) (*models.Enrollment, error) {
	return f.enrollments[enrollmentID], nil
}

func (f *fakeStorage) GetEnrollments(opts *models.GetEnrollmentsOpts) (*models.GetEnrollmentsStruct, error) {
	return nil, nil
}

func (f *fakeStorage) UpdateEnrollmentStatus(enrollmentID int, status string) error {
	return nil
}

func (f *fakeStorage) ReconcileEnrollment(enrollmentID int) (*models.Enrollment, error) {
	enrollment, ok := f.enrollments[enrollmentID]
	if !ok {
		return nil, db.ErrEnrollmentNotFound
	}
	f.reconcile(enrollmentID)
	return enrollment, nil
}

func (f *fakeStorage) InsertPayment(opts *db.InsertPaymentOpts) (*models.Payment, error) {
	payment := &models.Payment{
		ID:                f.nextPaymentID,
		EnrollmentID:      opts.EnrollmentID,
		Amount:            opts.Amount,
		Currency:          opts.Currency,
		Method:            opts.Method,
		Type:              opts.Type,
		Status:            opts.Status,
		TransactionID:     opts.TransactionID,
		ExternalPaymentID: opts.ExternalPaymentID,
		ReceiptNumber:     opts.ReceiptNumber,
		Reference:         opts.Reference,
		ExpiresAt:         opts.ExpiresAt,
		Created:           time.Now(),
	}
	f.payments[payment.ID] = payment
	f.nextPaymentID++

	if payment.Status == models.PaymentStatusCompleted {
		f.reconcile(payment.EnrollmentID)
	}

	return payment, nil
}

func (f *fakeStorage) GetPaymentByID(paymentID int) (*models.Payment, error) {
	return f.payments[paymentID], nil
}

func (f *fakeStorage) GetPaymentByExternalID(externalID string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.ExternalPaymentID == externalID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStorage) GetPayments(opts *models.GetPaymentsOpts) (*models.GetPaymentsStruct, error) {
	return nil, nil
}

func (f *fakeStorage) SettlePayment(opts *db.SettlePaymentOpts) (*models.Enrollment, error) {
	payment, ok := f.payments[opts.PaymentID]
	if !ok {
		return nil, db.ErrPaymentNotFound
	}
	payment.Status = opts.Status
	if opts.ExternalPaymentID != "" {
		payment.ExternalPaymentID = opts.ExternalPaymentID
	}
	f.reconcile(opts.EnrollmentID)
	return f.enrollments[opts.EnrollmentID], nil
}

func (f *fakeStorage) RefundPayment(opts *db.RefundPaymentOpts) (*models.Enrollment, error) {
	payment, ok := f.payments[opts.PaymentID]
	if !ok || payment.Status != models.PaymentStatusCompleted {
		return nil, db.ErrPaymentNotFound
	}
	now := time.Now()
	payment.Status = models.PaymentStatusRefunded
	payment.RefundAmount = &opts.Amount
	payment.RefundReason = opts.Reason
	payment.RefundedAt = &now
	f.reconcile(opts.EnrollmentID)
	return f.enrollments[opts.EnrollmentID], nil
}

func (f *fakeStorage) ExpirePendingPayments(now time.Time) (int, error) {
	count := 0
	for _, p := range f.payments {
		if p.Method != models.PaymentMethodConekta || p.ExpiresAt == nil {
			continue
		}
		if (p.Status == models.PaymentStatusPending || p.Status == models.PaymentStatusProcessing) && p.ExpiresAt.Before(now) {
			p.Status = models.PaymentStatusFailed
			f.reconcile(p.EnrollmentID)
			count++
		}
	}
	return count, nil
}

type stubAdapter struct {
	result *gateway.ChargeResult
	err    error
	calls  int
}

func (a *stubAdapter) Charge(opts *gateway.ChargeOpts) (*gateway.ChargeResult, error) {
	a.calls++
	return a.result, a.err
}

type stubRefunder struct {
	err        error
	externalID string
	amount     decimal.Decimal
	calls      int
}

func (r *stubRefunder) Refund(externalID string, amount decimal.Decimal, reason string) error {
	r.calls++
	r.externalID = externalID
	r.amount = amount
	return r.err
}

type stubNotifier struct {
	completed int
	refunded  int
}

func (n *stubNotifier) PaymentCompleted(enrollment *models.Enrollment, payment *models.Payment) error {
	n.completed++
	return nil
}

func (n *stubNotifier) PaymentRefunded(enrollment *models.Enrollment, payment *models.Payment) error {
	n.refunded++
	return nil
}

func newTestEngine(storage *fakeStorage, adapters map[string]gateway.Adapter, refunders map[string]gateway.Refunder) (*Engine, *stubNotifier) {
	notifier := &stubNotifier{}
	engine := NewEngine(&EngineOpts{
		Storage:   storage,
		Adapters:  adapters,
		Refunders: refunders,
		Notifier:  notifier,
	})
	return engine, notifier
}

func TestCreatePaymentCashCompletesAndReconciles(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "100.00")

	engine, notifier := newTestEngine(storage, map[string]gateway.Adapter{
		gateway.KeyManual: gateway.NewManual(),
	}, nil)

	receipt, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID: 1,
		UserID:       7,
		Amount:       decimal.RequireFromString("900.00"),
		Method:       models.PaymentMethodCash,
		Type:         models.PaymentTypeFull,
	})
	require.NoError(t, err)
	require.NotNil(t, receipt.Payment)

	assert.Equal(t, models.PaymentStatusCompleted, receipt.Payment.Status)
	assert.NotEmpty(t, receipt.Payment.ReceiptNumber)
	assert.NotEmpty(t, receipt.Payment.TransactionID)

	require.NotNil(t, receipt.Enrollment)
	assert.True(t, receipt.Enrollment.PaidAmount.Equal(decimal.RequireFromString("900.00")))
	assert.Equal(t, models.EnrollmentPaymentStatusCompleted, receipt.Enrollment.PaymentStatus)
	assert.Equal(t, 1, notifier.completed)
}

func TestCreatePaymentPartialKeepsBalanceOpen(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	engine, _ := newTestEngine(storage, map[string]gateway.Adapter{
		gateway.KeyManual: gateway.NewManual(),
	}, nil)

	receipt, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("400.00"),
		Method:       models.PaymentMethodTransfer,
		Type:         models.PaymentTypePartial,
	})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentPaymentStatusPartial, receipt.Enrollment.PaymentStatus)
	assert.True(t, receipt.Enrollment.Remaining().Equal(decimal.RequireFromString("600.00")))
}

func TestCreatePaymentRejectsInactiveEnrollment(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusSuspended, "1000.00", "0")

	engine, _ := newTestEngine(storage, map[string]gateway.Adapter{
		gateway.KeyManual: gateway.NewManual(),
	}, nil)

	_, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("100.00"),
		Method:       models.PaymentMethodCash,
		Type:         models.PaymentTypePartial,
	})
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Empty(t, storage.payments)
}

func TestCreatePaymentUnknownEnrollment(t *testing.T) {
	storage := newFakeStorage()

	engine, _ := newTestEngine(storage, map[string]gateway.Adapter{
		gateway.KeyManual: gateway.NewManual(),
	}, nil)

	_, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID: 99,
		Amount:       decimal.RequireFromString("100.00"),
		Method:       models.PaymentMethodCash,
		Type:         models.PaymentTypePartial,
	})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCreatePaymentValidatesAmount(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	engine, _ := newTestEngine(storage, map[string]gateway.Adapter{
		gateway.KeyManual: gateway.NewManual(),
	}, nil)

	for _, amount := range []string{"0", "-10.00", "10.001"} {
		_, err := engine.CreatePayment(&CreatePaymentOpts{
			EnrollmentID: 1,
			Amount:       decimal.RequireFromString(amount),
			Method:       models.PaymentMethodCash,
			Type:         models.PaymentTypePartial,
		})
		require.Error(t, err, amount)
		assert.Equal(t, KindValidation, KindOf(err), amount)
	}
}

func TestCreatePaymentUnsupportedMethod(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	engine, _ := newTestEngine(storage, nil, nil)

	_, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("100.00"),
		Method:       models.PaymentMethodPaypal,
		Type:         models.PaymentTypePartial,
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestCreatePaymentConektaRequiresGatewayMethod(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	engine, _ := newTestEngine(storage, nil, nil)

	_, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("100.00"),
		Method:       models.PaymentMethodConekta,
		Type:         models.PaymentTypePartial,
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestCreatePaymentGatewayErrorRecordsFailedRow(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	adapter := &stubAdapter{err: errors.New("connection reset")}
	engine, _ := newTestEngine(storage, map[string]gateway.Adapter{
		gateway.KeyCard: adapter,
	}, nil)

	_, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("500.00"),
		Method:       models.PaymentMethodCard,
		Type:         models.PaymentTypePartial,
		CardToken:    "tok_123",
	})
	require.Error(t, err)
	assert.Equal(t, KindGateway, KindOf(err))

	require.Len(t, storage.payments, 1)
	for _, p := range storage.payments {
		assert.Equal(t, models.PaymentStatusFailed, p.Status)
	}

	enrollment := storage.enrollments[1]
	assert.True(t, enrollment.PaidAmount.IsZero())
	assert.Equal(t, models.EnrollmentPaymentStatusPending, enrollment.PaymentStatus)
}

func TestCreatePaymentCardDeclined(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	adapter := &stubAdapter{result: &gateway.ChargeResult{
		ExternalID: "pi_123",
		Status:     models.PaymentStatusFailed,
	}}
	engine, notifier := newTestEngine(storage, map[string]gateway.Adapter{
		gateway.KeyCard: adapter,
	}, nil)

	receipt, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("500.00"),
		Method:       models.PaymentMethodStripe,
		Type:         models.PaymentTypePartial,
		CardToken:    "tok_declined",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusFailed, receipt.Payment.Status)
	assert.Empty(t, receipt.Payment.ReceiptNumber)
	assert.True(t, storage.enrollments[1].PaidAmount.IsZero())
	assert.Equal(t, 0, notifier.completed)
}

func TestCreatePaymentVoucherStaysPending(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	expiresAt := time.Now().Add(72 * time.Hour)
	adapter := &stubAdapter{result: &gateway.ChargeResult{
		ExternalID: "ord_123",
		Status:     models.PaymentStatusPending,
		Reference:  "93000123456789",
		ExpiresAt:  &expiresAt,
	}}
	engine, notifier := newTestEngine(storage, map[string]gateway.Adapter{
		gateway.KeyOXXO: adapter,
	}, nil)

	receipt, err := engine.CreatePayment(&CreatePaymentOpts{
		EnrollmentID:  1,
		Amount:        decimal.RequireFromString("1000.00"),
		Method:        models.PaymentMethodConekta,
		GatewayMethod: models.GatewayMethodOXXO,
		Type:          models.PaymentTypeFull,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, receipt.Payment.Status)
	assert.Equal(t, "93000123456789", receipt.Payment.Reference)
	assert.Equal(t, "ord_123", receipt.Payment.ExternalPaymentID)
	require.NotNil(t, receipt.Payment.ExpiresAt)
	assert.Nil(t, receipt.Enrollment)

	assert.True(t, storage.enrollments[1].PaidAmount.IsZero())
	assert.Equal(t, models.EnrollmentPaymentStatusPending, storage.enrollments[1].PaymentStatus)
	assert.Equal(t, 0, notifier.completed)
}

func TestResolvePaymentCompletesPendingVoucher(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	payment, err := storage.InsertPayment(&db.InsertPaymentOpts{
		EnrollmentID:      1,
		Amount:            decimal.RequireFromString("1000.00"),
		Method:            models.PaymentMethodConekta,
		Type:              models.PaymentTypeFull,
		Status:            models.PaymentStatusPending,
		TransactionID:     "txn_abc",
		ExternalPaymentID: "ord_123",
	})
	require.NoError(t, err)

	engine, notifier := newTestEngine(storage, nil, nil)

	enrollment, err := engine.ResolvePayment(payment, models.PaymentStatusCompleted, "ord_123")
	require.NoError(t, err)

	assert.True(t, enrollment.PaidAmount.Equal(decimal.RequireFromString("1000.00")))
	assert.Equal(t, models.EnrollmentPaymentStatusCompleted, enrollment.PaymentStatus)
	assert.Equal(t, 1, notifier.completed)
}

func TestRecordExternalPayment(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusCompleted, "1000.00", "0")

	engine, notifier := newTestEngine(storage, nil, nil)

	// Enrollment is not active: externally initiated money still lands.
	payment, err := engine.RecordExternalPayment(&models.GatewayEvent{
		Kind:         models.EventChargeSucceeded,
		ExternalID:   "pi_999",
		Amount:       decimal.RequireFromString("1000.00"),
		Currency:     "MXN",
		Method:       models.PaymentMethodStripe,
		EnrollmentID: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, models.PaymentTypeFull, payment.Type)
	assert.Equal(t, "pi_999", payment.ExternalPaymentID)
	assert.True(t, storage.enrollments[1].PaidAmount.Equal(decimal.RequireFromString("1000.00")))
	assert.Equal(t, 1, notifier.completed)
}

func TestRefundPreconditions(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	pending, err := storage.InsertPayment(&db.InsertPaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("500.00"),
		Method:       models.PaymentMethodConekta,
		Type:         models.PaymentTypePartial,
		Status:       models.PaymentStatusPending,
	})
	require.NoError(t, err)

	completed, err := storage.InsertPayment(&db.InsertPaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("500.00"),
		Method:       models.PaymentMethodCash,
		Type:         models.PaymentTypePartial,
		Status:       models.PaymentStatusCompleted,
	})
	require.NoError(t, err)

	engine, _ := newTestEngine(storage, nil, nil)

	_, err = engine.Refund(&RefundOpts{PaymentID: 999, Amount: decimal.RequireFromString("100.00"), Reason: "duplicate"})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = engine.Refund(&RefundOpts{PaymentID: pending.ID, Amount: decimal.RequireFromString("100.00"), Reason: "duplicate"})
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = engine.Refund(&RefundOpts{PaymentID: completed.ID, Amount: decimal.RequireFromString("600.00"), Reason: "duplicate"})
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = engine.Refund(&RefundOpts{PaymentID: completed.ID, Amount: decimal.Zero, Reason: "duplicate"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestRefundManualPayment(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	payment, err := storage.InsertPayment(&db.InsertPaymentOpts{
		EnrollmentID: 1,
		Amount:       decimal.RequireFromString("500.00"),
		Method:       models.PaymentMethodCash,
		Type:         models.PaymentTypePartial,
		Status:       models.PaymentStatusCompleted,
	})
	require.NoError(t, err)

	engine, notifier := newTestEngine(storage, nil, nil)

	receipt, err := engine.Refund(&RefundOpts{
		PaymentID: payment.ID,
		Amount:    decimal.RequireFromString("200.00"),
		Reason:    "overcharge",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusRefunded, receipt.Payment.Status)
	require.NotNil(t, receipt.Payment.RefundAmount)
	assert.True(t, receipt.Payment.RefundAmount.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, receipt.Enrollment.PaidAmount.Equal(decimal.RequireFromString("300.00")))
	assert.Equal(t, models.EnrollmentPaymentStatusPartial, receipt.Enrollment.PaymentStatus)
	assert.Equal(t, 1, notifier.refunded)
}

func TestRefundGatewayPaymentRunsRemoteLegFirst(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	payment, err := storage.InsertPayment(&db.InsertPaymentOpts{
		EnrollmentID:      1,
		Amount:            decimal.RequireFromString("1000.00"),
		Method:            models.PaymentMethodStripe,
		Type:              models.PaymentTypeFull,
		Status:            models.PaymentStatusCompleted,
		ExternalPaymentID: "pi_123",
	})
	require.NoError(t, err)

	refunder := &stubRefunder{}
	engine, _ := newTestEngine(storage, nil, map[string]gateway.Refunder{
		models.PaymentMethodStripe: refunder,
	})

	receipt, err := engine.Refund(&RefundOpts{
		PaymentID: payment.ID,
		Amount:    decimal.RequireFromString("1000.00"),
		Reason:    "enrollment cancelled",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, refunder.calls)
	assert.Equal(t, "pi_123", refunder.externalID)
	assert.True(t, receipt.Enrollment.PaidAmount.IsZero())
	assert.Equal(t, models.EnrollmentPaymentStatusPending, receipt.Enrollment.PaymentStatus)
}

func TestRefundGatewayFailureLeavesRowUntouched(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	payment, err := storage.InsertPayment(&db.InsertPaymentOpts{
		EnrollmentID:      1,
		Amount:            decimal.RequireFromString("1000.00"),
		Method:            models.PaymentMethodStripe,
		Type:              models.PaymentTypeFull,
		Status:            models.PaymentStatusCompleted,
		ExternalPaymentID: "pi_123",
	})
	require.NoError(t, err)

	refunder := &stubRefunder{err: errors.New("processor down")}
	engine, _ := newTestEngine(storage, nil, map[string]gateway.Refunder{
		models.PaymentMethodStripe: refunder,
	})

	_, err = engine.Refund(&RefundOpts{
		PaymentID: payment.ID,
		Amount:    decimal.RequireFromString("1000.00"),
		Reason:    "enrollment cancelled",
	})
	require.Error(t, err)
	assert.Equal(t, KindGateway, KindOf(err))

	assert.Equal(t, models.PaymentStatusCompleted, storage.payments[payment.ID].Status)
	assert.True(t, storage.enrollments[1].PaidAmount.Equal(decimal.RequireFromString("1000.00")))
}

func TestApplyPaymentUnknownEnrollment(t *testing.T) {
	storage := newFakeStorage()
	engine, _ := newTestEngine(storage, nil, nil)

	_, err := engine.ApplyPayment(42)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestExpirePendingPayments(t *testing.T) {
	storage := newFakeStorage()
	storage.addEnrollment(1, models.EnrollmentStatusActive, "1000.00", "0")

	expired := time.Now().Add(-time.Hour)
	_, err := storage.InsertPayment(&db.InsertPaymentOpts{
		EnrollmentID:      1,
		Amount:            decimal.RequireFromString("1000.00"),
		Method:            models.PaymentMethodConekta,
		Type:              models.PaymentTypeFull,
		Status:            models.PaymentStatusPending,
		ExternalPaymentID: "ord_expired",
		ExpiresAt:         &expired,
	})
	require.NoError(t, err)

	engine, _ := newTestEngine(storage, nil, nil)

	count, err := engine.ExpirePendingPayments(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, p := range storage.payments {
		assert.Equal(t, models.PaymentStatusFailed, p.Status)
	}
}
