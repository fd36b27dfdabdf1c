package ledger

import (
	"time"

	"bitbucket.org/colegioandes/backend/db"
	"bitbucket.org/colegioandes/backend/gateway"
	"bitbucket.org/colegioandes/backend/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Notifier delivers receipts after money moves. Delivery failures never roll
// back the ledger, the engine fires notifications after commit and logs errors.
type Notifier interface {
	PaymentCompleted(enrollment *models.Enrollment, payment *models.Payment) error
	PaymentRefunded(enrollment *models.Enrollment, payment *models.Payment) error
}

// Engine owns every state change on the payment ledger. The HTTP layer and the
// webhook processor call it, they never touch payment rows directly.
type Engine struct {
	storage   db.Storage
	adapters  map[string]gateway.Adapter
	refunders map[string]gateway.Refunder
	notifier  Notifier
}

type EngineOpts struct {
	Storage   db.Storage
	Adapters  map[string]gateway.Adapter
	Refunders map[string]gateway.Refunder
	Notifier  Notifier
}

func NewEngine(opts *EngineOpts) *Engine {
	return &Engine{
		storage:   opts.Storage,
		adapters:  opts.Adapters,
		refunders: opts.Refunders,
		notifier:  opts.Notifier,
	}
}

type CreatePaymentOpts struct {
	EnrollmentID  int
	UserID        int
	Amount        decimal.Decimal
	Currency      string
	Method        string
	GatewayMethod string
	Type          string
	CardToken     string
}

// adapterKey maps the requested method onto a charge adapter. Cash and
// transfer settle at the desk, card and stripe are synonymous for the card
// processor, conekta needs the voucher flavor spelled out.
func adapterKey(method string, gatewayMethod string) (string, error) {
	switch method {
	case models.PaymentMethodCash, models.PaymentMethodTransfer:
		return gateway.KeyManual, nil
	case models.PaymentMethodCard, models.PaymentMethodStripe:
		return gateway.KeyCard, nil
	case models.PaymentMethodConekta:
		switch gatewayMethod {
		case models.GatewayMethodOXXO:
			return gateway.KeyOXXO, nil
		case models.GatewayMethodSPEI:
			return gateway.KeySPEI, nil
		}
		return "", E(KindValidation, "conekta payments require gateway_method oxxo or spei")
	}

	return "", E(KindValidation, "unsupported payment method %s", method)
}

// CreatePayment runs a cashier or student initiated charge end to end: check
// the enrollment can take money, charge through the adapter, persist the
// resulting row and reconcile the balance when the charge completed on the
// spot. A gateway failure still leaves a failed row behind so no external
// charge attempt goes unrecorded.
func (e *Engine) CreatePayment(opts *CreatePaymentOpts) (*models.ChargeReceipt, error) {
	if !opts.Amount.IsPositive() {
		return nil, E(KindValidation, "amount must be greater than zero")
	}
	if opts.Amount.Exponent() < -2 {
		return nil, E(KindValidation, "amount must have at most two decimal places")
	}

	key, err := adapterKey(opts.Method, opts.GatewayMethod)
	if err != nil {
		return nil, err
	}

	adapter, ok := e.adapters[key]
	if !ok {
		return nil, E(KindValidation, "payment method %s is not configured", opts.Method)
	}

	enrollment, err := e.storage.GetEnrollmentByID(opts.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, E(KindNotFound, "enrollment %d not found", opts.EnrollmentID)
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, E(KindInvalidState, "enrollment %d is %s, payments require an active enrollment", enrollment.ID, enrollment.Status)
	}

	currency := opts.Currency
	if currency == "" {
		currency = "MXN"
	}

	transactionID := db.GenerateTransactionID()
	description := enrollmentDescription(enrollment)

	insertOpts := &db.InsertPaymentOpts{
		EnrollmentID:  enrollment.ID,
		UserID:        opts.UserID,
		Amount:        opts.Amount,
		Currency:      currency,
		Method:        opts.Method,
		Type:          opts.Type,
		TransactionID: transactionID,
	}

	result, err := adapter.Charge(&gateway.ChargeOpts{
		Enrollment:    enrollment,
		Amount:        opts.Amount,
		Currency:      currency,
		TransactionID: transactionID,
		CardToken:     opts.CardToken,
		Description:   description,
	})
	if err != nil {
		insertOpts.Status = models.PaymentStatusFailed
		if _, insertErr := e.storage.InsertPayment(insertOpts); insertErr != nil {
			log.WithError(insertErr).WithFields(log.Fields{
				"enrollment_id":  enrollment.ID,
				"transaction_id": transactionID,
			}).Error("failed to record gateway failure")
		}

		return nil, WrapE(KindGateway, err, "charge could not be processed")
	}

	insertOpts.Status = result.Status
	insertOpts.ExternalPaymentID = result.ExternalID
	insertOpts.Reference = result.Reference
	insertOpts.ExpiresAt = result.ExpiresAt
	if result.Status == models.PaymentStatusCompleted {
		insertOpts.ReceiptNumber = db.GenerateReceiptNumber()
	}

	payment, err := e.storage.InsertPayment(insertOpts)
	if err != nil {
		// The external charge exists but has no local row. Log everything
		// needed to reconcile it by hand.
		log.WithError(err).WithFields(log.Fields{
			"enrollment_id":  enrollment.ID,
			"transaction_id": transactionID,
			"external_id":    result.ExternalID,
			"method":         opts.Method,
		}).Error("charge succeeded but payment row could not be persisted")

		return nil, err
	}

	receipt := &models.ChargeReceipt{
		Payment: payment,
	}

	if payment.Status == models.PaymentStatusCompleted {
		updated, err := e.storage.GetEnrollmentByID(enrollment.ID)
		if err != nil {
			return nil, err
		}
		receipt.Enrollment = updated

		e.notifyCompleted(updated, payment)
	}

	return receipt, nil
}

// RecordExternalPayment creates a completed payment for a charge that was
// initiated outside this system and is only known through its gateway event.
// The event payload is authoritative for amount and currency, and the active
// status check is deliberately skipped: the money already moved.
func (e *Engine) RecordExternalPayment(event *models.GatewayEvent) (*models.Payment, error) {
	enrollment, err := e.storage.GetEnrollmentByID(event.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, E(KindNotFound, "enrollment %d not found", event.EnrollmentID)
	}

	paymentType := models.PaymentTypePartial
	if event.Amount.GreaterThanOrEqual(enrollment.Remaining()) {
		paymentType = models.PaymentTypeFull
	}

	payment, err := e.storage.InsertPayment(&db.InsertPaymentOpts{
		EnrollmentID:      enrollment.ID,
		Amount:            event.Amount,
		Currency:          event.Currency,
		Method:            event.Method,
		Type:              paymentType,
		Status:            models.PaymentStatusCompleted,
		TransactionID:     db.GenerateTransactionID(),
		ExternalPaymentID: event.ExternalID,
		ReceiptNumber:     db.GenerateReceiptNumber(),
	})
	if err != nil {
		return nil, err
	}

	updated, err := e.storage.GetEnrollmentByID(enrollment.ID)
	if err != nil {
		return nil, err
	}

	e.notifyCompleted(updated, payment)

	return payment, nil
}

// ResolvePayment moves a pending payment to the status a gateway event
// dictates and reconciles the owning enrollment atomically.
func (e *Engine) ResolvePayment(payment *models.Payment, status string, externalID string) (*models.Enrollment, error) {
	enrollment, err := e.storage.SettlePayment(&db.SettlePaymentOpts{
		PaymentID:         payment.ID,
		EnrollmentID:      payment.EnrollmentID,
		Status:            status,
		ExternalPaymentID: externalID,
	})
	if err != nil {
		return nil, err
	}

	if status == models.PaymentStatusCompleted {
		settled, err := e.storage.GetPaymentByID(payment.ID)
		if err != nil {
			return nil, err
		}

		e.notifyCompleted(enrollment, settled)
	}

	return enrollment, nil
}

// ApplyPayment recomputes an enrollment's paid amount and payment status from
// its full payment history. Exposed for backfills and manual corrections.
func (e *Engine) ApplyPayment(enrollmentID int) (*models.Enrollment, error) {
	enrollment, err := e.storage.ReconcileEnrollment(enrollmentID)
	if err != nil {
		if err == db.ErrEnrollmentNotFound {
			return nil, E(KindNotFound, "enrollment %d not found", enrollmentID)
		}

		return nil, err
	}

	return enrollment, nil
}

type RefundOpts struct {
	PaymentID int
	Amount    decimal.Decimal
	Reason    string
}

// Refund reverses all or part of a completed payment. The remote leg runs
// first so a gateway failure leaves the local row untouched.
func (e *Engine) Refund(opts *RefundOpts) (*models.ChargeReceipt, error) {
	if !opts.Amount.IsPositive() {
		return nil, E(KindValidation, "refund amount must be greater than zero")
	}
	if opts.Amount.Exponent() < -2 {
		return nil, E(KindValidation, "refund amount must have at most two decimal places")
	}

	payment, err := e.storage.GetPaymentByID(opts.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, E(KindNotFound, "payment %d not found", opts.PaymentID)
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, E(KindInvalidState, "payment %d is %s, only completed payments can be refunded", payment.ID, payment.Status)
	}
	if opts.Amount.GreaterThan(payment.Amount) {
		return nil, E(KindInvalidState, "refund amount %s exceeds payment amount %s", opts.Amount.StringFixed(2), payment.Amount.StringFixed(2))
	}

	if payment.IsGatewayBacked() {
		refunder, ok := e.refunders[payment.Method]
		if !ok {
			return nil, E(KindInvalidState, "payments made through %s cannot be refunded remotely", payment.Method)
		}

		if err := refunder.Refund(payment.ExternalPaymentID, opts.Amount, opts.Reason); err != nil {
			return nil, WrapE(KindGateway, err, "refund could not be processed")
		}
	}

	enrollment, err := e.storage.RefundPayment(&db.RefundPaymentOpts{
		PaymentID:    payment.ID,
		EnrollmentID: payment.EnrollmentID,
		Amount:       opts.Amount,
		Reason:       opts.Reason,
	})
	if err != nil {
		return nil, err
	}

	refunded, err := e.storage.GetPaymentByID(payment.ID)
	if err != nil {
		return nil, err
	}

	if e.notifier != nil {
		if err := e.notifier.PaymentRefunded(enrollment, refunded); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"payment_id": refunded.ID,
			}).Error("failed to send refund notification")
		}
	}

	return &models.ChargeReceipt{
		Payment:    refunded,
		Enrollment: enrollment,
	}, nil
}

// ExpirePendingPayments fails voucher charges whose expiry passed without a
// gateway notification. Run from the scheduled sweep command.
func (e *Engine) ExpirePendingPayments(now time.Time) (int, error) {
	return e.storage.ExpirePendingPayments(now)
}

func (e *Engine) notifyCompleted(enrollment *models.Enrollment, payment *models.Payment) {
	if e.notifier == nil {
		return
	}

	if err := e.notifier.PaymentCompleted(enrollment, payment); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"payment_id": payment.ID,
		}).Error("failed to send payment notification")
	}
}

func enrollmentDescription(enrollment *models.Enrollment) string {
	if enrollment.Course != nil && enrollment.Course.Name != "" {
		return "Colegiatura " + enrollment.Course.Name
	}

	return "Colegiatura"
}
