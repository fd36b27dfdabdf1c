package webhook

import (
	"bitbucket.org/colegioandes/backend/db"
	"bitbucket.org/colegioandes/backend/ledger"
	"bitbucket.org/colegioandes/backend/models"
	log "github.com/sirupsen/logrus"
)

// Processor applies normalized gateway events to the ledger. Gateways retry
// deliveries, so processing is idempotent: a payment already in a terminal
// state absorbs any further event for the same external charge.
type Processor struct {
	storage db.Storage
	engine  *ledger.Engine
}

func NewProcessor(storage db.Storage, engine *ledger.Engine) *Processor {
	return &Processor{
		storage: storage,
		engine:  engine,
	}
}

func (p *Processor) Process(event *models.GatewayEvent) error {
	if event.ExternalID == "" {
		return ledger.E(ledger.KindValidation, "event carries no external charge id")
	}

	payment, err := p.storage.GetPaymentByExternalID(event.ExternalID)
	if err != nil {
		return err
	}

	if payment == nil {
		if event.Kind != models.EventChargeSucceeded {
			log.WithFields(log.Fields{
				"external_id": event.ExternalID,
				"kind":        event.Kind,
			}).Info("ignoring event for unknown charge")

			return nil
		}

		if event.EnrollmentID == 0 {
			return ledger.E(ledger.KindValidation, "event for unknown charge %s carries no enrollment reference", event.ExternalID)
		}

		_, err := p.engine.RecordExternalPayment(event)
		return err
	}

	if payment.IsTerminal() {
		log.WithFields(log.Fields{
			"payment_id":  payment.ID,
			"external_id": event.ExternalID,
			"status":      payment.Status,
		}).Info("duplicate gateway event, payment already settled")

		return nil
	}

	status, ok := statusForEvent(event.Kind)
	if !ok {
		return ledger.E(ledger.KindValidation, "unknown event kind %s", event.Kind)
	}

	_, err = p.engine.ResolvePayment(payment, status, event.ExternalID)
	return err
}

func statusForEvent(kind string) (string, bool) {
	switch kind {
	case models.EventChargeSucceeded:
		return models.PaymentStatusCompleted, true
	case models.EventChargeFailed, models.EventOrderExpired:
		return models.PaymentStatusFailed, true
	}

	return "", false
}
