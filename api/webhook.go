package api

import (
	"io/ioutil"
	"net/http"

	"bitbucket.org/colegioandes/backend/config"
	"bitbucket.org/colegioandes/backend/ledger"
	"bitbucket.org/colegioandes/backend/middlewares"
	"bitbucket.org/colegioandes/backend/webhook"
)

// Webhook handlers ack with 200 once the signature checks out, even when
// processing fails internally. The gateways retry on anything else and our
// failures are recoverable from logs plus the reconcile endpoint.

func UpdatePaymentConekta(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)
	w.StartLogger("UpdatePaymentConekta")

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		w.LogError(err, "failed reading body")
		return
	}
	defer r.Body.Close()

	if !ctx.Conekta.VerifySignature(body, r.Header.Get("Digest")) {
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.InvalidSignature)
		return
	}

	event, err := webhook.ParseConekta(body)
	if err != nil {
		w.LogError(err, "failed parsing event")
		return
	}

	if event == nil {
		w.LogInfo(nil, "ignored event type")
		return
	}

	if err := ctx.Webhooks.Process(event); err != nil {
		w.LogError(err, "failed processing event")
		return
	}

	w.LogInfo(event, "success")
}

func UpdatePaymentStripe(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)
	w.StartLogger("UpdatePaymentStripe")

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		w.LogError(err, "failed reading body")
		return
	}
	defer r.Body.Close()

	event, err := webhook.ParseStripe(body, r.Header.Get("Stripe-Signature"), ctx.Config.Stripe.WebhookSecret)
	if err != nil {
		if ledger.IsKind(err, ledger.KindSignature) {
			w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.InvalidSignature)
			return
		}

		w.LogError(err, "failed parsing event")
		return
	}

	if event == nil {
		w.LogInfo(nil, "ignored event type")
		return
	}

	if err := ctx.Webhooks.Process(event); err != nil {
		w.LogError(err, "failed processing event")
		return
	}

	w.LogInfo(event, "success")
}
