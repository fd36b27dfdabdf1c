package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/colegioandes/backend/config"
	"bitbucket.org/colegioandes/backend/ledger"
	"bitbucket.org/colegioandes/backend/middlewares"
	"bitbucket.org/colegioandes/backend/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

// writeLedgerError maps the engine's error taxonomy onto HTTP statuses.
func writeLedgerError(ctx *config.AppContext, w *middlewares.ResponseWriter, err error) {
	switch ledger.KindOf(err) {
	case ledger.KindValidation:
		w.WriteJSON(http.StatusBadRequest, nil, err, err.Error())
	case ledger.KindNotFound:
		w.WriteJSON(http.StatusNotFound, nil, err, err.Error())
	case ledger.KindInvalidState:
		w.WriteJSON(http.StatusBadRequest, nil, err, err.Error())
	case ledger.KindConflict:
		w.WriteJSON(http.StatusConflict, nil, err, err.Error())
	case ledger.KindGateway:
		w.Write(http.StatusBadGateway, nil, err, middlewares.Responses.GatewayUnavailable)
	case ledger.KindSignature:
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.InvalidSignature)
	default:
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
	}
}

func InsertPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier && !userInfo.IsStudent {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	vars := mux.Vars(r)
	enrollmentID, err := strconv.Atoi(vars["enrollment_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing enrollment id")
		return
	}

	var opts models.InsertPaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertPaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	// Students pay through a gateway only, the desk methods are for staff.
	if userInfo.IsStudent && !userInfo.IsAdmin && !userInfo.IsCashier {
		switch opts.Method {
		case models.PaymentMethodCash, models.PaymentMethodTransfer:
			w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
			return
		}
	}

	amount, err := decimal.NewFromString(opts.Amount)
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing amount")
		return
	}

	receipt, err := ctx.Ledger.CreatePayment(&ledger.CreatePaymentOpts{
		EnrollmentID:  enrollmentID,
		UserID:        userInfo.ID,
		Amount:        amount,
		Currency:      opts.Currency,
		Method:        opts.Method,
		GatewayMethod: opts.GatewayMethod,
		Type:          opts.Type,
		CardToken:     opts.CardToken,
	})
	if err != nil {
		writeLedgerError(ctx, w, err)
		return
	}

	if receipt.Payment.Status == models.PaymentStatusFailed {
		w.Write(http.StatusBadRequest, receipt, nil, middlewares.Responses.PaymentDeclined)
		return
	}

	w.WriteJSON(http.StatusOK, receipt, nil, "")
}

func RefundPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	vars := mux.Vars(r)
	paymentID, err := strconv.Atoi(vars["payment_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing payment id")
		return
	}

	var opts models.RefundPaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.RefundPaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	amount, err := decimal.NewFromString(opts.Amount)
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing amount")
		return
	}

	receipt, err := ctx.Ledger.Refund(&ledger.RefundOpts{
		PaymentID: paymentID,
		Amount:    amount,
		Reason:    opts.Reason,
	})
	if err != nil {
		writeLedgerError(ctx, w, err)
		return
	}

	w.WriteJSON(http.StatusOK, receipt, nil, "")
}

func GetPayments(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetPaymentsRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetPaymentsOpts
	decoder := schema.NewDecoder()
	decoder.Decode(&opts, r.URL.Query())

	payments, err := ctx.DB.GetPayments(&opts)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, payments, nil, "")
}
