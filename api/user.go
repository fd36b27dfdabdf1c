package api

import (
	"net/http"

	"bitbucket.org/colegioandes/backend/config"
	"bitbucket.org/colegioandes/backend/middlewares"
	"bitbucket.org/colegioandes/backend/models"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/thedevsaddam/govalidator"
)

// GetUsers lists users for the admin and cashier consoles, mostly to look up
// student and teacher ids when registering enrollments.
func GetUsers(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetUsersRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetUsersOpts
	decoder := schema.NewDecoder()
	decoder.Decode(&opts, r.URL.Query())

	users, err := ctx.DB.GetUsers(&opts)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, users, nil, "")
}
