package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/colegioandes/backend/config"
	"bitbucket.org/colegioandes/backend/db"
	"bitbucket.org/colegioandes/backend/middlewares"
	"bitbucket.org/colegioandes/backend/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

func InsertEnrollment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	var opts models.InsertEnrollmentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertEnrollmentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	course, err := ctx.DB.GetCourseByID(opts.CourseID)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if course == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.CourseNotFound)
		return
	}

	if !course.HasCapacity() {
		w.Write(http.StatusConflict, nil, nil, middlewares.Responses.CourseFull)
		return
	}

	student, err := ctx.DB.GetUserByID(opts.StudentID)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if student == nil || !student.HasRole(db.ConstRoles.Student) {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.UserNotFound)
		return
	}

	totalAmount := course.Price
	if opts.TotalAmount != "" {
		totalAmount, err = decimal.NewFromString(opts.TotalAmount)
		if err != nil {
			w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing total amount")
			return
		}
	}

	discountAmount := decimal.Zero
	if opts.DiscountAmount != "" {
		discountAmount, err = decimal.NewFromString(opts.DiscountAmount)
		if err != nil {
			w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing discount amount")
			return
		}
	}

	if discountAmount.GreaterThan(totalAmount) {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "discount amount exceeds total amount")
		return
	}

	enrollment, err := ctx.DB.InsertEnrollment(&db.InsertEnrollmentOpts{
		StudentID:      opts.StudentID,
		CourseID:       opts.CourseID,
		TeacherID:      opts.TeacherID,
		TotalAmount:    totalAmount,
		DiscountAmount: discountAmount,
	})
	if err == db.ErrDuplicateEnrollment {
		w.Write(http.StatusConflict, nil, nil, middlewares.Responses.DuplicateEnrollment)
		return
	}
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, enrollment, nil, "")
}

func UpdateEnrollmentStatus(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	vars := mux.Vars(r)
	enrollmentID, err := strconv.Atoi(vars["enrollment_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing enrollment id")
		return
	}

	var opts models.UpdateEnrollmentStatusOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.UpdateEnrollmentStatusRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	enrollment, err := ctx.DB.GetEnrollmentByID(enrollmentID)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if enrollment == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.EnrollmentNotFound)
		return
	}

	if enrollment.Status == models.EnrollmentStatusCancelled {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "cancelled enrollments cannot change status")
		return
	}

	if err := ctx.DB.UpdateEnrollmentStatus(enrollmentID, opts.Status); err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	enrollment, err = ctx.DB.GetEnrollmentByID(enrollmentID)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, enrollment, nil, "")
}

func GetEnrollment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	vars := mux.Vars(r)
	enrollmentID, err := strconv.Atoi(vars["enrollment_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing enrollment id")
		return
	}

	enrollment, err := ctx.DB.GetEnrollmentWithPayments(enrollmentID)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if enrollment == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.EnrollmentNotFound)
		return
	}

	// Students only see their own ledger.
	if userInfo.IsStudent && !userInfo.IsAdmin && !userInfo.IsCashier {
		if enrollment.Student == nil || enrollment.Student.ID != userInfo.ID {
			w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
			return
		}
	}

	w.WriteJSON(http.StatusOK, enrollment, nil, "")
}

func GetEnrollments(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetEnrollmentsRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetEnrollmentsOpts
	decoder := schema.NewDecoder()
	decoder.Decode(&opts, r.URL.Query())

	enrollments, err := ctx.DB.GetEnrollments(&opts)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, enrollments, nil, "")
}

// ReconcileEnrollment recomputes the paid amount and payment status from the
// full payment history. Manual correction entry point for admins.
func ReconcileEnrollment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	vars := mux.Vars(r)
	enrollmentID, err := strconv.Atoi(vars["enrollment_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing enrollment id")
		return
	}

	enrollment, err := ctx.Ledger.ApplyPayment(enrollmentID)
	if err != nil {
		writeLedgerError(ctx, w, err)
		return
	}

	w.WriteJSON(http.StatusOK, enrollment, nil, "")
}
