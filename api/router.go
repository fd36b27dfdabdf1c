package api

import (
	"net/http"

	"bitbucket.org/colegioandes/backend/config"
	"bitbucket.org/colegioandes/backend/middlewares"
	"bitbucket.org/colegioandes/backend/server"
)

// HealthcheckHandler indicates the service's healthy
func HealthcheckHandler(_ *config.AppContext, w *middlewares.ResponseWriter, _ *http.Request) {
	w.String(http.StatusOK, "OK")
}

// GetRoutes ...
func GetRoutes() []*server.Route {
	return []*server.Route{
		{Path: "/healthcheck", Methods: []string{"GET", "HEAD"}, Handler: HealthcheckHandler, IsProtected: false},

		// Auth
		{Path: "/auth/login", Methods: []string{"POST", "HEAD"}, Handler: Login, IsProtected: false},

		// User
		{Path: "/user", Methods: []string{"GET", "HEAD"}, Handler: GetUsers, IsProtected: true},

		// Enrollment
		{Path: "/enrollment", Methods: []string{"POST", "HEAD"}, Handler: InsertEnrollment, IsProtected: true},
		{Path: "/enrollment", Methods: []string{"GET", "HEAD"}, Handler: GetEnrollments, IsProtected: true},
		{Path: "/enrollment/{enrollment_id}", Methods: []string{"GET", "HEAD"}, Handler: GetEnrollment, IsProtected: true},
		{Path: "/enrollment/{enrollment_id}/status", Methods: []string{"PUT", "HEAD"}, Handler: UpdateEnrollmentStatus, IsProtected: true},
		{Path: "/enrollment/{enrollment_id}/payment", Methods: []string{"POST", "HEAD"}, Handler: InsertPayment, IsProtected: true},
		{Path: "/enrollment/{enrollment_id}/reconcile", Methods: []string{"POST", "HEAD"}, Handler: ReconcileEnrollment, IsProtected: true},

		// Payment
		{Path: "/payment", Methods: []string{"GET", "HEAD"}, Handler: GetPayments, IsProtected: true},
		{Path: "/payment/{payment_id}/refund", Methods: []string{"POST", "HEAD"}, Handler: RefundPayment, IsProtected: true},

		// Webhooks
		{Path: "/webhook/conekta", Methods: []string{"POST", "HEAD"}, Handler: UpdatePaymentConekta, IsProtected: false},
		{Path: "/webhook/stripe", Methods: []string{"POST", "HEAD"}, Handler: UpdatePaymentStripe, IsProtected: false},
	}
}
