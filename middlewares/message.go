package middlewares

var Responses = struct {
	FailedValidations        *NewRM
	InternalServerError      *NewRM
	InvalidRoles             *NewRM
	UserNotFound             *NewRM
	CourseNotFound           *NewRM
	CourseFull               *NewRM
	EnrollmentNotFound       *NewRM
	DuplicateEnrollment      *NewRM
	EnrollmentNotActive      *NewRM
	PaymentNotFound          *NewRM
	PaymentDeclined          *NewRM
	PaymentNotRefundable     *NewRM
	RefundExceedsPayment     *NewRM
	UnsupportedPaymentMethod *NewRM
	GatewayUnavailable       *NewRM
	InvalidSignature         *NewRM
}{
	FailedValidations: &NewRM{
		Language.English: "Failed field validations",
		Language.Spanish: "Las validaciones de los campos fallaron",
	},
	InternalServerError: &NewRM{
		Language.English: "Internal server error",
		Language.Spanish: "Problemas con el servidor",
	},
	InvalidRoles: &NewRM{
		Language.English: "Invalid roles",
		Language.Spanish: "No tienes permiso para realizar esta acción",
	},
	UserNotFound: &NewRM{
		Language.English: "User not found",
		Language.Spanish: "No se encontró el usuario",
	},
	CourseNotFound: &NewRM{
		Language.English: "Course not found",
		Language.Spanish: "No se encontró el curso",
	},
	CourseFull: &NewRM{
		Language.English: "Course has no open seats",
		Language.Spanish: "El curso no tiene cupo disponible",
	},
	EnrollmentNotFound: &NewRM{
		Language.English: "Enrollment not found",
		Language.Spanish: "No se encontró la inscripción",
	},
	DuplicateEnrollment: &NewRM{
		Language.English: "Student already enrolled in this course",
		Language.Spanish: "El alumno ya está inscrito en este curso",
	},
	EnrollmentNotActive: &NewRM{
		Language.English: "Enrollment is not active",
		Language.Spanish: "La inscripción no está activa",
	},
	PaymentNotFound: &NewRM{
		Language.English: "Payment not found",
		Language.Spanish: "No se encontró el pago",
	},
	PaymentDeclined: &NewRM{
		Language.English: "Payment was declined",
		Language.Spanish: "El pago fue rechazado",
	},
	PaymentNotRefundable: &NewRM{
		Language.English: "Only completed payments can be refunded",
		Language.Spanish: "Solo se pueden reembolsar pagos completados",
	},
	RefundExceedsPayment: &NewRM{
		Language.English: "Refund amount exceeds payment amount",
		Language.Spanish: "El monto del reembolso excede el monto del pago",
	},
	UnsupportedPaymentMethod: &NewRM{
		Language.English: "Unsupported payment method",
		Language.Spanish: "Método de pago no soportado",
	},
	GatewayUnavailable: &NewRM{
		Language.English: "Payment processor unavailable",
		Language.Spanish: "Problemas con el procesador de pagos",
	},
	InvalidSignature: &NewRM{
		Language.English: "Invalid signature",
		Language.Spanish: "Firma inválida",
	},
}

type NewRM map[string]string

var Language = struct {
	English string
	Spanish string
}{
	English: "en",
	Spanish: "es",
}

var LanguageMap = map[string]string{
	Language.Spanish: "Spanish",
	Language.English: "English",
}
