package middlewares

import (
	"encoding/json"
	"fmt"
	"net/http"

	"bitbucket.org/colegioandes/backend/config"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ResponseWriter struct {
	Writer   http.ResponseWriter
	Language string
	logger   *log.Entry
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		Writer: w,
	}
}

type generalResponse struct {
	Errors  []*errorResponse `json:"errors"`
	Success bool             `json:"success"`
	Data    interface{}      `json:"data"`
}

type errorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Scope   string      `json:"scope"`
	Type    int         `json:"type"`
	Data    interface{} `json:"data"`
}

type ErrOption func(*errorResponse)

func WithErrorType(errType int) ErrOption {
	return func(err *errorResponse) {
		err.Type = errType
	}
}

func WithErrorScope(scope string) ErrOption {
	return func(err *errorResponse) {
		err.Scope = scope
	}
}

// GetRequestLanguage picks the response language from the Accept-Language
// header, falling back to Spanish.
func (r *ResponseWriter) GetRequestLanguage(req *http.Request) {
	language := req.Header.Get("Accept-Language")
	if _, ok := LanguageMap[language]; !ok {
		language = Language.Spanish
	}
	r.Language = language
}

func (r *ResponseWriter) writeJSONResponse(code int, errors []*errorResponse, data interface{}) {
	r.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	response := &generalResponse{Errors: errors, Success: errors == nil, Data: data}
	b, err := json.Marshal(response)
	if err != nil {
		r.Writer.WriteHeader(http.StatusInternalServerError)
		r.Writer.Write([]byte(fmt.Sprintf("unexpected error: %v", err)))
	}
	r.Writer.WriteHeader(code)
	if code, err := r.Writer.Write(b); err != nil {
		_ = fmt.Sprintf("could not response - code: %d", code)
	}
}

func (r *ResponseWriter) writePlainJSONResponse(statusCode int, data interface{}) {
	b, err := json.Marshal(data)
	if err != nil {
		r.Writer.WriteHeader(http.StatusInternalServerError)
		r.Writer.Write([]byte(fmt.Sprintf("unexpected error: %v", err)))
	}

	r.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	r.Writer.WriteHeader(statusCode)

	if code, err := r.Writer.Write(b); err != nil {
		_ = fmt.Sprintf("could not response - code: %d", code)
	}
}

// Write responds with a translatable message taken from the Responses table.
func (r *ResponseWriter) Write(statusCode int, data interface{}, err error, message *NewRM) {
	msg := ""
	if message != nil {
		msg = (*message)[r.Language]
		if msg == "" {
			msg = (*message)[Language.Spanish]
		}
	}

	r.WriteJSON(statusCode, data, err, msg)
}

func (r *ResponseWriter) WriteJSON(statusCode int, data interface{}, err error, message string) {
	logger := config.GetLogger()
	fields := make(log.Fields)
	fields["status_code"] = statusCode
	if statusCode >= 200 && statusCode <= 299 {
		logger.WithFields(fields).Info("success")
	}
	if statusCode >= 300 {
		if data == nil {
			data = map[string]interface{}{
				"error": message,
			}
		}
		if err == nil {
			err = errors.Errorf(message)
		}
		fields["errors"] = data
		logger.WithFields(fields).Error(err)
	}
	r.writePlainJSONResponse(statusCode, data)
}

// StartLogger tags every LogError and LogInfo call with the handler name and
// a delivery id, so retried webhook deliveries can be told apart in the logs.
// Used by webhook handlers that always ack with an empty 200 so the gateway
// does not retry on our internal failures.
func (r *ResponseWriter) StartLogger(handler string) {
	r.logger = config.GetLogger().WithFields(log.Fields{
		"handler":     handler,
		"delivery_id": uuid.NewString(),
	})
}

func (r *ResponseWriter) LogError(err error, message string) {
	logger := r.logger
	if logger == nil {
		logger = config.GetLogger()
	}

	if err != nil {
		logger.WithError(err).Error(message)
		return
	}

	logger.Error(message)
}

func (r *ResponseWriter) LogInfo(data interface{}, message string) {
	logger := r.logger
	if logger == nil {
		logger = config.GetLogger()
	}

	if data != nil {
		logger.WithFields(log.Fields{"data": data}).Info(message)
		return
	}

	logger.Info(message)
}

func (r *ResponseWriter) JSON(code int, data interface{}) {
	r.writeJSONResponse(code, nil, data)
}

func (r *ResponseWriter) Stringf(code int, format string, args ...interface{}) {
	r.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	r.Writer.WriteHeader(code)
	if code, err := r.Writer.Write([]byte(fmt.Sprintf(format, args...))); err != nil {
		_ = fmt.Sprintf("could not response - code: %d", code)
	}
}

func (r *ResponseWriter) Errorf(code int, format string, args ...interface{}) {
	errors := []*errorResponse{
		{Code: code, Message: fmt.Sprintf(format, args...)},
	}
	r.writeJSONResponse(code, errors, nil)
}

func (r *ResponseWriter) ErrorJ(code int, format string, data interface{}) {
	errors := []*errorResponse{
		{Code: code, Message: format, Data: data},
	}
	r.writeJSONResponse(code, errors, nil)
}

func (r *ResponseWriter) String(code int, msg string) {
	r.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	r.Writer.WriteHeader(code)
	if code, err := r.Writer.Write([]byte(msg)); err != nil {
		_ = fmt.Sprintf("could not response - code: %d", code)
	}
}

func (r *ResponseWriter) Error(code int, msg string, opts ...ErrOption) {
	err := &errorResponse{Code: code, Message: msg}
	for _, With := range opts {
		With(err)
	}
	r.writeJSONResponse(code, []*errorResponse{err}, nil)
}
