/*
Package resp writes the admin API's JSON envelope.

Every response carries a business code (0 on success, an errs code otherwise), a message,
the optional payload, and the chi request ID so an operator can match a reply to the
AdminHTTP log line that served it.
*/
package resp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
)

// Envelope is the body of every admin API response.
type Envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// OK sends data with HTTP 200.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusOK, Envelope{Code: 0, Message: "success", Data: data})
}

// Fail sends customErr with its HTTP status. A nil error is reported as ErrUnknown.
func Fail(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	status := customErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	write(w, r, status, Envelope{Code: customErr.Code, Message: customErr.Message})
}

// FailErr sends the first CustomError found in err's chain. Anything else is logged and
// reported as ErrUnknown so internal detail never reaches the operator.
func FailErr(w http.ResponseWriter, r *http.Request, err error) {
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		logx.Error(err, "Unclassified admin API error", "request_id", middleware.GetReqID(r.Context()))
		customErr = nil
	}
	Fail(w, r, customErr)
}

func write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	env.RequestID = middleware.GetReqID(r.Context())

	body, err := json.Marshal(env)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", status, "request_id", env.RequestID)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
