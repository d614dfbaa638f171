// Package handlers implements the HTTP endpoints of the ID mapping
// service. Handlers translate between the JSON wire contract and the
// mapper kernel; all errors funnel through WriteError so every failure
// renders the same error envelope.
package handlers

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/kbase/idmapping/internal/logger"
	"github.com/kbase/idmapping/pkg/api/middleware"
	"github.com/kbase/idmapping/pkg/idmap"
)

// errorBody is the error envelope returned on every failed request.
//
// appcode and apperror are present only for typed domain errors; a JSON
// decode failure or an unrouted path carries the HTTP fields alone.
type errorBody struct {
	HTTPCode   int    `json:"httpcode"`
	HTTPStatus string `json:"httpstatus"`
	AppCode    int    `json:"appcode,omitempty"`
	AppError   string `json:"apperror,omitempty"`
	Message    string `json:"message"`
	Time       int64  `json:"time"`
	CallID     string `json:"callid"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// kindToStatus maps a domain error kind to its HTTP status code.
func kindToStatus(kind idmap.ErrorKind) int {
	switch kind {
	case idmap.AuthenticationFailed, idmap.NoToken, idmap.InvalidToken:
		return http.StatusUnauthorized
	case idmap.Unauthorized:
		return http.StatusForbidden
	case idmap.NoSuchUser, idmap.NoSuchNamespace, idmap.NoSuchAuthsource:
		return http.StatusNotFound
	case idmap.UnsupportedOp:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusBadRequest
	}
}

// WriteError renders err as the JSON error envelope. Typed domain errors
// carry their application code and label; anything else is an internal
// error, logged with a stack trace and rendered as a bare 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if kind, ok := idmap.KindOf(err); ok {
		writeErrorBody(w, r, errorBody{
			HTTPCode:   kindToStatus(kind),
			HTTPStatus: http.StatusText(kindToStatus(kind)),
			AppCode:    kind.Code(),
			AppError:   kind.Label(),
			Message:    err.Error(),
		})
		return
	}

	logger.ErrorCtx(r.Context(), "unhandled error in request",
		logger.Err(err),
		logger.Path(r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)
	writeErrorBody(w, r, errorBody{
		HTTPCode:   http.StatusInternalServerError,
		HTTPStatus: http.StatusText(http.StatusInternalServerError),
		Message:    err.Error(),
	})
}

// WriteHTTPError renders a plain HTTP-level error with no application
// code: unrouted paths, disallowed methods, undecodable bodies.
func WriteHTTPError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeErrorBody(w, r, errorBody{
		HTTPCode:   status,
		HTTPStatus: http.StatusText(status),
		Message:    message,
	})
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, body errorBody) {
	body.Time = time.Now().UnixMilli()
	body.CallID = middleware.GetCallID(r.Context())
	WriteJSON(w, body.HTTPCode, errorEnvelope{Error: body})
}
