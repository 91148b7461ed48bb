package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/temppredict/internal/domain/auth"
	"github.com/yanqian/temppredict/internal/domain/forecast"
	"github.com/yanqian/temppredict/internal/domain/inventory"
	"github.com/yanqian/temppredict/internal/domain/session"
	"github.com/yanqian/temppredict/internal/domain/upload"
	apperrors "github.com/yanqian/temppredict/pkg/errors"
)

const (
	messageInvalidCredentials = "invalid credentials"
	messageUnavailable        = "service unavailable, try again"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

// fromDomainError maps domain error codes onto statuses and user-facing messages.
// Unreachable, unavailable and malformed upstream answers share one message; the
// code keeps them apart in logs and metrics.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	switch code {
	case auth.CodeInvalidInput: // shared by forecast and upload
		return NewHTTPError(http.StatusBadRequest, code, errMessage(err), err)
	case auth.CodeRejected:
		return NewHTTPError(http.StatusUnauthorized, code, messageInvalidCredentials, err)
	case session.CodeInvalidSession:
		return NewHTTPError(http.StatusUnauthorized, code, errMessage(err), err)
	case auth.CodeUnavailable,
		forecast.CodeUnreachable,
		forecast.CodeMalformed,
		inventory.CodeUnavailable,
		upload.CodeUnavailable,
		session.CodeUnavailable:
		return NewHTTPError(http.StatusServiceUnavailable, code, messageUnavailable, err)
	case forecast.CodeRejected, inventory.CodeBackendError, upload.CodeRejected:
		return NewHTTPError(http.StatusBadGateway, code, errMessage(err), err)
	case forecast.CodeNormalizeEmpty:
		return NewHTTPError(http.StatusNotFound, code, errMessage(err), err)
	case forecast.CodeNormalizeShape, forecast.CodeNormalizeDuplicate, forecast.CodeNormalizeUnsorted:
		return NewHTTPError(http.StatusBadGateway, code, messageUnavailable, err)
	case session.CodeInFlight, session.CodeSuperseded:
		return NewHTTPError(http.StatusConflict, code, errMessage(err), err)
	case session.CodeInvalidContext:
		return NewHTTPError(http.StatusBadRequest, code, errMessage(err), err)
	}
	return asHTTPError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// errMessage prefers the domain message over the wrapped chain.
func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
