package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	DispatchErrorBadInput      = "DISPATCH_BAD_INPUT"
	DispatchErrorEventNotFound = "DISPATCH_EVENT_NOT_FOUND"
	DispatchErrorStaleClaim    = "DISPATCH_STALE_CLAIM"
	DispatchErrorStoreFailed   = "DISPATCH_STORE_FAILED"
	DispatchErrorInternal      = "DISPATCH_INTERNAL_ERROR"
)

func dispatchErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureDispatchErrorEnvelope(richErr)
	}

	switch {
	case goerrors.Is(err, ErrEventNotFound):
		return newDispatchError(err.Error(), goerrors.CategoryNotFound, DispatchErrorEventNotFound)
	case goerrors.Is(err, ErrStaleClaim):
		return newDispatchError(err.Error(), goerrors.CategoryConflict, DispatchErrorStaleClaim)
	case goerrors.Is(err, ErrPayloadRequired),
		goerrors.Is(err, ErrInvalidTargetURL),
		goerrors.Is(err, ErrInvalidStatus):
		return newDispatchError(err.Error(), goerrors.CategoryBadInput, DispatchErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newDispatchError(err.Error(), goerrors.CategoryBadInput, DispatchErrorBadInput)
	case strings.Contains(msg, "sql"), strings.Contains(msg, "database"), strings.Contains(msg, "transaction"):
		return newDispatchError(err.Error(), goerrors.CategoryInternal, DispatchErrorStoreFailed)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureDispatchErrorEnvelope(mapped)
}

func newDispatchError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureDispatchErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureDispatchErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = dispatchHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultDispatchTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultDispatchTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return DispatchErrorBadInput
	case goerrors.CategoryNotFound:
		return DispatchErrorEventNotFound
	case goerrors.CategoryConflict:
		return DispatchErrorStaleClaim
	default:
		return DispatchErrorInternal
	}
}

func dispatchHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MapError exposes the package error mapper to the transport layers.
func MapError(err error) *goerrors.Error {
	return dispatchErrorMapper(err)
}
