package rest

import (
	"errors"
	"log/slog"
	"net/http"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// handlerFunc is an HTTP handler that reports failures instead of writing them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// badRequestError is a client error answered with 400 and {"error": message}.
type badRequestError struct {
	message string
	cause   error
}

func (e *badRequestError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *badRequestError) Unwrap() error { return e.cause }

func badRequest(message string, cause error) error {
	return &badRequestError{message: message, cause: cause}
}

// wrap is the single place where handler errors become HTTP responses.
// Not-found and server errors are answered with an empty body.
func (h *Handler) wrap(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		mLogger := h.loggerWithReqID(r)

		var (
			validationErrors validator.ValidationErrors
			badRequestErr    *badRequestError
			queryParamErr    *web.QueryParamError
		)
		switch {
		case errors.Is(err, perrors.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Product not found", "path", r.URL.Path, "error", err)
			w.WriteHeader(http.StatusNotFound)
		case errors.As(err, &validationErrors):
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				// fieldErr.Tag() returns "required", "max", etc.
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		case errors.As(err, &queryParamErr):
			mLogger.WarnContext(r.Context(), "Invalid query parameter", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, queryParamErr.Error())
		case errors.Is(err, perrors.ErrInvalidPriceRange):
			mLogger.WarnContext(r.Context(), "Invalid price range", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, "min must not be greater than max")
		case errors.As(err, &badRequestErr):
			mLogger.WarnContext(r.Context(), "Bad request", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, badRequestErr.message)
		default:
			mLogger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}
