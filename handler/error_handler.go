package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/churchly/backend/pkg/logger"
)

// Classifier translates domain errors into HTTPError or ValidationError
// values. Errors it returns unchanged render as 500.
type Classifier func(err error) error

// NewErrorHandler returns an ErrorHandler that classifies err, logs it at
// WARN for client errors and ERROR otherwise, and writes the JSON envelope.
func NewErrorHandler(log *slog.Logger, classify Classifier) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	if classify == nil {
		classify = func(err error) error { return err }
	}

	return func(ctx Context, err error) {
		classified := classify(err)
		resp := JSONError(classified)

		status := StatusOf(classified)
		level := slog.LevelError
		if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}

		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request error",
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
		}
	}
}

// StatusOf returns the HTTP status err renders with.
func StatusOf(err error) int {
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return http.StatusUnprocessableEntity
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}
