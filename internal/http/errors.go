package http

import (
	"errors"
	"net/http"
	"strings"

	"wealthplanner/internal/auth"
	"wealthplanner/internal/core"
	"wealthplanner/internal/finance"
	"wealthplanner/internal/log"
	"wealthplanner/internal/services"
)

// userErrors are shown to the user as they are.
var userErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidCategory,
	core.ErrInvalidTheme,
	core.ErrInvalidCurrency,
	core.ErrInvalidPhone,
	core.ErrInvalidPIN,
	core.ErrNameTooLong,
	core.ErrRulesSum,
	core.ErrNegativeRule,
	finance.ErrInvalidPeriod,
	services.ErrUserExists,
	services.ErrOTPNotFound,
	services.ErrOTPInvalid,
	services.ErrPINMismatch,
	services.ErrNameRequired,
	services.ErrEmptyOrder,
}

// classify maps an error to its status code and the message safe to show.
func classify(err error) (int, string) {
	var insufficient *finance.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		return http.StatusBadRequest, insufficient.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, services.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, services.ErrInvalidBackup):
		return http.StatusBadRequest, strings.ReplaceAll(err.Error(), "\n", ": ")
	case errors.Is(err, errMalformedBody), errors.Is(err, errBodyTooLarge):
		for _, target := range userErrors {
			if errors.Is(err, target) {
				return http.StatusBadRequest, target.Error()
			}
		}
		return http.StatusBadRequest, err.Error()
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// writeAPIError answers err as JSON. notFound replaces the generic 404 message.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	status, msg := classify(err)
	switch {
	case status == http.StatusNotFound && notFound != "":
		msg = notFound
	case status == http.StatusInternalServerError:
		logFailure(r, "API request failed", log.ComponentAPI, err)
		InternalServerError().Write(w)
		return
	}
	ErrorResponse(status, msg).Write(w)
}

// userMessage turns err into the message a page shows after a redirect.
func userMessage(r *http.Request, err error) string {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		logFailure(r, "Page action failed", log.ComponentHTTP, err)
		return "Something went wrong. Please try again."
	}
	return msg
}

func logFailure(r *http.Request, msg, component string, err error) {
	fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer())
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err, component, r.Pattern, fields)
}
