package httpadapter

import (
	"net/http"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrEmptyContent):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicErrorMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "the analysis service is temporarily unavailable, please try again later."
	case http.StatusBadRequest:
		return "the request could not be processed."
	case http.StatusRequestEntityTooLarge:
		return "the request body is too large."
	default:
		return "internal error while analyzing the email."
	}
}
