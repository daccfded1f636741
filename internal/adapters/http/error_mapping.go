package httpadapter

import (
	"net/http"

	"github.com/mkoehler/docsort/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrInvalidRule),
		domain.IsKind(err, domain.ErrInvalidCategory):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrJobNotFound),
		domain.IsKind(err, domain.ErrRuleNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrExtraction):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrInferenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
