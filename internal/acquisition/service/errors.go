package service

import (
	"errors"

	"propsales_backend/internal/acquisition/repository"
	"propsales_backend/platform/apperr"
)

// User-facing messages for the conflict and eligibility failures the
// state machine produces.
const (
	msgPropertyTaken       = "this property was just taken by another client"
	msgPropertyUnavailable = "this property is no longer available"
	msgAlreadyInterested   = "you already have an active interest in this property"
	msgNoInterest          = "no interest found for this property"
	msgPropertyNotFound    = "property not found"
	msgClientNotFound      = "client not found"
)

// mapStoreErr converts repository sentinels into typed domain errors.
// Unknown errors pass through and are treated as internal by the HTTP layer.
func mapStoreErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrPropertyNotFound),
		errors.Is(err, repository.ErrInterestNotFound),
		errors.Is(err, repository.ErrPipelineNotFound):
		return apperr.NotFound(notFoundMsg)
	case errors.Is(err, repository.ErrStaleRead):
		return apperr.Conflict(msgPropertyTaken)
	default:
		return apperr.Wrap(apperr.KindInternal, "store operation failed", err)
	}
}
