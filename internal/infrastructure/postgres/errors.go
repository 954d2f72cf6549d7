package postgres

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"github.com/baechuer/campus-coord/internal/domain"
)

// SQLSTATE codes the store reacts to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeExclusionViolation  = "23P01"
	codeLockNotAvailable    = "55P03"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeQueryCanceled       = "57014"
)

// mapErr turns driver errors into domain errors. Domain errors pass through;
// anything unrecognised becomes a retryable store failure.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrStoreUnavailable(err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeExclusionViolation:
			if pqErr.Constraint == "reservations_no_overlap" {
				return domain.ErrReservationConflict()
			}
		case codeUniqueViolation:
			switch pqErr.Constraint {
			case "registrations_active_uniq":
				return domain.ErrAlreadyRegistered()
			case "users_email_key":
				return domain.ErrEmailAlreadyExists()
			}
		case codeForeignKeyViolation:
			switch pqErr.Constraint {
			case "reservations_resource_id_fkey":
				return domain.ErrResourceNotFound()
			case "reservations_event_id_fkey", "registrations_event_id_fkey":
				return domain.ErrEventNotFound()
			case "reservations_user_id_fkey", "registrations_user_id_fkey", "events_organizer_id_fkey":
				return domain.ErrUserNotFound()
			}
		case codeLockNotAvailable, codeSerialization, codeDeadlock, codeQueryCanceled:
			return domain.ErrStoreUnavailable(err)
		}
	}
	return domain.ErrStoreUnavailable(err)
}
