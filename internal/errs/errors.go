package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	// ErrInvalid marks a validation failure (empty required field, out of range value).
	ErrInvalid = errors.New("validation_error")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrImmutable indicates an attempt to change immutable fields
	ErrImmutable = errors.New("immutable")
	// ErrUnauthenticated means no usable identity was presented.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrProtectedRole is returned when a built-in role is edited or deleted.
	ErrProtectedRole = errors.New("protected_role")
	// ErrNotAMember is returned when resolving permissions for a user outside the group.
	ErrNotAMember = errors.New("not_a_member")
	// ErrInUseByMembers blocks deleting a role that members are still assigned to.
	ErrInUseByMembers = errors.New("in_use_by_members")
	// ErrNoTargetSelected is returned by move-and-delete without a destination account.
	ErrNoTargetSelected = errors.New("no_target_selected")
	// ErrHasTransactions means the account is still referenced by transactions.
	ErrHasTransactions = errors.New("pending_resolution")
	// ErrVersionMismatch signals a stale optimistic concurrency token.
	ErrVersionMismatch = errors.New("version_mismatch")
	// ErrMixedCurrency is returned when amounts in different currencies are combined.
	ErrMixedCurrency = errors.New("mixed_currency")
	// ErrNetworkFailure wraps transport failures seen by API clients.
	ErrNetworkFailure = errors.New("network_failure")
)
