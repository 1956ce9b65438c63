/*
errors.go - Policy lifecycle error types

SEE ALSO:
  - lifecycle.go: Returns these from transitions
  - commission/errors.go: Engine-level errors this package passes through
*/
package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrPolicyNotFound is returned when a referenced policy doesn't exist.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrRenewalNotFound is returned when a referenced renewal doesn't exist.
	ErrRenewalNotFound = errors.New("renewal not found")

	// ErrCompanyNotFound is returned when a company code or ID doesn't resolve.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrAgentNotFound is returned when an agent code or ID doesn't resolve.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrSubAgentNotFound is returned when a sub-agent ID doesn't resolve.
	ErrSubAgentNotFound = errors.New("sub-agent not found")

	// ErrClientNotFound is returned when a client ID doesn't resolve.
	ErrClientNotFound = errors.New("client not found")

	// ErrDuplicatePolicyNumber is returned when issuing a policy whose
	// number already exists.
	ErrDuplicatePolicyNumber = errors.New("policy number already exists")

	// ErrDuplicateCode is returned when a company or agent code collides.
	ErrDuplicateCode = errors.New("code already exists")

	// ErrPolicyCancelled is returned when operating on a cancelled
	// policy. Cancellation is terminal.
	ErrPolicyCancelled = errors.New("policy is cancelled")

	// ErrPolicyNotActive is returned when a transition requires an
	// active policy.
	ErrPolicyNotActive = errors.New("policy is not active")

	// ErrRenewalNotPending is returned when completing or lapsing a
	// renewal that already reached a terminal status.
	ErrRenewalNotPending = errors.New("renewal is not pending")

	// ErrInvalidPolicyDates is returned when end date is not after start.
	ErrInvalidPolicyDates = errors.New("end date must be after start date")

	// ErrMissingPolicyNumber is returned when issuing without a policy
	// number.
	ErrMissingPolicyNumber = errors.New("policy number is required")
)

// InvalidTransitionError reports a lifecycle move the state machine
// does not allow.
type InvalidTransitionError struct {
	PolicyID string
	From     Status
	Action   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("policy %s: cannot %s from status %q", e.PolicyID, e.Action, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	if e.From == StatusCancelled {
		return ErrPolicyCancelled
	}
	return ErrPolicyNotActive
}

// IsNotFound returns true if the error indicates a missing directory
// entity, policy, or renewal.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrRenewalNotFound) ||
		errors.Is(err, ErrCompanyNotFound) ||
		errors.Is(err, ErrAgentNotFound) ||
		errors.Is(err, ErrSubAgentNotFound) ||
		errors.Is(err, ErrClientNotFound)
}
