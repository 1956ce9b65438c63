/*
Package notify delivers operational messages to agents and clients:
renewal reminders and welcome notes.

PURPOSE:
  Notification delivery is best-effort by contract. A send ends in one
  of three outcomes and NEVER fails the business operation that asked
  for it:

    Delivered - a provider accepted the message
    Skipped   - nothing to send (no recipient address, channel not
                configured); expected, not an error
    Failed    - every configured provider errored; logged, swallowed

SEE ALSO:
  - sms.go: HTTP SMS providers with primary/fallback chaining
  - email.go: SMTP delivery via gomail
*/
package notify

import (
	"context"
	"fmt"

	"github.com/covera/brokerage-engine/policy"
)

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result describes one delivery attempt. Err is set only for
// StatusFailed and is informational; callers log it, never return it.
type Result struct {
	Channel  string // "sms" or "email"
	Provider string
	Status   Status
	Err      error
}

func delivered(channel, provider string) Result {
	return Result{Channel: channel, Provider: provider, Status: StatusDelivered}
}

func skipped(channel, reason string) Result {
	return Result{Channel: channel, Status: StatusSkipped, Err: fmt.Errorf("%s", reason)}
}

func failed(channel, provider string, err error) Result {
	return Result{Channel: channel, Provider: provider, Status: StatusFailed, Err: err}
}

// Notifier is what the API layer and the renewal scheduler call.
type Notifier interface {
	// RenewalDue reminds the policyholder that a renewal is coming up.
	RenewalDue(ctx context.Context, pol policy.Policy, client policy.Client, daysLeft int) Result

	// AgentWelcome greets a newly registered agent.
	AgentWelcome(ctx context.Context, agent policy.Agent) Result
}

// Noop satisfies Notifier without sending anything. Used in tests and
// when no channel is configured.
type Noop struct{}

func (Noop) RenewalDue(context.Context, policy.Policy, policy.Client, int) Result {
	return skipped("sms", "notifications disabled")
}

func (Noop) AgentWelcome(context.Context, policy.Agent) Result {
	return skipped("email", "notifications disabled")
}
