/*
service.go - Notifier implementation composing SMS and email channels

PURPOSE:
  Builds the actual message text and routes each notification to the
  right channel: renewal reminders go by SMS to the client, welcome
  notes by email to the agent. Either channel may be absent; the
  service then reports Skipped instead of erroring.
*/
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/covera/brokerage-engine/policy"
)

type Service struct {
	sms   *Chain      // nil when SMS is not configured
	email EmailSender // nil when email is not configured
}

func NewService(sms *Chain, email EmailSender) *Service {
	return &Service{sms: sms, email: email}
}

func (s *Service) RenewalDue(ctx context.Context, pol policy.Policy, client policy.Client, daysLeft int) Result {
	if s.sms == nil {
		return skipped("sms", "sms channel not configured")
	}
	if client.Phone == "" {
		return skipped("sms", "client has no phone number")
	}
	msg := fmt.Sprintf("Dear %s, your policy %s is due for renewal in %d day(s) on %s. Please contact your advisor to renew.",
		client.Name, pol.Number, daysLeft, pol.EndDate.Format("02 Jan 2006"))
	provider, err := s.sms.Send(ctx, client.Phone, msg)
	if err != nil {
		log.Printf("[Notify] renewal reminder for policy %s failed: %v", pol.Number, err)
		return failed("sms", provider, err)
	}
	return delivered("sms", provider)
}

func (s *Service) AgentWelcome(_ context.Context, agent policy.Agent) Result {
	if s.email == nil {
		return skipped("email", "email channel not configured")
	}
	if agent.Email == "" {
		return skipped("email", "agent has no email address")
	}
	body := fmt.Sprintf("Hello %s,\n\nYour agent account (code %s) is ready. You can now write policies and track your commissions.\n",
		agent.Name, agent.Code)
	if err := s.email.Send(agent.Email, "Welcome aboard", body); err != nil {
		log.Printf("[Notify] welcome email to agent %s failed: %v", agent.Code, err)
		return failed("email", "smtp", err)
	}
	return delivered("email", "smtp")
}
