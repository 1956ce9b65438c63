/*
sms.go - HTTP SMS providers with primary/fallback chaining

PURPOSE:
  SMS goes out through a gateway's HTTP API. Two providers can be
  configured; the chain tries the primary and falls back to the
  secondary only when the primary errors. Which provider delivered is
  recorded in the Result for auditability.
*/
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSSender sends one text message.
type SMSSender interface {
	Name() string
	Send(ctx context.Context, to, message string) error
}

// HTTPProvider posts form-encoded sends to an SMS gateway.
type HTTPProvider struct {
	name     string
	endpoint string
	apiKey   string
	sender   string
	client   *http.Client
}

func NewHTTPProvider(name, endpoint, apiKey, sender string) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		sender:   sender,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) Send(ctx context.Context, to, message string) error {
	form := url.Values{}
	form.Set("api_key", p.apiKey)
	form.Set("sender", p.sender)
	form.Set("to", to)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: gateway returned %s", p.name, resp.Status)
	}
	return nil
}

// Chain tries providers in order and stops at the first success.
type Chain struct {
	providers []SMSSender
}

func NewChain(providers ...SMSSender) *Chain {
	return &Chain{providers: providers}
}

// Send returns the name of the provider that delivered, or the last
// error when all providers failed.
func (c *Chain) Send(ctx context.Context, to, message string) (string, error) {
	if len(c.providers) == 0 {
		return "", fmt.Errorf("no sms providers configured")
	}
	var lastErr error
	for _, p := range c.providers {
		if err := p.Send(ctx, to, message); err != nil {
			lastErr = err
			continue
		}
		return p.Name(), nil
	}
	return "", lastErr
}
