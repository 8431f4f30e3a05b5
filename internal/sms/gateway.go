package sms

import (
	"context"
	"strings"
	"time"

	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/observability"
	"go.uber.org/zap"
)

// Gateway routes an outbound text message to a country-specific provider.
// The surface is a single boolean: callers never see provider codes, and a
// false return does not tell the caller whether the network or the provider
// failed. Detail goes to the server log only.
type Gateway interface {
	Send(ctx context.Context, phone, message, country string) bool
}

// Provider is a single SMS vendor integration.
type Provider interface {
	Name() string
	Send(ctx context.Context, phone, message string) error
}

// Selector picks a provider by ISO country code. Unsupported countries fail
// without error.
type Selector struct {
	providers map[string]Provider
	timeout   time.Duration
	logger    *logging.SafeLogger
}

// NewSelector builds a selector over a country -> provider table. Every
// provider call is bounded by the given timeout so a hung vendor cannot
// hold a request open.
func NewSelector(providers map[string]Provider, timeout time.Duration, logger *logging.SafeLogger) *Selector {
	table := make(map[string]Provider, len(providers))
	for country, p := range providers {
		table[strings.ToUpper(country)] = p
	}
	return &Selector{providers: table, timeout: timeout, logger: logger}
}

// Send dispatches the message via the provider registered for the country.
func (s *Selector) Send(ctx context.Context, phone, message, country string) bool {
	country = strings.ToUpper(strings.TrimSpace(country))

	provider, ok := s.providers[country]
	if !ok {
		s.logger.Warn("no SMS provider for country",
			zap.String("country", country),
			zap.String("phone", observability.MaskPhone(phone)))
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := provider.Send(ctx, phone, message); err != nil {
		s.logger.Error("SMS dispatch failed",
			zap.String("provider", provider.Name()),
			zap.String("country", country),
			zap.String("phone", observability.MaskPhone(phone)),
			zap.Error(err))
		return false
	}

	s.logger.Info("SMS dispatched",
		zap.String("provider", provider.Name()),
		zap.String("country", country),
		zap.String("phone", observability.MaskPhone(phone)))
	return true
}
