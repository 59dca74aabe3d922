package service

import (
	"context"
	"errors"
)

// ProviderChain implements TerminologyProvider by trying multiple
// providers in order. The first decisive answer wins; a provider that
// reports ErrNotFound falls through to the next one.
type ProviderChain struct {
	providers []TerminologyProvider
}

// NewProviderChain creates a provider chain.
func NewProviderChain(providers ...TerminologyProvider) *ProviderChain {
	return &ProviderChain{providers: providers}
}

// ValidateCode tries each provider until one answers.
func (c *ProviderChain) ValidateCode(ctx context.Context, valueSetURL, system, code, version string) (bool, error) {
	var lastErr error = ErrNotFound
	for _, p := range c.providers {
		ok, err := p.ValidateCode(ctx, valueSetURL, system, code, version)
		if err == nil {
			return ok, nil
		}
		if !errors.Is(err, ErrNotFound) {
			// A hard failure still allows a later provider to answer,
			// but is reported if none does.
			lastErr = err
		}
	}
	return false, lastErr
}

// Add appends a provider to the chain.
func (c *ProviderChain) Add(p TerminologyProvider) {
	c.providers = append(c.providers, p)
}

// Verify interface compliance.
var _ TerminologyProvider = (*ProviderChain)(nil)
