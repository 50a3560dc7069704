// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"strings"
)

// Pinger is the database connectivity surface the store checker needs.
type Pinger interface {
	Ping() error
}

// StoreChecker verifies the session store is reachable.
type StoreChecker struct {
	store Pinger
}

// NewStoreChecker creates a checker over the session store.
func NewStoreChecker(store Pinger) *StoreChecker {
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Name() string { return "store" }

func (c *StoreChecker) Check(_ context.Context) CheckResult {
	if err := c.store.Ping(); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "database reachable"}
}

// CacheChecker verifies the Redis cache backend is reachable. Cache loss
// only degrades service; responses just stop being cached.
type CacheChecker struct {
	check func(context.Context) error
}

// NewCacheChecker wraps a cache health probe.
func NewCacheChecker(check func(context.Context) error) *CacheChecker {
	return &CacheChecker{check: check}
}

func (c *CacheChecker) Name() string { return "cache" }

func (c *CacheChecker) Check(ctx context.Context) CheckResult {
	if err := c.check(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "cache reachable"}
}

// ProviderChecker reports which LLM providers have configured credentials.
// No providers at all is unhealthy; a partial set is degraded.
type ProviderChecker struct {
	providers func() []string
}

// NewProviderChecker wraps the router's provider listing.
func NewProviderChecker(providers func() []string) *ProviderChecker {
	return &ProviderChecker{providers: providers}
}

func (c *ProviderChecker) Name() string { return "providers" }

func (c *ProviderChecker) Check(_ context.Context) CheckResult {
	available := c.providers()
	switch len(available) {
	case 0:
		return CheckResult{Status: StatusUnhealthy, Error: "no LLM providers configured"}
	case 1:
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("only %s configured", available[0]),
		}
	default:
		return CheckResult{
			Status:  StatusHealthy,
			Message: strings.Join(available, ", "),
		}
	}
}
