package transport

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// TenantLimiter bounds how many chat turns a tenant may start per minute.
// Limiters are created lazily per tenant.
type TenantLimiter struct {
	mu        sync.Mutex
	perMinute int
	limiters  map[uuid.UUID]*rate.Limiter
}

// NewTenantLimiter creates a limiter. perMinute <= 0 disables limiting.
func NewTenantLimiter(perMinute int) *TenantLimiter {
	return &TenantLimiter{
		perMinute: perMinute,
		limiters:  make(map[uuid.UUID]*rate.Limiter),
	}
}

// Allow reports whether the tenant may start another turn now.
func (l *TenantLimiter) Allow(tenantID uuid.UUID) bool {
	if l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	limiter, ok := l.limiters[tenantID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.perMinute)/60.0, l.perMinute)
		l.limiters[tenantID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
