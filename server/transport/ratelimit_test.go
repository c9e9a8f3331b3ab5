package transport_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tenantbot/tenantbot/server/transport"
)

func TestTenantLimiterBurstThenDeny(t *testing.T) {
	limiter := transport.NewTenantLimiter(3)
	tenant := uuid.New()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(tenant), "turn %d should pass the burst", i)
	}
	assert.False(t, limiter.Allow(tenant))
}

func TestTenantLimiterIsPerTenant(t *testing.T) {
	limiter := transport.NewTenantLimiter(1)
	tenantA := uuid.New()
	tenantB := uuid.New()

	assert.True(t, limiter.Allow(tenantA))
	assert.False(t, limiter.Allow(tenantA))
	assert.True(t, limiter.Allow(tenantB))
}

func TestTenantLimiterDisabled(t *testing.T) {
	limiter := transport.NewTenantLimiter(0)
	tenant := uuid.New()

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(tenant))
	}
}
