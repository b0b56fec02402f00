package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fhhd11/agent-gateway/pkg/config"
)

func TestAllow_UnconfiguredAdmitsEverything(t *testing.T) {
	l := New(config.Config{})
	assert.False(t, l.Enabled())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("user-1"))
	}
}

func TestAllow_BurstExhaustion(t *testing.T) {
	// RPS low enough that the bucket does not refill during the test.
	l := New(config.Config{RateLimit: config.RateLimit{RPS: 0.001, Burst: 2}})
	assert.True(t, l.Enabled())

	assert.True(t, l.Allow("user-1"))
	assert.True(t, l.Allow("user-1"))
	assert.False(t, l.Allow("user-1"))
}

func TestAllow_BucketsAreIsolatedByKey(t *testing.T) {
	l := New(config.Config{RateLimit: config.RateLimit{RPS: 0.001, Burst: 1}})

	assert.True(t, l.Allow("user-1"))
	assert.False(t, l.Allow("user-1"))
	assert.True(t, l.Allow("user-2"))
}

func TestAllow_EmptyKeySharesAnonymousBucket(t *testing.T) {
	l := New(config.Config{RateLimit: config.RateLimit{RPS: 0.001, Burst: 1}})

	assert.True(t, l.Allow(""))
	assert.False(t, l.Allow(""))
	assert.False(t, l.Allow("anonymous"))
}
