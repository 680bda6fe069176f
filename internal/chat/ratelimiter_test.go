package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	req := require.New(t)
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		req.True(limiter.Allow("conn-a"))
	}
	req.False(limiter.Allow("conn-a"))
	req.True(limiter.Allow("conn-b"), "keys are throttled independently")
}

func TestRateLimiterWindowSlides(t *testing.T) {
	req := require.New(t)
	limiter := NewRateLimiter(2, 50*time.Millisecond)

	req.True(limiter.Allow("conn"))
	req.True(limiter.Allow("conn"))
	req.False(limiter.Allow("conn"))

	time.Sleep(60 * time.Millisecond)
	req.True(limiter.Allow("conn"))
}

func TestRateLimiterForget(t *testing.T) {
	req := require.New(t)
	limiter := NewRateLimiter(1, time.Minute)

	req.True(limiter.Allow("conn"))
	req.False(limiter.Allow("conn"))

	limiter.Forget("conn")
	req.True(limiter.Allow("conn"))
}
