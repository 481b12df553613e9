package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterWaitsBetweenRequestsToOneHost(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://lh3.example.com/a.png"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://lh3.example.com/b.png"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterKeepsHostsIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.example.com/x"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://B.example.com/y"))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 2, l.Hosts())
}

func TestLimiterUnlimitedByDefault(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Wait(ctx, "https://example.com/img"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 0.1, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://example.com/a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "https://example.com/b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example.com")
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lh3.example.com", hostOf("https://LH3.example.com:443/a"))
	assert.Equal(t, "unknown", hostOf("not a url"))
	assert.Equal(t, "unknown", hostOf("::"))
}
