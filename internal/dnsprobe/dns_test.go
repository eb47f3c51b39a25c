package dnsprobe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClampDeadline(t *testing.T) {
	require.Equal(t, time.Second, ClampDeadline(100*time.Millisecond))
	require.Equal(t, 30*time.Second, ClampDeadline(time.Minute))
	require.Equal(t, 5*time.Second, ClampDeadline(5*time.Second))
}

func TestClassifyMXError(t *testing.T) {
	require.Equal(t, ErrDomainMissing, classifyMXError(&net.DNSError{Err: "no such host", IsNotFound: true}))
	require.Equal(t, ErrTransient, classifyMXError(&net.DNSError{Err: "timeout", IsTimeout: true}))
	require.Equal(t, ErrTransient, classifyMXError(&net.DNSError{Err: "temporary", IsTemporary: true}))
	require.Equal(t, ErrTransient, classifyMXError(&net.DNSError{Err: "mystery"}))
	require.Equal(t, ErrTransient, classifyMXError(context.DeadlineExceeded))
}

func TestResolveToIP_LiteralAddress(t *testing.T) {
	got, ok := ResolveToIP(context.Background(), "192.0.2.1", time.Second)
	require.True(t, ok)
	require.Equal(t, "192.0.2.1", got)
}

func TestResolveToIP_EmptyHost(t *testing.T) {
	got, ok := ResolveToIP(context.Background(), "  ", time.Second)
	require.False(t, ok)
	require.Equal(t, "", got)
}

func TestResolveToIP_TrailingDotLiteral(t *testing.T) {
	got, ok := ResolveToIP(context.Background(), "::1.", time.Second)
	require.True(t, ok)
	require.Equal(t, "::1", got)
}
