package websearch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMentioned_NotConfigured(t *testing.T) {
	found, reason := CheckMentioned(context.Background(), "jane@example.com", "", "key", 0)
	require.False(t, found)
	require.Equal(t, "not configured", reason)

	found, reason = CheckMentioned(context.Background(), "jane@example.com", Bing, "", 0)
	require.False(t, found)
	require.Equal(t, "not configured", reason)
}

func TestCheckMentioned_UnsupportedProvider(t *testing.T) {
	found, reason := CheckMentioned(context.Background(), "jane@example.com", Provider("altavista"), "key", 0)
	require.False(t, found)
	require.Contains(t, reason, "not supported")
}

func TestTransportError(t *testing.T) {
	require.Equal(t, "Timeout connecting to provider", transportError(errors.New("context deadline exceeded")))
	require.Contains(t, transportError(errors.New("connection reset")), "Request error")
}
