package disposable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs_KnownDomain(t *testing.T) {
	require.True(t, Is("mailinator.com"))
	require.True(t, Is("MAILINATOR.COM"))
	require.True(t, Is("  guerrillamail.net  "))
}

func TestIs_UnknownDomain(t *testing.T) {
	require.False(t, Is("example.com"))
	require.False(t, Is(""))
}
