package catchall

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomLocalPart_LengthAndAlphabet(t *testing.T) {
	s := randomLocalPart()
	require.Len(t, s, localPartLen)
	for _, r := range s {
		require.Contains(t, alphabet, string(r))
	}
}

func TestRandomLocalPart_Varies(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		seen[randomLocalPart()] = true
	}
	require.Greater(t, len(seen), 1)
}
