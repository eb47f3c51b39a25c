package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name  string
		hosts []string
		want  Tag
	}{
		{"google aspmx", []string{"aspmx.l.google.com"}, Google},
		{"microsoft outlook", []string{"mail.protection.outlook.com"}, Microsoft},
		{"zoho", []string{"mx.zoho.eu"}, Zoho},
		{"unknown", []string{"mx1.example-corp.com"}, Other},
		{"first matching host in order wins", []string{"mx1.example.com", "aspmx.l.google.com"}, Google},
		{"empty", nil, Other},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, Detect(c.hosts))
		})
	}
}

func TestBoosts(t *testing.T) {
	require.True(t, Boosts(Google))
	require.True(t, Boosts(Microsoft))
	require.True(t, Boosts(ICloud))
	require.True(t, Boosts(Zoho))
	require.False(t, Boosts(Other))
	require.False(t, Boosts(IONOS))
}
