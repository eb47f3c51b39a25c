package candidates

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_DefaultBank(t *testing.T) {
	got := Generate("Jane", "Doe", "example.com", Options{})
	want := []string{
		"jane@example.com",
		"doe@example.com",
		"jane.doe@example.com",
		"j.doe@example.com",
		"jdoe@example.com",
		"janedoe@example.com",
		"doe.jane@example.com",
		"doej@example.com",
		"jane_doe@example.com",
		"doe_jane@example.com",
	}
	require.Equal(t, want, got)
}

func TestGenerate_EmptyDomain(t *testing.T) {
	require.Nil(t, Generate("Jane", "Doe", "", Options{}))
}

func TestGenerate_NoLastNameDisallowed(t *testing.T) {
	require.Nil(t, Generate("Jane", "", "example.com", Options{}))
}

func TestGenerate_EmptyFirstNameSkipsFirstOnlyPatterns(t *testing.T) {
	// Every default bank pattern but index 1 ({last}@{domain}) references
	// {first} or {f}; with an empty first name only that one renders.
	got := Generate("", "Doe", "example.com", Options{})
	require.Equal(t, []string{"doe@example.com"}, got)
}

func TestGenerate_EmptyFirstNameCustomPatternSkippedToo(t *testing.T) {
	got := Generate("", "Doe", "example.com", Options{
		EnabledIndices: []int{1},
		CustomPatterns: []string{"{f}{last}@{domain}", "{last}-team@{domain}"},
	})
	require.Equal(t, []string{"doe@example.com", "doe-team@example.com"}, got)
}

func TestGenerate_NoLastNameAllowed(t *testing.T) {
	got := Generate("Jane", "", "example.com", Options{AllowNoLastname: true})
	want := []string{"jane@example.com", "info@example.com", "contact@example.com", "contacto@example.com", "hello@example.com", "hola@example.com"}
	require.Equal(t, want, got)
}

func TestGenerate_DiacriticsNormalized(t *testing.T) {
	got := Generate("José", "Peña", "example.com", Options{EnabledIndices: []int{2}})
	require.Equal(t, []string{"jose.pena@example.com"}, got)
}

func TestGenerate_SubsetIndices(t *testing.T) {
	got := Generate("Jane", "Doe", "example.com", Options{EnabledIndices: []int{1, 0}})
	require.Equal(t, []string{"doe@example.com", "jane@example.com"}, got)
}

func TestGenerate_CustomPatternsAppended(t *testing.T) {
	got := Generate("Jane", "Doe", "example.com", Options{
		EnabledIndices: []int{0},
		CustomPatterns: []string{"{first}-{last}@{domain}"},
	})
	require.Equal(t, []string{"jane@example.com", "jane-doe@example.com"}, got)
}

func TestGenerate_DedupesAndTruncates(t *testing.T) {
	indices := make([]int, 0)
	for i := 0; i < BankSize(); i++ {
		indices = append(indices, i, i) // duplicate every index
	}
	got := Generate("Jane", "Doe", "example.com", Options{EnabledIndices: indices})
	require.LessOrEqual(t, len(got), MaxCandidates)
	seen := map[string]bool{}
	for _, c := range got {
		require.False(t, seen[c], "duplicate candidate %s", c)
		seen[c] = true
	}
}

func TestValidateCustomPattern(t *testing.T) {
	require.True(t, ValidateCustomPattern("{first}.{last}@{domain}"))
	require.False(t, ValidateCustomPattern("{first}.{last}@example.com"))
	require.False(t, ValidateCustomPattern(""))
}

func TestLabels(t *testing.T) {
	got := Labels([]int{0, 99, 1})
	require.Equal(t, []string{"{first}@{domain}", "{last}@{domain}"}, got)
}
