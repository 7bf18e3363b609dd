package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelFamily(t *testing.T) {
	cases := []struct {
		name   string
		family Family
		ok     bool
	}{
		{"gemini-3-pro-preview", FamilyGoogle, true},
		{"gemini-2.5-flash", FamilyGoogle, true},
		{"claude-opus-4", FamilyGoogle, true},
		{"gpt-5.2-pro", FamilyOpenAI, true},
		{"o1-mini", FamilyOpenAI, true},
		{"o3", FamilyOpenAI, true},
		{"llama-3", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			family, err := ModelFamily(tc.name)
			if !tc.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.family, family)
		})
	}
}

func TestNormalizeAliases(t *testing.T) {
	require.Equal(t, "gemini-3-pro-preview", Normalize("gemini-3-pro"))
	require.Equal(t, "gemini-3-flash-preview", Normalize("gemini-3-flash"))
	require.Equal(t, "gpt-5.2-pro", Normalize("gpt-5-pro"))

	// Recognized family, unknown specific id: passed through unchanged.
	require.Equal(t, "gemini-9-ultra-preview", Normalize("gemini-9-ultra-preview"))

	// Wholly unrecognized name: defaults to the flash tier
	// (original_source: "unrecognized aliases default to the flash tier").
	require.Equal(t, defaultAlias, Normalize("some-unknown-model"))
}
