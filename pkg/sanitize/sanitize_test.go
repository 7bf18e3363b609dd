package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileDefsCompilesAllBuiltinPatterns(t *testing.T) {
	assert.Equal(t, len(explicitPatternDefs), len(explicitPatterns),
		"all built-in patterns should compile")
	for _, p := range explicitPatterns {
		assert.NotNil(t, p.regex, "pattern %s should have compiled regex", p.name)
	}
}

func TestSanitizePlotReplacesExplicitLanguage(t *testing.T) {
	s := New()

	out := s.SanitizePlot("Their sexual encounter was erotic and full of lustful tension.")

	assert.NotContains(t, out, "sexual")
	assert.NotContains(t, out, "erotic")
	assert.NotContains(t, out, "lustful")
	assert.Contains(t, out, "romance")
	assert.Contains(t, out, "passionate")
}

func TestSanitizePlotStripsNudityAndAnatomyTerms(t *testing.T) {
	s := New()

	out := s.SanitizePlot("She stood naked, her breasts visible in the moonlight.")

	assert.NotContains(t, out, "naked")
	assert.NotContains(t, out, "breasts")
	assert.Contains(t, out, "elegantly dressed")
}

func TestSanitizePlotLeavesBenignTextUntouched(t *testing.T) {
	s := New()

	plot := "A detective investigates a murder in 1920s Chicago."
	assert.Equal(t, plot, s.SanitizePlot(plot))
}

func TestSanitizePlotEmptyInputReturnsEmpty(t *testing.T) {
	s := New()
	assert.Equal(t, "", s.SanitizePlot(""))
}

func TestSanitizePlotCollapsesDoubleSpacesLeftByRemoval(t *testing.T) {
	s := New()

	out := s.SanitizePlot("He saw her genitals and ran away in fear.")

	assert.NotContains(t, out, "  ")
}
