// Package sanitize implements the plot sanitizer referenced by spec.md
// §4.5 item 5: before the cover stage calls LLMGateway.generate_image,
// the plot is stripped of sexually explicit / intimate language so the
// image model's own safety filters don't reject the prompt.
//
// Grounded on the teacher's pkg/masking: a set of pre-compiled regex
// patterns swept over the input in order, each with its own
// replacement — the same CompiledPattern/resolvedPatterns shape,
// simplified since a plot sanitizer has no per-server config surface
// or custom pattern registry to resolve against.
package sanitize

import (
	"log/slog"
	"regexp"
)

// compiledPattern mirrors the teacher's masking.CompiledPattern shape.
type compiledPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// explicitPatterns is the built-in sweep, analogous to the teacher's
// config.GetBuiltinConfig().MaskingPatterns table. Ordered from most
// to least specific so later, broader patterns don't interfere with
// earlier phrase-level replacements.
var explicitPatternDefs = []struct {
	name        string
	pattern     string
	replacement string
}{
	{
		name:        "explicit_act",
		pattern:     `(?i)\b(sex(ual(ly)?)?|intercourse|fornicat\w*|copulat\w*)\b`,
		replacement: "romance",
	},
	{
		name:        "nudity",
		pattern:     `(?i)\b(nud(e|ity)|naked|bare[- ]?chested|topless)\b`,
		replacement: "elegantly dressed",
	},
	{
		name:        "intimate_anatomy",
		pattern:     `(?i)\b(genitals?|breasts?|nipples?|groin|penis|vagina)\b`,
		replacement: "",
	},
	{
		name:        "explicit_intimacy",
		pattern:     `(?i)\b(erotic(a|ally)?|orgasm\w*|arous\w*|seduc\w*|lustful)\b`,
		replacement: "passionate",
	},
	{
		name:        "violence_graphic",
		pattern:     `(?i)\b(gore|graphic(ally)? violent|mutilat\w*|disembowel\w*)\b`,
		replacement: "intense",
	},
}

var explicitPatterns = compileDefs()

func compileDefs() []*compiledPattern {
	compiled := make([]*compiledPattern, 0, len(explicitPatternDefs))
	for _, def := range explicitPatternDefs {
		re, err := regexp.Compile(def.pattern)
		if err != nil {
			slog.Error("sanitize: failed to compile built-in pattern, skipping", "pattern", def.name, "error", err)
			continue
		}
		compiled = append(compiled, &compiledPattern{name: def.name, regex: re, replacement: def.replacement})
	}
	return compiled
}

var collapseSpaces = regexp.MustCompile(`[ \t]{2,}`)

// Sanitizer satisfies pkg/orchestrator.Sanitizer. Stateless aside from
// the package-level compiled pattern table, so the zero value is
// ready to use.
type Sanitizer struct{}

// New returns a ready-to-use plot Sanitizer.
func New() *Sanitizer {
	return &Sanitizer{}
}

// SanitizePlot strips sexually explicit / intimate language from a
// plot summary, returning text safe to hand to an image-generation
// model as a cover prompt. Defensive like the teacher's Masker.Mask:
// never errors, and an empty input returns empty output unchanged.
func (s *Sanitizer) SanitizePlot(plot string) string {
	if plot == "" {
		return plot
	}

	sanitized := plot
	for _, p := range explicitPatterns {
		sanitized = p.regex.ReplaceAllString(sanitized, p.replacement)
	}
	sanitized = collapseSpaces.ReplaceAllString(sanitized, " ")

	return sanitized
}
