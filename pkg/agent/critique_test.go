package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCritiqueResponseValidJSON(t *testing.T) {
	text := `Here is my evaluation:

{"score": 8.5, "pros": ["strong voice", "tight pacing"], "cons": ["thin secondary cast"], "summary": "A confident debut."}
`
	result, err := parseCritiqueResponse(text)
	require.NoError(t, err)
	require.Equal(t, 8.5, result.Score)
	require.Equal(t, []string{"strong voice", "tight pacing"}, result.Pros)
	require.Equal(t, []string{"thin secondary cast"}, result.Cons)
	require.Equal(t, "A confident debut.", result.Summary)
}

func TestParseCritiqueResponseClampsOutOfRangeScore(t *testing.T) {
	result, err := parseCritiqueResponse(`{"score": 14, "pros": [], "cons": [], "summary": "ok"}`)
	require.NoError(t, err)
	require.Equal(t, 10.0, result.Score)
}

func TestParseCritiqueResponsePointsAsNewlineString(t *testing.T) {
	text := `{"score": 7, "pros": "- strong voice\n- tight pacing", "cons": "- thin cast", "summary": "decent"}`
	result, err := parseCritiqueResponse(text)
	require.NoError(t, err)
	require.Equal(t, []string{"strong voice", "tight pacing"}, result.Pros)
	require.Equal(t, []string{"thin cast"}, result.Cons)
}

func TestParseCritiqueResponseFallsBackToManualParsing(t *testing.T) {
	text := `Valutazione: 7.5 su 10

Punti di forza:
- strong characters
- good dialogue

Punti di debolezza:
- slow middle act

Sintesi:
Overall a solid novel with room to tighten the middle section.
`
	result, err := parseCritiqueResponse(text)
	require.NoError(t, err)
	require.Equal(t, 7.5, result.Score)
	require.Equal(t, []string{"strong characters", "good dialogue"}, result.Pros)
	require.Equal(t, []string{"slow middle act"}, result.Cons)
	require.Contains(t, result.Summary, "solid novel")
}

func TestParseCritiqueResponseWholeTextBecomesSummaryWhenNothingRecognized(t *testing.T) {
	text := "The novel is engaging and well paced throughout."
	result, err := parseCritiqueResponse(text)
	require.NoError(t, err)
	require.Equal(t, text, result.Summary)
}

func TestCoercePointsToListHandlesArrayStringAndOther(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, coercePointsToList([]any{"a", "b"}))
	require.Equal(t, []string{"a", "b"}, coercePointsToList("* a\n- b"))
	require.Nil(t, coercePointsToList(nil))
	require.Equal(t, []string{"3"}, coercePointsToList(float64(3)))
}
