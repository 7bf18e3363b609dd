package agent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/pkg/services"
)

func TestParseOutlineSectionsPlainLevel2(t *testing.T) {
	outline := `# Struttura del Romanzo

## Chapter One: The Beginning
Everything starts here.

## Chapter Two: The Middle
Things get complicated.
`
	sections, err := ParseOutlineSections(outline)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Equal(t, "Chapter One: The Beginning", sections[0].Title)
	require.Equal(t, "Everything starts here.", sections[0].Description)
	require.Equal(t, 2, sections[0].Level)
	require.Equal(t, "Chapter Two: The Middle", sections[1].Title)
}

func TestParseOutlineSectionsWithParts(t *testing.T) {
	outline := `# Outline

## Parte Prima
### Chapter One
Opens the story.

### Chapter Two
Continues it.

## Parte Seconda
### Chapter Three
Wraps it up.
`
	sections, err := ParseOutlineSections(outline)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	for _, s := range sections {
		require.Equal(t, 3, s.Level)
	}
	require.Equal(t, "Chapter Three", sections[2].Title)
}

func TestParseOutlineSectionsFallsBackToLevelsTwoAndThree(t *testing.T) {
	outline := `### Section A
First.

### Section B
No level-2 heading exists, so the level-2∪level-3 fallback picks up both level-3 headings.
`
	sections, err := ParseOutlineSections(outline)
	require.NoError(t, err)
	require.Len(t, sections, 2)
}

func TestParseOutlineSectionsFallsBackToAboveLevelOne(t *testing.T) {
	outline := `# Book Title

#### Deep Heading
Only very deep headings exist.
`
	sections, err := ParseOutlineSections(outline)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, "Deep Heading", sections[0].Title)
}

func TestParseOutlineSectionsEmptyIsValidationError(t *testing.T) {
	_, err := ParseOutlineSections("   \n  ")
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestParseOutlineSectionsNoHeadingsIsValidationError(t *testing.T) {
	_, err := ParseOutlineSections("just some prose with no markdown headings at all")
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestParseOutlineSectionsOnlyFirstH1IsSkippedAsTitle(t *testing.T) {
	// A second H1 mid-document is not the document title and should not
	// be treated specially, but it also isn't a writable level-2/3
	// section, so it falls out of the filtered result.
	outline := `# Indice

## Chapter One
First chapter.

# Unexpected Mid-Document Heading

## Chapter Two
Second chapter.
`
	sections, err := ParseOutlineSections(outline)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Equal(t, "Chapter One", sections[0].Title)
	require.Equal(t, "Chapter Two", sections[1].Title)
}
