package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentencesSimple(t *testing.T) {
	input := "John Smith was born in Boston in 1880. He married Mary Jones in 1905."
	sentences := splitSentences(input)
	assert.Equal(t, []string{
		"John Smith was born in Boston in 1880.",
		"He married Mary Jones in 1905.",
	}, sentences)
}

func TestSplitSentencesDropsShortFragments(t *testing.T) {
	input := "Yes. No. This sentence is long enough to carry weight."
	sentences := splitSentences(input)
	assert.Equal(t, []string{"This sentence is long enough to carry weight."}, sentences)
}

func TestSplitSentencesPreservesAbbreviations(t *testing.T) {
	input := "Born in Boston, Mass. to a large family of farmers. He emigrated in 1901."
	sentences := splitSentences(input)
	assert.Len(t, sentences, 2)
}

func TestExtractSupportingSnippetFindsMatchingSentence(t *testing.T) {
	raw := "Parish register entry for the Smith family. John Smith was born 1880 in Boston to Irish immigrants."
	snippet, ok := ExtractSupportingSnippet(raw, "born 1880 in Boston")
	assert.True(t, ok)
	assert.Contains(t, snippet, "born 1880 in Boston")
}

func TestExtractSupportingSnippetNoMatch(t *testing.T) {
	raw := "Parish register entry for the Smith family, recorded in full."
	_, ok := ExtractSupportingSnippet(raw, "born 1880 in Boston")
	assert.False(t, ok)
}

func TestExtractSupportingSnippetEmptyInputs(t *testing.T) {
	_, ok := ExtractSupportingSnippet("", "value")
	assert.False(t, ok)
	_, ok = ExtractSupportingSnippet("text", "")
	assert.False(t, ok)
}
