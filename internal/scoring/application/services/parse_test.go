package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelScore(t *testing.T) {
	t.Run("parses a bare JSON object", func(t *testing.T) {
		parsed, err := parseModelScore(`{"score": 82.5, "reasoning": "strong overlap", "skills": ["go", "postgres"]}`)

		require.NoError(t, err)
		assert.Equal(t, 82.5, parsed.Score)
		assert.Equal(t, "strong overlap", parsed.Reason)
		assert.Equal(t, []string{"go", "postgres"}, parsed.Keywords)
	})

	t.Run("strips a fenced code block with a language tag", func(t *testing.T) {
		raw := "```json\n{\"score\": 40, \"reason\": \"partial fit\"}\n```"
		parsed, err := parseModelScore(raw)

		require.NoError(t, err)
		assert.Equal(t, 40.0, parsed.Score)
		assert.Equal(t, "partial fit", parsed.Reason)
	})

	t.Run("strips a fence without a language tag", func(t *testing.T) {
		raw := "```\n{\"score\": 12}\n```"
		parsed, err := parseModelScore(raw)

		require.NoError(t, err)
		assert.Equal(t, 12.0, parsed.Score)
	})

	t.Run("recovers an object embedded in prose", func(t *testing.T) {
		raw := `Sure! Here is my assessment: {"score": 67, "explanation": "good"} Hope that helps.`
		parsed, err := parseModelScore(raw)

		require.NoError(t, err)
		assert.Equal(t, 67.0, parsed.Score)
		assert.Equal(t, "good", parsed.Reason)
	})

	t.Run("braces inside strings do not break extraction", func(t *testing.T) {
		raw := `Result: {"score": 50, "reason": "uses {braces} and \"quotes\""}`
		parsed, err := parseModelScore(raw)

		require.NoError(t, err)
		assert.Equal(t, 50.0, parsed.Score)
	})

	t.Run("accepts keywords as a comma separated string", func(t *testing.T) {
		parsed, err := parseModelScore(`{"score": 30, "keywords": "docker, kubernetes , ci/cd"}`)

		require.NoError(t, err)
		assert.Equal(t, []string{"docker", "kubernetes", "ci/cd"}, parsed.Keywords)
	})

	t.Run("prefers reasoning over later aliases", func(t *testing.T) {
		parsed, err := parseModelScore(`{"score": 10, "reasoning": "first", "reason": "second"}`)

		require.NoError(t, err)
		assert.Equal(t, "first", parsed.Reason)
	})

	t.Run("rejects an object without a numeric score", func(t *testing.T) {
		_, err := parseModelScore(`{"reasoning": "no score here"}`)
		assert.ErrorIs(t, err, ErrUnparseableModelOutput)

		_, err = parseModelScore(`{"score": "eighty"}`)
		assert.ErrorIs(t, err, ErrUnparseableModelOutput)
	})

	t.Run("rejects text with no JSON object", func(t *testing.T) {
		_, err := parseModelScore("I would rate this candidate very highly.")
		assert.ErrorIs(t, err, ErrUnparseableModelOutput)
	})

	t.Run("rejects an unterminated object", func(t *testing.T) {
		_, err := parseModelScore(`{"score": 55, "reason": "cut off`)
		assert.ErrorIs(t, err, ErrUnparseableModelOutput)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := parseModelScore("")
		assert.ErrorIs(t, err, ErrUnparseableModelOutput)
	})
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
	assert.Equal(t, "plain text", stripCodeFences("  plain text  "))
}
