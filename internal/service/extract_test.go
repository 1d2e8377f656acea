package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tutorial_finder/internal/domain"
)

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"valid": true}`, `{"valid": true}`},
		{"surrounding whitespace", "\n  {\"valid\": true}  \n", `{"valid": true}`},
		{"json fence", "```json\n{\"valid\": true}\n```", `{"valid": true}`},
		{"bare fence", "```\n{\"valid\": false}\n```", `{"valid": false}`},
		{"upper case tag", "```JSON {\"valid\": false}```", `{"valid": false}`},
		{"unclosed fence", "```json\n{\"valid\": true}", `{"valid": true}`},
		{"text after fence", "```json\n{\"valid\": true}\n```\nHope this helps!", `{"valid": true}`},
		{"fence not at start", "Here you go: ```json {}```", "Here you go: ```json {}```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanResponse(tt.raw))
		})
	}
}

func TestInterpret_Accepted(t *testing.T) {
	raw := "```json\n" + `{
		"valid": true,
		"material": "crochet",
		"specific_object": "bunny plush",
		"context": "toy",
		"query": "  crochet bunny   plush toy tutorial "
	}` + "\n```"

	ext := Interpret(raw)

	assert.Equal(t, domain.Accepted, ext.Outcome)
	assert.True(t, ext.HasQuery())
	assert.Equal(t, domain.ExtractionResult{
		Valid:          true,
		Material:       "crochet",
		SpecificObject: "bunny plush",
		Context:        "toy",
		Query:          "crochet bunny plush toy tutorial",
	}, ext.Result)
	assert.Equal(t, raw, ext.Raw)
}

func TestInterpret_Rejected(t *testing.T) {
	ext := Interpret(`{"valid": false, "reason": "This is a photo of a sandwich."}`)

	assert.Equal(t, domain.Rejected, ext.Outcome)
	assert.False(t, ext.HasQuery())
	assert.False(t, ext.Result.Valid)
	assert.Equal(t, "This is a photo of a sandwich.", ext.Result.Reason)
	assert.Empty(t, ext.Result.Query)
}

func TestInterpret_ValidWithoutQuery(t *testing.T) {
	ext := Interpret(`{"valid": true, "material": "wood", "query": "   "}`)

	assert.Equal(t, domain.Rejected, ext.Outcome)
	assert.False(t, ext.HasQuery())
	assert.Equal(t, "empty search query", ext.Result.Reason)
}

func TestInterpret_Uninterpretable(t *testing.T) {
	inputs := map[string]string{
		"prose":             "crochet bunny tutorial",
		"empty":             "",
		"truncated":         `{"valid": true, "query": "crochet bun`,
		"missing valid":     `{"query": "crochet bunny tutorial"}`,
		"string valid":      `{"valid": "true", "query": "crochet bunny tutorial"}`,
		"array":             `[{"valid": true}]`,
		"null":              `null`,
		"trailing sentence": `{"valid": true, "query": "q"} Let me know if you need more.`,
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			ext := Interpret(raw)
			assert.Equal(t, domain.Uninterpretable, ext.Outcome)
			assert.False(t, ext.Result.Valid)
			assert.False(t, ext.HasQuery())
			assert.NotEmpty(t, ext.Result.Reason)
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "accepted", domain.Accepted.String())
	assert.Equal(t, "rejected", domain.Rejected.String())
	assert.Equal(t, "uninterpretable", domain.Uninterpretable.String())
}
