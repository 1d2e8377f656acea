package service

import (
	"encoding/json"
	"strings"
	"unicode"

	"tutorial_finder/internal/domain"
)

const fence = "```"

// Instruction is sent alongside the image. The model must answer with a single
// JSON object in one of the two shapes below.
const Instruction = `You are helping someone find a video tutorial to make the object in this image themselves.
Ignore the background and focus on the main object.

Work through three steps:
1. Material / technique: the craft used to make it (e.g. crochet, woodworking, 3D printing, sewing, resin casting).
2. Specific object: what exactly it is (e.g. bunny plush, floating shelf, phone stand).
3. Functional context: what it is for or where it is used (e.g. toy, wall decor, desk accessory).

If the image does not show something a person could make by hand (food, people, landscapes, screenshots, mass-produced electronics), answer:
{"valid": false, "reason": "<short reason>"}

Otherwise answer:
{"valid": true, "material": "<material or technique>", "specific_object": "<specific object>", "context": "<functional context>", "query": "<material> <specific object> <context> tutorial"}

Output ONLY the JSON object. Do not write sentences.`

type extractionPayload struct {
	Valid          *bool  `json:"valid"`
	Reason         string `json:"reason"`
	Material       string `json:"material"`
	SpecificObject string `json:"specific_object"`
	Context        string `json:"context"`
	Query          string `json:"query"`
}

// CleanResponse strips a leading ``` fence, and the language tag right after
// it, returning the text up to the closing fence.
func CleanResponse(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, fence) {
		return text
	}

	text = text[len(fence):]
	text = strings.TrimLeftFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '+'
	})
	if end := strings.Index(text, fence); end >= 0 {
		text = text[:end]
	}

	return strings.TrimSpace(text)
}

// Interpret reads the model's text as an extraction. Text that is not a JSON
// object with a boolean "valid" field is Uninterpretable, never an error.
func Interpret(raw string) domain.Extraction {
	ext := domain.Extraction{Outcome: domain.Uninterpretable, Raw: raw}

	var p extractionPayload
	if err := json.Unmarshal([]byte(CleanResponse(raw)), &p); err != nil {
		ext.Result.Reason = "could not interpret description response"
		return ext
	}
	if p.Valid == nil {
		ext.Result.Reason = "description response has no validity flag"
		return ext
	}

	if !*p.Valid {
		ext.Outcome = domain.Rejected
		ext.Result.Reason = strings.TrimSpace(p.Reason)
		return ext
	}

	query := strings.Join(strings.Fields(p.Query), " ")
	if query == "" {
		ext.Outcome = domain.Rejected
		ext.Result.Reason = "empty search query"
		return ext
	}

	ext.Outcome = domain.Accepted
	ext.Result = domain.ExtractionResult{
		Valid:          true,
		Material:       strings.TrimSpace(p.Material),
		SpecificObject: strings.TrimSpace(p.SpecificObject),
		Context:        strings.TrimSpace(p.Context),
		Query:          query,
	}
	return ext
}
