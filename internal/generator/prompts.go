package generator

import (
	"fmt"
	"strings"

	"github.com/mock-test/backend/internal/models"
)

const (
	defaultCompany = "A reputed technology company"
	defaultRole    = "Software Engineer"
)

var difficultyGuidance = map[int]string{
	1: "Basic definitions and recall. A beginner should answer these without hesitation.",
	2: "Straightforward application of a single concept.",
	3: "Combine two related concepts or reason about a common scenario.",
	4: "Multi-step reasoning, trade-offs, and edge cases an experienced practitioner would know.",
	5: "Deep internals, subtle failure modes, and questions that separate experts from strong practitioners.",
}

func SystemPrompt() string {
	return `You write multiple-choice questions for technical hiring assessments and mock tests.

Rules for every question:
- One unambiguous question stem
- Exactly four options (A, B, C, D) of similar length and style
- Exactly one correct option; the other three must be plausible but clearly wrong to an expert
- No "all of the above" or "none of the above"
- Do not repeat a question stem within the batch
- Vary the position of the correct option across A-D

Respond with a JSON array only. No prose, no markdown.`
}

// BuildUserPrompt renders the per-batch prompt. The record keys in the output
// format are the ones the parser reads.
func BuildUserPrompt(req models.GenerationRequest, count int) string {
	company := req.CompanyName
	if company == "" {
		company = defaultCompany
	}
	role := req.RolePosition
	if role == "" {
		role = defaultRole
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Context:\n")
	fmt.Fprintf(&b, "- Company: %s\n", company)
	fmt.Fprintf(&b, "- Role: %s\n", role)
	fmt.Fprintf(&b, "- Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "- Difficulty: %d/5 (%s)\n", req.DifficultyLevel, models.DifficultyName(req.DifficultyLevel))
	if g, ok := difficultyGuidance[req.DifficultyLevel]; ok {
		fmt.Fprintf(&b, "- Difficulty guidance: %s\n", g)
	}
	if note := strings.TrimSpace(req.Description); note != "" {
		fmt.Fprintf(&b, "- Note: %s\n", note)
	}

	fmt.Fprintf(&b, `
Generate exactly %d unique MCQs for the topic above.

Respond with this exact JSON structure:
[
  {
    "topic": "%s",
    "question_text": "...",
    "option_a": "...",
    "option_b": "...",
    "option_c": "...",
    "option_d": "...",
    "correct_option": "A"
  }
]

"correct_option" must be one of "A", "B", "C", "D".`, count, req.Topic)

	return b.String()
}
