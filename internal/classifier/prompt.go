package classifier

import (
	"fmt"
	"strings"
)

// buildPrompt asks for exactly one label, reusing a known one when it fits.
func buildPrompt(description string, known []string) string {
	categories := "(none yet)"
	if len(known) > 0 {
		categories = strings.Join(known, ", ")
	}

	return fmt.Sprintf(`You are an expert ticket classification system. Your task is to analyze the
following ticket content and assign it to the SINGLE best category from the
list provided. If none of them fits, create a new short category name.

The valid categories are: %s

TICKET CONTENT:
---
%s
---

INSTRUCTIONS:
Respond with ONLY the name of the chosen category. Do not include any
explanation, numbers, markdown formatting (like `+"```"+`), or extra text.`,
		categories,
		description)
}
