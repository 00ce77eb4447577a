package transform

import "fmt"

// System prompts per mode.
const (
	legalEnglishSystem  = "You are an expert legal translator specializing in Tamil land documents."
	simpleEnglishSystem = "You simplify complex legal documents for common people."
	summarySystem       = "You are a land document analyst."
)

// Sampling temperatures per mode. Translation and summary stay close to the
// source; simplification gets slightly more freedom.
const (
	legalEnglishTemperature  = 0.2
	simpleEnglishTemperature = 0.3
	summaryTemperature       = 0.2
)

func legalEnglishPrompt(text string) string {
	return fmt.Sprintf(`Translate this Tamil land document text to formal legal English:

%s

Requirements:
1. Preserve all legal terminology
2. Maintain original names in transliterated form
3. Keep measurements in original units with metric equivalents
4. Include survey numbers, boundaries, dates
5. Output in clear legal English`, text)
}

func simpleEnglishPrompt(text string, pageNumber int) string {
	return fmt.Sprintf(`Simplify this legal land document text (Page %d) to simple, meaningful English:

%s

Include:
1. A short summary for this page
2. Key details (owner, land size, survey number, boundaries)
3. Explanation of any technical terms
4. Use bullet points for clarity`, pageNumber, text)
}

func summaryPrompt(combined string) string {
	return fmt.Sprintf(`Create a complete summary of this Tamil land document:

%s

Include:
1. Document type and purpose
2. All parties involved
3. Complete property details
4. Key dates and registration details
5. Important clauses and conditions
6. Overall document status

Respond with a JSON object matching this shape:
{"summary": "<full summary text>", "document_type": "<kind of document>", "parties": ["<party>", ...], "key_details": ["<detail>", ...]}`, combined)
}
