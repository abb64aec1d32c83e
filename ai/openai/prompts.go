package openai

import "fmt"

const translationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "source_language": {
      "type": "string",
      "description": "BCP 47 tag of the input text, e.g. en, fr, pt-BR"
    },
    "translation": {
      "type": "string"
    }
  },
  "required": ["source_language", "translation"],
  "additionalProperties": false
}`

const translationPromptTemplate = `You translate short search queries for a meeting archive into %s (%s).

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Identify the language of the input and report it as a BCP 47 tag in "source_language".
- If the input is already in %s, copy it unchanged into "translation".
- Translate meaning, not word order. Keep names, numbers, acronyms and product terms as written.
- Do not answer the query, expand it, or add words that are not implied by it.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "décisions budgétaires"
Output:
{"source_language":"fr","translation":"budget decisions"}

Example (already in the target language):
Input: "hiring plan for Q3"
Output:
{"source_language":"en","translation":"hiring plan for Q3"}

Example (informal, no punctuation):
Input: "wann haben wir über den umzug gesprochen"
Output:
{"source_language":"de","translation":"when did we talk about the move"}`

// buildTranslationPrompt creates the system prompt for the given target language.
func buildTranslationPrompt(targetName, targetTag string) string {
	return fmt.Sprintf(translationPromptTemplate,
		targetName, targetTag,
		translationResponseSchema,
		targetName)
}
