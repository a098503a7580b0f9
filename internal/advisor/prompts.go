package advisor

import (
	"fmt"
	"strings"
)

// feasibilitySystemPrompt asks for a plausibility verdict before any
// retrieval or generation cost is spent.
const feasibilitySystemPrompt = `You are an expert chemist.
Decide whether a metal-organic framework could plausibly be synthesized from the
given metal site and organic linker. Consider coordination chemistry, typical
linker denticity and known MOF families.
You MUST return a single JSON object with exactly two keys:
{"is_plausible": boolean, "reasoning": "a short explanation of the verdict"}`

// protocolSchema is shared by the grounded and fallback generation prompts.
const protocolSchema = `{
  "suggested_protocol": {
    "metal_source_suggestion": "e.g., Copper(II) nitrate trihydrate, Cu(NO3)2·3H2O",
    "linker_suggestion": "e.g., 1,3,5-Benzenetricarboxylic acid (H3BTC)",
    "solvent_suggestion": "e.g., A mixture of DMF/Ethanol/Water in a 1:1:1 ratio",
    "temperature_celsius": "e.g., 110",
    "time_hours": "e.g., 24",
    "procedure_details": "A step-by-step description of the synthesis procedure.",
    "reasoning": "A brief explanation of why this protocol was chosen."
  }
}`

// groundedSystemPrompt drives generation when retrieval produced context.
var groundedSystemPrompt = `You are a world-class chemist specializing in MOF synthesis.
Your task is to devise a reasonable synthesis protocol based on the user's request
and relevant literature excerpts provided as context.
You MUST return the protocol as a single, valid JSON object. Do not add any
explanation before or after the JSON.

The JSON object should have the following structure:
` + protocolSchema

// fallbackSystemPrompt drives generation when the knowledge base had
// nothing relevant. The model must say so in its reasoning.
var fallbackSystemPrompt = `You are a world-class chemist specializing in MOF synthesis.
No relevant literature was found for this request, so you must devise a reasonable
synthesis protocol from general domain knowledge alone. State clearly in the
"reasoning" field that the suggestion is not grounded in retrieved literature.
You MUST return the protocol as a single, valid JSON object. Do not add any
explanation before or after the JSON.

The JSON object should have the following structure:
` + protocolSchema

func feasibilityUserPrompt(metal, linker string) string {
	return fmt.Sprintf("Metal site: %s\nOrganic linker: %s\n\nIs this pairing chemically plausible for MOF synthesis?", metal, linker)
}

func groundedUserPrompt(query string, contexts []string) string {
	return fmt.Sprintf(`Here is the user's request: %s

Here is the relevant context from my knowledge base:
---
%s
---

Please provide the synthesis protocol as a JSON object based on this information.`,
		query, strings.Join(contexts, "\n\n---\n\n"))
}

func fallbackUserPrompt(query string) string {
	return fmt.Sprintf("Here is the user's request: %s\n\nPlease provide the synthesis protocol as a JSON object.", query)
}
